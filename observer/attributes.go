package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for research observability spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")
	AttrLLMMethod   = attribute.Key("llm.method")

	AttrStreamChunks = attribute.Key("llm.stream_chunks")

	AttrToolName   = attribute.Key("tool.name")
	AttrToolStatus = attribute.Key("tool.status")

	AttrRequestID   = attribute.Key("research.request_id")
	AttrQueryLength = attribute.Key("research.query_length")
	AttrSourceCount = attribute.Key("research.source_count")
)
