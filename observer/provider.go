package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nevindra/scout"
)

// ObservedProvider wraps a scout.Provider with OTEL instrumentation.
type ObservedProvider struct {
	inner scout.Provider
	inst  *Instruments
	model string
}

var _ scout.Provider = (*ObservedProvider)(nil)

// WrapProvider returns an instrumented provider that emits traces, metrics,
// and logs around every chat call.
func WrapProvider(inner scout.Provider, model string, inst *Instruments) *ObservedProvider {
	return &ObservedProvider{inner: inner, inst: inst, model: model}
}

func (o *ObservedProvider) Name() string { return o.inner.Name() }

func (o *ObservedProvider) Chat(ctx context.Context, messages []scout.Message, opts scout.ChatOptions) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		AttrLLMModel.String(o.modelFor(opts)),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	content, err := o.inner.Chat(ctx, messages, opts)

	durationMS := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.record(ctx, opts, "chat", status, durationMS)
	return content, err
}

func (o *ObservedProvider) ChatStream(ctx context.Context, messages []scout.Message, opts scout.ChatOptions, ch chan<- string) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat_stream", trace.WithAttributes(
		AttrLLMModel.String(o.modelFor(opts)),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	// Wrap the channel to count chunks. Buffer generously so the inner
	// provider never blocks on send before the forwarder drains it.
	bufSize := max(cap(ch), 64)
	wrappedCh := make(chan string, bufSize)
	chunks := 0
	done := make(chan struct{})
	go func() {
		defer close(ch)
		defer close(done)
		for chunk := range wrappedCh {
			chunks++
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	content, err := o.inner.ChatStream(ctx, messages, opts, wrappedCh)
	<-done // wait for the forwarder before reading chunks

	durationMS := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrStreamChunks.Int(chunks))
	o.record(ctx, opts, "chat_stream", status, durationMS)
	return content, err
}

func (o *ObservedProvider) Health(ctx context.Context) scout.LLMHealth {
	return o.inner.Health(ctx)
}

func (o *ObservedProvider) modelFor(opts scout.ChatOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return o.model
}

func (o *ObservedProvider) record(ctx context.Context, opts scout.ChatOptions, method, status string, durationMS float64) {
	model := o.modelFor(opts)
	attrs := metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
	)

	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
		attribute.String("status", status),
	))
	o.inst.LLMDuration.Record(ctx, durationMS, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("llm call completed"))
	rec.AddAttributes(
		otellog.String("llm.model", model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.String("llm.method", method),
		otellog.Float64("llm.duration_ms", durationMS),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}
