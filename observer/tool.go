package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nevindra/scout"
)

// ObservedToolCaller wraps a scout.ToolCaller with OTEL instrumentation.
type ObservedToolCaller struct {
	inner scout.ToolCaller
	inst  *Instruments
}

var _ scout.ToolCaller = (*ObservedToolCaller)(nil)

// WrapToolCaller returns an instrumented tool caller that emits a span and
// metrics for every tool invocation.
func WrapToolCaller(inner scout.ToolCaller, inst *Instruments) *ObservedToolCaller {
	return &ObservedToolCaller{inner: inner, inst: inst}
}

func (o *ObservedToolCaller) CallTool(ctx context.Context, name string, args map[string]any, requestID string) (scout.ToolOutcome, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "tool.call", trace.WithAttributes(
		AttrToolName.String(name),
		AttrRequestID.String(requestID),
	))
	defer span.End()
	start := time.Now()

	outcome, err := o.inner.CallTool(ctx, name, args, requestID)

	durationMS := float64(time.Since(start).Milliseconds())
	status := "ok"
	switch {
	case err != nil:
		status = "transport_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !outcome.Success:
		status = "tool_error"
	}

	span.SetAttributes(AttrToolStatus.String(status))
	o.inst.ToolExecutions.Add(ctx, 1, metric.WithAttributes(
		AttrToolName.String(name),
		AttrToolStatus.String(status),
	))
	o.inst.ToolDuration.Record(ctx, durationMS, metric.WithAttributes(
		AttrToolName.String(name),
	))
	return outcome, err
}

func (o *ObservedToolCaller) Health(ctx context.Context) scout.ToolServerHealth {
	return o.inner.Health(ctx)
}
