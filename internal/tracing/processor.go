package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/logging"
	"github.com/eco2-team/backend/domains/basket/internal/metrics"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
)

// RedactionProcessor masks sensitive span attributes before handing the span
// to the next processor (normally the batcher in front of the OTLP exporter).
//
//	TracerProvider → RedactionProcessor → BatchSpanProcessor → otlptracegrpc
//
// ReadOnlySpan cannot be modified, so a masked snapshot is forwarded instead.
// Spans with nothing to mask are forwarded as-is. The processor holds no
// mutable state and may be called from any number of goroutines.
type RedactionProcessor struct {
	policy *redact.Policy
	next   sdktrace.SpanProcessor
	logger *logging.Logger
}

var _ sdktrace.SpanProcessor = (*RedactionProcessor)(nil)

// NewRedactionProcessor wraps next. logger receives hook failures and must not
// write back into the trace or log export pipeline.
func NewRedactionProcessor(policy *redact.Policy, next sdktrace.SpanProcessor, logger *logging.Logger) (*RedactionProcessor, error) {
	if policy == nil {
		return nil, errors.New(constants.ErrPolicyRequired)
	}
	if next == nil {
		return nil, errors.New(constants.ErrNextRequired)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedactionProcessor{policy: policy, next: next, logger: logger}, nil
}

// OnStart delegates to the next processor.
func (p *RedactionProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	p.next.OnStart(parent, s)
}

// OnEnd forwards s, or a masked copy of it, to the next processor.
func (p *RedactionProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	p.next.OnEnd(p.Redact(s))
}

// Shutdown delegates to the next processor.
func (p *RedactionProcessor) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// ForceFlush delegates to the next processor.
func (p *RedactionProcessor) ForceFlush(ctx context.Context) error {
	return p.next.ForceFlush(ctx)
}

// Redact returns s when no attribute needs masking, otherwise a snapshot with
// masked string values. Keys, attribute count and order are unchanged.
// A panic while masking is logged and s is returned unmodified.
func (p *RedactionProcessor) Redact(s sdktrace.ReadOnlySpan) (out sdktrace.ReadOnlySpan) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RedactFailuresTotal.WithLabelValues(metrics.HookSpan, metrics.ReasonPanic).Inc()
			p.logger.Error("Span redaction failed, exporting unmodified span",
				slog.String(constants.ECSFieldRedactHook, metrics.HookSpan),
				slog.String(constants.ECSFieldEventAction, constants.EventActionRedact),
				slog.String(constants.ECSFieldEventOutcome, constants.EventOutcomeFailure),
				slog.String(constants.ECSFieldErrorMessage, fmt.Sprint(r)),
			)
			out = s
		}
		metrics.RedactDuration.WithLabelValues(metrics.HookSpan).Observe(time.Since(start).Seconds())
	}()

	attrs, changed := p.redactAttributes(s.Name(), s.Attributes(), metrics.KindAttribute)

	var events []sdktrace.Event
	for i, ev := range s.Events() {
		masked, ok := p.redactAttributes(s.Name(), ev.Attributes, metrics.KindEvent)
		if !ok {
			continue
		}
		if events == nil {
			events = append([]sdktrace.Event(nil), s.Events()...)
		}
		events[i].Attributes = masked
	}

	if !changed && events == nil {
		return s
	}

	stub := tracetest.SpanStubFromReadOnlySpan(s)
	if changed {
		stub.Attributes = attrs
	}
	if events != nil {
		stub.Events = events
	}
	return stub.Snapshot()
}

// redactAttributes returns a masked copy of attrs, or false when no value
// changed. Only STRING values are inspected.
func (p *RedactionProcessor) redactAttributes(span string, attrs []attribute.KeyValue, kind string) ([]attribute.KeyValue, bool) {
	var out []attribute.KeyValue
	for i, kv := range attrs {
		if kv.Value.Type() != attribute.STRING {
			continue
		}
		value, ok := p.redactValue(span, string(kv.Key), kv.Value.AsString(), kind)
		if !ok {
			continue
		}
		if out == nil {
			out = append([]attribute.KeyValue(nil), attrs...)
		}
		out[i] = attribute.String(string(kv.Key), value)
	}
	return out, out != nil
}

// redactValue masks a single value. Values shaped like a JSON object are
// treated as nested payloads and masked field by field; anything else is
// masked by key.
func (p *RedactionProcessor) redactValue(span, key, value, kind string) (string, bool) {
	if redact.LooksLikeObject(value) {
		res := p.policy.MaskPayload(value)
		switch res.Outcome {
		case redact.PayloadRewritten:
			if res.Masked > 0 {
				metrics.RedactionsTotal.WithLabelValues(metrics.HookSpan, metrics.KindPayload).Add(float64(res.Masked))
			}
			return res.Value, res.Value != value
		case redact.PayloadInvalid:
			// The value itself is never logged.
			metrics.RedactFailuresTotal.WithLabelValues(metrics.HookSpan, metrics.ReasonPayloadInvalid).Inc()
			p.logger.Warn("Nested span attribute is not valid JSON, left unmodified",
				slog.String(constants.ECSFieldRedactHook, metrics.HookSpan),
				slog.String(constants.ECSFieldRedactKey, key),
				slog.String(constants.ECSFieldSpanName, span),
				slog.String(constants.ECSFieldErrorMessage, res.Err.Error()),
			)
			return value, false
		}
	}

	masked, ok := p.policy.Mask(key, value)
	if !ok {
		return value, false
	}
	metrics.RedactionsTotal.WithLabelValues(metrics.HookSpan, kind).Inc()
	return masked, true
}
