package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/metrics"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
)

// RedactionProcessor masks log records in place. It must be registered
// before the batch processor so the exporter sees the masked record:
//
//	sdklog.WithProcessor(redactor), sdklog.WithProcessor(batcher)
//
// The body is scanned for the first sensitive "name:value" pair; a body with
// nothing to mask is left exactly as it was. String attributes are masked by
// key. OnEmit never returns an error.
type RedactionProcessor struct {
	masker masker
	logger *Logger
}

// masker is the part of redact.Policy the processor uses.
type masker interface {
	Mask(field, value string) (string, bool)
	MaskPairs(text string) (string, bool)
}

var _ sdklog.Processor = (*RedactionProcessor)(nil)

// NewRedactionProcessor returns a processor using policy. logger receives hook
// failures; it must write locally, never into the OTel log pipeline.
func NewRedactionProcessor(policy *redact.Policy, logger *Logger) (*RedactionProcessor, error) {
	if policy == nil {
		return nil, errors.New(constants.ErrPolicyRequired)
	}
	if logger == nil {
		logger = New(&Config{Level: LevelWarn, Policy: policy, Environment: constants.DefaultEnvironment})
	}
	return &RedactionProcessor{masker: policy, logger: logger}, nil
}

// OnEmit redacts record. A panic while masking is logged and the record is
// passed on unchanged.
func (p *RedactionProcessor) OnEmit(_ context.Context, record *sdklog.Record) error {
	if record == nil {
		return nil
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RedactFailuresTotal.WithLabelValues(metrics.HookLog, metrics.ReasonPanic).Inc()
			p.logger.Error("Log redaction failed, exporting unmodified record",
				slog.String(constants.ECSFieldRedactHook, metrics.HookLog),
				slog.String(constants.ECSFieldEventAction, constants.EventActionRedact),
				slog.String(constants.ECSFieldEventOutcome, constants.EventOutcomeFailure),
				slog.String(constants.ECSFieldErrorMessage, fmt.Sprint(r)),
			)
		}
		metrics.RedactDuration.WithLabelValues(metrics.HookLog).Observe(time.Since(start).Seconds())
	}()

	p.redactBody(record)
	p.redactAttributes(record)
	return nil
}

func (p *RedactionProcessor) redactBody(record *sdklog.Record) {
	body := record.Body()
	if body.Kind() != otellog.KindString {
		return
	}
	text := body.AsString()
	if text == "" {
		return
	}
	if masked, ok := p.masker.MaskPairs(text); ok {
		record.SetBody(otellog.StringValue(masked))
		metrics.RedactionsTotal.WithLabelValues(metrics.HookLog, metrics.KindBody).Inc()
	}
}

func (p *RedactionProcessor) redactAttributes(record *sdklog.Record) {
	if record.AttributesLen() == 0 {
		return
	}

	attrs := make([]otellog.KeyValue, 0, record.AttributesLen())
	changed := false
	record.WalkAttributes(func(kv otellog.KeyValue) bool {
		if kv.Value.Kind() == otellog.KindString {
			if masked, ok := p.masker.Mask(kv.Key, kv.Value.AsString()); ok {
				kv = otellog.String(kv.Key, masked)
				changed = true
				metrics.RedactionsTotal.WithLabelValues(metrics.HookLog, metrics.KindAttribute).Inc()
			}
		}
		attrs = append(attrs, kv)
		return true
	})
	if changed {
		record.SetAttributes(attrs...)
	}
}

// Enabled always reports true; redaction never drops records.
func (p *RedactionProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool {
	return true
}

// Shutdown is a no-op; the processor holds no resources.
func (p *RedactionProcessor) Shutdown(context.Context) error {
	return nil
}

// ForceFlush is a no-op; records are redacted synchronously.
func (p *RedactionProcessor) ForceFlush(context.Context) error {
	return nil
}
