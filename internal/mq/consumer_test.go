package mq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/eco2-team/backend/domains/basket/internal/logging"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
	"github.com/eco2-team/backend/domains/basket/internal/tracing"
)

const testUserID = "6f1c2d9e-7a41-4c55-9a0b-3e2f11d0c8aa"

var maskedUserID = "6f1" + strings.Repeat("*", 33)

type fakeDeleter struct {
	calls []string
	err   error
}

func (f *fakeDeleter) DeleteBasket(ctx context.Context, userID string) (bool, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

// newTracedConsumer installs a global tracer provider whose spans pass
// through the redaction processor into an in-memory exporter.
func newTracedConsumer(t *testing.T, deleter *fakeDeleter) (*OrderStartedConsumer, *tracetest.InMemoryExporter, *bytes.Buffer) {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	rp, err := tracing.NewRedactionProcessor(redact.DefaultPolicy(), sdktrace.NewSimpleSpanProcessor(exp), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("NewRedactionProcessor error: %v", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rp))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	var buf bytes.Buffer
	logger := logging.New(&logging.Config{Level: logging.LevelDebug, Output: &buf, Environment: "test"})

	c, err := NewOrderStartedConsumer("amqp://unused", "basket.test", deleter, logger)
	if err != nil {
		t.Fatalf("NewOrderStartedConsumer error: %v", err)
	}
	return c, exp, &buf
}

func spanAttrs(t *testing.T, exp *tracetest.InMemoryExporter) map[attribute.Key]attribute.Value {
	t.Helper()
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestNewOrderStartedConsumer_RequiresStore(t *testing.T) {
	if _, err := NewOrderStartedConsumer("amqp://unused", "q", nil, nil); err == nil {
		t.Fatalf("expected error when store is nil")
	}
}

func TestOrderStartedIntegrationEvent_JSONParsing(t *testing.T) {
	var event OrderStartedIntegrationEvent
	body := `{"Id":"3f0e","UserId":"` + testUserID + `","CreationDate":"2024-10-01T12:00:00Z"}`
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if event.ID != "3f0e" || event.UserID != testUserID {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.CreationDate.Year() != 2024 {
		t.Errorf("CreationDate: got %v", event.CreationDate)
	}
}

func TestHandleMessage_DeletesBasketAndRedactsTelemetry(t *testing.T) {
	deleter := &fakeDeleter{}
	c, exp, logs := newTracedConsumer(t, deleter)

	body := `{"Id":"42","UserId":"` + testUserID + `"}`
	if err := c.HandleMessage(context.Background(), []byte(body)); err != nil {
		t.Fatalf("HandleMessage error: %v", err)
	}

	if len(deleter.calls) != 1 || deleter.calls[0] != testUserID {
		t.Fatalf("unexpected delete calls: %v", deleter.calls)
	}

	attrs := spanAttrs(t, exp)
	if got := attrs["event.userId"].AsString(); got != maskedUserID {
		t.Errorf("event.userId: expected %s, got %s", maskedUserID, got)
	}
	if got := attrs["event.id"].AsString(); got != "42" {
		t.Errorf("event.id: expected 42, got %s", got)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(attrs["messaging.payload"].AsString()), &payload); err != nil {
		t.Fatalf("messaging.payload is not valid JSON: %v", err)
	}
	if payload["UserId"] != maskedUserID || payload["Id"] != "42" {
		t.Errorf("unexpected payload: %v", payload)
	}

	out := logs.String()
	if strings.Contains(out, testUserID) {
		t.Errorf("user id leaked to local log: %s", out)
	}
	if !strings.Contains(out, "Handling integration event: 42") {
		t.Errorf("expected handling log, got: %s", out)
	}
}

func TestHandleMessage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{invalid`},
		{name: "missing user id", body: `{"Id":"42"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleter := &fakeDeleter{}
			c, exp, _ := newTracedConsumer(t, deleter)

			err := c.HandleMessage(context.Background(), []byte(tt.body))
			if !errors.Is(err, errMalformedEvent) {
				t.Fatalf("expected errMalformedEvent, got %v", err)
			}
			if len(deleter.calls) != 0 {
				t.Errorf("basket should not be deleted: %v", deleter.calls)
			}
			if got := spanAttrs(t, exp)["messaging.payload"].AsString(); got != tt.body {
				t.Errorf("payload should be untouched, got %s", got)
			}
		})
	}
}

func TestHandleMessage_DeleteError(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("redis down")}
	c, _, _ := newTracedConsumer(t, deleter)

	err := c.HandleMessage(context.Background(), []byte(`{"Id":"1","UserId":"u-1"}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, errMalformedEvent) {
		t.Errorf("delete failures must be retried, not dropped")
	}
}

func TestHeaderCarrier(t *testing.T) {
	h := headerCarrier(amqp.Table{"b3": "abc-def-1", "x-retry": int32(2)})

	if got := h.Get("b3"); got != "abc-def-1" {
		t.Errorf("Get(b3): got %q", got)
	}
	if got := h.Get("x-retry"); got != "" {
		t.Errorf("non-string header should read as empty, got %q", got)
	}

	h.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	if got := h.Get("traceparent"); got == "" {
		t.Errorf("Set did not store traceparent")
	}
	if len(h.Keys()) != 3 {
		t.Errorf("Keys: expected 3, got %v", h.Keys())
	}

	var empty headerCarrier
	if got := empty.Get("b3"); got != "" {
		t.Errorf("nil carrier Get: got %q", got)
	}
}

func TestStartStop(t *testing.T) {
	c, err := NewOrderStartedConsumer("amqp://127.0.0.1:1/", "q", &fakeDeleter{}, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("NewOrderStartedConsumer error: %v", err)
	}
	c.Start()
	c.Stop()
}
