// Package mq consumes integration events from RabbitMQ.
// When ordering accepts a checkout it publishes OrderStartedIntegrationEvent;
// the buyer's basket is deleted when the event arrives.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/logging"
	"github.com/eco2-team/backend/domains/basket/internal/metrics"
	"github.com/eco2-team/backend/domains/basket/internal/tracing"
)

const (
	// exchangeName is the direct exchange of the event bus.
	exchangeName = "eshop_event_bus"
	// exchangeType routes by event name.
	exchangeType = "direct"
	// EventOrderStarted is both the routing key and the event type.
	EventOrderStarted = "OrderStartedIntegrationEvent"
)

// OrderStartedIntegrationEvent is published by ordering when a checkout starts.
type OrderStartedIntegrationEvent struct {
	ID           string    `json:"Id"`
	UserID       string    `json:"UserId"`
	CreationDate time.Time `json:"CreationDate"`
}

// BasketDeleter is the part of the basket store the consumer needs.
type BasketDeleter interface {
	DeleteBasket(ctx context.Context, userID string) (bool, error)
}

// OrderStartedConsumer consumes OrderStartedIntegrationEvent from RabbitMQ.
type OrderStartedConsumer struct {
	amqpURL string
	queue   string
	baskets BasketDeleter
	logger  *logging.Logger
	done    chan struct{}
}

// NewOrderStartedConsumer creates a new OrderStartedConsumer.
func NewOrderStartedConsumer(amqpURL, queue string, baskets BasketDeleter, logger *logging.Logger) (*OrderStartedConsumer, error) {
	if baskets == nil {
		return nil, errors.New(constants.ErrStoreRequired)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OrderStartedConsumer{
		amqpURL: amqpURL,
		queue:   queue,
		baskets: baskets,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins consuming events from RabbitMQ.
// It will automatically reconnect on connection failure.
func (c *OrderStartedConsumer) Start() {
	go c.consumeLoop()
}

// Stop stops the consumer.
func (c *OrderStartedConsumer) Stop() {
	close(c.done)
}

// consumeLoop handles connection and reconnection to RabbitMQ.
func (c *OrderStartedConsumer) consumeLoop() {
	for {
		select {
		case <-c.done:
			c.logger.Info("MQ consumer stopped")
			return
		default:
			if err := c.connect(); err != nil {
				metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeAMQP).Inc()
				c.logger.Error("MQ connection failed",
					slog.String(constants.ECSFieldErrorMessage, err.Error()),
					slog.Duration("retry_in", constants.ReconnectDelay),
				)
				select {
				case <-c.done:
				case <-time.After(constants.ReconnectDelay):
				}
			}
		}
	}
}

// connect establishes a connection to RabbitMQ and consumes until the
// connection drops or the consumer is stopped.
func (c *OrderStartedConsumer) connect() error {
	conn, err := amqp.Dial(c.amqpURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		exchangeName, // name
		exchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return err
	}

	// Durable named queue so events survive restarts
	q, err := ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return err
	}

	err = ch.QueueBind(
		q.Name,            // queue name
		EventOrderStarted, // routing key
		exchangeName,      // exchange
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // arguments
	)
	if err != nil {
		return err
	}

	c.logger.Info("MQ consumer connected",
		slog.String("exchange", exchangeName),
		slog.String("queue", q.Name),
	)

	connClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-c.done:
			return nil
		case err := <-connClose:
			c.logger.Warn("MQ connection closed", slog.Any("error", err))
			return fmt.Errorf("amqp connection closed: %v", err)
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.deliver(msg)
		}
	}
}

// deliver handles one message and settles it. Malformed events are dropped;
// failed deletes are requeued.
func (c *OrderStartedConsumer) deliver(msg amqp.Delivery) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), headerCarrier(msg.Headers))

	err := c.HandleMessage(ctx, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errMalformedEvent):
		_ = msg.Nack(false, false)
	default:
		_ = msg.Nack(false, true)
	}
}

var errMalformedEvent = errors.New("malformed integration event")

// HandleMessage processes one OrderStartedIntegrationEvent body. The raw body
// is recorded on the span as messaging.payload; the span redaction hook masks
// the buyer id inside it before export.
func (c *OrderStartedConsumer) HandleMessage(ctx context.Context, body []byte) error {
	ctx, span := tracing.Tracer(constants.ServiceName).Start(ctx, EventOrderStarted+" receive",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String(constants.AttrEventType, EventOrderStarted),
			attribute.String(constants.AttrMessagingPayload, string(body)),
		),
	)
	defer span.End()

	logger := c.logger.WithContext(ctx)

	var event OrderStartedIntegrationEvent
	if err := json.Unmarshal(body, &event); err != nil || event.UserID == "" {
		if err == nil {
			err = errors.New(constants.ErrBasketUserRequired)
		}
		tracing.SetError(ctx, err, "invalid event")
		metrics.EventsConsumedTotal.WithLabelValues(EventOrderStarted, metrics.ResultFailure).Inc()
		logger.WarnContext(ctx, "Dropping malformed integration event",
			slog.String(constants.ECSFieldEventAction, constants.EventActionEventHandle),
			slog.Int("body.bytes", len(body)),
			slog.String(constants.ECSFieldErrorMessage, err.Error()),
		)
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	span.SetAttributes(
		attribute.String(constants.AttrEventID, event.ID),
		attribute.String(constants.AttrEventUserID, event.UserID),
	)

	logger.InfoContext(ctx, fmt.Sprintf("Handling integration event: %s - (%s)", event.ID, body),
		slog.String(constants.ECSFieldEventAction, constants.EventActionEventHandle),
	)

	if _, err := c.baskets.DeleteBasket(ctx, event.UserID); err != nil {
		tracing.SetError(ctx, err, "basket delete failed")
		metrics.EventsConsumedTotal.WithLabelValues(EventOrderStarted, metrics.ResultFailure).Inc()
		logger.ErrorContext(ctx, "Failed to delete basket for integration event",
			slog.String(constants.AttrEventID, event.ID),
			slog.String(constants.ECSFieldErrorMessage, err.Error()),
		)
		return err
	}

	metrics.EventsConsumedTotal.WithLabelValues(EventOrderStarted, metrics.ResultSuccess).Inc()
	return nil
}

// headerCarrier adapts AMQP headers to a propagation.TextMapCarrier.
type headerCarrier amqp.Table

func (h headerCarrier) Get(key string) string {
	if v, ok := h[key].(string); ok {
		return v
	}
	return ""
}

func (h headerCarrier) Set(key, value string) {
	h[key] = value
}

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
