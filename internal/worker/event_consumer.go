package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"medtree/internal/model"
	"medtree/internal/platform/logger"
	rabbitmqClient "medtree/internal/platform/rabbitmq"
)

const prefetch = 16

var tracer = otel.Tracer("medtree/worker")

// EventHandler processes one decoded event. A returned error drops the
// delivery without requeueing it.
type EventHandler func(ctx context.Context, event model.Event) error

// EventConsumer drains the domain event queue written by the API server. The
// queue must already exist; rabbitmq.New declares it.
type EventConsumer struct {
	conn      *amqp.Connection
	queueName string
	handle    EventHandler
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventConsumer(conn *amqp.Connection, queueName string, handle EventHandler, log *logger.Logger) *EventConsumer {
	return &EventConsumer{
		conn:      conn,
		queueName: queueName,
		handle:    handle,
		log:       log,
	}
}

func (w *EventConsumer) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, deliveries, err := w.openDeliveries()
	if err != nil {
		return err
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.drain(consumeCtx, deliveries)
	}()
	return nil
}

func (w *EventConsumer) openDeliveries() (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := w.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel failed: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set consumer qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s failed: %w", w.queueName, err)
	}
	return ch, deliveries, nil
}

func (w *EventConsumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				w.log.Warn("events delivery channel closed", "queue", w.queueName)
				return
			}
			w.process(ctx, d)
		}
	}
}

// process decodes one delivery and acks it only when the handler succeeds.
// The span continues the trace started by the publishing request.
func (w *EventConsumer) process(ctx context.Context, d amqp.Delivery) {
	if d.Headers != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, rabbitmqClient.HeaderCarrier(d.Headers))
	}
	ctx, span := tracer.Start(ctx, "events.consume", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", w.queueName),
		attribute.String("messaging.message.id", d.MessageId),
	)

	var event model.Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		span.SetStatus(codes.Error, "decode failed")
		w.log.Warn("decode event failed", "error", err, "message_id", d.MessageId, "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}
	if event.Type == "" {
		event.Type = d.Type
	}
	if event.SessionID == "" {
		event.SessionID = d.CorrelationId
	}
	span.SetAttributes(attribute.String("medtree.event.type", event.Type))

	if err := w.handle(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handle failed")
		w.log.Warn("handle event failed", "type", event.Type, "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *EventConsumer) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
