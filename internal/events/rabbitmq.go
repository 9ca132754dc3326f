package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"panchayat-connect/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends report events to the broker.
type Publisher interface {
	Publish(ctx context.Context, event models.ReportEvent) error
	Close()
}

// Handler processes one decoded event. A returned error drops the message.
type Handler func(ctx context.Context, event models.ReportEvent) error

// Consumer delivers report events to a Handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close()
}

type connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func dial(url, queue string) (*connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &connection{conn: conn, channel: ch, queue: queue}, nil
}

func (c *connection) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

type rabbitPublisher struct {
	*connection
}

func NewRabbitPublisher(url, queue string) (Publisher, error) {
	conn, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &rabbitPublisher{connection: conn}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, event models.ReportEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         string(event.Type),
			Body:         body,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

type rabbitConsumer struct {
	*connection
	logger *zap.Logger
}

func NewRabbitConsumer(url, queue string, logger *zap.Logger) (Consumer, error) {
	conn, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &rabbitConsumer{connection: conn, logger: logger}, nil
}

// Consume blocks until ctx is done or the delivery channel closes.
func (c *rabbitConsumer) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.ConsumeWithContext(ctx,
		c.queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.deliver(ctx, d, handler)
		}
	}
}

func (c *rabbitConsumer) deliver(ctx context.Context, d amqp.Delivery, handler Handler) {
	event, err := Decode(d.Body)
	if err != nil {
		c.logger.Error("Dropping malformed event", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, event); err != nil {
		c.logger.Error("Failed to handle event",
			zap.String("type", string(event.Type)),
			zap.String("tracking_id", event.TrackingID),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Decode parses a broker message body.
func Decode(body []byte) (models.ReportEvent, error) {
	var event models.ReportEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Type == "" || event.ReportID == "" {
		return event, fmt.Errorf("event is missing type or report_id")
	}
	return event, nil
}
