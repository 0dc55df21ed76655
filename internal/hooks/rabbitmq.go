package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpPublisher is the part of *amqp.Channel the sink uses.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQSink publishes notifications to a topic exchange. The routing key
// is the event type, e.g. "booking.confirmed".
type RabbitMQSink struct {
	exchange string

	mu     sync.Mutex
	closed bool
	url    string
	conn   *amqp.Connection
	ch     *amqp.Channel
	pub    amqpPublisher
}

// NewRabbitMQSink dials url and declares exchange as a durable topic exchange.
func NewRabbitMQSink(url, exchange string) (*RabbitMQSink, error) {
	s := &RabbitMQSink{url: url, exchange: exchange}
	if err := s.connect(); err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return s, nil
}

func newRabbitMQSinkWithPublisher(exchange string, pub amqpPublisher) *RabbitMQSink {
	return &RabbitMQSink{exchange: exchange, pub: pub}
}

func (s *RabbitMQSink) connect() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	s.conn, s.ch, s.pub = conn, ch, ch
	return nil
}

func (s *RabbitMQSink) Name() string { return "rabbitmq" }

// Deliver publishes one persistent message per notification the event produces.
func (s *RabbitMQSink) Deliver(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("rabbitmq sink is closed")
	}
	if s.conn != nil && s.conn.IsClosed() {
		if err := s.connect(); err != nil {
			return fmt.Errorf("reconnect to rabbitmq: %w", err)
		}
	}
	if s.pub == nil {
		return errors.New("rabbitmq sink is not connected")
	}

	for _, n := range NotificationsFor(e) {
		body, err := json.Marshal(n)
		if err != nil {
			return err
		}
		err = s.pub.PublishWithContext(ctx, s.exchange, string(e.Type), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish %s to %s: %w", e.Type, n.RecipientID, err)
		}
	}
	return nil
}

// Close closes the channel and the connection.
func (s *RabbitMQSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.pub = nil
	if s.ch != nil && !s.ch.IsClosed() {
		if err := s.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if s.conn != nil && !s.conn.IsClosed() {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
