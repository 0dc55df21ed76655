package hooks

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Settlement asks the payment system to charge a completed ride.
type Settlement struct {
	EventID     string    `json:"event_id"`
	BookingID   string    `json:"booking_id"`
	PassengerID string    `json:"passenger_id"`
	DriverID    string    `json:"driver_id"`
	VehicleID   string    `json:"vehicle_id"`
	Fare        *float64  `json:"fare,omitempty"`
	Distance    *float64  `json:"distance,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// KafkaSink publishes payment settlement requests keyed by booking ID,
// so every message for one booking lands on the same partition.
type KafkaSink struct {
	w messageWriter
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Deliver ignores every event except completion.
func (s *KafkaSink) Deliver(ctx context.Context, e Event) error {
	if e.Type != EventBookingCompleted {
		return nil
	}

	data, err := json.Marshal(Settlement{
		EventID:     e.ID,
		BookingID:   e.BookingID,
		PassengerID: e.PassengerID,
		DriverID:    e.DriverID,
		VehicleID:   e.VehicleID,
		Fare:        e.Fare,
		Distance:    e.Distance,
		CompletedAt: e.OccurredAt,
	})
	if err != nil {
		return err
	}

	return s.w.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(e.BookingID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
}

func (s *KafkaSink) Close() error { return s.w.Close() }
