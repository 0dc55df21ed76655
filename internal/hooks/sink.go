package hooks

import (
	"context"

	"github.com/rs/zerolog"
)

// Sink delivers events to one outside system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
	Close() error
}

// LogSink writes notifications to the log. It is the default when no broker is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, e Event) error {
	for _, n := range NotificationsFor(e) {
		s.log.Info().
			Str("event_id", e.ID).
			Str("type", string(n.Type)).
			Str("recipient", n.RecipientID).
			Str("title", n.Title).
			Msg(n.Message)
	}
	if e.Type == EventBookingCompleted {
		s.log.Info().
			Str("event_id", e.ID).
			Str("booking_id", e.BookingID).
			Interface("fare", e.Fare).
			Msg("payment settlement requested")
	}
	return nil
}

func (s *LogSink) Close() error { return nil }
