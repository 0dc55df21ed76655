package app

import (
	"fmt"

	"cabdispatch/internal/config"
	"cabdispatch/internal/hooks"
	"cabdispatch/internal/logging"
)

// NewHookDispatcher builds the lifecycle hook pipeline. Confirmations and
// cancellations go to RabbitMQ, completions to the Kafka settlement topic,
// and every event is logged. Sinks without configuration are skipped.
func NewHookDispatcher(cfg *config.Config) (*hooks.Dispatcher, error) {
	log := logging.WithComponent("hooks")

	routes := []hooks.Route{
		{Sink: hooks.NewLogSink(log)},
	}

	if cfg.RabbitMQ.URL != "" {
		sink, err := hooks.NewRabbitMQSink(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		routes = append(routes, hooks.Route{
			Sink: sink,
			Types: []hooks.EventType{
				hooks.EventBookingConfirmed,
				hooks.EventBookingCancelled,
				hooks.EventBookingRejected,
			},
		})
		log.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("notification sink enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		routes = append(routes, hooks.Route{
			Sink:  hooks.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.SettlementTopic),
			Types: []hooks.EventType{hooks.EventBookingCompleted},
		})
		log.Info().Str("topic", cfg.Kafka.SettlementTopic).Msg("settlement sink enabled")
	}

	return hooks.NewDispatcher(hooks.DispatcherConfig{
		BufferSize:      cfg.Hooks.BufferSize,
		Workers:         cfg.Hooks.Workers,
		DeliveryTimeout: cfg.Hooks.DeliveryTimeout,
	}, log, routes...), nil
}
