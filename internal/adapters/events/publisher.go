package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher is the broker-less fallback: notifications end up in the
// log stream instead of a Kafka topic. The runtime selects it when no brokers
// are configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error {
	p.logger.InfoContext(ctx, "notification published to log",
		"event_type", eventType,
		"thread_id", partitionKey,
		"payload", string(payload),
	)
	return nil
}
