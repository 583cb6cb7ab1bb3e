package kafka

import (
	"context"
	"time"

	"rentavail/pkg/logger"
)

func LoggingProducerMiddleware(log *logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg Message, next MessageHandler) error {
		start := time.Now()
		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
		}
		log.Debug("Publishing message", attrs...)

		err := next(ctx, msg)

		attrs = append(attrs, "duration", time.Since(start))
		if err != nil {
			log.Error("Failed to publish message", append(attrs, "error", err)...)
		} else {
			log.Debug("Published message", attrs...)
		}
		return err
	}
}

func LoggingConsumerMiddleware(log *logger.Logger) ConsumerMiddleware {
	return func(ctx context.Context, msg Message, next MessageHandler) error {
		start := time.Now()
		attrs := []any{
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
		}
		log.Debug("Processing message", attrs...)

		err := next(ctx, msg)

		attrs = append(attrs, "duration", time.Since(start))
		if err != nil {
			log.Warn("Failed to process message", append(attrs, "error", err)...)
		} else {
			log.Info("Processed message", attrs...)
		}
		return err
	}
}
