package events

import (
	"context"
	"fmt"

	"rentavail/pkg/kafka"
	"rentavail/pkg/middleware"
)

const (
	EventRegenerated = "availability.regenerated"
	SchemaVersion    = "1"
)

const (
	ReasonScheduleSet     = "schedule_set"
	ReasonScheduleDeleted = "schedule_deleted"
	ReasonRuleSet         = "rule_set"
	ReasonRuleDeleted     = "rule_deleted"
	ReasonHorizonRolled   = "horizon_rolled"
)

// RegeneratedEvent announces a rebuilt property horizon. Dates lists the
// horizon dates that have at least one open slot.
type RegeneratedEvent struct {
	PropertyID   string   `json:"property_id"`
	Reason       string   `json:"reason"`
	HorizonStart string   `json:"horizon_start"`
	HorizonEnd   string   `json:"horizon_end"`
	Dates        []string `json:"dates"`
}

type Publisher interface {
	Publish(ctx context.Context, event RegeneratedEvent) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RegeneratedEvent) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by property id, so one property's
// events stay ordered on a single partition.
type KafkaPublisher struct {
	producer messageProducer
	source   string
}

func NewKafkaPublisher(producer messageProducer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event RegeneratedEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.PropertyID).
		WithValue(event).
		WithEventType(EventRegenerated).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", EventRegenerated, err)
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
