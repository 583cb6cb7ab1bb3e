package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "rentavail/pkg/errors"
	"rentavail/pkg/kafka"
	"rentavail/pkg/logger"
	"rentavail/pkg/middleware"
	"rentavail/pkg/model"
)

const (
	CommandScheduleUpsert = "schedule.upsert"
	CommandScheduleDelete = "schedule.delete"
	CommandRuleUpsert     = "rule.upsert"
	CommandRuleDelete     = "rule.delete"
)

// Command is the payload of the commands topic. The type comes from the
// event-type header, falling back to the Type field.
type Command struct {
	Type       string                   `json:"type,omitempty"`
	PropertyID string                   `json:"property_id,omitempty"`
	ID         string                   `json:"id,omitempty"`
	Schedule   *model.RecurringSchedule `json:"schedule,omitempty"`
	Rule       *model.AvailabilityRule  `json:"rule,omitempty"`
}

// Applier is the write side of the availability service.
type Applier interface {
	UpsertSchedule(ctx context.Context, s *model.RecurringSchedule) error
	DeleteSchedule(ctx context.Context, propertyID, id string) error
	UpsertRule(ctx context.Context, r *model.AvailabilityRule) error
	DeleteRule(ctx context.Context, propertyID, id string) error
}

type CommandConsumer struct {
	applier Applier
	log     *logger.Logger
}

func NewCommandConsumer(applier Applier, log *logger.Logger) *CommandConsumer {
	return &CommandConsumer{applier: applier, log: log}
}

// Handle is a kafka.MessageHandler. Malformed and rejected commands come back
// as non-retryable errors so the consumer dead-letters them; deleting
// something already gone counts as done.
func (c *CommandConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var cmd Command
	if err := msg.DecodeValue(&cmd); err != nil {
		return err
	}
	if t := msg.GetEventType(); t != "" {
		cmd.Type = t
	}
	ctx = middleware.WithRequestID(ctx, msg.GetCorrelationID())

	err := c.apply(ctx, cmd)
	if err == nil {
		return nil
	}

	var kafkaErr *kafka.KafkaError
	if errors.As(err, &kafkaErr) {
		return err
	}
	if !apperrors.IsAppError(err) {
		return kafka.NewTransientError("apply command", err)
	}

	appErr := apperrors.AsAppError(err)
	switch {
	case appErr.StatusCode() == http.StatusNotFound && isDelete(cmd.Type):
		c.log.Info("Delete command for missing entity ignored",
			"type", cmd.Type,
			"property_id", cmd.PropertyID,
			"id", cmd.ID,
		)
		return nil
	case appErr.StatusCode() < http.StatusInternalServerError:
		return kafka.NewBusinessError(fmt.Sprintf("command %s rejected", cmd.Type), err)
	default:
		return kafka.NewTransientError(fmt.Sprintf("command %s failed", cmd.Type), err)
	}
}

func (c *CommandConsumer) apply(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandScheduleUpsert:
		if cmd.Schedule == nil {
			return kafka.NewPermanentError("invalid message", errors.New("schedule.upsert without schedule"))
		}
		return c.applier.UpsertSchedule(ctx, cmd.Schedule)
	case CommandRuleUpsert:
		if cmd.Rule == nil {
			return kafka.NewPermanentError("invalid message", errors.New("rule.upsert without rule"))
		}
		return c.applier.UpsertRule(ctx, cmd.Rule)
	case CommandScheduleDelete:
		return c.applier.DeleteSchedule(ctx, cmd.PropertyID, cmd.ID)
	case CommandRuleDelete:
		return c.applier.DeleteRule(ctx, cmd.PropertyID, cmd.ID)
	default:
		return kafka.NewPermanentError("invalid message", fmt.Errorf("unknown command type %q", cmd.Type))
	}
}

func isDelete(t string) bool {
	return t == CommandScheduleDelete || t == CommandRuleDelete
}
