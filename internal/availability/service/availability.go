package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"rentavail/internal/availability/calendar"
	availabilityerrors "rentavail/internal/availability/errors"
	"rentavail/internal/availability/events"
	"rentavail/internal/availability/recurrence"
	"rentavail/internal/availability/validator"
	"rentavail/pkg/config"
	"rentavail/pkg/dates"
	apperrors "rentavail/pkg/errors"
	"rentavail/pkg/model"
	"rentavail/pkg/sanitizer"
)

type AvailabilityService interface {
	UpsertSchedule(ctx context.Context, s *model.RecurringSchedule) error
	DeleteSchedule(ctx context.Context, propertyID, id string) error
	ListSchedules(ctx context.Context, propertyID string) ([]model.RecurringSchedule, error)

	UpsertRule(ctx context.Context, r *model.AvailabilityRule) error
	DeleteRule(ctx context.Context, propertyID, id string) error
	ListRules(ctx context.Context, propertyID string) ([]model.AvailabilityRule, error)

	GetDay(ctx context.Context, propertyID, date string, availableOnly bool) (*model.DailyAvailability, error)
	GetLevel(ctx context.Context, propertyID, date string) (model.PropertyAvailability, error)
	GetRange(ctx context.Context, propertyID, from, to string) ([]model.DailyAvailability, error)
	IsSlotAvailable(ctx context.Context, propertyID, date, startTime string) (bool, error)
	NextAvailable(ctx context.Context, propertyID, from string) (string, error)

	Preview(ctx context.Context, req *PreviewRequest) ([]string, error)
	Calendar(ctx context.Context, propertyID string) ([]byte, error)
	RollHorizon(ctx context.Context) error
}

// Store is the availability cache the service drives.
type Store interface {
	Today() time.Time
	Horizon() (string, string)
	SetRecurringSchedule(s model.RecurringSchedule) error
	SetAvailabilityRule(r model.AvailabilityRule) error
	DeleteRecurringSchedule(propertyID, id string) bool
	DeleteAvailabilityRule(propertyID, id string) bool
	GetAvailability(propertyID, date string) mo.Option[model.DailyAvailability]
	GetAvailabilityLevel(propertyID, date string) model.PropertyAvailability
	FindNextAvailableDate(propertyID, start string) mo.Option[string]
	AvailabilityRange(propertyID, from, to string) ([]model.DailyAvailability, error)
	IsTimeSlotAvailable(propertyID, date, startTime string) bool
	Schedules(propertyID string) []model.RecurringSchedule
	Rules(propertyID string) []model.AvailabilityRule
	Properties() []string
	RegenerateAll(ctx context.Context) error
}

type ScheduleValidator interface {
	ValidateSchedule(s *model.RecurringSchedule) error
}

// PreviewRequest asks which dates a pattern covers in [From, To], without
// storing anything.
type PreviewRequest struct {
	Pattern    model.RecurrencePattern `json:"pattern"`
	DaysOfWeek []int                   `json:"days_of_week,omitempty"`
	DayOfMonth *int                    `json:"day_of_month,omitempty"`
	StartDate  string                  `json:"start_date,omitempty"`
	Exceptions []string                `json:"exceptions,omitempty"`
	From       string                  `json:"from"`
	To         string                  `json:"to"`
}

type availabilityService struct {
	store     Store
	validator ScheduleValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewAvailabilityService(
	store Store,
	validator ScheduleValidator,
	publisher events.Publisher,
	cfg *config.Config,
) AvailabilityService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &availabilityService{
		store:     store,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *availabilityService) UpsertSchedule(ctx context.Context, sc *model.RecurringSchedule) error {
	if sc == nil {
		return apperrors.InvalidInput("Schedule cannot be empty")
	}
	sanitizer.SanitizeSchedule(sc)
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}

	if err := s.store.SetRecurringSchedule(*sc); err != nil {
		s.cfg.Log.Warn("Schedule rejected",
			"id", sc.ID,
			"property_id", sc.PropertyID,
			"pattern", sc.Pattern,
			"error", err,
		)
		return s.mutationError(err, "Schedule validation failed")
	}

	s.cfg.Log.Info("Schedule saved",
		"id", sc.ID,
		"property_id", sc.PropertyID,
		"pattern", sc.Pattern,
		"priority", sc.Priority,
	)
	s.publish(ctx, sc.PropertyID, events.ReasonScheduleSet)
	return nil
}

func (s *availabilityService) DeleteSchedule(ctx context.Context, propertyID, id string) error {
	propertyID, id = sanitizer.NormalizeID(propertyID), sanitizer.NormalizeID(id)
	if propertyID == "" || id == "" {
		return apperrors.InvalidInput("Property ID and schedule ID are required")
	}
	if !s.store.DeleteRecurringSchedule(propertyID, id) {
		return apperrors.NotFoundWithID("Schedule", id)
	}

	s.cfg.Log.Info("Schedule deleted", "id", id, "property_id", propertyID)
	s.publish(ctx, propertyID, events.ReasonScheduleDeleted)
	return nil
}

func (s *availabilityService) ListSchedules(_ context.Context, propertyID string) ([]model.RecurringSchedule, error) {
	propertyID = sanitizer.NormalizeID(propertyID)
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}
	return s.store.Schedules(propertyID), nil
}

func (s *availabilityService) UpsertRule(ctx context.Context, r *model.AvailabilityRule) error {
	if r == nil {
		return apperrors.InvalidInput("Rule cannot be empty")
	}
	sanitizer.SanitizeRule(r)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	if err := s.store.SetAvailabilityRule(*r); err != nil {
		s.cfg.Log.Warn("Rule rejected",
			"id", r.ID,
			"property_id", r.PropertyID,
			"type", r.Type,
			"error", err,
		)
		return s.mutationError(err, "Rule validation failed")
	}

	s.cfg.Log.Info("Rule saved",
		"id", r.ID,
		"property_id", r.PropertyID,
		"type", r.Type,
		"date", r.Date,
		"end_date", r.EndDate,
	)
	s.publish(ctx, r.PropertyID, events.ReasonRuleSet)
	return nil
}

func (s *availabilityService) DeleteRule(ctx context.Context, propertyID, id string) error {
	propertyID, id = sanitizer.NormalizeID(propertyID), sanitizer.NormalizeID(id)
	if propertyID == "" || id == "" {
		return apperrors.InvalidInput("Property ID and rule ID are required")
	}
	if !s.store.DeleteAvailabilityRule(propertyID, id) {
		return apperrors.NotFoundWithID("Rule", id)
	}

	s.cfg.Log.Info("Rule deleted", "id", id, "property_id", propertyID)
	s.publish(ctx, propertyID, events.ReasonRuleDeleted)
	return nil
}

func (s *availabilityService) ListRules(_ context.Context, propertyID string) ([]model.AvailabilityRule, error) {
	propertyID = sanitizer.NormalizeID(propertyID)
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}
	return s.store.Rules(propertyID), nil
}

func (s *availabilityService) GetDay(_ context.Context, propertyID, date string, availableOnly bool) (*model.DailyAvailability, error) {
	propertyID, date = sanitizer.NormalizeID(propertyID), sanitizer.NormalizeDate(date)
	if !dates.IsDate(date) {
		return nil, apperrors.InvalidInput(availabilityerrors.ErrInvalidDate.Error())
	}

	day, ok := s.store.GetAvailability(propertyID, date).Get()
	if !ok {
		return nil, apperrors.NotFound("Availability").WithDetails(map[string]any{
			"property_id": propertyID,
			"date":        date,
		})
	}
	if availableOnly {
		day.TimeSlots = day.AvailableSlots()
	}
	return &day, nil
}

func (s *availabilityService) GetLevel(_ context.Context, propertyID, date string) (model.PropertyAvailability, error) {
	propertyID, date = sanitizer.NormalizeID(propertyID), sanitizer.NormalizeDate(date)
	if !dates.IsDate(date) {
		return model.PropertyAvailability{}, apperrors.InvalidInput(availabilityerrors.ErrInvalidDate.Error())
	}
	return s.store.GetAvailabilityLevel(propertyID, date), nil
}

func (s *availabilityService) GetRange(_ context.Context, propertyID, from, to string) ([]model.DailyAvailability, error) {
	propertyID = sanitizer.NormalizeID(propertyID)
	from, to = sanitizer.NormalizeDate(from), sanitizer.NormalizeDate(to)
	if from == "" {
		from = dates.Format(s.store.Today())
	}
	if to == "" {
		_, to = s.store.Horizon()
	}
	if from > to {
		return nil, apperrors.InvalidInput("'from' must not be after 'to'")
	}

	days, err := s.store.AvailabilityRange(propertyID, from, to)
	if err != nil {
		if errors.Is(err, availabilityerrors.ErrInvalidDate) {
			return nil, apperrors.InvalidInput(availabilityerrors.ErrInvalidDate.Error())
		}
		return nil, apperrors.Internal("Failed to read availability range", err)
	}
	return days, nil
}

func (s *availabilityService) IsSlotAvailable(_ context.Context, propertyID, date, startTime string) (bool, error) {
	propertyID, date = sanitizer.NormalizeID(propertyID), sanitizer.NormalizeDate(date)
	startTime = sanitizer.NormalizeClock(startTime)
	if !dates.IsDate(date) {
		return false, apperrors.InvalidInput(availabilityerrors.ErrInvalidDate.Error())
	}
	if !dates.IsClock(startTime) {
		return false, apperrors.InvalidInput(availabilityerrors.ErrInvalidTime.Error())
	}
	return s.store.IsTimeSlotAvailable(propertyID, date, startTime), nil
}

func (s *availabilityService) NextAvailable(_ context.Context, propertyID, from string) (string, error) {
	propertyID, from = sanitizer.NormalizeID(propertyID), sanitizer.NormalizeDate(from)
	if from == "" {
		from = dates.Format(s.store.Today())
	}
	if !dates.IsDate(from) {
		return "", apperrors.InvalidInput(availabilityerrors.ErrInvalidDate.Error())
	}

	date, ok := s.store.FindNextAvailableDate(propertyID, from).Get()
	if !ok {
		return "", apperrors.NotFound("Available date").WithDetails(map[string]any{
			"property_id": propertyID,
			"from":        from,
		})
	}
	return date, nil
}

func (s *availabilityService) Preview(_ context.Context, req *PreviewRequest) ([]string, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Preview request cannot be empty")
	}

	probe := model.RecurringSchedule{
		ID:         "preview",
		PropertyID: "preview",
		Pattern:    req.Pattern,
		DaysOfWeek: req.DaysOfWeek,
		DayOfMonth: req.DayOfMonth,
		StartTime:  "00:00",
		EndTime:    "23:59",
		Interval:   60,
		StartDate:  req.StartDate,
		Exceptions: req.Exceptions,
	}
	sanitizer.SanitizeSchedule(&probe)
	if err := s.validator.ValidateSchedule(&probe); err != nil {
		return nil, s.mutationError(err, "Pattern validation failed")
	}

	from, err := dates.Parse(sanitizer.NormalizeDate(req.From))
	if err != nil {
		return nil, apperrors.InvalidInput("'from' " + availabilityerrors.ErrInvalidDate.Error())
	}
	to, err := dates.Parse(sanitizer.NormalizeDate(req.To))
	if err != nil {
		return nil, apperrors.InvalidInput("'to' " + availabilityerrors.ErrInvalidDate.Error())
	}

	rule := recurrence.RuleFromSchedule(probe)
	if !rule.Anchor.IsZero() && rule.Anchor.After(from) {
		from = rule.Anchor
	}

	matches := recurrence.Expand(rule, from, to, probe.Exceptions)
	out := make([]string, len(matches))
	for i, d := range matches {
		out[i] = dates.Format(d)
	}
	return out, nil
}

func (s *availabilityService) Calendar(_ context.Context, propertyID string) ([]byte, error) {
	propertyID = sanitizer.NormalizeID(propertyID)
	start, end := s.store.Horizon()

	days, err := s.store.AvailabilityRange(propertyID, start, end)
	if err != nil {
		return nil, apperrors.Internal("Failed to read availability range", err)
	}

	cal, err := calendar.Build(calendar.Feed{
		PropertyID: propertyID,
		Schedules:  s.store.Schedules(propertyID),
		Days:       days,
		From:       s.store.Today(),
		Generated:  time.Now(),
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to build calendar", err)
	}
	if len(cal.Children) == 0 {
		return nil, apperrors.NotFoundWithID("Calendar", propertyID)
	}

	data, err := calendar.Encode(cal)
	if err != nil {
		s.cfg.Log.Error("Failed to encode calendar", "property_id", propertyID, "error", err)
		return nil, apperrors.Internal("Failed to encode calendar", err)
	}
	return data, nil
}

func (s *availabilityService) RollHorizon(ctx context.Context) error {
	if err := s.store.RegenerateAll(ctx); err != nil {
		s.cfg.Log.Error("Failed to roll availability horizon", "error", err)
		return apperrors.Internal("Failed to roll availability horizon", err)
	}
	for _, id := range s.store.Properties() {
		s.publish(ctx, id, events.ReasonHorizonRolled)
	}
	return nil
}

// publish announces a committed change. Failures are logged only; the cache
// already holds the new state.
func (s *availabilityService) publish(ctx context.Context, propertyID, reason string) {
	start, end := s.store.Horizon()
	event := events.RegeneratedEvent{
		PropertyID:   propertyID,
		Reason:       reason,
		HorizonStart: start,
		HorizonEnd:   end,
		Dates:        []string{},
	}

	days, err := s.store.AvailabilityRange(propertyID, start, end)
	if err == nil {
		for _, day := range days {
			if len(day.AvailableSlots()) > 0 {
				event.Dates = append(event.Dates, day.Date)
			}
		}
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.ForProperty(propertyID).Error("Failed to publish availability event",
			"reason", reason,
			"error", err,
		)
	}
}

func (s *availabilityService) mutationError(err error, message string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	if errors.Is(err, availabilityerrors.ErrInvalidSchedule) || errors.Is(err, availabilityerrors.ErrInvalidRule) {
		return apperrors.Validation(message, map[string]any{"error": err.Error()})
	}
	return apperrors.Internal("Failed to save availability", err)
}
