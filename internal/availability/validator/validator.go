package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"rentavail/pkg/dates"
	"rentavail/pkg/logger"
	"rentavail/pkg/model"
)

const (
	tagClock       = "clock"
	tagTimeOrder   = "time_order"
	tagDateOrder   = "date_order"
	tagPatternNeed = "required_for_pattern"
	tagTypeNeed    = "required_for_type"
	tagIntervalFit = "interval_fits_window"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details returns the errors keyed by field, for API error payloads.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		if prev, ok := details[err.Field]; ok {
			details[err.Field] = fmt.Sprintf("%v; %s", prev, err.Message)
			continue
		}
		details[err.Field] = err.Message
	}
	return details
}

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation(tagClock, validateClock); err != nil {
		log.Fatal("Failed to register 'clock' validator", "error", err)
	}

	v.RegisterStructValidation(validateSchedule, model.RecurringSchedule{})
	v.RegisterStructValidation(validateRule, model.AvailabilityRule{})

	log.Debug("Availability validator initialized")

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

func validateClock(fl validator.FieldLevel) bool {
	return dates.IsClock(fl.Field().String())
}

func validateSchedule(sl validator.StructLevel) {
	s := sl.Current().Interface().(model.RecurringSchedule)

	if start, end, ok := clockWindow(s.StartTime, s.EndTime); ok {
		switch {
		case start >= end:
			sl.ReportError(s.EndTime, "end_time", "EndTime", tagTimeOrder, "start_time")
		case s.Interval > 0 && s.Interval > end-start:
			sl.ReportError(s.Interval, "interval", "Interval", tagIntervalFit, fmt.Sprint(end-start))
		}
	}
	if s.StartDate != "" && s.EndDate != "" && dates.IsDate(s.StartDate) && dates.IsDate(s.EndDate) && s.EndDate < s.StartDate {
		sl.ReportError(s.EndDate, "end_date", "EndDate", tagDateOrder, "start_date")
	}

	if s.Pattern.NeedsDaysOfWeek() && len(s.DaysOfWeek) == 0 {
		sl.ReportError(s.DaysOfWeek, "days_of_week", "DaysOfWeek", tagPatternNeed, string(s.Pattern))
	}
	if s.Pattern.NeedsAnchor() && s.StartDate == "" {
		sl.ReportError(s.StartDate, "start_date", "StartDate", tagPatternNeed, string(s.Pattern))
	}
	if s.Pattern == model.PatternMonthly && s.DayOfMonth == nil && s.StartDate == "" {
		sl.ReportError(s.DayOfMonth, "day_of_month", "DayOfMonth", tagPatternNeed, string(s.Pattern))
	}
}

func validateRule(sl validator.StructLevel) {
	r := sl.Current().Interface().(model.AvailabilityRule)

	if r.Type == model.RuleSpecialHours {
		if r.StartTime == "" {
			sl.ReportError(r.StartTime, "start_time", "StartTime", tagTypeNeed, string(r.Type))
		}
		if r.EndTime == "" {
			sl.ReportError(r.EndTime, "end_time", "EndTime", tagTypeNeed, string(r.Type))
		}
	}
	if start, end, ok := clockWindow(r.StartTime, r.EndTime); ok && start >= end {
		sl.ReportError(r.EndTime, "end_time", "EndTime", tagTimeOrder, "start_time")
	}
	if r.EndDate != "" && dates.IsDate(r.Date) && dates.IsDate(r.EndDate) && r.EndDate < r.Date {
		sl.ReportError(r.EndDate, "end_date", "EndDate", tagDateOrder, "date")
	}
}

// clockWindow parses both ends in minutes since midnight. ok is false when
// either value is not a valid clock, leaving that to the field tags.
func clockWindow(start, end string) (int, int, bool) {
	s, err := dates.ParseClock(start)
	if err != nil {
		return 0, 0, false
	}
	e, err := dates.ParseClock(end)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}

func (v *AvailabilityValidator) ValidateSchedule(s *model.RecurringSchedule) error {
	return v.validateStruct(s)
}

func (v *AvailabilityValidator) ValidateRule(r *model.AvailabilityRule) error {
	return v.validateStruct(r)
}

func (v *AvailabilityValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AvailabilityValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must not be negative", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case tagClock:
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", err.Field())
		case tagTimeOrder:
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case tagDateOrder:
			message = fmt.Sprintf("%s must not be before %s", err.Field(), err.Param())
		case tagPatternNeed:
			message = fmt.Sprintf("%s is required for pattern %s", err.Field(), err.Param())
		case tagIntervalFit:
			message = fmt.Sprintf("%s must not exceed the %s minute window", err.Field(), err.Param())
		case tagTypeNeed:
			message = fmt.Sprintf("%s is required for %s rules", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   namespaceField(err),
			Message: message,
		})
	}

	return validationErrors
}

// namespaceField keeps the element index for slice items, e.g. days_of_week[2].
func namespaceField(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}
