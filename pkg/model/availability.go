package model

type RecurrencePattern string

const (
	PatternDaily        RecurrencePattern = "daily"
	PatternWeekdays     RecurrencePattern = "weekdays"
	PatternWeekends     RecurrencePattern = "weekends"
	PatternWeekly       RecurrencePattern = "weekly"
	PatternBiweekly     RecurrencePattern = "biweekly"
	PatternMonthly      RecurrencePattern = "monthly"
	PatternMonthlyFirst RecurrencePattern = "monthly_first"
	PatternMonthlyLast  RecurrencePattern = "monthly_last"
	PatternQuarterly    RecurrencePattern = "quarterly"
	PatternYearly       RecurrencePattern = "yearly"
)

var Patterns = []RecurrencePattern{
	PatternDaily,
	PatternWeekdays,
	PatternWeekends,
	PatternWeekly,
	PatternBiweekly,
	PatternMonthly,
	PatternMonthlyFirst,
	PatternMonthlyLast,
	PatternQuarterly,
	PatternYearly,
}

// NeedsDaysOfWeek reports whether the pattern selects days from DaysOfWeek.
func (p RecurrencePattern) NeedsDaysOfWeek() bool {
	return p == PatternWeekly || p == PatternBiweekly
}

// NeedsAnchor reports whether the pattern is measured from a start date.
func (p RecurrencePattern) NeedsAnchor() bool {
	return p == PatternBiweekly || p == PatternQuarterly || p == PatternYearly
}

func (p RecurrencePattern) IsMonthlyFamily() bool {
	switch p {
	case PatternMonthly, PatternMonthlyFirst, PatternMonthlyLast, PatternQuarterly, PatternYearly:
		return true
	}
	return false
}

type RuleType string

const (
	RuleBlackout     RuleType = "blackout"
	RuleSpecialHours RuleType = "special-hours"
	RuleHoliday      RuleType = "holiday"
)

type AvailabilityLevel string

const (
	LevelNone   AvailabilityLevel = "none"
	LevelLow    AvailabilityLevel = "low"
	LevelMedium AvailabilityLevel = "medium"
	LevelHigh   AvailabilityLevel = "high"
)

type TimeSlot struct {
	StartTime string   `json:"start_time" yaml:"start_time"`
	EndTime   string   `json:"end_time" yaml:"end_time"`
	Available bool     `json:"available" yaml:"available"`
	Price     *float64 `json:"price,omitempty" yaml:"price,omitempty"`
}

type RecurringSchedule struct {
	ID         string            `json:"id" yaml:"id" validate:"required,max=100"`
	PropertyID string            `json:"property_id" yaml:"property_id" validate:"required,max=100"`
	Pattern    RecurrencePattern `json:"pattern" yaml:"pattern" validate:"required,oneof=daily weekdays weekends weekly biweekly monthly monthly_first monthly_last quarterly yearly"`
	DaysOfWeek []int             `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty" validate:"omitempty,max=7,dive,min=0,max=6"`
	DayOfMonth *int              `json:"day_of_month,omitempty" yaml:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	StartTime  string            `json:"start_time" yaml:"start_time" validate:"required,clock"`
	EndTime    string            `json:"end_time" yaml:"end_time" validate:"required,clock"`
	Interval   int               `json:"interval" yaml:"interval" validate:"required,min=1,max=1440"`
	Priority   int               `json:"priority" yaml:"priority"`
	StartDate  string            `json:"start_date,omitempty" yaml:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string            `json:"end_date,omitempty" yaml:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Exceptions []string          `json:"exceptions,omitempty" yaml:"exceptions,omitempty" validate:"omitempty,dive,datetime=2006-01-02"`
	Price      *float64          `json:"price,omitempty" yaml:"price,omitempty" validate:"omitempty,gte=0"`
}

// AvailabilityRule is a one-off override. It covers Date, or the inclusive
// range Date..EndDate when EndDate is set.
type AvailabilityRule struct {
	ID          string   `json:"id" yaml:"id" validate:"required,max=100"`
	PropertyID  string   `json:"property_id" yaml:"property_id" validate:"required,max=100"`
	Type        RuleType `json:"type" yaml:"type" validate:"required,oneof=blackout special-hours holiday"`
	Date        string   `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"end_date,omitempty" yaml:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime   string   `json:"start_time,omitempty" yaml:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime     string   `json:"end_time,omitempty" yaml:"end_time,omitempty" validate:"omitempty,clock"`
	Priority    int      `json:"priority" yaml:"priority"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" validate:"omitempty,max=500"`
}

// Covers reports whether the rule applies to the ISO date.
func (r AvailabilityRule) Covers(date string) bool {
	if r.EndDate == "" {
		return r.Date == date
	}
	return r.Date <= date && date <= r.EndDate
}

type DailyAvailability struct {
	Date          string     `json:"date"`
	TimeSlots     []TimeSlot `json:"time_slots"`
	IsFullyBooked bool       `json:"is_fully_booked"`
	IsBlackout    bool       `json:"is_blackout"`
	IsHoliday     bool       `json:"is_holiday"`
}

func (d DailyAvailability) AvailableSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, len(d.TimeSlots))
	for _, s := range d.TimeSlots {
		if s.Available {
			slots = append(slots, s)
		}
	}
	return slots
}

type PropertyAvailability struct {
	PropertyID     string            `json:"property_id"`
	Date           string            `json:"date"`
	Level          AvailabilityLevel `json:"level"`
	AvailableSlots int               `json:"available_slots"`
	TotalSlots     int               `json:"total_slots"`
}
