package recurrence

import (
	"slices"
	"time"

	"rentavail/pkg/dates"
	"rentavail/pkg/model"
)

// Rule is the pattern part of a schedule, detached from its time window.
// Anchor is the date biweekly parity, quarterly steps and yearly/monthly days
// are measured from.
type Rule struct {
	Pattern    model.RecurrencePattern
	DaysOfWeek []int
	DayOfMonth *int
	Anchor     time.Time
}

// RuleFromSchedule builds a Rule anchored on the schedule's StartDate. An
// unparseable or absent StartDate leaves the anchor zero.
func RuleFromSchedule(s model.RecurringSchedule) Rule {
	r := Rule{
		Pattern:    s.Pattern,
		DaysOfWeek: s.DaysOfWeek,
		DayOfMonth: s.DayOfMonth,
	}
	if s.StartDate != "" {
		if anchor, err := dates.Parse(s.StartDate); err == nil {
			r.Anchor = anchor
		}
	}
	return r
}

func (r Rule) hasWeekday(dow int) bool {
	return slices.Contains(r.DaysOfWeek, dow)
}

func (r Rule) monthDay() (int, bool) {
	if r.DayOfMonth != nil {
		return *r.DayOfMonth, true
	}
	if r.Anchor.IsZero() {
		return 0, false
	}
	return r.Anchor.Day(), true
}

// Matches reports whether date falls on the rule's pattern. It does not look
// at schedule validity bounds or exceptions.
func Matches(r Rule, date time.Time) bool {
	date = dates.Civil(date)
	dow := int(date.Weekday())

	switch r.Pattern {
	case model.PatternDaily:
		return true

	case model.PatternWeekdays:
		return dow >= 1 && dow <= 5

	case model.PatternWeekends:
		return dow == 0 || dow == 6

	case model.PatternWeekly:
		return r.hasWeekday(dow)

	case model.PatternBiweekly:
		if r.Anchor.IsZero() || !r.hasWeekday(dow) {
			return false
		}
		weeks := dates.FloorDiv(dates.DaysBetween(r.Anchor, date), 7)
		return dates.Mod(weeks, 2) == 0

	case model.PatternMonthly:
		day, ok := r.monthDay()
		return ok && date.Day() == day

	case model.PatternMonthlyFirst:
		return date.Day() == 1

	case model.PatternMonthlyLast:
		return dates.IsLastDayOfMonth(date)

	case model.PatternQuarterly:
		if r.Anchor.IsZero() {
			return false
		}
		return dates.Mod(dates.MonthsBetween(r.Anchor, date), 3) == 0 && date.Day() == r.Anchor.Day()

	case model.PatternYearly:
		if r.Anchor.IsZero() {
			return false
		}
		return date.Month() == r.Anchor.Month() && date.Day() == r.Anchor.Day()
	}

	return false
}
