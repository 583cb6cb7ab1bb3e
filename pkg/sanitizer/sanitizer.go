package sanitizer

import (
	"regexp"
	"strings"

	"rentavail/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reLooseClock = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func padHour(s string) string {
	m := reLooseClock.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + m[2]
}

// NormalizeClock turns "9:00", "9.00" and " 09:00 " into "09:00". Anything it
// does not recognise is only trimmed.
func NormalizeClock(input string) string {
	return Pipeline{trim, padHour}.Apply(input)
}

func NormalizeDate(input string) string {
	return trim(input)
}

func SanitizeSchedule(s *model.RecurringSchedule) {
	s.ID = NormalizeID(s.ID)
	s.PropertyID = NormalizeID(s.PropertyID)
	s.Pattern = model.RecurrencePattern(trimAndLower(string(s.Pattern)))
	s.DaysOfWeek = NormalizeWeekdays(s.DaysOfWeek)
	s.StartTime = NormalizeClock(s.StartTime)
	s.EndTime = NormalizeClock(s.EndTime)
	s.StartDate = NormalizeDate(s.StartDate)
	s.EndDate = NormalizeDate(s.EndDate)
	s.Exceptions = NormalizeExceptions(s.Exceptions)
}

func SanitizeRule(r *model.AvailabilityRule) {
	r.ID = NormalizeID(r.ID)
	r.PropertyID = NormalizeID(r.PropertyID)
	r.Type = model.RuleType(trimAndLower(string(r.Type)))
	r.Date = NormalizeDate(r.Date)
	r.EndDate = NormalizeDate(r.EndDate)
	r.StartTime = NormalizeClock(r.StartTime)
	r.EndTime = NormalizeClock(r.EndTime)
	r.Description = NormalizeDescription(r.Description)
}
