package recurrence

import (
	"slices"
	"time"

	"rentavail/pkg/dates"
	"rentavail/pkg/model"
)

// MaxSpanDays caps every enumeration regardless of the requested end date.
const MaxSpanDays = 365

// Expand lists the dates in [start, end] the rule covers, ascending, skipping
// exceptions (ISO strings, exact match). The range is clamped to
// start+MaxSpanDays. A zero Anchor is replaced by start.
func Expand(r Rule, start, end time.Time, exceptions []string) []time.Time {
	start = dates.Civil(start)
	end = dates.Civil(end)
	if start.After(end) {
		return []time.Time{}
	}
	if limit := dates.AddDays(start, MaxSpanDays); end.After(limit) {
		end = limit
	}
	if r.Anchor.IsZero() {
		r.Anchor = start
	}

	if r.Pattern.IsMonthlyFamily() {
		return expandByMonth(r, start, end, exceptions)
	}
	return expandByDay(r, start, end, exceptions)
}

func expandByDay(r Rule, start, end time.Time, exceptions []string) []time.Time {
	out := []time.Time{}
	for d := start; !d.After(end); d = dates.AddDays(d, 1) {
		if Matches(r, d) && !slices.Contains(exceptions, dates.Format(d)) {
			out = append(out, d)
		}
	}
	return out
}

// expandByMonth steps whole months so that month-relative patterns never
// drift across short months.
func expandByMonth(r Rule, start, end time.Time, exceptions []string) []time.Time {
	out := []time.Time{}
	for m := dates.FirstOfMonth(start); !m.After(end); m = m.AddDate(0, 1, 0) {
		day, ok := candidateDay(r, m)
		if !ok {
			continue
		}
		d := time.Date(m.Year(), m.Month(), day, 0, 0, 0, 0, time.UTC)
		if d.Before(start) || d.After(end) {
			continue
		}
		if Matches(r, d) && !slices.Contains(exceptions, dates.Format(d)) {
			out = append(out, d)
		}
	}
	return out
}

func candidateDay(r Rule, month time.Time) (int, bool) {
	last := dates.DaysIn(month.Year(), month.Month())

	var day int
	switch r.Pattern {
	case model.PatternMonthlyFirst:
		day = 1
	case model.PatternMonthlyLast:
		day = last
	case model.PatternMonthly:
		d, ok := r.monthDay()
		if !ok {
			return 0, false
		}
		day = d
	default:
		day = r.Anchor.Day()
	}

	if day > last {
		return 0, false
	}
	return day, true
}
