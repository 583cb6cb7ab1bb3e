package recurrence

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"rentavail/pkg/model"
)

var weekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ROption translates the rule into an RFC 5545 recurrence anchored at
// Anchor. Biweekly weeks start on the anchor's weekday so that RRULE week
// parity agrees with Matches.
func ROption(r Rule) (rrule.ROption, error) {
	if r.Anchor.IsZero() {
		return rrule.ROption{}, fmt.Errorf("recurrence rule %q has no anchor date", r.Pattern)
	}

	opt := rrule.ROption{Dtstart: r.Anchor, Wkst: rrule.MO}

	switch r.Pattern {
	case model.PatternDaily:
		opt.Freq = rrule.DAILY

	case model.PatternWeekdays:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}

	case model.PatternWeekends:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.SA, rrule.SU}

	case model.PatternWeekly, model.PatternBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = byWeekday(r.DaysOfWeek)
		if len(opt.Byweekday) == 0 {
			return rrule.ROption{}, fmt.Errorf("recurrence rule %q has no days of week", r.Pattern)
		}
		if r.Pattern == model.PatternBiweekly {
			opt.Interval = 2
			opt.Wkst = weekdays[r.Anchor.Weekday()]
		}

	case model.PatternMonthly:
		day, _ := r.monthDay()
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{day}

	case model.PatternMonthlyFirst:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{1}

	case model.PatternMonthlyLast:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{-1}

	case model.PatternQuarterly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 3
		opt.Bymonthday = []int{r.Anchor.Day()}

	case model.PatternYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(r.Anchor.Month())}
		opt.Bymonthday = []int{r.Anchor.Day()}

	default:
		return rrule.ROption{}, fmt.Errorf("unknown recurrence pattern %q", r.Pattern)
	}

	return opt, nil
}

// ToRRule renders the RRULE value (without DTSTART) and checks it parses.
func ToRRule(r Rule) (string, error) {
	opt, err := ROption(r)
	if err != nil {
		return "", err
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("failed to build RRULE for %q: %w", r.Pattern, err)
	}
	return opt.RRuleString(), nil
}

// Occurrences expands the rule through rrule-go within [from, to].
func Occurrences(r Rule, from, to time.Time) ([]time.Time, error) {
	opt, err := ROption(r)
	if err != nil {
		return nil, err
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build RRULE for %q: %w", r.Pattern, err)
	}
	return rr.Between(from, to, true), nil
}

func byWeekday(days []int) []rrule.Weekday {
	sorted := slices.Clone(days)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]rrule.Weekday, 0, len(sorted))
	for _, d := range sorted {
		if d >= 0 && d <= 6 {
			out = append(out, weekdays[d])
		}
	}
	return out
}
