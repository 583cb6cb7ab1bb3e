// Package resolver turns a property's schedules and one-off rules into the
// time slots of a single day.
package resolver

import (
	"cmp"
	"slices"
	"time"

	"rentavail/internal/availability/recurrence"
	"rentavail/pkg/dates"
	"rentavail/pkg/model"
)

// Entry is a schedule together with the sequence number the store assigned
// when it was last set. Higher Seq means more recently set.
type Entry struct {
	Schedule model.RecurringSchedule
	Seq      uint64
}

// Resolve computes the availability of one date. The boolean is false when no
// schedule applies, in which case the date has no entry at all.
func Resolve(date time.Time, entries []Entry, rules []model.AvailabilityRule) (model.DailyAvailability, bool) {
	date = dates.Civil(date)
	iso := dates.Format(date)

	chosen, ok := pick(date, iso, entries)
	if !ok {
		return model.DailyAvailability{}, false
	}

	s := chosen.Schedule
	day := model.DailyAvailability{
		Date:      iso,
		TimeSlots: GenerateSlots(s.StartTime, s.EndTime, s.Interval, s.Price),
	}

	for _, rule := range applicableRules(iso, rules) {
		apply(&day, rule)
	}

	day.IsFullyBooked = len(day.AvailableSlots()) == 0
	return day, true
}

// applicable reports whether the schedule covers the date: pattern match,
// validity bounds and exceptions.
func applicable(s model.RecurringSchedule, date time.Time, iso string) bool {
	if s.StartDate != "" && iso < s.StartDate {
		return false
	}
	if s.EndDate != "" && iso > s.EndDate {
		return false
	}
	if slices.Contains(s.Exceptions, iso) {
		return false
	}
	return recurrence.Matches(recurrence.RuleFromSchedule(s), date)
}

func pick(date time.Time, iso string, entries []Entry) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, e := range entries {
		if !applicable(e.Schedule, date, iso) {
			continue
		}
		if !found || wins(e, best) {
			best = e
			found = true
		}
	}
	return best, found
}

func wins(a, b Entry) bool {
	if a.Schedule.Priority != b.Schedule.Priority {
		return a.Schedule.Priority > b.Schedule.Priority
	}
	return a.Seq > b.Seq
}

func applicableRules(iso string, rules []model.AvailabilityRule) []model.AvailabilityRule {
	out := make([]model.AvailabilityRule, 0, len(rules))
	for _, r := range rules {
		if r.Covers(iso) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.AvailabilityRule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return out
}

func apply(day *model.DailyAvailability, rule model.AvailabilityRule) {
	switch rule.Type {
	case model.RuleBlackout:
		day.IsBlackout = true
		closeAll(day.TimeSlots)

	case model.RuleHoliday:
		day.IsHoliday = true
		closeAll(day.TimeSlots)

	case model.RuleSpecialHours:
		open, err := dates.ParseClock(rule.StartTime)
		if err != nil {
			return
		}
		end, err := dates.ParseClock(rule.EndTime)
		if err != nil {
			return
		}
		for i := range day.TimeSlots {
			slotStart, _ := dates.ParseClock(day.TimeSlots[i].StartTime)
			slotEnd, _ := dates.ParseClock(day.TimeSlots[i].EndTime)
			if slotStart < open || slotEnd > end {
				day.TimeSlots[i].Available = false
			}
		}
	}
}

func closeAll(slots []model.TimeSlot) {
	for i := range slots {
		slots[i].Available = false
	}
}

// GenerateSlots splits [startTime, endTime) into back-to-back slots of
// interval minutes. A trailing remainder shorter than interval is dropped.
// Malformed input yields an empty list.
func GenerateSlots(startTime, endTime string, interval int, price *float64) []model.TimeSlot {
	slots := []model.TimeSlot{}
	if interval <= 0 {
		return slots
	}
	start, err := dates.ParseClock(startTime)
	if err != nil {
		return slots
	}
	end, err := dates.ParseClock(endTime)
	if err != nil {
		return slots
	}

	for cursor := start; cursor+interval <= end; cursor += interval {
		slot := model.TimeSlot{
			StartTime: dates.FormatClock(cursor),
			EndTime:   dates.FormatClock(cursor + interval),
			Available: true,
		}
		if price != nil {
			p := *price
			slot.Price = &p
		}
		slots = append(slots, slot)
	}
	return slots
}
