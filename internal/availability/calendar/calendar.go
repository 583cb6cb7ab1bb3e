package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"rentavail/internal/availability/recurrence"
	"rentavail/pkg/dates"
	"rentavail/pkg/model"
)

const (
	ProductID   = "-//rentavail//availability feed//EN"
	ContentType = "text/calendar; charset=utf-8"
)

// Feed is the input of an availability calendar: the property's schedules
// as recurring events and its blocked cached days as all-day events.
type Feed struct {
	PropertyID string
	Schedules  []model.RecurringSchedule
	Days       []model.DailyAvailability
	From       time.Time
	Generated  time.Time
}

// Build renders the feed. Schedules with no occurrence on or after From,
// within a year, are left out.
func Build(feed Feed) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropName, "Availability "+feed.PropertyID)

	stamp := feed.Generated.UTC()
	from := dates.Civil(feed.From)

	for _, s := range feed.Schedules {
		event, ok, err := scheduleEvent(feed.PropertyID, s, from, stamp)
		if err != nil {
			return nil, err
		}
		if ok {
			cal.Children = append(cal.Children, event.Component)
		}
	}

	for _, day := range feed.Days {
		if !day.IsBlackout && !day.IsHoliday {
			continue
		}
		event, err := blockedEvent(feed.PropertyID, day, stamp)
		if err != nil {
			return nil, err
		}
		cal.Children = append(cal.Children, event.Component)
	}

	return cal, nil
}

func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func scheduleEvent(propertyID string, s model.RecurringSchedule, from, stamp time.Time) (*ical.Event, bool, error) {
	rule := recurrence.RuleFromSchedule(s)
	if rule.Anchor.IsZero() {
		rule.Anchor = from
	}

	start := from
	if s.StartDate != "" {
		if sd, err := dates.Parse(s.StartDate); err == nil && sd.After(start) {
			start = sd
		}
	}
	first := recurrence.Expand(rule, start, dates.AddDays(start, recurrence.MaxSpanDays), s.Exceptions)
	if len(first) == 0 || (s.EndDate != "" && dates.Format(first[0]) > s.EndDate) {
		return nil, false, nil
	}

	opening, err := dates.ParseClock(s.StartTime)
	if err != nil {
		return nil, false, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	closing, err := dates.ParseClock(s.EndTime)
	if err != nil {
		return nil, false, fmt.Errorf("schedule %s: %w", s.ID, err)
	}

	opt, err := recurrence.ROption(rule)
	if err != nil {
		return nil, false, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	dtstart := at(first[0], opening)
	opt.Dtstart = dtstart
	if s.EndDate != "" {
		if until, err := dates.Parse(s.EndDate); err == nil {
			opt.Until = at(until, closing)
		}
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, s.ID+"@"+propertyID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetText(ical.PropSummary, fmt.Sprintf("Open %s-%s", s.StartTime, s.EndTime))
	event.Props.SetText(ical.PropDescription, fmt.Sprintf("%s schedule, %d minute slots, priority %d", s.Pattern, s.Interval, s.Priority))
	event.Props.SetDateTime(ical.PropDateTimeStart, dtstart)
	event.Props.SetDateTime(ical.PropDateTimeEnd, at(first[0], closing))

	rrule := ical.NewProp(ical.PropRecurrenceRule)
	rrule.Value = opt.RRuleString()
	event.Props.Set(rrule)

	for _, ex := range s.Exceptions {
		d, err := dates.Parse(ex)
		if err != nil {
			continue
		}
		exdate := ical.NewProp(ical.PropExceptionDates)
		exdate.SetDateTime(at(d, opening))
		event.Props.Add(exdate)
	}

	return event, true, nil
}

func blockedEvent(propertyID string, day model.DailyAvailability, stamp time.Time) (*ical.Event, error) {
	d, err := dates.Parse(day.Date)
	if err != nil {
		return nil, err
	}

	summary, kind := "Blackout", "blackout"
	if day.IsHoliday && !day.IsBlackout {
		summary, kind = "Holiday", "holiday"
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@%s", kind, day.Date, propertyID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetText(ical.PropSummary, summary)
	setDate(event.Props, ical.PropDateTimeStart, d)
	setDate(event.Props, ical.PropDateTimeEnd, dates.AddDays(d, 1))
	return event, nil
}

func setDate(props ical.Props, name string, d time.Time) {
	prop := ical.NewProp(name)
	prop.Params.Set("VALUE", "DATE")
	prop.Value = d.Format("20060102")
	props.Set(prop)
}

func at(day time.Time, minutes int) time.Time {
	return dates.Civil(day).Add(time.Duration(minutes) * time.Minute)
}
