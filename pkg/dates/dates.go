// Package dates holds the civil-date and wall-clock helpers shared by the
// availability packages. Dates are ISO "YYYY-MM-DD" strings at the edges and
// UTC midnights internally; clock times are "HH:MM" strings or minutes since
// midnight.
package dates

import (
	"fmt"
	"regexp"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	MinutesPerDay = 24 * 60
)

var clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func MustParse(s string) time.Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func Format(t time.Time) string {
	return t.Format(DateLayout)
}

func IsDate(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Civil returns the UTC midnight of t's calendar day in t's own location.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween counts whole days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Civil(b).Sub(Civil(a)).Hours() / 24)
}

func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func IsLastDayOfMonth(t time.Time) bool {
	return t.Day() == DaysIn(t.Year(), t.Month())
}

func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func IsClock(s string) bool {
	return clockRegex.MatchString(s)
}

// ParseClock converts a strict "HH:MM" value into minutes since midnight.
func ParseClock(s string) (int, error) {
	if !IsClock(s) {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod returns a non-negative remainder for positive b.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
