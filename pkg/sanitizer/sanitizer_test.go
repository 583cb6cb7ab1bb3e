package sanitizer

import (
	"reflect"
	"testing"

	"rentavail/pkg/model"
)

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already canonical", input: "09:00", want: "09:00"},
		{name: "single digit hour", input: "9:00", want: "09:00"},
		{name: "dot separator", input: "9.30", want: "09:30"},
		{name: "surrounding spaces", input: "  17:45 ", want: "17:45"},
		{name: "empty", input: "", want: ""},
		{name: "garbage kept for validation", input: "9am", want: "9am"},
		{name: "out of range kept for validation", input: "25:00", want: "25:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeClock(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeClock(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeClock(got); again != got {
				t.Errorf("NormalizeClock not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSanitizeSchedule(t *testing.T) {
	s := model.RecurringSchedule{
		ID:         "  summer  season ",
		PropertyID: " villa-1 ",
		Pattern:    " Weekly ",
		DaysOfWeek: []int{5, 1, 3, 1},
		StartTime:  "9:00",
		EndTime:    " 17:00",
		StartDate:  " 2024-06-01 ",
		Exceptions: []string{"2024-07-04", " 2024-06-15", "2024-07-04", ""},
	}

	SanitizeSchedule(&s)

	if s.ID != "summer-season" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.PropertyID != "villa-1" {
		t.Errorf("PropertyID = %q", s.PropertyID)
	}
	if s.Pattern != model.PatternWeekly {
		t.Errorf("Pattern = %q", s.Pattern)
	}
	if !reflect.DeepEqual(s.DaysOfWeek, []int{1, 3, 5}) {
		t.Errorf("DaysOfWeek = %v", s.DaysOfWeek)
	}
	if s.StartTime != "09:00" || s.EndTime != "17:00" {
		t.Errorf("times = %q-%q", s.StartTime, s.EndTime)
	}
	if s.StartDate != "2024-06-01" {
		t.Errorf("StartDate = %q", s.StartDate)
	}
	if !reflect.DeepEqual(s.Exceptions, []string{"2024-06-15", "2024-07-04"}) {
		t.Errorf("Exceptions = %v", s.Exceptions)
	}
}

func TestSanitizeRule(t *testing.T) {
	r := model.AvailabilityRule{
		ID:          "xmas",
		PropertyID:  "villa-1",
		Type:        "  BLACKOUT",
		Date:        "2024-12-25 ",
		StartTime:   "8:00",
		Description: "  closed   for\tthe holidays ",
	}

	SanitizeRule(&r)

	if r.Type != model.RuleBlackout {
		t.Errorf("Type = %q", r.Type)
	}
	if r.Date != "2024-12-25" {
		t.Errorf("Date = %q", r.Date)
	}
	if r.StartTime != "08:00" {
		t.Errorf("StartTime = %q", r.StartTime)
	}
	if r.Description != "closed for the holidays" {
		t.Errorf("Description = %q", r.Description)
	}
}

func TestNormalizeWeekdays(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{name: "nil", input: nil, want: nil},
		{name: "sorted and deduplicated", input: []int{6, 0, 6, 3}, want: []int{0, 3, 6}},
		{name: "out of range kept", input: []int{9, 1}, want: []int{1, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWeekdays(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeWeekdays(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeWeekdaysDoesNotMutateInput(t *testing.T) {
	in := []int{3, 1}
	_ = NormalizeWeekdays(in)
	if !reflect.DeepEqual(in, []int{3, 1}) {
		t.Errorf("input mutated: %v", in)
	}
}

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Sea View  ", want: "Sea View"},
		{name: "collapse inner whitespace", input: "Sea \t\n  View", want: "Sea View"},
		{name: "only whitespace", input: " \t\n ", want: ""},
		{name: "unicode preserved", input: " Café  Réunion ", want: "Café Réunion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeStringSlice(t *testing.T) {
	got := NormalizeStringSlice([]string{" a", "a ", "", "b"}, TrimAndNormalize)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("NormalizeStringSlice = %v", got)
	}
	if got := NormalizeStringSlice(nil, TrimAndNormalize); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNormalizeDescription(t *testing.T) {
	got := NormalizeDescription(" pool\x00 closed\x07 for\r\nmaintenance ")
	if got != "pool closed for maintenance" {
		t.Errorf("NormalizeDescription = %q", got)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"villa-1", "villa-1"},
		{"  villa 1 ", "villa-1"},
		{"sea\tview  loft", "sea-view-loft"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeID(tt.input); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
