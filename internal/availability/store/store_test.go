package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rentavail/internal/availability/errors"
	"rentavail/pkg/dates"
	"rentavail/pkg/model"
)

const villa = "villa-1"

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(monday)
	return New(clock), clock
}

func weekly() model.RecurringSchedule {
	return model.RecurringSchedule{
		ID:         "weekly",
		PropertyID: villa,
		Pattern:    model.PatternWeekly,
		DaysOfWeek: []int{1, 3, 5},
		StartTime:  "09:00",
		EndTime:    "17:00",
		Interval:   120,
	}
}

func daily() model.RecurringSchedule {
	return model.RecurringSchedule{
		ID:         "daily",
		PropertyID: villa,
		Pattern:    model.PatternDaily,
		StartTime:  "08:00",
		EndTime:    "12:00",
		Interval:   60,
	}
}

func slotTimes(slots []model.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.StartTime + "-" + s.EndTime
	}
	return out
}

func TestSetRecurringSchedule_ThenGetAvailability(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SetRecurringSchedule(weekly()))

	day, ok := s.GetAvailability(villa, "2024-01-01").Get()
	require.True(t, ok)
	assert.Equal(t, []string{"09:00-11:00", "11:00-13:00", "13:00-15:00", "15:00-17:00"}, slotTimes(day.TimeSlots))
	assert.Len(t, day.AvailableSlots(), 4)
	assert.False(t, day.IsFullyBooked)

	assert.True(t, s.GetAvailability(villa, "2024-01-03").IsPresent(), "Wednesday is covered")
	assert.False(t, s.GetAvailability(villa, "2024-01-02").IsPresent(), "Tuesday has no entry")
	assert.False(t, s.GetAvailability("unknown", "2024-01-01").IsPresent())
}

func TestHorizonIsTodayThroughNinetyDays(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(daily()))

	today := dates.MustParse("2024-01-01")
	assert.False(t, s.GetAvailability(villa, "2023-12-31").IsPresent())
	assert.True(t, s.GetAvailability(villa, dates.Format(today)).IsPresent())
	assert.True(t, s.GetAvailability(villa, dates.Format(dates.AddDays(today, 90))).IsPresent())
	assert.False(t, s.GetAvailability(villa, dates.Format(dates.AddDays(today, 91))).IsPresent())

	start, end := s.Horizon()
	assert.Equal(t, "2024-01-01", start)
	assert.Equal(t, "2024-03-31", end)
}

func TestBlackoutForcesLevelNone(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))

	before := s.GetAvailabilityLevel(villa, "2024-01-01")
	assert.Equal(t, model.LevelHigh, before.Level)
	assert.Equal(t, 4, before.AvailableSlots)
	assert.Equal(t, 4, before.TotalSlots)

	require.NoError(t, s.SetAvailabilityRule(model.AvailabilityRule{
		ID: "xmas", PropertyID: villa, Type: model.RuleBlackout, Date: "2024-01-01",
	}))

	after := s.GetAvailabilityLevel(villa, "2024-01-01")
	assert.Equal(t, model.LevelNone, after.Level)
	assert.Zero(t, after.AvailableSlots)
	assert.Zero(t, after.TotalSlots)
	assert.Equal(t, villa, after.PropertyID)
	assert.Equal(t, "2024-01-01", after.Date)
}

func TestSpecialHoursGatesOnlyOutOfWindowSlots(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))
	require.NoError(t, s.SetAvailabilityRule(model.AvailabilityRule{
		ID: "short", PropertyID: villa, Type: model.RuleSpecialHours, Date: "2024-01-01",
		StartTime: "11:00", EndTime: "15:00",
	}))

	day, ok := s.GetAvailability(villa, "2024-01-01").Get()
	require.True(t, ok)

	got := make([]bool, len(day.TimeSlots))
	for i, slot := range day.TimeSlots {
		got[i] = slot.Available
	}
	assert.Equal(t, []bool{false, true, true, false}, got)

	level := s.GetAvailabilityLevel(villa, "2024-01-01")
	assert.Equal(t, model.LevelMedium, level.Level)
	assert.Equal(t, 2, level.AvailableSlots)
}

func TestFindNextAvailableDate(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))

	next, ok := s.FindNextAvailableDate(villa, "2024-01-01").Get()
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", next, "start itself when already available")

	next, ok = s.FindNextAvailableDate(villa, "2024-01-02").Get()
	require.True(t, ok)
	assert.Equal(t, "2024-01-03", next)

	require.NoError(t, s.SetAvailabilityRule(model.AvailabilityRule{
		ID: "closed", PropertyID: villa, Type: model.RuleHoliday, Date: "2024-01-03",
	}))
	next, ok = s.FindNextAvailableDate(villa, "2024-01-02").Get()
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", next, "fully booked days are skipped")
}

func TestFindNextAvailableDate_NoneWhenEveryDayBlocked(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(daily()))
	require.NoError(t, s.SetAvailabilityRule(model.AvailabilityRule{
		ID: "renovation", PropertyID: villa, Type: model.RuleBlackout, Date: "2024-01-01", EndDate: "2025-12-31",
	}))

	assert.False(t, s.FindNextAvailableDate(villa, "2024-01-01").IsPresent())
	assert.False(t, s.FindNextAvailableDate("unknown", "2024-01-01").IsPresent())
	assert.False(t, s.FindNextAvailableDate(villa, "not-a-date").IsPresent())
}

func TestSetRecurringSchedule_Idempotent(t *testing.T) {
	once, _ := newTestStore(t)
	require.NoError(t, once.SetRecurringSchedule(weekly()))

	twice, _ := newTestStore(t)
	require.NoError(t, twice.SetRecurringSchedule(weekly()))
	require.NoError(t, twice.SetRecurringSchedule(weekly()))

	for _, date := range []string{"2024-01-01", "2024-01-03", "2024-02-16"} {
		assert.Equal(t, once.GetAvailability(villa, date), twice.GetAvailability(villa, date), date)
	}
	assert.Len(t, twice.Schedules(villa), 1)
}

func TestInvalidScheduleLeavesCacheIntact(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))
	before := s.GetAvailability(villa, "2024-01-01")

	broken := weekly()
	broken.Interval = 0
	err := s.SetRecurringSchedule(broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidSchedule))

	reversed := weekly()
	reversed.StartTime, reversed.EndTime = "17:00", "09:00"
	require.ErrorIs(t, s.SetRecurringSchedule(reversed), apperrors.ErrInvalidSchedule)

	tooCoarse := weekly()
	tooCoarse.StartTime, tooCoarse.EndTime, tooCoarse.Interval = "09:00", "10:00", 120
	require.ErrorIs(t, s.SetRecurringSchedule(tooCoarse), apperrors.ErrInvalidSchedule)

	padded := weekly()
	padded.StartTime, padded.EndTime = " 09:00", "08:00"
	require.ErrorIs(t, s.SetRecurringSchedule(padded), apperrors.ErrInvalidSchedule)

	assert.Equal(t, before, s.GetAvailability(villa, "2024-01-01"))
	assert.Equal(t, 120, s.Schedules(villa)[0].Interval)
}

func TestInvalidRuleRejected(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))

	err := s.SetAvailabilityRule(model.AvailabilityRule{ID: "r", PropertyID: villa, Type: model.RuleSpecialHours, Date: "2024-01-01"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRule)
	assert.Empty(t, s.Rules(villa))
	assert.Equal(t, model.LevelHigh, s.GetAvailabilityLevel(villa, "2024-01-01").Level)
}

func TestUnknownPropertyIsNotCreatedByRejectedMutation(t *testing.T) {
	s, _ := newTestStore(t)

	bad := weekly()
	bad.PropertyID = "ghost"
	bad.EndTime = "08:00"
	require.Error(t, s.SetRecurringSchedule(bad))
	assert.Empty(t, s.Properties())
}

func TestPriorityAndTieBreak(t *testing.T) {
	s, _ := newTestStore(t)

	first := daily()
	first.ID = "first"
	second := daily()
	second.ID = "second"
	second.StartTime, second.EndTime = "14:00", "16:00"

	require.NoError(t, s.SetRecurringSchedule(first))
	require.NoError(t, s.SetRecurringSchedule(second))

	day, _ := s.GetAvailability(villa, "2024-01-02").Get()
	assert.Equal(t, []string{"14:00-15:00", "15:00-16:00"}, slotTimes(day.TimeSlots), "most recently set wins a tie")

	require.NoError(t, s.SetRecurringSchedule(first))
	day, _ = s.GetAvailability(villa, "2024-01-02").Get()
	assert.Equal(t, "08:00", day.TimeSlots[0].StartTime, "re-setting bumps recency")

	second.Priority = 10
	require.NoError(t, s.SetRecurringSchedule(second))
	day, _ = s.GetAvailability(villa, "2024-01-02").Get()
	assert.Equal(t, "14:00", day.TimeSlots[0].StartTime, "higher priority beats recency")
}

func TestDeletes(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))
	require.NoError(t, s.SetAvailabilityRule(model.AvailabilityRule{
		ID: "b", PropertyID: villa, Type: model.RuleBlackout, Date: "2024-01-01",
	}))

	assert.False(t, s.DeleteAvailabilityRule(villa, "missing"))
	assert.True(t, s.DeleteAvailabilityRule(villa, "b"))
	assert.Equal(t, model.LevelHigh, s.GetAvailabilityLevel(villa, "2024-01-01").Level)

	assert.False(t, s.DeleteRecurringSchedule("other", "weekly"))
	assert.True(t, s.DeleteRecurringSchedule(villa, "weekly"))
	assert.False(t, s.GetAvailability(villa, "2024-01-01").IsPresent())
	assert.Empty(t, s.Schedules(villa))
}

func TestRegenerateAllRollsHorizon(t *testing.T) {
	s, clock := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(daily()))
	require.False(t, s.GetAvailability(villa, "2024-04-01").IsPresent())

	clock.Advance(24 * time.Hour)
	require.NoError(t, s.RegenerateAll(context.Background()))

	assert.False(t, s.GetAvailability(villa, "2024-01-01").IsPresent(), "yesterday drops out")
	assert.True(t, s.GetAvailability(villa, "2024-04-01").IsPresent(), "new last day is cached")
}

func TestRegenerateAllHonoursCancellation(t *testing.T) {
	s, clock := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(daily()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock.Advance(24 * time.Hour)

	require.Error(t, s.RegenerateAll(ctx))
	assert.True(t, s.GetAvailability(villa, "2024-01-01").IsPresent(), "cache untouched on failure")
}

func TestRegenerateAvailability(t *testing.T) {
	s, clock := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(daily()))

	clock.Advance(48 * time.Hour)
	s.RegenerateAvailability(villa)
	s.RegenerateAvailability("unknown")

	assert.False(t, s.GetAvailability(villa, "2024-01-02").IsPresent())
	assert.True(t, s.GetAvailability(villa, "2024-01-03").IsPresent())
}

func TestGetAvailabilityReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))

	day, _ := s.GetAvailability(villa, "2024-01-01").Get()
	day.TimeSlots[0].Available = false

	again, _ := s.GetAvailability(villa, "2024-01-01").Get()
	assert.True(t, again.TimeSlots[0].Available)
}

func TestAvailabilityRangeAndSlots(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetRecurringSchedule(weekly()))

	days, err := s.AvailabilityRange(villa, "2024-01-01", "2024-01-07")
	require.NoError(t, err)
	got := make([]string, len(days))
	for i, d := range days {
		got[i] = d.Date
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-05"}, got)

	_, err = s.AvailabilityRange(villa, "yesterday", "2024-01-07")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)

	empty, err := s.AvailabilityRange(villa, "2024-01-07", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.True(t, s.IsTimeSlotAvailable(villa, "2024-01-01", "11:00"))
	assert.False(t, s.IsTimeSlotAvailable(villa, "2024-01-01", "10:00"))
	assert.False(t, s.IsTimeSlotAvailable(villa, "2024-01-02", "11:00"))
	assert.Len(t, s.AvailableTimeSlots(villa, "2024-01-01"), 4)
	assert.Empty(t, s.AvailableTimeSlots(villa, "2024-01-02"))
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s, _ := newTestStore(t)
	narrow := weekly()
	wide := weekly()
	wide.Interval = 60
	require.NoError(t, s.SetRecurringSchedule(narrow))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				day, ok := s.GetAvailability(villa, "2024-01-01").Get()
				if !ok {
					t.Error("entry vanished during regeneration")
					return
				}
				if n := len(day.TimeSlots); n != 4 && n != 8 {
					t.Errorf("saw partial snapshot with %d slots", n)
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			require.NoError(t, s.SetRecurringSchedule(wide))
		} else {
			require.NoError(t, s.SetRecurringSchedule(narrow))
		}
	}
	close(stop)
	wg.Wait()
}

func TestLevelBuckets(t *testing.T) {
	tests := []struct {
		open  int
		total int
		want  model.AvailabilityLevel
	}{
		{0, 10, model.LevelNone},
		{1, 10, model.LevelLow},
		{3, 10, model.LevelLow},
		{4, 10, model.LevelMedium},
		{7, 10, model.LevelMedium},
		{8, 10, model.LevelHigh},
		{10, 10, model.LevelHigh},
		{0, 0, model.LevelNone},
	}

	for _, tt := range tests {
		day := model.DailyAvailability{}
		for i := 0; i < tt.total; i++ {
			day.TimeSlots = append(day.TimeSlots, model.TimeSlot{Available: i < tt.open})
		}
		level, open, total := Level(day)
		assert.Equal(t, tt.want, level, "%d/%d", tt.open, tt.total)
		if tt.want != model.LevelNone || tt.total > 0 {
			assert.Equal(t, tt.open, open)
			assert.Equal(t, tt.total, total)
		}
	}

	blackout := model.DailyAvailability{IsBlackout: true, TimeSlots: []model.TimeSlot{{Available: true}}}
	level, open, total := Level(blackout)
	assert.Equal(t, model.LevelNone, level)
	assert.Zero(t, open)
	assert.Zero(t, total)
}
