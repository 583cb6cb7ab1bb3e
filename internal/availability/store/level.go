package store

import "rentavail/pkg/model"

const (
	lowThreshold    = 0.3
	mediumThreshold = 0.7
)

// Level buckets a day by its open-slot ratio. Blackout days and days without
// slots report none with zero counts.
func Level(day model.DailyAvailability) (model.AvailabilityLevel, int, int) {
	total := len(day.TimeSlots)
	if day.IsBlackout || total == 0 {
		return model.LevelNone, 0, 0
	}

	available := len(day.AvailableSlots())
	ratio := float64(available) / float64(total)

	switch {
	case available == 0:
		return model.LevelNone, available, total
	case ratio <= lowThreshold:
		return model.LevelLow, available, total
	case ratio <= mediumThreshold:
		return model.LevelMedium, available, total
	default:
		return model.LevelHigh, available, total
	}
}
