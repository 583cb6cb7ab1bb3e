package errors

import "errors"

var (
	ErrInvalidSchedule = errors.New("invalid recurring schedule")

	ErrInvalidRule = errors.New("invalid availability rule")

	ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")

	ErrInvalidTime = errors.New("invalid time, want HH:MM")
)
