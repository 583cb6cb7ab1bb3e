package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rentavail/pkg/logger"
	"rentavail/pkg/model"
)

// File is the on-disk seed layout:
//
//	schedules:
//	  - id: villa-1-weekdays
//	    property_id: villa-1
//	    pattern: weekdays
//	    ...
//	rules:
//	  - ...
type File struct {
	Schedules []model.RecurringSchedule `yaml:"schedules"`
	Rules     []model.AvailabilityRule  `yaml:"rules"`
}

type Applier interface {
	UpsertSchedule(ctx context.Context, s *model.RecurringSchedule) error
	UpsertRule(ctx context.Context, r *model.AvailabilityRule) error
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing seed file: %w", err)
	}
	return &f, nil
}

// Apply upserts every schedule, then every rule. It keeps going past
// rejected entries and returns them joined.
func Apply(ctx context.Context, applier Applier, f *File, log *logger.Logger) error {
	var errs []error

	for i := range f.Schedules {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := &f.Schedules[i]
		if err := applier.UpsertSchedule(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("schedule %d (%s): %w", i, s.ID, err))
		}
	}
	for i := range f.Rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := &f.Rules[i]
		if err := applier.UpsertRule(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", i, r.ID, err))
		}
	}

	log.Info("Seed applied",
		"schedules", len(f.Schedules),
		"rules", len(f.Rules),
		"rejected", len(errs),
	)
	return errors.Join(errs...)
}
