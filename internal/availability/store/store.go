// Package store owns per-property schedules and rules and the cached
// availability derived from them over a rolling horizon.
package store

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"

	apperrors "rentavail/internal/availability/errors"
	"rentavail/internal/availability/resolver"
	"rentavail/internal/availability/validator"
	"rentavail/pkg/dates"
	"rentavail/pkg/logger"
	"rentavail/pkg/model"
)

const (
	DefaultHorizonDays = 90
	DefaultSearchDays  = 365
)

type Validator interface {
	ValidateSchedule(s *model.RecurringSchedule) error
	ValidateRule(r *model.AvailabilityRule) error
}

type Option func(*Store)

func WithValidator(v Validator) Option {
	return func(s *Store) { s.validator = v }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHorizonDays sets how many days past today are cached. Today itself is
// always included.
func WithHorizonDays(days int) Option {
	return func(s *Store) {
		if days >= 0 {
			s.horizonDays = days
		}
	}
}

func WithSearchDays(days int) Option {
	return func(s *Store) {
		if days >= 0 {
			s.searchDays = days
		}
	}
}

type property struct {
	schedules []resolver.Entry
	rules     []model.AvailabilityRule
	cache     map[string]model.DailyAvailability
	version   uint64
}

type Store struct {
	mu         sync.RWMutex
	properties map[string]*property
	seq        uint64

	clock       clockwork.Clock
	validator   Validator
	logger      *logger.Logger
	horizonDays int
	searchDays  int
}

func New(clock clockwork.Clock, opts ...Option) *Store {
	s := &Store{
		properties:  make(map[string]*property),
		clock:       clock,
		horizonDays: DefaultHorizonDays,
		searchDays:  DefaultSearchDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	if s.validator == nil {
		s.validator = validator.NewAvailabilityValidator(s.logger)
	}
	return s
}

// Today is the current UTC civil date according to the store's clock.
func (s *Store) Today() time.Time {
	return dates.Civil(s.clock.Now().UTC())
}

// Horizon returns the first and last cached dates as of now.
func (s *Store) Horizon() (string, string) {
	today := s.Today()
	return dates.Format(today), dates.Format(dates.AddDays(today, s.horizonDays))
}

// SetRecurringSchedule validates and upserts the schedule by ID, then
// rebuilds the property's cache before returning. A rejected schedule leaves
// the store untouched.
func (s *Store) SetRecurringSchedule(schedule model.RecurringSchedule) error {
	schedule = cloneSchedule(schedule)
	if err := s.validator.ValidateSchedule(&schedule); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidSchedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.property(schedule.PropertyID)
	s.seq++
	entry := resolver.Entry{Schedule: schedule, Seq: s.seq}

	if i := slices.IndexFunc(p.schedules, func(e resolver.Entry) bool { return e.Schedule.ID == schedule.ID }); i >= 0 {
		p.schedules[i] = entry
	} else {
		p.schedules = append(p.schedules, entry)
	}
	s.regenerateLocked(schedule.PropertyID, p)
	return nil
}

func (s *Store) SetAvailabilityRule(rule model.AvailabilityRule) error {
	if err := s.validator.ValidateRule(&rule); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.property(rule.PropertyID)
	if i := slices.IndexFunc(p.rules, func(r model.AvailabilityRule) bool { return r.ID == rule.ID }); i >= 0 {
		p.rules[i] = rule
	} else {
		p.rules = append(p.rules, rule)
	}
	s.regenerateLocked(rule.PropertyID, p)
	return nil
}

func (s *Store) DeleteRecurringSchedule(propertyID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return false
	}
	before := len(p.schedules)
	p.schedules = slices.DeleteFunc(p.schedules, func(e resolver.Entry) bool { return e.Schedule.ID == id })
	if len(p.schedules) == before {
		return false
	}
	s.regenerateLocked(propertyID, p)
	return true
}

func (s *Store) DeleteAvailabilityRule(propertyID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return false
	}
	before := len(p.rules)
	p.rules = slices.DeleteFunc(p.rules, func(r model.AvailabilityRule) bool { return r.ID == id })
	if len(p.rules) == before {
		return false
	}
	s.regenerateLocked(propertyID, p)
	return true
}

// GetAvailability is a pure cache lookup. Dates outside the horizon, or
// without an applicable schedule, are absent.
func (s *Store) GetAvailability(propertyID, date string) mo.Option[model.DailyAvailability] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, ok := s.lookupLocked(propertyID, date)
	if !ok {
		return mo.None[model.DailyAvailability]()
	}
	return mo.Some(cloneDay(day))
}

func (s *Store) GetAvailabilityLevel(propertyID, date string) model.PropertyAvailability {
	s.mu.RLock()
	day, ok := s.lookupLocked(propertyID, date)
	s.mu.RUnlock()

	summary := model.PropertyAvailability{
		PropertyID: propertyID,
		Date:       date,
		Level:      model.LevelNone,
	}
	if !ok {
		return summary
	}
	summary.Level, summary.AvailableSlots, summary.TotalSlots = Level(day)
	return summary
}

// FindNextAvailableDate scans [start, start+searchDays] for the first date
// whose level is not none.
func (s *Store) FindNextAvailableDate(propertyID, start string) mo.Option[string] {
	from, err := dates.Parse(start)
	if err != nil {
		return mo.None[string]()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok || len(p.cache) == 0 {
		return mo.None[string]()
	}

	for i := 0; i <= s.searchDays; i++ {
		iso := dates.Format(dates.AddDays(from, i))
		day, ok := p.cache[iso]
		if !ok {
			continue
		}
		if level, _, _ := Level(day); level != model.LevelNone {
			return mo.Some(iso)
		}
	}
	return mo.None[string]()
}

// AvailabilityRange lists cached days in [from, to], ascending. The span is
// clamped to searchDays.
func (s *Store) AvailabilityRange(propertyID, from, to string) ([]model.DailyAvailability, error) {
	start, err := dates.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDate, err)
	}
	end, err := dates.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDate, err)
	}
	if limit := dates.AddDays(start, s.searchDays); end.After(limit) {
		end = limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.DailyAvailability{}
	p, ok := s.properties[propertyID]
	if !ok {
		return out, nil
	}
	for d := start; !d.After(end); d = dates.AddDays(d, 1) {
		if day, ok := p.cache[dates.Format(d)]; ok {
			out = append(out, cloneDay(day))
		}
	}
	return out, nil
}

// AvailableTimeSlots returns the open slots of a cached day.
func (s *Store) AvailableTimeSlots(propertyID, date string) []model.TimeSlot {
	day, ok := s.GetAvailability(propertyID, date).Get()
	if !ok {
		return []model.TimeSlot{}
	}
	return day.AvailableSlots()
}

func (s *Store) IsTimeSlotAvailable(propertyID, date, startTime string) bool {
	for _, slot := range s.AvailableTimeSlots(propertyID, date) {
		if slot.StartTime == startTime {
			return true
		}
	}
	return false
}

func (s *Store) Schedules(propertyID string) []model.RecurringSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.RecurringSchedule{}
	if p, ok := s.properties[propertyID]; ok {
		for _, e := range p.schedules {
			out = append(out, cloneSchedule(e.Schedule))
		}
	}
	return out
}

func (s *Store) Rules(propertyID string) []model.AvailabilityRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.AvailabilityRule{}
	if p, ok := s.properties[propertyID]; ok {
		out = append(out, p.rules...)
	}
	return out
}

func (s *Store) Properties() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.properties))
	for id := range s.properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RegenerateAvailability rebuilds one property's horizon from scratch.
func (s *Store) RegenerateAvailability(propertyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.properties[propertyID]; ok {
		s.regenerateLocked(propertyID, p)
	}
}

type snapshot struct {
	id        string
	version   uint64
	schedules []resolver.Entry
	rules     []model.AvailabilityRule
	cache     map[string]model.DailyAvailability
}

// RegenerateAll rebuilds every property against the current date, computing
// outside the lock. A property mutated while its cache was being computed
// keeps the cache that mutation produced.
func (s *Store) RegenerateAll(ctx context.Context) error {
	today := s.Today()

	s.mu.RLock()
	snaps := make([]*snapshot, 0, len(s.properties))
	for id, p := range s.properties {
		snaps = append(snaps, &snapshot{
			id:        id,
			version:   p.version,
			schedules: slices.Clone(p.schedules),
			rules:     slices.Clone(p.rules),
		})
	}
	s.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, snap := range snaps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snap.cache = build(today, s.horizonDays, snap.schedules, snap.rules)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to regenerate availability: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	swapped := 0
	for _, snap := range snaps {
		p, ok := s.properties[snap.id]
		if !ok || p.version != snap.version {
			continue
		}
		p.cache = snap.cache
		swapped++
	}

	s.logger.Info("Regenerated availability for all properties",
		"properties", len(snaps),
		"swapped", swapped,
		"horizon_start", dates.Format(today),
	)
	return nil
}

func (s *Store) property(id string) *property {
	p, ok := s.properties[id]
	if !ok {
		p = &property{cache: map[string]model.DailyAvailability{}}
		s.properties[id] = p
	}
	return p
}

func (s *Store) lookupLocked(propertyID, date string) (model.DailyAvailability, bool) {
	p, ok := s.properties[propertyID]
	if !ok {
		return model.DailyAvailability{}, false
	}
	day, ok := p.cache[date]
	return day, ok
}

// regenerateLocked builds a fresh cache and swaps it in. Callers hold the
// write lock.
func (s *Store) regenerateLocked(propertyID string, p *property) {
	start := time.Now()
	p.cache = build(s.Today(), s.horizonDays, p.schedules, p.rules)
	p.version++

	s.logger.Debug("Regenerated property availability",
		logger.PROPERTY, propertyID,
		"cached_days", len(p.cache),
		"duration", time.Since(start),
	)
}

func build(today time.Time, horizonDays int, entries []resolver.Entry, rules []model.AvailabilityRule) map[string]model.DailyAvailability {
	cache := make(map[string]model.DailyAvailability, horizonDays+1)
	if len(entries) == 0 {
		return cache
	}
	for i := 0; i <= horizonDays; i++ {
		d := dates.AddDays(today, i)
		if day, ok := resolver.Resolve(d, entries, rules); ok {
			cache[day.Date] = day
		}
	}
	return cache
}

func cloneSchedule(s model.RecurringSchedule) model.RecurringSchedule {
	s.DaysOfWeek = slices.Clone(s.DaysOfWeek)
	s.Exceptions = slices.Clone(s.Exceptions)
	if s.DayOfMonth != nil {
		d := *s.DayOfMonth
		s.DayOfMonth = &d
	}
	if s.Price != nil {
		p := *s.Price
		s.Price = &p
	}
	return s
}

func cloneDay(d model.DailyAvailability) model.DailyAvailability {
	d.TimeSlots = slices.Clone(d.TimeSlots)
	return d
}
