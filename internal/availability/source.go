package availability

import (
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
)

// Availability modes selectable through configuration.
const (
	ModeAlwaysOpen = "always"
	ModeStatic     = "static"
	ModeConfigured = "configured"
)

// Source tells which ladder labels can be booked on a date. Callers never
// depend on the concrete variant.
type Source interface {
	SlotsFor(ctx context.Context, date calendar.Date) ([]string, error)
}

// IsAvailable reports whether label can be booked on date.
func IsAvailable(ctx context.Context, src Source, date calendar.Date, label string) (bool, error) {
	if date.IsZero() || !OnLadder(label) {
		return false, nil
	}
	slots, err := src.SlotsFor(ctx, date)
	if err != nil {
		return false, err
	}
	return slices.Contains(slots, label), nil
}

// AlwaysOpen offers the whole ladder on every date.
type AlwaysOpen struct{}

func (AlwaysOpen) SlotsFor(_ context.Context, date calendar.Date) ([]string, error) {
	if date.IsZero() {
		return nil, nil
	}
	return slices.Clone(Ladder), nil
}

// StaticSource is a fixed date -> labels map. Dates absent from the map have
// no slots.
type StaticSource struct {
	slots map[calendar.Date][]string
}

func NewStaticSource(slots map[calendar.Date][]string) *StaticSource {
	m := make(map[calendar.Date][]string, len(slots))
	for d, labels := range slots {
		m[d] = Normalize(labels)
	}
	return &StaticSource{slots: m}
}

// seededSlots is the hardcoded map for today and tomorrow.
func seededSlots(today calendar.Date) *StaticSource {
	return NewStaticSource(map[calendar.Date][]string{
		today:            {"9:00 AM", "10:00 AM", "11:00 AM", "2:00 PM", "3:00 PM"},
		today.AddDays(1): {"9:00 AM", "1:00 PM", "4:00 PM"},
	})
}

// SeededSource is the static map seeded with today and tomorrow. The seed
// dates are read from the clock on every lookup, so the map moves forward
// at midnight.
type SeededSource struct {
	today func() calendar.Date
}

func SeededStaticSource(today func() calendar.Date) *SeededSource {
	return &SeededSource{today: today}
}

func (s *SeededSource) SlotsFor(ctx context.Context, date calendar.Date) ([]string, error) {
	return seededSlots(s.today()).SlotsFor(ctx, date)
}

func (s *StaticSource) SlotsFor(_ context.Context, date calendar.Date) ([]string, error) {
	return slices.Clone(s.slots[date]), nil
}

// TimesLoader returns the labels an administrator enabled.
type TimesLoader interface {
	AvailableTimes(ctx context.Context) ([]string, error)
}

// ConfiguredSource offers the administrator-enabled labels on every date.
type ConfiguredSource struct {
	loader TimesLoader
}

func NewConfiguredSource(loader TimesLoader) *ConfiguredSource {
	return &ConfiguredSource{loader: loader}
}

func (s *ConfiguredSource) SlotsFor(ctx context.Context, date calendar.Date) ([]string, error) {
	if date.IsZero() {
		return nil, nil
	}
	labels, err := s.loader.AvailableTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load available times: %w", err)
	}
	return Normalize(labels), nil
}

// FromMode picks the source variant for a configured mode. today is only
// used by the static mode.
func FromMode(mode string, today func() calendar.Date, loader TimesLoader) (Source, error) {
	switch mode {
	case "", ModeAlwaysOpen:
		return AlwaysOpen{}, nil
	case ModeStatic:
		if today == nil {
			return nil, fmt.Errorf("availability mode %q requires a clock", mode)
		}
		return SeededStaticSource(today), nil
	case ModeConfigured:
		if loader == nil {
			return nil, fmt.Errorf("availability mode %q requires a settings loader", mode)
		}
		return NewConfiguredSource(loader), nil
	default:
		return nil, fmt.Errorf("unknown availability mode %q", mode)
	}
}
