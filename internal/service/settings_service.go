package service

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

type SettingsStore interface {
	Get(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, s *model.Settings) error
}

// SettingsService manages the admin settings document. It also feeds the
// configured availability source.
type SettingsService struct {
	store  SettingsStore
	logger *zap.Logger
}

func NewSettingsService(store SettingsStore, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: logger,
	}
}

// DefaultSettings offers the whole ladder with notifications on.
func DefaultSettings() *model.Settings {
	return &model.Settings{
		AvailableTimes:     slices.Clone(availability.Ladder),
		EmailNotifications: true,
	}
}

// Get falls back to DefaultSettings when nothing was saved yet.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if settings == nil {
		return DefaultSettings(), nil
	}
	settings.AvailableTimes = availability.Normalize(settings.AvailableTimes)
	return settings, nil
}

// Update stores new settings. Every time must be a ladder label.
func (s *SettingsService) Update(ctx context.Context, settings *model.Settings) error {
	for _, label := range settings.AvailableTimes {
		if !availability.OnLadder(label) {
			return &ValidationError{Message: fmt.Sprintf("%q is not a bookable time", label)}
		}
	}
	settings.AvailableTimes = availability.Normalize(settings.AvailableTimes)

	if err := s.store.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("Admin settings updated",
		zap.Strings("available_times", settings.AvailableTimes),
		zap.Bool("email_notifications", settings.EmailNotifications),
	)
	return nil
}

// AvailableTimes implements availability.TimesLoader.
func (s *SettingsService) AvailableTimes(ctx context.Context) ([]string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings.AvailableTimes, nil
}
