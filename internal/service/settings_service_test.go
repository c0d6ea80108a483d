package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

type memSettings struct {
	saved *model.Settings
	err   error
}

func (m *memSettings) Get(context.Context) (*model.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.saved == nil {
		return nil, nil
	}
	cp := *m.saved
	return &cp, nil
}

func (m *memSettings) Save(_ context.Context, s *model.Settings) error {
	if m.err != nil {
		return m.err
	}
	cp := *s
	m.saved = &cp
	return nil
}

func TestSettingsDefaults(t *testing.T) {
	svc := NewSettingsService(&memSettings{}, zap.NewNop())

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, availability.Ladder, got.AvailableTimes)
	assert.True(t, got.EmailNotifications)
}

func TestSettingsUpdate(t *testing.T) {
	store := &memSettings{}
	svc := NewSettingsService(store, zap.NewNop())

	err := svc.Update(context.Background(), &model.Settings{AvailableTimes: []string{"3:00 PM", "9:00 AM", "3:00 PM"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00 AM", "3:00 PM"}, store.saved.AvailableTimes)
	assert.False(t, store.saved.EmailNotifications)

	err = svc.Update(context.Background(), &model.Settings{AvailableTimes: []string{"9:00 AM", "7:30 PM"}})
	assert.Equal(t, `"7:30 PM" is not a bookable time`, validationMessage(t, err))
	assert.Equal(t, []string{"9:00 AM", "3:00 PM"}, store.saved.AvailableTimes, "rejected update leaves settings alone")
}

func TestSettingsFeedConfiguredSource(t *testing.T) {
	store := &memSettings{saved: &model.Settings{AvailableTimes: []string{"10:00 AM", "2:00 PM"}}}
	svc := NewSettingsService(store, zap.NewNop())

	src, err := availability.FromMode(availability.ModeConfigured, nil, svc)
	require.NoError(t, err)

	day := calendar.Date{Year: 2024, Month: 3, Day: 15}
	ok, err := availability.IsAvailable(context.Background(), src, day, "2:00 PM")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = availability.IsAvailable(context.Background(), src, day, "9:00 AM")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsStoreError(t *testing.T) {
	svc := NewSettingsService(&memSettings{err: errors.New("timeout")}, zap.NewNop())

	_, err := svc.Get(context.Background())
	assert.ErrorContains(t, err, "timeout")
	_, err = svc.AvailableTimes(context.Background())
	assert.ErrorContains(t, err, "timeout")
}
