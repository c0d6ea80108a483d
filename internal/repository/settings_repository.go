package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/ltrc_platform/internal/model"
	"github.com/Freeeeeet/ltrc_platform/internal/repository/base"
)

// SettingsRepository reads and writes the single admin_settings row.
type SettingsRepository struct {
	*base.Repository
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{Repository: base.NewRepository(pool)}
}

// Get returns nil, nil when the row was never written.
func (r *SettingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	query := `
		SELECT available_times, email_notifications, updated_at
		FROM admin_settings
		WHERE id = 1
	`

	var s model.Settings
	err := r.QueryRow(ctx, query).Scan(&s.AvailableTimes, &s.EmailNotifications, &s.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Save upserts the row and sets UpdatedAt from the database clock.
func (r *SettingsRepository) Save(ctx context.Context, s *model.Settings) error {
	query := `
		INSERT INTO admin_settings (id, available_times, email_notifications, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET available_times = EXCLUDED.available_times,
		    email_notifications = EXCLUDED.email_notifications,
		    updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`

	times := s.AvailableTimes
	if times == nil {
		times = []string{}
	}
	if err := r.QueryRow(ctx, query, times, s.EmailNotifications).Scan(&s.UpdatedAt); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
