package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/ltrc_platform/internal/model"
	"github.com/Freeeeeet/ltrc_platform/internal/repository/base"
)

// MeetingRepository is the append-only booking store. There is no update or
// delete.
type MeetingRepository struct {
	*base.Repository
}

func NewMeetingRepository(pool *pgxpool.Pool) *MeetingRepository {
	return &MeetingRepository{Repository: base.NewRepository(pool)}
}

const meetingColumns = `id::text, id_number, name, request, additional_information, date, time, created_at, user_email, user_id::text`

func (r *MeetingRepository) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	query := `
		INSERT INTO meetings (id_number, name, request, additional_information, date, time, created_at, user_email, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`

	err := r.QueryRow(
		ctx, query,
		m.IDNumber,
		m.Name,
		m.Request,
		m.AdditionalInformation,
		m.Date,
		m.Time,
		m.CreatedAt,
		m.UserEmail,
		m.UserID,
	).Scan(&m.ID)

	if err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}

	return nil
}

// ListMeetingsByUser returns the user's meetings in no particular order.
func (r *MeetingRepository) ListMeetingsByUser(ctx context.Context, userID string) ([]*model.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE user_id = $1`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get meetings by user: %w", err)
	}
	return collectMeetings(rows)
}

// ListMeetings returns every meeting, newest first.
func (r *MeetingRepository) ListMeetings(ctx context.Context) ([]*model.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings ORDER BY created_at DESC`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get meetings: %w", err)
	}
	return collectMeetings(rows)
}

func collectMeetings(rows pgx.Rows) ([]*model.Meeting, error) {
	defer rows.Close()

	var meetings []*model.Meeting
	for rows.Next() {
		var m model.Meeting
		err := rows.Scan(
			&m.ID,
			&m.IDNumber,
			&m.Name,
			&m.Request,
			&m.AdditionalInformation,
			&m.Date,
			&m.Time,
			&m.CreatedAt,
			&m.UserEmail,
			&m.UserID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meetings: %w", err)
	}

	return meetings, nil
}
