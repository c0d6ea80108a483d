package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/repository/base"
)

// AccountRepository stores identity accounts.
type AccountRepository struct {
	*base.Repository
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{Repository: base.NewRepository(pool)}
}

const accountColumns = `id::text, email, password_hash, display_name, is_admin, disabled, created_at`

// CreateAccount returns identity.ErrEmailTaken when the email is registered.
func (r *AccountRepository) CreateAccount(ctx context.Context, a *identity.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, display_name, is_admin, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.ExecAffected(ctx, query,
		a.ID,
		a.Email,
		a.PasswordHash,
		a.DisplayName,
		a.IsAdmin,
		a.Disabled,
		a.CreatedAt,
	)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *AccountRepository) AccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(r.QueryRow(ctx, query, email))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) AccountByID(ctx context.Context, id string) (*identity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*identity.Account, error) {
	var a identity.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.DisplayName,
		&a.IsAdmin,
		&a.Disabled,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
