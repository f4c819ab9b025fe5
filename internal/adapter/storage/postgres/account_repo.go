package postgres

import (
	"context"
	"errors"
	"fmt"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, email, name, password_hash, avatar, role,
	coin_balance, total_steps, steps_today, level, streak, badges, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts the account together with its initial wallet columns.
// Returns domain.ErrEmailTaken if the email is already registered.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	w := a.Wallet
	_, err := tx.Exec(ctx, query,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Avatar, a.Role,
		w.CoinBalance, w.TotalSteps, w.StepsToday, w.Level, w.Streak, w.Badges,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail fetches an account by its normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

// UpdateProfile changes the display fields and returns the updated account.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, avatar string) (*domain.Account, error) {
	query := `UPDATE accounts SET name = $1, avatar = $2, updated_at = NOW()
		WHERE id = $3 RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, name, avatar, id))
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	w := &a.Wallet
	err := row.Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Avatar, &a.Role,
		&w.CoinBalance, &w.TotalSteps, &w.StepsToday, &w.Level, &w.Streak, &w.Badges,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	w.AccountID = a.ID
	w.UpdatedAt = a.UpdatedAt
	if w.Badges == nil {
		w.Badges = []string{}
	}
	return a, nil
}
