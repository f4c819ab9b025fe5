package ports

import (
	"context"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
// Create runs inside the registration transaction so the signup bonus lands atomically.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, avatar string) (*domain.Account, error)
}

// WalletRepository defines persistence operations for the wallet columns of an account.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error)
	GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error)
	// UpdateProgress writes balance, steps and level after a credit.
	UpdateProgress(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	// DebitCoins decrements the balance only if it covers amount.
	// applied is false when the balance was too low; nothing is written in that case.
	DebitCoins(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (newBalance int64, applied bool, err error)
}

// LedgerRepository defines persistence for the append-only coin ledger.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
// Create returns domain.ErrDuplicateIdempotencyKey when the key is already stored.
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
