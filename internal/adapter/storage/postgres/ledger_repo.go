package postgres

import (
	"context"
	"fmt"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Rows are never updated or deleted.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends an entry within a database transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, account_id, type, amount, description, order_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.AccountID, e.Type, e.Amount, e.Description, e.OrderID, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries newest first. seq breaks ties between
// entries written in the same instant.
func (r *LedgerRepo) ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT id, account_id, type, amount, description, order_id, balance_after, created_at
		FROM ledger_entries WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.Type, &e.Amount, &e.Description,
			&e.OrderID, &e.BalanceAfter, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
