package postgres

import (
	"context"
	"errors"
	"fmt"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, coin_balance, total_steps, steps_today, level, streak, badges, updated_at`

// WalletRepo implements ports.WalletRepository over the wallet columns of accounts.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetByAccountID fetches a wallet without locking.
func (r *WalletRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM accounts WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, accountID))
}

// GetByAccountIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, accountID))
}

// UpdateProgress persists balance, steps, level, streak and badges within a transaction.
func (r *WalletRepo) UpdateProgress(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE accounts
		SET coin_balance = $1, total_steps = $2, steps_today = $3, level = $4,
		    streak = $5, badges = $6, updated_at = NOW()
		WHERE id = $7`

	badges := w.Badges
	if badges == nil {
		badges = []string{}
	}
	tag, err := tx.Exec(ctx, query,
		w.CoinBalance, w.TotalSteps, w.StepsToday, w.Level,
		w.Streak, badges, w.AccountID,
	)
	if err != nil {
		return fmt.Errorf("update wallet progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", w.AccountID)
	}
	return nil
}

// DebitCoins decrements the balance only when it covers amount, so a stale read
// can never drive the balance negative.
func (r *WalletRepo) DebitCoins(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, bool, error) {
	query := `UPDATE accounts SET coin_balance = coin_balance - $1, updated_at = NOW()
		WHERE id = $2 AND coin_balance >= $1
		RETURNING coin_balance`

	var balance int64
	err := tx.QueryRow(ctx, query, amount, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("debit coins: %w", err)
	}
	return balance, true, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.AccountID, &w.CoinBalance, &w.TotalSteps, &w.StepsToday,
		&w.Level, &w.Streak, &w.Badges, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	if w.Badges == nil {
		w.Badges = []string{}
	}
	return w, nil
}
