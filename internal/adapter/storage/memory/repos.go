package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct{ s *Store }

func NewAccountRepo(s *Store) *AccountRepo { return &AccountRepo{s: s} }

func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	return r.s.write(tx, func() (func(), error) {
		if _, taken := r.s.emails[a.Email]; taken {
			return nil, domain.ErrEmailTaken
		}
		stored := copyAccount(a)
		stored.Wallet.AccountID = a.ID
		id, email := a.ID, a.Email
		r.s.accounts[id] = stored
		r.s.emails[email] = id
		return func() {
			delete(r.s.accounts, id)
			delete(r.s.emails, email)
		}, nil
	})
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.settled(ctx, func() {
		if a, ok := r.s.accounts[id]; ok {
			out = copyAccount(a)
		}
	})
	return out, err
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.settled(ctx, func() {
		if id, ok := r.s.emails[email]; ok {
			out = copyAccount(r.s.accounts[id])
		}
	})
	return out, err
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, avatar string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.settled(ctx, func() {
		a, ok := r.s.accounts[id]
		if !ok {
			return
		}
		a.Name = name
		a.Avatar = avatar
		a.UpdatedAt = time.Now().UTC()
		out = copyAccount(a)
	})
	return out, err
}

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func NewWalletRepo(s *Store) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	var w *domain.Wallet
	err := r.s.settled(ctx, func() { w = r.wallet(accountID) })
	return w, err
}

// GetByAccountIDForUpdate needs no row lock: holding tx already excludes every other writer.
func (r *WalletRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error) {
	var w *domain.Wallet
	err := r.s.write(tx, func() (func(), error) {
		w = r.wallet(accountID)
		return nil, nil
	})
	return w, err
}

func (r *WalletRepo) UpdateProgress(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	return r.s.write(tx, func() (func(), error) {
		a, ok := r.s.accounts[w.AccountID]
		if !ok {
			return nil, fmt.Errorf("wallet not found: %s", w.AccountID)
		}
		prev := a.Wallet
		prevUpdated := a.UpdatedAt

		now := time.Now().UTC()
		a.Wallet.CoinBalance = w.CoinBalance
		a.Wallet.TotalSteps = w.TotalSteps
		a.Wallet.StepsToday = w.StepsToday
		a.Wallet.Level = w.Level
		a.Wallet.Streak = w.Streak
		a.Wallet.Badges = append([]string{}, w.Badges...)
		a.Wallet.UpdatedAt = now
		a.UpdatedAt = now
		return func() {
			a.Wallet = prev
			a.UpdatedAt = prevUpdated
		}, nil
	})
}

func (r *WalletRepo) DebitCoins(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, bool, error) {
	var (
		balance int64
		applied bool
	)
	err := r.s.write(tx, func() (func(), error) {
		a, ok := r.s.accounts[accountID]
		if !ok || a.Wallet.CoinBalance < amount {
			return nil, nil
		}
		a.Wallet.CoinBalance -= amount
		balance, applied = a.Wallet.CoinBalance, true
		return func() { a.Wallet.CoinBalance += amount }, nil
	})
	return balance, applied, err
}

// wallet must be called with the data lock held.
func (r *WalletRepo) wallet(accountID uuid.UUID) *domain.Wallet {
	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil
	}
	w := copyAccount(a).Wallet
	return &w
}

// LedgerRepo implements ports.LedgerRepository. Slice order is insertion order.
type LedgerRepo struct{ s *Store }

func NewLedgerRepo(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	return r.s.write(tx, func() (func(), error) {
		if _, ok := r.s.accounts[e.AccountID]; !ok {
			return nil, fmt.Errorf("insert ledger entry: account %s does not exist", e.AccountID)
		}
		entries := r.s.ledger[e.AccountID]
		n := len(entries)
		r.s.ledger[e.AccountID] = append(entries, *e)
		return func() { r.s.ledger[e.AccountID] = r.s.ledger[e.AccountID][:n] }, nil
	})
}

func (r *LedgerRepo) ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		return []domain.LedgerEntry{}, nil
	}

	var out []domain.LedgerEntry
	err := r.s.settled(ctx, func() {
		entries := r.s.ledger[accountID]
		out = make([]domain.LedgerEntry, 0, min(limit, len(entries)))
		for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, entries[i])
		}
	})
	return out, err
}

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct{ s *Store }

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	return r.s.write(tx, func() (func(), error) {
		if _, exists := r.s.orders[o.ID]; exists {
			return nil, fmt.Errorf("insert order: duplicate id %s", o.ID)
		}
		stored := copyOrder(o)
		r.s.orders[o.ID] = &stored
		ids := r.s.orderIDs[o.AccountID]
		n := len(ids)
		r.s.orderIDs[o.AccountID] = append(ids, o.ID)
		return func() {
			delete(r.s.orders, o.ID)
			r.s.orderIDs[o.AccountID] = r.s.orderIDs[o.AccountID][:n]
		}, nil
	})
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.settled(ctx, func() {
		if o, ok := r.s.orders[id]; ok {
			c := copyOrder(o)
			out = &c
		}
	})
	return out, err
}

func (r *OrderRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	var out []domain.Order
	err := r.s.settled(ctx, func() {
		ids := r.s.orderIDs[accountID]
		out = make([]domain.Order, 0, len(ids))
		for i := len(ids) - 1; i >= 0; i-- {
			out = append(out, copyOrder(r.s.orders[ids[i]]))
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct{ s *Store }

func NewIdempotencyRepo(s *Store) *IdempotencyRepo { return &IdempotencyRepo{s: s} }

func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	return r.s.write(tx, func() (func(), error) {
		if _, exists := r.s.idempotency[log.Key]; exists {
			return nil, domain.ErrDuplicateIdempotencyKey
		}
		r.s.idempotency[log.Key] = *log
		return func() { delete(r.s.idempotency, log.Key) }, nil
	})
}

func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	var out *domain.IdempotencyLog
	err := r.s.settled(ctx, func() {
		if log, ok := r.s.idempotency[key]; ok {
			out = &log
		}
	})
	return out, err
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}

// Entries returns a snapshot of the audit trail.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audit...)
}
