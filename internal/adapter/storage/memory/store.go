// Package memory is an in-process storage backend selected with
// storage.driver=memory. It implements the same repository ports as the
// postgres package and is used for local runs and end-to-end tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrForeignTx is returned when a repository receives a transaction that
// was not started by the same Store.
var ErrForeignTx = errors.New("memory: transaction does not belong to this store")

// Store holds all tables. Transactions are serialized by a one-slot semaphore,
// which plays the role of SELECT ... FOR UPDATE on every account at once.
// Reads outside a transaction wait for the slot, so they only ever see
// committed state.
type Store struct {
	txSlot chan struct{}

	mu          sync.RWMutex
	accounts    map[uuid.UUID]*domain.Account
	emails      map[string]uuid.UUID
	ledger      map[uuid.UUID][]domain.LedgerEntry
	orders      map[uuid.UUID]*domain.Order
	orderIDs    map[uuid.UUID][]uuid.UUID
	idempotency map[string]domain.IdempotencyLog
	audit       []domain.AuditLog
}

// New creates an empty store.
func New() *Store {
	return &Store{
		txSlot:      make(chan struct{}, 1),
		accounts:    make(map[uuid.UUID]*domain.Account),
		emails:      make(map[string]uuid.UUID),
		ledger:      make(map[uuid.UUID][]domain.LedgerEntry),
		orders:      make(map[uuid.UUID]*domain.Order),
		orderIDs:    make(map[uuid.UUID][]uuid.UUID),
		idempotency: make(map[string]domain.IdempotencyLog),
	}
}

// Begin implements ports.DBTransactor. It blocks until no other transaction
// is open or ctx is done.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.txSlot <- struct{}{}:
		return &Tx{store: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Tx is a store transaction. Writes apply immediately and are undone on Rollback.
// Only Commit and Rollback are implemented; the embedded pgx.Tx is nil.
type Tx struct {
	pgx.Tx
	store *Store
	undo  []func()
	done  bool
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	<-t.store.txSlot
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()

	t.undo = nil
	<-t.store.txSlot
	return nil
}

// write runs fn under the data lock and records its undo step.
func (s *Store) write(tx pgx.Tx, fn func() (undo func(), err error)) error {
	mtx, ok := tx.(*Tx)
	if !ok || mtx.store != s {
		return ErrForeignTx
	}
	if mtx.done {
		return pgx.ErrTxClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	undo, err := fn()
	if err != nil {
		return err
	}
	if undo != nil {
		mtx.undo = append(mtx.undo, undo)
	}
	return nil
}

// settled runs fn under the data lock once no transaction is open.
func (s *Store) settled(ctx context.Context, fn func()) error {
	select {
	case s.txSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.txSlot }()

	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return nil
}

// HealthCheck implements ports.HealthChecker for the in-memory store.
type HealthCheck struct{}

func (HealthCheck) Ping(ctx context.Context) error { return nil }

func (HealthCheck) Name() string { return "memory" }

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Wallet.Badges = append([]string{}, a.Wallet.Badges...)
	return &c
}

func copyOrder(o *domain.Order) domain.Order {
	c := *o
	c.Items = append([]domain.LineItem(nil), o.Items...)
	return c
}
