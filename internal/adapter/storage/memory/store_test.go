package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s *Store, balance int64) *domain.Account {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	w := domain.NewWallet(id)
	w.CoinBalance = balance
	a := &domain.Account{ID: id, Email: id.String() + "@example.com", Name: "Runner", Role: domain.RoleUser, Wallet: w}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewAccountRepo(s).Create(ctx, tx, a))
	require.NoError(t, tx.Commit(ctx))
	return a
}

func TestStore_CommitPersists(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 500)

	got, err := NewAccountRepo(s).GetByEmail(ctx, a.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(500), got.Wallet.CoinBalance)
	assert.Equal(t, a.ID, got.Wallet.AccountID)
}

func TestStore_RollbackUndoesEveryWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 500)

	wallets := NewWalletRepo(s)
	ledger := NewLedgerRepo(s)
	orders := NewOrderRepo(s)
	idem := NewIdempotencyRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	order := &domain.Order{ID: uuid.New(), AccountID: a.ID, CreatedAt: time.Now()}
	require.NoError(t, orders.Create(ctx, tx, order))
	balance, applied, err := wallets.DebitCoins(ctx, tx, a.ID, 200)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, int64(300), balance)
	require.NoError(t, ledger.Create(ctx, tx, &domain.LedgerEntry{ID: uuid.New(), AccountID: a.ID, Type: domain.EntryTypeRedeemed, Amount: 200, BalanceAfter: 300}))
	require.NoError(t, idem.Create(ctx, tx, &domain.IdempotencyLog{Key: "k", OrderID: order.ID}))

	require.NoError(t, tx.Rollback(ctx))

	w, _ := wallets.GetByAccountID(ctx, a.ID)
	assert.Equal(t, int64(500), w.CoinBalance)
	entries, _ := ledger.ListRecent(ctx, a.ID, 10)
	assert.Empty(t, entries)
	got, _ := orders.GetByID(ctx, order.ID)
	assert.Nil(t, got)
	list, _ := orders.ListByAccount(ctx, a.ID)
	assert.Empty(t, list)
	log, _ := idem.Get(ctx, "k")
	assert.Nil(t, log)
}

func TestStore_RollbackAfterCommit(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)

	// The slot was released exactly once.
	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestStore_BeginHonoursContext(t *testing.T) {
	s := New()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_ForeignTxRejected(t *testing.T) {
	s1, s2 := New(), New()
	ctx := context.Background()

	tx, err := s1.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	err = NewLedgerRepo(s2).Create(ctx, tx, &domain.LedgerEntry{})
	assert.ErrorIs(t, err, ErrForeignTx)
}

func TestAccountRepo_DuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 0)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	dup := &domain.Account{ID: uuid.New(), Email: a.Email}
	assert.ErrorIs(t, NewAccountRepo(s).Create(ctx, tx, dup), domain.ErrEmailTaken)
}

func TestAccountRepo_UpdateProfile(t *testing.T) {
	s := New()
	a := seedAccount(t, s, 0)

	got, err := NewAccountRepo(s).UpdateProfile(context.Background(), a.ID, "Sprinter", "https://img/x.png")
	require.NoError(t, err)
	assert.Equal(t, "Sprinter", got.Name)
	assert.Equal(t, "https://img/x.png", got.Avatar)

	missing, err := NewAccountRepo(s).UpdateProfile(context.Background(), uuid.New(), "x", "")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWalletRepo_DebitCoins_Insufficient(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 100)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, applied, err := NewWalletRepo(s).DebitCoins(ctx, tx, a.ID, 101)
	require.NoError(t, err)
	assert.False(t, applied)
	require.NoError(t, tx.Commit(ctx))

	w, _ := NewWalletRepo(s).GetByAccountID(ctx, a.ID)
	assert.Equal(t, int64(100), w.CoinBalance)
}

func TestLedgerRepo_ListRecent_NewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 0)
	ledger := NewLedgerRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	at := time.Now()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, ledger.Create(ctx, tx, &domain.LedgerEntry{
			ID: uuid.New(), AccountID: a.ID, Type: domain.EntryTypeEarned, Amount: i, BalanceAfter: i, CreatedAt: at,
		}))
	}
	require.NoError(t, tx.Commit(ctx))

	entries, err := ledger.ListRecent(ctx, a.ID, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(5), entries[0].Amount)
	assert.Equal(t, int64(3), entries[2].Amount)

	none, err := ledger.ListRecent(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestOrderRepo_ListByAccount_NewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 0)
	orders := NewOrderRepo(s)

	base := time.Now()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	older := &domain.Order{ID: uuid.New(), AccountID: a.ID, CreatedAt: base.Add(-time.Hour)}
	newer := &domain.Order{ID: uuid.New(), AccountID: a.ID, CreatedAt: base}
	require.NoError(t, orders.Create(ctx, tx, newer))
	require.NoError(t, orders.Create(ctx, tx, older))
	require.NoError(t, tx.Commit(ctx))

	list, err := orders.ListByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestIdempotencyRepo_Duplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := NewIdempotencyRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, &domain.IdempotencyLog{Key: "k"}))
	assert.ErrorIs(t, repo.Create(ctx, tx, &domain.IdempotencyLog{Key: "k"}), domain.ErrDuplicateIdempotencyKey)
	require.NoError(t, tx.Commit(ctx))
}

func TestStore_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 1_000)
	wallets := NewWalletRepo(s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Begin(ctx)
			if err != nil {
				return
			}
			defer tx.Rollback(ctx) //nolint:errcheck
			if _, applied, err := wallets.DebitCoins(ctx, tx, a.ID, 100); err == nil && applied {
				if tx.Commit(ctx) == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	w, _ := wallets.GetByAccountID(ctx, a.ID)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), w.CoinBalance)
}

func TestIdempotencyCache_Expiry(t *testing.T) {
	c := NewIdempotencyCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHealthCheck(t *testing.T) {
	var hc HealthCheck
	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "memory", hc.Name())
}

func TestStore_ReadsWaitForOpenTx(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 1_000)
	wallets := NewWalletRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	balance, applied, err := wallets.DebitCoins(ctx, tx, a.ID, 400)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, int64(600), balance)

	seen := make(chan int64, 1)
	go func() {
		w, err := wallets.GetByAccountID(ctx, a.ID)
		if err != nil {
			seen <- -1
			return
		}
		seen <- w.CoinBalance
	}()

	select {
	case got := <-seen:
		t.Fatalf("read returned %d while the debit was uncommitted", got)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, tx.Rollback(ctx))
	select {
	case got := <-seen:
		assert.Equal(t, int64(1_000), got)
	case <-time.After(time.Second):
		t.Fatal("read still blocked after rollback")
	}
}

func TestStore_ReadDuringOpenTxHonoursContext(t *testing.T) {
	s := New()
	a := seedAccount(t, s, 1_000)
	orders := NewOrderRepo(s)
	ledger := NewLedgerRepo(s)

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback(context.Background()) //nolint:errcheck

	order := &domain.Order{ID: uuid.New(), AccountID: a.ID, CreatedAt: time.Now()}
	require.NoError(t, orders.Create(context.Background(), tx, order))
	require.NoError(t, ledger.Create(context.Background(), tx, &domain.LedgerEntry{
		ID: uuid.New(), AccountID: a.ID, Type: domain.EntryTypeRedeemed, Amount: 100, BalanceAfter: 900,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := orders.GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, got)

	list, err := orders.ListByAccount(ctx, a.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, list)

	entries, err := ledger.ListRecent(ctx, a.ID, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, entries)
}

func TestStore_CommittedWritesVisibleAfterCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 1_000)
	wallets := NewWalletRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, applied, err := wallets.DebitCoins(ctx, tx, a.ID, 400)
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, tx.Commit(ctx))

	w, err := wallets.GetByAccountID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), w.CoinBalance)
}

func TestWalletRepo_UpdateProgress_PersistsStreakAndBadges(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, 0)
	wallets := NewWalletRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := wallets.GetByAccountIDForUpdate(ctx, tx, a.ID)
	require.NoError(t, err)
	w.Streak = 14
	w.Badges = []string{"Early Bird", "10K Club"}
	require.NoError(t, wallets.UpdateProgress(ctx, tx, w))
	require.NoError(t, tx.Commit(ctx))

	w.Badges[0] = "mutated"
	got, err := wallets.GetByAccountID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Streak)
	assert.Equal(t, []string{"Early Bird", "10K Club"}, got.Badges)
}
