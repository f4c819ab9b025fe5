package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupLedgerService(t *testing.T) (*LedgerServiceImpl, *mocks.MockLedgerRepository) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLedgerRepository(ctrl)
	svc := NewLedgerService(repo)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("ICT", 7*3600)) }
	return svc, repo
}

func TestLedgerService_Record_Success(t *testing.T) {
	svc, repo := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	accountID := uuid.New()
	orderID := uuid.New()

	repo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			assert.NotEqual(t, uuid.Nil, e.ID)
			assert.Equal(t, accountID, e.AccountID)
			assert.Equal(t, domain.EntryTypeRedeemed, e.Type)
			assert.Equal(t, int64(200), e.Amount)
			assert.Equal(t, int64(2300), e.BalanceAfter)
			require.NotNil(t, e.OrderID)
			assert.Equal(t, orderID, *e.OrderID)
			assert.Equal(t, time.UTC, e.CreatedAt.Location())
			return nil
		},
	)

	entry, err := svc.Record(ctx, tx, ports.RecordEntryRequest{
		AccountID:    accountID,
		Type:         domain.EntryTypeRedeemed,
		Amount:       200,
		Description:  "Used for order #abcdef",
		BalanceAfter: 2300,
		OrderID:      &orderID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Used for order #abcdef", entry.Description)
	assert.Equal(t, 3, entry.CreatedAt.Hour())
}

func TestLedgerService_Record_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := setupLedgerService(t)

	for _, amount := range []int64{0, -10} {
		_, err := svc.Record(context.Background(), &mockTx{}, ports.RecordEntryRequest{
			AccountID: uuid.New(),
			Type:      domain.EntryTypeEarned,
			Amount:    amount,
		})
		assertAppError(t, err, "WAL_001")
	}
}

func TestLedgerService_Record_RejectsUnknownType(t *testing.T) {
	svc, _ := setupLedgerService(t)

	_, err := svc.Record(context.Background(), &mockTx{}, ports.RecordEntryRequest{
		AccountID: uuid.New(),
		Type:      domain.EntryType("refund"),
		Amount:    5,
	})
	assertAppError(t, err, "REQ_001")
}

func TestLedgerService_Record_RepoError(t *testing.T) {
	svc, repo := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}

	repo.EXPECT().Create(ctx, tx, gomock.Any()).Return(errors.New("connection reset"))

	_, err := svc.Record(ctx, tx, ports.RecordEntryRequest{
		AccountID: uuid.New(),
		Type:      domain.EntryTypeBonus,
		Amount:    500,
	})
	assertAppError(t, err, "SYS_001")
}

func TestLedgerService_History_NonPositiveLimit(t *testing.T) {
	svc, _ := setupLedgerService(t)

	entries, err := svc.History(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLedgerService_History_EmptyIsNotNil(t *testing.T) {
	svc, repo := setupLedgerService(t)
	ctx := context.Background()
	accountID := uuid.New()

	repo.EXPECT().ListRecent(ctx, accountID, 20).Return(nil, nil)

	entries, err := svc.History(ctx, accountID, 20)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLedgerService_History_PassesThroughOrder(t *testing.T) {
	svc, repo := setupLedgerService(t)
	ctx := context.Background()
	accountID := uuid.New()

	stored := []domain.LedgerEntry{
		{ID: uuid.New(), Type: domain.EntryTypeRedeemed, Amount: 200, BalanceAfter: 300},
		{ID: uuid.New(), Type: domain.EntryTypeEarned, Amount: 500, BalanceAfter: 500},
	}
	repo.EXPECT().ListRecent(ctx, accountID, 2).Return(stored, nil)

	entries, err := svc.History(ctx, accountID, 2)
	require.NoError(t, err)
	assert.Equal(t, stored, entries)
}

func TestLedgerService_History_RepoError(t *testing.T) {
	svc, repo := setupLedgerService(t)
	ctx := context.Background()
	accountID := uuid.New()

	repo.EXPECT().ListRecent(ctx, accountID, 5).Return(nil, errors.New("timeout"))

	_, err := svc.History(ctx, accountID, 5)
	assertAppError(t, err, "SYS_001")
}
