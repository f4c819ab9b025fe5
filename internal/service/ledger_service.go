package service

import (
	"context"
	"fmt"
	"time"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	repo ports.LedgerRepository
	now  func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(repo ports.LedgerRepository) *LedgerServiceImpl {
	return &LedgerServiceImpl{repo: repo, now: time.Now}
}

// Record appends one entry inside the caller's transaction.
// The caller has already applied the balance change; BalanceAfter is taken as given.
func (s *LedgerServiceImpl) Record(ctx context.Context, tx pgx.Tx, req ports.RecordEntryRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Type.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown ledger entry type %q", req.Type))
	}

	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		Type:         req.Type,
		Amount:       req.Amount,
		Description:  req.Description,
		OrderID:      req.OrderID,
		BalanceAfter: req.BalanceAfter,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.Create(ctx, tx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}
	return entry, nil
}

// History returns up to limit entries, newest first.
func (s *LedgerServiceImpl) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		return []domain.LedgerEntry{}, nil
	}

	entries, err := s.repo.ListRecent(ctx, accountID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, nil
}
