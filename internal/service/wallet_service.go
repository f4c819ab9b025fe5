package service

import (
	"context"
	"fmt"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
// It is the only writer of coin balances; every balance change is paired
// with exactly one ledger entry in the same transaction.
type WalletServiceImpl struct {
	walletRepo   ports.WalletRepository
	ledger       ports.LedgerService
	transactor   ports.DBTransactor
	stepsPerCoin int64
	historyLimit int
	log          zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	stepsPerCoin int64,
	historyLimit int,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo:   walletRepo,
		ledger:       ledger,
		transactor:   transactor,
		stepsPerCoin: stepsPerCoin,
		historyLimit: historyLimit,
		log:          log,
	}
}

// Earn credits coins, advances the step counters and recomputes the level.
func (s *WalletServiceImpl) Earn(ctx context.Context, req ports.EarnRequest) (*ports.EarnResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByAccountIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	if !wallet.CanCredit(req.Amount, s.stepsPerCoin) {
		return nil, apperror.ErrInvalidAmount()
	}

	prevLevel := wallet.Level
	wallet.Credit(req.Amount, s.stepsPerCoin)

	if err := s.walletRepo.UpdateProgress(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	description := req.Description
	if description == "" {
		description = domain.DefaultEarnDescription
	}
	if _, err := s.ledger.Record(ctx, dbTx, ports.RecordEntryRequest{
		AccountID:    req.AccountID,
		Type:         domain.EntryTypeEarned,
		Amount:       req.Amount,
		Description:  description,
		BalanceAfter: wallet.CoinBalance,
	}); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	evt := s.log.Info().
		Str("account_id", req.AccountID.String()).
		Int64("amount", req.Amount).
		Int64("balance", wallet.CoinBalance)
	if wallet.Level != prevLevel {
		evt = evt.Int("level", wallet.Level)
	}
	evt.Msg("coins earned")

	return &ports.EarnResult{
		CoinBalance: wallet.CoinBalance,
		Level:       wallet.Level,
		TotalSteps:  wallet.TotalSteps,
	}, nil
}

// Redeem debits coins in a transaction of its own.
func (s *WalletServiceImpl) Redeem(ctx context.Context, req ports.RedeemRequest) (*ports.RedeemResult, error) {
	if req.Amount < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	res, err := s.RedeemInTx(ctx, dbTx, req)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Int64("amount", req.Amount).
		Int64("balance", res.CoinBalance).
		Msg("coins redeemed")

	return res, nil
}

// RedeemInTx debits coins inside tx. A zero amount is a no-op that reports the
// current balance and writes no ledger entry.
func (s *WalletServiceImpl) RedeemInTx(ctx context.Context, tx pgx.Tx, req ports.RedeemRequest) (*ports.RedeemResult, error) {
	if req.Amount < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if req.Amount == 0 {
		wallet, err := s.lockWallet(ctx, tx, req.AccountID)
		if err != nil {
			return nil, err
		}
		return &ports.RedeemResult{CoinBalance: wallet.CoinBalance}, nil
	}

	newBalance, applied, err := s.walletRepo.DebitCoins(ctx, tx, req.AccountID, req.Amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit coins: %w", err))
	}
	if !applied {
		// Nothing was written; tell a missing wallet apart from a short balance.
		if _, err := s.lockWallet(ctx, tx, req.AccountID); err != nil {
			return nil, err
		}
		return nil, apperror.ErrInsufficientCoins()
	}

	description := req.Description
	if description == "" {
		description = domain.DefaultRedeemDescription
	}
	if _, err := s.ledger.Record(ctx, tx, ports.RecordEntryRequest{
		AccountID:    req.AccountID,
		Type:         domain.EntryTypeRedeemed,
		Amount:       req.Amount,
		Description:  description,
		BalanceAfter: newBalance,
		OrderID:      req.OrderID,
	}); err != nil {
		return nil, err
	}

	return &ports.RedeemResult{CoinBalance: newBalance}, nil
}

// ImportProgress sets step counters and streak and awards badges, leaving the
// coin balance alone. Lifetime steps may only grow.
func (s *WalletServiceImpl) ImportProgress(ctx context.Context, req ports.ProgressImport) (*domain.Wallet, error) {
	if req.TotalSteps < 0 || req.StepsToday < 0 || req.StepsToday > req.TotalSteps || req.Streak < 0 {
		return nil, apperror.Validation("Invalid activity counters")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.TotalSteps < wallet.TotalSteps {
		return nil, apperror.Validation("Total steps cannot decrease")
	}

	wallet.TotalSteps = req.TotalSteps
	wallet.StepsToday = req.StepsToday
	wallet.Streak = req.Streak
	wallet.Level = domain.LevelOf(wallet.TotalSteps)
	awarded := 0
	for _, b := range req.Badges {
		if wallet.AwardBadge(b) {
			awarded++
		}
	}

	if err := s.walletRepo.UpdateProgress(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Int64("total_steps", wallet.TotalSteps).
		Int("streak", wallet.Streak).
		Int("badges_awarded", awarded).
		Msg("progress imported")

	return wallet, nil
}

// GetWalletSummary assembles the dashboard view of a wallet.
func (s *WalletServiceImpl) GetWalletSummary(ctx context.Context, accountID uuid.UUID) (*ports.WalletSummary, error) {
	wallet, err := s.walletRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	level := wallet.Level
	if wallet.LevelDrifted() {
		level = domain.LevelOf(wallet.TotalSteps)
		s.log.Warn().
			Str("account_id", accountID.String()).
			Int("stored_level", wallet.Level).
			Int("level", level).
			Msg("stored level does not match total steps")
	}

	history, err := s.ledger.History(ctx, accountID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	badges := wallet.Badges
	if badges == nil {
		badges = []string{}
	}

	return &ports.WalletSummary{
		CoinBalance:        wallet.CoinBalance,
		Level:              level,
		TotalSteps:         wallet.TotalSteps,
		StepsToday:         wallet.StepsToday,
		Streak:             wallet.Streak,
		Badges:             badges,
		NextLevelThreshold: domain.NextLevelThreshold(level),
		ProgressPercent:    domain.ProgressPercent(level, wallet.TotalSteps),
		RecentHistory:      history,
	}, nil
}

func (s *WalletServiceImpl) lockWallet(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByAccountIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}
