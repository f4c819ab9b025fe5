package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	ledger      ports.LedgerService
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	transactor  ports.DBTransactor
	signupBonus int64
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	ledger ports.LedgerService,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	transactor ports.DBTransactor,
	signupBonus int64,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		ledger:      ledger,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		transactor:  transactor,
		signupBonus: signupBonus,
		log:         log,
	}
}

// Register creates an account with its wallet and signup bonus in one transaction.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(req.Email)

	existing, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	id := uuid.New()
	wallet := domain.NewWallet(id)
	wallet.CoinBalance = s.signupBonus
	wallet.UpdatedAt = now

	account := &domain.Account{
		ID:           id,
		Email:        email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		Wallet:       wallet,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	if s.signupBonus > 0 {
		if _, err := s.ledger.Record(ctx, dbTx, ports.RecordEntryRequest{
			AccountID:    id,
			Type:         domain.EntryTypeBonus,
			Amount:       s.signupBonus,
			Description:  domain.SignupBonusDescription,
			BalanceAfter: s.signupBonus,
		}); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", id.String()).
		Int64("signup_bonus", s.signupBonus).
		Msg("account registered")

	return s.issue(account)
}

// Login validates credentials and returns a JWT token with the account.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	account, err := s.accountRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	return s.issue(account)
}

func (s *AuthServiceImpl) issue(account *domain.Account) (*ports.AuthResult, error) {
	token, expiresAt, err := s.tokenSvc.Generate(account.ID, account.Role)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return &ports.AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account,
	}, nil
}
