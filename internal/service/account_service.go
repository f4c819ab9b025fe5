package service

import (
	"context"
	"fmt"
	"strings"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"

	"github.com/google/uuid"
)

type accountService struct {
	accountRepo ports.AccountRepository
}

// NewAccountService creates a new profile service.
func NewAccountService(accountRepo ports.AccountRepository) ports.AccountService {
	return &accountService{accountRepo: accountRepo}
}

func (s *accountService) GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	return account, nil
}

// UpdateProfile replaces the display name and avatar. A blank name is rejected.
func (s *accountService) UpdateProfile(ctx context.Context, req ports.UpdateProfileRequest) (*domain.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name must not be empty")
	}

	account, err := s.accountRepo.UpdateProfile(ctx, req.AccountID, name, strings.TrimSpace(req.Avatar))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update profile: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	return account, nil
}
