package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderServiceImpl implements ports.OrderService.
type OrderServiceImpl struct {
	orderRepo        ports.OrderRepository
	walletRepo       ports.WalletRepository
	wallet           ports.WalletService
	idempRepo        ports.IdempotencyRepository
	idempCache       ports.IdempotencyCache
	transactor       ports.DBTransactor
	enforceOwnership bool
	idempotencyTTL   time.Duration
	log              zerolog.Logger
	now              func() time.Time
}

// OrderOptions carries the order settings from config.
type OrderOptions struct {
	EnforceOwnership bool
	IdempotencyTTL   time.Duration
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	orderRepo ports.OrderRepository,
	walletRepo ports.WalletRepository,
	wallet ports.WalletService,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	opts OrderOptions,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:        orderRepo,
		walletRepo:       walletRepo,
		wallet:           wallet,
		idempRepo:        idempRepo,
		idempCache:       idempCache,
		transactor:       transactor,
		enforceOwnership: opts.EnforceOwnership,
		idempotencyTTL:   opts.IdempotencyTTL,
		log:              log,
		now:              time.Now,
	}
}

// Checkout places an order and redeems the coins applied to it atomically.
//
// Flow:
//  1. Validate input
//  2. Idempotency lookup (Redis, then Postgres) when the client sent a key
//  3. BEGIN; lock the wallet row; check the live balance
//  4. Insert the order, debit coins with a ledger entry, store the idempotency log
//  5. COMMIT; cache the response in Redis (best-effort)
func (s *OrderServiceImpl) Checkout(ctx context.Context, req ports.CheckoutRequest) (*domain.Order, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildCheckoutIdempotencyKey(req.AccountID, req.IdempotencyKey)

		// Layer 1: Redis idempotency check
		cached, err := s.idempCache.Get(ctx, idempKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return unmarshalCachedOrder(cached)
		}

		// Layer 2: DB idempotency check
		idempLog, err := s.idempRepo.Get(ctx, idempKey)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if idempLog != nil {
			return unmarshalCachedOrder(idempLog.ResponseJSON)
		}
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
	if req.CoinsUsed > wallet.CoinBalance {
		return nil, apperror.ErrInsufficientCoins()
	}

	discount, total := domain.ComputeTotal(req.Subtotal, req.CoinsUsed)
	now := s.now().UTC()
	order := &domain.Order{
		ID:                uuid.New(),
		AccountID:         req.AccountID,
		Items:             req.Items,
		Subtotal:          req.Subtotal,
		CoinsUsed:         req.CoinsUsed,
		CoinDiscount:      discount,
		TotalAmount:       total,
		PaymentMethod:     domain.PaymentMethodDemo,
		PaymentStatus:     domain.PaymentStatusCompleted,
		PaymentReference:  domain.DemoPaymentReference(now),
		ShippingAddress:   req.ShippingAddress,
		FulfillmentStatus: domain.FulfillmentProcessing,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	if order.CoinsUsed > 0 {
		if _, err := s.wallet.RedeemInTx(ctx, dbTx, ports.RedeemRequest{
			AccountID:   req.AccountID,
			Amount:      order.CoinsUsed,
			OrderID:     &order.ID,
			Description: order.RedemptionDescription(),
		}); err != nil {
			return nil, err
		}
	}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(order)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}

		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:          idempKey,
			OrderID:      order.ID,
			ResponseJSON: respJSON,
			CreatedAt:    now,
		}); err != nil {
			if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
				return nil, apperror.ErrDuplicateRequest()
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, s.idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("account_id", req.AccountID.String()).
		Int64("subtotal", order.Subtotal).
		Int64("coins_used", order.CoinsUsed).
		Int64("total", order.TotalAmount).
		Msg("order placed")

	return order, nil
}

// ListOrders returns the account's orders, newest first.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrder fetches one order. With ownership enforcement on, orders of other
// accounts are reported as not found.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, callerID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if s.enforceOwnership && order.AccountID != callerID {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

func validateCheckout(req ports.CheckoutRequest) error {
	if req.CoinsUsed < 0 {
		return apperror.ErrInvalidAmount()
	}
	if req.Subtotal < 0 {
		return apperror.Validation("subtotal must not be negative")
	}
	if len(req.Items) == 0 {
		return apperror.Validation("order must contain at least one item")
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return apperror.Validation(fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
		if item.UnitPrice < 0 {
			return apperror.Validation(fmt.Sprintf("items[%d]: price must not be negative", i))
		}
	}
	return nil
}

func unmarshalCachedOrder(data []byte) (*domain.Order, error) {
	order := &domain.Order{}
	if err := json.Unmarshal(data, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached order: %w", err))
	}
	return order, nil
}
