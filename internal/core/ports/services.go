package ports

import (
	"context"
	"time"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(accountID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Role      domain.Role
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// LedgerService appends to and reads the coin ledger. It never touches balances.
type LedgerService interface {
	Record(ctx context.Context, tx pgx.Tx, req RecordEntryRequest) (*domain.LedgerEntry, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// RecordEntryRequest describes one ledger append.
type RecordEntryRequest struct {
	AccountID    uuid.UUID
	Type         domain.EntryType
	Amount       int64
	Description  string
	BalanceAfter int64
	OrderID      *uuid.UUID
}

// WalletService owns every mutation of coin balances.
type WalletService interface {
	Earn(ctx context.Context, req EarnRequest) (*EarnResult, error)
	Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error)
	// RedeemInTx debits inside a transaction owned by the caller.
	RedeemInTx(ctx context.Context, tx pgx.Tx, req RedeemRequest) (*RedeemResult, error)
	GetWalletSummary(ctx context.Context, accountID uuid.UUID) (*WalletSummary, error)
}

type EarnRequest struct {
	AccountID   uuid.UUID
	Amount      int64
	Description string
}

type EarnResult struct {
	CoinBalance int64 `json:"coin_balance"`
	Level       int   `json:"level"`
	TotalSteps  int64 `json:"total_steps"`
}

// ProgressImport carries activity counters recorded outside the API.
type ProgressImport struct {
	AccountID  uuid.UUID
	TotalSteps int64
	StepsToday int64
	Streak     int
	Badges     []string
}

type RedeemRequest struct {
	AccountID   uuid.UUID
	Amount      int64
	OrderID     *uuid.UUID
	Description string
}

type RedeemResult struct {
	CoinBalance int64 `json:"coin_balance"`
}

// WalletSummary is the read model behind GET /wallet.
type WalletSummary struct {
	CoinBalance        int64                `json:"coin_balance"`
	Level              int                  `json:"level"`
	TotalSteps         int64                `json:"total_steps"`
	StepsToday         int64                `json:"steps_today"`
	Streak             int                  `json:"streak"`
	Badges             []string             `json:"badges"`
	NextLevelThreshold int64                `json:"next_level_threshold"`
	ProgressPercent    int                  `json:"progress_percent"`
	RecentHistory      []domain.LedgerEntry `json:"recent_history"`
}

// OrderService places and reads orders.
type OrderService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error)
	GetOrder(ctx context.Context, callerID, orderID uuid.UUID) (*domain.Order, error)
}

// CheckoutRequest holds validated input for checkout.
type CheckoutRequest struct {
	AccountID       uuid.UUID
	Items           []domain.LineItem
	Subtotal        int64
	CoinsUsed       int64
	ShippingAddress domain.ShippingAddress
	IdempotencyKey  string // optional
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// AuthResult is returned by both Register and Login.
type AuthResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *domain.Account `json:"account"`
}

// AccountService reads and edits the caller's profile.
type AccountService interface {
	GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.Account, error)
}

type UpdateProfileRequest struct {
	AccountID uuid.UUID
	Name      string
	Avatar    string
}

// AuditService records security-relevant actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
