package dto

import (
	"time"

	"stepstyle/internal/core/domain"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=128" sanitize:"-"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// UpdateProfileRequest is the request body for PUT /auth/me.
type UpdateProfileRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=100"`
	Avatar string `json:"avatar" binding:"omitempty,max=500,safe_url" sanitize:"-"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"` // Unix timestamp
	Account   AccountResponse `json:"account"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Avatar      string   `json:"avatar"`
	Role        string   `json:"role"`
	CoinBalance int64    `json:"coin_balance"`
	Level       int      `json:"level"`
	TotalSteps  int64    `json:"total_steps"`
	StepsToday  int64    `json:"steps_today"`
	Streak      int      `json:"streak"`
	Badges      []string `json:"badges"`
	CreatedAt   string   `json:"created_at"`
}

// NewAccountResponse flattens an account and its wallet.
func NewAccountResponse(a *domain.Account) AccountResponse {
	badges := a.Wallet.Badges
	if badges == nil {
		badges = []string{}
	}
	return AccountResponse{
		ID:          a.ID.String(),
		Email:       a.Email,
		Name:        a.Name,
		Avatar:      a.Avatar,
		Role:        string(a.Role),
		CoinBalance: a.Wallet.CoinBalance,
		Level:       a.Wallet.Level,
		TotalSteps:  a.Wallet.TotalSteps,
		StepsToday:  a.Wallet.StepsToday,
		Streak:      a.Wallet.Streak,
		Badges:      badges,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

// MaxEarnAmount caps a single earn request.
const MaxEarnAmount = 1_000_000

// EarnRequest is the request body for POST /wallet/earn.
// A non-positive Amount is left to the wallet service so that it maps to WAL_001.
type EarnRequest struct {
	Amount      int64  `json:"amount" binding:"lte=1000000"`
	Description string `json:"description" binding:"max=200"`
}

// LineItemRequest is one cart line in a checkout.
type LineItemRequest struct {
	ProductID string `json:"product_id" binding:"required,max=64,safe_id"`
	Name      string `json:"name" binding:"required,max=200"`
	Image     string `json:"image" binding:"omitempty,max=500,safe_url" sanitize:"-"`
	Price     int64  `json:"price" binding:"gte=0"`
	Quantity  int    `json:"quantity" binding:"gte=1"`
}

type ShippingAddressRequest struct {
	Street  string `json:"street" binding:"required,max=200"`
	City    string `json:"city" binding:"required,max=100"`
	State   string `json:"state" binding:"required,max=100"`
	Pincode string `json:"pincode" binding:"required,max=20"`
}

// CheckoutRequest is the request body for POST /orders.
// CoinsUsed is range-checked by the order service (WAL_001 when negative).
type CheckoutRequest struct {
	Items           []LineItemRequest      `json:"items" binding:"required,min=1,dive"`
	Subtotal        int64                  `json:"subtotal" binding:"gte=0"`
	CoinsUsed       int64                  `json:"coins_used"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
}

// LineItems converts the cart lines into order snapshots.
func (r *CheckoutRequest) LineItems() []domain.LineItem {
	items := make([]domain.LineItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
		}
	}
	return items
}

// Address converts the shipping block into its domain form.
func (r *CheckoutRequest) Address() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:  r.ShippingAddress.Street,
		City:    r.ShippingAddress.City,
		State:   r.ShippingAddress.State,
		Pincode: r.ShippingAddress.Pincode,
	}
}
