package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned by repositories when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Role distinguishes shoppers from store administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account is a registered shopper. Its wallet lives on the same row.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose
	Avatar       string    `json:"avatar"`
	Role         Role      `json:"role"`
	Wallet       Wallet    `json:"wallet"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account may manage the store.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
