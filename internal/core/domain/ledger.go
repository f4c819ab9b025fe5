package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType classifies a coin movement.
type EntryType string

const (
	EntryTypeEarned   EntryType = "earned"
	EntryTypeRedeemed EntryType = "redeemed"
	EntryTypeBonus    EntryType = "bonus"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeEarned, EntryTypeRedeemed, EntryTypeBonus:
		return true
	}
	return false
}

// DefaultEarnDescription is used when an earn request carries no description.
const DefaultEarnDescription = "Steps reward"

// SignupBonusDescription labels the coins granted at registration.
const SignupBonusDescription = "Welcome bonus"

// DefaultRedeemDescription is used for debits that are not tied to an order.
const DefaultRedeemDescription = "Coins redeemed"

// LedgerEntry is an immutable record of one coin movement. BalanceAfter is the
// wallet balance right after the movement was applied.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Type         EntryType  `json:"type"`
	Amount       int64      `json:"amount"`
	Description  string     `json:"description"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	BalanceAfter int64      `json:"balance_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
