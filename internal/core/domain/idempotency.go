package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateIdempotencyKey is returned by repositories when a key was already stored.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

// IdempotencyLog caches a checkout result so a retried request returns the same order.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "account_id:checkout:client_key"
	OrderID      uuid.UUID `json:"order_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildCheckoutIdempotencyKey scopes a client key to one account.
func BuildCheckoutIdempotencyKey(accountID uuid.UUID, clientKey string) string {
	return accountID.String() + ":checkout:" + clientKey
}
