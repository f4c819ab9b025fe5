package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the payment lifecycle of an order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// FulfillmentStatus is the shipping lifecycle of an order.
type FulfillmentStatus string

const (
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"
)

// PaymentMethodDemo marks orders settled by the built-in payment stub.
// There is no real gateway behind it: every order is completed immediately.
const PaymentMethodDemo = "demo"

// LineItem is a product snapshot taken at checkout time.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Order is a completed checkout.
type Order struct {
	ID                uuid.UUID         `json:"id"`
	AccountID         uuid.UUID         `json:"account_id"`
	Items             []LineItem        `json:"items"`
	Subtotal          int64             `json:"subtotal"`
	CoinsUsed         int64             `json:"coins_used"`
	CoinDiscount      int64             `json:"coin_discount"`
	TotalAmount       int64             `json:"total_amount"`
	PaymentMethod     string            `json:"payment_method"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	PaymentReference  string            `json:"payment_reference"`
	ShippingAddress   ShippingAddress   `json:"shipping_address"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ComputeTotal applies a 1 coin = 1 currency unit discount. The total never goes negative.
func ComputeTotal(subtotal, coinsUsed int64) (discount, total int64) {
	discount = coinsUsed
	total = subtotal - discount
	if total < 0 {
		total = 0
	}
	return discount, total
}

// DemoPaymentReference builds the reference recorded by the payment stub.
func DemoPaymentReference(at time.Time) string {
	return fmt.Sprintf("demo_%d", at.UnixMilli())
}

// ShortID is the last six characters of the order id, used in ledger descriptions.
func (o *Order) ShortID() string {
	s := o.ID.String()
	return s[len(s)-6:]
}

// RedemptionDescription labels the ledger debit for this order.
func (o *Order) RedemptionDescription() string {
	return "Used for order #" + o.ShortID()
}
