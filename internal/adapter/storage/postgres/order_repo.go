package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stepstyle/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, account_id, items, subtotal, coins_used, coin_discount, total_amount,
	payment_method, payment_status, payment_reference, shipping_address, fulfillment_status,
	created_at, updated_at`

// OrderRepo implements ports.OrderRepository. Line items and the shipping
// address are stored as JSONB snapshots.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts an order within a database transaction.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, query,
		o.ID, o.AccountID, items, o.Subtotal, o.CoinsUsed, o.CoinDiscount, o.TotalAmount,
		o.PaymentMethod, o.PaymentStatus, o.PaymentReference, address, o.FulfillmentStatus,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by UUID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListByAccount returns every order of the account, newest first.
func (r *OrderRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o       domain.Order
		items   []byte
		address []byte
	)
	err := row.Scan(
		&o.ID, &o.AccountID, &items, &o.Subtotal, &o.CoinsUsed, &o.CoinDiscount, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentReference, &address, &o.FulfillmentStatus,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return &o, nil
}
