package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/database"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order without items. Carts start empty.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, code, batch, status, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.UserID, o.Code, o.Batch, o.Status, o.ProcessedAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.Conflict("user already has an open cart")
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// orderSelect is the aggregate select shared by GetByID and GetCartByUser.
// Items are collected with JSONB_AGG to avoid a second round trip.
const orderSelect = `
	SELECT
		o.id, o.user_id, o.code, o.batch, o.status, o.processed_at, o.created_at, o.updated_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.id,
					'order_id', oi.order_id,
					'product_id', oi.product_id,
					'quantity', oi.quantity,
					'unit_price', oi.unit_price,
					'created_at', oi.created_at,
					'product', JSONB_BUILD_OBJECT(
						'id', p.id,
						'product_line_id', p.product_line_id,
						'name', p.name,
						'sku', p.sku,
						'presentation', p.presentation,
						'unit_price', p.unit_price
					)
				) ORDER BY oi.created_at
			) FILTER (WHERE oi.id IS NOT NULL),
			'[]'::jsonb
		) AS items
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id
	LEFT JOIN products p ON oi.product_id = p.id
	%s
	GROUP BY o.id, o.user_id, o.code, o.batch, o.status, o.processed_at, o.created_at, o.updated_at`

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(orderSelect, "WHERE o.id = $1")
	o, err := r.scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, err
	}
	return o, nil
}

// GetCartByUser retrieves the user's open cart with its items.
func (r *OrderRepository) GetCartByUser(ctx context.Context, userID string) (*domain.Order, error) {
	query := fmt.Sprintf(orderSelect, "WHERE o.user_id = $1 AND o.status = $2")
	o, err := r.scanOrder(r.pool.QueryRow(ctx, query, userID, domain.OrderStatusCart))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		itemsJSON []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Code, &o.Batch, &o.Status, &o.ProcessedAt, &o.CreatedAt, &o.UpdatedAt, &itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}

// List returns orders matching the filter with the total count. Items are
// not loaded; use GetByID for the full order.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter, params pagination.Params) ([]domain.Order, int64, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, filter.UserID)
		argIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.ExcludeStatus != "" {
		conditions = append(conditions, fmt.Sprintf("status <> $%d", argIndex))
		args = append(args, filter.ExcludeStatus)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, code, batch, status, processed_at, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)

	args = append(args, params.PerPage, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var total int64
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Code, &o.Batch, &o.Status, &o.ProcessedAt, &o.CreatedAt, &o.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus changes the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", orderID)
	}
	return nil
}

// Checkout promotes a cart to a processed order, writing code, batch,
// status and processed_at. The WHERE clause guards against a concurrent
// checkout of the same cart.
func (r *OrderRepository) Checkout(ctx context.Context, o *domain.Order) error {
	query := `
		UPDATE orders
		SET code = $1, batch = $2, status = $3, processed_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7`

	ct, err := r.pool.Exec(ctx, query,
		o.Code, o.Batch, domain.OrderStatusProcessed, o.ProcessedAt, time.Now().UTC(), o.ID, domain.OrderStatusCart,
	)
	if err != nil {
		return fmt.Errorf("checkout order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.InvalidState(o.Status, domain.OrderStatusCart)
	}
	return nil
}

// AddItem inserts an order item, or bumps the quantity when the product is
// already in the order. The price captured on first add is kept.
func (r *OrderRepository) AddItem(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id, product_id)
		DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity`

	_, err := r.pool.Exec(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.CreatedAt,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput("order or product does not exist")
		}
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// GetItem retrieves an order item by ID.
func (r *OrderRepository) GetItem(ctx context.Context, itemID string) (*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_items
		WHERE id = $1`

	var item domain.OrderItem
	err := r.pool.QueryRow(ctx, query, itemID).Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order item", itemID)
		}
		return nil, fmt.Errorf("scan order item: %w", err)
	}
	return &item, nil
}

// UpdateItemQuantity changes an item's quantity.
func (r *OrderRepository) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE order_items SET quantity = $1 WHERE id = $2`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("update order item quantity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order item", itemID)
	}
	return nil
}

// RemoveItem deletes an order item.
func (r *OrderRepository) RemoveItem(ctx context.Context, itemID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order item", itemID)
	}
	return nil
}
