package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/event"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// OrderService implements the cart and order lifecycle. A cart is an order
// in the cart status; checkout promotes it to processed.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	producer *event.Producer
	clock    clock.Clock
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, producer *event.Producer, clk clock.Clock, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		producer: producer,
		clock:    clk,
		logger:   logger,
	}
}

// GetCart returns the user's open cart, creating an empty one on first use.
func (s *OrderService) GetCart(ctx context.Context, userID string) (*domain.Order, error) {
	cart, err := s.orders.GetCartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	code := domain.NewOrderCode()
	cart = &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Code:      code,
		Batch:     domain.DefaultBatch(code),
		Status:    domain.OrderStatusCart,
		Items:     []domain.OrderItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Create(ctx, cart); err != nil {
		// A concurrent request may have created the cart first.
		if errors.Is(err, apperrors.ErrConflict) {
			return s.orders.GetCartByUser(ctx, userID)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("order_id", cart.ID),
		slog.String("code", cart.Code),
	)
	return cart, nil
}

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string
	Quantity  int
}

// AddItem puts a product in the user's cart, capturing the current catalog
// price on the item.
func (s *OrderService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Order, error) {
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product %s is not available", product.ID))
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := &domain.OrderItem{
		ID:        uuid.NewString(),
		OrderID:   cart.ID,
		ProductID: product.ID,
		Quantity:  input.Quantity,
		UnitPrice: product.UnitPrice,
		CreatedAt: s.clock.Now(),
	}
	if err := s.orders.AddItem(ctx, item); err != nil {
		return nil, err
	}

	return s.orders.GetByID(ctx, cart.ID)
}

// UpdateItemQuantity changes the quantity of a cart item owned by the user.
// A quantity of zero or less removes the item.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	cart, err := s.cartItemOwner(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, cart.ID)
}

// RemoveItem deletes a cart item owned by the user.
func (s *OrderService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Order, error) {
	cart, err := s.cartItemOwner(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.RemoveItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, cart.ID)
}

// cartItemOwner checks that the item belongs to the user's open cart. Items
// of processed orders are immutable.
func (s *OrderService) cartItemOwner(ctx context.Context, userID, itemID string) (*domain.Order, error) {
	item, err := s.orders.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	cart, err := s.orders.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order item", itemID)
		}
		return nil, err
	}
	if item.OrderID != cart.ID {
		return nil, apperrors.NotFound("order item", itemID)
	}
	return cart, nil
}

// Checkout promotes the user's cart to a processed order. The cart must
// contain at least one item. A non-empty batch replaces the generated
// batch code.
func (s *OrderService) Checkout(ctx context.Context, userID, batch string) (*domain.Order, error) {
	cart, err := s.orders.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.PreconditionFailed("no open cart to check out")
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.PreconditionFailed("cannot check out an empty cart")
	}
	if batch != "" {
		cart.Batch = batch
	}

	processedAt := s.clock.Now()
	cart.ProcessedAt = &processedAt
	if err := s.orders.Checkout(ctx, cart); err != nil {
		return nil, err
	}
	cart.Status = domain.OrderStatusProcessed

	if err := s.producer.PublishOrderCheckedOut(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.checked_out event",
			slog.String("order_id", cart.ID),
			slog.String("error", err.Error()),
		)
		// The checkout is committed; event delivery is best effort.
	}

	s.logger.InfoContext(ctx, "order checked out",
		slog.String("order_id", cart.ID),
		slog.String("code", cart.Code),
		slog.Int("items", len(cart.Items)),
	)
	return cart, nil
}

// GetOrder loads one of the user's orders with its items. Orders of other
// users read as missing so their existence is not leaked.
func (s *OrderService) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}

// ListOrders returns a page of the user's orders, optionally restricted to
// one status. The open cart never appears in the listing.
func (s *OrderService) ListOrders(ctx context.Context, userID, status string, params pagination.Params) ([]domain.Order, int64, error) {
	filter := repository.OrderFilter{
		UserID:        userID,
		Status:        status,
		ExcludeStatus: domain.OrderStatusCart,
	}
	return s.orders.List(ctx, filter, params)
}
