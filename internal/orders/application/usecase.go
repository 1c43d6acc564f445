package application

import (
	"context"

	"shop-api/internal/orders/domain"
	"shop-api/internal/orders/ports"
	"shop-api/pkg/errors"
	"shop-api/pkg/logger"

	"go.uber.org/zap"
)

// OrderUseCase handles the order lifecycle
type OrderUseCase struct {
	repo      ports.OrderRepository
	publisher ports.EventPublisher
	catalog   ports.CatalogClient
	log       *logger.Logger
}

// NewOrderUseCase creates a new order use case
func NewOrderUseCase(
	repo ports.OrderRepository,
	publisher ports.EventPublisher,
	catalog ports.CatalogClient,
	log *logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		repo:      repo,
		publisher: publisher,
		catalog:   catalog,
		log:       log,
	}
}

// OrderItemInput is one requested line item. Only the product reference
// and quantity are taken from the client; prices come from the catalog.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// PriceItems resolves each requested item against the catalog and returns
// priced line items plus the recomputed total. Client-supplied totals are
// never trusted; this is the authoritative amount.
func PriceItems(ctx context.Context, catalog ports.CatalogClient, items []OrderItemInput) ([]domain.LineItem, int64, error) {
	if len(items) == 0 {
		return nil, 0, domain.ErrEmptyOrder
	}

	lineItems := make([]domain.LineItem, 0, len(items))
	var total int64

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, 0, domain.ErrInvalidQuantity
		}

		product, err := catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return nil, 0, domain.NewUnknownProduct(item.ProductID)
			}
			return nil, 0, errors.Wrap(err, "failed to resolve product")
		}
		if !product.Available {
			return nil, 0, domain.NewUnknownProduct(item.ProductID)
		}

		lineItems = append(lineItems, domain.LineItem{
			ProductID:   product.ID,
			Quantity:    item.Quantity,
			ProductName: product.Name,
			UnitPrice:   product.Price,
		})
		total += product.Price * int64(item.Quantity)
	}

	return lineItems, total, nil
}

// CreateOrderInput represents the input for creating a COD order
type CreateOrderInput struct {
	UserID  string
	Items   []OrderItemInput
	Contact domain.Contact
}

// CreateOrderOutput represents the output of creating an order
type CreateOrderOutput struct {
	Order *domain.Order
}

// CreateOrder creates a cash-on-delivery order
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderOutput, error) {
	items, total, err := PriceItems(ctx, uc.catalog, input.Items)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewCODOrder(input.UserID, items, total, input.Contact)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	// Publish event (async consumers, don't fail the write path)
	if uc.publisher != nil {
		if err := uc.publisher.PublishOrderCreated(ctx, order); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish order created event",
				zap.Error(err),
				zap.String("order_id", order.ID),
			)
		}
	}

	uc.log.WithContext(ctx).Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int64("total", order.Total),
		zap.String("payment_method", string(order.PaymentMethod)),
	)

	return &CreateOrderOutput{Order: order}, nil
}

// GetOrder retrieves an order by ID
func (uc *OrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return uc.repo.GetByID(ctx, id)
}

// ListAllOrders retrieves every order, newest first
func (uc *OrderUseCase) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return uc.repo.ListAll(ctx)
}

// ListOrdersByUser retrieves the orders placed by the given user
func (uc *OrderUseCase) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	return uc.repo.GetByUserID(ctx, userID)
}

// UpdateStatusInput represents an admin-initiated status change
type UpdateStatusInput struct {
	OrderID   string
	NewStatus string
}

// UpdateStatus moves an order through the status graph. Illegal
// transitions are rejected with a conflict error.
func (uc *OrderUseCase) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*domain.Order, error) {
	if !domain.ValidStatus(input.NewStatus) {
		return nil, domain.ErrUnknownStatus
	}

	order, err := uc.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := order.Transition(domain.OrderStatus(input.NewStatus)); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishOrderStatusUpdated(ctx, order, oldStatus); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish status updated event",
				zap.Error(err),
				zap.String("order_id", order.ID),
			)
		}
	}

	uc.log.WithContext(ctx).Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(order.Status)),
	)

	return order, nil
}
