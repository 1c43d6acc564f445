package ports

import (
	"context"

	"shop-api/internal/orders/domain"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create persists a new order together with its line items
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByUserID retrieves orders for a user, newest first
	GetByUserID(ctx context.Context, userID string) ([]*domain.Order, error)

	// ListAll retrieves all orders, newest first
	ListAll(ctx context.Context) ([]*domain.Order, error)

	// GetByGatewayTxnRef retrieves the order settled under the given
	// gateway transaction reference, if any
	GetByGatewayTxnRef(ctx context.Context, txnRef string) (*domain.Order, error)

	// UpdateStatus persists a status change
	UpdateStatus(ctx context.Context, order *domain.Order) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// PublishOrderCreated publishes an order created event
	PublishOrderCreated(ctx context.Context, order *domain.Order) error

	// PublishOrderStatusUpdated publishes a status change event
	PublishOrderStatusUpdated(ctx context.Context, order *domain.Order, oldStatus domain.OrderStatus) error
}

// CatalogClient resolves products at order-creation time
type CatalogClient interface {
	// GetProduct retrieves a product by ID
	GetProduct(ctx context.Context, productID string) (*ProductInfo, error)
}

// ProductInfo is the catalog's view of a product
type ProductInfo struct {
	ID        string
	Name      string
	Price     int64 // VND
	Available bool
}
