package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shop-api/internal/orders/domain"
	apperrors "shop-api/pkg/errors"
)

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID            string `gorm:"primaryKey;size:36"`
	UserID        string `gorm:"index;not null;size:64"`
	Total         int64  `gorm:"not null"`
	Name          string `gorm:"not null"`
	Email         string `gorm:"not null"`
	Phone         string `gorm:"not null"`
	Address       string `gorm:"not null"`
	Province      string `gorm:"not null"`
	Note          string
	PaymentMethod string `gorm:"size:10;not null"`
	Status        string `gorm:"size:20;not null;default:'pending'"`

	// Gateway settlement fields. The unique index on TxnRef is what makes
	// concurrent confirmation calls for the same transaction reference
	// safe: the second insert fails instead of duplicating the order.
	TxnRef        *string `gorm:"uniqueIndex;size:32"`
	TransactionNo string
	BankCode      string
	CardType      string
	ResponseCode  string
	PayDate       string

	CreatedAt time.Time        `gorm:"autoCreateTime"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime"`
	Items     []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the GORM model for order line items
type OrderItemModel struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     string `gorm:"index;not null;size:36"`
	ProductID   string `gorm:"not null;size:64"`
	Quantity    int    `gorm:"not null"`
	ProductName string
	UnitPrice   int64
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Migrate runs auto-migration for the order models
func (r *PostgresOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

// Create persists a new order together with its line items. GORM creates
// the order and its associated items inside one transaction, so no partial
// order is left behind on failure.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := toModel(order)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperrors.NewConflict("an order already exists for this transaction reference")
		}
		return apperrors.NewInternal("failed to create order", result.Error)
	}

	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByID retrieves an order by ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).Preload("Items").First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewOrderNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get order", result.Error)
	}

	return toDomain(&model), nil
}

// GetByUserID retrieves orders for a user, newest first
func (r *PostgresOrderRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	var models []OrderModel

	result := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewInternal("failed to get orders by user", result.Error)
	}

	return toDomainList(models), nil
}

// ListAll retrieves all orders, newest first
func (r *PostgresOrderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel

	result := r.db.WithContext(ctx).Preload("Items").
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewInternal("failed to list orders", result.Error)
	}

	return toDomainList(models), nil
}

// GetByGatewayTxnRef retrieves the order settled under the given gateway
// transaction reference. A miss is not an error; it returns (nil, nil) so
// the confirmation path can distinguish "not settled yet" from a failure.
func (r *PostgresOrderRepository) GetByGatewayTxnRef(ctx context.Context, txnRef string) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).Preload("Items").First(&model, "txn_ref = ?", txnRef)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get order by transaction reference", result.Error)
	}

	return toDomain(&model), nil
}

// UpdateStatus persists a status change
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":     string(order.Status),
			"updated_at": order.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.NewInternal("failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewOrderNotFound(order.ID)
	}
	return nil
}

// toModel converts a domain entity to GORM models
func toModel(order *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:            order.ID,
		UserID:        order.UserID,
		Total:         order.Total,
		Name:          order.Contact.Name,
		Email:         order.Contact.Email,
		Phone:         order.Contact.Phone,
		Address:       order.Contact.Address,
		Province:      order.Contact.Province,
		Note:          order.Contact.Note,
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}

	if info := order.PaymentInfo; info != nil {
		txnRef := info.TxnRef
		model.TxnRef = &txnRef
		model.TransactionNo = info.TransactionNo
		model.BankCode = info.BankCode
		model.CardType = info.CardType
		model.ResponseCode = info.ResponseCode
		model.PayDate = info.PayDate
	}

	model.Items = make([]OrderItemModel, len(order.Items))
	for i, item := range order.Items {
		model.Items[i] = OrderItemModel{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
		}
	}

	return model
}

// toDomain converts a GORM model to a domain entity
func toDomain(model *OrderModel) *domain.Order {
	order := &domain.Order{
		ID:     model.ID,
		UserID: model.UserID,
		Total:  model.Total,
		Contact: domain.Contact{
			Name:     model.Name,
			Email:    model.Email,
			Phone:    model.Phone,
			Address:  model.Address,
			Province: model.Province,
			Note:     model.Note,
		},
		PaymentMethod: domain.PaymentMethod(model.PaymentMethod),
		Status:        domain.OrderStatus(model.Status),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}

	if model.TxnRef != nil {
		order.PaymentInfo = &domain.PaymentInfo{
			TxnRef:        *model.TxnRef,
			TransactionNo: model.TransactionNo,
			BankCode:      model.BankCode,
			CardType:      model.CardType,
			ResponseCode:  model.ResponseCode,
			PayDate:       model.PayDate,
		}
	}

	order.Items = make([]domain.LineItem, len(model.Items))
	for i, item := range model.Items {
		order.Items[i] = domain.LineItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
		}
	}

	return order
}

func toDomainList(models []OrderModel) []*domain.Order {
	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toDomain(&models[i])
	}
	return orders
}
