package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the buyer settles the order
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentGateway PaymentMethod = "GATEWAY"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusCompleted OrderStatus = "completed"
)

// transitions is the enforced status graph. completed, cancelled and
// failed are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusPaid:      {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusFailed:    {},
	OrderStatusCancelled: {},
	OrderStatusCompleted: {},
}

// ValidStatus reports whether s names a known order status
func ValidStatus(s string) bool {
	_, ok := transitions[OrderStatus(s)]
	return ok
}

// CanTransitionTo reports whether the status graph permits moving to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is one product position on an order. Name and unit price are
// captured from the catalog at creation time for display; the
// authoritative amount is the order total recomputed server-side.
type LineItem struct {
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"product_name,omitempty"`
	UnitPrice   int64  `json:"unit_price,omitempty"`
}

// Contact holds the delivery details captured at submission time
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Province string `json:"province"`
	Note     string `json:"note,omitempty"`
}

// PaymentInfo is present only on gateway-settled orders
type PaymentInfo struct {
	TransactionNo string `json:"transaction_no"`
	BankCode      string `json:"bank_code"`
	CardType      string `json:"card_type,omitempty"`
	ResponseCode  string `json:"response_code"`
	PayDate       string `json:"pay_date"`
	TxnRef        string `json:"txn_ref"`
}

// Order is the central entity of the storefront
type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Items         []LineItem    `json:"items"`
	Total         int64         `json:"total"` // VND, no fractional units
	Contact       Contact       `json:"contact"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	PaymentInfo   *PaymentInfo  `json:"payment_info,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Validate validates the order entity
func (o *Order) Validate() error {
	if o.UserID == "" {
		return ErrUserIDRequired
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range o.Items {
		if item.ProductID == "" {
			return ErrProductIDRequired
		}
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}
	if o.Total < 0 {
		return ErrNegativeTotal
	}
	if err := o.Contact.Validate(); err != nil {
		return err
	}
	if o.PaymentMethod != PaymentCOD && o.PaymentMethod != PaymentGateway {
		return ErrUnknownPaymentMethod
	}
	return nil
}

// Validate checks the required contact fields; only Note is optional
func (c *Contact) Validate() error {
	if c.Name == "" || c.Email == "" || c.Phone == "" || c.Address == "" || c.Province == "" {
		return ErrContactIncomplete
	}
	return nil
}

// NewCODOrder creates a cash-on-delivery order in its initial state
func NewCODOrder(userID string, items []LineItem, total int64, contact Contact) (*Order, error) {
	order := &Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		Items:         items,
		Total:         total,
		Contact:       contact,
		PaymentMethod: PaymentCOD,
		Status:        OrderStatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// NewGatewayOrder creates an order settled through the payment gateway.
// Gateway orders are born paid; they never pass through pending.
func NewGatewayOrder(userID string, items []LineItem, total int64, contact Contact, info PaymentInfo) (*Order, error) {
	order := &Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		Items:         items,
		Total:         total,
		Contact:       contact,
		PaymentMethod: PaymentGateway,
		Status:        OrderStatusPaid,
		PaymentInfo:   &info,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}
	if info.TxnRef == "" {
		return nil, ErrTxnRefRequired
	}

	return order, nil
}

// Transition moves the order to next, enforcing the status graph
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return NewIllegalTransition(o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	return nil
}
