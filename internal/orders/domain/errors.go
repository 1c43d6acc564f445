package domain

import (
	"fmt"

	"shop-api/pkg/errors"
)

// Domain-specific errors
var (
	ErrUserIDRequired       = errors.NewValidation("user_id is required", nil)
	ErrEmptyOrder           = errors.NewValidation("order must contain at least one item", nil)
	ErrProductIDRequired    = errors.NewValidation("every line item needs a product_id", nil)
	ErrInvalidQuantity      = errors.NewValidation("quantity must be a positive integer", nil)
	ErrNegativeTotal        = errors.NewValidation("total cannot be negative", nil)
	ErrContactIncomplete    = errors.NewValidation("name, email, phone, address and province are required", nil)
	ErrUnknownPaymentMethod = errors.NewValidation("payment method must be COD or GATEWAY", nil)
	ErrTxnRefRequired       = errors.NewValidation("gateway order requires a transaction reference", nil)
	ErrUnknownStatus        = errors.NewValidation("unknown order status", nil)
)

// NewOrderNotFound creates a not found error with the order ID
func NewOrderNotFound(id string) error {
	return errors.NewNotFound("order", id)
}

// NewIllegalTransition creates a conflict error for a rejected status change
func NewIllegalTransition(from, to OrderStatus) error {
	return errors.NewConflict(fmt.Sprintf("cannot transition order from %s to %s", from, to))
}

// NewUnknownProduct creates a validation error for an unresolvable product
func NewUnknownProduct(productID string) error {
	return errors.NewValidation("unknown product", map[string]interface{}{
		"product_id": productID,
	})
}
