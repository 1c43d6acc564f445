package domain

import "shop-api/pkg/errors"

// Domain-specific errors
var (
	ErrInvalidAmount           = errors.NewInvalidAmount("total must round to a positive amount")
	ErrMissingConfirmationData = errors.NewValidation("missing or expired payment confirmation data", nil)
	ErrSignatureInvalid        = errors.NewSignatureInvalid("gateway signature verification failed")
)

// NewTransactionFailed creates a payment failure error carrying the
// provider's outcome code
func NewTransactionFailed(providerCode string) error {
	return errors.NewPaymentFailed("the payment provider reported a failed transaction", providerCode)
}
