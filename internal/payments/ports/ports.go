package ports

import (
	"context"
	"time"

	"shop-api/internal/payments/domain"
)

// PaymentRequest carries what the gateway needs to build the hosted
// payment page URL
type PaymentRequest struct {
	TxnRef    string
	Amount    int64 // VND, gets converted to the gateway's minor unit
	OrderInfo string
	ClientIP  string
}

// Gateway is the capability interface over the external payment provider.
// The engine treats the signature scheme as an opaque oracle; any provider
// becomes a swappable implementation behind this interface.
type Gateway interface {
	// BuildPaymentURL builds the signed redirect URL to the hosted
	// payment page
	BuildPaymentURL(req PaymentRequest) (string, error)

	// VerifyReturn checks the signature on a return payload and reports
	// the transaction outcome
	VerifyReturn(params map[string]string) (*domain.VerifyResult, error)
}

// PendingStore holds short-lived pending-payment records keyed by
// transaction reference
type PendingStore interface {
	// Put stores a pending payment with an expiry
	Put(ctx context.Context, pending *domain.PendingPayment, ttl time.Duration) error

	// Get retrieves a pending payment. A miss (expired or never
	// initiated) returns (nil, nil).
	Get(ctx context.Context, txnRef string) (*domain.PendingPayment, error)

	// Delete removes a pending payment once settled or failed
	Delete(ctx context.Context, txnRef string) error
}
