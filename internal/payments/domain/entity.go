package domain

import (
	"time"

	orders "shop-api/internal/orders/domain"
)

// ResponseCodeSuccess is the provider's code for a settled transaction
const ResponseCodeSuccess = "00"

// PendingPayment is the server-side record of a gateway payment that has
// been initiated but not yet confirmed. It is the trust boundary for the
// confirmation step; the payload echoed through the client is convenience
// only.
type PendingPayment struct {
	TxnRef    string            `json:"txn_ref"`
	UserID    string            `json:"user_id"`
	Items     []orders.LineItem `json:"items"`
	Total     int64             `json:"total"`
	Contact   orders.Contact    `json:"contact"`
	CreatedAt time.Time         `json:"created_at"`
}

// VerifyResult is the gateway's judgment on a signed return payload
type VerifyResult struct {
	Verified          bool
	ResponseCode      string
	TransactionStatus string
	TxnRef            string
	TransactionNo     string
	BankCode          string
	CardType          string
	PayDate           string
	Amount            int64
}

// Succeeded reports whether the provider settled the transaction. Any
// non-success code means no order may be created.
func (r *VerifyResult) Succeeded() bool {
	if r.ResponseCode != ResponseCodeSuccess {
		return false
	}
	if r.TransactionStatus != "" && r.TransactionStatus != ResponseCodeSuccess {
		return false
	}
	return true
}

// PaymentInfo converts the verified result into the order's settlement
// record
func (r *VerifyResult) PaymentInfo() orders.PaymentInfo {
	return orders.PaymentInfo{
		TransactionNo: r.TransactionNo,
		BankCode:      r.BankCode,
		CardType:      r.CardType,
		ResponseCode:  r.ResponseCode,
		PayDate:       r.PayDate,
		TxnRef:        r.TxnRef,
	}
}
