package adapters

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shop-api/internal/payments/domain"
	"shop-api/internal/payments/ports"
)

// GatewayConfig holds the merchant credentials and endpoints for the
// hosted payment page
type GatewayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// HostedGateway implements the Gateway port for a redirect-based provider
// that signs its parameters with HMAC-SHA512 over the sorted,
// URL-encoded query string.
type HostedGateway struct {
	cfg GatewayConfig
	now func() time.Time
}

// NewHostedGateway creates a new hosted-payment-page gateway adapter
func NewHostedGateway(cfg GatewayConfig) *HostedGateway {
	return &HostedGateway{cfg: cfg, now: time.Now}
}

// BuildPaymentURL builds the signed redirect URL to the hosted payment
// page. Amounts are sent in the provider's minor unit (VND x 100).
func (g *HostedGateway) BuildPaymentURL(req ports.PaymentRequest) (string, error) {
	if req.TxnRef == "" {
		return "", fmt.Errorf("transaction reference is required")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_CreateDate", g.now().Format("20060102150405"))

	// Encode sorts keys; the signature covers the exact encoded query.
	query := params.Encode()
	return g.cfg.PayURL + "?" + query + "&vnp_SecureHash=" + g.sign(query), nil
}

// VerifyReturn checks the HMAC signature over the returned parameters and
// extracts the transaction outcome
func (g *HostedGateway) VerifyReturn(params map[string]string) (*domain.VerifyResult, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("no return parameters")
	}

	received := params["vnp_SecureHash"]

	values := url.Values{}
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		values.Set(k, v)
	}
	expected := g.sign(values.Encode())

	verified := received != "" &&
		hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))

	var amount int64
	if raw := params["vnp_Amount"]; raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			amount = n / 100
		}
	}

	return &domain.VerifyResult{
		Verified:          verified,
		ResponseCode:      params["vnp_ResponseCode"],
		TransactionStatus: params["vnp_TransactionStatus"],
		TxnRef:            params["vnp_TxnRef"],
		TransactionNo:     params["vnp_TransactionNo"],
		BankCode:          params["vnp_BankCode"],
		CardType:          params["vnp_CardType"],
		PayDate:           params["vnp_PayDate"],
		Amount:            amount,
	}, nil
}

func (g *HostedGateway) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
