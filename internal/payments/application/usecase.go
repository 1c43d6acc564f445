package application

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	ordersapp "shop-api/internal/orders/application"
	ordersdomain "shop-api/internal/orders/domain"
	ordersports "shop-api/internal/orders/ports"
	"shop-api/internal/payments/domain"
	"shop-api/internal/payments/ports"
	"shop-api/pkg/errors"
	"shop-api/pkg/logger"
)

// PaymentUseCase drives the gateway payment flow: initiation, verified
// return confirmation, and provider-initiated notification.
type PaymentUseCase struct {
	orders    ordersports.OrderRepository
	publisher ordersports.EventPublisher
	catalog   ordersports.CatalogClient
	gateway   ports.Gateway
	pending   ports.PendingStore
	ttl       time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewPaymentUseCase creates a new payment use case
func NewPaymentUseCase(
	orders ordersports.OrderRepository,
	publisher ordersports.EventPublisher,
	catalog ordersports.CatalogClient,
	gateway ports.Gateway,
	pending ports.PendingStore,
	ttl time.Duration,
	log *logger.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		orders:    orders,
		publisher: publisher,
		catalog:   catalog,
		gateway:   gateway,
		pending:   pending,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
	}
}

// newTxnRef builds a numeric transaction reference: the low ten digits of
// the nanosecond clock plus a random four-digit suffix. The clock part
// alone repeats about every ten seconds; the unique index on settled
// references catches any residual collision.
func (uc *PaymentUseCase) newTxnRef() string {
	s := strconv.FormatInt(uc.now().UnixNano(), 10)
	return s[len(s)-10:] + fmt.Sprintf("%04d", rand.Intn(10000))
}

// InitiatePaymentInput represents the input for starting a gateway payment
type InitiatePaymentInput struct {
	UserID   string
	Items    []ordersapp.OrderItemInput
	Contact  ordersdomain.Contact
	ClientIP string
}

// InitiatePaymentOutput carries the redirect URL, the transaction
// reference and the pending payload echoed back to the client
type InitiatePaymentOutput struct {
	PaymentURL string
	TxnRef     string
	Pending    *domain.PendingPayment
}

// InitiatePayment recomputes the total, records a pending payment keyed by
// the transaction reference, and builds the signed redirect URL. No order
// is persisted yet; abandoned sessions simply let the pending record
// expire.
func (uc *PaymentUseCase) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*InitiatePaymentOutput, error) {
	if err := input.Contact.Validate(); err != nil {
		return nil, err
	}

	items, total, err := ordersapp.PriceItems(ctx, uc.catalog, input.Items)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	pending := &domain.PendingPayment{
		TxnRef:    uc.newTxnRef(),
		UserID:    input.UserID,
		Items:     items,
		Total:     total,
		Contact:   input.Contact,
		CreatedAt: uc.now(),
	}

	if err := uc.pending.Put(ctx, pending, uc.ttl); err != nil {
		return nil, errors.NewInternal("failed to record pending payment", err)
	}

	paymentURL, err := uc.gateway.BuildPaymentURL(ports.PaymentRequest{
		TxnRef:    pending.TxnRef,
		Amount:    total,
		OrderInfo: "Order payment " + pending.TxnRef,
		ClientIP:  input.ClientIP,
	})
	if err != nil {
		return nil, errors.NewInternal("failed to build payment URL", err)
	}

	uc.log.WithContext(ctx).Info("gateway payment initiated",
		zap.String("txn_ref", pending.TxnRef),
		zap.String("user_id", input.UserID),
		zap.Int64("total", total),
	)

	return &InitiatePaymentOutput{
		PaymentURL: paymentURL,
		TxnRef:     pending.TxnRef,
		Pending:    pending,
	}, nil
}

// ConfirmReturnInput represents the signed return payload forwarded by the
// buyer's browser
type ConfirmReturnInput struct {
	UserID string
	Params map[string]string
}

// ConfirmReturnOutput is the settled (or previously settled) order
type ConfirmReturnOutput struct {
	Order          *ordersdomain.Order
	AlreadySettled bool
}

// ConfirmReturn verifies the signed return payload and settles the order.
// The sequence is verify, check outcome, then create - and the create is
// idempotent across replays: an existing order for the transaction
// reference is returned instead of inserting a duplicate.
func (uc *PaymentUseCase) ConfirmReturn(ctx context.Context, input ConfirmReturnInput) (*ConfirmReturnOutput, error) {
	if len(input.Params) == 0 {
		return nil, domain.ErrMissingConfirmationData
	}

	result, err := uc.gateway.VerifyReturn(input.Params)
	if err != nil {
		return nil, errors.NewInternal("gateway verification failed", err)
	}
	if !result.Verified {
		return nil, domain.ErrSignatureInvalid
	}
	if !result.Succeeded() {
		// Drop the pending record; this attempt is terminal.
		if err := uc.pending.Delete(ctx, result.TxnRef); err != nil {
			uc.log.WithContext(ctx).Warn("failed to drop pending payment",
				zap.Error(err),
				zap.String("txn_ref", result.TxnRef),
			)
		}
		return nil, domain.NewTransactionFailed(result.ResponseCode)
	}

	// Replay: the browser back-button or a network retry can re-deliver
	// the same return payload.
	existing, err := uc.orders.GetByGatewayTxnRef(ctx, result.TxnRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ConfirmReturnOutput{Order: existing, AlreadySettled: true}, nil
	}

	pending, err := uc.pending.Get(ctx, result.TxnRef)
	if err != nil {
		return nil, errors.NewInternal("failed to load pending payment", err)
	}
	if pending == nil {
		return nil, domain.ErrMissingConfirmationData
	}
	if input.UserID != "" && pending.UserID != input.UserID {
		return nil, errors.NewForbidden("pending payment belongs to another user")
	}

	order, alreadySettled, err := uc.settle(ctx, pending, result)
	if err != nil {
		return nil, err
	}

	return &ConfirmReturnOutput{Order: order, AlreadySettled: alreadySettled}, nil
}

// settle persists the paid order and retires the pending record. A
// concurrent duplicate insert (the provider notification racing the
// browser return) loses to the unique transaction-reference index and is
// resolved by re-fetching the winner.
func (uc *PaymentUseCase) settle(ctx context.Context, pending *domain.PendingPayment, result *domain.VerifyResult) (*ordersdomain.Order, bool, error) {
	order, err := ordersdomain.NewGatewayOrder(
		pending.UserID,
		pending.Items,
		pending.Total,
		pending.Contact,
		result.PaymentInfo(),
	)
	if err != nil {
		return nil, false, err
	}

	if err := uc.orders.Create(ctx, order); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			winner, getErr := uc.orders.GetByGatewayTxnRef(ctx, result.TxnRef)
			if getErr != nil {
				return nil, false, getErr
			}
			if winner != nil {
				return winner, true, nil
			}
		}
		return nil, false, err
	}

	if err := uc.pending.Delete(ctx, pending.TxnRef); err != nil {
		uc.log.WithContext(ctx).Warn("failed to drop pending payment after settlement",
			zap.Error(err),
			zap.String("txn_ref", pending.TxnRef),
		)
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishOrderCreated(ctx, order); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish order created event",
				zap.Error(err),
				zap.String("order_id", order.ID),
			)
		}
	}

	uc.log.WithContext(ctx).Info("gateway order settled",
		zap.String("order_id", order.ID),
		zap.String("txn_ref", pending.TxnRef),
		zap.Int64("total", order.Total),
	)

	return order, false, nil
}

// Notification acknowledgement codes, per the provider's IPN contract
const (
	AckConfirmed        = "00"
	AckOrderNotFound    = "01"
	AckAlreadyConfirmed = "02"
	AckInvalidSignature = "97"
	AckError            = "99"
)

// NotificationAck is the short acknowledgement returned to the provider
type NotificationAck struct {
	Code    string
	Message string
}

// HandleNotification processes the provider-initiated callback. It never
// depends on client-held state: the signature is re-verified and the order
// reconciled by transaction reference alone, so settlement happens even if
// the buyer's browser never completes the redirect.
func (uc *PaymentUseCase) HandleNotification(ctx context.Context, params map[string]string) NotificationAck {
	result, err := uc.gateway.VerifyReturn(params)
	if err != nil || !result.Verified {
		return NotificationAck{Code: AckInvalidSignature, Message: "invalid signature"}
	}

	existing, err := uc.orders.GetByGatewayTxnRef(ctx, result.TxnRef)
	if err != nil {
		return NotificationAck{Code: AckError, Message: "internal error"}
	}
	if existing != nil {
		return NotificationAck{Code: AckAlreadyConfirmed, Message: "order already confirmed"}
	}

	if !result.Succeeded() {
		if err := uc.pending.Delete(ctx, result.TxnRef); err != nil {
			uc.log.WithContext(ctx).Warn("failed to drop pending payment",
				zap.Error(err),
				zap.String("txn_ref", result.TxnRef),
			)
		}
		return NotificationAck{Code: AckConfirmed, Message: "payment failure recorded"}
	}

	pending, err := uc.pending.Get(ctx, result.TxnRef)
	if err != nil {
		return NotificationAck{Code: AckError, Message: "internal error"}
	}
	if pending == nil {
		return NotificationAck{Code: AckOrderNotFound, Message: "unknown transaction reference"}
	}

	if _, alreadySettled, err := uc.settle(ctx, pending, result); err != nil {
		uc.log.WithContext(ctx).Error("failed to settle order from notification",
			zap.Error(err),
			zap.String("txn_ref", result.TxnRef),
		)
		return NotificationAck{Code: AckError, Message: "internal error"}
	} else if alreadySettled {
		return NotificationAck{Code: AckAlreadyConfirmed, Message: "order already confirmed"}
	}

	return NotificationAck{Code: AckConfirmed, Message: "confirm success"}
}
