package application

import (
	"context"
	"testing"
	"time"

	ordersapp "shop-api/internal/orders/application"
	ordersdomain "shop-api/internal/orders/domain"
	ordersports "shop-api/internal/orders/ports"
	"shop-api/internal/payments/domain"
	"shop-api/internal/payments/ports"
	"shop-api/pkg/errors"
	"shop-api/pkg/logger"
)

// MockOrderRepository is an in-memory OrderRepository enforcing the
// unique transaction-reference constraint the real table has
type MockOrderRepository struct {
	orders map[string]*ordersdomain.Order
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*ordersdomain.Order)}
}

func (m *MockOrderRepository) Create(ctx context.Context, order *ordersdomain.Order) error {
	if order.PaymentInfo != nil && order.PaymentInfo.TxnRef != "" {
		for _, existing := range m.orders {
			if existing.PaymentInfo != nil && existing.PaymentInfo.TxnRef == order.PaymentInfo.TxnRef {
				return errors.NewConflict("an order already exists for this transaction reference")
			}
		}
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*ordersdomain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, ordersdomain.NewOrderNotFound(id)
	}
	return order, nil
}

func (m *MockOrderRepository) GetByUserID(ctx context.Context, userID string) ([]*ordersdomain.Order, error) {
	var result []*ordersdomain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (m *MockOrderRepository) ListAll(ctx context.Context) ([]*ordersdomain.Order, error) {
	var result []*ordersdomain.Order
	for _, order := range m.orders {
		result = append(result, order)
	}
	return result, nil
}

func (m *MockOrderRepository) GetByGatewayTxnRef(ctx context.Context, txnRef string) (*ordersdomain.Order, error) {
	for _, order := range m.orders {
		if order.PaymentInfo != nil && order.PaymentInfo.TxnRef == txnRef {
			return order, nil
		}
	}
	return nil, nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *ordersdomain.Order) error {
	if _, ok := m.orders[order.ID]; !ok {
		return ordersdomain.NewOrderNotFound(order.ID)
	}
	m.orders[order.ID] = order
	return nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	created []*ordersdomain.Order
}

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, order *ordersdomain.Order) error {
	m.created = append(m.created, order)
	return nil
}

func (m *MockEventPublisher) PublishOrderStatusUpdated(ctx context.Context, order *ordersdomain.Order, oldStatus ordersdomain.OrderStatus) error {
	return nil
}

// MockCatalogClient serves products from a fixed map
type MockCatalogClient struct {
	products map[string]*ordersports.ProductInfo
}

func NewMockCatalogClient() *MockCatalogClient {
	return &MockCatalogClient{
		products: map[string]*ordersports.ProductInfo{
			"p1": {ID: "p1", Name: "Webcam", Price: 100000, Available: true},
			"p2": {ID: "p2", Name: "Keyboard", Price: 150000, Available: true},
			"p3": {ID: "p3", Name: "Discontinued GPU", Price: 900000, Available: false},
		},
	}
}

func (m *MockCatalogClient) GetProduct(ctx context.Context, productID string) (*ordersports.ProductInfo, error) {
	product, ok := m.products[productID]
	if !ok {
		return nil, errors.NewNotFound("product", productID)
	}
	return product, nil
}

// MockGateway verifies payloads by convention: the payload must carry a
// "sig" of "valid", and its outcome code comes from the "code" field.
type MockGateway struct {
	builtRequests []ports.PaymentRequest
}

func (m *MockGateway) BuildPaymentURL(req ports.PaymentRequest) (string, error) {
	m.builtRequests = append(m.builtRequests, req)
	return "https://gateway.test/pay?ref=" + req.TxnRef, nil
}

func (m *MockGateway) VerifyReturn(params map[string]string) (*domain.VerifyResult, error) {
	return &domain.VerifyResult{
		Verified:     params["sig"] == "valid",
		ResponseCode: params["code"],
		TxnRef:       params["ref"],
		BankCode:     "NCB",
		PayDate:      "20240315103000",
	}, nil
}

// MockPendingStore is an in-memory PendingStore
type MockPendingStore struct {
	records map[string]*domain.PendingPayment
}

func NewMockPendingStore() *MockPendingStore {
	return &MockPendingStore{records: make(map[string]*domain.PendingPayment)}
}

func (m *MockPendingStore) Put(ctx context.Context, pending *domain.PendingPayment, ttl time.Duration) error {
	m.records[pending.TxnRef] = pending
	return nil
}

func (m *MockPendingStore) Get(ctx context.Context, txnRef string) (*domain.PendingPayment, error) {
	return m.records[txnRef], nil
}

func (m *MockPendingStore) Delete(ctx context.Context, txnRef string) error {
	delete(m.records, txnRef)
	return nil
}

// racingOrderRepository simulates the provider notification settling the
// same transaction reference between this caller's lookup and its insert:
// the first Create loses the unique-index race to a pre-built winner.
type racingOrderRepository struct {
	*MockOrderRepository
	winner *ordersdomain.Order
}

func (r *racingOrderRepository) Create(ctx context.Context, order *ordersdomain.Order) error {
	if r.winner != nil {
		w := r.winner
		r.winner = nil
		r.MockOrderRepository.orders[w.ID] = w
		return errors.NewConflict("an order already exists for this transaction reference")
	}
	return r.MockOrderRepository.Create(ctx, order)
}

type paymentFixture struct {
	useCase   *PaymentUseCase
	repo      *MockOrderRepository
	publisher *MockEventPublisher
	gateway   *MockGateway
	pending   *MockPendingStore
}

func newPaymentFixture() *paymentFixture {
	repo := NewMockOrderRepository()
	publisher := &MockEventPublisher{}
	gateway := &MockGateway{}
	pending := NewMockPendingStore()
	log := logger.New("test", "debug", "json")

	return &paymentFixture{
		useCase:   NewPaymentUseCase(repo, publisher, NewMockCatalogClient(), gateway, pending, 30*time.Minute, log),
		repo:      repo,
		publisher: publisher,
		gateway:   gateway,
		pending:   pending,
	}
}

func validContact() ordersdomain.Contact {
	return ordersdomain.Contact{
		Name:     "Nguyen Van A",
		Email:    "a@example.com",
		Phone:    "0901234567",
		Address:  "12 Ly Thuong Kiet",
		Province: "Ha Noi",
	}
}

// seedPending stores a pending payment directly, as if InitiatePayment had
// run earlier in the session
func (f *paymentFixture) seedPending(txnRef, userID string) *domain.PendingPayment {
	pending := &domain.PendingPayment{
		TxnRef: txnRef,
		UserID: userID,
		Items: []ordersdomain.LineItem{
			{ProductID: "p1", Quantity: 1, ProductName: "Webcam", UnitPrice: 100000},
			{ProductID: "p2", Quantity: 1, ProductName: "Keyboard", UnitPrice: 150000},
		},
		Total:     250000,
		Contact:   validContact(),
		CreatedAt: time.Now(),
	}
	f.pending.records[txnRef] = pending
	return pending
}

func successReturn(txnRef string) map[string]string {
	return map[string]string{"sig": "valid", "code": "00", "ref": txnRef}
}

func TestInitiatePayment_Success(t *testing.T) {
	// Arrange
	f := newPaymentFixture()
	input := InitiatePaymentInput{
		UserID: "user-1",
		Items: []ordersapp.OrderItemInput{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
		},
		Contact:  validContact(),
		ClientIP: "203.0.113.10",
	}

	// Act
	output, err := f.useCase.InitiatePayment(context.Background(), input)

	// Assert
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if output.PaymentURL == "" {
		t.Error("Expected a payment URL")
	}
	if output.TxnRef == "" {
		t.Error("Expected a transaction reference")
	}

	stored := f.pending.records[output.TxnRef]
	if stored == nil {
		t.Fatal("Expected a pending payment to be recorded")
	}
	if stored.Total != 250000 {
		t.Errorf("Expected recomputed total 250000, got %d", stored.Total)
	}
	if stored.UserID != "user-1" {
		t.Errorf("Expected pending payment owner user-1, got %s", stored.UserID)
	}

	if len(f.gateway.builtRequests) != 1 {
		t.Fatalf("Expected 1 gateway request, got %d", len(f.gateway.builtRequests))
	}
	if f.gateway.builtRequests[0].Amount != 250000 {
		t.Errorf("Expected gateway amount 250000, got %d", f.gateway.builtRequests[0].Amount)
	}

	// No order exists until the gateway confirms.
	if len(f.repo.orders) != 0 {
		t.Errorf("Expected no orders before confirmation, got %d", len(f.repo.orders))
	}
}

func TestInitiatePayment_UnknownProduct(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		UserID:  "user-1",
		Items:   []ordersapp.OrderItemInput{{ProductID: "missing", Quantity: 1}},
		Contact: validContact(),
	})

	if err == nil {
		t.Fatal("Expected error for unknown product")
	}
	if len(f.pending.records) != 0 {
		t.Error("Expected no pending payment for a rejected initiation")
	}
}

func TestInitiatePayment_UnavailableProduct(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		UserID:  "user-1",
		Items:   []ordersapp.OrderItemInput{{ProductID: "p3", Quantity: 1}},
		Contact: validContact(),
	})

	if err == nil {
		t.Fatal("Expected error for unavailable product")
	}
}

func TestInitiatePayment_EmptyItems(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		UserID:  "user-1",
		Contact: validContact(),
	})

	if err == nil {
		t.Fatal("Expected error for empty item list")
	}
}

func TestConfirmReturn_Success(t *testing.T) {
	// Arrange
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	// Act
	output, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: successReturn("1712345678"),
	})

	// Assert
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if output.AlreadySettled {
		t.Error("Expected a fresh settlement")
	}

	order := output.Order
	if order.Status != ordersdomain.OrderStatusPaid {
		t.Errorf("Expected status %s, got %s", ordersdomain.OrderStatusPaid, order.Status)
	}
	if order.PaymentMethod != ordersdomain.PaymentGateway {
		t.Errorf("Expected payment method %s, got %s", ordersdomain.PaymentGateway, order.PaymentMethod)
	}
	if order.Total != 250000 {
		t.Errorf("Expected total 250000, got %d", order.Total)
	}
	if order.PaymentInfo == nil || order.PaymentInfo.ResponseCode != "00" {
		t.Error("Expected payment info with response code 00")
	}
	if order.PaymentInfo.TxnRef != "1712345678" {
		t.Errorf("Expected txn ref 1712345678, got %s", order.PaymentInfo.TxnRef)
	}

	if len(f.repo.orders) != 1 {
		t.Errorf("Expected exactly 1 persisted order, got %d", len(f.repo.orders))
	}
	if len(f.publisher.created) != 1 {
		t.Errorf("Expected 1 order created event, got %d", len(f.publisher.created))
	}
	if _, ok := f.pending.records["1712345678"]; ok {
		t.Error("Expected pending payment to be retired after settlement")
	}
}

func TestConfirmReturn_InvalidSignature(t *testing.T) {
	// Arrange
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	// Act
	_, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: map[string]string{"sig": "forged", "code": "00", "ref": "1712345678"},
	})

	// Assert
	if !errors.Is(err, errors.CodeSignature) {
		t.Fatalf("Expected signature error, got %v", err)
	}
	if len(f.repo.orders) != 0 {
		t.Errorf("Expected no orders after a forged return, got %d", len(f.repo.orders))
	}
}

func TestConfirmReturn_DeclinedTransaction(t *testing.T) {
	// Arrange: signature valid, but the provider declined with code 24
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	// Act
	_, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: map[string]string{"sig": "valid", "code": "24", "ref": "1712345678"},
	})

	// Assert
	if !errors.Is(err, errors.CodePayment) {
		t.Fatalf("Expected payment failure error, got %v", err)
	}
	if len(f.repo.orders) != 0 {
		t.Errorf("Expected no orders for a declined transaction, got %d", len(f.repo.orders))
	}
	if _, ok := f.pending.records["1712345678"]; ok {
		t.Error("Expected pending payment to be dropped after a decline")
	}
}

func TestConfirmReturn_Replay(t *testing.T) {
	// Arrange
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")
	input := ConfirmReturnInput{UserID: "user-1", Params: successReturn("1712345678")}

	// Act: the browser re-delivers the same return payload
	first, err := f.useCase.ConfirmReturn(context.Background(), input)
	if err != nil {
		t.Fatalf("Expected no error on first confirm, got %v", err)
	}
	second, err := f.useCase.ConfirmReturn(context.Background(), input)

	// Assert
	if err != nil {
		t.Fatalf("Expected no error on replay, got %v", err)
	}
	if !second.AlreadySettled {
		t.Error("Expected replay to report an already settled order")
	}
	if second.Order.ID != first.Order.ID {
		t.Error("Expected replay to return the original order")
	}
	if len(f.repo.orders) != 1 {
		t.Errorf("Expected exactly 1 persisted order after replay, got %d", len(f.repo.orders))
	}
	if len(f.publisher.created) != 1 {
		t.Errorf("Expected exactly 1 created event after replay, got %d", len(f.publisher.created))
	}
}

func TestConfirmReturn_ConcurrentSettle(t *testing.T) {
	// Arrange: no order exists at lookup time, but the notification path
	// wins the insert before this caller's Create lands.
	pending := NewMockPendingStore()
	publisher := &MockEventPublisher{}
	log := logger.New("test", "debug", "json")

	winner, err := ordersdomain.NewGatewayOrder(
		"user-1",
		[]ordersdomain.LineItem{{ProductID: "p1", Quantity: 1, ProductName: "Webcam", UnitPrice: 100000}},
		100000,
		validContact(),
		ordersdomain.PaymentInfo{TxnRef: "1712345678", ResponseCode: "00"},
	)
	if err != nil {
		t.Fatalf("Failed to build winner order: %v", err)
	}
	repo := &racingOrderRepository{MockOrderRepository: NewMockOrderRepository(), winner: winner}

	useCase := NewPaymentUseCase(repo, publisher, NewMockCatalogClient(), &MockGateway{}, pending, 30*time.Minute, log)
	pending.records["1712345678"] = &domain.PendingPayment{
		TxnRef:    "1712345678",
		UserID:    "user-1",
		Items:     winner.Items,
		Total:     100000,
		Contact:   validContact(),
		CreatedAt: time.Now(),
	}

	// Act
	output, err := useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: successReturn("1712345678"),
	})

	// Assert
	if err != nil {
		t.Fatalf("Expected the losing insert to recover, got %v", err)
	}
	if !output.AlreadySettled {
		t.Error("Expected the recovered settlement to report already settled")
	}
	if output.Order.ID != winner.ID {
		t.Errorf("Expected the winning order %s, got %s", winner.ID, output.Order.ID)
	}
	if len(repo.orders) != 1 {
		t.Errorf("Expected exactly 1 persisted order, got %d", len(repo.orders))
	}
	if len(publisher.created) != 0 {
		t.Errorf("Expected the losing path to publish no events, got %d", len(publisher.created))
	}
}

func TestConfirmReturn_WithoutPublisher(t *testing.T) {
	// Arrange: events disabled, as when the broker is unreachable at
	// startup. Settlement must still go through.
	repo := NewMockOrderRepository()
	pending := NewMockPendingStore()
	log := logger.New("test", "debug", "json")
	useCase := NewPaymentUseCase(repo, nil, NewMockCatalogClient(), &MockGateway{}, pending, 30*time.Minute, log)
	pending.records["1712345678"] = &domain.PendingPayment{
		TxnRef:    "1712345678",
		UserID:    "user-1",
		Items:     []ordersdomain.LineItem{{ProductID: "p1", Quantity: 1, ProductName: "Webcam", UnitPrice: 100000}},
		Total:     100000,
		Contact:   validContact(),
		CreatedAt: time.Now(),
	}

	// Act
	output, err := useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: successReturn("1712345678"),
	})

	// Assert
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := repo.orders[output.Order.ID]; !ok {
		t.Error("Expected the order to be persisted without a publisher")
	}
}

func TestNewTxnRef(t *testing.T) {
	// Arrange: freeze the clock so only the random suffix varies
	f := newPaymentFixture()
	f.useCase.now = func() time.Time {
		return time.Date(2024, 3, 15, 10, 30, 0, 123456789, time.UTC)
	}

	// Act
	refs := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		ref := f.useCase.newTxnRef()
		if len(ref) != 14 {
			t.Fatalf("Expected a 14-digit reference, got %q", ref)
		}
		for _, r := range ref {
			if r < '0' || r > '9' {
				t.Fatalf("Expected a numeric reference, got %q", ref)
			}
		}
		refs[ref] = struct{}{}
	}

	// Assert: identical timestamps must not collapse to one reference
	if len(refs) < 2 {
		t.Errorf("Expected distinct references for the same timestamp, got %v", refs)
	}
}

func TestConfirmReturn_ExpiredPending(t *testing.T) {
	// Arrange: no pending record exists for the reference
	f := newPaymentFixture()

	// Act
	_, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: successReturn("1712345678"),
	})

	// Assert
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("Expected validation error for expired pending payment, got %v", err)
	}
}

func TestConfirmReturn_WrongUser(t *testing.T) {
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	_, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-2",
		Params: successReturn("1712345678"),
	})

	if !errors.Is(err, errors.CodeForbidden) {
		t.Fatalf("Expected forbidden error, got %v", err)
	}
	if len(f.repo.orders) != 0 {
		t.Error("Expected no order for another user's pending payment")
	}
}

func TestConfirmReturn_EmptyParams(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{UserID: "user-1"})

	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("Expected validation error for empty params, got %v", err)
	}
}

func TestHandleNotification_SettlesWithoutClientState(t *testing.T) {
	// Arrange: the buyer's browser never came back, only the provider calls
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	// Act
	ack := f.useCase.HandleNotification(context.Background(), successReturn("1712345678"))

	// Assert
	if ack.Code != AckConfirmed {
		t.Fatalf("Expected ack %s, got %s (%s)", AckConfirmed, ack.Code, ack.Message)
	}
	if len(f.repo.orders) != 1 {
		t.Errorf("Expected 1 persisted order, got %d", len(f.repo.orders))
	}
	for _, order := range f.repo.orders {
		if order.Status != ordersdomain.OrderStatusPaid {
			t.Errorf("Expected status %s, got %s", ordersdomain.OrderStatusPaid, order.Status)
		}
	}
}

func TestHandleNotification_AlreadyConfirmed(t *testing.T) {
	// Arrange: the return flow settled first
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")
	if _, err := f.useCase.ConfirmReturn(context.Background(), ConfirmReturnInput{
		UserID: "user-1",
		Params: successReturn("1712345678"),
	}); err != nil {
		t.Fatalf("Failed to settle via return: %v", err)
	}

	// Act
	ack := f.useCase.HandleNotification(context.Background(), successReturn("1712345678"))

	// Assert
	if ack.Code != AckAlreadyConfirmed {
		t.Errorf("Expected ack %s, got %s", AckAlreadyConfirmed, ack.Code)
	}
	if len(f.repo.orders) != 1 {
		t.Errorf("Expected exactly 1 order, got %d", len(f.repo.orders))
	}
}

func TestHandleNotification_UnknownTxnRef(t *testing.T) {
	f := newPaymentFixture()

	ack := f.useCase.HandleNotification(context.Background(), successReturn("9999999999"))

	if ack.Code != AckOrderNotFound {
		t.Errorf("Expected ack %s, got %s", AckOrderNotFound, ack.Code)
	}
}

func TestHandleNotification_InvalidSignature(t *testing.T) {
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	ack := f.useCase.HandleNotification(context.Background(), map[string]string{
		"sig": "forged", "code": "00", "ref": "1712345678",
	})

	if ack.Code != AckInvalidSignature {
		t.Errorf("Expected ack %s, got %s", AckInvalidSignature, ack.Code)
	}
	if len(f.repo.orders) != 0 {
		t.Error("Expected no order for a forged notification")
	}
}

func TestHandleNotification_DeclinedTransaction(t *testing.T) {
	f := newPaymentFixture()
	f.seedPending("1712345678", "user-1")

	ack := f.useCase.HandleNotification(context.Background(), map[string]string{
		"sig": "valid", "code": "24", "ref": "1712345678",
	})

	if ack.Code != AckConfirmed {
		t.Errorf("Expected ack %s for an acknowledged failure, got %s", AckConfirmed, ack.Code)
	}
	if len(f.repo.orders) != 0 {
		t.Error("Expected no order for a declined transaction")
	}
	if _, ok := f.pending.records["1712345678"]; ok {
		t.Error("Expected pending payment to be dropped after a decline")
	}
}
