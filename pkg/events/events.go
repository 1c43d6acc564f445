package events

import "time"

// Exchange names
const (
	ExchangeOrders = "orders.events"
)

// Routing keys
const (
	RoutingKeyOrderCreated       = "order.created"
	RoutingKeyOrderStatusUpdated = "order.status_updated"
)

// OrderCreatedEvent is published when an order is created
type OrderCreatedEvent struct {
	Version   string              `json:"version"`
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	TraceID   string              `json:"trace_id"`
	Payload   OrderCreatedPayload `json:"payload"`
}

// OrderCreatedPayload contains order data
type OrderCreatedPayload struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Total         int64     `json:"total"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(id, userID string, total int64, status, paymentMethod string, createdAt time.Time, traceID string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		Version:   "1.0",
		EventType: "order.created",
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderCreatedPayload{
			ID:            id,
			UserID:        userID,
			Total:         total,
			Status:        status,
			PaymentMethod: paymentMethod,
			CreatedAt:     createdAt,
		},
	}
}

// OrderStatusUpdatedEvent is published when an order's status changes
type OrderStatusUpdatedEvent struct {
	Version   string                    `json:"version"`
	EventType string                    `json:"event_type"`
	Timestamp time.Time                 `json:"timestamp"`
	TraceID   string                    `json:"trace_id"`
	Payload   OrderStatusUpdatedPayload `json:"payload"`
}

// OrderStatusUpdatedPayload contains the status transition
type OrderStatusUpdatedPayload struct {
	ID        string `json:"id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// NewOrderStatusUpdatedEvent creates a new OrderStatusUpdatedEvent
func NewOrderStatusUpdatedEvent(id, oldStatus, newStatus, traceID string) *OrderStatusUpdatedEvent {
	return &OrderStatusUpdatedEvent{
		Version:   "1.0",
		EventType: "order.status_updated",
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderStatusUpdatedPayload{
			ID:        id,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	}
}
