package adapters

import (
	"context"

	"shop-api/internal/orders/domain"
	"shop-api/pkg/events"
	"shop-api/pkg/logger"
	"shop-api/pkg/rabbitmq"
)

// RabbitMQPublisher implements EventPublisher using RabbitMQ
type RabbitMQPublisher struct {
	publisher *rabbitmq.Publisher
	log       *logger.Logger
}

// NewRabbitMQPublisher creates a new RabbitMQ event publisher
func NewRabbitMQPublisher(publisher *rabbitmq.Publisher, log *logger.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		publisher: publisher,
		log:       log,
	}
}

// PublishOrderCreated publishes an order created event
func (p *RabbitMQPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	traceID := logger.GetTraceID(ctx)

	event := events.NewOrderCreatedEvent(
		order.ID,
		order.UserID,
		order.Total,
		string(order.Status),
		string(order.PaymentMethod),
		order.CreatedAt,
		traceID,
	)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderCreated, event)
}

// PublishOrderStatusUpdated publishes a status change event
func (p *RabbitMQPublisher) PublishOrderStatusUpdated(ctx context.Context, order *domain.Order, oldStatus domain.OrderStatus) error {
	traceID := logger.GetTraceID(ctx)

	event := events.NewOrderStatusUpdatedEvent(
		order.ID,
		string(oldStatus),
		string(order.Status),
		traceID,
	)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderStatusUpdated, event)
}
