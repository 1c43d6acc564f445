package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"shop-api/pkg/config"
	"shop-api/pkg/events"
	"shop-api/pkg/logger"
	"shop-api/pkg/rabbitmq"
)

// The dashboard worker tails the order event stream and writes a
// structured activity log. It is the consumer side of the events the API
// publishes; a real storefront would feed these into back-office tooling.
func main() {
	cfg := config.Load()

	log := logger.New("shop-dashboard", cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting dashboard worker")

	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ: " + err.Error())
	}
	defer rabbitConn.Close()

	consumer, err := rabbitmq.NewConsumer(
		rabbitConn,
		"dashboard.order_events",
		events.ExchangeOrders,
		[]string{"order.*"},
		log,
	)
	if err != nil {
		log.Fatal("failed to create consumer: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Consume(ctx, handleOrderEvent(log)); err != nil {
		log.Fatal("failed to start consuming: " + err.Error())
	}

	log.Info("dashboard worker consuming order events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("dashboard worker stopped")
}

func handleOrderEvent(log *logger.Logger) rabbitmq.MessageHandler {
	return func(ctx context.Context, routingKey string, body []byte) error {
		switch routingKey {
		case events.RoutingKeyOrderCreated:
			var event events.OrderCreatedEvent
			if err := json.Unmarshal(body, &event); err != nil {
				return err
			}
			log.WithContext(ctx).Info("order created",
				zap.String("order_id", event.Payload.ID),
				zap.String("user_id", event.Payload.UserID),
				zap.Int64("total", event.Payload.Total),
				zap.String("status", event.Payload.Status),
				zap.String("payment_method", event.Payload.PaymentMethod),
			)

		case events.RoutingKeyOrderStatusUpdated:
			var event events.OrderStatusUpdatedEvent
			if err := json.Unmarshal(body, &event); err != nil {
				return err
			}
			log.WithContext(ctx).Info("order status updated",
				zap.String("order_id", event.Payload.ID),
				zap.String("old_status", event.Payload.OldStatus),
				zap.String("new_status", event.Payload.NewStatus),
			)

		default:
			log.WithContext(ctx).Warn("unhandled order event",
				zap.String("routing_key", routingKey),
			)
		}
		return nil
	}
}
