package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	ordersadapters "shop-api/internal/orders/adapters"
	ordersapp "shop-api/internal/orders/application"
	ordersinfra "shop-api/internal/orders/infrastructure"
	ordersports "shop-api/internal/orders/ports"
	paymentsadapters "shop-api/internal/payments/adapters"
	paymentsapp "shop-api/internal/payments/application"
	paymentsinfra "shop-api/internal/payments/infrastructure"
	"shop-api/pkg/config"
	"shop-api/pkg/db"
	"shop-api/pkg/events"
	"shop-api/pkg/guard"
	"shop-api/pkg/logger"
	"shop-api/pkg/middleware"
	"shop-api/pkg/rabbitmq"
	tlspkg "shop-api/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New("shop-api", cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting shop API")

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	// Initialize repository and run migrations
	repo := ordersadapters.NewPostgresOrderRepository(dbConn)
	if err := repo.Migrate(); err != nil {
		log.Fatal("failed to migrate database: " + err.Error())
	}

	// Connect to RabbitMQ. Events are best-effort; the API stays up
	// without a broker. The interface stays nil unless setup succeeds,
	// so the use cases see "no publisher" rather than a nil adapter.
	var publisher ordersports.EventPublisher
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to RabbitMQ, events will be disabled: " + err.Error())
	} else {
		defer rabbitConn.Close()

		pub, err := rabbitmq.NewPublisher(rabbitConn, events.ExchangeOrders, log)
		if err != nil {
			log.Warn("failed to create publisher: " + err.Error())
		} else {
			publisher = ordersadapters.NewRabbitMQPublisher(pub, log)
		}
	}

	// Connect to Redis for pending payments
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to Redis: " + err.Error())
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	catalog := ordersadapters.NewHTTPCatalogClient(cfg.CatalogBaseURL)
	gateway := paymentsadapters.NewHostedGateway(paymentsadapters.GatewayConfig{
		TmnCode:    cfg.GatewayTmnCode,
		HashSecret: cfg.GatewayHashSecret,
		PayURL:     cfg.GatewayPayURL,
		ReturnURL:  cfg.GatewayReturnURL,
	})
	pendingStore := paymentsadapters.NewRedisPendingStore(redisClient)
	submissionGuard := guard.New()

	// Initialize use cases
	orderUseCase := ordersapp.NewOrderUseCase(repo, publisher, catalog, log)
	paymentUseCase := paymentsapp.NewPaymentUseCase(
		repo, publisher, catalog, gateway, pendingStore, cfg.PendingPaymentTTL, log,
	)

	// Start HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())

	api := router.Group("/api/v1")
	ordersinfra.NewHTTPHandler(orderUseCase, submissionGuard).RegisterRoutes(api, cfg.JWTSecret)
	paymentsinfra.NewHTTPHandler(paymentUseCase, submissionGuard).RegisterRoutes(api, cfg.JWTSecret)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		var err error
		if cfg.TLSEnabled {
			tlsConfig, tlsErr := tlspkg.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
			if tlsErr != nil {
				log.Fatal("failed to load TLS config: " + tlsErr.Error())
			}
			httpServer.Addr = ":" + cfg.HTTPSPort
			httpServer.TLSConfig = tlsConfig
			log.Info("HTTPS server listening on " + httpServer.Addr)
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			log.Info("HTTP server listening on " + httpServer.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: " + err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("server stopped")
}
