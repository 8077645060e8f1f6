package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/api"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/auth"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/config"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/cart"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/checkout"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/product"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/ticket"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/user"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/kafka"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("[API] JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[API] JWT_SECRET must be at least 32 characters long")
	}

	log.Println("[API] ========================================")
	log.Println("[API] Shop API")
	log.Println("[API] ========================================")
	log.Printf("[API] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.KafkaTopic)
	log.Printf("[API] Stock backend: %s", cfg.StockBackend)

	// Kafka producer for domain events
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// PostgreSQL connection
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("[API] Connected to PostgreSQL")

	if err := store.EnsureSchema(db); err != nil {
		log.Fatalf("[API] Failed to ensure schema: %v", err)
	}

	// Stores
	var productStore store.ProductStore
	switch cfg.StockBackend {
	case config.StockBackendDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("[API] Failed to load AWS config: %v", err)
		}
		productStore = store.NewDynamoProductStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoProductsTable)
		log.Printf("[API] Inventory: DynamoDB table %s", cfg.DynamoProductsTable)
	default:
		productStore = store.NewPostgresProductStore(db)
		log.Println("[API] Inventory: PostgreSQL")
	}
	cartStore := store.NewPostgresCartStore(db)
	ticketStore := store.NewPostgresTicketStore(db)
	userStore := store.NewPostgresUserStore(db)

	// Domain services
	productSvc := product.NewService(productStore)
	cartSvc := cart.NewService(cartStore, productStore)
	ticketSvc := ticket.NewService(ticketStore, cfg.TicketCodePrefix)
	checkoutSvc := checkout.NewService(productStore, cartStore, ticketSvc, producer, cfg.TaxRateBPS)
	userSvc := user.NewService(userStore)

	jwtService := auth.NewJWTService(cfg.JWTSecret, 24*time.Hour)

	handlers := api.NewHandlers(productSvc, cartSvc, checkoutSvc, ticketSvc)
	authHandlers := api.NewAuthHandlers(userSvc, jwtService)
	router := api.NewRouter(api.RouterConfig{
		Handlers:     handlers,
		AuthHandlers: authHandlers,
		JWTService:   jwtService,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
