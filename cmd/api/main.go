package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcpay-merchant/internal/client"
	"arcpay-merchant/internal/config"
	"arcpay-merchant/internal/logger"
	"arcpay-merchant/internal/messaging"
	"arcpay-merchant/internal/messaging/kafka"
	"arcpay-merchant/internal/messaging/noop"
	"arcpay-merchant/internal/pubsub"
	"arcpay-merchant/internal/repository"
	"arcpay-merchant/internal/server"
	"arcpay-merchant/internal/service"
	"arcpay-merchant/internal/signature"
	"arcpay-merchant/internal/store"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	db := client.InitSqliteClient(cfg.DatabaseURL)
	arcPayClient := client.NewArcPayClient(&cfg.ArcPay)

	orderRepo := repository.NewOrderRecordRepository(db)
	transitionRepo := repository.NewTransitionRepository(db)

	var eventPublisher messaging.EventPublisher = noop.Publisher{}
	var kafkaPublisher *kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		eventPublisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka events enabled")
	}

	orderStore := store.New()
	publisher := pubsub.NewPublisher()
	verifier := signature.NewVerifier([]byte(cfg.ArcPay.WebhookSecret))

	orderService := service.NewOrderService(arcPayClient, orderStore, orderRepo, log)
	reconcileService := service.NewReconcileService(
		verifier,
		orderStore,
		publisher,
		orderRepo,
		transitionRepo,
		eventPublisher,
		cfg.ArcPay.Testnet,
		log,
	)

	// populate the store from the archive before serving
	loaded, err := orderService.PopulateStore(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("populate order store")
	}
	log.Info().Int("orders", loaded).Msg("order store populated")

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(orderService, reconcileService, publisher)

	log.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info().Msg("Signal received, starting graceful shutdown...")

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("kafka writer close")
		}
	}

	if err := srv.Shutdown(); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}
