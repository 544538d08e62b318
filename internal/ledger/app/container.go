// Package app wires the Ledger's components together, grounded on the
// teacher's internal/pkg/components.Container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saga-engine/internal/ledger/api/handlers"
	"saga-engine/internal/ledger/api/routes"
	"saga-engine/internal/ledger/dlq"
	"saga-engine/internal/ledger/domain"
	ledgerevents "saga-engine/internal/ledger/events"
	"saga-engine/internal/ledger/store/postgres"
	"saga-engine/internal/platform/broker"
	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/logging"
	"saga-engine/internal/platform/outbox"
	"saga-engine/internal/platform/retrybackoff"
)

type Container struct {
	Config    config.LedgerConfig
	Store     *postgres.Store
	Producer  *broker.Producer
	Consumer  *broker.ConsumerGroup
	Publisher *outbox.Publisher
	Router    *gin.Engine
	Server    *http.Server
}

func New(ctx context.Context) (*Container, error) {
	cfg := config.LoadLedger()
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: "ledger"})

	store, err := postgres.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	producer, err := broker.NewProducer(cfg.Broker)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init producer: %w", err)
	}

	refundPolicy := retrybackoff.DefaultPolicy()
	refundPolicy.MaxAttempts = cfg.RefundMaxAttempts
	refundPolicy.InitialInterval = cfg.RefundInitialBackoff
	refundPolicy.MaxInterval = cfg.RefundMaxBackoff

	handler := ledgerevents.NewHandler(store, refundPolicy)
	consumer, err := broker.NewConsumerGroup(cfg.Broker, "ledger-group", []string{
		events.TopicTransferInitiated,
		events.TopicWalletDebited,
		events.TopicWalletCreditFailed,
	}, handler.Handle)
	if err != nil {
		producer.Close()
		store.Close()
		return nil, fmt.Errorf("init consumer: %w", err)
	}

	publisher := outbox.NewPublisher(store, producer, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)
	admin := dlq.NewAdmin(store, handler.HandleReplay)

	router := gin.New()
	router.Use(gin.Recovery())
	deps := &dependencies{store: store, admin: admin}
	routes.Register(router, deps, cfg.AdminAuthSecret)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Container{
		Config:    cfg,
		Store:     store,
		Producer:  producer,
		Consumer:  consumer,
		Publisher: publisher,
		Router:    router,
		Server:    server,
	}, nil
}

// Run starts every worker and blocks until SIGINT/SIGTERM, then drains
// gracefully (spec.md §5 "Scheduling model").
func (c *Container) Run() error {
	c.Consumer.Start()
	c.Publisher.Start()

	go func() {
		logging.Info("ledger http server starting", map[string]interface{}{"addr": c.Server.Addr})
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("http server failed", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("ledger shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return c.Shutdown(ctx)
}

func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		logging.Error("http server shutdown failed", err, nil)
	}
	c.Publisher.Stop()
	if err := c.Consumer.Stop(); err != nil {
		logging.Error("consumer shutdown failed", err, nil)
	}
	if err := c.Producer.Close(); err != nil {
		logging.Error("producer shutdown failed", err, nil)
	}
	c.Store.Close()
	logging.Sync()
	return nil
}

type dependencies struct {
	store *postgres.Store
	admin *dlq.Admin
}

func (d *dependencies) GetWalletStore() handlers.WalletStore { return walletStoreAdapter{d.store} }
func (d *dependencies) GetDLQAdmin() handlers.DLQAdmin       { return d.admin }

// walletStoreAdapter narrows postgres.Store to the handlers.WalletStore
// interface.
type walletStoreAdapter struct{ s *postgres.Store }

func (a walletStoreAdapter) CreateWallet(ctx context.Context, userID uuid.UUID) (domain.Wallet, error) {
	return a.s.CreateWallet(ctx, userID)
}

func (a walletStoreAdapter) GetWallet(ctx context.Context, walletID uuid.UUID) (domain.Wallet, error) {
	return a.s.GetWallet(ctx, walletID)
}
