// Package app wires the Coordinator's components together, grounded on
// the teacher's internal/pkg/components.Container (per-concern initX
// methods, graceful shutdown via os/signal + context.WithTimeout).
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

	coordevents "saga-engine/internal/coordinator/events"
	"saga-engine/internal/coordinator/api/handlers"
	"saga-engine/internal/coordinator/api/routes"
	"saga-engine/internal/coordinator/domain"
	"saga-engine/internal/coordinator/store/postgres"
	"saga-engine/internal/coordinator/timeout"
	"saga-engine/internal/platform/broker"
	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/logging"
	"saga-engine/internal/platform/outbox"
)

type Container struct {
	Config   config.CoordinatorConfig
	Store    *postgres.Store
	Producer *broker.Producer
	Consumer *broker.ConsumerGroup
	Publisher *outbox.Publisher
	Scanner  *timeout.Scanner
	Router   *gin.Engine
	Server   *http.Server
}

func New(ctx context.Context) (*Container, error) {
	cfg := config.LoadCoordinator()
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: "coordinator"})

	store, err := postgres.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	producer, err := broker.NewProducer(cfg.Broker)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init producer: %w", err)
	}

	handler := coordevents.NewHandler(store)
	consumer, err := broker.NewConsumerGroup(cfg.Broker, "coordinator-group", []string{
		events.TopicWalletDebited,
		events.TopicWalletDebitFailed,
		events.TopicWalletCredited,
		events.TopicWalletCreditFailed,
	}, handler.Handle)
	if err != nil {
		producer.Close()
		store.Close()
		return nil, fmt.Errorf("init consumer: %w", err)
	}

	publisher := outbox.NewPublisher(store, producer, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)
	scanner := timeout.New(store, cfg.ScannerPeriod, cfg.ScannerBatch)

	router := gin.New()
	router.Use(gin.Recovery())
	deps := &dependencies{store: store, sagaTimeout: cfg.SagaTimeout}
	routes.Register(router, deps)

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
		Scanner:   scanner,
		Router:    router,
		Server:    server,
	}, nil
}

// Run starts every worker and blocks until SIGINT/SIGTERM, then drains
// gracefully (spec.md §5 "Scheduling model").
func (c *Container) Run() error {
	c.Consumer.Start()
	c.Publisher.Start()
	c.Scanner.Start()

	go func() {
		logging.Info("coordinator http server starting", map[string]interface{}{"addr": c.Server.Addr})
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("http server failed", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("coordinator shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return c.Shutdown(ctx)
}

func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		logging.Error("http server shutdown failed", err, nil)
	}
	c.Scanner.Stop()
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
	store       *postgres.Store
	sagaTimeout time.Duration
}

func (d *dependencies) GetStore() handlers.Store      { return storeAdapter{d.store} }
func (d *dependencies) GetSagaTimeout() time.Duration { return d.sagaTimeout }

// storeAdapter narrows postgres.Store to the handlers.Store interface.
type storeAdapter struct{ s *postgres.Store }

func (a storeAdapter) CreateTransfer(ctx context.Context, senderID, receiverID uuid.UUID, amount int64, sagaTimeout time.Duration) (domain.Transfer, error) {
	return a.s.CreateTransfer(ctx, senderID, receiverID, amount, sagaTimeout)
}

func (a storeAdapter) GetTransfer(ctx context.Context, transferID uuid.UUID) (domain.Transfer, error) {
	return a.s.GetTransfer(ctx, transferID)
}
