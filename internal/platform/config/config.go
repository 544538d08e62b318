// Package config loads the enumerated environment configuration for both
// services, following the teacher's getEnv/getEnvAsInt helper idiom.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreConfig is the relational store connection configuration, one per
// service (each service owns its own database, spec.md §3).
type StoreConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c StoreConfig) ConnectionString() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// BrokerConfig configures the broker client shared by producer and
// consumer group.
type BrokerConfig struct {
	Brokers  []string
	ClientID string
}

// LoggingConfig configures internal/platform/logging.
type LoggingConfig struct {
	Level  string
	Format string
}

// OutboxConfig tunes the polling publisher (spec.md §4.3 / §6).
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// CoordinatorConfig is the full configuration for cmd/coordinator.
type CoordinatorConfig struct {
	Port            string
	Store           StoreConfig
	Broker          BrokerConfig
	Logging         LoggingConfig
	Outbox          OutboxConfig
	SagaTimeout     time.Duration
	ScannerPeriod   time.Duration
	ScannerBatch    int
	AdminAuthSecret string
}

// LedgerConfig is the full configuration for cmd/ledger.
type LedgerConfig struct {
	Port                string
	Store               StoreConfig
	Broker              BrokerConfig
	Logging             LoggingConfig
	Outbox              OutboxConfig
	RefundMaxAttempts   int
	RefundInitialBackoff time.Duration
	RefundMaxBackoff    time.Duration
	AdminAuthSecret     string
}

func LoadCoordinator() CoordinatorConfig {
	return CoordinatorConfig{
		Port:    getEnv("COORDINATOR_PORT", "8080"),
		Store:   loadStoreConfig("COORDINATOR_DB", "transaction"),
		Broker:  loadBrokerConfig("coordinator"),
		Logging: loadLoggingConfig(),
		Outbox:  loadOutboxConfig(),
		SagaTimeout:     getEnvAsDuration("SAGA_TIMEOUT_MS", 60000*time.Millisecond),
		ScannerPeriod:   getEnvAsDuration("TIMEOUT_SCANNER_PERIOD", 10*time.Second),
		ScannerBatch:    getEnvAsInt("TIMEOUT_SCANNER_BATCH", 100),
		AdminAuthSecret: getEnv("ADMIN_AUTH_SECRET", ""),
	}
}

func LoadLedger() LedgerConfig {
	return LedgerConfig{
		Port:    getEnv("LEDGER_PORT", "8081"),
		Store:   loadStoreConfig("LEDGER_DB", "wallet"),
		Broker:  loadBrokerConfig("ledger"),
		Logging: loadLoggingConfig(),
		Outbox:  loadOutboxConfig(),
		RefundMaxAttempts:    getEnvAsInt("REFUND_RETRY_MAX_ATTEMPTS", 3),
		RefundInitialBackoff: getEnvAsDuration("REFUND_RETRY_INITIAL_BACKOFF_MS", 100*time.Millisecond),
		RefundMaxBackoff:     getEnvAsDuration("REFUND_RETRY_MAX_BACKOFF_MS", 2*time.Second),
		AdminAuthSecret:      getEnv("ADMIN_AUTH_SECRET", ""),
	}
}

func loadStoreConfig(prefix, defaultDB string) StoreConfig {
	return StoreConfig{
		Host:            getEnv(prefix+"_HOST", "localhost"),
		Port:            getEnvAsInt(prefix+"_PORT", 5432),
		Database:        getEnv(prefix+"_NAME", defaultDB),
		User:            getEnv(prefix+"_USER", defaultDB),
		Password:        getEnv(prefix+"_PASSWORD", ""),
		SSLMode:         getEnv(prefix+"_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt(prefix+"_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt(prefix+"_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration(prefix+"_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadBrokerConfig(clientSuffix string) BrokerConfig {
	brokers := strings.Split(getEnv("BROKER_ENDPOINTS", "localhost:9092"), ",")
	return BrokerConfig{
		Brokers:  brokers,
		ClientID: getEnv("BROKER_CLIENT_ID", "saga-"+clientSuffix),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

func loadOutboxConfig() OutboxConfig {
	return OutboxConfig{
		PollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL_MS", 50*time.Millisecond),
		BatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
