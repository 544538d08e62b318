// Package testenv provides the shared Postgres testcontainer used by both
// services' integration suites, grounded on the teacher's
// test/integration/testenv.SetupPostgresContainer.
package testenv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresConfig is what a caller needs to open its own connection against
// the started container.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// StartPostgres starts a disposable Postgres container for one test and
// registers cleanup via t.Cleanup. The schema is left for the caller to
// apply, since the Coordinator and the Ledger own disjoint schemas
// (spec.md §2 "each service owns its own database").
func StartPostgres(t *testing.T, database string) PostgresConfig {
	t.Helper()
	ctx := context.Background()

	const user, password = "saga", "saga_test_pass"
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(database),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres testcontainer")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres testcontainer: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: database,
		User:     user,
		Password: password,
	}
}
