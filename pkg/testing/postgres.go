package testing

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/2beens/gymcoach/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// MigrationsPath points to the migrations dir of this repo.
func MigrationsPath() string {
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		return path
	}
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}

// GetPostgresPool connects to the test database (POSTGRES_HOST / POSTGRES_PORT env),
// migrates it to the latest version and closes the pool when the test ends.
func GetPostgresPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	params := db.NewDBPoolParams{
		DBHost: os.Getenv("POSTGRES_HOST"),
		DBPort: os.Getenv("POSTGRES_PORT"),
		DBName: "gymcoach_test",
	}
	if params.DBHost == "" {
		params.DBHost = "localhost"
	}
	if params.DBPort == "" {
		params.DBPort = "5432"
	}
	t.Logf("using postgres: [%s:%s]", params.DBHost, params.DBPort)

	require.NoError(t, db.RunMigrations(db.ConnString(params)+"?sslmode=disable", MigrationsPath()))

	pool, err := db.NewDBPool(ctx, params)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return ctx, pool
}
