package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a private in-memory SQLite database and wraps it in an
// ent SQL driver. The database lives as long as the returned driver.
func OpenSQLite(ctx context.Context, logger *slog.Logger) (*entsql.Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := "taxdocs_" + uuid.NewString()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name)
	logger.Info("opening sqlite store", "name", name)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open sqlite", "error", err)
		return nil, err
	}
	// one connection keeps the in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to ping sqlite", "error", err)
		return nil, err
	}
	return entsql.OpenDB(dialect.SQLite, db), nil
}

// Close closes the driver and logs the outcome.
func Close(drv *entsql.Driver, logger *slog.Logger) {
	if drv == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := drv.Close(); err != nil {
		logger.Error("failed to close sqlite store", "error", err)
		return
	}
	logger.Info("sqlite store closed")
}

// HealthCheck pings the underlying database.
func HealthCheck(ctx context.Context, drv *entsql.Driver, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return drv.DB().PingContext(ctx)
}
