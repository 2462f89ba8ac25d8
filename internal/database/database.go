// Package database opens the shop's Postgres connection and provisions its
// tables.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Checkout, webhook deliveries and the admin catalog share one pool.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Connect opens the shop database with query tracing. SQL statements are
// logged only when verbose is set.
func Connect(dsn string, verbose bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: statementLogger(verbose),
	})
	if err != nil {
		return nil, fmt.Errorf("open shop database: %w", err)
	}

	// Bound values carry customer emails and stay out of spans.
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName("shop"),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return nil, fmt.Errorf("install query tracing: %w", err)
	}

	if err := sizePool(db); err != nil {
		return nil, err
	}
	return db, nil
}

func statementLogger(verbose bool) logger.Interface {
	if verbose {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Silent)
}

func sizePool(db *gorm.DB) error {
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("shop database pool: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)
	return nil
}

// Ping reports whether the shop database answers. The health route uses it.
func Ping(ctx context.Context, db *gorm.DB) error {
	pool, err := db.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	pool, err := db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}
