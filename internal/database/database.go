// Package database provides database connection and persistence helpers.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrUnsupportedDriver indicates the database URL scheme is not supported.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Database wraps a GORM connection. It is a small value type that is
// passed by value into repositories; the underlying *gorm.DB is shared.
type Database struct {
	gorm    *gorm.DB
	dialect string
}

// NewDatabase opens a database connection from a URL. Supported schemes
// are sqlite:// (file path) and postgres:// / postgresql://.
func NewDatabase(ctx context.Context, url string) (Database, error) {
	dialector, err := parseDialector(url)
	if err != nil {
		return Database{}, fmt.Errorf("parse database url: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: slogGormLogger{},
	})
	if err != nil {
		return Database{}, fmt.Errorf("open database: %w", err)
	}

	d := Database{gorm: db, dialect: dialector.Name()}

	// Verify the connection is usable before handing it out.
	sqlDB, err := db.DB()
	if err != nil {
		return Database{}, fmt.Errorf("get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return Database{}, fmt.Errorf("ping database: %w", err)
	}

	if d.IsSQLite() {
		// SQLite serializes writers; WAL keeps readers from blocking and
		// the busy timeout absorbs short write contention.
		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")
		db.Exec("PRAGMA foreign_keys=ON")
	}

	return d, nil
}

// parseDialector maps a database URL to a GORM dialector.
func parseDialector(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite:///")
		if path == "" {
			path = strings.TrimPrefix(url, "sqlite://")
		}
		return sqlite.Open(path), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

// IsSQLite returns true when connected to SQLite.
func (d Database) IsSQLite() bool {
	return d.dialect == "sqlite"
}

// IsPostgres returns true when connected to PostgreSQL.
func (d Database) IsPostgres() bool {
	return d.dialect == "postgres"
}

// Session returns a GORM session bound to the given context.
func (d Database) Session(ctx context.Context) *gorm.DB {
	return d.gorm.WithContext(ctx)
}

// GORM returns the underlying GORM connection.
func (d Database) GORM() *gorm.DB {
	return d.gorm
}

// ConfigurePool configures the underlying connection pool.
func (d Database) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)
	return nil
}

// Close closes the underlying connection.
func (d Database) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
