// Package gormstore persists users and customers through GORM. It backs the
// mysql and sqlite store drivers.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultTimeout = 10 * time.Second

const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

// Open connects using dialect and dsn, tunes the pool and pings the database.
func Open(ctx context.Context, dialect, dsn string, log zerolog.Logger, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectMySQL:
		dialector = mysql.Open(mysqlDSN(dsn))
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("gormstore: unsupported dialect %q", dialect)
	}

	level := logger.Error
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.New(&log, logger.Config{SlowThreshold: 200 * time.Millisecond, LogLevel: level}),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s handle: %w", dialect, err)
	}
	if dialect == DialectMySQL {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s ping: %w", dialect, err)
	}
	return db, nil
}

// mysqlDSN forces the options the repositories rely on: UTC time parsing and
// matched (not changed) row counts so an update with identical values still
// reports the row.
func mysqlDSN(dsn string) string {
	opts := []string{"parseTime=true", "loc=UTC", "clientFoundRows=true"}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, o := range opts {
		key := o[:strings.Index(o, "=")+1]
		if !strings.Contains(dsn, key) {
			dsn += sep + o
			sep = "&"
		}
	}
	return dsn
}

// Migrate creates or updates the tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&userRecord{}, &customerRecord{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() == DialectMySQL {
		// The unique index follows the column collation, so usernames need a
		// binary one to stay case-sensitive.
		if err := db.WithContext(ctx).Exec(mysqlBinaryUsername).Error; err != nil {
			return fmt.Errorf("username collation: %w", err)
		}
	}
	return nil
}

const mysqlBinaryUsername = "ALTER TABLE users MODIFY username VARCHAR(32) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Pinger adapts a *gorm.DB to a readiness check.
type Pinger struct {
	db *gorm.DB
}

func NewPinger(db *gorm.DB) *Pinger { return &Pinger{db: db} }

func (p *Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate entry")
}
