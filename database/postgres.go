package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"equiherds-backend/config"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresDialer opens GORM handles against PostgreSQL with a bounded pool.
type PostgresDialer struct {
	cfg config.DatabaseConfig
	log zerolog.Logger
}

func NewPostgresDialer(cfg config.DatabaseConfig, log zerolog.Logger) *PostgresDialer {
	return &PostgresDialer{
		cfg: cfg,
		log: log.With().Str("component", "gorm").Logger(),
	}
}

func (d *PostgresDialer) Dial(ctx context.Context) (Conn, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: d.cfg.DSN()}), &gorm.Config{
		// The manager pings under its own timeout.
		DisableAutomaticPing: true,
		TranslateError:       true,
		Logger: gormlogger.New(gormWriter{d.log}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	if d.cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(d.cfg.MaxOpenConns)
	}
	if d.cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(d.cfg.MaxIdleConns)
	}
	if d.cfg.IdleTimeout > 0 {
		sqlDB.SetConnMaxIdleTime(d.cfg.IdleTimeout)
	}
	if d.cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(d.cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return WrapGorm(db)
}

// WrapGorm turns an open GORM handle into a Conn probed with PingContext.
func WrapGorm(db *gorm.DB) (Conn, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &gormConn{db: db, sqlDB: sqlDB}, nil
}

type gormConn struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	closed atomic.Bool
}

func (c *gormConn) DB() *gorm.DB { return c.db }

func (c *gormConn) Probe(ctx context.Context) State {
	if c.closed.Load() {
		return StateDisconnected
	}
	if err := c.sqlDB.PingContext(ctx); err != nil {
		if c.saturated(err) {
			return StateReady
		}
		return StateDegraded
	}
	return StateReady
}

// saturated reports a ping that timed out waiting for a free connection
// because every pooled connection is checked out. The pool is busy, not dead.
func (c *gormConn) saturated(err error) bool {
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return false
	}
	st := c.sqlDB.Stats()
	return st.MaxOpenConnections > 0 && st.InUse >= st.MaxOpenConnections
}

func (c *gormConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.sqlDB.Close()
}

// gormWriter routes GORM's warn/error/slow-query lines into zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Msgf(format, args...)
}
