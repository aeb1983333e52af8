package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/mekanizma/modli/backend/internal/config"
	customLogger "github.com/mekanizma/modli/backend/internal/logger"
	"github.com/rs/zerolog"
)

const (
	DatabasePingTimeout = 10
	// upper bound for waiting on the database while the stack boots
	startupWait = 60 * time.Second
)

type Database struct {
	Pool   *pgxpool.Pool
	logger *zerolog.Logger
}

type multiTracer struct {
	tracers []any
}

// TraceQueryStart implements pgx tracer interface
func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryStart(context.Context, *pgx.Conn, pgx.TraceQueryStartData) context.Context
		}); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

// TraceQueryEnd implements pgx tracer interface
func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData)
		}); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// URL builds a postgres:// connection URL with an escaped password.
func URL(cfg config.DatabaseConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		hostPort,
		cfg.Name,
		cfg.SSLMode,
	)
}

func New(cfg config.DatabaseConfig, logger *zerolog.Logger) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	pgxPoolConfig.MaxConns = int32(cfg.MaxOpenConns)
	pgxPoolConfig.MinConns = int32(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		pgxPoolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pgxPoolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pgxLogger := customLogger.NewPgxLogger()
	localTracer := &tracelog.TraceLog{
		Logger:   pgxzero.NewLogger(pgxLogger),
		LogLevel: tracelog.LogLevelWarn,
	}
	pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
		tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	database := &Database{
		Pool:   pool,
		logger: logger,
	}

	if err = WaitFor(context.Background(), logger, "database", func(ctx context.Context) error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("connected to the database")

	return database, nil
}

// WaitFor pings a dependency with exponential backoff until it answers or
// startupWait elapses. Only used at boot.
func WaitFor(ctx context.Context, logger *zerolog.Logger, name string, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupWait

	operation := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, DatabasePingTimeout*time.Second)
		defer cancel()
		return ping(pingCtx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Str("dependency", name).Dur("retry_in", next).Msg("dependency not ready")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}

func (db *Database) Close() {
	db.logger.Info().Msg("closing database connection pool")
	if db.Pool == nil {
		return
	}
	db.Pool.Close()
}
