package db

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
// The pipeline is a single sequential writer; the admin API is the only
// concurrent consumer, so the pool stays small.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open creates and configures a new database connection pool. The DSN comes
// from PGVECTOR_CONNECTION, with DATABASE_URL accepted as a fallback.
func Open() *sql.DB {
	dsn := os.Getenv("PGVECTOR_CONNECTION")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		log.Fatal("PGVECTOR_CONNECTION not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal(err)
	}

	cfg := getConnectionConfigFromEnv()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	slog.Info("database connection established successfully")
	return db
}

// getConnectionConfigFromEnv reads connection pool configuration from
// environment variables, falling back to defaults when unset. Zero,
// negative or unparseable values keep the default silently.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()
	overridePositiveInt("DB_MAX_OPEN_CONNS", &cfg.MaxOpenConns)
	overridePositiveInt("DB_MAX_IDLE_CONNS", &cfg.MaxIdleConns)
	overridePositiveDuration("DB_CONN_MAX_LIFETIME", &cfg.ConnMaxLifetime)
	overridePositiveDuration("DB_CONN_MAX_IDLE_TIME", &cfg.ConnMaxIdleTime)
	return cfg
}

func overridePositiveInt(name string, dst *int) {
	if raw := os.Getenv(name); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			*dst = val
		}
	}
}

func overridePositiveDuration(name string, dst *time.Duration) {
	if raw := os.Getenv(name); raw != "" {
		if val, err := time.ParseDuration(raw); err == nil && val > 0 {
			*dst = val
		}
	}
}
