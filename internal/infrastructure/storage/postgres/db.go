// Package postgres 以 PostgreSQL（pgx）實作儲存層
package postgres

import (
	"context"
	"fmt"
	"time"

	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DatabaseIface 資料庫操作介面，測試時以 pgxmock 取代
type DatabaseIface interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Connect 建立連線池並測試連線
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	common.LogInfo("資料庫連線已建立",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return pool, nil
}

// schema 啟動時確保資料表存在
var schema = []string{
	`CREATE TABLE IF NOT EXISTS meals (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		date         DATE NOT NULL,
		meal_type    TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		calories     DOUBLE PRECISION,
		protein      DOUBLE PRECISION,
		carbs        DOUBLE PRECISION,
		fat          DOUBLE PRECISION,
		serving_size TEXT NOT NULL DEFAULT '',
		recipe       TEXT NOT NULL DEFAULT '',
		ingredients  JSONB NOT NULL DEFAULT '[]',
		tags         TEXT[] NOT NULL DEFAULT '{}',
		source       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS meals_user_date_slot_idx ON meals (user_id, date, meal_type)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		name         TEXT NOT NULL,
		ingredients  JSONB NOT NULL DEFAULT '[]',
		recipe       TEXT NOT NULL DEFAULT '',
		serving_size TEXT NOT NULL DEFAULT '',
		calories     DOUBLE PRECISION,
		protein      DOUBLE PRECISION,
		carbs        DOUBLE PRECISION,
		fat          DOUBLE PRECISION,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS recipes_user_name_idx ON recipes (user_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS grocery_lists (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		week_start DATE NOT NULL,
		items      JSONB NOT NULL DEFAULT '[]',
		checklist  JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, week_start)
	)`,
	`CREATE TABLE IF NOT EXISTS news_digest_items (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		headline     TEXT NOT NULL,
		summary      TEXT NOT NULL,
		url          TEXT NOT NULL DEFAULT '',
		source_name  TEXT NOT NULL DEFAULT '',
		delivered_on DATE NOT NULL,
		delivered_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS news_digest_user_day_idx ON news_digest_items (user_id, delivered_on)`,
	`CREATE TABLE IF NOT EXISTS nutrition_preferences (
		user_id              TEXT PRIMARY KEY,
		calories             DOUBLE PRECISION NOT NULL,
		protein              DOUBLE PRECISION NOT NULL,
		carbs                DOUBLE PRECISION NOT NULL,
		fat                  DOUBLE PRECISION NOT NULL,
		dietary_restrictions TEXT[] NOT NULL DEFAULT '{}',
		cuisines             TEXT[] NOT NULL DEFAULT '{}',
		notes                TEXT NOT NULL DEFAULT '',
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS news_preferences (
		user_id    TEXT PRIMARY KEY,
		interests  TEXT[] NOT NULL DEFAULT '{}',
		sources    TEXT[] NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema 建立缺少的資料表與索引
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
