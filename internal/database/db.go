package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBTX — общий интерфейс для *pgxpool.Pool, pgx.Tx и моков в тестах.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect создаёт пул и проверяет соединение.
func Connect(ctx context.Context, cfg DBConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := EnsureDatabase(ctx, cfg, log); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.TargetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to postgres", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return pool, nil
}

// EnsureDatabase создаёт базу, если заданы креды суперпользователя и базы ещё нет.
func EnsureDatabase(ctx context.Context, cfg DBConfig, log *zap.Logger) error {
	dsn := cfg.AdminDSN()
	if dsn == "" {
		return nil
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("admin connect: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check database: %w", err)
	}
	if exists {
		return nil
	}

	ident := pgx.Identifier{cfg.DBName}.Sanitize()
	owner := pgx.Identifier{cfg.User}.Sanitize()
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident+" OWNER "+owner); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	log.Info("database created", zap.String("db", cfg.DBName))
	return nil
}

// Migrate применяет схему (идемпотентно).
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
