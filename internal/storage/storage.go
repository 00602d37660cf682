// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package storage // import "streamlance.app/internal/storage"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"streamlance.app/internal/logging"
)

// New returns a Storage backed by a pgx pool of at most maxConns
// connections. Connections are recycled after lifeTime.
func New(ctx context.Context, connString string, maxConns, minConns int,
	lifeTime time.Duration,
) (*Storage, error) {
	c, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("storage: parse connection string: %w", err)
	}

	c.MaxConns = int32(maxConns)
	c.MinConns = int32(minConns)
	c.MaxConnLifetime = lifeTime
	c.ConnConfig.Tracer = queryTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage: create connection pool: %w", err)
	}
	return &Storage{db: pool}, nil
}

// Storage keeps users, their preferences, postings, feed states and the
// ledger of sent notifications.
type Storage struct {
	db *pgxpool.Pool
}

// Close closes the pool. Pool statistics are logged once here and exported
// continuously by the metrics collector.
func (s *Storage) Close(ctx context.Context) {
	stat := s.db.Stat()
	logging.FromContext(ctx).Info("Database connections closed",
		slog.Int64("acquired", stat.AcquireCount()),
		slog.Duration("acquire_time", stat.AcquireDuration()),
		slog.Int64("waited", stat.EmptyAcquireCount()),
		slog.Int64("canceled", stat.CanceledAcquireCount()),
		slog.Int64("opened", stat.NewConnsCount()))
	s.db.Close()
}

// DatabaseVersion returns the version of the database which is in use.
func (s *Storage) DatabaseVersion(ctx context.Context) string {
	rows, _ := s.db.Query(ctx,
		`SELECT current_setting('server_version')`)
	dbVersion, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[string])
	if err != nil {
		return err.Error()
	}
	return dbVersion
}

// Ping checks if the database connection works.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("storage: ping failed: %w", err)
	}
	return nil
}

// DBSize returns the size of the database, like "12 MB".
func (s *Storage) DBSize(ctx context.Context) (string, error) {
	rows, _ := s.db.Query(ctx,
		"SELECT pg_size_pretty(pg_database_size(current_database()))")
	size, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[string])
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	return size, nil
}

// ErrNotFound is returned when a row to update doesn't exist.
var ErrNotFound = errors.New("not found")
