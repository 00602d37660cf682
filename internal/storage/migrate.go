package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"streamlance.app/internal/logging"
)

// migrationLock is the key of the advisory lock held while migrating, so
// daemons sharing a database don't migrate it concurrently.
const migrationLock int64 = 0x53544c4e

var ErrSchemaOutdated = errors.New("storage: database schema is not up to date")

// Migrate applies every migration newer than the current schema version. The
// first migration creates the whole schema of a fresh database.
func (s *Storage) Migrate(ctx context.Context) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("storage: acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`,
		migrationLock); err != nil {
		return fmt.Errorf("storage: lock migrations: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx),
			`SELECT pg_advisory_unlock($1)`, migrationLock)
	}()

	current, err := currentSchemaVersion(ctx, conn)
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx).With(
		slog.Int("latest_version", schemaVersion))
	if current >= schemaVersion {
		log.Info("Database schema is up to date",
			slog.Int("current_version", current))
		return nil
	}

	log.Info("Running database migrations",
		slog.Int("current_version", current))
	for v := current; v < schemaVersion; v++ {
		if err := applyMigration(ctx, conn, v); err != nil {
			return err
		}
		log.Debug("Migration applied", slog.Int("version", v+1))
	}
	return nil
}

// currentSchemaVersion returns 0 for a database without schema.
func currentSchemaVersion(ctx context.Context, conn *pgxpool.Conn,
) (int, error) {
	rows, _ := conn.Query(ctx, `SELECT to_regclass('schema_version') IS NOT NULL`)
	exists, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return 0, fmt.Errorf("storage: looking for schema_version table: %w", err)
	} else if !exists {
		return 0, nil
	}

	rows, _ = conn.Query(ctx,
		`SELECT CAST(version AS INTEGER) FROM schema_version`)
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("storage: unable fetch schema version: %w", err)
	}
	return v, nil
}

// applyMigration moves the schema from version v to v+1 in one transaction.
// The full schema sets its own version.
func applyMigration(ctx context.Context, conn *pgxpool.Conn, v int) error {
	err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if err := migrations[v].Do(ctx, tx); err != nil {
			return err
		} else if v == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `UPDATE schema_version SET version = $1`,
			strconv.Itoa(v+1))
		if err != nil {
			return fmt.Errorf("update version: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: migration %d -> %d: %w", v, v+1, err)
	}
	return nil
}

// SchemaVersion returns the current and the latest versions of the database
// schema.
func (s *Storage) SchemaVersion(ctx context.Context) (current, latest int,
	err error,
) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, schemaVersion, fmt.Errorf("storage: acquire connection: %w", err)
	}
	defer conn.Release()

	current, err = currentSchemaVersion(ctx, conn)
	return current, schemaVersion, err
}

// SchemaUpToDate returns ErrSchemaOutdated if some migrations weren't
// applied yet.
func (s *Storage) SchemaUpToDate(ctx context.Context) error {
	current, latest, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	} else if current < latest {
		return fmt.Errorf("%w: current=v%d expected=v%d", ErrSchemaOutdated,
			current, latest)
	}
	return nil
}
