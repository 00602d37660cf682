package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type migration string

func (self migration) Do(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, string(self)); err != nil {
		return fmt.Errorf("migrate by SQL: %w", err)
	}
	return nil
}

var schemaVersion = len(migrations)

//go:embed schema.sql
var fullSchema string

// Order is important. Add new migrations at the end of the list.
//
//nolint:wrapcheck // Migrate() wraps errors
var migrations = []migration{
	migration(fullSchema),

	migration(`
CREATE TABLE feed_states (
  feed_url             text primary key,
  etag_header          text not null default '',
  last_modified_header text not null default '',
  size                 bigint not null default 0,
  hash                 bigint not null default 0,
  checked_at           timestamp with time zone not null default now(),
  parsing_error_count  int not null default 0,
  parsing_error_msg    text not null default ''
);`),

	migration(`
CREATE INDEX sent_notifications_sent_at_idx ON sent_notifications (sent_at);
CREATE INDEX postings_published_at_idx ON postings (published_at);`),
}
