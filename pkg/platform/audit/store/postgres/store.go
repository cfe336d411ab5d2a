// Package postgres persists audit events in PostgreSQL through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"bondly/pkg/platform/audit"
)

type Store struct {
	db *sql.DB
}

var _ audit.Store = (*Store)(nil)

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, action, actor, project_slug, movement_slug, property_slug,
			accord_id, amount_native, amount_stable, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.Actor,
		event.ProjectSlug,
		event.MovementSlug,
		event.PropertySlug,
		event.AccordID,
		event.AmountNative,
		event.AmountStable,
		event.Detail,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
