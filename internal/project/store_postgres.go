package project

import (
	"context"
	"fmt"

	"bondly/internal/platform/postgres"
)

// PostgresStore persists projects in PostgreSQL. Each mutating method is a
// single guarded UPDATE so the balance check and the write commit together.
type PostgresStore struct {
	pool *postgres.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, slug string) (*Project, error) {
	query := `
		SELECT slug, balance_native, balance_stable, reserved_native, reserved_stable, movement_count, created_at
		FROM projects
		WHERE slug = $1
	`
	var p Project
	err := s.pool.QueryRow(ctx, query, slug).Scan(
		&p.Slug,
		&p.BalanceNative,
		&p.BalanceStable,
		&p.ReservedNative,
		&p.ReservedStable,
		&p.MovementCount,
		&p.CreatedAt,
	)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, fmt.Errorf("project %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Fund(ctx context.Context, slug string, native, stable int64) (*Project, error) {
	if native < 0 || stable < 0 {
		return nil, fmt.Errorf("funding amounts must be non-negative, got native=%d stable=%d", native, stable)
	}
	query := `
		INSERT INTO projects (slug, balance_native, balance_stable, reserved_native, reserved_stable, movement_count, created_at)
		VALUES ($1, $2, $3, 0, 0, 0, now())
		ON CONFLICT (slug) DO UPDATE SET
			balance_native = projects.balance_native + EXCLUDED.balance_native,
			balance_stable = projects.balance_stable + EXCLUDED.balance_stable
		RETURNING slug, balance_native, balance_stable, reserved_native, reserved_stable, movement_count, created_at
	`
	var p Project
	err := s.pool.QueryRow(ctx, query, slug, native, stable).Scan(
		&p.Slug,
		&p.BalanceNative,
		&p.BalanceStable,
		&p.ReservedNative,
		&p.ReservedStable,
		&p.MovementCount,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("fund project: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ReserveForMovement(ctx context.Context, slug string, native, stable int64) error {
	query := `
		UPDATE projects SET
			reserved_native = reserved_native + $2,
			reserved_stable = reserved_stable + $3,
			movement_count = movement_count + 1
		WHERE slug = $1
		  AND balance_native - reserved_native >= $2
		  AND balance_stable - reserved_stable >= $3
	`
	tag, err := s.pool.Exec(ctx, query, slug, native, stable)
	if err != nil {
		return fmt.Errorf("reserve for movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing project from an over-commitment.
		if _, err := s.Get(ctx, slug); err != nil {
			return err
		}
		return fmt.Errorf("project %q cannot reserve native=%d stable=%d: %w", slug, native, stable, ErrInsufficientFunds)
	}
	return nil
}

func (s *PostgresStore) ReleaseReservation(ctx context.Context, slug string, native, stable int64) error {
	query := `
		UPDATE projects SET
			reserved_native = reserved_native - $2,
			reserved_stable = reserved_stable - $3
		WHERE slug = $1
		  AND reserved_native >= $2
		  AND reserved_stable >= $3
	`
	tag, err := s.pool.Exec(ctx, query, slug, native, stable)
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, slug); err != nil {
			return err
		}
		return fmt.Errorf("project %q reservation underflow releasing native=%d stable=%d", slug, native, stable)
	}
	return nil
}

func (s *PostgresStore) Settle(ctx context.Context, slug string, native, stable int64) error {
	query := `
		UPDATE projects SET
			balance_native = balance_native - $2,
			balance_stable = balance_stable - $3,
			reserved_native = reserved_native - $2,
			reserved_stable = reserved_stable - $3
		WHERE slug = $1
		  AND balance_native >= $2
		  AND balance_stable >= $3
		  AND reserved_native >= $2
		  AND reserved_stable >= $3
	`
	tag, err := s.pool.Exec(ctx, query, slug, native, stable)
	if err != nil {
		return fmt.Errorf("settle movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, slug); err != nil {
			return err
		}
		return fmt.Errorf("project %q settlement underflow for native=%d stable=%d", slug, native, stable)
	}
	return nil
}
