package escrow

import (
	"context"
	"fmt"

	"bondly/internal/platform/postgres"
)

// PostgresStore persists movements in PostgreSQL. The UNIQUE constraint on
// (project_slug, slug) backs duplicate detection.
type PostgresStore struct {
	pool *postgres.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateMovement(ctx context.Context, m *Movement) error {
	query := `
		INSERT INTO movements (
			project_slug, slug, proposer, title, memo, amount_stable,
			amount_native, payee, status, rejected_by, finalized_by,
			created_at, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.pool.Exec(ctx, query,
		m.ProjectSlug,
		m.Slug,
		m.Proposer,
		m.Title,
		m.Memo,
		m.AmountStable,
		m.AmountNative,
		m.Payee,
		string(m.Status),
		m.RejectedBy,
		m.FinalizedBy,
		m.CreatedAt,
		m.FinalizedAt,
	)
	if err != nil {
		if postgres.IsDuplicateKey(err) {
			return fmt.Errorf("movement %q in project %q: %w", m.Slug, m.ProjectSlug, ErrDuplicate)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMovement(ctx context.Context, projectSlug, movementSlug string) (*Movement, error) {
	query := `
		SELECT project_slug, slug, proposer, title, memo, amount_stable,
		       amount_native, payee, status, rejected_by, finalized_by,
		       created_at, finalized_at
		FROM movements
		WHERE project_slug = $1 AND slug = $2
	`
	var m Movement
	var status string
	err := s.pool.QueryRow(ctx, query, projectSlug, movementSlug).Scan(
		&m.ProjectSlug,
		&m.Slug,
		&m.Proposer,
		&m.Title,
		&m.Memo,
		&m.AmountStable,
		&m.AmountNative,
		&m.Payee,
		&status,
		&m.RejectedBy,
		&m.FinalizedBy,
		&m.CreatedAt,
		&m.FinalizedAt,
	)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, fmt.Errorf("movement %q in project %q: %w", movementSlug, projectSlug, ErrNotFound)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	m.Status = Status(status)
	return &m, nil
}

func (s *PostgresStore) UpdateMovement(ctx context.Context, m *Movement) error {
	query := `
		UPDATE movements SET
			status = $3,
			rejected_by = $4,
			finalized_by = $5,
			finalized_at = $6
		WHERE project_slug = $1 AND slug = $2
	`
	tag, err := s.pool.Exec(ctx, query,
		m.ProjectSlug,
		m.Slug,
		string(m.Status),
		m.RejectedBy,
		m.FinalizedBy,
		m.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("movement %q in project %q: %w", m.Slug, m.ProjectSlug, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) TotalMovements(ctx context.Context) (int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM movements`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return total, nil
}
