package accord

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bondly/internal/penalty"
	"bondly/internal/platform/postgres"
)

// PostgresStore persists accords and breach occurrence counters in
// PostgreSQL.
type PostgresStore struct {
	pool *postgres.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateAccord(ctx context.Context, a *Accord) error {
	query := `
		INSERT INTO accords (
			property_slug, id, proposer, deposit, fee_rate_bps, status,
			proposed_at, breach_severity, breach_occurrence, penalty_collected,
			fee_collected, proposer_refund
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.pool.Exec(ctx, query,
		a.PropertySlug,
		a.ID,
		a.Proposer,
		a.Deposit,
		a.FeeRateBps,
		string(a.Status),
		a.ProposedAt,
		string(a.BreachSeverity),
		a.BreachOccurrence,
		a.PenaltyCollected,
		a.FeeCollected,
		a.ProposerRefund,
	)
	if err != nil {
		if postgres.IsDuplicateKey(err) {
			return fmt.Errorf("accord %s under property %q: %w", a.ID, a.PropertySlug, ErrDuplicate)
		}
		return fmt.Errorf("insert accord: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccord(ctx context.Context, propertySlug string, id uuid.UUID) (*Accord, error) {
	query := `
		SELECT property_slug, id, proposer, deposit, fee_rate_bps, status,
		       proposed_at, breach_severity, breach_occurrence, penalty_collected,
		       fee_collected, proposer_refund
		FROM accords
		WHERE property_slug = $1 AND id = $2
	`
	var a Accord
	var status, severity string
	err := s.pool.QueryRow(ctx, query, propertySlug, id).Scan(
		&a.PropertySlug,
		&a.ID,
		&a.Proposer,
		&a.Deposit,
		&a.FeeRateBps,
		&status,
		&a.ProposedAt,
		&severity,
		&a.BreachOccurrence,
		&a.PenaltyCollected,
		&a.FeeCollected,
		&a.ProposerRefund,
	)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, fmt.Errorf("accord %s under property %q: %w", id, propertySlug, ErrNotFound)
		}
		return nil, fmt.Errorf("get accord: %w", err)
	}
	a.Status = Status(status)
	a.BreachSeverity = penalty.Severity(severity)
	return &a, nil
}

func (s *PostgresStore) UpdateAccord(ctx context.Context, a *Accord) error {
	query := `
		UPDATE accords SET
			status = $3,
			breach_severity = $4,
			breach_occurrence = $5,
			penalty_collected = $6,
			fee_collected = $7,
			proposer_refund = $8
		WHERE property_slug = $1 AND id = $2
	`
	tag, err := s.pool.Exec(ctx, query,
		a.PropertySlug,
		a.ID,
		string(a.Status),
		string(a.BreachSeverity),
		a.BreachOccurrence,
		a.PenaltyCollected,
		a.FeeCollected,
		a.ProposerRefund,
	)
	if err != nil {
		return fmt.Errorf("update accord: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("accord %s under property %q: %w", a.ID, a.PropertySlug, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) IncrementOccurrence(ctx context.Context, propertySlug string, severity penalty.Severity) (int, error) {
	query := `
		INSERT INTO accord_occurrences (property_slug, severity, occurrences)
		VALUES ($1, $2, 1)
		ON CONFLICT (property_slug, severity)
		DO UPDATE SET occurrences = accord_occurrences.occurrences + 1
		RETURNING occurrences
	`
	var count int
	if err := s.pool.QueryRow(ctx, query, propertySlug, string(severity)).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment occurrence: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) TotalAccords(ctx context.Context) (int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM accords`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count accords: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) Counters(ctx context.Context, propertySlug string) (Counters, error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE status IN ('approved', 'confirmed')),
			count(*) FILTER (WHERE status = 'confirmed')
		FROM accords
		WHERE property_slug = $1
	`
	var c Counters
	if err := s.pool.QueryRow(ctx, query, propertySlug).Scan(&c.Proposed, &c.Approved, &c.Confirmed); err != nil {
		return Counters{}, fmt.Errorf("count accords: %w", err)
	}
	return c, nil
}
