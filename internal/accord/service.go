package accord

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bondly/internal/assets"
	"bondly/internal/feesplit"
	"bondly/internal/penalty"
	"bondly/internal/platform/locks"
	"bondly/internal/platform/metrics"
	"bondly/internal/treasury"
	dErrors "bondly/pkg/domain-errors"
	"bondly/pkg/platform/audit"
	auditpub "bondly/pkg/platform/audit/publisher"
)

// Defaults applied when a proposal leaves a field unset.
type Defaults struct {
	// Deposit is the native amount an accord locks when the proposal does
	// not name one.
	Deposit int64
	// FeeRateBps is the property fee share applied to accord proceeds.
	FeeRateBps int
}

// Service tracks accords per property and settles breach penalties. Every
// mutating operation runs under the property's lock.
type Service struct {
	store     Store
	penalties *penalty.Engine
	treasury  *treasury.Treasury
	ledger    assets.Ledger
	auditor   *auditpub.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	locker    locks.Locker
	tracer    trace.Tracer
	defaults  Defaults
}

func NewService(
	store Store,
	penalties *penalty.Engine,
	tr *treasury.Treasury,
	ledger assets.Ledger,
	auditor *auditpub.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	locker locks.Locker,
	defaults Defaults,
) *Service {
	return &Service{
		store:     store,
		penalties: penalties,
		treasury:  tr,
		ledger:    ledger,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		locker:    locker,
		tracer:    otel.Tracer("bondly/internal/accord"),
		defaults:  defaults,
	}
}

// ProposeAccord registers a new accord under a property and returns it. A
// zero deposit falls back to the configured default.
func (s *Service) ProposeAccord(ctx context.Context, actor, propertySlug string, deposit int64) (*Accord, error) {
	ctx, span := s.tracer.Start(ctx, "accord.propose",
		trace.WithAttributes(attribute.String("property", propertySlug)))
	defer span.End()

	if actor == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "actor is required")
	}
	if propertySlug == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "property slug is required")
	}
	if deposit < 0 {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "deposit must be non-negative, got %d", deposit)
	}
	if deposit > feesplit.MaxAmount {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "deposit %d exceeds the settleable maximum %d", deposit, int64(feesplit.MaxAmount))
	}
	if deposit == 0 {
		deposit = s.defaults.Deposit
	}

	unlock, err := s.locker.Acquire(ctx, propertyLockKey(propertySlug))
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock property %s: %v", propertySlug, err)
	}
	defer unlock()

	accord := &Accord{
		PropertySlug: propertySlug,
		ID:           uuid.New(),
		Proposer:     actor,
		Deposit:      deposit,
		FeeRateBps:   s.defaults.FeeRateBps,
		Status:       StatusProposed,
		ProposedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateAccord(ctx, accord); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "insert accord for %s: %v", propertySlug, err)
	}

	s.metrics.AccordsProposed.Inc()
	s.emit(ctx, audit.Event{
		Action:       audit.ActionAccordProposed,
		Actor:        actor,
		PropertySlug: propertySlug,
		AccordID:     accord.ID.String(),
		AmountNative: deposit,
	})
	return accord, nil
}

// ApproveAccord advances a proposed accord to approved.
func (s *Service) ApproveAccord(ctx context.Context, actor, propertySlug string, id uuid.UUID) (*Accord, error) {
	return s.advance(ctx, actor, propertySlug, id, StatusProposed, StatusApproved, audit.ActionAccordApproved)
}

// ConfirmAccord advances an approved accord to confirmed, its happy-path
// terminal state, and settles the deposit through the fee split: the property
// retains its fee share, the proposer is refunded the rest, and the division
// remainder goes to the treasury.
func (s *Service) ConfirmAccord(ctx context.Context, actor, propertySlug string, id uuid.UUID) (*Accord, error) {
	ctx, span := s.tracer.Start(ctx, "accord.confirm",
		trace.WithAttributes(
			attribute.String("property", propertySlug),
			attribute.String("accord", id.String()),
		))
	defer span.End()

	unlock, err := s.locker.Acquire(ctx, propertyLockKey(propertySlug))
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock property %s: %v", propertySlug, err)
	}
	defer unlock()

	accord, err := s.loadActive(ctx, propertySlug, id)
	if err != nil {
		return nil, err
	}
	if accord.Status != StatusApproved {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"accord %s/%s is %s, expected %s", propertySlug, id, accord.Status, StatusApproved)
	}

	shares, err := feesplit.Split(accord.Deposit, accord.FeeRateBps)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "split proceeds for %s/%s: %v", propertySlug, id, err)
	}
	if err := s.settleShares(ctx, accord, shares); err != nil {
		return nil, err
	}

	accord.Status = StatusConfirmed
	accord.FeeCollected = shares.Property
	accord.ProposerRefund = shares.Payee
	if err := s.store.UpdateAccord(ctx, accord); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "update accord %s/%s: %v", propertySlug, id, err)
	}

	s.metrics.FeesCollected.Add(float64(shares.Property))
	s.emit(ctx, audit.Event{
		Action:       audit.ActionAccordConfirmed,
		Actor:        actor,
		PropertySlug: propertySlug,
		AccordID:     id.String(),
		AmountNative: accord.Deposit,
	})
	return accord, nil
}

func (s *Service) advance(ctx context.Context, actor, propertySlug string, id uuid.UUID, from, to Status, action audit.Action) (*Accord, error) {
	ctx, span := s.tracer.Start(ctx, "accord."+string(to),
		trace.WithAttributes(
			attribute.String("property", propertySlug),
			attribute.String("accord", id.String()),
		))
	defer span.End()

	unlock, err := s.locker.Acquire(ctx, propertyLockKey(propertySlug))
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock property %s: %v", propertySlug, err)
	}
	defer unlock()

	accord, err := s.loadActive(ctx, propertySlug, id)
	if err != nil {
		return nil, err
	}
	if accord.Status != from {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"accord %s/%s is %s, expected %s", propertySlug, id, accord.Status, from)
	}

	accord.Status = to
	if err := s.store.UpdateAccord(ctx, accord); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "update accord %s/%s: %v", propertySlug, id, err)
	}

	s.emit(ctx, audit.Event{
		Action:       action,
		Actor:        actor,
		PropertySlug: propertySlug,
		AccordID:     id.String(),
	})
	return accord, nil
}

// RecordBreach marks an active accord breached, escalates the property's
// occurrence counter for the severity class, and forfeits the schedule-driven
// share of the deposit to the treasury. The residue left after the penalty
// settles through the fee split like confirmed proceeds do.
func (s *Service) RecordBreach(ctx context.Context, actor, propertySlug string, id uuid.UUID, severity penalty.Severity) (*Accord, error) {
	ctx, span := s.tracer.Start(ctx, "accord.record_breach",
		trace.WithAttributes(
			attribute.String("property", propertySlug),
			attribute.String("accord", id.String()),
			attribute.String("severity", string(severity)),
		))
	defer span.End()

	if !severity.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidSeverityClass, "unknown severity class %q", severity)
	}

	unlock, err := s.locker.Acquire(ctx, propertyLockKey(propertySlug))
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock property %s: %v", propertySlug, err)
	}
	defer unlock()

	accord, err := s.loadActive(ctx, propertySlug, id)
	if err != nil {
		return nil, err
	}

	occurrence, err := s.store.IncrementOccurrence(ctx, propertySlug, severity)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "increment %s occurrence for %s: %v", severity, propertySlug, err)
	}

	rate, err := s.penalties.Rate(severity, occurrence)
	if err != nil {
		return nil, err
	}
	amount, err := feesplit.Portion(accord.Deposit, rate)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "compute penalty for %s/%s: %v", propertySlug, id, err)
	}

	penaltyShares, err := feesplit.PenaltySplit(amount)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "split penalty for %s/%s: %v", propertySlug, id, err)
	}
	if penaltyShares.Treasury > 0 {
		if err := s.ledger.Transfer(ctx, propertySlug, treasury.HolderID, assets.Native, penaltyShares.Treasury); err != nil {
			return nil, dErrors.Newf(dErrors.CodeAssetTransferFailed,
				"transfer %d native penalty from %s to treasury: %v", penaltyShares.Treasury, propertySlug, err)
		}
		s.treasury.Credit(penaltyShares.Treasury)
	}

	shares, err := feesplit.Split(accord.Deposit-amount, accord.FeeRateBps)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "split breach residue for %s/%s: %v", propertySlug, id, err)
	}
	if err := s.settleShares(ctx, accord, shares); err != nil {
		return nil, err
	}

	accord.Status = StatusBreached
	accord.BreachSeverity = severity
	accord.BreachOccurrence = occurrence
	accord.PenaltyCollected = penaltyShares.Treasury
	accord.FeeCollected = shares.Property
	accord.ProposerRefund = shares.Payee
	if err := s.store.UpdateAccord(ctx, accord); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "update accord %s/%s: %v", propertySlug, id, err)
	}

	s.metrics.AccordsBreached.Inc()
	s.metrics.PenaltyCollected.Add(float64(penaltyShares.Treasury))
	s.metrics.FeesCollected.Add(float64(shares.Property))
	s.emit(ctx, audit.Event{
		Action:       audit.ActionAccordBreached,
		Actor:        actor,
		PropertySlug: propertySlug,
		AccordID:     id.String(),
		AmountNative: penaltyShares.Treasury,
		Detail:       string(severity),
	})
	return accord, nil
}

// settleShares moves the proposer refund and the treasury remainder out of
// the property's holding. The property's own fee share never moves.
func (s *Service) settleShares(ctx context.Context, accord *Accord, shares feesplit.Shares) error {
	if shares.Payee > 0 {
		if err := s.ledger.Transfer(ctx, accord.PropertySlug, accord.Proposer, assets.Native, shares.Payee); err != nil {
			return dErrors.Newf(dErrors.CodeAssetTransferFailed,
				"refund %d native from %s to %s: %v", shares.Payee, accord.PropertySlug, accord.Proposer, err)
		}
	}
	if shares.Treasury > 0 {
		if err := s.ledger.Transfer(ctx, accord.PropertySlug, treasury.HolderID, assets.Native, shares.Treasury); err != nil {
			return dErrors.Newf(dErrors.CodeAssetTransferFailed,
				"transfer %d native remainder from %s to treasury: %v", shares.Treasury, accord.PropertySlug, err)
		}
		s.treasury.Credit(shares.Treasury)
	}
	return nil
}

// GetAccord returns a single accord.
func (s *Service) GetAccord(ctx context.Context, propertySlug string, id uuid.UUID) (*Accord, error) {
	accord, err := s.store.GetAccord(ctx, propertySlug, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeAccordNotFound, "accord %s/%s not found", propertySlug, id)
		}
		return nil, dErrors.Newf(dErrors.CodeInternal, "get accord %s/%s: %v", propertySlug, id, err)
	}
	return accord, nil
}

// TotalAccords counts every accord ever proposed under a property.
func (s *Service) TotalAccords(ctx context.Context, propertySlug string) (int64, error) {
	c, err := s.TotalAccordsDetails(ctx, propertySlug)
	if err != nil {
		return 0, err
	}
	return c.Proposed, nil
}

// TotalAccordsAll counts accords across every property.
func (s *Service) TotalAccordsAll(ctx context.Context) (int64, error) {
	total, err := s.store.TotalAccords(ctx)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInternal, "count accords: %v", err)
	}
	return total, nil
}

// TotalAccordsDetails reports the property's progress counters.
func (s *Service) TotalAccordsDetails(ctx context.Context, propertySlug string) (Counters, error) {
	c, err := s.store.Counters(ctx, propertySlug)
	if err != nil {
		return Counters{}, dErrors.Newf(dErrors.CodeInternal, "count accords for %s: %v", propertySlug, err)
	}
	return c, nil
}

// PenaltyRate exposes the schedule lookup for read-only callers.
func (s *Service) PenaltyRate(severity penalty.Severity, tier int) (int, error) {
	return s.penalties.Rate(severity, tier)
}

// TreasuryBalance reports the accumulated penalty and fee proceeds.
func (s *Service) TreasuryBalance() int64 {
	return s.treasury.TotalBalance()
}

func (s *Service) loadActive(ctx context.Context, propertySlug string, id uuid.UUID) (*Accord, error) {
	accord, err := s.store.GetAccord(ctx, propertySlug, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeAccordNotFound, "accord %s/%s not found", propertySlug, id)
		}
		return nil, dErrors.Newf(dErrors.CodeInternal, "get accord %s/%s: %v", propertySlug, id, err)
	}
	if accord.Status.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeAccordAlreadyTerminal,
			"accord %s/%s is %s", propertySlug, id, accord.Status)
	}
	return accord, nil
}

// propertyLockKey namespaces property locks away from project locks, which
// share the same locker.
func propertyLockKey(slug string) string {
	return "property:" + slug
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"property", event.PropertySlug,
			"accord", event.AccordID,
			"error", err,
		)
	}
}
