package escrow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bondly/internal/assets"
	"bondly/internal/platform/locks"
	"bondly/internal/platform/metrics"
	"bondly/internal/project"
	dErrors "bondly/pkg/domain-errors"
	"bondly/pkg/platform/audit"
	auditpub "bondly/pkg/platform/audit/publisher"
)

// CreatePaymentInput carries everything needed to propose a movement. Actor
// identity is already authenticated by the transport layer.
type CreatePaymentInput struct {
	Actor        string
	Title        string
	Memo         string
	MovementSlug string
	ProjectSlug  string
	AmountStable int64
	AmountNative int64
	Payee        string
}

// Service orchestrates movement creation and the two-phase review protocol.
// Every mutating operation runs under the project's lock so the status check
// and the transition are a single atomic unit.
type Service struct {
	movements Store
	projects  project.Store
	ledger    assets.Ledger
	depositor assets.Depositor
	auditor   *auditpub.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	locker    locks.Locker
	tracer    trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithDepositor mirrors funding events on a ledger that supports direct
// deposits (the in-memory ledger in development and tests).
func WithDepositor(d assets.Depositor) Option {
	return func(s *Service) {
		s.depositor = d
	}
}

func NewService(
	movements Store,
	projects project.Store,
	ledger assets.Ledger,
	auditor *auditpub.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	locker locks.Locker,
	opts ...Option,
) *Service {
	s := &Service{
		movements: movements,
		projects:  projects,
		ledger:    ledger,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		locker:    locker,
		tracer:    otel.Tracer("bondly/internal/escrow"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fund credits a project's balances, creating the project on first use.
func (s *Service) Fund(ctx context.Context, actor, projectSlug string, native, stable int64) (*project.Project, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.fund",
		trace.WithAttributes(attribute.String("project", projectSlug)))
	defer span.End()

	if projectSlug == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "project slug is required")
	}
	if native < 0 || stable < 0 {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "funding amounts must be non-negative, got native=%d stable=%d", native, stable)
	}
	if native+stable == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "funding must carry a positive amount in at least one currency")
	}

	unlock, err := s.locker.Acquire(ctx, projectSlug)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock project %s: %v", projectSlug, err)
	}
	defer unlock()

	p, err := s.projects.Fund(ctx, projectSlug, native, stable)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "fund project %s: %v", projectSlug, err)
	}
	if s.depositor != nil {
		if native > 0 {
			if err := s.depositor.Deposit(ctx, projectSlug, assets.Native, native); err != nil {
				return nil, dErrors.Newf(dErrors.CodeInternal, "mirror native funding for %s: %v", projectSlug, err)
			}
		}
		if stable > 0 {
			if err := s.depositor.Deposit(ctx, projectSlug, assets.Stable, stable); err != nil {
				return nil, dErrors.Newf(dErrors.CodeInternal, "mirror stable funding for %s: %v", projectSlug, err)
			}
		}
	}

	s.metrics.ProjectsFunded.Inc()
	s.emit(ctx, audit.Event{
		Action:       audit.ActionProjectFunded,
		Actor:        actor,
		ProjectSlug:  projectSlug,
		AmountNative: native,
		AmountStable: stable,
	})
	return p, nil
}

// CreatePayment proposes a movement. Amounts are reserved against the
// project's available balances; no funds move until a release.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*Movement, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.create_payment",
		trace.WithAttributes(
			attribute.String("project", in.ProjectSlug),
			attribute.String("movement", in.MovementSlug),
		))
	defer span.End()

	if err := validateCreatePayment(in); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Acquire(ctx, in.ProjectSlug)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock project %s: %v", in.ProjectSlug, err)
	}
	defer unlock()

	if _, err := s.movements.GetMovement(ctx, in.ProjectSlug, in.MovementSlug); err == nil {
		return nil, dErrors.Newf(dErrors.CodeDuplicateMovement,
			"movement %s already exists in project %s", in.MovementSlug, in.ProjectSlug)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeInternal, "look up movement %s/%s: %v", in.ProjectSlug, in.MovementSlug, err)
	}

	if err := s.projects.ReserveForMovement(ctx, in.ProjectSlug, in.AmountNative, in.AmountStable); err != nil {
		switch {
		case errors.Is(err, project.ErrNotFound), errors.Is(err, project.ErrInsufficientFunds):
			return nil, dErrors.Newf(dErrors.CodeInsufficientProjectFunds,
				"project %s cannot cover native=%d stable=%d", in.ProjectSlug, in.AmountNative, in.AmountStable)
		default:
			return nil, dErrors.Newf(dErrors.CodeInternal, "reserve funds for %s/%s: %v", in.ProjectSlug, in.MovementSlug, err)
		}
	}

	movement := &Movement{
		ProjectSlug:  in.ProjectSlug,
		Slug:         in.MovementSlug,
		Proposer:     in.Actor,
		Title:        in.Title,
		Memo:         in.Memo,
		AmountStable: in.AmountStable,
		AmountNative: in.AmountNative,
		Payee:        in.Payee,
		Status:       StatusProposed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.movements.CreateMovement(ctx, movement); err != nil {
		// Undo the reservation so a storage fault cannot leak funds.
		if relErr := s.projects.ReleaseReservation(ctx, in.ProjectSlug, in.AmountNative, in.AmountStable); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release reservation after insert failure",
				"project", in.ProjectSlug,
				"movement", in.MovementSlug,
				"error", relErr,
			)
		}
		if errors.Is(err, ErrDuplicate) {
			return nil, dErrors.Newf(dErrors.CodeDuplicateMovement,
				"movement %s already exists in project %s", in.MovementSlug, in.ProjectSlug)
		}
		return nil, dErrors.Newf(dErrors.CodeInternal, "insert movement %s/%s: %v", in.ProjectSlug, in.MovementSlug, err)
	}

	s.metrics.MovementsCreated.Inc()
	s.emit(ctx, audit.Event{
		Action:       audit.ActionMovementCreated,
		Actor:        in.Actor,
		ProjectSlug:  in.ProjectSlug,
		MovementSlug: in.MovementSlug,
		AmountNative: in.AmountNative,
		AmountStable: in.AmountStable,
		Detail:       in.Title,
	})
	return movement, nil
}

// ApproveMovement records an approval. A single independent approval settles
// the movement immediately, whether it is the first review or the tie-break
// after a rejection.
func (s *Service) ApproveMovement(ctx context.Context, actor, movementSlug, projectSlug string) (*Movement, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.approve_movement",
		trace.WithAttributes(
			attribute.String("project", projectSlug),
			attribute.String("movement", movementSlug),
		))
	defer span.End()

	unlock, err := s.locker.Acquire(ctx, projectSlug)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock project %s: %v", projectSlug, err)
	}
	defer unlock()

	m, err := s.loadPending(ctx, projectSlug, movementSlug)
	if err != nil {
		return nil, err
	}
	if actor == m.Proposer {
		return nil, dErrors.Newf(dErrors.CodeSelfApprovalForbidden,
			"actor %s proposed movement %s/%s and cannot approve it", actor, projectSlug, movementSlug)
	}
	if m.Status == StatusRejectedOnce && actor == m.RejectedBy {
		return nil, dErrors.Newf(dErrors.CodeDuplicateReviewer,
			"actor %s already reviewed movement %s/%s", actor, projectSlug, movementSlug)
	}

	next, ok := nextStatus(m.Status, ActionApprove)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeMovementAlreadyFinalized,
			"movement %s/%s is %s", projectSlug, movementSlug, m.Status)
	}

	// Release: pay out each non-zero currency, then clear the reservation
	// and debit the balances in the same guarded step.
	if err := s.transferToPayee(ctx, m); err != nil {
		return nil, err
	}
	if err := s.projects.Settle(ctx, projectSlug, m.AmountNative, m.AmountStable); err != nil {
		s.logger.ErrorContext(ctx, "settlement debit failed after asset transfer",
			"project", projectSlug,
			"movement", movementSlug,
			"error", err,
		)
		return nil, dErrors.Newf(dErrors.CodeInternal, "settle movement %s/%s: %v", projectSlug, movementSlug, err)
	}

	now := time.Now().UTC()
	m.Status = next
	m.FinalizedBy = actor
	m.FinalizedAt = &now
	if err := s.movements.UpdateMovement(ctx, m); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "finalize movement %s/%s: %v", projectSlug, movementSlug, err)
	}

	s.metrics.MovementsReleased.Inc()
	s.emit(ctx, audit.Event{
		Action:       audit.ActionMovementRelease,
		Actor:        actor,
		ProjectSlug:  projectSlug,
		MovementSlug: movementSlug,
		AmountNative: m.AmountNative,
		AmountStable: m.AmountStable,
		Detail:       "paid to " + m.Payee,
	})
	return m, nil
}

// RejectMovement records a rejection. The first rejection parks the movement
// awaiting a second opinion; a second, distinct rejecter returns the funds.
func (s *Service) RejectMovement(ctx context.Context, actor, movementSlug, projectSlug string) (*Movement, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.reject_movement",
		trace.WithAttributes(
			attribute.String("project", projectSlug),
			attribute.String("movement", movementSlug),
		))
	defer span.End()

	unlock, err := s.locker.Acquire(ctx, projectSlug)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "lock project %s: %v", projectSlug, err)
	}
	defer unlock()

	m, err := s.loadPending(ctx, projectSlug, movementSlug)
	if err != nil {
		return nil, err
	}
	if actor == m.Proposer {
		return nil, dErrors.Newf(dErrors.CodeSelfRejectionForbidden,
			"actor %s proposed movement %s/%s and cannot reject it", actor, projectSlug, movementSlug)
	}
	if m.Status == StatusRejectedOnce && actor == m.RejectedBy {
		return nil, dErrors.Newf(dErrors.CodeDuplicateReviewer,
			"actor %s already rejected movement %s/%s", actor, projectSlug, movementSlug)
	}

	next, ok := nextStatus(m.Status, ActionReject)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeMovementAlreadyFinalized,
			"movement %s/%s is %s", projectSlug, movementSlug, m.Status)
	}

	switch next {
	case StatusRejectedOnce:
		m.Status = StatusRejectedOnce
		m.RejectedBy = actor
		if err := s.movements.UpdateMovement(ctx, m); err != nil {
			return nil, dErrors.Newf(dErrors.CodeInternal, "record rejection for %s/%s: %v", projectSlug, movementSlug, err)
		}
		s.metrics.MovementsRejected.Inc()
		s.emit(ctx, audit.Event{
			Action:       audit.ActionMovementReject,
			Actor:        actor,
			ProjectSlug:  projectSlug,
			MovementSlug: movementSlug,
		})
	case StatusReturned:
		// No funds ever left the project; drop the notional reservation.
		if err := s.projects.ReleaseReservation(ctx, projectSlug, m.AmountNative, m.AmountStable); err != nil {
			return nil, dErrors.Newf(dErrors.CodeInternal, "release reservation for %s/%s: %v", projectSlug, movementSlug, err)
		}
		now := time.Now().UTC()
		m.Status = StatusReturned
		m.FinalizedBy = actor
		m.FinalizedAt = &now
		if err := s.movements.UpdateMovement(ctx, m); err != nil {
			return nil, dErrors.Newf(dErrors.CodeInternal, "finalize movement %s/%s: %v", projectSlug, movementSlug, err)
		}
		s.metrics.MovementsReturned.Inc()
		s.emit(ctx, audit.Event{
			Action:       audit.ActionMovementReturn,
			Actor:        actor,
			ProjectSlug:  projectSlug,
			MovementSlug: movementSlug,
			AmountNative: m.AmountNative,
			AmountStable: m.AmountStable,
		})
	}
	return m, nil
}

// GetMovement returns a single movement's record.
func (s *Service) GetMovement(ctx context.Context, projectSlug, movementSlug string) (*Movement, error) {
	m, err := s.movements.GetMovement(ctx, projectSlug, movementSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "movement %s/%s not found", projectSlug, movementSlug)
		}
		return nil, dErrors.Newf(dErrors.CodeInternal, "get movement %s/%s: %v", projectSlug, movementSlug, err)
	}
	return m, nil
}

// ProjectBalanceNative reports the project's full native balance, including
// amounts locked by outstanding reservations.
func (s *Service) ProjectBalanceNative(ctx context.Context, slug string) (int64, error) {
	p, err := s.getProject(ctx, slug)
	if err != nil {
		return 0, err
	}
	return p.BalanceNative, nil
}

// ProjectBalanceStable reports the project's full stable balance.
func (s *Service) ProjectBalanceStable(ctx context.Context, slug string) (int64, error) {
	p, err := s.getProject(ctx, slug)
	if err != nil {
		return 0, err
	}
	return p.BalanceStable, nil
}

// TotalMovements counts every movement ever created across all projects.
func (s *Service) TotalMovements(ctx context.Context) (int64, error) {
	total, err := s.movements.TotalMovements(ctx)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInternal, "count movements: %v", err)
	}
	return total, nil
}

func (s *Service) getProject(ctx context.Context, slug string) (*project.Project, error) {
	p, err := s.projects.Get(ctx, slug)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "project %s not found", slug)
		}
		return nil, dErrors.Newf(dErrors.CodeInternal, "get project %s: %v", slug, err)
	}
	return p, nil
}

// loadPending fetches a movement for review, rejecting terminal states.
func (s *Service) loadPending(ctx context.Context, projectSlug, movementSlug string) (*Movement, error) {
	m, err := s.movements.GetMovement(ctx, projectSlug, movementSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "movement %s/%s not found", projectSlug, movementSlug)
		}
		return nil, dErrors.Newf(dErrors.CodeInternal, "get movement %s/%s: %v", projectSlug, movementSlug, err)
	}
	if m.Status.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeMovementAlreadyFinalized,
			"movement %s/%s is %s", projectSlug, movementSlug, m.Status)
	}
	return m, nil
}

// transferToPayee pays out each non-zero currency. The external ledger call
// is assumed atomic with the enclosing operation.
func (s *Service) transferToPayee(ctx context.Context, m *Movement) error {
	type leg struct {
		currency assets.Currency
		amount   int64
	}
	for _, l := range []leg{{assets.Native, m.AmountNative}, {assets.Stable, m.AmountStable}} {
		if l.amount == 0 {
			continue
		}
		if err := s.ledger.Transfer(ctx, m.ProjectSlug, m.Payee, l.currency, l.amount); err != nil {
			return dErrors.Newf(dErrors.CodeAssetTransferFailed,
				"transfer %d %s from %s to %s: %v", l.amount, l.currency, m.ProjectSlug, m.Payee, err)
		}
	}
	return nil
}

func validateCreatePayment(in CreatePaymentInput) error {
	switch {
	case in.Actor == "":
		return dErrors.New(dErrors.CodeBadRequest, "actor is required")
	case in.ProjectSlug == "":
		return dErrors.New(dErrors.CodeBadRequest, "project slug is required")
	case in.MovementSlug == "":
		return dErrors.New(dErrors.CodeBadRequest, "movement slug is required")
	case in.Payee == "":
		return dErrors.New(dErrors.CodeBadRequest, "payee is required")
	case in.Title == "":
		return dErrors.New(dErrors.CodeBadRequest, "title is required")
	case in.AmountStable < 0 || in.AmountNative < 0:
		return dErrors.Newf(dErrors.CodeBadRequest, "amounts must be non-negative, got stable=%d native=%d", in.AmountStable, in.AmountNative)
	case in.AmountStable+in.AmountNative == 0:
		return dErrors.New(dErrors.CodeBadRequest, "movement must carry a positive amount in at least one currency")
	}
	return nil
}

// emit records an audit event. The durable stores already committed, so an
// audit fault is logged loudly rather than unwinding the settlement.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"project", event.ProjectSlug,
			"movement", event.MovementSlug,
			"error", err,
		)
	}
}
