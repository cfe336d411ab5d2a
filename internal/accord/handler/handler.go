// Package handler exposes the accord ledger, penalty schedule, and treasury
// over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bondly/internal/accord"
	"bondly/internal/penalty"
	"bondly/internal/platform/metrics"
	"bondly/internal/platform/middleware"
	"bondly/internal/transport/http/shared"
	dErrors "bondly/pkg/domain-errors"
)

// Service defines the accord operations the handler delegates to.
type Service interface {
	ProposeAccord(ctx context.Context, actor, propertySlug string, deposit int64) (*accord.Accord, error)
	ApproveAccord(ctx context.Context, actor, propertySlug string, id uuid.UUID) (*accord.Accord, error)
	ConfirmAccord(ctx context.Context, actor, propertySlug string, id uuid.UUID) (*accord.Accord, error)
	RecordBreach(ctx context.Context, actor, propertySlug string, id uuid.UUID, severity penalty.Severity) (*accord.Accord, error)
	GetAccord(ctx context.Context, propertySlug string, id uuid.UUID) (*accord.Accord, error)
	TotalAccords(ctx context.Context, propertySlug string) (int64, error)
	TotalAccordsAll(ctx context.Context) (int64, error)
	TotalAccordsDetails(ctx context.Context, propertySlug string) (accord.Counters, error)
	PenaltyRate(severity penalty.Severity, tier int) (int, error)
	TreasuryBalance() int64
}

// Handler handles accord, penalty, and treasury endpoints.
type Handler struct {
	logger         *slog.Logger
	accords        Service
	metrics        *metrics.Metrics
	actorValidator middleware.ActorValidator
}

func New(
	accordService Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	actorValidator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:         logger,
		accords:        accordService,
		metrics:        m,
		actorValidator: actorValidator,
	}
}

// Register registers the accord routes with the full middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.LatencyMiddleware(h.metrics))
		router.Use(middleware.RequireActor(h.actorValidator, h.logger))

		router.Post("/properties/{property}/accords", h.handlePropose)
		router.Post("/properties/{property}/accords/{id}/approve", h.handleApprove)
		router.Post("/properties/{property}/accords/{id}/confirm", h.handleConfirm)
		router.Post("/properties/{property}/accords/{id}/breach", h.handleBreach)
		router.Get("/properties/{property}/accords/total", h.handleTotal)
		router.Get("/properties/{property}/accords/details", h.handleDetails)
		router.Get("/accords/total", h.handleTotalAll)
		router.Get("/penalty/rate", h.handlePenaltyRate)
		router.Get("/treasury/balance", h.handleTreasuryBalance)
	})
}

type proposeRequest struct {
	Deposit int64 `json:"deposit"`
}

type breachRequest struct {
	Severity string `json:"severity"`
}

type accordResponse struct {
	Property         string    `json:"property"`
	ID               string    `json:"id"`
	Proposer         string    `json:"proposer"`
	Deposit          int64     `json:"deposit"`
	FeeRateBps       int       `json:"fee_rate_bps"`
	Status           string    `json:"status"`
	ProposedAt       time.Time `json:"proposed_at"`
	BreachSeverity   string    `json:"breach_severity,omitempty"`
	BreachOccurrence int       `json:"breach_occurrence,omitempty"`
	PenaltyCollected int64     `json:"penalty_collected,omitempty"`
	FeeCollected     int64     `json:"fee_collected,omitempty"`
	ProposerRefund   int64     `json:"proposer_refund,omitempty"`
}

func toAccordResponse(a *accord.Accord) accordResponse {
	return accordResponse{
		Property:         a.PropertySlug,
		ID:               a.ID.String(),
		Proposer:         a.Proposer,
		Deposit:          a.Deposit,
		FeeRateBps:       a.FeeRateBps,
		Status:           string(a.Status),
		ProposedAt:       a.ProposedAt,
		BreachSeverity:   string(a.BreachSeverity),
		BreachOccurrence: a.BreachOccurrence,
		PenaltyCollected: a.PenaltyCollected,
		FeeCollected:     a.FeeCollected,
		ProposerRefund:   a.ProposerRefund,
	}
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	propertySlug := chi.URLParam(r, "property")

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	a, err := h.accords.ProposeAccord(ctx, actor, propertySlug, req.Deposit)
	if err != nil {
		h.writeServiceError(ctx, w, "propose accord", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toAccordResponse(a))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.accords.ApproveAccord, "approve accord")
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.accords.ConfirmAccord, "confirm accord")
}

func (h *Handler) advance(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor, propertySlug string, id uuid.UUID) (*accord.Accord, error),
	name string,
) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	propertySlug := chi.URLParam(r, "property")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "accord id must be a uuid"))
		return
	}

	a, err := op(ctx, actor, propertySlug, id)
	if err != nil {
		h.writeServiceError(ctx, w, name, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAccordResponse(a))
}

func (h *Handler) handleBreach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	propertySlug := chi.URLParam(r, "property")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "accord id must be a uuid"))
		return
	}

	var req breachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	a, err := h.accords.RecordBreach(ctx, actor, propertySlug, id, penalty.Severity(req.Severity))
	if err != nil {
		h.writeServiceError(ctx, w, "record breach", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAccordResponse(a))
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.accords.TotalAccords(ctx, chi.URLParam(r, "property"))
	if err != nil {
		h.writeServiceError(ctx, w, "count accords", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"total": total})
}

func (h *Handler) handleTotalAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.accords.TotalAccordsAll(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "count accords", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"total": total})
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	details, err := h.accords.TotalAccordsDetails(ctx, chi.URLParam(r, "property"))
	if err != nil {
		h.writeServiceError(ctx, w, "accord details", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) handlePenaltyRate(w http.ResponseWriter, r *http.Request) {
	severity := penalty.Severity(r.URL.Query().Get("severity"))
	tier, err := strconv.Atoi(r.URL.Query().Get("tier"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "tier must be an integer"))
		return
	}

	rate, err := h.accords.PenaltyRate(severity, tier)
	if err != nil {
		h.writeServiceError(r.Context(), w, "penalty rate", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"severity": string(severity),
		"tier":     tier,
		"rate_bps": rate,
	})
}

func (h *Handler) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"balance": h.accords.TreasuryBalance()})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "accord operation failed",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, "accord operation rejected",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
