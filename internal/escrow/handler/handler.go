// Package handler exposes the movement escrow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bondly/internal/escrow"
	"bondly/internal/platform/metrics"
	"bondly/internal/platform/middleware"
	"bondly/internal/project"
	"bondly/internal/transport/http/shared"
	dErrors "bondly/pkg/domain-errors"
)

// Service defines the escrow operations the handler delegates to.
type Service interface {
	Fund(ctx context.Context, actor, projectSlug string, native, stable int64) (*project.Project, error)
	CreatePayment(ctx context.Context, in escrow.CreatePaymentInput) (*escrow.Movement, error)
	ApproveMovement(ctx context.Context, actor, movementSlug, projectSlug string) (*escrow.Movement, error)
	RejectMovement(ctx context.Context, actor, movementSlug, projectSlug string) (*escrow.Movement, error)
	GetMovement(ctx context.Context, projectSlug, movementSlug string) (*escrow.Movement, error)
	ProjectBalanceNative(ctx context.Context, slug string) (int64, error)
	ProjectBalanceStable(ctx context.Context, slug string) (int64, error)
	TotalMovements(ctx context.Context) (int64, error)
}

// Handler handles project and movement endpoints.
type Handler struct {
	logger         *slog.Logger
	escrow         Service
	metrics        *metrics.Metrics
	actorValidator middleware.ActorValidator
}

func New(
	escrowService Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	actorValidator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:         logger,
		escrow:         escrowService,
		metrics:        m,
		actorValidator: actorValidator,
	}
}

// Register registers the escrow routes with the full middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.LatencyMiddleware(h.metrics))
		router.Use(middleware.RequireActor(h.actorValidator, h.logger))

		router.Post("/projects/{project}/fund", h.handleFund)
		router.Get("/projects/{project}/balance", h.handleBalance)
		router.Post("/projects/{project}/movements", h.handleCreatePayment)
		router.Post("/projects/{project}/movements/{movement}/approve", h.handleApprove)
		router.Post("/projects/{project}/movements/{movement}/reject", h.handleReject)
		router.Get("/projects/{project}/movements/{movement}", h.handleGetMovement)
		router.Get("/movements/total", h.handleTotalMovements)
	})
}

type fundRequest struct {
	Native int64 `json:"native"`
	Stable int64 `json:"stable"`
}

type balanceResponse struct {
	Project string `json:"project"`
	Native  int64  `json:"native"`
	Stable  int64  `json:"stable"`
}

type createPaymentRequest struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Memo   string `json:"memo,omitempty"`
	Native int64  `json:"native"`
	Stable int64  `json:"stable"`
	Payee  string `json:"payee"`
}

type movementResponse struct {
	Project     string     `json:"project"`
	Slug        string     `json:"slug"`
	Proposer    string     `json:"proposer"`
	Title       string     `json:"title"`
	Memo        string     `json:"memo,omitempty"`
	Native      int64      `json:"native"`
	Stable      int64      `json:"stable"`
	Payee       string     `json:"payee"`
	Status      string     `json:"status"`
	RejectedBy  string     `json:"rejected_by,omitempty"`
	FinalizedBy string     `json:"finalized_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

func toMovementResponse(m *escrow.Movement) movementResponse {
	return movementResponse{
		Project:     m.ProjectSlug,
		Slug:        m.Slug,
		Proposer:    m.Proposer,
		Title:       m.Title,
		Memo:        m.Memo,
		Native:      m.AmountNative,
		Stable:      m.AmountStable,
		Payee:       m.Payee,
		Status:      string(m.Status),
		RejectedBy:  m.RejectedBy,
		FinalizedBy: m.FinalizedBy,
		CreatedAt:   m.CreatedAt,
		FinalizedAt: m.FinalizedAt,
	}
}

func (h *Handler) handleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	projectSlug := chi.URLParam(r, "project")

	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.escrow.Fund(ctx, actor, projectSlug, req.Native, req.Stable)
	if err != nil {
		h.writeServiceError(ctx, w, "fund project", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{
		Project: p.Slug,
		Native:  p.BalanceNative,
		Stable:  p.BalanceStable,
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectSlug := chi.URLParam(r, "project")

	native, err := h.escrow.ProjectBalanceNative(ctx, projectSlug)
	if err != nil {
		h.writeServiceError(ctx, w, "read native balance", err)
		return
	}
	stable, err := h.escrow.ProjectBalanceStable(ctx, projectSlug)
	if err != nil {
		h.writeServiceError(ctx, w, "read stable balance", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{
		Project: projectSlug,
		Native:  native,
		Stable:  stable,
	})
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	projectSlug := chi.URLParam(r, "project")

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, err := h.escrow.CreatePayment(ctx, escrow.CreatePaymentInput{
		Actor:        actor,
		Title:        req.Title,
		Memo:         req.Memo,
		MovementSlug: req.Slug,
		ProjectSlug:  projectSlug,
		AmountStable: req.Stable,
		AmountNative: req.Native,
		Payee:        req.Payee,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "create payment", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toMovementResponse(m))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.escrow.ApproveMovement, "approve movement")
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.escrow.RejectMovement, "reject movement")
}

func (h *Handler) review(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor, movementSlug, projectSlug string) (*escrow.Movement, error),
	name string,
) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	projectSlug := chi.URLParam(r, "project")
	movementSlug := chi.URLParam(r, "movement")

	m, err := op(ctx, actor, movementSlug, projectSlug)
	if err != nil {
		h.writeServiceError(ctx, w, name, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMovementResponse(m))
}

func (h *Handler) handleGetMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.escrow.GetMovement(ctx, chi.URLParam(r, "project"), chi.URLParam(r, "movement"))
	if err != nil {
		h.writeServiceError(ctx, w, "get movement", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMovementResponse(m))
}

func (h *Handler) handleTotalMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.escrow.TotalMovements(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "count movements", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"total": total})
}

// writeServiceError logs internals at error level and expected protocol
// rejections at warn, then writes the mapped response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "escrow operation failed",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, "escrow operation rejected",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
