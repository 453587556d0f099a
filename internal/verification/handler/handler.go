package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idvgate/internal/verification/models"
	dErrors "idvgate/pkg/domain-errors"
	"idvgate/pkg/platform/audit"
	"idvgate/pkg/platform/audit/publisher"
	"idvgate/pkg/platform/httputil"
	"idvgate/pkg/platform/middleware/admin"
	"idvgate/pkg/platform/middleware/auth"
	"idvgate/pkg/platform/sentinel"
	"idvgate/pkg/requestcontext"
)

// Service answers hook invocations.
type Service interface {
	Handle(ctx context.Context, inv models.Invocation) (*models.Outcome, error)
}

// ProfileReader looks up stored verification records.
type ProfileReader interface {
	FindVerification(ctx context.Context, subjectID string) (*models.VerificationRecord, error)
}

// AuditReader lists a subject's audit history.
type AuditReader interface {
	List(ctx context.Context, subjectID string) ([]audit.Event, error)
}

type Handler struct {
	service    Service
	profiles   ProfileReader
	audit      AuditReader
	logger     *slog.Logger
	hookSecret string
	adminToken string
}

func New(service Service, profiles ProfileReader, auditReader AuditReader, logger *slog.Logger, hookSecret, adminToken string) *Handler {
	return &Handler{
		service:    service,
		profiles:   profiles,
		audit:      auditReader,
		logger:     logger,
		hookSecret: hookSecret,
		adminToken: adminToken,
	}
}

// Register mounts the hook and operator routes.
func (h *Handler) Register(r chi.Router) {
	r.With(auth.RequireHookSecret(h.hookSecret, h.logger)).Post("/hooks/login", h.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/profiles/{subjectID}/verification", h.HandleGetVerification)
		r.Get("/profiles/{subjectID}/audit", h.HandleListAudit)
	})
}

// HandleLogin runs one invocation. Decided outcomes, denials included,
// are returned with 200 so the host always receives an action.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[LoginHookRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid hook invocation",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.Handle(ctx, req.ToInvocation())
	if err != nil {
		h.logger.InfoContext(ctx, "login denied",
			"request_id", requestID,
			"subject_id", req.Subject.ID,
			"code", dErrors.CodeOf(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteJSON(w, http.StatusOK, toDenyResponse(outcome, err))
		return
	}

	h.logger.InfoContext(ctx, "login decided",
		"request_id", requestID,
		"subject_id", req.Subject.ID,
		"action", outcome.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toHookResponse(outcome))
}

func (h *Handler) HandleGetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := chi.URLParam(r, "subjectID")
	if subjectID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "subject id is required"))
		return
	}

	record, err := h.profiles.FindVerification(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no verification recorded for subject"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load verification record",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerificationResponse{SubjectID: subjectID, VerificationRecord: *record})
}

// HandleListAudit returns the subject's audit trail when the configured
// audit store can be queried.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := chi.URLParam(r, "subjectID")

	events, err := h.audit.List(ctx, subjectID)
	if err != nil {
		if errors.Is(err, publisher.ErrListUnsupported) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit history is not queryable with the configured store"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, AuditResponse{SubjectID: subjectID, Events: events})
}
