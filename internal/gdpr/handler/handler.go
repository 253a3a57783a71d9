package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assura/internal/gdpr/models"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/httputil"
	"assura/pkg/platform/middleware/auth"
	"assura/pkg/requestcontext"
)

// Service defines the GDPR operations exposed over HTTP.
type Service interface {
	ExportPersonalData(ctx context.Context, personID id.PersonID, requestedBy id.UserID) (*models.DataExport, error)
	CanAnonymize(ctx context.Context, personID id.PersonID) (bool, error)
	AnonymizePersonalData(ctx context.Context, personID id.PersonID, reason string, by id.UserID) (bool, error)
	GetAuditLog(ctx context.Context, personID id.PersonID, r models.TimeRange) ([]models.AuditEntry, error)
	RecordConsent(ctx context.Context, personID id.PersonID, category models.Category, purpose string, by id.UserID) (bool, error)
	RevokeConsent(ctx context.Context, personID id.PersonID, category models.Category, by id.UserID, reason string) (bool, error)
	HasValidConsent(ctx context.Context, personID id.PersonID, category models.Category) (bool, error)
}

// Handler handles the /gdpr endpoints.
type Handler struct {
	logger *slog.Logger
	gdpr   Service
}

// New creates a new GDPR Handler.
func New(gdpr Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		gdpr:   gdpr,
	}
}

// Register registers the GDPR routes. The router must already run RequireAuth.
func (h *Handler) Register(r chi.Router) {
	adminOnly := auth.RequireRole(h.logger, id.RoleAdmin)
	staff := auth.RequireRole(h.logger, id.RoleAdmin, id.RoleBroker)

	r.Route("/gdpr", func(r chi.Router) {
		r.With(staff).Get("/export/{personID}", h.handleExport)
		r.With(adminOnly).Post("/anonymize/{personID}", h.handleAnonymize)
		r.With(adminOnly).Get("/can-anonymize/{personID}", h.handleCanAnonymize)
		r.With(adminOnly).Get("/audit-log/{personID}", h.handleAuditLog)
		r.With(staff).Post("/consent/{personID}", h.handleRecordConsent)
		r.With(staff).Delete("/consent/{personID}", h.handleRevokeConsent)
		r.With(staff).Get("/consent/{personID}/check", h.handleCheckConsent)
	})
}

func (h *Handler) personID(w http.ResponseWriter, r *http.Request) (id.PersonID, bool) {
	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid person id in path",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return 0, false
	}
	return personID, true
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	export, err := h.gdpr.ExportPersonalData(ctx, personID, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to export personal data",
			"person_id", personID.String(),
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, export)
}

func (h *Handler) handleCanAnonymize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	eligible, err := h.gdpr.CanAnonymize(ctx, personID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check anonymization eligibility",
			"person_id", personID.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CanAnonymizeResponse{PersonID: int64(personID), CanAnonymize: eligible})
}

func (h *Handler) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AnonymizeRequest](w, r, h.logger)
	if !ok {
		return
	}

	anonymized, err := h.gdpr.AnonymizePersonalData(ctx, personID, req.Reason, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to anonymize personal data",
			"person_id", personID.String(),
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !anonymized {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotEligible,
			"person has active contracts or unresolved claims"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AnonymizeResponse{
		PersonID:   int64(personID),
		Anonymized: true,
		Message:    "Personal data anonymized",
	})
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}
	window, err := parseTimeRange(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.gdpr.GetAuditLog(ctx, personID, window)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit log",
			"person_id", personID.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditLogResponse(int64(personID), entries))
}

func (h *Handler) handleRecordConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordConsentRequest](w, r, h.logger)
	if !ok {
		return
	}

	granted, err := h.gdpr.RecordConsent(ctx, personID, req.category, req.Purpose, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record consent",
			"person_id", personID.String(),
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !granted {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeConsentExists,
			"consent already exists for category %s", req.category))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ConsentResponse{
		PersonID: int64(personID),
		Category: req.category,
		Message:  "Consent recorded",
	})
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeConsentRequest](w, r, h.logger)
	if !ok {
		return
	}

	revoked, err := h.gdpr.RevokeConsent(ctx, personID, req.category, userID, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke consent",
			"person_id", personID.String(),
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !revoked {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNoConsent,
			"no active consent for category %s", req.category))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ConsentResponse{
		PersonID: int64(personID),
		Category: req.category,
		Message:  "Consent revoked",
	})
}

func (h *Handler) handleCheckConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	has, err := h.gdpr.HasValidConsent(ctx, personID, category)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check consent",
			"person_id", personID.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ConsentCheckResponse{
		PersonID:   int64(personID),
		Category:   category,
		HasConsent: has,
	})
}

// parseTimeRange reads the optional RFC 3339 from/to query parameters.
func parseTimeRange(r *http.Request) (models.TimeRange, error) {
	var window models.TimeRange
	for _, p := range []struct {
		name   string
		target **time.Time
	}{{"from", &window.From}, {"to", &window.To}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return models.TimeRange{}, dErrors.New(dErrors.CodeBadRequest, p.name+" must be an RFC 3339 timestamp")
		}
		*p.target = &t
	}
	if err := window.Validate(); err != nil {
		return models.TimeRange{}, err
	}
	return window, nil
}
