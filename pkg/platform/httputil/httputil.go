package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/requestcontext"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError is the one place domain errors become HTTP responses. Errors
// without a domain code are treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	response := map[string]string{"error": DomainCodeToHTTPCode(code)}
	var domainErr *dErrors.Error
	if !code.Opaque() && errors.As(err, &domainErr) && domainErr.Message != "" {
		response["error_description"] = domainErr.Message
	}
	WriteJSON(w, DomainCodeToHTTPStatus(code), response)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeConsentExists, dErrors.CodeNoConsent:
		return http.StatusConflict
	case dErrors.CodeNotEligible:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to HTTP error codes (for JSON response).
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeConsentExists:
		return "consent_exists"
	case dErrors.CodeNoConsent:
		return "no_active_consent"
	case dErrors.CodeNotEligible:
		return "not_eligible"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}

// RequireUserID extracts the authenticated user ID from context.
// A missing ID behind the auth middleware is a wiring bug, so it maps to 500.
func RequireUserID(ctx context.Context, logger *slog.Logger) (id.UserID, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		if logger != nil {
			logger.ErrorContext(ctx, "user_id missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return 0, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return userID, nil
}
