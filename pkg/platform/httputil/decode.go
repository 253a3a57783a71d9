package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "assura/pkg/domain-errors"
	"assura/pkg/requestcontext"
)

// MaxBodySize bounds every decoded request body (64 KB).
const MaxBodySize = 64 * 1024

var errTrailingData = errors.New("request body holds more than one JSON value")

// DecodeJSON reads exactly one JSON object into T. Unknown fields, trailing
// values and bodies over MaxBodySize are rejected with a 400 and the
// caller gets nil, false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := decodeStrict(http.MaxBytesReader(w, r.Body, MaxBodySize), &req); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		msg := "invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return nil, false
	}
	return &req, true
}

func decodeStrict(body io.Reader, target any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// Sanitizable request types trim or clean their raw input.
type Sanitizable interface {
	Sanitize()
}

// Normalizable request types canonicalise values after sanitizing.
type Normalizable interface {
	Normalize()
}

// Validatable request types check themselves last.
type Validatable interface {
	Validate() error
}

// PrepareRequest sanitizes, normalizes, and validates a request, in that order.
func PrepareRequest(req any) error {
	if s, ok := req.(Sanitizable); ok {
		s.Sanitize()
	}
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare is DecodeJSON followed by PrepareRequest. A domain error
// from Validate keeps its code; any other error becomes validation_error.
//
//	req, ok := httputil.DecodeAndPrepare[RecordConsentRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger)
	if !ok {
		return nil, false
	}

	if err := PrepareRequest(req); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		var domainErr *dErrors.Error
		if !errors.As(err, &domainErr) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
