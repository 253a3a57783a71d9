// Package tracer is a small tracing abstraction over OpenTelemetry used by
// the GDPR orchestrator. Services depend on the Tracer interface only.
//
// Implementations:
//   - NoopTracer: tests and tools that do not export traces
//   - OTelTracer: OpenTelemetry adapter for the server
//
// Span attributes must never carry personal data. Use person IDs, counts and
// outcomes, not names or identifiers read from the person record.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := t.Start(ctx, tracer.SpanGDPRExport, tracer.Int64(tracer.AttrPersonID, int64(personID)))
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanGDPRExport       = "gdpr.export"
	SpanGDPRCanAnonymize = "gdpr.can_anonymize"
	SpanGDPRAnonymize    = "gdpr.anonymize"
	SpanGDPRConsent      = "gdpr.consent"
	SpanGDPRAuditQuery   = "gdpr.audit.query"
)

// Attribute keys.
const (
	AttrPersonID       = "person_id"
	AttrEligible       = "eligible"
	AttrContractCount  = "contract_count"
	AttrClaimCount     = "claim_count"
	AttrConsentCount   = "consent_count"
	AttrCategory       = "consent.category"
	AttrOutcome        = "outcome"
	AttrAuditEntries   = "audit.entries"
	AttrAuditHasWindow = "audit.has_window"
)

// Event names.
const (
	EventAuditAppended = "audit.appended"
	EventFieldsSealed  = "fields.sealed"
)
