package handler

import (
	"time"

	"assura/internal/gdpr/models"
)

type CanAnonymizeResponse struct {
	PersonID     int64 `json:"person_id"`
	CanAnonymize bool  `json:"can_anonymize"`
}

type AnonymizeResponse struct {
	PersonID   int64  `json:"person_id"`
	Anonymized bool   `json:"anonymized"`
	Message    string `json:"message"`
}

type ConsentResponse struct {
	PersonID int64           `json:"person_id"`
	Category models.Category `json:"category"`
	Message  string          `json:"message"`
}

type ConsentCheckResponse struct {
	PersonID   int64           `json:"person_id"`
	Category   models.Category `json:"category"`
	HasConsent bool            `json:"has_consent"`
}

type AuditEntryResponse struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	Action    models.Action `json:"action"`
	Details   string        `json:"details,omitempty"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type AuditLogResponse struct {
	PersonID int64                `json:"person_id"`
	Entries  []AuditEntryResponse `json:"entries"`
	Count    int                  `json:"count"`
}

func toAuditLogResponse(personID int64, entries []models.AuditEntry) AuditLogResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:        int64(e.ID),
			UserID:    int64(e.UserID),
			Action:    e.Action,
			Details:   e.Details,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Timestamp: e.Timestamp,
		}
	}
	return AuditLogResponse{PersonID: personID, Entries: out, Count: len(out)}
}
