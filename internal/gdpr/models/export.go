package models

import "time"

// DataExport is the GDPR Art. 15/20 document assembled for one person.
type DataExport struct {
	PersonID     int64              `json:"person_id"`
	ExportedAt   time.Time          `json:"exported_at"`
	RequestedBy  int64              `json:"requested_by"`
	PersonalData []ExportedField    `json:"personal_data"`
	Contracts    []ExportedContract `json:"contracts"`
	Claims       []ExportedClaim    `json:"claims"`
	Consents     []ExportedConsent  `json:"consents"`
}

// ExportedField is one decrypted personal field with its classification.
type ExportedField struct {
	Field      string   `json:"field"`
	Value      any      `json:"value"`
	Category   Category `json:"category"`
	Purpose    string   `json:"purpose"`
	IsRequired bool     `json:"is_required"`
}

type ExportedContract struct {
	ID             int64           `json:"id"`
	ContractNumber string          `json:"contract_number"`
	InsuranceType  string          `json:"insurance_type"`
	Status         string          `json:"status"`
	InsuredAmount  string          `json:"insured_amount"`
	InsuranceLimit string          `json:"insurance_limit"`
	AnnualPremium  *string         `json:"annual_premium,omitempty"`
	IsPaid         bool            `json:"is_paid"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidTo        time.Time       `json:"valid_to"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Claims         []ExportedClaim `json:"claims"`
	Files          []ExportedFile  `json:"files"`
}

type ExportedClaim struct {
	ID                int64          `json:"id"`
	ClaimNumber       string         `json:"claim_number"`
	IncidentAt        time.Time      `json:"incident_at"`
	DamageDescription string         `json:"damage_description"`
	IncidentLocation  string         `json:"incident_location"`
	Witnesses         string         `json:"witnesses,omitempty"`
	EstimatedDamage   *string        `json:"estimated_damage,omitempty"`
	PaymentAmount     *string        `json:"payment_amount,omitempty"`
	Status            string         `json:"status"`
	ReportedAt        time.Time      `json:"reported_at"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	ContractID        *int64         `json:"contract_id,omitempty"`
	Files             []ExportedFile `json:"files"`
}

type ExportedFile struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type ExportedConsent struct {
	ID               int64      `json:"id"`
	Category         Category   `json:"category"`
	Purpose          string     `json:"purpose"`
	GrantedAt        time.Time  `json:"granted_at"`
	GrantedBy        int64      `json:"granted_by"`
	IsActive         bool       `json:"is_active"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedBy        *int64     `json:"revoked_by,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
	TermsVersion     string     `json:"terms_version"`
}
