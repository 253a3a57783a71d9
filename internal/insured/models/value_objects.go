package models

import (
	"strings"

	dErrors "assura/pkg/domain-errors"
)

type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractInactive   ContractStatus = "inactive"
	ContractTerminated ContractStatus = "terminated"
)

func (s ContractStatus) IsValid() bool {
	return s == ContractActive || s == ContractInactive || s == ContractTerminated
}

type InsuranceType string

const (
	InsuranceLife      InsuranceType = "life"
	InsuranceProperty  InsuranceType = "property"
	InsuranceAccident  InsuranceType = "accident"
	InsuranceLiability InsuranceType = "liability"
	InsuranceTravel    InsuranceType = "travel"
)

func (t InsuranceType) IsValid() bool {
	switch t {
	case InsuranceLife, InsuranceProperty, InsuranceAccident, InsuranceLiability, InsuranceTravel:
		return true
	}
	return false
}

// ClaimStatus tracks a claim through handling.
type ClaimStatus string

const (
	ClaimReported   ClaimStatus = "reported"
	ClaimOpen       ClaimStatus = "open"
	ClaimInProgress ClaimStatus = "in_progress"
	ClaimProcessing ClaimStatus = "processing"
	ClaimResolved   ClaimStatus = "resolved"
	ClaimRejected   ClaimStatus = "rejected"
)

func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimReported, ClaimOpen, ClaimInProgress, ClaimProcessing, ClaimResolved, ClaimRejected:
		return true
	}
	return false
}

// IsResolved reports whether the claim is closed, either paid out or rejected.
func (s ClaimStatus) IsResolved() bool {
	return s == ClaimResolved || s == ClaimRejected
}

// ParseClaimStatus is case-insensitive and maps "completed" to resolved.
func ParseClaimStatus(s string) (ClaimStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "completed" {
		return ClaimResolved, nil
	}
	if v == "inprogress" {
		return ClaimInProgress, nil
	}
	st := ClaimStatus(v)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid claim status: "+s)
	}
	return st, nil
}

// ParseContractStatus is case-insensitive.
func ParseContractStatus(s string) (ContractStatus, error) {
	st := ContractStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid contract status: "+s)
	}
	return st, nil
}

type FileCategory string

const (
	FileDocument FileCategory = "document"
	FilePhoto    FileCategory = "photo"
)
