package models

import (
	"fmt"
	"time"

	id "assura/pkg/domain"
)

// AnonymizedValue replaces free-text personal data on erasure.
const AnonymizedValue = "ANONYMIZED"

// AnonymizedDateOfBirth is the sentinel birth date written on erasure.
var AnonymizedDateOfBirth = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Person is an insured policyholder. The string fields marked in
// PersonSchema are ciphertext at rest; an empty string is stored as NULL.
type Person struct {
	ID             id.PersonID
	FirstName      string
	FirstNameHash  string
	LastName       string
	LastNameHash   string
	DateOfBirth    time.Time
	Phone          string
	Email          string
	EmailHash      string
	Address        string
	NationalID     string
	NationalIDHash string
	IDCardNumber   string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// AnonymizedEmail is the placeholder address written for person id.
func AnonymizedEmail(personID id.PersonID) string {
	return fmt.Sprintf("anonymized_%d@example.com", personID)
}

// Anonymize overwrites every identifying field with its sentinel. The
// caller persists the result, which re-encrypts and re-hashes the fields.
func (p *Person) Anonymize(at time.Time) {
	p.FirstName = AnonymizedValue
	p.LastName = AnonymizedValue
	p.Phone = AnonymizedValue
	p.Address = AnonymizedValue
	p.Email = AnonymizedEmail(p.ID)
	p.NationalID = ""
	p.IDCardNumber = ""
	p.DateOfBirth = AnonymizedDateOfBirth
	p.UpdatedAt = &at
}

// IsAnonymized reports whether the person already carries the erasure sentinels.
func (p *Person) IsAnonymized() bool {
	return p.FirstName == AnonymizedValue && p.LastName == AnonymizedValue &&
		p.NationalID == "" && p.DateOfBirth.Equal(AnonymizedDateOfBirth)
}

// Clone returns a deep copy.
func (p *Person) Clone() *Person {
	c := *p
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// Contract is an insurance policy held by a person.
type Contract struct {
	ID              id.ContractID
	ContractNumber  string
	InsuranceType   InsuranceType
	InsuredAmount   Money
	InsuranceLimit  Money
	Status          ContractStatus
	IsPaid          bool
	ValidFrom       time.Time
	ValidTo         time.Time
	AnnualPremium   *Money
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	InsuredPersonID id.PersonID
	ManagerID       *id.UserID
}

// Claim is a damage report, linked to a contract when known.
type Claim struct {
	ID                id.ClaimID
	ClaimNumber       string
	IncidentAt        time.Time
	DamageDescription string
	IncidentLocation  string
	Witnesses         string
	EstimatedDamage   *Money
	PaymentAmount     *Money
	Status            ClaimStatus
	ReportedAt        time.Time
	ResolvedAt        *time.Time
	ContractID        *id.ContractID
	InsuredPersonID   id.PersonID
}

// ContractFile is a document attached to a contract.
type ContractFile struct {
	ID          id.FileID
	FileName    string
	FilePath    string
	FileType    string
	FileSize    int64
	Description string
	UploadedAt  time.Time
	ContractID  id.ContractID
}

// ClaimFile is a document or photo attached to a claim.
type ClaimFile struct {
	ID          id.FileID
	FileName    string
	FilePath    string
	FileType    string
	FileSize    int64
	Category    FileCategory
	Description string
	UploadedAt  time.Time
	ClaimID     id.ClaimID
}
