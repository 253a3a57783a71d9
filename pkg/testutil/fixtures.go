package testutil

import (
	"strings"
	"time"

	"github.com/google/uuid"

	insured "assura/internal/insured/models"
	id "assura/pkg/domain"
)

// PersonBuilder provides a fluent interface for building insured persons.
// Built persons are plaintext; the store encrypts them on write.
type PersonBuilder struct {
	person *insured.Person
}

// NewPersonBuilder creates a PersonBuilder with a realistic Czech policyholder.
func NewPersonBuilder() *PersonBuilder {
	return &PersonBuilder{
		person: &insured.Person{
			FirstName:   "Jan",
			LastName:    "Novák",
			DateOfBirth: time.Date(1980, 5, 15, 0, 0, 0, 0, time.UTC),
			Phone:       "+420 601 123 456",
			Email:       "jan.novak@example.com",
			Address:     "Vinohradská 12, Praha",
			NationalID:  "8005150123",
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		},
	}
}

func (b *PersonBuilder) WithName(firstName, lastName string) *PersonBuilder {
	b.person.FirstName = firstName
	b.person.LastName = lastName
	return b
}

func (b *PersonBuilder) WithEmail(email string) *PersonBuilder {
	b.person.Email = email
	return b
}

func (b *PersonBuilder) WithNationalID(nationalID string) *PersonBuilder {
	b.person.NationalID = nationalID
	return b
}

func (b *PersonBuilder) WithIDCard(number string) *PersonBuilder {
	b.person.IDCardNumber = number
	return b
}

func (b *PersonBuilder) Build() *insured.Person {
	return b.person
}

// ContractBuilder provides a fluent interface for building contracts.
type ContractBuilder struct {
	contract *insured.Contract
}

// NewContractBuilder creates an active property contract for personID with
// a unique contract number.
func NewContractBuilder(personID id.PersonID) *ContractBuilder {
	return &ContractBuilder{
		contract: &insured.Contract{
			ContractNumber:  "PC-" + shortID(),
			InsuranceType:   insured.InsuranceProperty,
			InsuredAmount:   250000000,
			InsuranceLimit:  200000000,
			Status:          insured.ContractActive,
			ValidFrom:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:       time.Now().UTC(),
			InsuredPersonID: personID,
		},
	}
}

func (b *ContractBuilder) WithStatus(status insured.ContractStatus) *ContractBuilder {
	b.contract.Status = status
	return b
}

func (b *ContractBuilder) WithType(t insured.InsuranceType) *ContractBuilder {
	b.contract.InsuranceType = t
	return b
}

func (b *ContractBuilder) WithPremium(m insured.Money) *ContractBuilder {
	b.contract.AnnualPremium = &m
	return b
}

func (b *ContractBuilder) Build() *insured.Contract {
	return b.contract
}

// ClaimBuilder provides a fluent interface for building claims.
type ClaimBuilder struct {
	claim *insured.Claim
}

// NewClaimBuilder creates a reported claim for personID with no contract.
func NewClaimBuilder(personID id.PersonID) *ClaimBuilder {
	return &ClaimBuilder{
		claim: &insured.Claim{
			ClaimNumber:       "CL-" + shortID(),
			IncidentAt:        time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC),
			DamageDescription: "Water damage in the kitchen",
			IncidentLocation:  "Praha",
			Status:            insured.ClaimReported,
			ReportedAt:        time.Now().UTC(),
			InsuredPersonID:   personID,
		},
	}
}

func (b *ClaimBuilder) OnContract(contractID id.ContractID) *ClaimBuilder {
	b.claim.ContractID = &contractID
	return b
}

func (b *ClaimBuilder) WithStatus(status insured.ClaimStatus) *ClaimBuilder {
	b.claim.Status = status
	return b
}

func (b *ClaimBuilder) WithEstimate(m insured.Money) *ClaimBuilder {
	b.claim.EstimatedDamage = &m
	return b
}

func (b *ClaimBuilder) Build() *insured.Claim {
	return b.claim
}

func shortID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
