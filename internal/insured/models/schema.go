package models

import (
	"time"

	"assura/internal/encryption"
	gdpr "assura/internal/gdpr/models"
)

// KindPerson is the classification kind of Person.
const KindPerson encryption.Kind = "insured_person"

// Searchable field names accepted by the person store's hash lookup.
const (
	FieldFirstName  = "FirstName"
	FieldLastName   = "LastName"
	FieldEmail      = "Email"
	FieldNationalID = "NationalID"
)

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// PersonSchema classifies every personal-data field of Person.
var PersonSchema = encryption.MustSchema(KindPerson,
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: FieldFirstName, IsEncrypted: true, CreatesSearchHash: true,
			Category: gdpr.CategoryGeneral, IsRequired: true, Purpose: "Policyholder first name"},
		Text: func(p *Person) *string { return &p.FirstName },
		Hash: func(p *Person) *string { return &p.FirstNameHash },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: FieldLastName, IsEncrypted: true, CreatesSearchHash: true,
			Category: gdpr.CategoryGeneral, IsRequired: true, Purpose: "Policyholder last name"},
		Text: func(p *Person) *string { return &p.LastName },
		Hash: func(p *Person) *string { return &p.LastNameHash },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: "DateOfBirth",
			Category: gdpr.CategoryGeneral, IsRequired: true, Purpose: "Date of birth for age and risk calculation"},
		Value: func(p *Person) any { return p.DateOfBirth.Format(time.DateOnly) },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: "Phone", IsEncrypted: true,
			Category: gdpr.CategoryContact, Purpose: "Phone number for contact"},
		Text:  func(p *Person) *string { return &p.Phone },
		Value: func(p *Person) any { return nullable(p.Phone) },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: FieldEmail, IsEncrypted: true, CreatesSearchHash: true,
			Category: gdpr.CategoryContact, Purpose: "E-mail address for communication"},
		Text:  func(p *Person) *string { return &p.Email },
		Hash:  func(p *Person) *string { return &p.EmailHash },
		Value: func(p *Person) any { return nullable(p.Email) },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: "Address", IsEncrypted: true,
			Category: gdpr.CategoryContact, Purpose: "Residential address"},
		Text:  func(p *Person) *string { return &p.Address },
		Value: func(p *Person) any { return nullable(p.Address) },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: FieldNationalID, IsEncrypted: true, CreatesSearchHash: true,
			Category: gdpr.CategorySensitive, Purpose: "National identification number"},
		Text:  func(p *Person) *string { return &p.NationalID },
		Hash:  func(p *Person) *string { return &p.NationalIDHash },
		Value: func(p *Person) any { return nullable(p.NationalID) },
	},
	encryption.Binding[Person]{
		Field: encryption.PersonField{FieldName: "IDCardNumber", IsEncrypted: true,
			Category: gdpr.CategoryIdentification, Purpose: "Identity card number"},
		Text:  func(p *Person) *string { return &p.IDCardNumber },
		Value: func(p *Person) any { return nullable(p.IDCardNumber) },
	},
)

// NewRegistry returns a classification registry holding every insured
// entity kind, for lookups by kind.
func NewRegistry() (*encryption.Registry, error) {
	r := encryption.NewRegistry()
	if err := encryption.RegisterSchema(r, PersonSchema); err != nil {
		return nil, err
	}
	return r, nil
}
