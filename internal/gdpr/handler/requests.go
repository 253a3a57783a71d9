package handler

import (
	"strings"

	"assura/internal/gdpr/models"
	"assura/pkg/validation"
)

type AnonymizeRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

func (r *AnonymizeRequest) Sanitize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *AnonymizeRequest) Validate() error {
	return validation.Validate(r)
}

type RecordConsentRequest struct {
	Category string `json:"category" validate:"required"`
	Purpose  string `json:"purpose" validate:"required,notblank,max=500"`

	category models.Category
}

func (r *RecordConsentRequest) Sanitize() {
	r.Purpose = strings.TrimSpace(r.Purpose)
}

func (r *RecordConsentRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	c, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	r.category = c
	return nil
}

type RevokeConsentRequest struct {
	Category string `json:"category" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`

	category models.Category
}

func (r *RevokeConsentRequest) Sanitize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RevokeConsentRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	c, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	r.category = c
	return nil
}
