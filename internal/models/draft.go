package models

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PatientDraft is the add-patient form state: a Patient without an ID whose
// address is always present.
type PatientDraft struct {
	FirstName   string  `json:"firstName" validate:"required"`
	LastName    string  `json:"lastName" validate:"required"`
	DateOfBirth string  `json:"dateOfBirth" validate:"required"`
	Gender      string  `json:"gender" validate:"required"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Address     Address `json:"address"`
	MRN         string  `json:"mrn" validate:"required"`
	InsuranceID string  `json:"insuranceId"`
}

// EmptyDraft returns the all-empty form shape
func EmptyDraft() PatientDraft {
	return PatientDraft{}
}

// Validate checks the required fields of the draft
func (d PatientDraft) Validate() error {
	return validate.Struct(d)
}

// IsValid reports whether all required fields are filled in
func (d PatientDraft) IsValid() bool {
	return d.Validate() == nil
}

// MissingFields returns the JSON names of the required fields that are empty,
// in form order.
func (d PatientDraft) MissingFields() []string {
	err := d.Validate()
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, jsonFieldNames[fe.StructField()])
	}
	return missing
}

// ToPatient builds the patient record for the draft with the given ID.
// The address is copied so later draft edits do not leak into the record;
// an address left entirely blank is not stored.
func (d PatientDraft) ToPatient(id string) Patient {
	var addr *Address
	if !d.Address.IsZero() {
		a := d.Address
		addr = &a
	}
	return Patient{
		ID:          id,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		DateOfBirth: d.DateOfBirth,
		Gender:      d.Gender,
		Phone:       d.Phone,
		Email:       d.Email,
		Address:     addr,
		MRN:         d.MRN,
		InsuranceID: d.InsuranceID,
	}
}

var jsonFieldNames = map[string]string{
	"FirstName":   "firstName",
	"LastName":    "lastName",
	"DateOfBirth": "dateOfBirth",
	"Gender":      "gender",
	"MRN":         "mrn",
}
