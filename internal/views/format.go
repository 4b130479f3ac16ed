package views

import (
	"strings"
	"time"
	"unicode/utf8"

	"stealthcompany.com/patientrecords/internal/models"
)

const notProvided = "Not provided"

// FormatDate renders a date of birth as "January 2, 2006". Dates are taken
// as calendar dates, so no timezone shift is applied.
func FormatDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return "Invalid Date"
}

// PatientCard is a patient prepared for the list page
type PatientCard struct {
	ID          string
	Initials    string
	FullName    string
	MRN         string
	DateOfBirth string
	Gender      string
	Phone       string
	Email       string
	InsuranceID string
	Address     string
	HasAddress  bool
}

// NewPatientCard formats p for display
func NewPatientCard(p models.Patient) PatientCard {
	card := PatientCard{
		ID:          p.ID,
		Initials:    firstRune(p.FirstName) + firstRune(p.LastName),
		FullName:    p.FullName(),
		MRN:         p.MRN,
		DateOfBirth: FormatDate(p.DateOfBirth),
		Gender:      p.Gender,
		Phone:       orNotProvided(p.Phone),
		Email:       orNotProvided(p.Email),
		InsuranceID: orNotProvided(p.InsuranceID),
	}
	if p.Address != nil && !p.Address.IsZero() {
		card.HasAddress = true
		card.Address = p.Address.Street + ", " + p.Address.City + ", " + p.Address.State + " " + p.Address.Zip
	}
	return card
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}

func firstRune(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(r)
}
