package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"stealthcompany.com/patientrecords/internal/models"
)

const (
	testTimeout = time.Second
	testTick    = 5 * time.Millisecond
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "1985-03-15", expected: "March 15, 1985"},
		{input: "2000-01-01", expected: "January 1, 2000"},
		{input: "1992-07-22T00:00:00Z", expected: "July 22, 1992"},
		{input: "", expected: "Invalid Date"},
		{input: "15/03/1985", expected: "Invalid Date"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDate(tt.input))
		})
	}
}

func TestNewPatientCard(t *testing.T) {
	card := NewPatientCard(models.Patient{
		ID:          "p1",
		FirstName:   "Élodie",
		LastName:    "Martin",
		DateOfBirth: "1970-12-31",
		Gender:      "Female",
		Email:       "em@example.com",
		MRN:         "M7",
		Address:     &models.Address{Street: "1 Rue", City: "Paris", State: "IDF", Zip: "75001"},
	})

	assert.Equal(t, "ÉM", card.Initials)
	assert.Equal(t, "Élodie Martin", card.FullName)
	assert.Equal(t, "December 31, 1970", card.DateOfBirth)
	assert.Equal(t, "Not provided", card.Phone)
	assert.Equal(t, "em@example.com", card.Email)
	assert.Equal(t, "Not provided", card.InsuranceID)
	assert.True(t, card.HasAddress)
	assert.Equal(t, "1 Rue, Paris, IDF 75001", card.Address)
}

func TestNewPatientCardEmptyAddress(t *testing.T) {
	card := NewPatientCard(models.Patient{Address: &models.Address{}})

	assert.False(t, card.HasAddress)
	assert.Empty(t, card.Initials)
}

func TestNewPatientCardFromDraftAddress(t *testing.T) {
	d := models.EmptyDraft()
	d.FirstName, d.LastName = "Sam", "Lee"
	assert.False(t, NewPatientCard(d.ToPatient("a")).HasAddress)

	d.Address.City = "Portland"
	card := NewPatientCard(d.ToPatient("b"))
	assert.True(t, card.HasAddress)
	assert.Contains(t, card.Address, "Portland")
}

func TestFooterContent(t *testing.T) {
	footer := NewFooter()

	assert.NotEmpty(t, footer.Title)
	assert.Len(t, footer.Partners, 3)
	assert.Equal(t, "SMART on FHIR", footer.Partners[1].Label)
	assert.Contains(t, footer.Compliance, "HIPAA Compliant")
}
