package models

// Address is the postal address embedded in a patient record
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// IsZero reports whether every address field is empty
func (a Address) IsZero() bool {
	return a == Address{}
}

// Patient is a stored patient record. ID is assigned by the data service.
type Patient struct {
	ID          string   `json:"id"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	DateOfBirth string   `json:"dateOfBirth"`
	Gender      string   `json:"gender"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Address     *Address `json:"address,omitempty"`
	MRN         string   `json:"mrn"`
	InsuranceID string   `json:"insuranceId,omitempty"`
}

// FullName returns "First Last"
func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Genders lists the values offered by the add-patient form
var Genders = []string{"Male", "Female", "Other"}
