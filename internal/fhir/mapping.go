package fhir

import (
	"strings"

	"stealthcompany.com/patientrecords/internal/models"
)

// Identifier type codes from the HL7 v2-0203 table
const (
	identifierTypeMRN       = "MR"
	identifierTypeInsurance = "MB"
	identifierTypeSystem    = "http://terminology.hl7.org/CodeSystem/v2-0203"
)

// PatientResource is the subset of the FHIR R4 Patient resource the portal reads and writes
type PatientResource struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id,omitempty"`
	Identifier   []Identifier   `json:"identifier,omitempty"`
	Name         []HumanName    `json:"name,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
	Gender       string         `json:"gender,omitempty"`
	BirthDate    string         `json:"birthDate,omitempty"`
	Address      []Address      `json:"address,omitempty"`
}

type Identifier struct {
	Type  *CodeableConcept `json:"type,omitempty"`
	Value string           `json:"value,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Coding struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
}

type HumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type Address struct {
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
}

// ToPatient maps the resource onto the portal's patient record
func (r PatientResource) ToPatient() models.Patient {
	p := models.Patient{
		ID:          r.ID,
		DateOfBirth: r.BirthDate,
		Gender:      displayGender(r.Gender),
	}

	if len(r.Name) > 0 {
		p.LastName = r.Name[0].Family
		p.FirstName = strings.Join(r.Name[0].Given, " ")
	}

	for _, id := range r.Identifier {
		switch id.typeCode() {
		case identifierTypeMRN:
			p.MRN = id.Value
		case identifierTypeInsurance:
			p.InsuranceID = id.Value
		}
	}

	for _, t := range r.Telecom {
		switch t.System {
		case "phone":
			if p.Phone == "" {
				p.Phone = t.Value
			}
		case "email":
			if p.Email == "" {
				p.Email = t.Value
			}
		}
	}

	if len(r.Address) > 0 {
		a := r.Address[0]
		addr := &models.Address{
			City:  a.City,
			State: a.State,
			Zip:   a.PostalCode,
		}
		if len(a.Line) > 0 {
			addr.Street = a.Line[0]
		}
		p.Address = addr
	}

	return p
}

// ToResource maps a patient record onto a FHIR Patient resource
func ToResource(p models.Patient) PatientResource {
	r := PatientResource{
		ResourceType: "Patient",
		ID:           p.ID,
		Gender:       strings.ToLower(p.Gender),
		BirthDate:    p.DateOfBirth,
	}

	if p.FirstName != "" || p.LastName != "" {
		name := HumanName{Family: p.LastName}
		if p.FirstName != "" {
			name.Given = []string{p.FirstName}
		}
		r.Name = []HumanName{name}
	}

	if p.MRN != "" {
		r.Identifier = append(r.Identifier, newIdentifier(identifierTypeMRN, p.MRN))
	}
	if p.InsuranceID != "" {
		r.Identifier = append(r.Identifier, newIdentifier(identifierTypeInsurance, p.InsuranceID))
	}

	if p.Phone != "" {
		r.Telecom = append(r.Telecom, ContactPoint{System: "phone", Value: p.Phone})
	}
	if p.Email != "" {
		r.Telecom = append(r.Telecom, ContactPoint{System: "email", Value: p.Email})
	}

	if p.Address != nil && !p.Address.IsZero() {
		a := Address{
			City:       p.Address.City,
			State:      p.Address.State,
			PostalCode: p.Address.Zip,
		}
		if p.Address.Street != "" {
			a.Line = []string{p.Address.Street}
		}
		r.Address = []Address{a}
	}

	return r
}

func newIdentifier(code, value string) Identifier {
	return Identifier{
		Type: &CodeableConcept{
			Coding: []Coding{{System: identifierTypeSystem, Code: code}},
		},
		Value: value,
	}
}

func (id Identifier) typeCode() string {
	if id.Type == nil {
		return ""
	}
	for _, c := range id.Type.Coding {
		if c.Code != "" {
			return c.Code
		}
	}
	return ""
}

// displayGender turns the FHIR administrative gender code into the portal's label
func displayGender(code string) string {
	switch code {
	case "male":
		return "Male"
	case "female":
		return "Female"
	case "other":
		return "Other"
	case "", "unknown":
		return ""
	default:
		return code
	}
}
