package views

// Link is an outbound link in the footer
type Link struct {
	Label string
	URL   string
}

// Footer is the static footer shown on every page
type Footer struct {
	Title       string
	Description string
	Partners    []Link
	Compliance  []string
	Copyright   string
	DemoNotice  string
	TechStack   []string
}

// NewFooter returns the footer content
func NewFooter() Footer {
	return Footer{
		Title:       "smartData Healthcare Integration",
		Description: "Professional healthcare data integration powered by SMART on FHIR standards",
		Partners: []Link{
			{Label: "FHIR R4", URL: "https://www.hl7.org/fhir/"},
			{Label: "SMART on FHIR", URL: "https://smarthealthit.org/"},
			{Label: "Epic Sandbox", URL: "https://fhir.epic.com/"},
		},
		Compliance: []string{"HIPAA Compliant", "OAuth 2.0"},
		Copyright:  "© 2024 smartData Healthcare Solutions. All rights reserved.",
		DemoNotice: "This is a proof-of-concept demonstration using Epic's FHIR Sandbox environment",
		TechStack:  []string{"Go", "Couchbase", "FHIR R4"},
	}
}
