package models

// Severity of a drug pair interaction.
type Severity string

const (
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// InteractionDrug is one entry of the POST /check-drug-interactions body.
type InteractionDrug struct {
	Name             string `json:"name"`
	ActiveIngredient string `json:"active_ingredient,omitempty"`
}

// InteractionRequest is the body of POST /check-drug-interactions.
type InteractionRequest struct {
	Medications []InteractionDrug `json:"medications"`
	Language    string            `json:"language"`
}

// Interaction is a single severity-classified pair.
type Interaction struct {
	DrugA          string   `json:"drug_a"`
	DrugB          string   `json:"drug_b"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// InteractionReport is the analysis response.
type InteractionReport struct {
	Interactions []Interaction `json:"interactions"`
	Summary      string        `json:"summary,omitempty"`
}
