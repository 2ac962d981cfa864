package models

import (
	"strings"
	"time"
)

// Medication is one entry of the user's medication list as returned by
// GET /user-medications.
type Medication struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	NameAr           string    `json:"name_ar,omitempty"`
	ActiveIngredient string    `json:"active_ingredient"`
	Dosage           string    `json:"dosage"`
	Frequency        string    `json:"frequency,omitempty"`
	Times            []string  `json:"times,omitempty"`
	StartDate        time.Time `json:"start_date"`
	Archived         bool      `json:"archived"`
	Notes            string    `json:"notes,omitempty"`

	// Catalog enrichment, filled in after a best-effort catalog lookup.
	PackageSize  string  `json:"package_size,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	Price        float64 `json:"price,omitempty"`
}

// DisplayName picks the bilingual name for lang, falling back to Name.
func (m Medication) DisplayName(lang string) string {
	if lang == "ar" && strings.TrimSpace(m.NameAr) != "" {
		return m.NameAr
	}
	return m.Name
}

// InteractionKey is the identifier submitted for interaction analysis:
// the active ingredient, or the display name when the ingredient is unknown.
func (m Medication) InteractionKey() string {
	if k := strings.TrimSpace(m.ActiveIngredient); k != "" {
		return k
	}
	return strings.TrimSpace(m.Name)
}

// ActiveOnly filters out archived medications.
func ActiveOnly(list []Medication) []Medication {
	out := make([]Medication, 0, len(list))
	for _, m := range list {
		if !m.Archived {
			out = append(out, m)
		}
	}
	return out
}

// NewMedication is the body of POST /user-medications.
type NewMedication struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	NameAr           string   `json:"name_ar,omitempty"`
	ActiveIngredient string   `json:"active_ingredient"`
	Dosage           string   `json:"dosage"`
	Frequency        string   `json:"frequency,omitempty"`
	Times            []string `json:"times,omitempty"`
	StartDate        string   `json:"start_date"`
	Notes            string   `json:"notes,omitempty"`
	PackageSize      string   `json:"package_size,omitempty"`
	Manufacturer     string   `json:"manufacturer,omitempty"`
	Price            float64  `json:"price,omitempty"`
	Source           string   `json:"source,omitempty"`
}
