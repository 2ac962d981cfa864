package models

import "strings"

// CatalogItem is one row of GET /sfda-medications/search.
type CatalogItem struct {
	ID                 string  `json:"id"`
	TradeName          string  `json:"trade_name"`
	TradeNameAr        string  `json:"trade_name_ar,omitempty"`
	ScientificName     string  `json:"scientific_name"`
	Strength           string  `json:"strength"`
	StrengthUnit       string  `json:"strength_unit,omitempty"`
	PackageSize        string  `json:"package_size,omitempty"`
	Manufacturer       string  `json:"manufacturer,omitempty"`
	Price              float64 `json:"price,omitempty"`
	PharmaceuticalForm string  `json:"pharmaceutical_form,omitempty"`
}

// Dosage joins strength and unit, e.g. "500" + "mg".
func (c CatalogItem) Dosage() string {
	s := strings.TrimSpace(c.Strength)
	u := strings.TrimSpace(c.StrengthUnit)
	if u == "" || strings.HasSuffix(strings.ToLower(s), strings.ToLower(u)) {
		return s
	}
	return s + u
}

// ToCandidate maps a catalog row onto the candidate shape used by the
// admission gate.
func (c CatalogItem) ToCandidate() Candidate {
	return Candidate{
		Name:             c.TradeName,
		NameAr:           c.TradeNameAr,
		ActiveIngredient: c.ScientificName,
		Dosage:           c.Dosage(),
		PackageSize:      c.PackageSize,
		Manufacturer:     c.Manufacturer,
		Price:            c.Price,
	}
}

// Enrich backfills empty display fields of c from the catalog row.
func (c Candidate) Enrich(item CatalogItem) Candidate {
	if c.NameAr == "" {
		c.NameAr = item.TradeNameAr
	}
	if c.ActiveIngredient == "" {
		c.ActiveIngredient = item.ScientificName
	}
	if c.PackageSize == "" {
		c.PackageSize = item.PackageSize
	}
	if c.Manufacturer == "" {
		c.Manufacturer = item.Manufacturer
	}
	if c.Price == 0 {
		c.Price = item.Price
	}
	return c
}
