package models

// Candidate is the structured output of image recognition.
type Candidate struct {
	Name             string   `json:"name"`
	NameAr           string   `json:"name_ar,omitempty"`
	ActiveIngredient string   `json:"active_ingredient"`
	Dosage           string   `json:"dosage"`
	Frequency        string   `json:"frequency,omitempty"`
	Times            []string `json:"times,omitempty"`
	Classification   string   `json:"classification,omitempty"`
	TimingNotes      string   `json:"timing_notes,omitempty"`
	PackageSize      string   `json:"package_size,omitempty"`
	Manufacturer     string   `json:"manufacturer,omitempty"`
	Price            float64  `json:"price,omitempty"`
}

// RecognitionResult is the response of POST /medications/recognize.
// AutoCommit is the service's own confidence that the candidate can be
// saved without asking the user.
type RecognitionResult struct {
	AutoCommit bool `json:"auto_commit"`
	Candidate
}

// ToNewMedication builds the create body for c.
func (c Candidate) ToNewMedication(id, startDate, source string) NewMedication {
	return NewMedication{
		ID:               id,
		Name:             c.Name,
		NameAr:           c.NameAr,
		ActiveIngredient: c.ActiveIngredient,
		Dosage:           c.Dosage,
		Frequency:        c.Frequency,
		Times:            c.Times,
		StartDate:        startDate,
		Notes:            c.TimingNotes,
		PackageSize:      c.PackageSize,
		Manufacturer:     c.Manufacturer,
		Price:            c.Price,
		Source:           source,
	}
}

// Image is a captured or picked photo ready for upload.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}
