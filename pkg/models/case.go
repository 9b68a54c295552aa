// Package models contains the core domain types shared across Consilium.
package models

// Case holds the patient case under discussion. All fields are free text as
// entered by the clinician; absent fields are normalized to "N/A" by ParseCase.
type Case struct {
	PatientID       string `json:"patient_id"`
	Symptoms        string `json:"symptoms"`
	MedicalHistory  string `json:"medical_history"`
	ImagingResults  string `json:"imaging_results"`
	LabResults      string `json:"lab_results"`
	PathologyResult string `json:"pathology_results"`
	AdditionalInfo  string `json:"additional_info"`
}

// ParseCase fills empty fields with "N/A" so prompt templates never render
// blank sections.
func ParseCase(c Case) Case {
	fill := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	return Case{
		PatientID:       fill(c.PatientID),
		Symptoms:        fill(c.Symptoms),
		MedicalHistory:  fill(c.MedicalHistory),
		ImagingResults:  fill(c.ImagingResults),
		LabResults:      fill(c.LabResults),
		PathologyResult: fill(c.PathologyResult),
		AdditionalInfo:  fill(c.AdditionalInfo),
	}
}

// Summary renders the case as the block of labelled lines used in prompts.
func (c Case) Summary() string {
	p := ParseCase(c)
	return "Patient ID: " + p.PatientID + "\n" +
		"Chief complaint: " + p.Symptoms + "\n" +
		"Medical history: " + p.MedicalHistory + "\n" +
		"Imaging: " + p.ImagingResults + "\n" +
		"Laboratory: " + p.LabResults + "\n" +
		"Pathology: " + p.PathologyResult + "\n" +
		"Additional: " + p.AdditionalInfo
}
