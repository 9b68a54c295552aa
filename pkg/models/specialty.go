package models

// Specialty identifies one of the discussion roles. The zero value is invalid.
type Specialty string

const (
	SpecialtyPulmonology  Specialty = "pulmonology"
	SpecialtyRadiology    Specialty = "radiology"
	SpecialtyPathology    Specialty = "pathology"
	SpecialtyRheumatology Specialty = "rheumatology"
	SpecialtyDataAnalysis Specialty = "data_analysis"
	SpecialtyCoordinator  Specialty = "coordinator"
)

// Specialists lists the discussion roles excluding the coordinator, in the
// order they appear in session output.
func Specialists() []Specialty {
	return []Specialty{
		SpecialtyPulmonology,
		SpecialtyRadiology,
		SpecialtyPathology,
		SpecialtyRheumatology,
		SpecialtyDataAnalysis,
	}
}

// DisplayName returns the human-readable role name.
func (s Specialty) DisplayName() string {
	switch s {
	case SpecialtyPulmonology:
		return "Pulmonologist"
	case SpecialtyRadiology:
		return "Radiologist"
	case SpecialtyPathology:
		return "Pathologist"
	case SpecialtyRheumatology:
		return "Rheumatologist"
	case SpecialtyDataAnalysis:
		return "Data Analyst"
	case SpecialtyCoordinator:
		return "MDT Coordinator"
	default:
		return string(s)
	}
}

// Valid reports whether s names a known role.
func (s Specialty) Valid() bool {
	switch s {
	case SpecialtyPulmonology, SpecialtyRadiology, SpecialtyPathology,
		SpecialtyRheumatology, SpecialtyDataAnalysis, SpecialtyCoordinator:
		return true
	}
	return false
}

// ParseSpecialty resolves a key or display name to a Specialty. It accepts
// both forms so front ends can pass whichever they render.
func ParseSpecialty(name string) (Specialty, bool) {
	if s := Specialty(name); s.Valid() {
		return s, true
	}
	for _, s := range append(Specialists(), SpecialtyCoordinator) {
		if s.DisplayName() == name {
			return s, true
		}
	}
	return "", false
}
