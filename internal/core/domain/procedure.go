package domain

import "strings"

const unknownDescription = "Unknown"

// ProcedureCategory classifies the surgical procedure a document covers.
type ProcedureCategory string

// Available procedure categories.
const (
	ProcedureGeneralSurgery   ProcedureCategory = "general_surgery"
	ProcedureOrthopedic       ProcedureCategory = "orthopedic"
	ProcedureCardiac          ProcedureCategory = "cardiac"
	ProcedureNeurological     ProcedureCategory = "neurological"
	ProcedurePlasticSurgery   ProcedureCategory = "plastic_surgery"
	ProcedureDental           ProcedureCategory = "dental"
	ProcedureOphthalmic       ProcedureCategory = "ophthalmic"
	ProcedureGastrointestinal ProcedureCategory = "gastrointestinal"
	ProcedureUrological       ProcedureCategory = "urological"
	ProcedureGynecological    ProcedureCategory = "gynecological"
	ProcedureENT              ProcedureCategory = "ent"
	ProcedureVascular         ProcedureCategory = "vascular"
	ProcedureUnknown          ProcedureCategory = "unknown"
)

// AllProcedureCategories returns every category including unknown.
func AllProcedureCategories() []ProcedureCategory {
	return []ProcedureCategory{
		ProcedureGeneralSurgery,
		ProcedureOrthopedic,
		ProcedureCardiac,
		ProcedureNeurological,
		ProcedurePlasticSurgery,
		ProcedureDental,
		ProcedureOphthalmic,
		ProcedureGastrointestinal,
		ProcedureUrological,
		ProcedureGynecological,
		ProcedureENT,
		ProcedureVascular,
		ProcedureUnknown,
	}
}

// IsValid returns true if the category is recognised.
func (c ProcedureCategory) IsValid() bool {
	for _, known := range AllProcedureCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (c ProcedureCategory) String() string {
	return string(c)
}

// Description returns a human-readable label.
func (c ProcedureCategory) Description() string {
	switch c {
	case ProcedureGeneralSurgery:
		return "General Surgery"
	case ProcedureOrthopedic:
		return "Orthopedic"
	case ProcedureCardiac:
		return "Cardiac"
	case ProcedureNeurological:
		return "Neurological"
	case ProcedurePlasticSurgery:
		return "Plastic Surgery"
	case ProcedureDental:
		return "Dental"
	case ProcedureOphthalmic:
		return "Ophthalmic"
	case ProcedureGastrointestinal:
		return "Gastrointestinal"
	case ProcedureUrological:
		return "Urological"
	case ProcedureGynecological:
		return "Gynecological"
	case ProcedureENT:
		return "Ear, Nose and Throat"
	case ProcedureVascular:
		return "Vascular"
	default:
		return unknownDescription
	}
}

// ParseProcedureCategory converts user input into a category.
func ParseProcedureCategory(s string) (ProcedureCategory, error) {
	c := ProcedureCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidInput
	}
	return c, nil
}

// ProcedureMatch pairs a category with its confidence.
type ProcedureMatch struct {
	Category   ProcedureCategory
	Confidence float64
}

// ProcedureDetails holds structured facts pulled from procedure text.
type ProcedureDetails struct {
	// Name is the first recognised procedure name, title-cased.
	Name string

	// BodyPart is the first body part mentioned, with laterality when stated.
	BodyPart string

	// Approach is the surgical approach (minimally_invasive, open, robotic, percutaneous).
	Approach string

	// Implants lists implant terms found in the text.
	Implants []string

	// Complexity is complex, moderate, simple or standard.
	Complexity string
}

// QualityTier grades document content.
type QualityTier string

// Available quality tiers.
const (
	QualityHigh       QualityTier = "high"
	QualityMedium     QualityTier = "medium"
	QualityLow        QualityTier = "low"
	QualityUnassessed QualityTier = "unassessed"
)

// IsValid returns true if the tier is recognised.
func (q QualityTier) IsValid() bool {
	switch q {
	case QualityHigh, QualityMedium, QualityLow, QualityUnassessed:
		return true
	default:
		return false
	}
}

// Weight maps a tier onto the numeric factor used by confidence scoring.
func (q QualityTier) Weight() float64 {
	switch q {
	case QualityHigh:
		return 1.0
	case QualityMedium:
		return 0.6
	default:
		return 0.3
	}
}
