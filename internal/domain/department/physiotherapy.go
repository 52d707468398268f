package department

import (
	"encoding/json"
	"strings"
)

const defaultSessionMinutes = 60

type PhysiotherapyValidator struct{}

func NewPhysiotherapyValidator() *PhysiotherapyValidator { return &PhysiotherapyValidator{} }

func (v *PhysiotherapyValidator) Variant() Variant { return VariantPhysiotherapy }

func (v *PhysiotherapyValidator) Normalize(raw json.RawMessage, existing Data) (Data, []Warning, error) {
	d := &PhysiotherapyData{}
	if err := mergeInto(d, raw, existing); err != nil {
		return nil, nil, err
	}

	if d.SessionType == "" {
		d.SessionType = SessionTreatment
	}
	d.SessionType = SessionType(strings.ToLower(string(d.SessionType)))
	if d.BodyRegion == nil {
		d.BodyRegion = []BodyRegion{}
	}
	if d.Techniques == nil {
		d.Techniques = []Technique{}
	}
	if d.EstimatedDuration == 0 {
		d.EstimatedDuration = defaultSessionMinutes
	}
	d.TherapistNotes = trimPtr(d.TherapistNotes)

	if err := intRange("painLevel", d.PainLevel, 0, 10); err != nil {
		return nil, nil, err
	}
	if err := checkFields(d); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	if d.SessionType.CountsTowardPlan() && len(d.BodyRegion) == 0 {
		warnings = append(warnings, Warning{Field: "bodyRegion", Message: "treatment session has no body region"})
	}
	return d, warnings, nil
}
