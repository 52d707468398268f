package department

import (
	"encoding/json"
	"strings"
)

const (
	minFastingHours = 4
	maxFastingHours = 24
)

type LaboratoryValidator struct{}

func NewLaboratoryValidator() *LaboratoryValidator { return &LaboratoryValidator{} }

func (v *LaboratoryValidator) Variant() Variant { return VariantLaboratory }

func (v *LaboratoryValidator) Normalize(raw json.RawMessage, existing Data) (Data, []Warning, error) {
	d := &LaboratoryData{}
	if err := mergeInto(d, raw, existing); err != nil {
		return nil, nil, err
	}

	d.SampleType = strings.ToLower(strings.TrimSpace(d.SampleType))
	if d.SampleType == "" {
		d.SampleType = "blood"
	}
	d.Priority = strings.ToLower(strings.TrimSpace(d.Priority))
	if d.Priority == "" {
		d.Priority = "routine"
	}
	if d.Tests == nil {
		d.Tests = []LabTest{}
	}
	for i := range d.Tests {
		d.Tests[i].TestID = strings.TrimSpace(d.Tests[i].TestID)
		d.Tests[i].TestName = strings.TrimSpace(d.Tests[i].TestName)
	}
	d.PreparationInstructions = trimPtr(d.PreparationInstructions)

	if err := checkFields(d); err != nil {
		return nil, nil, err
	}
	if d.RequiresFasting {
		if d.FastingHours == nil {
			return nil, nil, &InvalidPayloadError{Field: "fastingHours", Reason: "is required when requiresFasting is true"}
		}
		if err := intRange("fastingHours", *d.FastingHours, minFastingHours, maxFastingHours); err != nil {
			return nil, nil, err
		}
	}

	var warnings []Warning
	if len(d.Tests) == 0 {
		warnings = append(warnings, Warning{Field: "tests", Message: "no tests ordered; appointment is not billable or actionable"})
	}
	return d, warnings, nil
}
