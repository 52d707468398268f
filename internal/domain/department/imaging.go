package department

import (
	"encoding/json"
	"strings"
)

type ImagingValidator struct{}

func NewImagingValidator() *ImagingValidator { return &ImagingValidator{} }

func (v *ImagingValidator) Variant() Variant { return VariantImaging }

func (v *ImagingValidator) Normalize(raw json.RawMessage, existing Data) (Data, []Warning, error) {
	d := &ImagingData{}
	if err := mergeInto(d, raw, existing); err != nil {
		return nil, nil, err
	}

	d.ImagingType = strings.ToLower(strings.TrimSpace(d.ImagingType))
	if d.ImagingType == "" {
		d.ImagingType = "xray"
	}
	d.BodyPart = strings.TrimSpace(d.BodyPart)
	d.SpecificRegion = trimPtr(d.SpecificRegion)
	d.ContrastType = trimPtr(d.ContrastType)
	d.ContrastDose = trimPtr(d.ContrastDose)
	d.LastMenstrualPeriod = trimPtr(d.LastMenstrualPeriod)
	d.PreProcedureInstructions = trimPtr(d.PreProcedureInstructions)

	if err := checkFields(d); err != nil {
		return nil, nil, err
	}
	if d.ContrastRequired {
		if d.ContrastType == nil {
			return nil, nil, &InvalidPayloadError{Field: "contrastType", Reason: "is required when contrastRequired is true"}
		}
		if d.ContrastDose == nil {
			return nil, nil, &InvalidPayloadError{Field: "contrastDose", Reason: "is required when contrastRequired is true"}
		}
	}
	if d.PregnancyRisk && d.LastMenstrualPeriod == nil {
		return nil, nil, &InvalidPayloadError{Field: "lastMenstrualPeriod", Reason: "is required when pregnancyRisk is true"}
	}

	var warnings []Warning
	if !d.ContrastRequired && (d.ContrastType != nil || d.ContrastDose != nil) {
		warnings = append(warnings, Warning{Field: "contrastRequired", Message: "contrast details given but contrast is not required"})
	}
	return d, warnings, nil
}
