package department

import (
	"encoding/json"
	"strings"
)

// GeneralValidator handles MG, EM and any code without a dedicated validator.
type GeneralValidator struct {
	defaultVisitType string
	defaultPriority  string
}

func NewGeneralValidator() *GeneralValidator {
	return &GeneralValidator{defaultVisitType: "consultation", defaultPriority: "routine"}
}

// NewEmergencyValidator is the general validator with emergency defaults.
func NewEmergencyValidator() *GeneralValidator {
	return &GeneralValidator{defaultVisitType: "emergency", defaultPriority: "emergency"}
}

func (v *GeneralValidator) Variant() Variant { return VariantGeneral }

func (v *GeneralValidator) Normalize(raw json.RawMessage, existing Data) (Data, []Warning, error) {
	d := &GeneralData{}
	if err := mergeInto(d, raw, existing); err != nil {
		return nil, nil, err
	}

	d.VisitType = strings.TrimSpace(d.VisitType)
	if d.VisitType == "" {
		d.VisitType = v.defaultVisitType
	}
	d.Priority = strings.ToLower(strings.TrimSpace(d.Priority))
	if d.Priority == "" {
		d.Priority = v.defaultPriority
	}
	d.ChiefComplaint = trimPtr(d.ChiefComplaint)
	d.Severity = trimPtr(d.Severity)
	d.Notes = trimPtr(d.Notes)

	if err := checkFields(d); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	if d.Priority == "emergency" && d.ChiefComplaint == nil {
		warnings = append(warnings, Warning{Field: "chiefComplaint", Message: "emergency visit without a chief complaint"})
	}
	return d, warnings, nil
}
