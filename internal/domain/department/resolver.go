package department

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Observer receives resolution signals. The metrics package implements it.
type Observer interface {
	DepartmentFallback(appointmentType, code string)
	PayloadRejected(variant Variant, field string)
}

type nopObserver struct{}

func (nopObserver) DepartmentFallback(string, string) {}
func (nopObserver) PayloadRejected(Variant, string) {}

// Validated is the output of ResolveAndValidate.
type Validated struct {
	Payload  Payload   `json:"payload"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Resolver dispatches an appointment to its department code and validator.
type Resolver struct {
	logger     zerolog.Logger
	observer   Observer
	validators map[Code]Validator
	general    Validator
}

func NewResolver(logger zerolog.Logger, observer Observer) *Resolver {
	if observer == nil {
		observer = nopObserver{}
	}
	general := NewGeneralValidator()
	return &Resolver{
		logger:   logger,
		observer: observer,
		general:  general,
		validators: map[Code]Validator{
			CodeGeneral:       general,
			CodeEmergency:     NewEmergencyValidator(),
			CodePhysiotherapy: NewPhysiotherapyValidator(),
			CodeLaboratory:    NewLaboratoryValidator(),
			CodeImaging:       NewImagingValidator(),
		},
	}
}

// ResolveDepartmentCode never fails: unmapped types land on MG and a warning
// is logged.
func (r *Resolver) ResolveDepartmentCode(appointmentType, explicitCode string) Code {
	code, fellBack := ResolveCode(appointmentType, explicitCode)
	if fellBack {
		r.logger.Warn().
			Str("appointment_type", appointmentType).
			Str("department_code", string(code)).
			Msg("department fallback: unmapped appointment type")
		r.observer.DepartmentFallback(appointmentType, string(code))
	}
	return code
}

// SelectValidator returns the validator registered for code, or the general
// validator when code has none.
func (r *Resolver) SelectValidator(code Code) Validator {
	if v, ok := r.validators[code]; ok {
		return v
	}
	r.logger.Warn().
		Str("department_code", string(code)).
		Msg("department fallback: unknown department code, using general payload")
	r.observer.DepartmentFallback("", string(code))
	return r.general
}

// ResolveAndValidate picks the validator for the appointment and normalizes
// raw over existing. An existing payload of a different variant is discarded.
func (r *Resolver) ResolveAndValidate(appointmentType, explicitCode string, raw json.RawMessage, existing *Payload) (*Validated, error) {
	code := r.ResolveDepartmentCode(appointmentType, explicitCode)
	v := r.SelectValidator(code)

	var prior Data
	if existing != nil && existing.Data != nil {
		if existing.Data.Variant() == v.Variant() {
			prior = existing.Data
		} else {
			r.logger.Debug().
				Str("from", string(existing.Data.Variant())).
				Str("to", string(v.Variant())).
				Msg("discarding payload of previous department")
		}
	}

	data, warnings, err := v.Normalize(raw, prior)
	if err != nil {
		if pe, ok := err.(*InvalidPayloadError); ok {
			r.observer.PayloadRejected(v.Variant(), pe.Field)
		}
		return nil, err
	}
	return &Validated{Payload: Payload{Code: code, Data: data}, Warnings: warnings}, nil
}
