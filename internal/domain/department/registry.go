// Package department holds the department schema registry, the dispatch
// resolver and the per-department payload validators. Everything here is pure:
// no I/O, no hidden state, callable from the HTTP API, the CLI or a batch job.
package department

import "strings"

// Code identifies the department that owns an appointment.
type Code string

const (
	CodeGeneral       Code = "MG"
	CodePhysiotherapy Code = "FT"
	CodeLaboratory    Code = "LAB"
	CodeImaging       Code = "IMG"
	CodeEmergency     Code = "EM"
)

// FallbackCode is used for any appointment type without a mapping.
const FallbackCode = CodeGeneral

// Variant is the discriminant of the department-specific payload union.
type Variant string

const (
	VariantGeneral       Variant = "general"
	VariantPhysiotherapy Variant = "physiotherapy"
	VariantLaboratory    Variant = "laboratory"
	VariantImaging       Variant = "imaging"
)

var variantsByCode = map[Code]Variant{
	CodeGeneral:       VariantGeneral,
	CodeEmergency:     VariantGeneral,
	CodePhysiotherapy: VariantPhysiotherapy,
	CodeLaboratory:    VariantLaboratory,
	CodeImaging:       VariantImaging,
}

var codesByAppointmentType = map[string]Code{
	"physiotherapy": CodePhysiotherapy,
	"imaging":       CodeImaging,
	"laboratory":    CodeLaboratory,
	"emergency":     CodeEmergency,
	"surgery":       CodeGeneral,
	"consultation":  CodeGeneral,
	"follow_up":     CodeGeneral,
	"procedure":     CodeGeneral,
}

// ResolveCode maps an appointment type to a department code. A non-empty
// explicit code always wins and is returned unchanged. The second return value
// reports whether the MG fallback was used for an unmapped type.
func ResolveCode(appointmentType, explicitCode string) (Code, bool) {
	if explicitCode != "" {
		return Code(explicitCode), false
	}
	if code, ok := codesByAppointmentType[strings.ToLower(strings.TrimSpace(appointmentType))]; ok {
		return code, false
	}
	return FallbackCode, true
}

// VariantFor returns the payload variant owned by code. Codes without a
// registered variant use the general payload.
func VariantFor(code Code) Variant {
	if v, ok := variantsByCode[code]; ok {
		return v
	}
	return VariantGeneral
}

// IsRegistered reports whether code has an entry in the registry.
func IsRegistered(code Code) bool {
	_, ok := variantsByCode[code]
	return ok
}

// Codes returns every registered department code.
func Codes() []Code {
	return []Code{CodeGeneral, CodePhysiotherapy, CodeLaboratory, CodeImaging, CodeEmergency}
}

// AppointmentTypes returns every appointment type with an explicit mapping.
func AppointmentTypes() []string {
	return []string{"consultation", "follow_up", "emergency", "procedure", "imaging", "laboratory", "surgery", "physiotherapy"}
}
