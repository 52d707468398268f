package department

import (
	"encoding/json"
	"fmt"
)

// Data is one variant of the department-specific payload. The set of
// implementations is closed to this package.
type Data interface {
	Variant() Variant
	isData()
}

// Payload is the tagged department_specific_data stored on an appointment.
type Payload struct {
	Code Code
	Data Data
}

type payloadEnvelope struct {
	Code    Code            `json:"department_code"`
	Variant Variant         `json:"variant"`
	Data    json.RawMessage `json:"data"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Data == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadEnvelope{Code: p.Code, Variant: p.Data.Variant(), Data: data})
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Payload{}
		return nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	d, err := newData(env.Variant)
	if err != nil {
		return err
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, d); err != nil {
			return fmt.Errorf("decode %s payload: %w", env.Variant, err)
		}
	}
	p.Code = env.Code
	p.Data = d
	return nil
}

// IsZero reports whether the payload carries no data.
func (p Payload) IsZero() bool { return p.Data == nil }

// Variant returns the discriminant of the carried data.
func (p Payload) Variant() Variant {
	if p.Data == nil {
		return ""
	}
	return p.Data.Variant()
}

// CheckShape verifies the carried data matches the variant the registry assigns
// to the payload's department code.
func (p Payload) CheckShape() error {
	if p.Data == nil {
		return &InvalidPayloadError{Field: "department_specific_data", Reason: "payload is missing"}
	}
	if want := VariantFor(p.Code); p.Data.Variant() != want {
		return &InvalidPayloadError{
			Field:  "department_specific_data",
			Reason: fmt.Sprintf("department %s requires a %s payload, got %s", p.Code, want, p.Data.Variant()),
		}
	}
	return nil
}

func (p Payload) General() (*GeneralData, bool) {
	d, ok := p.Data.(*GeneralData)
	return d, ok
}

func (p Payload) Physiotherapy() (*PhysiotherapyData, bool) {
	d, ok := p.Data.(*PhysiotherapyData)
	return d, ok
}

func (p Payload) Laboratory() (*LaboratoryData, bool) {
	d, ok := p.Data.(*LaboratoryData)
	return d, ok
}

func (p Payload) Imaging() (*ImagingData, bool) {
	d, ok := p.Data.(*ImagingData)
	return d, ok
}

func newData(v Variant) (Data, error) {
	switch v {
	case VariantGeneral:
		return &GeneralData{}, nil
	case VariantPhysiotherapy:
		return &PhysiotherapyData{}, nil
	case VariantLaboratory:
		return &LaboratoryData{}, nil
	case VariantImaging:
		return &ImagingData{}, nil
	}
	return nil, fmt.Errorf("unknown payload variant %q", v)
}

// -- General --

type GeneralData struct {
	VisitType      string  `json:"visitType" validate:"required,oneof=consultation follow_up emergency procedure surgery check_up"`
	Priority       string  `json:"priority" validate:"required,oneof=routine urgent emergency"`
	ChiefComplaint *string `json:"chiefComplaint,omitempty"`
	Severity       *string `json:"severity,omitempty" validate:"omitempty,oneof=mild moderate severe critical"`
	Notes          *string `json:"notes,omitempty"`
}

func (*GeneralData) Variant() Variant { return VariantGeneral }
func (*GeneralData) isData() {}

// -- Physiotherapy --

type BodyRegion string

type Technique string

type SessionType string

const (
	SessionEvaluation   SessionType = "evaluation"
	SessionTreatment    SessionType = "treatment"
	SessionReevaluation SessionType = "reevaluation"
	SessionDischarge    SessionType = "discharge"
)

// CountsTowardPlan reports whether a completed session of this type advances
// a treatment plan.
func (s SessionType) CountsTowardPlan() bool {
	return s == SessionTreatment
}

type PhysiotherapyData struct {
	BodyRegion        []BodyRegion `json:"bodyRegion" validate:"dive,oneof=head cervical thoracic lumbar sacral shoulder elbow wrist hand hip knee ankle foot pelvis other"`
	PainLevel         int          `json:"painLevel"`
	Techniques        []Technique  `json:"techniques" validate:"dive,oneof=manual_therapy therapeutic_exercise electrotherapy ultrasound heat cryotherapy dry_needling kinesio_taping traction hydrotherapy massage other"`
	SessionNumber     *int         `json:"sessionNumber,omitempty" validate:"omitempty,min=1"`
	SessionType       SessionType  `json:"sessionType" validate:"required,oneof=evaluation treatment reevaluation discharge"`
	EstimatedDuration int          `json:"estimatedDuration" validate:"min=1,max=480"`
	TherapistNotes    *string      `json:"therapistNotes,omitempty"`
}

func (*PhysiotherapyData) Variant() Variant { return VariantPhysiotherapy }
func (*PhysiotherapyData) isData() {}

// -- Laboratory --

type LabTest struct {
	TestID   string `json:"testId" validate:"required"`
	TestName string `json:"testName" validate:"required"`
}

type LaboratoryData struct {
	SampleType              string    `json:"sampleType" validate:"required,oneof=blood urine stool saliva swab tissue csf sputum other"`
	Tests                   []LabTest `json:"tests" validate:"dive"`
	Priority                string    `json:"priority" validate:"required,oneof=routine urgent stat"`
	RequiresFasting         bool      `json:"requiresFasting"`
	FastingHours            *int      `json:"fastingHours,omitempty"`
	PreparationInstructions *string   `json:"preparationInstructions,omitempty"`
}

func (*LaboratoryData) Variant() Variant { return VariantLaboratory }
func (*LaboratoryData) isData() {}

// -- Imaging --

type ImagingData struct {
	ImagingType              string  `json:"imagingType" validate:"required,oneof=xray ct mri ultrasound mammography fluoroscopy nuclear_medicine pet densitometry"`
	BodyPart                 string  `json:"bodyPart" validate:"required"`
	SpecificRegion           *string `json:"specificRegion,omitempty"`
	ContrastRequired         bool    `json:"contrastRequired"`
	ContrastType             *string `json:"contrastType,omitempty"`
	ContrastDose             *string `json:"contrastDose,omitempty"`
	PregnancyRisk            bool    `json:"pregnancyRisk"`
	LastMenstrualPeriod      *string `json:"lastMenstrualPeriod,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PreProcedureInstructions *string `json:"preProcedureInstructions,omitempty"`
}

func (*ImagingData) Variant() Variant { return VariantImaging }
func (*ImagingData) isData() {}
