package department

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func normalize(t *testing.T, v Validator, raw string, existing Data) (Data, []Warning, error) {
	t.Helper()
	var r json.RawMessage
	if raw != "" {
		r = json.RawMessage(raw)
	}
	return v.Normalize(r, existing)
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var pe *InvalidPayloadError
	if !errors.As(err, &pe) {
		t.Fatalf("expected InvalidPayloadError, got %v", err)
	}
	return pe.Field
}

// -- fixed point --

func TestNormalize_FixedPoint(t *testing.T) {
	cases := []struct {
		name string
		v    Validator
		raw  string
	}{
		{"general", NewGeneralValidator(), `{"chiefComplaint":"  cough ","severity":"mild"}`},
		{"emergency", NewEmergencyValidator(), `{}`},
		{"physiotherapy", NewPhysiotherapyValidator(), `{"bodyRegion":["knee"],"painLevel":6,"techniques":["manual_therapy"]}`},
		{"laboratory", NewLaboratoryValidator(), `{"tests":[{"testId":"glu","testName":" Glucose "}],"requiresFasting":true,"fastingHours":8}`},
		{"imaging", NewImagingValidator(), `{"imagingType":"CT","bodyPart":"abdomen","contrastRequired":true,"contrastType":"iodine","contrastDose":"100ml"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, _, err := normalize(t, tc.v, tc.raw, nil)
			if err != nil {
				t.Fatalf("first normalize: %v", err)
			}
			again, _, err := tc.v.Normalize(nil, first)
			if err != nil {
				t.Fatalf("second normalize: %v", err)
			}
			if !reflect.DeepEqual(first, again) {
				t.Errorf("normalize is not a fixed point:\nfirst: %+v\nagain: %+v", first, again)
			}

			b, _ := json.Marshal(first)
			fromJSON, _, err := tc.v.Normalize(b, nil)
			if err != nil {
				t.Fatalf("normalize of encoded payload: %v", err)
			}
			if !reflect.DeepEqual(first, fromJSON) {
				t.Errorf("normalize(encode(x)) differs:\nfirst: %+v\nagain: %+v", first, fromJSON)
			}
		})
	}
}

// -- merge semantics --

func TestNormalize_ArraysReplacedNotConcatenated(t *testing.T) {
	v := NewPhysiotherapyValidator()
	existing, _, err := normalize(t, v, `{"bodyRegion":["knee","hip"],"techniques":["heat"]}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	merged, _, err := normalize(t, v, `{"bodyRegion":["shoulder"]}`, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := merged.(*PhysiotherapyData)
	if len(d.BodyRegion) != 1 || d.BodyRegion[0] != "shoulder" {
		t.Errorf("expected bodyRegion replaced with [shoulder], got %v", d.BodyRegion)
	}
	if len(d.Techniques) != 1 || d.Techniques[0] != "heat" {
		t.Errorf("expected techniques kept from existing, got %v", d.Techniques)
	}
}

func TestNormalize_PartialKeepsExistingFields(t *testing.T) {
	v := NewGeneralValidator()
	existing, _, _ := normalize(t, v, `{"priority":"urgent","notes":"bring records"}`, nil)
	merged, _, err := normalize(t, v, `{"visitType":"follow_up"}`, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := merged.(*GeneralData)
	if d.Priority != "urgent" || d.Notes == nil || *d.Notes != "bring records" || d.VisitType != "follow_up" {
		t.Errorf("unexpected merge result: %+v", d)
	}
}

func TestNormalize_NullClearsField(t *testing.T) {
	v := NewGeneralValidator()
	existing, _, _ := normalize(t, v, `{"notes":"x"}`, nil)
	merged, _, err := normalize(t, v, `{"notes":null}`, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.(*GeneralData).Notes != nil {
		t.Error("expected notes to be cleared")
	}
}

func TestNormalize_UnknownFieldRejected(t *testing.T) {
	_, _, err := normalize(t, NewLaboratoryValidator(), `{"contrastDose":"5ml"}`, nil)
	if got := fieldOf(t, err); got != "contrastDose" {
		t.Errorf("expected contrastDose, got %q", got)
	}
}

func TestNormalize_WrongTypeRejected(t *testing.T) {
	_, _, err := normalize(t, NewPhysiotherapyValidator(), `{"painLevel":"high"}`, nil)
	if got := fieldOf(t, err); got != "painLevel" {
		t.Errorf("expected painLevel, got %q", got)
	}
}

func TestNormalize_NotAnObject(t *testing.T) {
	_, _, err := normalize(t, NewGeneralValidator(), `[1,2]`, nil)
	if !errors.Is(err, ErrInvalidDepartmentPayload) {
		t.Errorf("expected ErrInvalidDepartmentPayload, got %v", err)
	}
}

// -- general --

func TestGeneral_Defaults(t *testing.T) {
	d, _, err := normalize(t, NewGeneralValidator(), "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := d.(*GeneralData)
	if g.VisitType != "consultation" || g.Priority != "routine" {
		t.Errorf("unexpected defaults: %+v", g)
	}
}

func TestGeneral_InvalidPriority(t *testing.T) {
	_, _, err := normalize(t, NewGeneralValidator(), `{"priority":"whenever"}`, nil)
	if got := fieldOf(t, err); got != "priority" {
		t.Errorf("expected priority, got %q", got)
	}
}

func TestGeneral_EmergencyWithoutComplaintWarns(t *testing.T) {
	_, warnings, err := normalize(t, NewEmergencyValidator(), `{}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Field != "chiefComplaint" {
		t.Errorf("expected chiefComplaint warning, got %v", warnings)
	}
}

// -- physiotherapy --

func TestPhysiotherapy_Defaults(t *testing.T) {
	d, warnings, err := normalize(t, NewPhysiotherapyValidator(), `{}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := d.(*PhysiotherapyData)
	if p.SessionType != SessionTreatment {
		t.Errorf("expected sessionType treatment, got %s", p.SessionType)
	}
	if p.BodyRegion == nil || len(p.BodyRegion) != 0 {
		t.Errorf("expected empty bodyRegion, got %v", p.BodyRegion)
	}
	if p.EstimatedDuration != defaultSessionMinutes {
		t.Errorf("expected default duration, got %d", p.EstimatedDuration)
	}
	if len(warnings) != 1 || warnings[0].Field != "bodyRegion" {
		t.Errorf("expected bodyRegion warning, got %v", warnings)
	}
}

func TestPhysiotherapy_PainLevelRange(t *testing.T) {
	for _, raw := range []string{`{"painLevel":-1}`, `{"painLevel":11}`} {
		_, _, err := normalize(t, NewPhysiotherapyValidator(), raw, nil)
		if got := fieldOf(t, err); got != "painLevel" {
			t.Errorf("%s: expected painLevel, got %q", raw, got)
		}
	}
	for _, raw := range []string{`{"painLevel":0}`, `{"painLevel":10}`} {
		if _, _, err := normalize(t, NewPhysiotherapyValidator(), raw, nil); err != nil {
			t.Errorf("%s: unexpected error: %v", raw, err)
		}
	}
}

func TestPhysiotherapy_UnknownBodyRegion(t *testing.T) {
	_, _, err := normalize(t, NewPhysiotherapyValidator(), `{"bodyRegion":["knee","tail"]}`, nil)
	if got := fieldOf(t, err); got != "bodyRegion[1]" {
		t.Errorf("expected bodyRegion[1], got %q", got)
	}
}

func TestPhysiotherapy_EvaluationSessionNoWarning(t *testing.T) {
	_, warnings, err := normalize(t, NewPhysiotherapyValidator(), `{"sessionType":"evaluation"}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

// -- laboratory --

func TestLaboratory_FastingHoursOutOfRange(t *testing.T) {
	_, _, err := normalize(t, NewLaboratoryValidator(), `{"tests":[{"testId":"glu","testName":"Glucose"}],"requiresFasting":true,"fastingHours":30}`, nil)
	if got := fieldOf(t, err); got != "fastingHours" {
		t.Errorf("expected fastingHours, got %q", got)
	}
}

func TestLaboratory_FastingHoursRequired(t *testing.T) {
	_, _, err := normalize(t, NewLaboratoryValidator(), `{"requiresFasting":true}`, nil)
	if got := fieldOf(t, err); got != "fastingHours" {
		t.Errorf("expected fastingHours, got %q", got)
	}
}

func TestLaboratory_FastingBounds(t *testing.T) {
	for _, h := range []string{"4", "24"} {
		_, _, err := normalize(t, NewLaboratoryValidator(), `{"requiresFasting":true,"fastingHours":`+h+`}`, nil)
		if err != nil {
			t.Errorf("fastingHours=%s: unexpected error: %v", h, err)
		}
	}
}

func TestLaboratory_EmptyTestsWarnsOnly(t *testing.T) {
	d, warnings, err := normalize(t, NewLaboratoryValidator(), `{}`, nil)
	if err != nil {
		t.Fatalf("empty tests must not fail: %v", err)
	}
	if d == nil {
		t.Fatal("expected payload")
	}
	if len(warnings) != 1 || warnings[0].Field != "tests" {
		t.Errorf("expected tests warning, got %v", warnings)
	}
}

func TestLaboratory_TestMissingName(t *testing.T) {
	_, _, err := normalize(t, NewLaboratoryValidator(), `{"tests":[{"testId":"glu"}]}`, nil)
	if got := fieldOf(t, err); got != "tests[0].testName" {
		t.Errorf("expected tests[0].testName, got %q", got)
	}
}

// -- imaging --

func TestImaging_ContrastDoseRequired(t *testing.T) {
	_, _, err := normalize(t, NewImagingValidator(), `{"imagingType":"ct","bodyPart":"chest","contrastRequired":true,"contrastType":"iodine"}`, nil)
	if got := fieldOf(t, err); got != "contrastDose" {
		t.Errorf("expected contrastDose, got %q", got)
	}

	_, _, err = normalize(t, NewImagingValidator(), `{"imagingType":"ct","bodyPart":"chest","contrastRequired":true,"contrastType":"iodine","contrastDose":"80ml"}`, nil)
	if err != nil {
		t.Errorf("expected payload with contrastDose to validate, got %v", err)
	}
}

func TestImaging_ContrastTypeRequired(t *testing.T) {
	_, _, err := normalize(t, NewImagingValidator(), `{"bodyPart":"chest","contrastRequired":true,"contrastDose":"80ml"}`, nil)
	if got := fieldOf(t, err); got != "contrastType" {
		t.Errorf("expected contrastType, got %q", got)
	}
}

func TestImaging_PregnancyRiskNeedsLMP(t *testing.T) {
	_, _, err := normalize(t, NewImagingValidator(), `{"bodyPart":"pelvis","pregnancyRisk":true}`, nil)
	if got := fieldOf(t, err); got != "lastMenstrualPeriod" {
		t.Errorf("expected lastMenstrualPeriod, got %q", got)
	}
	_, _, err = normalize(t, NewImagingValidator(), `{"bodyPart":"pelvis","pregnancyRisk":true,"lastMenstrualPeriod":"2026-09-30"}`, nil)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestImaging_BadLMPDate(t *testing.T) {
	_, _, err := normalize(t, NewImagingValidator(), `{"bodyPart":"pelvis","pregnancyRisk":true,"lastMenstrualPeriod":"30/09/2026"}`, nil)
	if got := fieldOf(t, err); got != "lastMenstrualPeriod" {
		t.Errorf("expected lastMenstrualPeriod, got %q", got)
	}
}

func TestImaging_BodyPartRequired(t *testing.T) {
	_, _, err := normalize(t, NewImagingValidator(), `{"imagingType":"mri"}`, nil)
	if got := fieldOf(t, err); got != "bodyPart" {
		t.Errorf("expected bodyPart, got %q", got)
	}
}

func TestImaging_ContrastDetailsWithoutContrastWarn(t *testing.T) {
	_, warnings, err := normalize(t, NewImagingValidator(), `{"bodyPart":"head","contrastType":"gadolinium"}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Field != "contrastRequired" {
		t.Errorf("expected contrastRequired warning, got %v", warnings)
	}
}
