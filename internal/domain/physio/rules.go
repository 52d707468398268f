package physio

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var fieldRules = newFieldRules()

func newFieldRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func check(kind error, s any) error {
	err := fieldRules.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FieldError{kind: kind, Field: "body", Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return &FieldError{kind: kind, Field: field, Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return fmt.Sprintf("failed %s rule", fe.Tag())
}

// ValidateEvaluation checks scales, ROM readings and strength grades.
func ValidateEvaluation(m *MedicalRecord) error {
	return check(ErrInvalidEvaluation, m)
}

func ValidatePlanRequest(r *PlanRequest) error {
	return check(ErrInvalidPlan, r)
}

// ExpectedEndDate is start plus the number of weeks needed to deliver total
// sessions at perWeek sessions a week.
func ExpectedEndDate(start time.Time, perWeek, total int) time.Time {
	if perWeek <= 0 {
		return start
	}
	weeks := (total + perWeek - 1) / perWeek
	return start.AddDate(0, 0, 7*weeks)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewPlan builds an indicated plan owned by eval. It fails with
// ErrConsentRequired when informed consent is not signed.
func NewPlan(eval *MedicalRecord, req *PlanRequest, now time.Time) (*TreatmentPlan, error) {
	if !eval.InformedConsentSigned {
		return nil, ErrConsentRequired
	}
	if eval.Status == EvaluationClosed {
		return nil, ErrEvaluationClosed
	}
	if err := ValidatePlanRequest(req); err != nil {
		return nil, err
	}

	p := &TreatmentPlan{
		PatientID:               eval.PatientID,
		MedicalRecordID:         eval.ID,
		TherapistID:             eval.TherapistID,
		PlanType:                req.PlanType,
		SessionsPerWeek:         req.SessionsPerWeek,
		TotalSessionsPrescribed: req.TotalSessionsPrescribed,
		Status:                  PlanIndicated,
		StartDate:               dateOnly(now),
	}
	if req.TherapistID != nil {
		p.TherapistID = *req.TherapistID
	}
	if req.StartDate != nil {
		p.StartDate = dateOnly(*req.StartDate)
	}
	if req.ExpectedEndDate != nil {
		end := dateOnly(*req.ExpectedEndDate)
		if end.Before(p.StartDate) {
			return nil, &FieldError{kind: ErrInvalidPlan, Field: "expected_end_date", Reason: "must not be before start_date"}
		}
		p.ExpectedEndDate = &end
	} else {
		end := ExpectedEndDate(p.StartDate, p.SessionsPerWeek, p.TotalSessionsPrescribed)
		p.ExpectedEndDate = &end
	}
	return p, nil
}

// Start moves an indicated plan to active.
func (p *TreatmentPlan) Start() error {
	if p.Status != PlanIndicated {
		return &PlanTransitionError{From: p.Status, To: PlanActive}
	}
	p.Status = PlanActive
	return nil
}

// Discontinue stops an indicated or active plan.
func (p *TreatmentPlan) Discontinue(reason string) error {
	if p.Closed() {
		return &PlanTransitionError{From: p.Status, To: PlanDiscontinued}
	}
	p.Status = PlanDiscontinued
	if reason != "" {
		p.DiscontinuedReason = &reason
	}
	return nil
}
