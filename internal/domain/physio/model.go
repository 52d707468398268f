package physio

import (
	"time"

	"github.com/google/uuid"
)

type EvaluationStatus string

const (
	EvaluationActive EvaluationStatus = "active"
	EvaluationClosed EvaluationStatus = "closed"
)

// ROMMeasurement is one range-of-motion reading, in degrees per side.
type ROMMeasurement struct {
	Joint        string   `json:"joint" validate:"required"`
	Movement     string   `json:"movement" validate:"required"`
	LeftDegrees  *float64 `json:"left_degrees,omitempty" validate:"omitempty,min=0,max=360"`
	RightDegrees *float64 `json:"right_degrees,omitempty" validate:"omitempty,min=0,max=360"`
}

// StrengthGrade is a manual muscle test on the 0-5 scale, per side.
type StrengthGrade struct {
	MuscleGroup string `json:"muscle_group" validate:"required"`
	Left        *int   `json:"left,omitempty" validate:"omitempty,min=0,max=5"`
	Right       *int   `json:"right,omitempty" validate:"omitempty,min=0,max=5"`
}

// MedicalRecord is the initial physiotherapy evaluation. Its clinical fields
// stay mutable until it is closed.
type MedicalRecord struct {
	ID                    uuid.UUID        `db:"id" json:"id"`
	PatientID             uuid.UUID        `db:"patient_id" json:"patient_id"`
	TherapistID           uuid.UUID        `db:"therapist_id" json:"therapist_id"`
	AppointmentID         *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	ChiefComplaint        *string          `db:"chief_complaint" json:"chief_complaint,omitempty"`
	VASScore              *int             `db:"vas_score" json:"vas_score,omitempty" validate:"omitempty,min=0,max=10"`
	OswestryScore         *int             `db:"oswestry_score" json:"oswestry_score,omitempty" validate:"omitempty,min=0,max=100"`
	DASHScore             *int             `db:"dash_score" json:"dash_score,omitempty" validate:"omitempty,min=0,max=100"`
	RolandMorrisScore     *int             `db:"roland_morris_score" json:"roland_morris_score,omitempty" validate:"omitempty,min=0,max=24"`
	ROMMeasurements       []ROMMeasurement `db:"rom_measurements" json:"rom_measurements" validate:"dive"`
	StrengthGrades        []StrengthGrade  `db:"strength_grade" json:"strength_grade" validate:"dive"`
	Diagnosis             *string          `db:"diagnosis" json:"diagnosis,omitempty"`
	ShortTermGoals        []string         `db:"short_term_goals" json:"short_term_goals"`
	LongTermGoals         []string         `db:"long_term_goals" json:"long_term_goals"`
	InformedConsentSigned bool             `db:"informed_consent_signed" json:"informed_consent_signed"`
	Status                EvaluationStatus `db:"status" json:"status"`
	ClosedAt              *time.Time       `db:"closed_at" json:"closed_at,omitempty"`
	VersionID             int              `db:"version_id" json:"version_id"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

func (m *MedicalRecord) GetVersionID() int { return m.VersionID }

func (m *MedicalRecord) SetVersionID(v int) { m.VersionID = v }

type PlanType string

const (
	PlanRehabilitation PlanType = "rehabilitation"
	PlanMaintenance    PlanType = "maintenance"
	PlanPreventive     PlanType = "preventive"
	PlanPerformance    PlanType = "performance"
)

type PlanStatus string

const (
	PlanIndicated    PlanStatus = "indicated"
	PlanActive       PlanStatus = "active"
	PlanCompleted    PlanStatus = "completed"
	PlanDiscontinued PlanStatus = "discontinued"
)

// TreatmentPlan is a prescribed course of sessions spawned by one
// evaluation. SessionsCompleted never decreases.
type TreatmentPlan struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	PatientID               uuid.UUID  `db:"patient_id" json:"patient_id"`
	MedicalRecordID         uuid.UUID  `db:"medical_record_id" json:"medical_record_id"`
	TherapistID             uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	PlanType                PlanType   `db:"plan_type" json:"plan_type"`
	SessionsPerWeek         int        `db:"sessions_per_week" json:"sessions_per_week"`
	TotalSessionsPrescribed int        `db:"total_sessions_prescribed" json:"total_sessions_prescribed"`
	SessionsCompleted       int        `db:"sessions_completed" json:"sessions_completed"`
	Status                  PlanStatus `db:"status" json:"status"`
	StartDate               time.Time  `db:"start_date" json:"start_date"`
	ExpectedEndDate         *time.Time `db:"expected_end_date" json:"expected_end_date,omitempty"`
	DiscontinuedReason      *string    `db:"discontinued_reason" json:"discontinued_reason,omitempty"`
	VersionID               int        `db:"version_id" json:"version_id"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *TreatmentPlan) GetVersionID() int { return p.VersionID }

func (p *TreatmentPlan) SetVersionID(v int) { p.VersionID = v }

// Closed reports whether the plan no longer accepts sessions.
func (p *TreatmentPlan) Closed() bool {
	return p.Status == PlanCompleted || p.Status == PlanDiscontinued
}

// RemainingSessions is never negative.
func (p *TreatmentPlan) RemainingSessions() int {
	if n := p.TotalSessionsPrescribed - p.SessionsCompleted; n > 0 {
		return n
	}
	return 0
}

// PlanRequest carries the prescription for a new treatment plan.
type PlanRequest struct {
	PlanType                PlanType   `json:"plan_type" validate:"required,oneof=rehabilitation maintenance preventive performance"`
	SessionsPerWeek         int        `json:"sessions_per_week" validate:"min=1,max=7"`
	TotalSessionsPrescribed int        `json:"total_sessions_prescribed" validate:"min=1,max=100"`
	StartDate               *time.Time `json:"start_date,omitempty"`
	ExpectedEndDate         *time.Time `json:"expected_end_date,omitempty"`
	TherapistID             *uuid.UUID `json:"therapist_id,omitempty"`
	AppointmentID           *uuid.UUID `json:"appointment_id,omitempty"`
}
