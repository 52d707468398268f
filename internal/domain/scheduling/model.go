package scheduling

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinicflow/internal/domain/department"
)

// ClinicalReferenceTreatmentPlan marks an appointment that serves a
// physiotherapy treatment plan session.
const ClinicalReferenceTreatmentPlan = "treatment_plan"

// Appointment is a scheduled visit owned by one department.
type Appointment struct {
	ID                    uuid.UUID          `db:"id" json:"id"`
	PatientID             uuid.UUID          `db:"patient_id" json:"patient_id"`
	DoctorID              *uuid.UUID         `db:"doctor_id" json:"doctor_id,omitempty"`
	DepartmentID          *uuid.UUID         `db:"department_id" json:"department_id,omitempty"`
	RoomID                *uuid.UUID         `db:"room_id" json:"room_id,omitempty"`
	AppointmentType       string             `db:"appointment_type" json:"appointment_type"`
	Status                Status             `db:"status" json:"status"`
	WorkflowStatus        WorkflowStatus     `db:"workflow_status" json:"workflow_status"`
	StartTime             time.Time          `db:"start_time" json:"start_time"`
	EndTime               time.Time          `db:"end_time" json:"end_time"`
	Reason                *string            `db:"reason" json:"reason,omitempty"`
	Notes                 *string            `db:"notes" json:"notes,omitempty"`
	DepartmentCode        department.Code    `db:"department_code" json:"department_code"`
	DepartmentData        department.Payload `db:"department_specific_data" json:"department_specific_data"`
	ClinicalReferenceType *string            `db:"clinical_reference_type" json:"clinical_reference_type,omitempty"`
	ClinicalReferenceID   *uuid.UUID         `db:"clinical_reference_id" json:"clinical_reference_id,omitempty"`
	ReferringDepartmentID *uuid.UUID         `db:"referring_department_id" json:"referring_department_id,omitempty"`
	VersionID             int                `db:"version_id" json:"version_id"`
	CreatedAt             time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time          `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (a *Appointment) GetVersionID() int { return a.VersionID }

// SetVersionID sets the current version.
func (a *Appointment) SetVersionID(v int) { a.VersionID = v }

// HasClinicalReference reports whether a clinical aggregate points at this
// appointment.
func (a *Appointment) HasClinicalReference() bool {
	return a.ClinicalReferenceType != nil && a.ClinicalReferenceID != nil
}

// References reports whether the appointment is linked to the given
// clinical aggregate.
func (a *Appointment) References(refType string, id uuid.UUID) bool {
	return a.HasClinicalReference() && *a.ClinicalReferenceType == refType && *a.ClinicalReferenceID == id
}

// ScheduleInput is the request to book a new appointment.
type ScheduleInput struct {
	PatientID             uuid.UUID       `json:"patient_id"`
	DoctorID              *uuid.UUID      `json:"doctor_id,omitempty"`
	DepartmentID          *uuid.UUID      `json:"department_id,omitempty"`
	RoomID                *uuid.UUID      `json:"room_id,omitempty"`
	AppointmentType       string          `json:"appointment_type"`
	DepartmentCode        string          `json:"department_code,omitempty"`
	StartTime             time.Time       `json:"start_time"`
	EndTime               time.Time       `json:"end_time"`
	Reason                *string         `json:"reason,omitempty"`
	Notes                 *string         `json:"notes,omitempty"`
	DepartmentData        json.RawMessage `json:"department_specific_data,omitempty"`
	ClinicalReferenceType *string         `json:"clinical_reference_type,omitempty"`
	ClinicalReferenceID   *uuid.UUID      `json:"clinical_reference_id,omitempty"`
	ReferringDepartmentID *uuid.UUID      `json:"referring_department_id,omitempty"`
}

// UpdateInput reassigns a non-terminal appointment. Nil fields are left
// unchanged.
type UpdateInput struct {
	DoctorID        *uuid.UUID      `json:"doctor_id,omitempty"`
	DepartmentID    *uuid.UUID      `json:"department_id,omitempty"`
	RoomID          *uuid.UUID      `json:"room_id,omitempty"`
	AppointmentType *string         `json:"appointment_type,omitempty"`
	DepartmentCode  *string         `json:"department_code,omitempty"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	Reason          *string         `json:"reason,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	DepartmentData  json.RawMessage `json:"department_specific_data,omitempty"`
}

// Scheduled pairs a stored appointment with the non-blocking payload
// warnings raised while normalizing it.
type Scheduled struct {
	Appointment *Appointment         `json:"appointment"`
	Warnings    []department.Warning `json:"warnings,omitempty"`
}
