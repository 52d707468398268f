// Package linkage ties physiotherapy evaluations and treatment plans to the
// appointments that realise them.
package linkage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinicflow/internal/domain/physio"
	"github.com/ehr/clinicflow/internal/domain/scheduling"
)

// Completion is the result of completing an appointment. TreatmentPlan is set
// when the appointment references a plan.
type Completion struct {
	Appointment   *scheduling.Appointment `json:"appointment"`
	TreatmentPlan *physio.TreatmentPlan   `json:"treatment_plan,omitempty"`
}

// SessionInput books the next session of a treatment plan. The patient,
// appointment type and clinical reference come from the plan.
type SessionInput struct {
	DoctorID       *uuid.UUID      `json:"doctor_id,omitempty"`
	DepartmentID   *uuid.UUID      `json:"department_id,omitempty"`
	RoomID         *uuid.UUID      `json:"room_id,omitempty"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	Reason         *string         `json:"reason,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	DepartmentData json.RawMessage `json:"department_specific_data,omitempty"`
}

// NextSession is the pre-fill for the plan's next physiotherapy appointment.
type NextSession struct {
	PlanID            uuid.UUID `json:"treatment_plan_id"`
	SessionNumber     int       `json:"session_number"`
	RemainingSessions int       `json:"remaining_sessions"`
}
