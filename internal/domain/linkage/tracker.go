package linkage

import (
	"strconv"

	"github.com/ehr/clinicflow/internal/domain/physio"
	"github.com/ehr/clinicflow/internal/domain/scheduling"
	"github.com/ehr/clinicflow/internal/platform/events"
)

// Skip reasons reported by OnAppointmentCompleted.
const (
	SkipPlanClosed      = "plan_closed"
	SkipNotReferenced   = "not_referenced"
	SkipNotPhysio       = "not_physiotherapy"
	SkipNotTreatment    = "not_treatment_session"
	SkipAppointmentOpen = "appointment_not_completed"
)

// Progress describes what a completed appointment did to its plan.
type Progress struct {
	Counted    bool
	Activated  bool
	Completed  bool
	SkipReason string
}

// NextSessionNumber is the sessionNumber the plan's next appointment carries.
// It never mutates the plan.
func NextSessionNumber(p *physio.TreatmentPlan) int {
	return p.SessionsCompleted + 1
}

// OnAppointmentCompleted counts a completed treatment session against the
// plan it references. sessions_completed only ever grows here. An indicated
// plan becomes active on its first session and completed once the
// prescription is reached.
func OnAppointmentCompleted(a *scheduling.Appointment, p *physio.TreatmentPlan) Progress {
	if a.Status != scheduling.StatusCompleted {
		return Progress{SkipReason: SkipAppointmentOpen}
	}
	if p.Closed() {
		return Progress{SkipReason: SkipPlanClosed}
	}
	if !a.References(scheduling.ClinicalReferenceTreatmentPlan, p.ID) {
		return Progress{SkipReason: SkipNotReferenced}
	}
	data, ok := a.DepartmentData.Physiotherapy()
	if !ok {
		return Progress{SkipReason: SkipNotPhysio}
	}
	if !data.SessionType.CountsTowardPlan() {
		return Progress{SkipReason: SkipNotTreatment}
	}

	res := Progress{Counted: true}
	p.SessionsCompleted++
	if p.Status == physio.PlanIndicated {
		p.Status = physio.PlanActive
		res.Activated = true
	}
	if p.SessionsCompleted >= p.TotalSessionsPrescribed {
		p.Status = physio.PlanCompleted
		res.Completed = true
	}
	return res
}

// progressEvents are the notifications raised by a counted session.
func progressEvents(a *scheduling.Appointment, p *physio.TreatmentPlan, res Progress) []events.Event {
	if !res.Counted {
		return nil
	}
	attrs := map[string]string{
		"treatment_plan_id":         p.ID.String(),
		"sessions_completed":        strconv.Itoa(p.SessionsCompleted),
		"total_sessions_prescribed": strconv.Itoa(p.TotalSessionsPrescribed),
	}
	evts := []events.Event{events.New(events.PlanProgressed, a.ID, string(a.DepartmentCode), attrs)}
	if res.Completed {
		evts = append(evts, events.New(events.PlanCompleted, a.ID, string(a.DepartmentCode),
			map[string]string{"treatment_plan_id": p.ID.String()}))
	}
	return evts
}
