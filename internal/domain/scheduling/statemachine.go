package scheduling

import (
	"github.com/ehr/clinicflow/internal/domain/department"
	"github.com/ehr/clinicflow/internal/platform/events"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusInProgress: true, StatusCompleted: true,
	StatusCancelled: true, StatusNoShow: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

var transitions = map[Status]map[Status]bool{
	StatusScheduled:  {StatusInProgress: true, StatusCancelled: true, StatusNoShow: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Transition moves a to the target status and resets its workflow status.
// Completing an already completed appointment is a successful no-op and
// reports changed = false.
func Transition(a *Appointment, to Status) (changed bool, err error) {
	if a.Status == StatusCompleted && to == StatusCompleted {
		return false, nil
	}
	if !to.Valid() || !CanTransition(a.Status, to) {
		return false, &IllegalTransitionError{From: string(a.Status), To: string(to)}
	}
	a.Status = to
	a.WorkflowStatus = InitialWorkflow(to, a.DepartmentCode)
	return true, nil
}

// WorkflowStatus mirrors Status, refined by a department step while the
// appointment is in progress.
type WorkflowStatus string

const (
	WorkflowScheduled        WorkflowStatus = "scheduled"
	WorkflowInConsultation   WorkflowStatus = "in_consultation"
	WorkflowInSession        WorkflowStatus = "in_session"
	WorkflowSampleCollection WorkflowStatus = "sample_collection"
	WorkflowProcessing       WorkflowStatus = "processing"
	WorkflowResultsReady     WorkflowStatus = "results_ready"
	WorkflowInImaging        WorkflowStatus = "in_imaging"
	WorkflowReporting        WorkflowStatus = "reporting"
	WorkflowCompleted        WorkflowStatus = "completed"
	WorkflowCancelled        WorkflowStatus = "cancelled"
	WorkflowNoShow           WorkflowStatus = "no_show"
)

var workflowSteps = map[department.Variant][]WorkflowStatus{
	department.VariantGeneral:       {WorkflowInConsultation},
	department.VariantPhysiotherapy: {WorkflowInSession},
	department.VariantLaboratory:    {WorkflowSampleCollection, WorkflowProcessing, WorkflowResultsReady},
	department.VariantImaging:       {WorkflowInImaging, WorkflowReporting},
}

// WorkflowSteps returns the in-progress steps of the department, in order.
func WorkflowSteps(code department.Code) []WorkflowStatus {
	return workflowSteps[department.VariantFor(code)]
}

// InitialWorkflow is the workflow status an appointment takes on entering s.
func InitialWorkflow(s Status, code department.Code) WorkflowStatus {
	if s == StatusInProgress {
		return WorkflowSteps(code)[0]
	}
	return WorkflowStatus(s)
}

// AdvanceWorkflow moves an in-progress appointment forward to a later step of
// its department's workflow. Moving backwards, sideways into another
// department's steps, or outside in_progress is illegal.
func AdvanceWorkflow(a *Appointment, step WorkflowStatus) error {
	illegal := &IllegalTransitionError{From: string(a.WorkflowStatus), To: string(step)}
	if a.Status != StatusInProgress {
		return illegal
	}
	steps := WorkflowSteps(a.DepartmentCode)
	cur, next := -1, -1
	for i, s := range steps {
		if s == a.WorkflowStatus {
			cur = i
		}
		if s == step {
			next = i
		}
	}
	if next < 0 || next <= cur {
		return illegal
	}
	a.WorkflowStatus = step
	return nil
}

var workspaceKinds = map[department.Variant]string{
	department.VariantGeneral:       "consultation",
	department.VariantPhysiotherapy: "physiotherapy_session",
	department.VariantLaboratory:    "lab_bench",
	department.VariantImaging:       "imaging_suite",
}

// WorkspaceRef addresses the clinical workspace opened for an in-progress
// appointment.
func WorkspaceRef(a *Appointment) string {
	return workspaceKinds[department.VariantFor(a.DepartmentCode)] + "/" + a.ID.String()
}

// TransitionEvents lists the side effects the host must fulfil after a moved
// from the given status to its current one.
func TransitionEvents(a *Appointment, from Status) []events.Event {
	attrs := map[string]string{"from": string(from), "to": string(a.Status)}
	code := string(a.DepartmentCode)

	switch a.Status {
	case StatusInProgress:
		attrs["workspace"] = WorkspaceRef(a)
		attrs["workflow_status"] = string(a.WorkflowStatus)
		return []events.Event{events.New(events.WorkspaceOpened, a.ID, code, attrs)}
	case StatusCompleted:
		if a.HasClinicalReference() {
			attrs["clinical_reference_type"] = *a.ClinicalReferenceType
			attrs["clinical_reference_id"] = a.ClinicalReferenceID.String()
		}
		return []events.Event{events.New(events.AppointmentCompleted, a.ID, code, attrs)}
	case StatusCancelled:
		return []events.Event{events.New(events.AppointmentCancelled, a.ID, code, attrs)}
	case StatusNoShow:
		return []events.Event{events.New(events.AppointmentNoShow, a.ID, code, attrs)}
	}
	return nil
}

// deletable reports whether a may be deleted without an override.
func deletable(a *Appointment) bool {
	if a.Status == StatusInProgress || a.Status == StatusCompleted {
		return false
	}
	return !a.HasClinicalReference()
}

func deletionWarning(a *Appointment) events.Event {
	return events.New(events.DeletionWarning, a.ID, string(a.DepartmentCode), map[string]string{
		"clinical_reference_type": *a.ClinicalReferenceType,
		"clinical_reference_id":   a.ClinicalReferenceID.String(),
		"status":                  string(a.Status),
	})
}
