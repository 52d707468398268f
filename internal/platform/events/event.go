// Package events carries appointment side-effect notifications to the host.
// The scheduling core only produces events; delivery belongs to a Publisher.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	WorkspaceOpened      Type = "appointment.workspace_opened"
	AppointmentCompleted Type = "appointment.completed"
	AppointmentCancelled Type = "appointment.cancelled"
	AppointmentNoShow    Type = "appointment.no_show"
	DeletionWarning      Type = "appointment.deletion_warning"
	PlanActivated        Type = "treatment_plan.activated"
	PlanProgressed       Type = "treatment_plan.progressed"
	PlanCompleted        Type = "treatment_plan.completed"
)

// Event is one side-effect obligation raised by a transition.
type Event struct {
	ID             uuid.UUID         `json:"id"`
	Type           Type              `json:"type"`
	AppointmentID  uuid.UUID         `json:"appointment_id"`
	DepartmentCode string            `json:"department_code,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(t Type, appointmentID uuid.UUID, departmentCode string, attrs map[string]string) Event {
	return Event{
		ID:             uuid.New(),
		Type:           t,
		AppointmentID:  appointmentID,
		DepartmentCode: departmentCode,
		Attributes:     attrs,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, evts ...Event) error
}

// Multi fans events out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evts ...Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evts...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) error { return nil }
