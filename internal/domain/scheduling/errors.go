package scheduling

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// IllegalTransitionError is returned when the target status is not reachable
// from the persisted status. The appointment is left unchanged.
type IllegalTransitionError struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

func (e *IllegalTransitionError) StatusCode() int { return http.StatusConflict }

type conflictError struct{ msg string }

func (e *conflictError) Error() string   { return e.msg }
func (e *conflictError) StatusCode() int { return http.StatusConflict }

var (
	// ErrDeletionForbidden guards in-progress, completed and clinically
	// referenced appointments against deletion without an override.
	ErrDeletionForbidden error = &conflictError{"appointment cannot be deleted without override"}

	// ErrAppointmentClosed is returned when reassigning a terminal appointment.
	ErrAppointmentClosed error = &conflictError{"appointment is closed"}

	// ErrPatientMismatch is returned when linking an appointment to a clinical
	// aggregate of another patient.
	ErrPatientMismatch error = &conflictError{"appointment belongs to another patient"}

	// ErrAlreadyReferenced is returned when the appointment already serves a
	// different clinical aggregate.
	ErrAlreadyReferenced error = &conflictError{"appointment is linked to another clinical record"}

	// ErrDirectCompletion is returned by the generic transition path.
	// Completion goes through POST /appointments/:id/complete.
	ErrDirectCompletion error = &unprocessableError{"appointments are completed through POST /appointments/:id/complete"}
)

type unprocessableError struct{ msg string }

func (e *unprocessableError) Error() string   { return e.msg }
func (e *unprocessableError) StatusCode() int { return http.StatusUnprocessableEntity }
