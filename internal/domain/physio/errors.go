package physio

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidEvaluation = errors.New("invalid evaluation")
	ErrInvalidPlan       = errors.New("invalid treatment plan")
)

// FieldError reports one rejected field. Out-of-range scale values are
// rejected, never clamped.
type FieldError struct {
	kind   error
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.kind, e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool { return target == e.kind }

func (e *FieldError) StatusCode() int { return http.StatusUnprocessableEntity }

type statusError struct {
	msg    string
	status int
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.status }

var (
	// ErrConsentRequired blocks plan creation from an evaluation without
	// signed informed consent.
	ErrConsentRequired error = &statusError{"informed consent must be signed before a treatment plan is created", http.StatusUnprocessableEntity}

	ErrEvaluationClosed  error = &statusError{"evaluation is closed", http.StatusConflict}
	ErrPlanAlreadyExists error = &statusError{"evaluation already owns a treatment plan", http.StatusConflict}
	ErrPlanClosed        error = &statusError{"treatment plan is closed", http.StatusConflict}
)

// PlanTransitionError is returned for a plan status change outside
// indicated -> active -> completed | discontinued.
type PlanTransitionError struct {
	From PlanStatus `json:"from"`
	To   PlanStatus `json:"to"`
}

func (e *PlanTransitionError) Error() string {
	return fmt.Sprintf("treatment plan cannot move from %s to %s", e.From, e.To)
}

func (e *PlanTransitionError) StatusCode() int { return http.StatusConflict }
