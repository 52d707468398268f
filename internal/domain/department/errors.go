package department

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidDepartmentPayload is matched by every InvalidPayloadError.
var ErrInvalidDepartmentPayload = errors.New("invalid department payload")

// InvalidPayloadError reports a field-level payload violation. Nothing is
// persisted when it is returned.
type InvalidPayloadError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid department payload: %s: %s", e.Field, e.Reason)
}

func (e *InvalidPayloadError) Is(target error) bool {
	return target == ErrInvalidDepartmentPayload
}

func (e *InvalidPayloadError) StatusCode() int { return http.StatusUnprocessableEntity }

// Warning flags a payload condition that does not block persistence.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
