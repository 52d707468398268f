package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinicflow/internal/platform/apierror"
)

// AppointmentRepository is the record store for appointments. Update is
// versioned: it fails with db.ErrConcurrentModification when the stored
// version differs from a.VersionID, and bumps a.VersionID on success.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}

// Search parameters understood by AppointmentRepository.Search.
const (
	ParamPatient        = "patient_id"
	ParamDoctor         = "doctor_id"
	ParamDepartment     = "department_id"
	ParamDepartmentCode = "department_code"
	ParamStatus         = "status"
	ParamFrom           = "from"
	ParamTo             = "to"
	ParamClinicalRef    = "clinical_reference_id"
)

var uuidParams = []string{ParamPatient, ParamDoctor, ParamDepartment, ParamClinicalRef}

// ParseTimeParam accepts RFC 3339 timestamps or plain dates.
func ParseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", v)
	}
	return t, nil
}

// ValidateSearchParams rejects malformed filter values before they reach the
// store.
func ValidateSearchParams(params map[string]string) error {
	for _, k := range uuidParams {
		if v, ok := params[k]; ok {
			if _, err := uuid.Parse(v); err != nil {
				return apierror.Invalid("invalid %s", k)
			}
		}
	}
	if v, ok := params[ParamStatus]; ok && !Status(v).Valid() {
		return apierror.Invalid("invalid status: %s", v)
	}
	for _, k := range []string{ParamFrom, ParamTo} {
		if v, ok := params[k]; ok {
			if _, err := ParseTimeParam(v); err != nil {
				return apierror.Invalid("%s: %v", k, err)
			}
		}
	}
	return nil
}
