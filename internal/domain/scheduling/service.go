package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ehr/clinicflow/internal/domain/department"
	"github.com/ehr/clinicflow/internal/platform/apierror"
	"github.com/ehr/clinicflow/internal/platform/db"
	"github.com/ehr/clinicflow/internal/platform/events"
	"github.com/ehr/clinicflow/internal/platform/metrics"
)

var schedulingTracer = otel.Tracer("clinicflow.internal.domain.scheduling")

type Service struct {
	appointments AppointmentRepository
	resolver     *department.Resolver
	publisher    events.Publisher
	metrics      *metrics.ClinicMetrics
	logger       zerolog.Logger
}

func NewService(appts AppointmentRepository, resolver *department.Resolver, publisher events.Publisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{appointments: appts, resolver: resolver, publisher: publisher, logger: logger}
}

// SetMetrics attaches collectors. A nil value disables them.
func (s *Service) SetMetrics(m *metrics.ClinicMetrics) { s.metrics = m }

// ResolvePayload runs department dispatch and payload normalization without
// touching the store.
func (s *Service) ResolvePayload(appointmentType, explicitCode string, raw json.RawMessage, existing *department.Payload) (*department.Validated, error) {
	return s.resolver.ResolveAndValidate(appointmentType, explicitCode, raw, existing)
}

func (s *Service) ScheduleAppointment(ctx context.Context, in *ScheduleInput) (*Scheduled, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.ScheduleAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.type", in.AppointmentType))

	if in.PatientID == uuid.Nil {
		return nil, apierror.Invalid("patient_id is required")
	}
	if in.AppointmentType == "" {
		return nil, apierror.Invalid("appointment_type is required")
	}
	if err := checkTimes(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if (in.ClinicalReferenceType == nil) != (in.ClinicalReferenceID == nil) {
		return nil, apierror.Invalid("clinical_reference_type and clinical_reference_id must be set together")
	}

	validated, err := s.resolver.ResolveAndValidate(in.AppointmentType, in.DepartmentCode, in.DepartmentData, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a := &Appointment{
		PatientID:             in.PatientID,
		DoctorID:              in.DoctorID,
		DepartmentID:          in.DepartmentID,
		RoomID:                in.RoomID,
		AppointmentType:       in.AppointmentType,
		Status:                StatusScheduled,
		WorkflowStatus:        WorkflowScheduled,
		StartTime:             in.StartTime,
		EndTime:               in.EndTime,
		Reason:                in.Reason,
		Notes:                 in.Notes,
		DepartmentCode:        validated.Payload.Code,
		DepartmentData:        validated.Payload,
		ClinicalReferenceType: in.ClinicalReferenceType,
		ClinicalReferenceID:   in.ClinicalReferenceID,
		ReferringDepartmentID: in.ReferringDepartmentID,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	span.SetAttributes(attribute.String("appointment.id", a.ID.String()), attribute.String("department.code", string(a.DepartmentCode)))

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("appointment_type", a.AppointmentType).
		Str("department_code", string(a.DepartmentCode)).
		Msg("appointment scheduled")

	return &Scheduled{Appointment: a, Warnings: validated.Warnings}, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) SearchAppointments(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	if err := ValidateSearchParams(params); err != nil {
		return nil, 0, err
	}
	return s.appointments.Search(ctx, params, limit, offset)
}

// UpdateAppointment reassigns a non-terminal appointment. expectedVersion, when
// non-zero, must match the stored version. The payload is re-resolved for the
// effective department and normalized over the stored one.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in *UpdateInput, expectedVersion int) (*Scheduled, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.UpdateAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && a.VersionID != expectedVersion {
		s.metrics.ObserveConflict("appointment")
		return nil, db.ErrConcurrentModification
	}
	if a.Status.Terminal() {
		return nil, ErrAppointmentClosed
	}

	explicitCode := string(a.DepartmentCode)
	if in.AppointmentType != nil && *in.AppointmentType != a.AppointmentType {
		if *in.AppointmentType == "" {
			return nil, apierror.Invalid("appointment_type is required")
		}
		a.AppointmentType = *in.AppointmentType
		explicitCode = ""
	}
	if in.DepartmentCode != nil {
		explicitCode = *in.DepartmentCode
	}
	if in.DoctorID != nil {
		a.DoctorID = in.DoctorID
	}
	if in.DepartmentID != nil {
		a.DepartmentID = in.DepartmentID
	}
	if in.RoomID != nil {
		a.RoomID = in.RoomID
	}
	if in.StartTime != nil {
		a.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		a.EndTime = *in.EndTime
	}
	if in.Reason != nil {
		a.Reason = in.Reason
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}
	if err := checkTimes(a.StartTime, a.EndTime); err != nil {
		return nil, err
	}

	validated, err := s.resolver.ResolveAndValidate(a.AppointmentType, explicitCode, in.DepartmentData, &a.DepartmentData)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if validated.Payload.Code != a.DepartmentCode && a.Status == StatusInProgress {
		a.WorkflowStatus = InitialWorkflow(StatusInProgress, validated.Payload.Code)
	}
	a.DepartmentCode = validated.Payload.Code
	a.DepartmentData = validated.Payload

	if err := s.save(ctx, a); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &Scheduled{Appointment: a, Warnings: validated.Warnings}, nil
}

// TransitionResult describes the outcome of ApplyTransition. Changed is false
// for an idempotent repeat completion, which yields no events.
type TransitionResult struct {
	Appointment *Appointment
	From        Status
	Changed     bool
	Events      []events.Event
}

// ApplyTransition validates to against the persisted status, stores the new
// status and returns the events the transition raises without publishing
// them. Callers running inside a transaction publish after commit.
func (s *Service) ApplyTransition(ctx context.Context, id uuid.UUID, to Status) (*TransitionResult, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.ApplyTransition")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()), attribute.String("appointment.to", string(to)))

	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	changed, err := Transition(a, to)
	if err != nil {
		s.metrics.ObserveTransition(string(from), string(to), "rejected")
		span.RecordError(err)
		return nil, err
	}
	if !changed {
		s.metrics.ObserveTransition(string(from), string(to), "noop")
		return &TransitionResult{Appointment: a, From: from}, nil
	}
	if err := s.save(ctx, a); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveTransition(string(from), string(to), "applied")

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("workflow_status", string(a.WorkflowStatus)).
		Msg("appointment transitioned")

	return &TransitionResult{Appointment: a, From: from, Changed: true, Events: TransitionEvents(a, from)}, nil
}

// TransitionAppointment applies a status change and publishes its events.
// Completion is refused: it runs through the linkage service, which counts
// the session on a referenced treatment plan in the same transaction.
func (s *Service) TransitionAppointment(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if to == StatusCompleted {
		return nil, ErrDirectCompletion
	}
	res, err := s.ApplyTransition(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.PublishEvents(ctx, res.Events...)
	return res.Appointment, nil
}

func (s *Service) AdvanceWorkflow(ctx context.Context, id uuid.UUID, step WorkflowStatus) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AdvanceWorkflow(a, step); err != nil {
		return nil, err
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetClinicalReference links the appointment of patientID to a clinical
// aggregate. Relinking to the same aggregate is a no-op; an appointment that
// already serves another aggregate is never repointed.
func (s *Service) SetClinicalReference(ctx context.Context, id, patientID uuid.UUID, refType string, refID uuid.UUID) (*Appointment, error) {
	if refType == "" || refID == uuid.Nil {
		return nil, apierror.Invalid("clinical reference type and id are required")
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patientID {
		return nil, ErrPatientMismatch
	}
	if a.References(refType, refID) {
		return a, nil
	}
	if a.HasClinicalReference() {
		return nil, ErrAlreadyReferenced
	}
	a.ClinicalReferenceType = &refType
	a.ClinicalReferenceID = &refID
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAppointment removes an appointment. In-progress, completed and
// clinically referenced appointments need override. Dependent clinical
// artifacts are never deleted: a deletion warning is published instead.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID, override bool) error {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !deletable(a) && !override {
		return ErrDeletionForbidden
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	if a.HasClinicalReference() {
		s.logger.Warn().
			Str("appointment_id", a.ID.String()).
			Str("clinical_reference_type", *a.ClinicalReferenceType).
			Str("clinical_reference_id", a.ClinicalReferenceID.String()).
			Msg("deleted appointment with clinical reference")
		s.PublishEvents(ctx, deletionWarning(a))
	}
	return nil
}

// PublishEvents hands events to the publisher. Delivery failures are logged;
// the state change they describe is already stored.
func (s *Service) PublishEvents(ctx context.Context, evts ...events.Event) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Error().Err(err).Int("events", len(evts)).Msg("publish appointment events")
	}
}

func (s *Service) save(ctx context.Context, a *Appointment) error {
	err := s.appointments.Update(ctx, a)
	if errors.Is(err, db.ErrConcurrentModification) {
		s.metrics.ObserveConflict("appointment")
	}
	return err
}

func checkTimes(start, end time.Time) error {
	if start.IsZero() {
		return apierror.Invalid("start_time is required")
	}
	if end.IsZero() {
		return apierror.Invalid("end_time is required")
	}
	if !start.Before(end) {
		return apierror.Invalid("start_time must be before end_time")
	}
	return nil
}
