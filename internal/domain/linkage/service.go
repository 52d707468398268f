package linkage

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
	"go.opentelemetry.io/otel/trace"

	"github.com/ehr/clinicflow/internal/domain/department"
	"github.com/ehr/clinicflow/internal/domain/physio"
	"github.com/ehr/clinicflow/internal/domain/scheduling"
	"github.com/ehr/clinicflow/internal/platform/db"
	"github.com/ehr/clinicflow/internal/platform/events"
	"github.com/ehr/clinicflow/internal/platform/metrics"
)

var linkageTracer = otel.Tracer("clinicflow.internal.domain.linkage")

// Service links evaluations, treatment plans and appointments. Writes that
// touch more than one aggregate run in one transaction; events are published
// only after it commits.
type Service struct {
	tx          db.Transactor
	scheduling  *scheduling.Service
	evaluations physio.EvaluationRepository
	plans       physio.TreatmentPlanRepository
	metrics     *metrics.ClinicMetrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(tx db.Transactor, sched *scheduling.Service, evals physio.EvaluationRepository, plans physio.TreatmentPlanRepository, logger zerolog.Logger) *Service {
	return &Service{
		tx:          tx,
		scheduling:  sched,
		evaluations: evals,
		plans:       plans,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) SetMetrics(m *metrics.ClinicMetrics) { s.metrics = m }

// ActivateTreatmentPlan creates the treatment plan for an evaluation. The
// evaluation must carry signed consent and own no plan yet. When an
// originating appointment is known it is linked to the new plan; it must
// belong to the evaluated patient and serve no other clinical record.
func (s *Service) ActivateTreatmentPlan(ctx context.Context, evaluationID uuid.UUID, req *physio.PlanRequest) (*physio.TreatmentPlan, error) {
	ctx, span := linkageTracer.Start(ctx, "linkage.ActivateTreatmentPlan",
		trace.WithAttributes(attribute.String("evaluation.id", evaluationID.String())))
	defer span.End()

	var plan *physio.TreatmentPlan
	var linked *uuid.UUID
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		eval, err := s.evaluations.GetByID(ctx, evaluationID)
		if err != nil {
			return err
		}
		plan, err = physio.NewPlan(eval, req, s.now())
		if err != nil {
			return err
		}
		if _, err := s.plans.GetByMedicalRecord(ctx, eval.ID); err == nil {
			return physio.ErrPlanAlreadyExists
		} else if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		if err := s.plans.Create(ctx, plan); err != nil {
			return err
		}

		apptID := req.AppointmentID
		if apptID == nil {
			apptID = eval.AppointmentID
		}
		if apptID == nil {
			return nil
		}
		_, err = s.scheduling.SetClinicalReference(ctx, *apptID, eval.PatientID, scheduling.ClinicalReferenceTreatmentPlan, plan.ID)
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warn().
				Str("appointment_id", apptID.String()).
				Str("treatment_plan_id", plan.ID.String()).
				Msg("originating appointment not found, plan left unlinked")
			return nil
		}
		if err != nil {
			return err
		}
		linked = apptID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info().
		Str("treatment_plan_id", plan.ID.String()).
		Str("evaluation_id", evaluationID.String()).
		Int("total_sessions_prescribed", plan.TotalSessionsPrescribed).
		Msg("treatment plan activated")

	attrs := map[string]string{
		"treatment_plan_id": plan.ID.String(),
		"evaluation_id":     evaluationID.String(),
	}
	var apptID uuid.UUID
	if linked != nil {
		apptID = *linked
	}
	s.scheduling.PublishEvents(ctx, events.New(events.PlanActivated, apptID, "", attrs))
	return plan, nil
}

// NextSession reports the session number the plan's next appointment gets.
func (s *Service) NextSession(ctx context.Context, planID uuid.UUID) (*NextSession, error) {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	return &NextSession{PlanID: p.ID, SessionNumber: NextSessionNumber(p), RemainingSessions: p.RemainingSessions()}, nil
}

// ScheduleSession books a physiotherapy appointment linked to the plan and
// pre-filled with the next session number.
func (s *Service) ScheduleSession(ctx context.Context, planID uuid.UUID, in *SessionInput) (*scheduling.Scheduled, error) {
	ctx, span := linkageTracer.Start(ctx, "linkage.ScheduleSession")
	defer span.End()

	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p.Closed() {
		return nil, physio.ErrPlanClosed
	}
	data, err := withSessionNumber(in.DepartmentData, NextSessionNumber(p))
	if err != nil {
		return nil, err
	}

	refType := scheduling.ClinicalReferenceTreatmentPlan
	refID := p.ID
	out, err := s.scheduling.ScheduleAppointment(ctx, &scheduling.ScheduleInput{
		PatientID:             p.PatientID,
		DoctorID:              in.DoctorID,
		DepartmentID:          in.DepartmentID,
		RoomID:                in.RoomID,
		AppointmentType:       "physiotherapy",
		StartTime:             in.StartTime,
		EndTime:               in.EndTime,
		Reason:                in.Reason,
		Notes:                 in.Notes,
		DepartmentData:        data,
		ClinicalReferenceType: &refType,
		ClinicalReferenceID:   &refID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// CompleteAppointment completes an appointment and counts it against the
// treatment plan it references. Completing an already completed appointment
// changes nothing. A stale plan or appointment version surfaces as
// db.ErrConcurrentModification and the whole write is rolled back.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Completion, error) {
	ctx, span := linkageTracer.Start(ctx, "linkage.CompleteAppointment",
		trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	var out Completion
	var evts []events.Event
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		evts = nil
		res, err := s.scheduling.ApplyTransition(ctx, id, scheduling.StatusCompleted)
		if err != nil {
			return err
		}
		a := res.Appointment
		out = Completion{Appointment: a}
		evts = append(evts, res.Events...)

		if a.ClinicalReferenceType == nil || *a.ClinicalReferenceType != scheduling.ClinicalReferenceTreatmentPlan || a.ClinicalReferenceID == nil {
			return nil
		}
		plan, err := s.plans.GetByID(ctx, *a.ClinicalReferenceID)
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warn().
				Str("appointment_id", a.ID.String()).
				Str("treatment_plan_id", a.ClinicalReferenceID.String()).
				Msg("referenced treatment plan not found")
			return nil
		}
		if err != nil {
			return err
		}
		out.TreatmentPlan = plan
		if !res.Changed {
			return nil
		}

		progress := OnAppointmentCompleted(a, plan)
		if !progress.Counted {
			s.metrics.ObservePlanSession("skipped")
			s.logger.Debug().
				Str("appointment_id", a.ID.String()).
				Str("reason", progress.SkipReason).
				Msg("session not counted toward plan")
			return nil
		}
		if err := s.plans.Update(ctx, plan); err != nil {
			if errors.Is(err, db.ErrConcurrentModification) {
				s.metrics.ObserveConflict("treatment_plan")
			}
			return fmt.Errorf("update treatment plan: %w", err)
		}
		if progress.Completed {
			s.metrics.ObservePlanSession("plan_completed")
		} else {
			s.metrics.ObservePlanSession("counted")
		}
		evts = append(evts, progressEvents(a, plan, progress)...)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if p := out.TreatmentPlan; p != nil {
		s.logger.Info().
			Str("appointment_id", id.String()).
			Str("treatment_plan_id", p.ID.String()).
			Int("sessions_completed", p.SessionsCompleted).
			Str("plan_status", string(p.Status)).
			Msg("appointment completed")
	}
	s.scheduling.PublishEvents(ctx, evts...)
	return &out, nil
}

// withSessionNumber sets sessionNumber on a physiotherapy payload object.
func withSessionNumber(raw json.RawMessage, n int) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, &department.InvalidPayloadError{Field: "department_specific_data", Reason: "must be a JSON object"}
		}
	}
	num, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	fields["sessionNumber"] = num
	return json.Marshal(fields)
}
