package physio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicflow/internal/platform/apierror"
	"github.com/ehr/clinicflow/internal/platform/auth"
	"github.com/ehr/clinicflow/internal/platform/db"
)

type Service struct {
	evaluations EvaluationRepository
	plans       TreatmentPlanRepository
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(evals EvaluationRepository, plans TreatmentPlanRepository, logger zerolog.Logger) *Service {
	return &Service{evaluations: evals, plans: plans, logger: logger, now: time.Now}
}

// -- Evaluation --

var validEvaluationStatuses = map[string]bool{
	string(EvaluationActive): true, string(EvaluationClosed): true,
}

// CreateEvaluation records an initial evaluation. The acting user becomes the
// therapist when none is given.
func (s *Service) CreateEvaluation(ctx context.Context, m *MedicalRecord) error {
	if m.PatientID == uuid.Nil {
		return apierror.Invalid("patient_id is required")
	}
	if m.TherapistID == uuid.Nil {
		id, err := uuid.Parse(auth.UserIDFromContext(ctx))
		if err != nil {
			return apierror.Invalid("therapist_id is required")
		}
		m.TherapistID = id
	}
	m.Status = EvaluationActive
	m.ClosedAt = nil
	if err := ValidateEvaluation(m); err != nil {
		return err
	}
	if err := s.evaluations.Create(ctx, m); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	s.logger.Info().
		Str("evaluation_id", m.ID.String()).
		Str("patient_id", m.PatientID.String()).
		Bool("informed_consent_signed", m.InformedConsentSigned).
		Msg("physiotherapy evaluation created")
	return nil
}

func (s *Service) GetEvaluation(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.evaluations.GetByID(ctx, id)
}

func (s *Service) SearchEvaluations(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error) {
	if st, ok := params["status"]; ok && !validEvaluationStatuses[st] {
		return nil, 0, apierror.Invalid("invalid evaluation status: %s", st)
	}
	return s.evaluations.Search(ctx, params, limit, offset)
}

// UpdateEvaluation replaces the clinical fields of an active evaluation.
// Patient and therapist are fixed at creation.
func (s *Service) UpdateEvaluation(ctx context.Context, id uuid.UUID, in *MedicalRecord, expectedVersion int) (*MedicalRecord, error) {
	m, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && m.VersionID != expectedVersion {
		return nil, db.ErrConcurrentModification
	}
	if m.Status == EvaluationClosed {
		return nil, ErrEvaluationClosed
	}

	if in.AppointmentID != nil {
		m.AppointmentID = in.AppointmentID
	}
	m.ChiefComplaint = in.ChiefComplaint
	m.VASScore = in.VASScore
	m.OswestryScore = in.OswestryScore
	m.DASHScore = in.DASHScore
	m.RolandMorrisScore = in.RolandMorrisScore
	m.ROMMeasurements = in.ROMMeasurements
	m.StrengthGrades = in.StrengthGrades
	m.Diagnosis = in.Diagnosis
	m.ShortTermGoals = in.ShortTermGoals
	m.LongTermGoals = in.LongTermGoals
	m.InformedConsentSigned = in.InformedConsentSigned

	if err := ValidateEvaluation(m); err != nil {
		return nil, err
	}
	if err := s.evaluations.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) CloseEvaluation(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == EvaluationClosed {
		return nil, ErrEvaluationClosed
	}
	now := s.now().UTC()
	m.Status = EvaluationClosed
	m.ClosedAt = &now
	if err := s.evaluations.Update(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info().Str("evaluation_id", m.ID.String()).Msg("physiotherapy evaluation closed")
	return m, nil
}

// -- Treatment Plan --

var validPlanStatuses = map[string]bool{
	string(PlanIndicated): true, string(PlanActive): true,
	string(PlanCompleted): true, string(PlanDiscontinued): true,
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) SearchPlans(ctx context.Context, params map[string]string, limit, offset int) ([]*TreatmentPlan, int, error) {
	if st, ok := params["status"]; ok && !validPlanStatuses[st] {
		return nil, 0, apierror.Invalid("invalid treatment plan status: %s", st)
	}
	return s.plans.Search(ctx, params, limit, offset)
}

func (s *Service) StartPlan(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return s.changePlan(ctx, id, func(p *TreatmentPlan) error { return p.Start() })
}

func (s *Service) DiscontinuePlan(ctx context.Context, id uuid.UUID, reason string) (*TreatmentPlan, error) {
	return s.changePlan(ctx, id, func(p *TreatmentPlan) error { return p.Discontinue(reason) })
}

func (s *Service) changePlan(ctx context.Context, id uuid.UUID, change func(*TreatmentPlan) error) (*TreatmentPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := p.Status
	if err := change(p); err != nil {
		return nil, err
	}
	if err := s.plans.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("plan_id", p.ID.String()).
		Str("from", string(from)).
		Str("to", string(p.Status)).
		Msg("treatment plan status changed")
	return p, nil
}
