package physio

import (
	"context"

	"github.com/google/uuid"
)

// Updates on both repositories are versioned: they fail with
// db.ErrConcurrentModification on a stale VersionID and bump it on success.

type EvaluationRepository interface {
	Create(ctx context.Context, m *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, m *MedicalRecord) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error)
}

type TreatmentPlanRepository interface {
	Create(ctx context.Context, p *TreatmentPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error)
	// GetByMedicalRecord returns db.ErrNotFound when the evaluation owns no plan.
	GetByMedicalRecord(ctx context.Context, medicalRecordID uuid.UUID) (*TreatmentPlan, error)
	Update(ctx context.Context, p *TreatmentPlan) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*TreatmentPlan, int, error)
}
