package physio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/clinicflow/internal/platform/apierror"
	"github.com/ehr/clinicflow/internal/platform/db"
)

func connFor(ctx context.Context, pool db.Querier) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// missOrConflict explains why a versioned update on table matched no row.
func missOrConflict(ctx context.Context, q db.Querier, table string, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return db.ErrNotFound
	}
	return db.ErrConcurrentModification
}

// filterQuery appends "AND col = $n" clauses for the params present, in the
// order of keys.
func filterQuery(base string, params map[string]string, keys []string, columns map[string]string) (string, []any, error) {
	query := base
	var args []any
	for _, k := range keys {
		v, ok := params[k]
		if !ok {
			continue
		}
		var arg any = v
		if k != "status" {
			id, err := uuid.Parse(v)
			if err != nil {
				return "", nil, apierror.Invalid("invalid %s", k)
			}
			arg = id
		}
		args = append(args, arg)
		query += fmt.Sprintf(" AND %s = $%d", columns[k], len(args))
	}
	return query, args, nil
}

// =========== Evaluation Repository ===========

type evaluationRepoPG struct{ pool db.Querier }

func NewEvaluationRepoPG(pool db.Querier) EvaluationRepository {
	return &evaluationRepoPG{pool: pool}
}

func (r *evaluationRepoPG) conn(ctx context.Context) db.Querier { return connFor(ctx, r.pool) }

const evalCols = `id, patient_id, therapist_id, appointment_id, chief_complaint,
	vas_score, oswestry_score, dash_score, roland_morris_score, rom_measurements, strength_grade,
	diagnosis, short_term_goals, long_term_goals, informed_consent_signed, status, closed_at,
	version_id, created_at, updated_at`

func (r *evaluationRepoPG) scanEvaluation(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	var rom, strength []byte
	err := row.Scan(&m.ID, &m.PatientID, &m.TherapistID, &m.AppointmentID, &m.ChiefComplaint,
		&m.VASScore, &m.OswestryScore, &m.DASHScore, &m.RolandMorrisScore, &rom, &strength,
		&m.Diagnosis, &m.ShortTermGoals, &m.LongTermGoals, &m.InformedConsentSigned, &m.Status, &m.ClosedAt,
		&m.VersionID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(rom) > 0 {
		if err := json.Unmarshal(rom, &m.ROMMeasurements); err != nil {
			return nil, fmt.Errorf("decode rom_measurements: %w", err)
		}
	}
	if len(strength) > 0 {
		if err := json.Unmarshal(strength, &m.StrengthGrades); err != nil {
			return nil, fmt.Errorf("decode strength_grade: %w", err)
		}
	}
	return &m, nil
}

func encodeMeasurements(m *MedicalRecord) (rom, strength []byte, err error) {
	if m.ROMMeasurements == nil {
		m.ROMMeasurements = []ROMMeasurement{}
	}
	if m.StrengthGrades == nil {
		m.StrengthGrades = []StrengthGrade{}
	}
	if rom, err = json.Marshal(m.ROMMeasurements); err != nil {
		return nil, nil, err
	}
	if strength, err = json.Marshal(m.StrengthGrades); err != nil {
		return nil, nil, err
	}
	return rom, strength, nil
}

func (r *evaluationRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	rom, strength, err := encodeMeasurements(m)
	if err != nil {
		return fmt.Errorf("encode measurements: %w", err)
	}
	m.ID = uuid.New()
	m.VersionID = 1
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO physio_medical_records (id, patient_id, therapist_id, appointment_id, chief_complaint,
			vas_score, oswestry_score, dash_score, roland_morris_score, rom_measurements, strength_grade,
			diagnosis, short_term_goals, long_term_goals, informed_consent_signed, status, version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.TherapistID, m.AppointmentID, m.ChiefComplaint,
		m.VASScore, m.OswestryScore, m.DASHScore, m.RolandMorrisScore, rom, strength,
		m.Diagnosis, m.ShortTermGoals, m.LongTermGoals, m.InformedConsentSigned, m.Status, m.VersionID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *evaluationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m, err := r.scanEvaluation(r.conn(ctx).QueryRow(ctx, `SELECT `+evalCols+` FROM physio_medical_records WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return m, nil
}

func (r *evaluationRepoPG) Update(ctx context.Context, m *MedicalRecord) error {
	rom, strength, err := encodeMeasurements(m)
	if err != nil {
		return fmt.Errorf("encode measurements: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE physio_medical_records SET appointment_id=$2, chief_complaint=$3, vas_score=$4,
			oswestry_score=$5, dash_score=$6, roland_morris_score=$7, rom_measurements=$8,
			strength_grade=$9, diagnosis=$10, short_term_goals=$11, long_term_goals=$12,
			informed_consent_signed=$13, status=$14, closed_at=$15,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $16
		RETURNING version_id, updated_at`,
		m.ID, m.AppointmentID, m.ChiefComplaint, m.VASScore,
		m.OswestryScore, m.DASHScore, m.RolandMorrisScore, rom,
		strength, m.Diagnosis, m.ShortTermGoals, m.LongTermGoals,
		m.InformedConsentSigned, m.Status, m.ClosedAt, m.VersionID,
	).Scan(&m.VersionID, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return missOrConflict(ctx, r.conn(ctx), "physio_medical_records", m.ID)
	}
	return err
}

var evalFilters = map[string]string{"patient_id": "patient_id", "therapist_id": "therapist_id", "status": "status"}

func (r *evaluationRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error) {
	where, args, err := filterQuery(" WHERE 1=1", params, []string{"patient_id", "therapist_id", "status"}, evalFilters)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM physio_medical_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + evalCols + ` FROM physio_medical_records` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		m, err := r.scanEvaluation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// =========== Treatment Plan Repository ===========

type planRepoPG struct{ pool db.Querier }

func NewTreatmentPlanRepoPG(pool db.Querier) TreatmentPlanRepository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) db.Querier { return connFor(ctx, r.pool) }

const planCols = `id, patient_id, medical_record_id, therapist_id, plan_type, sessions_per_week,
	total_sessions_prescribed, sessions_completed, status, start_date, expected_end_date,
	discontinued_reason, version_id, created_at, updated_at`

func (r *planRepoPG) scanPlan(row pgx.Row) (*TreatmentPlan, error) {
	var p TreatmentPlan
	err := row.Scan(&p.ID, &p.PatientID, &p.MedicalRecordID, &p.TherapistID, &p.PlanType, &p.SessionsPerWeek,
		&p.TotalSessionsPrescribed, &p.SessionsCompleted, &p.Status, &p.StartDate, &p.ExpectedEndDate,
		&p.DiscontinuedReason, &p.VersionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *TreatmentPlan) error {
	p.ID = uuid.New()
	p.VersionID = 1
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO physio_treatment_plans (id, patient_id, medical_record_id, therapist_id, plan_type,
			sessions_per_week, total_sessions_prescribed, sessions_completed, status, start_date,
			expected_end_date, discontinued_reason, version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.MedicalRecordID, p.TherapistID, p.PlanType,
		p.SessionsPerWeek, p.TotalSessionsPrescribed, p.SessionsCompleted, p.Status, p.StartDate,
		p.ExpectedEndDate, p.DiscontinuedReason, p.VersionID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrPlanAlreadyExists
	}
	return err
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	p, err := r.scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM physio_treatment_plans WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return p, nil
}

func (r *planRepoPG) GetByMedicalRecord(ctx context.Context, medicalRecordID uuid.UUID) (*TreatmentPlan, error) {
	p, err := r.scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM physio_treatment_plans WHERE medical_record_id = $1 ORDER BY created_at LIMIT 1`, medicalRecordID))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return p, nil
}

func (r *planRepoPG) Update(ctx context.Context, p *TreatmentPlan) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE physio_treatment_plans SET therapist_id=$2, sessions_per_week=$3,
			total_sessions_prescribed=$4, sessions_completed=$5, status=$6, start_date=$7,
			expected_end_date=$8, discontinued_reason=$9,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $10
		RETURNING version_id, updated_at`,
		p.ID, p.TherapistID, p.SessionsPerWeek,
		p.TotalSessionsPrescribed, p.SessionsCompleted, p.Status, p.StartDate,
		p.ExpectedEndDate, p.DiscontinuedReason, p.VersionID,
	).Scan(&p.VersionID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return missOrConflict(ctx, r.conn(ctx), "physio_treatment_plans", p.ID)
	}
	return err
}

var planFilters = map[string]string{"patient_id": "patient_id", "medical_record_id": "medical_record_id", "status": "status"}

func (r *planRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*TreatmentPlan, int, error) {
	where, args, err := filterQuery(" WHERE 1=1", params, []string{"patient_id", "medical_record_id", "status"}, planFilters)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM physio_treatment_plans`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + planCols + ` FROM physio_treatment_plans` + where +
		fmt.Sprintf(` ORDER BY start_date DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TreatmentPlan
	for rows.Next() {
		p, err := r.scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
