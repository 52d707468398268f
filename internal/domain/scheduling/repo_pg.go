package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/clinicflow/internal/platform/db"
)

type appointmentRepoPG struct{ pool db.Querier }

func NewAppointmentRepoPG(pool db.Querier) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, patient_id, doctor_id, department_id, room_id, appointment_type,
	status, workflow_status, start_time, end_time, reason, notes, department_code,
	department_specific_data, clinical_reference_type, clinical_reference_id,
	referring_department_id, version_id, created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var payload []byte
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DepartmentID, &a.RoomID, &a.AppointmentType,
		&a.Status, &a.WorkflowStatus, &a.StartTime, &a.EndTime, &a.Reason, &a.Notes, &a.DepartmentCode,
		&payload, &a.ClinicalReferenceType, &a.ClinicalReferenceID,
		&a.ReferringDepartmentID, &a.VersionID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &a.DepartmentData); err != nil {
		return nil, fmt.Errorf("decode department_specific_data of appointment %s: %w", a.ID, err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	payload, err := json.Marshal(a.DepartmentData)
	if err != nil {
		return fmt.Errorf("encode department_specific_data: %w", err)
	}
	a.ID = uuid.New()
	a.VersionID = 1
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, department_id, room_id, appointment_type,
			status, workflow_status, start_time, end_time, reason, notes, department_code,
			department_specific_data, clinical_reference_type, clinical_reference_id,
			referring_department_id, version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.DepartmentID, a.RoomID, a.AppointmentType,
		a.Status, a.WorkflowStatus, a.StartTime, a.EndTime, a.Reason, a.Notes, a.DepartmentCode,
		payload, a.ClinicalReferenceType, a.ClinicalReferenceID,
		a.ReferringDepartmentID, a.VersionID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	payload, err := json.Marshal(a.DepartmentData)
	if err != nil {
		return fmt.Errorf("encode department_specific_data: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET doctor_id=$2, department_id=$3, room_id=$4, appointment_type=$5,
			status=$6, workflow_status=$7, start_time=$8, end_time=$9, reason=$10, notes=$11,
			department_code=$12, department_specific_data=$13, clinical_reference_type=$14,
			clinical_reference_id=$15, referring_department_id=$16,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $17
		RETURNING version_id, updated_at`,
		a.ID, a.DoctorID, a.DepartmentID, a.RoomID, a.AppointmentType,
		a.Status, a.WorkflowStatus, a.StartTime, a.EndTime, a.Reason, a.Notes,
		a.DepartmentCode, payload, a.ClinicalReferenceType,
		a.ClinicalReferenceID, a.ReferringDepartmentID, a.VersionID,
	).Scan(&a.VersionID, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrConflict(ctx, a.ID)
	}
	return err
}

// missOrConflict explains why a versioned update matched no row.
func (r *appointmentRepoPG) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return db.ErrNotFound
	}
	return db.ErrConcurrentModification
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

var searchColumns = map[string]string{
	ParamPatient:        "patient_id = $%d",
	ParamDoctor:         "doctor_id = $%d",
	ParamDepartment:     "department_id = $%d",
	ParamDepartmentCode: "department_code = $%d",
	ParamStatus:         "status = $%d",
	ParamClinicalRef:    "clinical_reference_id = $%d",
	ParamFrom:           "start_time >= $%d",
	ParamTo:             "start_time < $%d",
}

var searchOrder = []string{
	ParamPatient, ParamDoctor, ParamDepartment, ParamDepartmentCode,
	ParamStatus, ParamClinicalRef, ParamFrom, ParamTo,
}

func (r *appointmentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments WHERE 1=1`
	var args []any
	idx := 1

	for _, key := range searchOrder {
		v, ok := params[key]
		if !ok {
			continue
		}
		arg, err := searchArg(key, v)
		if err != nil {
			return nil, 0, err
		}
		clause := fmt.Sprintf(" AND "+searchColumns[key], idx)
		query += clause
		countQuery += clause
		args = append(args, arg)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_time ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func searchArg(key, v string) (any, error) {
	switch key {
	case ParamPatient, ParamDoctor, ParamDepartment, ParamClinicalRef:
		return uuid.Parse(v)
	case ParamFrom, ParamTo:
		return ParseTimeParam(v)
	}
	return v, nil
}
