package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Repository is the call record store used by the webhook flow and the trigger.
//
// GetByCallSID must return the call with its patient joined, or ErrNotFound.
type Repository interface {
	GetPatient(ctx context.Context, patientID string) (Patient, error)
	Insert(ctx context.Context, c Call) (Call, error)
	GetByCallSID(ctx context.Context, callSID string) (Call, error)
	Update(ctx context.Context, callSID string, u Update) error
}

// Update lists the fields to change; nil fields are left untouched.
type Update struct {
	Status          *CallStatus
	StartTime       *time.Time
	DurationSeconds *int
	ResponseData    *ResponseData
}

func (u Update) Empty() bool {
	return u.Status == nil && u.StartTime == nil && u.DurationSeconds == nil && u.ResponseData == nil
}

// PostgresRepo stores calls in Postgres through database/sql (pgx stdlib driver).
//
// NOTE: This repository assumes the following tables exist:
// - patients (id, first_name, last_name, phone_number, voice, family_member_id)
// - calls (id, patient_id, call_sid UNIQUE, status, call_start_time, call_duration,
//   response_data JSONB, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetPatient(ctx context.Context, patientID string) (Patient, error) {
	const q = `
SELECT id, first_name, last_name, phone_number, COALESCE(voice, ''), family_member_id
FROM patients
WHERE id = $1
`
	var (
		p     Patient
		voice string
	)
	if err := r.db.QueryRowContext(ctx, q, patientID).Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.PhoneNumber,
		&voice,
		&p.FamilyMemberID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Patient{}, ErrNotFound
		}
		return Patient{}, fmt.Errorf("calls: get patient: %w", err)
	}
	p.Voice = ParseVoice(voice)
	return p, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, c Call) (Call, error) {
	if c.PatientID == "" || c.CallSID == "" {
		return Call{}, ErrInvalidArgument
	}
	data, err := json.Marshal(c.ResponseData)
	if err != nil {
		return Call{}, fmt.Errorf("calls: encode response data: %w", err)
	}
	const q = `
INSERT INTO calls (patient_id, call_sid, status, call_start_time, response_data)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at
`
	if err := r.db.QueryRowContext(ctx, q, c.PatientID, c.CallSID, c.Status, c.StartTime, data).Scan(&c.ID, &c.CreatedAt); err != nil {
		return Call{}, fmt.Errorf("calls: insert: %w", err)
	}
	return c, nil
}

func (r *PostgresRepo) GetByCallSID(ctx context.Context, callSID string) (Call, error) {
	const q = `
SELECT c.id, c.patient_id, c.call_sid, c.status, c.call_start_time, c.call_duration, c.response_data, c.created_at,
       p.id, p.first_name, p.last_name, p.phone_number, COALESCE(p.voice, ''), p.family_member_id
FROM calls c
JOIN patients p ON p.id = c.patient_id
WHERE c.call_sid = $1
`
	var (
		c        Call
		start    sql.NullTime
		duration sql.NullInt64
		raw      []byte
		voice    string
	)
	if err := r.db.QueryRowContext(ctx, q, callSID).Scan(
		&c.ID,
		&c.PatientID,
		&c.CallSID,
		&c.Status,
		&start,
		&duration,
		&raw,
		&c.CreatedAt,
		&c.Patient.ID,
		&c.Patient.FirstName,
		&c.Patient.LastName,
		&c.Patient.PhoneNumber,
		&voice,
		&c.Patient.FamilyMemberID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, fmt.Errorf("calls: get by call sid: %w", err)
	}
	if start.Valid {
		t := start.Time
		c.StartTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.ResponseData); err != nil {
			return Call{}, fmt.Errorf("calls: decode response data: %w", err)
		}
	}
	c.Patient.Voice = ParseVoice(voice)
	return c, nil
}

func (r *PostgresRepo) Update(ctx context.Context, callSID string, u Update) error {
	if u.Empty() {
		return nil
	}
	q, args, err := BuildUpdateSQL(callSID, u)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("calls: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("calls: update rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BuildUpdateSQL renders the UPDATE for the non-nil fields of u. Response data
// is encoded as JSON for the jsonb column.
func BuildUpdateSQL(callSID string, u Update) (string, []any, error) {
	if callSID == "" || u.Empty() {
		return "", nil, ErrInvalidArgument
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.StartTime != nil {
		add("call_start_time", *u.StartTime)
	}
	if u.DurationSeconds != nil {
		add("call_duration", *u.DurationSeconds)
	}
	if u.ResponseData != nil {
		data, err := json.Marshal(u.ResponseData)
		if err != nil {
			return "", nil, fmt.Errorf("calls: encode response data: %w", err)
		}
		add("response_data", data)
	}
	args = append(args, callSID)
	q := fmt.Sprintf("UPDATE calls SET %s WHERE call_sid = $%d", strings.Join(sets, ", "), len(args))
	return q, args, nil
}
