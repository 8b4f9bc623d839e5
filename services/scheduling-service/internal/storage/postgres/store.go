package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/clinicagenda/libs/db"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

const appointmentColumns = `
	id, tenant_id, patient_id, professional_id,
	COALESCE(supervisor_id, ''), COALESCE(treatment_id, ''), COALESCE(service_id, ''), COALESCE(care_type, ''),
	start_time, end_time, status, COALESCE(notes, ''), actual_start, actual_end, created_at, updated_at`

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ storage.Store = (*Store)(nil)

func New(pool *db.Pool) *Store {
	return &Store{pool: pool, outbox: outbox.NewRepository(pool)}
}

func (s *Store) Outbox() *outbox.Repository {
	return s.outbox
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return &Tx{tx: tx, outbox: s.outbox}, nil
}

func (s *Store) GetAppointment(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	a, err := scanAppointment(row)
	return a, mapErr(err)
}

func (s *Store) ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	f = f.Normalize()
	var (
		where = []string{"tenant_id = $1"}
		args  = []any{f.TenantID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProfessionalID != "" {
		add("professional_id = $%d", f.ProfessionalID)
	}
	if f.SupervisorID != "" {
		add("supervisor_id = $%d", f.SupervisorID)
	}
	if f.ServiceID != "" {
		add("service_id = $%d", f.ServiceID)
	}
	if f.PatientID != "" {
		add("patient_id = $%d", f.PatientID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.Date.IsZero() {
		add("start_time >= $%d", f.Date.Midnight())
		add("start_time < $%d", f.Date.AddDays(1).Midnight())
	}
	args = append(args, f.Limit, f.Offset)

	q := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY start_time, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return s.queryAppointments(ctx, q, args...)
}

func (s *Store) ListActiveOn(ctx context.Context, tenantID, professionalID string, day wallclock.Date) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
			AND ($2::text = '' OR professional_id = $2::text)
			AND start_time >= $3 AND start_time < $4
			AND status = ANY($5)
		ORDER BY start_time`,
		tenantID, professionalID, day.Midnight(), day.AddDays(1).Midnight(), statusStrings(model.ActiveStatuses))
}

func (s *Store) queryAppointments(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// LockProfessional takes a transaction-scoped advisory lock, so writers in
// other processes queue behind this one until commit or rollback.
func (t *Tx) LockProfessional(ctx context.Context, tenantID, professionalID string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, tenantID+":"+professionalID)
	return mapErr(err)
}

func (t *Tx) GetAppointmentForUpdate(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
	a, err := scanAppointment(row)
	return a, mapErr(err)
}

func (t *Tx) FindOverlap(ctx context.Context, q model.OverlapQuery) (model.Appointment, bool, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
			AND professional_id = $2
			AND end_time > $3
			AND start_time < $4
			AND ($5::text = '' OR id <> $5::text)
			AND (NOT $6::boolean OR status = ANY($7::text[]))
		ORDER BY start_time
		LIMIT 1`,
		q.TenantID, q.ProfessionalID, q.Start, q.End, q.ExcludeID, q.ActiveOnly, statusStrings(model.ActiveStatuses))
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, mapErr(err)
	}
	return a, true, nil
}

func (t *Tx) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, tenant_id, patient_id, professional_id, supervisor_id, treatment_id, service_id, care_type,
			 start_time, end_time, status, notes, actual_start, actual_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.TenantID, a.PatientID, a.ProfessionalID, nullable(a.SupervisorID), nullable(a.TreatmentID),
		nullable(a.ServiceID), nullable(a.CareType), a.StartTime, a.EndTime, string(a.Status), nullable(a.Notes),
		a.ActualStart, a.ActualEnd).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (t *Tx) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $3,
			professional_id = $4,
			supervisor_id = $5,
			treatment_id = $6,
			service_id = $7,
			care_type = $8,
			start_time = $9,
			end_time = $10,
			status = $11,
			notes = $12,
			actual_start = $13,
			actual_end = $14,
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING updated_at
	`, a.TenantID, a.ID, a.PatientID, a.ProfessionalID, nullable(a.SupervisorID), nullable(a.TreatmentID),
		nullable(a.ServiceID), nullable(a.CareType), a.StartTime, a.EndTime, string(a.Status), nullable(a.Notes),
		a.ActualStart, a.ActualEnd).Scan(&a.UpdatedAt)
	return mapErr(err)
}

func (t *Tx) DeleteAppointment(ctx context.Context, tenantID, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *Tx) AppendEvent(ctx context.Context, evt model.Event) error {
	return mapErr(t.outbox.Insert(ctx, t.tx, evt))
}

func (t *Tx) Commit(ctx context.Context) error {
	return mapErr(t.tx.Commit(ctx))
}

func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return mapErr(err)
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	err := row.Scan(
		&a.ID, &a.TenantID, &a.PatientID, &a.ProfessionalID,
		&a.SupervisorID, &a.TreatmentID, &a.ServiceID, &a.CareType,
		&a.StartTime, &a.EndTime, &status, &a.Notes,
		&a.ActualStart, &a.ActualEnd, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	a.StartTime = wallclock.Strip(a.StartTime)
	a.EndTime = wallclock.Strip(a.EndTime)
	a.ActualStart = stripPtr(a.ActualStart)
	a.ActualEnd = stripPtr(a.ActualEnd)
	return a, nil
}

func stripPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	s := wallclock.Strip(*t)
	return &s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func statusStrings(in []model.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
