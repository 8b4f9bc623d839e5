package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	otelx "github.com/md-rashed-zaman/clinicagenda/libs/otel"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

// Store keeps everything in one SQLite database behind a single connection,
// which serialises transactions across the process.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens dsn (":memory:" for an ephemeral database) and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&appointmentRow{}, &holidayRow{}, &outboxRow{}, &inboxRow{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, mapErr(tx.Error)
	}
	return &Tx{db: tx}, nil
}

func (s *Store) GetAppointment(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	var row appointmentRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error
	if err != nil {
		return model.Appointment{}, mapErr(err)
	}
	return row.model(), nil
}

func (s *Store) ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	f = f.Normalize()
	q := s.db.WithContext(ctx).Model(&appointmentRow{}).Where("tenant_id = ?", f.TenantID)
	if f.ProfessionalID != "" {
		q = q.Where("professional_id = ?", f.ProfessionalID)
	}
	if f.SupervisorID != "" {
		q = q.Where("supervisor_id = ?", f.SupervisorID)
	}
	if f.ServiceID != "" {
		q = q.Where("service_id = ?", f.ServiceID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.Date.IsZero() {
		q = q.Where("start_time >= ? AND start_time < ?", f.Date.Midnight(), f.Date.AddDays(1).Midnight())
	}

	var rows []appointmentRow
	if err := q.Order("start_time ASC, id ASC").Limit(f.Limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	return toModels(rows), nil
}

func (s *Store) ListActiveOn(ctx context.Context, tenantID, professionalID string, day wallclock.Date) ([]model.Appointment, error) {
	q := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("start_time >= ? AND start_time < ?", day.Midnight(), day.AddDays(1).Midnight()).
		Where("status IN ?", statusStrings(model.ActiveStatuses))
	if professionalID != "" {
		q = q.Where("professional_id = ?", professionalID)
	}
	var rows []appointmentRow
	if err := q.Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	return toModels(rows), nil
}

// Claim implements outbox.Source.
func (s *Store) Claim(ctx context.Context, limit int, fn func([]outbox.Record) ([]int64, error)) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []outboxRow
		if err := tx.Where("published_at IS NULL").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		records := make([]outbox.Record, len(rows))
		for i, r := range rows {
			records[i] = outbox.Record{
				ID:            r.ID,
				EventID:       r.EventID,
				TenantID:      r.TenantID,
				AggregateType: r.AggregateType,
				AggregateID:   r.AggregateID,
				EventType:     r.EventType,
				Payload:       r.Payload,
				Traceparent:   r.Traceparent,
				Tracestate:    r.Tracestate,
				CreatedAt:     r.CreatedAt,
			}
		}
		var sent []int64
		sent, fnErr = fn(records)
		if len(sent) == 0 {
			return nil
		}
		return tx.Model(&outboxRow{}).Where("id IN ?", sent).Update("published_at", time.Now().UTC()).Error
	})
	if err != nil {
		return mapErr(err)
	}
	return fnErr
}

// RecordInbox reports false when eventID was already recorded.
func (s *Store) RecordInbox(ctx context.Context, eventID, eventType string) (bool, error) {
	err := s.db.WithContext(ctx).Create(&inboxRow{EventID: eventID, EventType: eventType, ReceivedAt: time.Now().UTC()}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

type Tx struct {
	db   *gorm.DB
	done bool
}

// LockProfessional is a no-op: the single connection already serialises
// every transaction.
func (t *Tx) LockProfessional(context.Context, string, string) error {
	return nil
}

func (t *Tx) GetAppointmentForUpdate(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	var row appointmentRow
	err := t.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&row).Error
	if err != nil {
		return model.Appointment{}, mapErr(err)
	}
	return row.model(), nil
}

func (t *Tx) FindOverlap(ctx context.Context, q model.OverlapQuery) (model.Appointment, bool, error) {
	query := t.db.WithContext(ctx).
		Where("tenant_id = ? AND professional_id = ?", q.TenantID, q.ProfessionalID).
		Where("end_time > ? AND start_time < ?", norm(q.Start), norm(q.End))
	if q.ExcludeID != "" {
		query = query.Where("id <> ?", q.ExcludeID)
	}
	if q.ActiveOnly {
		query = query.Where("status IN ?", statusStrings(model.ActiveStatuses))
	}
	var rows []appointmentRow
	if err := query.Order("start_time ASC").Limit(1).Find(&rows).Error; err != nil {
		return model.Appointment{}, false, mapErr(err)
	}
	if len(rows) == 0 {
		return model.Appointment{}, false, nil
	}
	return rows[0].model(), true, nil
}

func (t *Tx) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	row := toAppointmentRow(a)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return mapErr(err)
	}
	a.CreatedAt, a.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (t *Tx) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	row := toAppointmentRow(a)
	row.UpdatedAt = time.Now().UTC()
	res := t.db.WithContext(ctx).Model(&appointmentRow{}).
		Where("tenant_id = ? AND id = ?", a.TenantID, a.ID).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	a.UpdatedAt = row.UpdatedAt
	return nil
}

func (t *Tx) DeleteAppointment(ctx context.Context, tenantID, id string) error {
	res := t.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&appointmentRow{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *Tx) AppendEvent(ctx context.Context, evt model.Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	tc := otelx.CurrentTraceContext(ctx)
	row := outboxRow{
		EventID:       evt.ID,
		TenantID:      evt.TenantID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		Traceparent:   tc.Parent,
		Tracestate:    tc.State,
	}
	return mapErr(t.db.WithContext(ctx).Create(&row).Error)
}

func (t *Tx) Commit(context.Context) error {
	t.done = true
	return mapErr(t.db.Commit().Error)
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return mapErr(t.db.Rollback().Error)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", storage.ErrTransient, err)
	}
}

func toModels(rows []appointmentRow) []model.Appointment {
	out := make([]model.Appointment, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out
}

func statusStrings(in []model.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
