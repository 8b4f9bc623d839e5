package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

const holidayColumns = `id, tenant_id, day, name, created_at, updated_at`

func (s *Store) CreateHoliday(ctx context.Context, h *model.Holiday) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO holidays (id, tenant_id, day, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, h.ID, h.TenantID, h.Date.Midnight(), h.Name).Scan(&h.CreatedAt, &h.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetHoliday(ctx context.Context, tenantID, id string) (model.Holiday, error) {
	h, err := scanHoliday(s.pool.QueryRow(ctx, `SELECT `+holidayColumns+`
		FROM holidays WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	return h, mapErr(err)
}

func (s *Store) ListHolidays(ctx context.Context, tenantID string, offset, limit int) ([]model.Holiday, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+holidayColumns+`
		FROM holidays WHERE tenant_id = $1
		ORDER BY day
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Holiday{}
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, h)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateHoliday(ctx context.Context, h *model.Holiday) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE holidays SET day = $3, name = $4, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING created_at, updated_at
	`, h.TenantID, h.ID, h.Date.Midnight(), h.Name).Scan(&h.CreatedAt, &h.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteHoliday(ctx context.Context, tenantID, id string) (model.Holiday, error) {
	h, err := scanHoliday(s.pool.QueryRow(ctx, `
		DELETE FROM holidays WHERE tenant_id = $1 AND id = $2
		RETURNING `+holidayColumns, tenantID, id))
	return h, mapErr(err)
}

func (s *Store) HolidayExists(ctx context.Context, tenantID string, day wallclock.Date) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM holidays WHERE tenant_id = $1 AND day = $2)
	`, tenantID, day.Midnight()).Scan(&exists)
	return exists, mapErr(err)
}

func scanHoliday(row pgx.Row) (model.Holiday, error) {
	var (
		h   model.Holiday
		day time.Time
	)
	if err := row.Scan(&h.ID, &h.TenantID, &day, &h.Name, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return model.Holiday{}, err
	}
	h.Date = wallclock.DateOf(day)
	return h, nil
}

var _ storage.HolidayStore = (*Store)(nil)
