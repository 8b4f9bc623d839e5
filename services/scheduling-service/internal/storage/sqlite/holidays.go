package sqlite

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

var _ storage.HolidayStore = (*Store)(nil)

func (s *Store) CreateHoliday(ctx context.Context, h *model.Holiday) error {
	row := holidayRow{ID: h.ID, TenantID: h.TenantID, Day: h.Date.String(), Name: h.Name}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return mapErr(err)
	}
	h.CreatedAt, h.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *Store) GetHoliday(ctx context.Context, tenantID, id string) (model.Holiday, error) {
	var row holidayRow
	if err := s.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&row).Error; err != nil {
		return model.Holiday{}, mapErr(err)
	}
	return row.model(), nil
}

func (s *Store) ListHolidays(ctx context.Context, tenantID string, offset, limit int) ([]model.Holiday, error) {
	var rows []holidayRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("day ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]model.Holiday, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) UpdateHoliday(ctx context.Context, h *model.Holiday) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&holidayRow{}).
		Where("tenant_id = ? AND id = ?", h.TenantID, h.ID).
		Updates(map[string]any{"day": h.Date.String(), "name": h.Name, "updated_at": now})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	stored, err := s.GetHoliday(ctx, h.TenantID, h.ID)
	if err != nil {
		return err
	}
	*h = stored
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, tenantID, id string) (model.Holiday, error) {
	h, err := s.GetHoliday(ctx, tenantID, id)
	if err != nil {
		return model.Holiday{}, err
	}
	res := s.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&holidayRow{})
	if res.Error != nil {
		return model.Holiday{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Holiday{}, storage.ErrNotFound
	}
	return h, nil
}

func (s *Store) HolidayExists(ctx context.Context, tenantID string, day wallclock.Date) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&holidayRow{}).
		Where("tenant_id = ? AND day = ?", tenantID, day.String()).
		Count(&n).Error
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}
