package holidays

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

type fixedHoliday struct {
	Month time.Month
	Day   int
	Name  string
}

// National is the fixed-date national holiday list.
var National = []fixedHoliday{
	{time.January, 1, "Confraternização Universal"},
	{time.April, 21, "Tiradentes"},
	{time.May, 1, "Dia do Trabalhador"},
	{time.September, 7, "Independência do Brasil"},
	{time.October, 12, "Nossa Senhora Aparecida"},
	{time.November, 2, "Finados"},
	{time.November, 15, "Proclamação da República"},
	{time.November, 20, "Dia Nacional de Zumbi e da Consciência Negra"},
	{time.December, 25, "Natal"},
}

// Seed registers the national holidays of year for every tenant and returns
// how many were inserted. Dates already registered are left alone.
func (s *Service) Seed(ctx context.Context, year int, tenants []string) (int, error) {
	inserted := 0
	for _, tenantID := range tenants {
		for _, fh := range National {
			day := wallclock.NewDate(year, fh.Month, fh.Day)
			exists, err := s.store.HolidayExists(ctx, tenantID, day)
			if err != nil {
				return inserted, err
			}
			if exists {
				continue
			}
			if _, err := s.Create(ctx, tenantID, day, fh.Name); err != nil {
				if storage.IsDuplicate(err) {
					continue
				}
				return inserted, err
			}
			inserted++
		}
		s.logger.Info("holidays seeded", "tenant_id", tenantID, "year", year)
	}
	return inserted, nil
}
