package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aEnd.After(bStart) && aStart.Before(bEnd)
}

// Guard checks a professional's calendar inside a transaction. With
// ActiveOnly unset every stored appointment blocks, cancelled ones included.
type Guard struct {
	ActiveOnly bool
}

func (g Guard) query(tenantID, professionalID string, start, end time.Time, excludeID string) (model.OverlapQuery, error) {
	start, end = wallclock.Strip(start), wallclock.Strip(end)
	if !end.After(start) {
		return model.OverlapQuery{}, ErrInvalidRange
	}
	return model.OverlapQuery{
		TenantID:       tenantID,
		ProfessionalID: professionalID,
		Start:          start,
		End:            end,
		ExcludeID:      excludeID,
		ActiveOnly:     g.ActiveOnly,
	}, nil
}

// AssertNoOverlap returns an *OverlapError when another appointment of the
// professional intersects [start, end). excludeID skips the appointment being
// updated.
func (g Guard) AssertNoOverlap(ctx context.Context, tx storage.Tx, tenantID, professionalID string, start, end time.Time, excludeID string) error {
	q, err := g.query(tenantID, professionalID, start, end, excludeID)
	if err != nil {
		return err
	}
	conflict, found, err := tx.FindOverlap(ctx, q)
	if err != nil {
		return err
	}
	if found {
		return &OverlapError{Conflict: conflict}
	}
	return nil
}
