package model

import (
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

// Holiday is a per-tenant calendar exception: the whole day is closed.
type Holiday struct {
	ID        string
	TenantID  string
	Date      wallclock.Date
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
