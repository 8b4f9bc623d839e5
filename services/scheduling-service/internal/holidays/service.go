// Package holidays keeps the per-tenant calendar exceptions. A registered
// date closes the whole day for free-slot search.
package holidays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

const maxNameLength = 255

var ErrValidation = errors.New("validation failed")

// Cache is the subset of *redis.Client used for the IsHoliday cache.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

type Service struct {
	store  storage.HolidayStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewService builds the registry. cache may be nil.
func NewService(store storage.HolidayStore, cache Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(tenantID string, day wallclock.Date) string {
	return "holiday:" + tenantID + ":" + day.String()
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len([]rune(name)) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrValidation, maxNameLength)
	}
	return name, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, day wallclock.Date, name string) (model.Holiday, error) {
	name, err := validateName(name)
	if err != nil {
		return model.Holiday{}, err
	}
	if day.IsZero() {
		return model.Holiday{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	h := model.Holiday{ID: uuid.NewString(), TenantID: tenantID, Date: day, Name: name}
	if err := s.store.CreateHoliday(ctx, &h); err != nil {
		return model.Holiday{}, err
	}
	s.remember(ctx, tenantID, day, true)
	return h, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (model.Holiday, error) {
	return s.store.GetHoliday(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, offset, limit int) ([]model.Holiday, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > model.MaxListLimit {
		limit = model.DefaultListLimit
	}
	return s.store.ListHolidays(ctx, tenantID, offset, limit)
}

// Update patches date and name; nil keeps the stored value.
func (s *Service) Update(ctx context.Context, tenantID, id string, day *wallclock.Date, name *string) (model.Holiday, error) {
	h, err := s.store.GetHoliday(ctx, tenantID, id)
	if err != nil {
		return model.Holiday{}, err
	}
	previous := h.Date
	if name != nil {
		if h.Name, err = validateName(*name); err != nil {
			return model.Holiday{}, err
		}
	}
	if day != nil {
		if day.IsZero() {
			return model.Holiday{}, fmt.Errorf("%w: date is required", ErrValidation)
		}
		h.Date = *day
	}
	if err := s.store.UpdateHoliday(ctx, &h); err != nil {
		return model.Holiday{}, err
	}
	if previous != h.Date {
		s.remember(ctx, tenantID, previous, false)
	}
	s.remember(ctx, tenantID, h.Date, true)
	return h, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) (model.Holiday, error) {
	h, err := s.store.DeleteHoliday(ctx, tenantID, id)
	if err != nil {
		return model.Holiday{}, err
	}
	s.remember(ctx, tenantID, h.Date, false)
	return h, nil
}

// IsHoliday answers from the cache when it can and from the store otherwise.
// Cache failures are logged and never fail the lookup.
func (s *Service) IsHoliday(ctx context.Context, tenantID string, day wallclock.Date) (bool, error) {
	key := cacheKey(tenantID, day)
	if s.cache != nil {
		v, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			return v == "1", nil
		case errors.Is(err, redis.Nil):
		default:
			s.logger.Warn("holiday cache read failed", "key", key, "err", err)
		}
	}

	exists, err := s.store.HolidayExists(ctx, tenantID, day)
	if err != nil {
		return false, err
	}

	if s.cache != nil {
		// Misses only fill empty keys; registry writes overwrite.
		if err := s.cache.SetNX(ctx, key, cacheValue(exists), s.ttl).Err(); err != nil {
			s.logger.Warn("holiday cache write failed", "key", key, "err", err)
		}
	}
	return exists, nil
}

// remember writes the answer a registry change produced for day.
func (s *Service) remember(ctx context.Context, tenantID string, day wallclock.Date, closed bool) {
	if s.cache == nil {
		return
	}
	key := cacheKey(tenantID, day)
	if err := s.cache.Set(ctx, key, cacheValue(closed), s.ttl).Err(); err != nil {
		s.logger.Warn("holiday cache update failed", "tenant_id", tenantID, "key", key, "err", err)
	}
}

func cacheValue(closed bool) string {
	if closed {
		return "1"
	}
	return "0"
}
