package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

type SlotFinder interface {
	FindFreeSlots(ctx context.Context, q availability.Query) ([]wallclock.TimeOfDay, error)
}

type OverlapChecker interface {
	CheckOverlap(ctx context.Context, tenantID, professionalID string, start, end time.Time, excludeID string) (model.Appointment, bool, error)
}

type Server struct {
	slots    SlotFinder
	overlaps OverlapChecker
	logger   *slog.Logger
}

var _ SchedulingServer = (*Server)(nil)

func NewServer(slots SlotFinder, overlaps OverlapChecker, logger *slog.Logger) *Server {
	return &Server{slots: slots, overlaps: overlaps, logger: logger}
}

func (s *Server) FindFreeSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := in.GetFields()
	tenantID := stringField(f, "tenant_id")
	if tenantID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}
	day, err := wallclock.ParseDate(stringField(f, "date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}
	duration, ok := intField(f, "duration_minutes")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "duration_minutes must be an integer")
	}

	slots, err := s.slots.FindFreeSlots(ctx, availability.Query{
		TenantID:        tenantID,
		ProfessionalID:  stringField(f, "professional_id"),
		Date:            day,
		DurationMinutes: duration,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}

	list := make([]any, len(slots))
	for i, p := range slots {
		text, _ := p.MarshalText()
		list[i] = string(text)
	}
	return structpb.NewStruct(map[string]any{"slots": list})
}

func (s *Server) CheckOverlap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := in.GetFields()
	tenantID := stringField(f, "tenant_id")
	professionalID := stringField(f, "professional_id")
	if tenantID == "" || professionalID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id and professional_id are required")
	}
	start, err := wallclock.ParseDateTime(stringField(f, "start"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "start must be a date-time")
	}
	end, err := wallclock.ParseDateTime(stringField(f, "end"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "end must be a date-time")
	}

	conflict, found, err := s.overlaps.CheckOverlap(ctx, tenantID, professionalID, start, end, stringField(f, "exclude_id"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	out := map[string]any{"overlaps": found}
	if found {
		out["conflict_id"] = conflict.ID
		out["reason"] = (&booking.OverlapError{Conflict: conflict}).Error()
	}
	return structpb.NewStruct(out)
}

func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, booking.ErrInvalidRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, "not found")
	case storage.IsTransient(err):
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("grpc request failed", "err", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(f map[string]*structpb.Value, key string) string {
	return strings.TrimSpace(f[key].GetStringValue())
}

func intField(f map[string]*structpb.Value, key string) (int, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	n := v.GetNumberValue()
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}
