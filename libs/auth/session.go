package auth

import (
	"context"
	"errors"
)

// Roles understood by the clinic API.
const (
	RoleAdmin        = "admin"
	RoleReception    = "reception"
	RoleProfessional = "professional"
	RoleSupervisor   = "supervisor"
)

var ErrNoSession = errors.New("no session in context")

// Session identifies the caller of a request. Every tenant-scoped operation
// reads the tenant from here, never from request input.
type Session struct {
	UserID   string
	TenantID string
	Role     string
}

type ctxKey int

const ctxKeySession ctxKey = iota

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(ctxKeySession).(Session)
	if !ok || s.TenantID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (s Session) HasRole(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
