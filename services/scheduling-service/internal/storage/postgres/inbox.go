package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// RecordInbox stores a consumed event id. It reports false when the event was
// already processed.
func (s *Store) RecordInbox(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO inbox_events (event_id, event_type) VALUES ($1, $2)`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return false, nil
	}
	return false, mapErr(err)
}
