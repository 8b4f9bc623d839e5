package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
)

const (
	codeExclusionViolation = "23P01"
	codeUniqueViolation    = "23505"
)

// mapErr translates pgx errors into the storage error taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeExclusionViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.ConstraintName)
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, pgErr.ConstraintName)
		case retryable(pgErr.Code):
			return fmt.Errorf("%w: %v", storage.ErrTransient, err)
		default:
			return err
		}
	}
	// anything that never reached the server: dial, reset, pool closed
	return fmt.Errorf("%w: %v", storage.ErrTransient, err)
}

func retryable(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"): // connection exception
		return true
	case code == "40001", code == "40P01": // serialization failure, deadlock
		return true
	case code == "57P01", code == "57P03": // admin shutdown, cannot connect now
		return true
	}
	return false
}
