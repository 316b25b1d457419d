package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// MapError converts pgx/pgconn errors to domain errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass through.
// Connection loss, server timeouts and serialization conflicts become
// domain.ErrTransient so callers can retry them.
func MapError(err error, entity, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrAlreadyExists)
		case pgErr.Code == "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrValidation)
		case isTransientCode(pgErr.Code):
			return fmt.Errorf("%s %s: %w: %w", entity, key, domain.ErrTransient, err)
		}
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) || isConnectError(err) {
		return fmt.Errorf("%s %s: %w: %w", entity, key, domain.ErrTransient, err)
	}

	return fmt.Errorf("%s %s: %w", entity, key, err)
}

func isTransientCode(code string) bool {
	switch code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"53300", // too_many_connections
		"55P03", // lock_not_available
		"57014", // query_canceled (statement_timeout)
		"57P01", // admin_shutdown
		"57P02", // crash_shutdown
		"57P03": // cannot_connect_now
		return true
	}
	// Class 08: connection exception.
	return len(code) == 5 && code[:2] == "08"
}

func isConnectError(err error) bool {
	var ce *pgconn.ConnectError
	return errors.As(err, &ce)
}
