package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgLockNotAvailable    = "55P03"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsContentionErr reports whether err is a lock or serialization failure
// that a caller may choose to retry.
func IsContentionErr(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailed, pgDeadlockDetected:
			return true
		}
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "Error 1213") ||
		strings.Contains(msg, "Error 1205")
}
