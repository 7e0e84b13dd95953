package repository

import (
	"errors"

	"github.com/lib/pq"

	"vilatur/internal/model"
)

const pqUniqueViolation = "23505"

func storageErr(op string, err error) error {
	return &model.StorageError{Op: op, Err: err}
}

// uniqueViolation returns the violated constraint name, or "" if err is not a unique violation.
func uniqueViolation(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
