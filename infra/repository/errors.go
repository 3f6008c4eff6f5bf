package repository

import (
	"errors"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pq error code for a unique-constraint violation.
const uniqueViolation = "23505"

// MapGormErrorToDomain converts GORM and driver errors to domain errors.
// This keeps infrastructure concerns (database errors) within the
// infrastructure layer. Traverses the error chain so wrapped errors map too.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}

	currentErr := err
	for currentErr != nil {
		switch {
		case errors.Is(currentErr, gorm.ErrDuplicatedKey):
			return domain.ErrAlreadyExists
		case errors.Is(currentErr, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		}
		var pqErr *pq.Error
		if errors.As(currentErr, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}

		currentErr = errors.Unwrap(currentErr)
	}

	// Return original error if no mapping found.
	return err
}

// WrapError wraps a GORM operation and automatically maps errors.
// This helper reduces boilerplate in repository methods while keeping code
// explicit.
//
// Usage:
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Create(&row).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}
