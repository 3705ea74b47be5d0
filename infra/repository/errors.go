package repository

import (
	"errors"

	"github.com/amirasaad/tradelens/pkg/domain"
	"gorm.io/gorm"
)

// mapGormError converts gorm errors to domain errors so callers never see
// database internals. The error chain is walked because gorm wraps driver
// errors.
func mapGormError(err error) error {
	if err == nil {
		return nil
	}
	for current := err; current != nil; current = errors.Unwrap(current) {
		switch {
		case errors.Is(current, gorm.ErrDuplicatedKey):
			return domain.ErrAlreadyExists
		case errors.Is(current, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		}
	}
	return err
}
