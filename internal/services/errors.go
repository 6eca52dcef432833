package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
)

// notFoundOr converts a gorm missing-row error into the NotFound kind,
// passing every other store error through unchanged.
func notFoundOr(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	return err
}
