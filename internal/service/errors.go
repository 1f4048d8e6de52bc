package service

import (
	"errors"

	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

// toStandardError maps domain errors onto the request-surface taxonomy.
// Anything unrecognised is a store failure.
func toStandardError(err error) *apperrors.StandardError {
	var (
		stdErr   *apperrors.StandardError
		missing  *listing.MissingFieldError
		coercion *schema.CoercionError
	)
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.As(err, &missing):
		return apperrors.NewValidationFailedError(missing.Field)
	case errors.As(err, &coercion):
		e := apperrors.NewValidationFailedError(coercion.Field)
		e.Message = "Invalid value for field: " + coercion.Field
		e.Details = coercion.Error()
		return e
	case errors.Is(err, listing.ErrNotFound):
		return apperrors.NewNotFoundError()
	case errors.Is(err, listing.ErrForbidden):
		return apperrors.NewForbiddenError()
	case errors.Is(err, listing.ErrInvalidStatus):
		return apperrors.NewInvalidRequestError(err.Error())
	default:
		return apperrors.NewStoreError(err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, listing.ErrNotFound)
}
