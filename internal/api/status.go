package api

import (
	"errors"
	"net/http"

	"github.com/adminkit/adminkit/internal/record"
)

// HTTPStatus maps a service-layer error onto an HTTP status code.
func HTTPStatus(err error) int {
	var validation *record.ValidationError
	var notAllowed *record.FieldNotAllowedError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, record.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, record.ErrAlreadyDeleted),
		errors.Is(err, record.ErrNotDeleted),
		errors.Is(err, record.ErrMultipleResults):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notAllowed):
		return http.StatusForbidden
	case record.IsDuplicate(err), record.IsForeignKeyViolation(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
