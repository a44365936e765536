package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

// lookupError maps a failed single-row lookup onto the API taxonomy: a
// missing row surfaces as NOT_FOUND, anything else as an internal failure.
func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}
