package structs

import "errors"

var (
	// ErrConflict is returned when an export is started while one is running.
	ErrConflict = errors.New("export is already running")
	// ErrStoreUnavailable wraps transport failures of the status store.
	ErrStoreUnavailable = errors.New("status store unavailable")
	// ErrUserCancelled ends an export whose status was changed by stop or clear.
	ErrUserCancelled = errors.New("export process was stopped by the user")
	// ErrImportShapeInvalid rejects an import payload that is not an array of objects.
	ErrImportShapeInvalid = errors.New("invalid data format, expected an array of user profiles")
	// ErrImportBusy rejects an import while another one is replacing the collection.
	ErrImportBusy = errors.New("another import is in progress")

	ErrFileNotSpecified = errors.New("file not specified")
	ErrFileForbidden    = errors.New("access is denied")
	ErrFileNotFound     = errors.New("file not found")
)
