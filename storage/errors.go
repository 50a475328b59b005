package storage

import "errors"

// Storage error constants
var (
	// ErrIndicatorNotFound is returned when an indicator is not found
	ErrIndicatorNotFound = errors.New("indicator not found")

	// ErrObjectNotFound is returned when a top-level object is not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrDuplicateIndicator is returned when an indicator with the same type
	// and value already exists
	ErrDuplicateIndicator = errors.New("indicator with this type and value already exists")

	// ErrDuplicateActionType is returned when an action type name is taken
	ErrDuplicateActionType = errors.New("action type already exists")

	// ErrConflict is returned when an update was based on a stale version
	ErrConflict = errors.New("record was modified concurrently")

	// ErrDatabaseClosed is returned when attempting to use a closed database connection
	ErrDatabaseClosed = errors.New("database is closed")
)

// IsNotFound reports whether err is any of the not found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIndicatorNotFound) ||
		errors.Is(err, ErrObjectNotFound)
}

// IsDuplicate reports whether err is a uniqueness violation
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateIndicator) || errors.Is(err, ErrDuplicateActionType)
}
