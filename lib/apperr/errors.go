// Package apperr defines the error kinds shared by repositories, the workflow
// and the API boundary. Producers wrap a kind with fmt.Errorf("%w: ...") and
// the boundary maps the kind to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("authentication failed")
	ErrForbidden       = errors.New("forbidden")
	ErrUpload          = errors.New("file upload failed")
	ErrPersistence     = errors.New("file record could not be saved")
)

// Validation wraps ErrValidation with a caller-facing message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound for the named entity.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Unauthenticated(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, reason)
}

func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// Upload marks a failure of the object storage half of a file save.
func Upload(key string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpload, key, cause)
}

// Persistence marks a failure of the metadata half of a file save.
func Persistence(key string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, key, cause)
}

// IsClientError reports whether err carries a kind whose message is safe to
// show to the caller verbatim.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrForbidden)
}

var kinds = []error{ErrValidation, ErrNotFound, ErrConflict, ErrUnauthenticated, ErrForbidden, ErrUpload, ErrPersistence}

// Message returns the text of err that follows its kind, so "conflict: name
// taken" becomes "name taken". Errors without a kind are returned unchanged.
func Message(err error) string {
	msg := err.Error()
	for _, kind := range kinds {
		if !errors.Is(err, kind) {
			continue
		}
		prefix := kind.Error() + ": "
		if i := strings.Index(msg, prefix); i >= 0 {
			return msg[i+len(prefix):]
		}
		return msg
	}
	return msg
}
