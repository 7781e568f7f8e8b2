package vfs

import "errors"

// The closed error taxonomy shared by every driver. Backend errors are
// translated into exactly one of these at the driver boundary; callers can
// match them with [errors.Is] or normalize any error with [Kind].
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidPath          = errors.New("invalid path")
	ErrInvalidFile          = errors.New("invalid file")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidIdentifier    = errors.New("invalid identifier")
	ErrTooManyOpenFiles     = errors.New("too many open files")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrInternalError        = errors.New("internal error")
	ErrUnknown              = errors.New("unknown error")
)

//nolint:gochecknoglobals
var kinds = []error{
	ErrNotFound,
	ErrAlreadyExists,
	ErrPermissionDenied,
	ErrInvalidPath,
	ErrInvalidFile,
	ErrInvalidInput,
	ErrInvalidIdentifier,
	ErrTooManyOpenFiles,
	ErrUnsupportedOperation,
	ErrInternalError,
	ErrUnknown,
}

// Kind returns the taxonomy member err belongs to. Errors outside of the
// taxonomy are reported as [ErrUnknown], nil stays nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return ErrUnknown
}

// Kinds returns all members of the error taxonomy.
func Kinds() []error {
	result := make([]error, len(kinds))
	copy(result, kinds)

	return result
}
