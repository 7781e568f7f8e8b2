package native

import (
	"errors"
	"io/fs"

	"github.com/desertwitch/taskvfs/internal/vfs"
	"golang.org/x/sys/unix"
)

// ErrRootUnavailable occurs when the host directory backing the virtual
// root can neither be found nor created.
var ErrRootUnavailable = errors.New("virtual root unavailable")

// mapError translates a host error into the shared taxonomy. It is the only
// place where host error vocabulary is interpreted.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrPermission):
		return vfs.ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return vfs.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		return vfs.ErrAlreadyExists
	case errors.Is(err, fs.ErrInvalid),
		errors.Is(err, unix.EINVAL),
		errors.Is(err, unix.ENAMETOOLONG):
		return vfs.ErrInvalidPath
	case errors.Is(err, unix.EISDIR),
		errors.Is(err, unix.ENOTDIR),
		errors.Is(err, unix.EBADF):
		return vfs.ErrInvalidFile
	default:
		return vfs.ErrUnknown
	}
}
