// Package vfs defines the contract shared by every file system and device
// driver, the error taxonomy they report, and the handle multiplexing that
// lets concurrently running tasks share one driver instance.
//
// A caller only ever talks to a [Driver]. Whether a path is backed by a host
// file or by hardware (a screen, a pointer) is invisible to it: devices are
// files whose reads and writes carry fixed-size records.
package vfs

import "github.com/desertwitch/taskvfs/internal/vpath"

// Driver is the operation set every backend implements. All methods must be
// safe for concurrent use by multiple tasks.
type Driver interface {
	// Exists reports whether path exists. A missing path is not an error.
	Exists(path vpath.Path) (bool, error)

	// CreateFile creates an empty file. It fails with [ErrAlreadyExists] if
	// the path is taken and [ErrPermissionDenied] if the parent directory is
	// not writable.
	CreateFile(task TaskID, path vpath.Path) error

	// Open opens path for task. It fails with [ErrNotFound] if the path is
	// absent, [ErrPermissionDenied] if the flags are incompatible with the
	// file, and [ErrTooManyOpenFiles] if the task has no free identifier.
	Open(task TaskID, path vpath.Path, flags Flags) (FileID, error)

	// Read reads into buffer. Unknown handles fail with
	// [ErrInvalidIdentifier]; record devices fail with [ErrInvalidInput] on
	// a buffer of the wrong size.
	Read(task TaskID, file FileID, buffer []byte) (Size, error)

	// Write writes buffer, with the same constraints as Read. Read-only
	// devices fail with [ErrUnsupportedOperation].
	Write(task TaskID, file FileID, buffer []byte) (Size, error)

	// SetPosition moves the offset of an open file and returns the new
	// absolute offset. Devices without an offset fail with
	// [ErrUnsupportedOperation].
	SetPosition(task TaskID, file FileID, position Position) (Size, error)

	// Flush flushes buffered data. Backends with nothing to flush succeed.
	Flush(task TaskID, file FileID) error

	// Close closes one handle of task.
	Close(task TaskID, file FileID) error

	// CloseAll closes every handle of task. A task without handles succeeds.
	CloseAll(task TaskID) error

	// TransferFileIdentifier moves an open handle from one task to another
	// and returns its identifier in the new task.
	TransferFileIdentifier(oldTask, newTask TaskID, file FileID) (FileID, error)

	// Delete removes path.
	Delete(task TaskID, path vpath.Path) error

	// Move renames source to destination.
	Move(task TaskID, source, destination vpath.Path) error

	// CreateDirectory creates a directory. It fails with [ErrAlreadyExists]
	// if the path is taken.
	CreateDirectory(task TaskID, path vpath.Path) error

	GetType(task TaskID, path vpath.Path) (Type, error)
	GetSize(task TaskID, path vpath.Path) (Size, error)

	// Owner and permission operations delegate to the driver's
	// [SecurityPolicy].
	GetOwner(task TaskID, path vpath.Path) (UserID, GroupID, error)
	SetOwner(task TaskID, path vpath.Path, user *UserID, group *GroupID) error
	GetPermissions(task TaskID, path vpath.Path) (Permissions, error)
	SetPermissions(task TaskID, path vpath.Path, permissions Permissions) error
}

// SecurityPolicy supplies file ownership and permissions. Drivers hold one
// and forward the owner/permission operations to it, so a real permission
// store can replace the default without touching any driver.
type SecurityPolicy interface {
	Owner(task TaskID, path vpath.Path) (UserID, GroupID, error)

	// SetOwner changes the owning user and/or group; a nil value leaves the
	// respective part unchanged.
	SetOwner(task TaskID, path vpath.Path, user *UserID, group *GroupID) error

	Permissions(task TaskID, path vpath.Path) (Permissions, error)
	SetPermissions(task TaskID, path vpath.Path, permissions Permissions) error
}

// NamespaceObserver is implemented by a [SecurityPolicy] that keeps state
// per path. Drivers call it after a namespace change succeeded; both
// methods apply to the path and everything below it.
type NamespaceObserver interface {
	Forget(path vpath.Path) error
	Rename(source, destination vpath.Path) error
}

// AllowAll is the default [SecurityPolicy]: everything belongs to user and
// group 0, everybody has full permissions, and updates are accepted but not
// recorded.
type AllowAll struct{}

func (AllowAll) Owner(TaskID, vpath.Path) (UserID, GroupID, error) {
	return 0, 0, nil
}

func (AllowAll) SetOwner(TaskID, vpath.Path, *UserID, *GroupID) error {
	return nil
}

func (AllowAll) Permissions(TaskID, vpath.Path) (Permissions, error) {
	return NewAllFull(), nil
}

func (AllowAll) SetPermissions(TaskID, vpath.Path, Permissions) error {
	return nil
}
