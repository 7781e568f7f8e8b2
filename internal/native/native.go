// Package native implements the [vfs.Driver] contract over a directory of
// the host file system. Every virtual path is resolved below that single
// root directory, and every open host file is tracked in the driver's
// handle table under the combined task/file identifier.
package native

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
	"golang.org/x/sys/unix"
)

const (
	// RootDirectory is the directory created below the base directory to
	// hold the virtual root.
	RootDirectory = "taskvfs"

	rootPerms      = 0o755
	directoryPerms = 0o777
	filePerms      = 0o666
)

type osProvider interface {
	Getwd() (string, error)
	Mkdir(name string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	RemoveAll(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Lstat(path string, stat *unix.Stat_t) error
}

type hostFile interface {
	io.ReadWriteSeeker
	Sync() error
	Close() error
}

type openFile struct {
	file  hostFile
	flags vfs.Flags
	path  vpath.Path
}

// Handler is the host file system driver.
type Handler struct {
	root        string
	osHandler   osProvider
	unixHandler unixProvider
	policy      vfs.SecurityPolicy
	files       *vfs.HandleTable[*openFile]
}

var _ vfs.Driver = (*Handler)(nil)

// ResolveRoot returns the host directory backing the virtual root: the
// [RootDirectory] below override, or below the working directory if
// override is empty. The directory is created if it does not exist yet.
func ResolveRoot(osHandler osProvider, override string) (string, error) {
	base := override
	if base == "" {
		wd, err := osHandler.Getwd()
		if err != nil {
			return "", fmt.Errorf("(native) failed to get working directory: %w: %w", ErrRootUnavailable, err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("(native) failed to resolve %q: %w: %w", base, ErrRootUnavailable, err)
	}

	root := filepath.Join(base, RootDirectory)

	if err := osHandler.Mkdir(root, rootPerms); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("(native) failed to create %q: %w: %w", root, ErrRootUnavailable, err)
	}

	return root, nil
}

// NewHandler returns a pointer to a new [Handler] serving the host
// directory root. A nil policy is replaced by [vfs.AllowAll].
func NewHandler(root string, osHandler osProvider, unixHandler unixProvider, policy vfs.SecurityPolicy) *Handler {
	if policy == nil {
		policy = vfs.AllowAll{}
	}

	return &Handler{
		root:        root,
		osHandler:   osHandler,
		unixHandler: unixHandler,
		policy:      policy,
		files:       vfs.NewHandleTable[*openFile](),
	}
}

// New resolves the virtual root below override (see [ResolveRoot]) and
// returns a [Handler] on the real host file system.
func New(override string, policy vfs.SecurityPolicy) (*Handler, error) {
	osHandler := &OS{}

	root, err := ResolveRoot(osHandler, override)
	if err != nil {
		return nil, err
	}

	slog.Debug("Resolved virtual root", "root", root)

	return NewHandler(root, osHandler, &Unix{}, policy), nil
}

// Root returns the host directory backing the virtual root.
func (h *Handler) Root() string {
	return h.root
}

// OpenCount returns the number of handles held by all tasks.
func (h *Handler) OpenCount() int {
	return h.files.Len()
}

func (h *Handler) fullPath(path vpath.Path) (string, error) {
	full := filepath.Join(h.root, filepath.FromSlash(path.String()))
	if len(full) >= unix.PathMax {
		return "", fmt.Errorf("(native) %s: %w", path, vfs.ErrInvalidPath)
	}

	return full, nil
}

// fail logs the host error and returns its taxonomy counterpart.
func fail(op string, path vpath.Path, err error) error {
	kind := mapError(err)

	slog.Debug("Host operation failed",
		"op", op,
		"path", path.String(),
		"err", err,
		"kind", kind,
	)

	return fmt.Errorf("(native) %s %s: %w", op, path, kind)
}

func (h *Handler) Exists(path vpath.Path) (bool, error) {
	full, err := h.fullPath(path)
	if err != nil {
		return false, err
	}

	if _, err := h.osHandler.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fail("exists", path, err)
	}

	return true, nil
}

func (h *Handler) CreateFile(_ vfs.TaskID, path vpath.Path) error {
	full, err := h.fullPath(path)
	if err != nil {
		return err
	}

	file, err := h.osHandler.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerms)
	if err != nil {
		return fail("create file", path, err)
	}

	if err := file.Close(); err != nil {
		return fail("create file", path, err)
	}

	return nil
}

func (h *Handler) Open(task vfs.TaskID, path vpath.Path, flags vfs.Flags) (vfs.FileID, error) {
	full, err := h.fullPath(path)
	if err != nil {
		return 0, err
	}

	file, err := h.osHandler.OpenFile(full, flags.OSFlags(), filePerms)
	if err != nil {
		return 0, fail("open", path, err)
	}

	id, err := h.files.Insert(task, &openFile{file: file, flags: flags, path: path})
	if err != nil {
		_ = file.Close()

		return 0, err
	}

	slog.Debug("Opened file",
		"task", task,
		"file", id,
		"path", path.String(),
		"mode", flags.Mode.String(),
	)

	return id, nil
}

func (h *Handler) Read(task vfs.TaskID, file vfs.FileID, buffer []byte) (vfs.Size, error) {
	entry, err := h.files.Get(task, file)
	if err != nil {
		return 0, err
	}

	if !entry.flags.CanRead() {
		return 0, fmt.Errorf("(native) read %s: %w", entry.path, vfs.ErrPermissionDenied)
	}

	n, err := entry.file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return vfs.Size(n), fail("read", entry.path, err) //nolint:gosec
	}

	return vfs.Size(n), nil //nolint:gosec
}

func (h *Handler) Write(task vfs.TaskID, file vfs.FileID, buffer []byte) (vfs.Size, error) {
	entry, err := h.files.Get(task, file)
	if err != nil {
		return 0, err
	}

	if !entry.flags.CanWrite() {
		return 0, fmt.Errorf("(native) write %s: %w", entry.path, vfs.ErrPermissionDenied)
	}

	n, err := entry.file.Write(buffer)
	if err != nil {
		return vfs.Size(n), fail("write", entry.path, err) //nolint:gosec
	}

	return vfs.Size(n), nil //nolint:gosec
}

func (h *Handler) SetPosition(task vfs.TaskID, file vfs.FileID, position vfs.Position) (vfs.Size, error) {
	entry, err := h.files.Get(task, file)
	if err != nil {
		return 0, err
	}

	if position.Whence == vfs.FromStart && position.Offset < 0 {
		return 0, fmt.Errorf("(native) seek %s to %d: %w", entry.path, position.Offset, vfs.ErrInvalidInput)
	}

	offset, err := entry.file.Seek(position.Offset, position.IOWhence())
	if err != nil {
		return 0, fail("seek", entry.path, err)
	}

	return vfs.Size(offset), nil //nolint:gosec
}

func (h *Handler) Flush(task vfs.TaskID, file vfs.FileID) error {
	entry, err := h.files.Get(task, file)
	if err != nil {
		return err
	}

	if !entry.flags.CanWrite() {
		return nil
	}

	if err := entry.file.Sync(); err != nil {
		return fail("flush", entry.path, err)
	}

	return nil
}

func (h *Handler) Close(task vfs.TaskID, file vfs.FileID) error {
	entry, err := h.files.Remove(task, file)
	if err != nil {
		return err
	}

	if err := entry.file.Close(); err != nil {
		return fail("close", entry.path, err)
	}

	slog.Debug("Closed file",
		"task", task,
		"file", file,
		"path", entry.path.String(),
	)

	return nil
}

func (h *Handler) CloseAll(task vfs.TaskID) error {
	removed := h.files.RemoveAll(task)

	for _, entry := range removed {
		if err := entry.file.Close(); err != nil {
			slog.Warn("Failed to close host file of terminated task",
				"task", task,
				"path", entry.path.String(),
				"err", err,
			)
		}
	}

	if len(removed) > 0 {
		slog.Debug("Closed all files of task", "task", task, "count", len(removed))
	}

	return nil
}

func (h *Handler) TransferFileIdentifier(oldTask, newTask vfs.TaskID, file vfs.FileID) (vfs.FileID, error) {
	return h.files.Transfer(oldTask, newTask, file)
}

// Delete removes a file, or a directory together with its content.
func (h *Handler) Delete(_ vfs.TaskID, path vpath.Path) error {
	if path.IsRoot() {
		return fmt.Errorf("(native) delete %s: %w", path, vfs.ErrPermissionDenied)
	}

	full, err := h.fullPath(path)
	if err != nil {
		return err
	}

	var stat unix.Stat_t
	if err := h.unixHandler.Lstat(full, &stat); err != nil {
		return fail("delete", path, err)
	}

	if err := h.osHandler.RemoveAll(full); err != nil {
		return fail("delete", path, err)
	}

	if observer, ok := h.policy.(vfs.NamespaceObserver); ok {
		if err := observer.Forget(path); err != nil {
			slog.Warn("Deleted path keeps stale metadata",
				"path", path.String(),
				"err", err,
			)

			return err
		}
	}

	return nil
}

func (h *Handler) Move(_ vfs.TaskID, source, destination vpath.Path) error {
	fullSource, err := h.fullPath(source)
	if err != nil {
		return err
	}

	fullDestination, err := h.fullPath(destination)
	if err != nil {
		return err
	}

	if err := h.osHandler.Rename(fullSource, fullDestination); err != nil {
		return fail("move", source, err)
	}

	if observer, ok := h.policy.(vfs.NamespaceObserver); ok {
		if err := observer.Rename(source, destination); err != nil {
			slog.Warn("Moved path lost its metadata",
				"source", source.String(),
				"destination", destination.String(),
				"err", err,
			)

			return err
		}
	}

	return nil
}

func (h *Handler) CreateDirectory(_ vfs.TaskID, path vpath.Path) error {
	full, err := h.fullPath(path)
	if err != nil {
		return err
	}

	if err := h.osHandler.Mkdir(full, directoryPerms); err != nil {
		return fail("create directory", path, err)
	}

	return nil
}

func (h *Handler) GetType(_ vfs.TaskID, path vpath.Path) (vfs.Type, error) {
	full, err := h.fullPath(path)
	if err != nil {
		return 0, err
	}

	var stat unix.Stat_t
	if err := h.unixHandler.Lstat(full, &stat); err != nil {
		return 0, fail("get type", path, err)
	}

	return typeOf(stat.Mode), nil
}

func (h *Handler) GetSize(_ vfs.TaskID, path vpath.Path) (vfs.Size, error) {
	full, err := h.fullPath(path)
	if err != nil {
		return 0, err
	}

	info, err := h.osHandler.Stat(full)
	if err != nil {
		return 0, fail("get size", path, err)
	}

	return vfs.Size(info.Size()), nil //nolint:gosec
}

// checkPath fails with [vfs.ErrNotFound] unless path exists on the host.
func (h *Handler) checkPath(op string, path vpath.Path) error {
	full, err := h.fullPath(path)
	if err != nil {
		return err
	}

	var stat unix.Stat_t
	if err := h.unixHandler.Lstat(full, &stat); err != nil {
		return fail(op, path, err)
	}

	return nil
}

func (h *Handler) GetOwner(task vfs.TaskID, path vpath.Path) (vfs.UserID, vfs.GroupID, error) {
	if err := h.checkPath("owner", path); err != nil {
		return 0, 0, err
	}

	return h.policy.Owner(task, path)
}

func (h *Handler) SetOwner(task vfs.TaskID, path vpath.Path, user *vfs.UserID, group *vfs.GroupID) error {
	if err := h.checkPath("chown", path); err != nil {
		return err
	}

	return h.policy.SetOwner(task, path, user, group)
}

func (h *Handler) GetPermissions(task vfs.TaskID, path vpath.Path) (vfs.Permissions, error) {
	if err := h.checkPath("permissions", path); err != nil {
		return vfs.Permissions{}, err
	}

	return h.policy.Permissions(task, path)
}

func (h *Handler) SetPermissions(task vfs.TaskID, path vpath.Path, permissions vfs.Permissions) error {
	if err := h.checkPath("chmod", path); err != nil {
		return err
	}

	return h.policy.SetPermissions(task, path, permissions)
}

func typeOf(mode uint32) vfs.Type {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return vfs.TypeDirectory
	case unix.S_IFLNK:
		return vfs.TypeSymbolicLink
	case unix.S_IFCHR:
		return vfs.TypeCharacterDevice
	case unix.S_IFBLK:
		return vfs.TypeBlockDevice
	case unix.S_IFIFO:
		return vfs.TypePipe
	case unix.S_IFSOCK:
		return vfs.TypeSocket
	default:
		return vfs.TypeFile
	}
}
