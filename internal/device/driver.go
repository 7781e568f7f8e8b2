package device

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
)

type openDevice struct {
	device Device
	flags  vfs.Flags
	path   vpath.Path
}

// Driver is a [vfs.Driver] over a flat set of attached devices. The root is
// a directory containing one character device per attachment; the namespace
// itself cannot be changed through the driver contract.
type Driver struct {
	sync.RWMutex
	devices map[string]Device
	policy  vfs.SecurityPolicy
	files   *vfs.HandleTable[*openDevice]
}

var _ vfs.Driver = (*Driver)(nil)

// NewDriver returns a pointer to a new, empty [Driver]. A nil policy is
// replaced with [vfs.AllowAll].
func NewDriver(policy vfs.SecurityPolicy) *Driver {
	if policy == nil {
		policy = vfs.AllowAll{}
	}

	return &Driver{
		devices: make(map[string]Device),
		policy:  policy,
		files:   vfs.NewHandleTable[*openDevice](),
	}
}

// Attach makes device available at path.
func (d *Driver) Attach(path vpath.Path, device Device) error {
	if path.IsRoot() {
		return fmt.Errorf("(device) attach %s: %w", path, vfs.ErrInvalidPath)
	}

	d.Lock()
	defer d.Unlock()

	if _, exists := d.devices[path.String()]; exists {
		return fmt.Errorf("(device) attach %s: %w", path, vfs.ErrAlreadyExists)
	}
	d.devices[path.String()] = device

	slog.Debug("Attached device", "path", path.String())

	return nil
}

// Detach removes the device at path. Handles that are already open keep
// working until they are closed.
func (d *Driver) Detach(path vpath.Path) error {
	d.Lock()
	defer d.Unlock()

	if _, exists := d.devices[path.String()]; !exists {
		return fmt.Errorf("(device) detach %s: %w", path, vfs.ErrNotFound)
	}
	delete(d.devices, path.String())

	slog.Debug("Detached device", "path", path.String())

	return nil
}

// Paths returns the attached device paths in lexical order.
func (d *Driver) Paths() []string {
	d.RLock()
	defer d.RUnlock()

	paths := make([]string, 0, len(d.devices))
	for path := range d.devices {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths
}

// OpenCount returns the number of open handles of all tasks.
func (d *Driver) OpenCount() int {
	return d.files.Len()
}

func (d *Driver) lookup(op string, path vpath.Path) (Device, error) {
	d.RLock()
	defer d.RUnlock()

	device, exists := d.devices[path.String()]
	if !exists {
		return nil, fmt.Errorf("(device) %s %s: %w", op, path, vfs.ErrNotFound)
	}

	return device, nil
}

// checkPath fails with [vfs.ErrNotFound] unless path is the root or a device.
func (d *Driver) checkPath(op string, path vpath.Path) error {
	if path.IsRoot() {
		return nil
	}

	_, err := d.lookup(op, path)

	return err
}

func (d *Driver) Exists(path vpath.Path) (bool, error) {
	if err := d.checkPath("exists", path); err != nil {
		return false, nil //nolint:nilerr
	}

	return true, nil
}

func (d *Driver) CreateFile(_ vfs.TaskID, path vpath.Path) error {
	return fmt.Errorf("(device) create %s: %w", path, vfs.ErrUnsupportedOperation)
}

func (d *Driver) Open(task vfs.TaskID, path vpath.Path, flags vfs.Flags) (vfs.FileID, error) {
	if path.IsRoot() {
		return 0, fmt.Errorf("(device) open %s: %w", path, vfs.ErrInvalidFile)
	}

	device, err := d.lookup("open", path)
	if err != nil {
		return 0, err
	}

	if flags.Open.CreateExclusive {
		return 0, fmt.Errorf("(device) open %s: %w", path, vfs.ErrAlreadyExists)
	}

	id, err := d.files.Insert(task, &openDevice{device: device, flags: flags, path: path})
	if err != nil {
		return 0, err
	}

	slog.Debug("Opened device",
		"task", task,
		"file", id,
		"path", path.String(),
		"mode", flags.Mode.String(),
	)

	return id, nil
}

func (d *Driver) Read(task vfs.TaskID, file vfs.FileID, buffer []byte) (vfs.Size, error) {
	entry, err := d.files.Get(task, file)
	if err != nil {
		return 0, err
	}

	if !entry.flags.CanRead() {
		return 0, fmt.Errorf("(device) read %s: %w", entry.path, vfs.ErrPermissionDenied)
	}

	return entry.device.Read(buffer)
}

func (d *Driver) Write(task vfs.TaskID, file vfs.FileID, buffer []byte) (vfs.Size, error) {
	entry, err := d.files.Get(task, file)
	if err != nil {
		return 0, err
	}

	if !entry.flags.CanWrite() {
		return 0, fmt.Errorf("(device) write %s: %w", entry.path, vfs.ErrPermissionDenied)
	}

	return entry.device.Write(buffer)
}

func (d *Driver) SetPosition(task vfs.TaskID, file vfs.FileID, position vfs.Position) (vfs.Size, error) {
	entry, err := d.files.Get(task, file)
	if err != nil {
		return 0, err
	}

	return entry.device.SetPosition(position)
}

func (d *Driver) Flush(task vfs.TaskID, file vfs.FileID) error {
	entry, err := d.files.Get(task, file)
	if err != nil {
		return err
	}

	return entry.device.Flush()
}

func (d *Driver) Close(task vfs.TaskID, file vfs.FileID) error {
	entry, err := d.files.Remove(task, file)
	if err != nil {
		return err
	}

	slog.Debug("Closed device",
		"task", task,
		"file", file,
		"path", entry.path.String(),
	)

	return nil
}

func (d *Driver) CloseAll(task vfs.TaskID) error {
	if removed := d.files.RemoveAll(task); len(removed) > 0 {
		slog.Debug("Closed all devices of task", "task", task, "count", len(removed))
	}

	return nil
}

func (d *Driver) TransferFileIdentifier(oldTask, newTask vfs.TaskID, file vfs.FileID) (vfs.FileID, error) {
	return d.files.Transfer(oldTask, newTask, file)
}

func (d *Driver) Delete(_ vfs.TaskID, path vpath.Path) error {
	return fmt.Errorf("(device) delete %s: %w", path, vfs.ErrUnsupportedOperation)
}

func (d *Driver) Move(_ vfs.TaskID, source, _ vpath.Path) error {
	return fmt.Errorf("(device) move %s: %w", source, vfs.ErrUnsupportedOperation)
}

func (d *Driver) CreateDirectory(_ vfs.TaskID, path vpath.Path) error {
	return fmt.Errorf("(device) mkdir %s: %w", path, vfs.ErrUnsupportedOperation)
}

func (d *Driver) GetType(_ vfs.TaskID, path vpath.Path) (vfs.Type, error) {
	if path.IsRoot() {
		return vfs.TypeDirectory, nil
	}

	if _, err := d.lookup("stat", path); err != nil {
		return 0, err
	}

	return vfs.TypeCharacterDevice, nil
}

func (d *Driver) GetSize(_ vfs.TaskID, path vpath.Path) (vfs.Size, error) {
	if path.IsRoot() {
		return 0, nil
	}

	device, err := d.lookup("stat", path)
	if err != nil {
		return 0, err
	}

	return device.Size()
}

func (d *Driver) GetOwner(task vfs.TaskID, path vpath.Path) (vfs.UserID, vfs.GroupID, error) {
	if err := d.checkPath("owner", path); err != nil {
		return 0, 0, err
	}

	return d.policy.Owner(task, path)
}

func (d *Driver) SetOwner(task vfs.TaskID, path vpath.Path, user *vfs.UserID, group *vfs.GroupID) error {
	if err := d.checkPath("chown", path); err != nil {
		return err
	}

	return d.policy.SetOwner(task, path, user, group)
}

func (d *Driver) GetPermissions(task vfs.TaskID, path vpath.Path) (vfs.Permissions, error) {
	if err := d.checkPath("permissions", path); err != nil {
		return vfs.Permissions{}, err
	}

	return d.policy.Permissions(task, path)
}

func (d *Driver) SetPermissions(task vfs.TaskID, path vpath.Path, permissions vfs.Permissions) error {
	if err := d.checkPath("chmod", path); err != nil {
		return err
	}

	return d.policy.SetPermissions(task, path, permissions)
}
