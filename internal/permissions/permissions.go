// Package permissions implements a persistent [vfs.SecurityPolicy]. Owners
// and permission bits are kept per virtual path in memory and written to a
// CBOR encoded permissions file after every change. Paths without an entry
// belong to user and group 0 and grant full permissions.
package permissions

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
	"github.com/fxamacker/cbor/v2"
)

// Version is the layout version of the permissions file.
const Version = 1

const filePerms = 0o600

var (
	ErrCorruptFile     = errors.New("corrupt permissions file")
	ErrUnknownVersion  = errors.New("unknown permissions file version")
	ErrCodecInitFailed = errors.New("failed to initialize the codec")
)

type osProvider interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Rename(oldpath string, newpath string) error
}

// OS is the [osProvider] passing through to package [os].
type OS struct{}

func (*OS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (*OS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (*OS) Rename(oldpath string, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Entry is the stored metadata of one path.
type Entry struct {
	User        vfs.UserID  `cbor:"1,keyasint"`
	Group       vfs.GroupID `cbor:"2,keyasint"`
	Permissions uint32      `cbor:"3,keyasint"`
}

func defaultEntry() Entry {
	return Entry{Permissions: vfs.NewAllFull().ToUnix()}
}

type document struct {
	Version int              `cbor:"1,keyasint"`
	Entries map[string]Entry `cbor:"2,keyasint"`
}

// Store is the persistent [vfs.SecurityPolicy].
type Store struct {
	sync.Mutex
	osHandler osProvider
	encMode   cbor.EncMode
	path      string
	entries   map[string]Entry
}

var (
	_ vfs.SecurityPolicy    = (*Store)(nil)
	_ vfs.NamespaceObserver = (*Store)(nil)
)

// NewStore returns a pointer to a new [Store] persisted at path, loading
// the entries already stored there. A missing file starts an empty store.
// An empty path keeps the store in memory only.
func NewStore(path string, osHandler osProvider) (*Store, error) {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("(permissions) %w: %w", ErrCodecInitFailed, err)
	}

	store := &Store{
		osHandler: osHandler,
		encMode:   encMode,
		path:      path,
		entries:   make(map[string]Entry),
	}

	if path == "" {
		return store, nil
	}

	data, err := osHandler.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Starting with an empty permissions file", "path", path)

		return store, nil
	} else if err != nil {
		return nil, fmt.Errorf("(permissions) failed to read: %w", err)
	}

	var doc document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("(permissions) %w: %w", ErrCorruptFile, err)
	}

	if doc.Version != Version {
		return nil, fmt.Errorf("(permissions) version %d: %w", doc.Version, ErrUnknownVersion)
	}

	for key, entry := range doc.Entries {
		store.entries[key] = entry
	}

	slog.Debug("Loaded permissions file", "path", path, "entries", len(store.entries))

	return store, nil
}

// Open is a shorthand for [NewStore] on the host file system.
func Open(path string) (*Store, error) {
	return NewStore(path, &OS{})
}

// Len returns the number of paths with stored metadata.
func (s *Store) Len() int {
	s.Lock()
	defer s.Unlock()

	return len(s.entries)
}

// entry returns the stored or default entry of path. The caller must hold
// the lock.
func (s *Store) entry(path vpath.Path) Entry {
	if entry, ok := s.entries[path.String()]; ok {
		return entry
	}

	return defaultEntry()
}

// update applies fn to the entry of path and persists the store. The
// change is rolled back if it cannot be persisted.
func (s *Store) update(path vpath.Path, fn func(entry *Entry)) error {
	s.Lock()
	defer s.Unlock()

	key := path.String()
	previous, existed := s.entries[key]

	entry := s.entry(path)
	fn(&entry)
	s.entries[key] = entry

	if err := s.persist(); err != nil {
		if existed {
			s.entries[key] = previous
		} else {
			delete(s.entries, key)
		}

		slog.Debug("Failed to persist permissions file", "path", s.path, "err", err)

		return fmt.Errorf("(permissions) update %s: %w", path, vfs.ErrInternalError)
	}

	return nil
}

// persist writes all entries to a temporary file and renames it over the
// permissions file. The caller must hold the lock.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	data, err := s.encMode.Marshal(document{Version: Version, Entries: s.entries})
	if err != nil {
		return fmt.Errorf("(permissions) failed to encode: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")

	if err := s.osHandler.WriteFile(tmp, data, filePerms); err != nil {
		return fmt.Errorf("(permissions) failed to write: %w", err)
	}

	if err := s.osHandler.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("(permissions) failed to rename: %w", err)
	}

	return nil
}

// within reports whether key is path itself or lies below it.
func within(key string, path vpath.Path) bool {
	if path.IsRoot() {
		return true
	}

	return key == path.String() || strings.HasPrefix(key, path.String()+"/")
}

// replace swaps in entries and persists them, restoring the previous
// entries if that fails. The caller must hold the lock.
func (s *Store) replace(op string, path vpath.Path, entries map[string]Entry) error {
	previous := s.entries
	s.entries = entries

	if err := s.persist(); err != nil {
		s.entries = previous

		slog.Debug("Failed to persist permissions file", "path", s.path, "err", err)

		return fmt.Errorf("(permissions) %s %s: %w", op, path, vfs.ErrInternalError)
	}

	return nil
}

// Forget drops the entries of path and everything below it.
func (s *Store) Forget(path vpath.Path) error {
	s.Lock()
	defer s.Unlock()

	entries := maps.Clone(s.entries)
	maps.DeleteFunc(entries, func(key string, _ Entry) bool {
		return within(key, path)
	})

	if len(entries) == len(s.entries) {
		return nil
	}

	return s.replace("forget", path, entries)
}

// Rename moves the entries of source and everything below it to
// destination. Entries already stored below destination are replaced.
func (s *Store) Rename(source, destination vpath.Path) error {
	if source.IsRoot() {
		return nil
	}

	s.Lock()
	defer s.Unlock()

	entries := maps.Clone(s.entries)
	maps.DeleteFunc(entries, func(key string, _ Entry) bool {
		return within(key, destination)
	})

	moved := false
	for key, entry := range s.entries {
		if !within(key, source) {
			continue
		}
		delete(entries, key)
		entries[destination.String()+strings.TrimPrefix(key, source.String())] = entry
		moved = true
	}

	if !moved && len(entries) == len(s.entries) {
		return nil
	}

	return s.replace("rename", source, entries)
}

func (s *Store) Owner(_ vfs.TaskID, path vpath.Path) (vfs.UserID, vfs.GroupID, error) {
	s.Lock()
	defer s.Unlock()

	entry := s.entry(path)

	return entry.User, entry.Group, nil
}

func (s *Store) SetOwner(_ vfs.TaskID, path vpath.Path, user *vfs.UserID, group *vfs.GroupID) error {
	if user == nil && group == nil {
		return nil
	}

	return s.update(path, func(entry *Entry) {
		if user != nil {
			entry.User = *user
		}
		if group != nil {
			entry.Group = *group
		}
	})
}

func (s *Store) Permissions(_ vfs.TaskID, path vpath.Path) (vfs.Permissions, error) {
	s.Lock()
	defer s.Unlock()

	return vfs.FromUnix(s.entry(path).Permissions), nil
}

func (s *Store) SetPermissions(_ vfs.TaskID, path vpath.Path, permissions vfs.Permissions) error {
	return s.update(path, func(entry *Entry) {
		entry.Permissions = permissions.ToUnix()
	})
}
