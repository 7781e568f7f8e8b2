package vfs

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// TaskID identifies a task. It is issued by the task manager; drivers only
// ever receive it from their callers.
type TaskID uint32

// FileID identifies an open file within the scope of one task.
type FileID uint16

// MaxFileID is the highest local file identifier of a task.
const MaxFileID FileID = 0xFFFF

// LocalFileID is the combination of a [TaskID] and a [FileID], unique across
// all tasks. It is 64 bits wide so every 32-bit task identifier keeps its
// own 16-bit file range without aliasing.
type LocalFileID uint64

// Combine packs a task and a file identifier into a [LocalFileID].
func Combine(task TaskID, file FileID) LocalFileID {
	return LocalFileID(task)<<16 | LocalFileID(file)
}

// Task returns the task part of a [LocalFileID].
func (id LocalFileID) Task() TaskID {
	return TaskID(id >> 16) //nolint:gosec
}

// File returns the task-local part of a [LocalFileID].
func (id LocalFileID) File() FileID {
	return FileID(id & LocalFileID(MaxFileID)) //nolint:gosec
}

// UserID and GroupID identify owners, as issued by the user manager.
type (
	UserID  uint16
	GroupID uint16
)

// Size is a byte count or file offset.
type Size = uint64

// Mode is the access mode a file is opened with.
type Mode uint8

const (
	ReadOnly Mode = iota + 1
	WriteOnly
	ReadWrite
)

// Read reports whether the mode allows reading.
func (m Mode) Read() bool {
	return m == ReadOnly || m == ReadWrite
}

// Write reports whether the mode allows writing.
func (m Mode) Write() bool {
	return m == WriteOnly || m == ReadWrite
}

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Status holds the status flags of an open file.
type Status struct {
	Append      bool
	NonBlocking bool
	Synchronous bool
}

// OpenOptions holds flags only relevant while opening a file.
type OpenOptions struct {
	Create          bool
	CreateExclusive bool
	Truncate        bool
}

// Flags describe how a file is opened.
type Flags struct {
	Mode   Mode
	Status Status
	Open   OpenOptions
}

// NewFlags returns [Flags] for the given mode without further options.
func NewFlags(mode Mode) Flags {
	return Flags{Mode: mode}
}

// CanRead reports whether a file opened with these flags may be read.
func (f Flags) CanRead() bool {
	return f.Mode.Read()
}

// CanWrite reports whether a file opened with these flags may be written.
// Appending implies writing.
func (f Flags) CanWrite() bool {
	return f.Mode.Write() || f.Status.Append
}

// OSFlags converts the flags to a flag set for [os.OpenFile]. Read-only
// flags never request write access.
func (f Flags) OSFlags() int {
	var flag int

	switch {
	case f.CanRead() && f.CanWrite():
		flag = os.O_RDWR
	case f.CanWrite():
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}

	if f.Status.Append {
		flag |= os.O_APPEND
	}
	if f.Status.NonBlocking {
		flag |= unix.O_NONBLOCK
	}
	if f.Status.Synchronous {
		flag |= os.O_SYNC
	}

	if f.CanWrite() {
		if f.Open.Create || f.Open.CreateExclusive {
			flag |= os.O_CREATE
		}
		if f.Open.CreateExclusive {
			flag |= os.O_EXCL
		}
		if f.Open.Truncate {
			flag |= os.O_TRUNC
		}
	}

	return flag
}

// Type is the type of a file system entry.
type Type uint8

const (
	TypeFile Type = iota + 1
	TypeDirectory
	TypeSymbolicLink
	TypeCharacterDevice
	TypeBlockDevice
	TypePipe
	TypeSocket
)

func (t Type) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymbolicLink:
		return "symbolic link"
	case TypeCharacterDevice:
		return "character device"
	case TypeBlockDevice:
		return "block device"
	case TypePipe:
		return "pipe"
	case TypeSocket:
		return "socket"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Whence is the reference point of a [Position].
type Whence uint8

const (
	FromStart Whence = iota
	FromCurrent
	FromEnd
)

// Position is a file offset relative to a reference point.
type Position struct {
	Whence Whence
	Offset int64
}

// Start returns an absolute position.
func Start(offset uint64) Position {
	return Position{Whence: FromStart, Offset: int64(offset)} //nolint:gosec
}

// Current returns a position relative to the current offset.
func Current(delta int64) Position {
	return Position{Whence: FromCurrent, Offset: delta}
}

// End returns a position relative to the end of the file.
func End(delta int64) Position {
	return Position{Whence: FromEnd, Offset: delta}
}

// IOWhence converts the reference point for [io.Seeker].
func (p Position) IOWhence() int {
	switch p.Whence {
	case FromCurrent:
		return io.SeekCurrent
	case FromEnd:
		return io.SeekEnd
	default:
		return io.SeekStart
	}
}
