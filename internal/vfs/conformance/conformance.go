// Package conformance is the behavioral test battery every [vfs.Driver]
// must pass. It is written purely against the driver contract, so a new
// backend is certified by calling [Prepare] and [Run] from its own tests:
//
//	func TestConformance(t *testing.T) {
//		driver := newDriver(t)
//		conformance.Prepare(t, driver)
//		conformance.Run(t, driver)
//	}
//
// The battery works inside the directory returned by [TestPath]. [Prepare]
// resets that directory and creates the fixtures the tests rely on; drivers
// that cannot create files must provide the same fixtures by other means.
package conformance

import (
	"testing"

	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Task is the task identifier the battery operates as.
const Task vfs.TaskID = 1

// ReadContent is the content of the "read" fixture.
const ReadContent = "0123456789\n"

// Fixture names below [TestPath].
const (
	Exists        = "exists"
	NotExists     = "not_exists"
	ReadOnly      = "read_only"
	WriteOnly     = "write_only"
	ReadWrite     = "read_write"
	Read          = "read"
	EmptyRead     = "empty_read"
	Write         = "write"
	AlreadyExists = "already_exists"
)

// TestPath returns the directory the battery works in.
func TestPath() vpath.Path {
	return vpath.MustNew("/test")
}

func fixture(t *testing.T, name string) vpath.Path {
	t.Helper()

	p, err := TestPath().Append(name)
	require.NoError(t, err)

	return p
}

// Prepare resets [TestPath] and populates it with the fixtures.
func Prepare(t *testing.T, d vfs.Driver) {
	t.Helper()

	_ = d.Delete(Task, TestPath())
	exists, err := d.Exists(TestPath())
	require.NoError(t, err)
	require.False(t, exists, "test directory must be gone after reset")

	require.NoError(t, d.CreateDirectory(Task, TestPath()))

	for _, name := range []string{Exists, ReadOnly, WriteOnly, ReadWrite, Read, EmptyRead, Write} {
		require.NoError(t, d.CreateFile(Task, fixture(t, name)), "creating fixture %s", name)
	}
	require.NoError(t, d.CreateDirectory(Task, fixture(t, AlreadyExists)))

	file, err := d.Open(Task, fixture(t, Read), vfs.NewFlags(vfs.WriteOnly))
	require.NoError(t, err)
	n, err := d.Write(Task, file, []byte(ReadContent))
	require.NoError(t, err)
	require.Equal(t, vfs.Size(len(ReadContent)), n)
	require.NoError(t, d.Close(Task, file))
}

// Run executes the whole battery against a prepared driver.
func Run(t *testing.T, d vfs.Driver) {
	t.Helper()

	t.Run("Existence", func(t *testing.T) { TestExistence(t, d) })
	t.Run("OpenClose", func(t *testing.T) { TestOpenClose(t, d) })
	t.Run("CreateDirectory", func(t *testing.T) { TestCreateDirectory(t, d) })
	t.Run("FileRead", func(t *testing.T) { TestFileRead(t, d) })
	t.Run("FileWrite", func(t *testing.T) { TestFileWrite(t, d) })
	t.Run("CreateDelete", func(t *testing.T) { TestCreateDelete(t, d) })
	t.Run("RoundTrip", func(t *testing.T) { TestRoundTrip(t, d) })
	t.Run("SetPosition", func(t *testing.T) { TestSetPosition(t, d) })
	t.Run("CloseAll", func(t *testing.T) { TestCloseAll(t, d) })
	t.Run("Transfer", func(t *testing.T) { TestTransfer(t, d) })
	t.Run("InvalidIdentifier", func(t *testing.T) { TestInvalidIdentifier(t, d) })
	t.Run("AlreadyExists", func(t *testing.T) { TestAlreadyExists(t, d) })
}

// TestExistence tests existence checks of present and absent paths.
func TestExistence(t *testing.T, d vfs.Driver) {
	t.Helper()

	for name, want := range map[string]bool{Exists: true, NotExists: false} {
		exists, err := d.Exists(fixture(t, name))
		require.NoError(t, err)
		assert.Equal(t, want, exists, name)
	}

	exists, err := d.Exists(TestPath())
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestOpenClose tests opening files in every mode and closing them again.
func TestOpenClose(t *testing.T, d vfs.Driver) {
	t.Helper()

	first, err := d.Open(Task, fixture(t, ReadOnly), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)
	second, err := d.Open(Task, fixture(t, ReadOnly), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err, "a path can be opened twice")
	assert.NotEqual(t, first, second, "handles are independent")

	writeOnly, err := d.Open(Task, fixture(t, WriteOnly), vfs.NewFlags(vfs.WriteOnly))
	require.NoError(t, err)
	readWrite, err := d.Open(Task, fixture(t, ReadWrite), vfs.NewFlags(vfs.ReadWrite))
	require.NoError(t, err)

	_, err = d.Open(Task, fixture(t, NotExists), vfs.NewFlags(vfs.ReadOnly))
	require.ErrorIs(t, err, vfs.ErrNotFound)

	for _, file := range []vfs.FileID{first, second, writeOnly, readWrite} {
		require.NoError(t, d.Close(Task, file))
	}

	require.ErrorIs(t, d.Close(Task, first), vfs.ErrInvalidIdentifier)
}

// TestCreateDirectory tests creating a directory and verifying its existence.
func TestCreateDirectory(t *testing.T, d vfs.Driver) {
	t.Helper()

	dir := fixture(t, "test_dir")

	exists, err := d.Exists(dir)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, d.CreateDirectory(Task, dir))

	exists, err = d.Exists(dir)
	require.NoError(t, err)
	assert.True(t, exists)

	typ, err := d.GetType(Task, dir)
	require.NoError(t, err)
	assert.Equal(t, vfs.TypeDirectory, typ)

	require.ErrorIs(t, d.CreateDirectory(Task, fixture(t, AlreadyExists)), vfs.ErrAlreadyExists)
}

// TestFileRead tests reading the content and size of files.
func TestFileRead(t *testing.T, d vfs.Driver) {
	t.Helper()

	file, err := d.Open(Task, fixture(t, Read), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)

	buffer := make([]byte, len(ReadContent))
	n, err := d.Read(Task, file, buffer)
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(ReadContent)), n)
	assert.Equal(t, ReadContent, string(buffer))
	require.NoError(t, d.Close(Task, file))

	size, err := d.GetSize(Task, fixture(t, Read))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(ReadContent)), size)

	typ, err := d.GetType(Task, fixture(t, Read))
	require.NoError(t, err)
	assert.Equal(t, vfs.TypeFile, typ)

	empty, err := d.Open(Task, fixture(t, EmptyRead), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)

	n, err = d.Read(Task, empty, make([]byte, 1))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(0), n)
	require.NoError(t, d.Close(Task, empty))

	size, err = d.GetSize(Task, fixture(t, EmptyRead))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(0), size)
}

// TestFileWrite tests writing a file and the resulting size.
func TestFileWrite(t *testing.T, d vfs.Driver) {
	t.Helper()

	file, err := d.Open(Task, fixture(t, Write), vfs.NewFlags(vfs.WriteOnly))
	require.NoError(t, err)

	n, err := d.Write(Task, file, []byte(ReadContent))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(ReadContent)), n)
	require.NoError(t, d.Flush(Task, file))

	size, err := d.GetSize(Task, fixture(t, Write))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(ReadContent)), size)

	require.NoError(t, d.Close(Task, file))
}

// TestCreateDelete tests that created files exist until they are deleted.
func TestCreateDelete(t *testing.T, d vfs.Driver) {
	t.Helper()

	path := fixture(t, "create_delete")

	require.NoError(t, d.CreateFile(Task, path))
	exists, err := d.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, d.Delete(Task, path))
	exists, err = d.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.ErrorIs(t, d.Delete(Task, path), vfs.ErrNotFound)
}

// TestRoundTrip tests that written bytes are read back unchanged.
func TestRoundTrip(t *testing.T, d vfs.Driver) {
	t.Helper()

	path := fixture(t, "round_trip")
	payload := []byte("the quick brown fox")

	require.NoError(t, d.CreateFile(Task, path))

	file, err := d.Open(Task, path, vfs.NewFlags(vfs.ReadWrite))
	require.NoError(t, err)
	defer d.Close(Task, file) //nolint:errcheck

	n, err := d.Write(Task, file, payload)
	require.NoError(t, err)
	require.Equal(t, vfs.Size(len(payload)), n)

	offset, err := d.SetPosition(Task, file, vfs.Start(0))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(0), offset)

	buffer := make([]byte, len(payload))
	n, err = d.Read(Task, file, buffer)
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(payload)), n)
	assert.Equal(t, payload, buffer)

	size, err := d.GetSize(Task, path)
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(payload)), size)
}

// TestSetPosition tests seeking relative to every reference point.
func TestSetPosition(t *testing.T, d vfs.Driver) {
	t.Helper()

	file, err := d.Open(Task, fixture(t, Read), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)
	defer d.Close(Task, file) //nolint:errcheck

	offset, err := d.SetPosition(Task, file, vfs.Start(4))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(4), offset)

	offset, err = d.SetPosition(Task, file, vfs.Current(2))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(6), offset)

	offset, err = d.SetPosition(Task, file, vfs.End(-1))
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(ReadContent)-1), offset)

	buffer := make([]byte, 1)
	n, err := d.Read(Task, file, buffer)
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(1), n)
	assert.Equal(t, "\n", string(buffer))
}

// TestCloseAll tests that a task's handles are gone after CloseAll.
func TestCloseAll(t *testing.T, d vfs.Driver) {
	t.Helper()

	const task, other vfs.TaskID = 10, 11

	a, err := d.Open(task, fixture(t, Read), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)
	b, err := d.Open(task, fixture(t, ReadWrite), vfs.NewFlags(vfs.ReadWrite))
	require.NoError(t, err)
	kept, err := d.Open(other, fixture(t, Read), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)

	require.NoError(t, d.CloseAll(task))

	_, err = d.Read(task, a, make([]byte, 1))
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)
	_, err = d.Write(task, b, []byte("x"))
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)

	n, err := d.Read(other, kept, make([]byte, 1))
	require.NoError(t, err, "handles of other tasks survive")
	assert.Equal(t, vfs.Size(1), n)

	require.NoError(t, d.CloseAll(other))
	require.NoError(t, d.CloseAll(other), "closing a task without handles succeeds")
}

// TestTransfer tests handing an open handle to another task.
func TestTransfer(t *testing.T, d vfs.Driver) {
	t.Helper()

	const parent, child vfs.TaskID = 20, 21

	file, err := d.Open(parent, fixture(t, Read), vfs.NewFlags(vfs.ReadOnly))
	require.NoError(t, err)

	first := make([]byte, 4)
	_, err = d.Read(parent, file, first)
	require.NoError(t, err)

	inherited, err := d.TransferFileIdentifier(parent, child, file)
	require.NoError(t, err)

	_, err = d.Read(parent, file, make([]byte, 1))
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)

	rest := make([]byte, len(ReadContent)-len(first))
	n, err := d.Read(child, inherited, rest)
	require.NoError(t, err)
	assert.Equal(t, vfs.Size(len(rest)), n)
	assert.Equal(t, ReadContent, string(first)+string(rest), "the child continues on the same underlying file")

	_, err = d.TransferFileIdentifier(parent, child, file)
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)

	require.NoError(t, d.Close(child, inherited))
}

// TestInvalidIdentifier tests operations on handles that were never opened.
func TestInvalidIdentifier(t *testing.T, d vfs.Driver) {
	t.Helper()

	const task vfs.TaskID = 30
	const file vfs.FileID = 0xFFFF

	_, err := d.Read(task, file, make([]byte, 1))
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)
	_, err = d.Write(task, file, []byte("x"))
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)
	_, err = d.SetPosition(task, file, vfs.Start(0))
	require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)
	require.ErrorIs(t, d.Flush(task, file), vfs.ErrInvalidIdentifier)
	require.ErrorIs(t, d.Close(task, file), vfs.ErrInvalidIdentifier)
}

// TestAlreadyExists tests creating files over existing paths.
func TestAlreadyExists(t *testing.T, d vfs.Driver) {
	t.Helper()

	require.ErrorIs(t, d.CreateFile(Task, fixture(t, Exists)), vfs.ErrAlreadyExists)
	require.ErrorIs(t, d.CreateFile(Task, fixture(t, AlreadyExists)), vfs.ErrAlreadyExists)
}
