package vfs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCombine tests packing and unpacking of combined identifiers.
func TestCombine(t *testing.T) {
	t.Parallel()

	t.Run("Success_Layout", func(t *testing.T) {
		assert.Equal(t, LocalFileID(0x0001_0002), Combine(1, 2))
		assert.Equal(t, LocalFileID(0xFFFF_FFFF_FFFF), Combine(0xFFFF_FFFF, 0xFFFF))
	})

	t.Run("Success_RoundTrip", func(t *testing.T) {
		id := Combine(0x1234_5678, 0xBEEF)
		assert.Equal(t, TaskID(0x1234_5678), id.Task())
		assert.Equal(t, FileID(0xBEEF), id.File())
	})

	t.Run("Success_Injective", func(t *testing.T) {
		tasks := []TaskID{0, 1, 2, 0xFFFF, 0x1_0000, 0x1_0001, 0xFFFF_FFFF}
		files := []FileID{0, 1, 0xFFFE, 0xFFFF}

		seen := make(map[LocalFileID]struct{})
		for _, task := range tasks {
			for _, file := range files {
				id := Combine(task, file)
				_, dup := seen[id]
				require.False(t, dup, "combined identifier %d of task %d file %d is not unique", id, task, file)
				seen[id] = struct{}{}
			}
		}
	})

	t.Run("Success_NoAliasAbove16Bits", func(t *testing.T) {
		assert.NotEqual(t, Combine(0x1_0000, 0), Combine(0, 0))
	})
}

// TestHandleTable_Insert tests identifier allocation.
func TestHandleTable_Insert(t *testing.T) {
	t.Parallel()

	t.Run("Success_FirstFree", func(t *testing.T) {
		table := NewHandleTable[string]()

		a, err := table.Insert(1, "a")
		require.NoError(t, err)
		b, err := table.Insert(1, "b")
		require.NoError(t, err)
		c, err := table.Insert(2, "c")
		require.NoError(t, err)

		assert.Equal(t, FileID(0), a)
		assert.Equal(t, FileID(1), b)
		assert.Equal(t, FileID(0), c)
		assert.Equal(t, 3, table.Len())
	})

	t.Run("Success_ReusesReleasedSlot", func(t *testing.T) {
		table := NewHandleTable[string]()

		_, _ = table.Insert(1, "a")
		b, _ := table.Insert(1, "b")
		_, _ = table.Insert(1, "c")

		_, err := table.Remove(1, b)
		require.NoError(t, err)

		reused, err := table.Insert(1, "d")
		require.NoError(t, err)
		assert.Equal(t, b, reused)
	})

	t.Run("Fail_Exhausted", func(t *testing.T) {
		table := NewHandleTable[int]()
		for i := 0; i <= int(MaxFileID); i++ {
			table.entries[Combine(7, FileID(i))] = i
		}

		_, err := table.Insert(7, 0)
		require.ErrorIs(t, err, ErrTooManyOpenFiles)

		file, err := table.Insert(8, 0)
		require.NoError(t, err, "other tasks are unaffected")
		assert.Equal(t, FileID(0), file)
	})
}

// TestHandleTable_GetRemove tests lookups and removal of handles.
func TestHandleTable_GetRemove(t *testing.T) {
	t.Parallel()

	table := NewHandleTable[string]()
	file, err := table.Insert(1, "a")
	require.NoError(t, err)

	entry, err := table.Get(1, file)
	require.NoError(t, err)
	assert.Equal(t, "a", entry)

	_, err = table.Get(2, file)
	require.ErrorIs(t, err, ErrInvalidIdentifier, "handles are scoped to their task")

	entry, err = table.Remove(1, file)
	require.NoError(t, err)
	assert.Equal(t, "a", entry)

	_, err = table.Remove(1, file)
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = table.Get(1, file)
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

// TestHandleTable_RemoveAll tests the bulk removal of a task's handles.
func TestHandleTable_RemoveAll(t *testing.T) {
	t.Parallel()

	t.Run("Success_OnlyOwnTask", func(t *testing.T) {
		table := NewHandleTable[string]()
		_, _ = table.Insert(1, "a")
		_, _ = table.Insert(1, "b")
		other, _ := table.Insert(2, "c")

		removed := table.RemoveAll(1)
		assert.ElementsMatch(t, []string{"a", "b"}, removed)
		assert.Equal(t, 0, table.Count(1))

		entry, err := table.Get(2, other)
		require.NoError(t, err)
		assert.Equal(t, "c", entry)
	})

	t.Run("Success_NoHandles", func(t *testing.T) {
		table := NewHandleTable[string]()
		assert.Empty(t, table.RemoveAll(42))
	})
}

// TestHandleTable_Transfer tests moving handles between tasks.
func TestHandleTable_Transfer(t *testing.T) {
	t.Parallel()

	t.Run("Success_Transfer", func(t *testing.T) {
		table := NewHandleTable[string]()
		_, _ = table.Insert(2, "taken")
		file, _ := table.Insert(1, "a")

		newFile, err := table.Transfer(1, 2, file)
		require.NoError(t, err)
		assert.Equal(t, FileID(1), newFile)

		_, err = table.Get(1, file)
		require.ErrorIs(t, err, ErrInvalidIdentifier)

		entry, err := table.Get(2, newFile)
		require.NoError(t, err)
		assert.Equal(t, "a", entry)

		entry, err = table.Get(2, 0)
		require.NoError(t, err)
		assert.Equal(t, "taken", entry)
		assert.Equal(t, 2, table.Len())
	})

	t.Run("Success_SameTask", func(t *testing.T) {
		table := NewHandleTable[string]()
		file, _ := table.Insert(1, "a")

		newFile, err := table.Transfer(1, 1, file)
		require.NoError(t, err)
		assert.NotEqual(t, file, newFile)
		assert.Equal(t, 1, table.Count(1))

		entry, err := table.Get(1, newFile)
		require.NoError(t, err)
		assert.Equal(t, "a", entry)
	})

	t.Run("Fail_UnknownSource", func(t *testing.T) {
		table := NewHandleTable[string]()
		_, err := table.Transfer(1, 2, 5)
		require.ErrorIs(t, err, ErrInvalidIdentifier)
	})

	t.Run("Fail_TargetExhausted", func(t *testing.T) {
		table := NewHandleTable[string]()
		for i := 0; i <= int(MaxFileID); i++ {
			table.entries[Combine(2, FileID(i))] = "x"
		}
		file, _ := table.Insert(1, "a")

		_, err := table.Transfer(1, 2, file)
		require.ErrorIs(t, err, ErrTooManyOpenFiles)

		entry, err := table.Get(1, file)
		require.NoError(t, err, "the source handle survives a failed transfer")
		assert.Equal(t, "a", entry)
	})
}

// TestHandleTable_Concurrent tests that concurrent tasks never share an
// identifier.
func TestHandleTable_Concurrent(t *testing.T) {
	t.Parallel()

	table := NewHandleTable[int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[LocalFileID]struct{})

	for task := range 8 {
		wg.Add(1)
		go func(task TaskID) {
			defer wg.Done()
			for i := range 100 {
				file, err := table.Insert(task, i)
				if err != nil {
					t.Error(err)

					return
				}
				mu.Lock()
				ids[Combine(task, file)] = struct{}{}
				mu.Unlock()
			}
		}(TaskID(task))
	}
	wg.Wait()

	assert.Len(t, ids, 800)
	assert.Equal(t, 800, table.Len())
}
