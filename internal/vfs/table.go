package vfs

import (
	"fmt"
	"sync"
)

// HandleTable maps the open handles of all tasks to their backend resource.
// Every driver owns one. The table only guards its own map: callers look an
// entry up, release the table and then perform the (potentially slow) I/O
// on the resource itself.
type HandleTable[T any] struct {
	sync.Mutex
	entries map[LocalFileID]T
}

// NewHandleTable returns a pointer to a new, empty [HandleTable].
func NewHandleTable[T any]() *HandleTable[T] {
	return &HandleTable[T]{
		entries: make(map[LocalFileID]T),
	}
}

// Insert registers entry under the first free identifier of task.
func (t *HandleTable[T]) Insert(task TaskID, entry T) (FileID, error) {
	t.Lock()
	defer t.Unlock()

	file, ok := t.free(task)
	if !ok {
		return 0, fmt.Errorf("(vfs) task %d: %w", task, ErrTooManyOpenFiles)
	}

	t.entries[Combine(task, file)] = entry

	return file, nil
}

// Get returns the entry of a handle.
func (t *HandleTable[T]) Get(task TaskID, file FileID) (T, error) { //nolint:ireturn
	t.Lock()
	defer t.Unlock()

	entry, ok := t.entries[Combine(task, file)]
	if !ok {
		var zero T

		return zero, fmt.Errorf("(vfs) task %d file %d: %w", task, file, ErrInvalidIdentifier)
	}

	return entry, nil
}

// Remove unregisters a handle and returns its entry.
func (t *HandleTable[T]) Remove(task TaskID, file FileID) (T, error) { //nolint:ireturn
	t.Lock()
	defer t.Unlock()

	id := Combine(task, file)

	entry, ok := t.entries[id]
	if !ok {
		var zero T

		return zero, fmt.Errorf("(vfs) task %d file %d: %w", task, file, ErrInvalidIdentifier)
	}
	delete(t.entries, id)

	return entry, nil
}

// RemoveAll unregisters every handle of task in a single sweep and returns
// the removed entries, so the caller can release them outside of the lock.
func (t *HandleTable[T]) RemoveAll(task TaskID) []T {
	t.Lock()
	defer t.Unlock()

	removed := []T{}

	for id, entry := range t.entries {
		if id.Task() == task {
			removed = append(removed, entry)
			delete(t.entries, id)
		}
	}

	return removed
}

// Transfer moves a handle of oldTask to the first free identifier of
// newTask and returns that identifier.
func (t *HandleTable[T]) Transfer(oldTask, newTask TaskID, file FileID) (FileID, error) {
	t.Lock()
	defer t.Unlock()

	oldID := Combine(oldTask, file)

	entry, ok := t.entries[oldID]
	if !ok {
		return 0, fmt.Errorf("(vfs) task %d file %d: %w", oldTask, file, ErrInvalidIdentifier)
	}

	newFile, ok := t.free(newTask)
	if !ok {
		return 0, fmt.Errorf("(vfs) task %d: %w", newTask, ErrTooManyOpenFiles)
	}

	delete(t.entries, oldID)
	t.entries[Combine(newTask, newFile)] = entry

	return newFile, nil
}

// Len returns the number of open handles of all tasks.
func (t *HandleTable[T]) Len() int {
	t.Lock()
	defer t.Unlock()

	return len(t.entries)
}

// Count returns the number of open handles of task.
func (t *HandleTable[T]) Count(task TaskID) int {
	t.Lock()
	defer t.Unlock()

	count := 0
	for id := range t.entries {
		if id.Task() == task {
			count++
		}
	}

	return count
}

// free scans the identifier range of task for the first unused slot.
// The caller must hold the lock.
func (t *HandleTable[T]) free(task TaskID) (FileID, bool) {
	for file := 0; file <= int(MaxFileID); file++ {
		if _, taken := t.entries[Combine(task, FileID(file))]; !taken {
			return FileID(file), true
		}
	}

	return 0, false
}
