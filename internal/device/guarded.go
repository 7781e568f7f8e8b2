package device

import (
	"fmt"
	"sync"

	"github.com/desertwitch/taskvfs/internal/vfs"
)

// guarded serializes access to one hardware resource. A panic inside a
// guarded section leaves the resource in an unknown state, so the lock is
// marked as poisoned and every later access fails with
// [vfs.ErrInternalError].
type guarded[T any] struct {
	sync.Mutex
	value    T
	name     string
	poisoned bool
}

func newGuarded[T any](name string, value T) *guarded[T] {
	return &guarded[T]{
		name:  name,
		value: value,
	}
}

// with runs fn with exclusive access to the resource.
func (g *guarded[T]) with(fn func(value *T) error) error {
	g.Lock()
	defer g.Unlock()

	if g.poisoned {
		return fmt.Errorf("(device) %s lock is poisoned: %w", g.name, vfs.ErrInternalError)
	}

	completed := false
	defer func() {
		if !completed {
			g.poisoned = true
		}
	}()

	err := fn(&g.value)
	completed = true

	return err
}
