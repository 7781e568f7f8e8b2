package vfs

import (
	"errors"
	"fmt"
	"log/slog"
)

// Drivers is the set of driver instances a supervisor tears down together
// when a task terminates.
type Drivers []Driver

// CloseAll closes every handle of task on every driver. All drivers are
// visited even if some of them fail; the failures are joined.
func (d Drivers) CloseAll(task TaskID) error {
	var errs []error

	for i, driver := range d {
		if err := driver.CloseAll(task); err != nil {
			slog.Warn("Failed to close the handles of a task",
				"task", task,
				"driver", i,
				"err", err,
			)
			errs = append(errs, fmt.Errorf("(vfs) driver %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
