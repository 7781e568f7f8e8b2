package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
	"github.com/dustin/go-humanize"
)

const (
	writerTask vfs.TaskID = 1
	readerTask vfs.TaskID = 2
)

// runFileDemo exercises the native driver the way two cooperating tasks
// would: one writes a file and hands its read handle over to the other.
func runFileDemo(drivers vfs.Drivers, driver vfs.Driver) error {
	defer func() {
		for _, task := range []vfs.TaskID{writerTask, readerTask} {
			if err := drivers.CloseAll(task); err != nil {
				slog.Warn("Failed to release the files of a demo task.",
					"task", task,
					"err", err,
				)
			}
		}
	}()

	dir := vpath.MustNew("/demo")
	file := vpath.MustNew("/demo/greeting.txt")

	if err := driver.CreateDirectory(writerTask, dir); err != nil && !errors.Is(err, vfs.ErrAlreadyExists) {
		return fmt.Errorf("(main) %w", err)
	}

	flags := vfs.NewFlags(vfs.WriteOnly)
	flags.Open.Create = true
	flags.Open.Truncate = true

	out, err := driver.Open(writerTask, file, flags)
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	content := strings.Repeat(fmt.Sprintf("hello from task %d\n", writerTask), 64) //nolint:mnd
	if _, err := driver.Write(writerTask, out, []byte(content)); err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	if err := driver.Flush(writerTask, out); err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	if err := driver.Close(writerTask, out); err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	size, err := driver.GetSize(writerTask, file)
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	in, err := driver.Open(writerTask, file, vfs.NewFlags(vfs.ReadOnly))
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	handed, err := driver.TransferFileIdentifier(writerTask, readerTask, in)
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	buffer := make([]byte, size)

	n, err := driver.Read(readerTask, handed, buffer)
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	slog.Info("Demo file handed over between tasks.",
		"path", file.String(),
		"size", humanize.IBytes(size),
		"read", humanize.IBytes(n),
		"from", writerTask,
		"to", readerTask,
	)

	return nil
}
