package terminal

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

const logBacklog = 1000

// LogMsg is one log line shown below the screen.
type LogMsg string

// TeaLogWriter is an [io.Writer] for a [slog.Handler] that forwards every
// write as a [LogMsg] to a [tea.Program]. Writes never block: when the
// backlog is full the line is dropped and counted, so logging from inside a
// device operation cannot stall on a busy terminal.
type TeaLogWriter struct {
	program *tea.Program
	done    chan struct{}
	lines   chan LogMsg
	dropped atomic.Uint64
}

// NewTeaLogWriter returns a pointer to a new [TeaLogWriter] and starts
// forwarding. It should eventually be stopped with [TeaLogWriter.Stop].
func NewTeaLogWriter(program *tea.Program) *TeaLogWriter {
	wr := &TeaLogWriter{
		program: program,
		done:    make(chan struct{}),
		lines:   make(chan LogMsg, logBacklog),
	}

	go wr.forward()

	return wr
}

// Stop ends the forwarding. Lines still in the backlog are discarded.
func (wr *TeaLogWriter) Stop() {
	close(wr.done)
}

// Dropped returns the number of lines lost to a full backlog.
func (wr *TeaLogWriter) Dropped() uint64 {
	return wr.dropped.Load()
}

func (wr *TeaLogWriter) forward() {
	for {
		select {
		case <-wr.done:
			return
		case line := <-wr.lines:
			wr.program.Send(line)
		}
	}
}

func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	select {
	case <-wr.done:
	case wr.lines <- LogMsg(p):
	default:
		wr.dropped.Add(1)
	}

	return len(p), nil
}
