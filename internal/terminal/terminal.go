// Package terminal implements a display and pointer backend inside a
// terminal using [tea]. Two pixel rows share one character cell, drawn as an
// upper half block with separate foreground and background colors.
package terminal

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/taskvfs/internal/device"
	"github.com/zeebo/blake3"
)

// WindowID is the window identifier attached to all pointer events.
const WindowID = 1

// frameMsg is a [tea.Msg] announcing a newly presented frame.
type frameMsg struct{}

// Terminal is a [device.Canvas] and [device.EventPump] backed by a
// [tea.Program].
type Terminal struct {
	sync.Mutex
	program *tea.Program

	width  int
	height int
	back   []color.RGBA
	front  []color.RGBA
	events []device.Event

	// pixels holds the back buffer as bytes for hashing.
	pixels    []byte
	digest    [32]byte
	hasDigest bool

	presented chan struct{}
	done      chan struct{}

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

var (
	_ device.Canvas    = (*Terminal)(nil)
	_ device.EventPump = (*Terminal)(nil)
)

// New returns a pointer to a new [Terminal] with a resolution of width by
// height pixels. The program is not started until [Terminal.Launch].
func New(ctx context.Context, width, height int, opts ...tea.ProgramOption) *Terminal {
	term := &Terminal{
		width:  width,
		height: height,
		back:   make([]color.RGBA, width*height),
		front:  make([]color.RGBA, width*height),
		pixels: make([]byte, 4*width*height),

		presented: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	model := NewTeaModel(term, width, height)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx)}, opts...)
	term.program = tea.NewProgram(model, opts...)
	term.LogWriter = NewTeaLogWriter(term.program)

	return term
}

// Launch runs the [tea.Program] until it quits.
func (term *Terminal) Launch() error {
	defer term.LogWriter.Stop()
	defer close(term.done)

	go term.forwardFrames()

	if _, err := term.program.Run(); err != nil {
		term.Failed.Store(true)

		return fmt.Errorf("(terminal) %w", err)
	}

	return nil
}

// OutputSize returns the resolution in pixels.
func (term *Terminal) OutputSize() (int, int, error) {
	return term.width, term.height, nil
}

// DrawPoint sets a pixel of the back buffer. Points outside of the
// resolution are clipped.
func (term *Terminal) DrawPoint(x, y int, c color.RGBA) error {
	if x < 0 || y < 0 || x >= term.width || y >= term.height {
		return nil
	}

	term.Lock()
	defer term.Unlock()

	term.back[y*term.width+x] = c

	return nil
}

// forwardFrames notifies the program of presented frames until the program
// has quit. Frames presented in between notifications are coalesced.
func (term *Terminal) forwardFrames() {
	for {
		select {
		case <-term.done:
			return
		case <-term.presented:
			term.program.Send(frameMsg{})
		}
	}
}

// Present copies the back buffer to the front buffer and notifies the
// program. Frames identical to the last presented one are skipped.
func (term *Terminal) Present() error {
	term.Lock()
	defer term.Unlock()

	for i, c := range term.back {
		term.pixels[4*i] = c.R
		term.pixels[4*i+1] = c.G
		term.pixels[4*i+2] = c.B
		term.pixels[4*i+3] = c.A
	}

	digest := blake3.Sum256(term.pixels)
	if term.hasDigest && digest == term.digest {
		return nil
	}
	term.digest = digest
	term.hasDigest = true

	copy(term.front, term.back)

	select {
	case term.presented <- struct{}{}:
	default:
	}

	return nil
}

// Frame returns a copy of the last presented frame.
func (term *Terminal) Frame() []color.RGBA {
	term.Lock()
	defer term.Unlock()

	frame := make([]color.RGBA, len(term.front))
	copy(frame, term.front)

	return frame
}

// Poll returns and clears the pending input events.
func (term *Terminal) Poll() []device.Event {
	term.Lock()
	defer term.Unlock()

	events := term.events
	term.events = nil

	return events
}

func (term *Terminal) push(event device.Event) {
	term.Lock()
	defer term.Unlock()

	term.events = append(term.events, event)
}
