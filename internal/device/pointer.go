package device

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/desertwitch/taskvfs/internal/graphics"
	"github.com/desertwitch/taskvfs/internal/vfs"
)

// Pointer is a read-only input device. Every read drains the event pump and
// returns the latest [graphics.PointerData]. A [QuitEvent] terminates the
// process.
type Pointer struct {
	windowID uint32
	pump     *guarded[EventPump]
	last     *guarded[graphics.PointerData]
	exit     func(code int)
}

var _ Device = (*Pointer)(nil)

// NewPointer returns a pointer to a new [Pointer] reporting the left button
// of window windowID. A nil exit terminates the process with [os.Exit].
func NewPointer(windowID uint32, pump EventPump, exit func(code int)) *Pointer {
	if exit == nil {
		exit = os.Exit
	}

	return &Pointer{
		windowID: windowID,
		pump:     newGuarded("event pump", pump),
		last:     newGuarded("pointer state", graphics.NewPointerData(graphics.NewPoint(0, 0), graphics.Released)),
		exit:     exit,
	}
}

// update folds all pending events into the last known state.
func (p *Pointer) update() error {
	return p.pump.with(func(pump *EventPump) error {
		events := (*pump).Poll()
		if len(events) == 0 {
			return nil
		}

		return p.last.with(func(last *graphics.PointerData) error {
			for _, event := range events {
				p.apply(last, event)
			}

			return nil
		})
	})
}

func (p *Pointer) apply(last *graphics.PointerData, event Event) {
	switch e := event.(type) {
	case QuitEvent:
		slog.Info("Quit requested by the pointer device, terminating")
		p.exit(0)

	case MouseButtonDown:
		if e.WindowID == p.windowID && e.Button == ButtonLeft {
			last.Point = toPoint(e.X, e.Y)
			last.Touch = graphics.Pressed
		}

	case MouseButtonUp:
		if e.WindowID == p.windowID && e.Button == ButtonLeft {
			last.Touch = graphics.Released
		}

	case MouseMotion:
		if e.WindowID == p.windowID && e.LeftPressed {
			last.Point = toPoint(e.X, e.Y)
		}
	}
}

func (p *Pointer) Read(buffer []byte) (vfs.Size, error) {
	if len(buffer) != graphics.PointerDataSize {
		return 0, fmt.Errorf("(device) pointer read of %d bytes: %w", len(buffer), vfs.ErrInvalidInput)
	}

	if err := p.update(); err != nil {
		return 0, err
	}

	var snapshot graphics.PointerData

	if err := p.last.with(func(last *graphics.PointerData) error {
		snapshot = *last

		return nil
	}); err != nil {
		return 0, err
	}

	if err := snapshot.Encode(buffer); err != nil {
		return 0, fmt.Errorf("(device) pointer read: %w", vfs.ErrInternalError)
	}

	return graphics.PointerDataSize, nil
}

func (p *Pointer) Write([]byte) (vfs.Size, error) {
	return 0, fmt.Errorf("(device) pointer write: %w", vfs.ErrUnsupportedOperation)
}

func (p *Pointer) Size() (vfs.Size, error) {
	return graphics.PointerDataSize, nil
}

func (p *Pointer) SetPosition(vfs.Position) (vfs.Size, error) {
	return 0, fmt.Errorf("(device) pointer seek: %w", vfs.ErrUnsupportedOperation)
}

func (p *Pointer) Flush() error {
	return nil
}

func toPoint(x, y int) graphics.Point {
	return graphics.NewPoint(clamp(x), clamp(y))
}

func clamp(v int) int16 {
	switch {
	case v < math.MinInt16:
		return math.MinInt16
	case v > math.MaxInt16:
		return math.MaxInt16
	default:
		return int16(v)
	}
}
