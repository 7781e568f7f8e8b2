package device

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/desertwitch/taskvfs/internal/graphics"
	"github.com/desertwitch/taskvfs/internal/vfs"
)

// Screen is a display device. Reading it yields a
// [graphics.ScreenReadData] with the resolution, writing a
// [graphics.ScreenWriteData] draws the region and presents the frame.
type Screen struct {
	canvas   *guarded[Canvas]
	capacity int
}

var _ Device = (*Screen)(nil)

// NewScreen returns a pointer to a new [Screen] drawing on canvas. Updates
// may carry at most capacity pixels.
func NewScreen(canvas Canvas, capacity int) *Screen {
	return &Screen{
		canvas:   newGuarded("canvas", canvas),
		capacity: capacity,
	}
}

// Capacity returns the largest number of pixels a single update may carry.
func (s *Screen) Capacity() int {
	return s.capacity
}

func (s *Screen) Read(buffer []byte) (vfs.Size, error) {
	if len(buffer) != graphics.ScreenReadDataSize {
		return 0, fmt.Errorf("(device) screen read of %d bytes: %w", len(buffer), vfs.ErrInvalidInput)
	}

	var width, height int

	err := s.canvas.with(func(canvas *Canvas) error {
		var err error

		width, height, err = (*canvas).OutputSize()
		if err != nil {
			slog.Debug("Failed to query the screen resolution", "err", err)

			return fmt.Errorf("(device) screen resolution: %w", vfs.ErrInternalError)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if width < 0 || height < 0 || width > math.MaxInt16 || height > math.MaxInt16 {
		return 0, fmt.Errorf("(device) screen resolution %dx%d: %w", width, height, vfs.ErrInternalError)
	}

	data := graphics.ScreenReadData{Resolution: graphics.NewPoint(int16(width), int16(height))}
	if err := data.Encode(buffer); err != nil {
		return 0, fmt.Errorf("(device) screen read: %w", vfs.ErrInternalError)
	}

	return graphics.ScreenReadDataSize, nil
}

func (s *Screen) Write(buffer []byte) (vfs.Size, error) {
	data, err := graphics.DecodeScreenWriteData(buffer)
	if err != nil {
		return 0, fmt.Errorf("(device) screen write: %s: %w", err.Error(), vfs.ErrInvalidInput)
	}

	if len(data.Pixels) > s.capacity {
		return 0, fmt.Errorf("(device) screen write of %d pixels exceeds %d: %w", len(data.Pixels), s.capacity, vfs.ErrInvalidInput)
	}

	err = s.canvas.with(func(canvas *Canvas) error {
		i := 0

		for y := int(data.Area.P1.Y); y <= int(data.Area.P2.Y); y++ {
			for x := int(data.Area.P1.X); x <= int(data.Area.P2.X); x++ {
				if err := (*canvas).DrawPoint(x, y, data.Pixels[i].RGBA()); err != nil {
					slog.Debug("Failed to draw on the screen", "x", x, "y", y, "err", err)

					return fmt.Errorf("(device) screen draw: %w", vfs.ErrInternalError)
				}
				i++
			}
		}

		if err := (*canvas).Present(); err != nil {
			slog.Debug("Failed to present the screen", "err", err)

			return fmt.Errorf("(device) screen present: %w", vfs.ErrInternalError)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return vfs.Size(len(buffer)), nil
}

// Size returns the length of the largest screen update record.
func (s *Screen) Size() (vfs.Size, error) {
	return vfs.Size(graphics.ScreenWriteSize(s.capacity)), nil //nolint:gosec
}

func (s *Screen) SetPosition(vfs.Position) (vfs.Size, error) {
	return 0, fmt.Errorf("(device) screen seek: %w", vfs.ErrUnsupportedOperation)
}

func (s *Screen) Flush() error {
	return nil
}
