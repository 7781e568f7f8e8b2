package device

import (
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/desertwitch/taskvfs/internal/graphics"
	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend failure")

type fakeCanvas struct {
	sync.Mutex
	width, height int
	pixels        map[[2]int]color.RGBA
	presents      int
	sizeErr       error
	drawErr       error
	panicOnDraw   bool
}

func newFakeCanvas(width, height int) *fakeCanvas {
	return &fakeCanvas{width: width, height: height, pixels: make(map[[2]int]color.RGBA)}
}

func (c *fakeCanvas) OutputSize() (int, int, error) {
	return c.width, c.height, c.sizeErr
}

func (c *fakeCanvas) DrawPoint(x, y int, col color.RGBA) error {
	if c.panicOnDraw {
		panic("draw")
	}
	if c.drawErr != nil {
		return c.drawErr
	}
	c.Lock()
	defer c.Unlock()
	c.pixels[[2]int{x, y}] = col

	return nil
}

func (c *fakeCanvas) Present() error {
	c.presents++

	return nil
}

type fakePump struct {
	sync.Mutex
	events []Event
}

func (p *fakePump) push(events ...Event) {
	p.Lock()
	defer p.Unlock()
	p.events = append(p.events, events...)
}

func (p *fakePump) Poll() []Event {
	p.Lock()
	defer p.Unlock()
	events := p.events
	p.events = nil

	return events
}

func writeRecord(t *testing.T, area graphics.Area, pixels ...graphics.Color) []byte {
	t.Helper()

	buffer, err := graphics.ScreenWriteData{Area: area, Pixels: pixels}.Encode()
	require.NoError(t, err)

	return buffer
}

func readPointer(t *testing.T, p *Pointer) graphics.PointerData {
	t.Helper()

	buffer := make([]byte, graphics.PointerDataSize)
	n, err := p.Read(buffer)
	require.NoError(t, err)
	require.Equal(t, vfs.Size(graphics.PointerDataSize), n)

	data, err := graphics.DecodePointerData(buffer)
	require.NoError(t, err)

	return data
}

// TestScreen_Read tests reading the screen resolution.
func TestScreen_Read(t *testing.T) {
	t.Parallel()

	t.Run("Success_Resolution", func(t *testing.T) {
		t.Parallel()

		screen := NewScreen(newFakeCanvas(320, 240), 16)
		buffer := make([]byte, graphics.ScreenReadDataSize)

		n, err := screen.Read(buffer)
		require.NoError(t, err)
		assert.Equal(t, vfs.Size(graphics.ScreenReadDataSize), n)

		data, err := graphics.DecodeScreenReadData(buffer)
		require.NoError(t, err)
		assert.Equal(t, graphics.NewPoint(320, 240), data.Resolution)
	})

	t.Run("Fail_BufferSize", func(t *testing.T) {
		t.Parallel()

		screen := NewScreen(newFakeCanvas(320, 240), 16)
		_, err := screen.Read(make([]byte, 4))
		require.ErrorIs(t, err, vfs.ErrInvalidInput)
	})

	t.Run("Fail_Backend", func(t *testing.T) {
		t.Parallel()

		canvas := newFakeCanvas(320, 240)
		canvas.sizeErr = errBackend
		screen := NewScreen(canvas, 16)

		_, err := screen.Read(make([]byte, graphics.ScreenReadDataSize))
		require.ErrorIs(t, err, vfs.ErrInternalError)
		require.NotErrorIs(t, err, errBackend)
	})
}

// TestScreen_Write tests drawing regions on the screen.
func TestScreen_Write(t *testing.T) {
	t.Parallel()

	area := graphics.NewArea(graphics.NewPoint(2, 3), graphics.NewPoint(3, 4))

	t.Run("Success_Blit", func(t *testing.T) {
		t.Parallel()

		canvas := newFakeCanvas(10, 10)
		screen := NewScreen(canvas, 4)
		red := graphics.NewColor(0xFF, 0, 0)
		blue := graphics.NewColor(0, 0, 0xFF)
		buffer := writeRecord(t, area, red, blue, blue, red)

		n, err := screen.Write(buffer)
		require.NoError(t, err)
		assert.Equal(t, vfs.Size(len(buffer)), n)

		assert.Equal(t, red.RGBA(), canvas.pixels[[2]int{2, 3}])
		assert.Equal(t, blue.RGBA(), canvas.pixels[[2]int{3, 3}])
		assert.Equal(t, blue.RGBA(), canvas.pixels[[2]int{2, 4}])
		assert.Equal(t, red.RGBA(), canvas.pixels[[2]int{3, 4}])
		assert.Len(t, canvas.pixels, 4)
		assert.Equal(t, 1, canvas.presents)
	})

	t.Run("Fail_PixelMismatch", func(t *testing.T) {
		t.Parallel()

		canvas := newFakeCanvas(10, 10)
		screen := NewScreen(canvas, 4)
		buffer := writeRecord(t, area, 1, 2, 3, 4)

		_, err := screen.Write(buffer[:len(buffer)-2])
		require.ErrorIs(t, err, vfs.ErrInvalidInput)
		assert.Empty(t, canvas.pixels)
		assert.Zero(t, canvas.presents)
	})

	t.Run("Fail_Capacity", func(t *testing.T) {
		t.Parallel()

		screen := NewScreen(newFakeCanvas(10, 10), 3)
		_, err := screen.Write(writeRecord(t, area, 1, 2, 3, 4))
		require.ErrorIs(t, err, vfs.ErrInvalidInput)
	})

	t.Run("Fail_Backend", func(t *testing.T) {
		t.Parallel()

		canvas := newFakeCanvas(10, 10)
		canvas.drawErr = errBackend
		screen := NewScreen(canvas, 4)

		_, err := screen.Write(writeRecord(t, area, 1, 2, 3, 4))
		require.ErrorIs(t, err, vfs.ErrInternalError)
	})

	t.Run("Fail_Unsupported", func(t *testing.T) {
		t.Parallel()

		screen := NewScreen(newFakeCanvas(10, 10), 4)
		_, err := screen.SetPosition(vfs.Start(0))
		require.ErrorIs(t, err, vfs.ErrUnsupportedOperation)
		require.NoError(t, screen.Flush())

		size, err := screen.Size()
		require.NoError(t, err)
		assert.Equal(t, vfs.Size(graphics.ScreenWriteSize(4)), size)
	})
}

// TestScreen_Poisoned tests that a panic while drawing poisons the canvas.
func TestScreen_Poisoned(t *testing.T) {
	t.Parallel()

	canvas := newFakeCanvas(10, 10)
	canvas.panicOnDraw = true
	screen := NewScreen(canvas, 1)
	record := writeRecord(t, graphics.NewArea(graphics.NewPoint(0, 0), graphics.NewPoint(0, 0)), 1)

	assert.Panics(t, func() {
		_, _ = screen.Write(record)
	})

	canvas.panicOnDraw = false

	_, err := screen.Write(record)
	require.ErrorIs(t, err, vfs.ErrInternalError)

	_, err = screen.Read(make([]byte, graphics.ScreenReadDataSize))
	require.ErrorIs(t, err, vfs.ErrInternalError)
}

// TestPointer_Read tests the collapsing of input events into pointer state.
func TestPointer_Read(t *testing.T) {
	t.Parallel()

	t.Run("Success_Initial", func(t *testing.T) {
		t.Parallel()

		p := NewPointer(1, &fakePump{}, nil)
		assert.Equal(t, graphics.NewPointerData(graphics.NewPoint(0, 0), graphics.Released), readPointer(t, p))
	})

	t.Run("Success_PressDragRelease", func(t *testing.T) {
		t.Parallel()

		pump := &fakePump{}
		p := NewPointer(1, pump, nil)

		pump.push(
			MouseButtonDown{WindowID: 1, Button: ButtonLeft, X: 10, Y: 20},
			MouseMotion{WindowID: 1, LeftPressed: true, X: 11, Y: 21},
			MouseMotion{WindowID: 1, LeftPressed: true, X: 12, Y: 22},
		)
		assert.Equal(t, graphics.NewPointerData(graphics.NewPoint(12, 22), graphics.Pressed), readPointer(t, p))

		pump.push(MouseButtonUp{WindowID: 1, Button: ButtonLeft, X: 40, Y: 40})
		assert.Equal(t, graphics.NewPointerData(graphics.NewPoint(12, 22), graphics.Released), readPointer(t, p))
	})

	t.Run("Success_EmptyQueueKeepsState", func(t *testing.T) {
		t.Parallel()

		pump := &fakePump{}
		p := NewPointer(1, pump, nil)

		pump.push(MouseButtonDown{WindowID: 1, Button: ButtonLeft, X: 5, Y: 6})
		first := readPointer(t, p)
		assert.Equal(t, first, readPointer(t, p))
		assert.Equal(t, first, readPointer(t, p))
	})

	t.Run("Success_IgnoresForeignEvents", func(t *testing.T) {
		t.Parallel()

		pump := &fakePump{}
		p := NewPointer(1, pump, nil)

		pump.push(
			MouseButtonDown{WindowID: 2, Button: ButtonLeft, X: 5, Y: 6},
			MouseButtonDown{WindowID: 1, Button: ButtonRight, X: 7, Y: 8},
			MouseMotion{WindowID: 1, LeftPressed: false, X: 9, Y: 9},
		)
		assert.Equal(t, graphics.NewPointerData(graphics.NewPoint(0, 0), graphics.Released), readPointer(t, p))
	})

	t.Run("Success_ClampsCoordinates", func(t *testing.T) {
		t.Parallel()

		pump := &fakePump{}
		p := NewPointer(1, pump, nil)

		pump.push(MouseButtonDown{WindowID: 1, Button: ButtonLeft, X: 100000, Y: -100000})
		assert.Equal(t, graphics.NewPoint(32767, -32768), readPointer(t, p).Point)
	})

	t.Run("Success_Quit", func(t *testing.T) {
		t.Parallel()

		pump := &fakePump{}
		codes := []int{}
		p := NewPointer(1, pump, func(code int) { codes = append(codes, code) })

		pump.push(QuitEvent{})
		readPointer(t, p)
		assert.Equal(t, []int{0}, codes)
	})

	t.Run("Fail_BufferSize", func(t *testing.T) {
		t.Parallel()

		p := NewPointer(1, &fakePump{}, nil)
		_, err := p.Read(make([]byte, graphics.PointerDataSize+1))
		require.ErrorIs(t, err, vfs.ErrInvalidInput)
	})

	t.Run("Fail_Unsupported", func(t *testing.T) {
		t.Parallel()

		p := NewPointer(1, &fakePump{}, nil)
		_, err := p.Write(make([]byte, graphics.PointerDataSize))
		require.ErrorIs(t, err, vfs.ErrUnsupportedOperation)
		_, err = p.SetPosition(vfs.Start(0))
		require.ErrorIs(t, err, vfs.ErrUnsupportedOperation)
		require.NoError(t, p.Flush())
	})
}

// TestGuarded tests the poisoning of a guarded resource.
func TestGuarded(t *testing.T) {
	t.Parallel()

	g := newGuarded("counter", 0)

	require.NoError(t, g.with(func(v *int) error {
		*v++

		return nil
	}))
	require.ErrorIs(t, g.with(func(*int) error { return errBackend }), errBackend)

	assert.Panics(t, func() {
		_ = g.with(func(*int) error { panic("boom") })
	})

	err := g.with(func(*int) error { return nil })
	require.ErrorIs(t, err, vfs.ErrInternalError)
}

// TestDriver tests the device driver over attached devices.
func TestDriver(t *testing.T) {
	t.Parallel()

	screenPath := vpath.MustNew("/screen")
	pointerPath := vpath.MustNew("/pointer")

	newDriver := func(t *testing.T) (*Driver, *fakeCanvas, *fakePump) {
		t.Helper()

		canvas := newFakeCanvas(8, 8)
		pump := &fakePump{}
		d := NewDriver(nil)
		require.NoError(t, d.Attach(screenPath, NewScreen(canvas, 64)))
		require.NoError(t, d.Attach(pointerPath, NewPointer(1, pump, nil)))

		return d, canvas, pump
	}

	t.Run("Success_Namespace", func(t *testing.T) {
		t.Parallel()

		d, _, _ := newDriver(t)

		for _, path := range []vpath.Path{vpath.Root(), screenPath, pointerPath} {
			exists, err := d.Exists(path)
			require.NoError(t, err)
			assert.True(t, exists, path.String())
		}

		exists, err := d.Exists(vpath.MustNew("/missing"))
		require.NoError(t, err)
		assert.False(t, exists)

		typ, err := d.GetType(1, screenPath)
		require.NoError(t, err)
		assert.Equal(t, vfs.TypeCharacterDevice, typ)

		typ, err = d.GetType(1, vpath.Root())
		require.NoError(t, err)
		assert.Equal(t, vfs.TypeDirectory, typ)

		size, err := d.GetSize(1, pointerPath)
		require.NoError(t, err)
		assert.Equal(t, vfs.Size(graphics.PointerDataSize), size)

		assert.Equal(t, []string{"/pointer", "/screen"}, d.Paths())
	})

	t.Run("Success_ScreenRoundTrip", func(t *testing.T) {
		t.Parallel()

		d, canvas, _ := newDriver(t)

		file, err := d.Open(1, screenPath, vfs.NewFlags(vfs.ReadWrite))
		require.NoError(t, err)

		buffer := make([]byte, graphics.ScreenReadDataSize)
		_, err = d.Read(1, file, buffer)
		require.NoError(t, err)

		record := writeRecord(t, graphics.NewArea(graphics.NewPoint(0, 0), graphics.NewPoint(0, 0)), graphics.NewColor(0xFF, 0xFF, 0xFF))
		n, err := d.Write(1, file, record)
		require.NoError(t, err)
		assert.Equal(t, vfs.Size(len(record)), n)
		assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, canvas.pixels[[2]int{0, 0}])

		require.NoError(t, d.Flush(1, file))
		_, err = d.SetPosition(1, file, vfs.Start(0))
		require.ErrorIs(t, err, vfs.ErrUnsupportedOperation)
		require.NoError(t, d.Close(1, file))
		require.Zero(t, d.OpenCount())
	})

	t.Run("Success_PointerThroughDriver", func(t *testing.T) {
		t.Parallel()

		d, _, pump := newDriver(t)

		file, err := d.Open(1, pointerPath, vfs.NewFlags(vfs.ReadOnly))
		require.NoError(t, err)

		pump.push(MouseButtonDown{WindowID: 1, Button: ButtonLeft, X: 3, Y: 4})

		buffer := make([]byte, graphics.PointerDataSize)
		_, err = d.Read(1, file, buffer)
		require.NoError(t, err)

		data, err := graphics.DecodePointerData(buffer)
		require.NoError(t, err)
		assert.Equal(t, graphics.NewPointerData(graphics.NewPoint(3, 4), graphics.Pressed), data)

		_, err = d.Write(1, file, buffer)
		require.ErrorIs(t, err, vfs.ErrPermissionDenied)
	})

	t.Run("Success_TaskLifecycle", func(t *testing.T) {
		t.Parallel()

		d, _, _ := newDriver(t)

		a, err := d.Open(5, screenPath, vfs.NewFlags(vfs.ReadOnly))
		require.NoError(t, err)
		b, err := d.Open(5, pointerPath, vfs.NewFlags(vfs.ReadOnly))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)

		moved, err := d.TransferFileIdentifier(5, 6, b)
		require.NoError(t, err)
		assert.Equal(t, vfs.FileID(0), moved)

		require.NoError(t, d.CloseAll(5))
		require.NoError(t, d.CloseAll(5))
		assert.Equal(t, 1, d.OpenCount())

		_, err = d.Read(5, a, make([]byte, graphics.ScreenReadDataSize))
		require.ErrorIs(t, err, vfs.ErrInvalidIdentifier)
		require.NoError(t, d.Close(6, moved))
	})

	t.Run("Fail_Open", func(t *testing.T) {
		t.Parallel()

		d, _, _ := newDriver(t)

		_, err := d.Open(1, vpath.MustNew("/missing"), vfs.NewFlags(vfs.ReadOnly))
		require.ErrorIs(t, err, vfs.ErrNotFound)

		_, err = d.Open(1, vpath.Root(), vfs.NewFlags(vfs.ReadOnly))
		require.ErrorIs(t, err, vfs.ErrInvalidFile)

		flags := vfs.NewFlags(vfs.WriteOnly)
		flags.Open.CreateExclusive = true
		_, err = d.Open(1, screenPath, flags)
		require.ErrorIs(t, err, vfs.ErrAlreadyExists)

		file, err := d.Open(1, screenPath, vfs.NewFlags(vfs.WriteOnly))
		require.NoError(t, err)
		_, err = d.Read(1, file, make([]byte, graphics.ScreenReadDataSize))
		require.ErrorIs(t, err, vfs.ErrPermissionDenied)
	})

	t.Run("Fail_NamespaceChanges", func(t *testing.T) {
		t.Parallel()

		d, _, _ := newDriver(t)

		require.ErrorIs(t, d.CreateFile(1, vpath.MustNew("/new")), vfs.ErrUnsupportedOperation)
		require.ErrorIs(t, d.CreateDirectory(1, vpath.MustNew("/new")), vfs.ErrUnsupportedOperation)
		require.ErrorIs(t, d.Delete(1, screenPath), vfs.ErrUnsupportedOperation)
		require.ErrorIs(t, d.Move(1, screenPath, vpath.MustNew("/other")), vfs.ErrUnsupportedOperation)
	})

	t.Run("Fail_Attach", func(t *testing.T) {
		t.Parallel()

		d, _, _ := newDriver(t)

		require.ErrorIs(t, d.Attach(screenPath, NewScreen(newFakeCanvas(1, 1), 1)), vfs.ErrAlreadyExists)
		require.ErrorIs(t, d.Attach(vpath.Root(), NewScreen(newFakeCanvas(1, 1), 1)), vfs.ErrInvalidPath)
		require.NoError(t, d.Detach(screenPath))
		require.ErrorIs(t, d.Detach(screenPath), vfs.ErrNotFound)

		_, _, err := d.GetOwner(1, screenPath)
		require.ErrorIs(t, err, vfs.ErrNotFound)
	})

	t.Run("Success_SecurityPolicy", func(t *testing.T) {
		t.Parallel()

		d, _, _ := newDriver(t)

		user, group, err := d.GetOwner(1, screenPath)
		require.NoError(t, err)
		assert.Equal(t, vfs.UserID(0), user)
		assert.Equal(t, vfs.GroupID(0), group)

		permissions, err := d.GetPermissions(1, pointerPath)
		require.NoError(t, err)
		assert.Equal(t, vfs.NewAllFull(), permissions)

		require.NoError(t, d.SetPermissions(1, pointerPath, vfs.NewAllFull()))
		require.NoError(t, d.SetOwner(1, pointerPath, nil, nil))
	})
}
