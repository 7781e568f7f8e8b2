// Package device exposes hardware as files. A [Driver] mounts devices into
// the handle world of [vfs.Driver]; the [Screen] and [Pointer] devices turn
// fixed-layout records into drawing operations and input snapshots on top of
// an abstract backend ([Canvas], [EventPump]).
package device

import (
	"image/color"

	"github.com/desertwitch/taskvfs/internal/vfs"
)

// Device is a piece of hardware presented as a file.
type Device interface {
	Read(buffer []byte) (vfs.Size, error)
	Write(buffer []byte) (vfs.Size, error)
	Size() (vfs.Size, error)
	SetPosition(position vfs.Position) (vfs.Size, error)
	Flush() error
}

// Canvas is a drawable window surface. Drawing is only guaranteed to become
// visible after Present.
type Canvas interface {
	OutputSize() (width int, height int, err error)
	DrawPoint(x, y int, c color.RGBA) error
	Present() error
}

// EventPump yields the input events that arrived since the last poll.
type EventPump interface {
	Poll() []Event
}

// Event is an input event delivered by an [EventPump].
type Event interface {
	isEvent()
}

// MouseButton identifies a pointer button.
type MouseButton uint8

const (
	ButtonLeft MouseButton = iota + 1
	ButtonMiddle
	ButtonRight
)

// QuitEvent asks for the termination of the whole system.
type QuitEvent struct{}

// MouseButtonDown is a button press at a window position.
type MouseButtonDown struct {
	WindowID uint32
	Button   MouseButton
	X, Y     int
}

// MouseButtonUp is a button release at a window position.
type MouseButtonUp struct {
	WindowID uint32
	Button   MouseButton
	X, Y     int
}

// MouseMotion is a pointer movement.
type MouseMotion struct {
	WindowID    uint32
	LeftPressed bool
	X, Y        int
}

func (QuitEvent) isEvent()       {}
func (MouseButtonDown) isEvent() {}
func (MouseButtonUp) isEvent()   {}
func (MouseMotion) isEvent()     {}
