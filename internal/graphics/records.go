package graphics

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Version is the layout version of every record defined in this package.
const Version = 1

const (
	// PointerDataSize is the exact length of an encoded [PointerData].
	PointerDataSize = 6

	// ScreenReadDataSize is the exact length of an encoded [ScreenReadData].
	ScreenReadDataSize = 5

	// ScreenWriteHeaderSize is the length of a [ScreenWriteData] without
	// its pixels.
	ScreenWriteHeaderSize = 9

	colorSize = 2
)

var (
	ErrRecordSize    = errors.New("record size mismatch")
	ErrRecordVersion = errors.New("unsupported record version")
	ErrInvalidArea   = errors.New("invalid area")
	ErrInvalidTouch  = errors.New("invalid touch state")
)

//nolint:gochecknoglobals
var order = binary.LittleEndian

func checkHeader(buffer []byte, size int) error {
	if len(buffer) != size {
		return fmt.Errorf("(graphics) %d bytes, want %d: %w", len(buffer), size, ErrRecordSize)
	}

	if buffer[0] != Version {
		return fmt.Errorf("(graphics) version %d: %w", buffer[0], ErrRecordVersion)
	}

	return nil
}

func putPoint(buffer []byte, p Point) {
	order.PutUint16(buffer[0:], uint16(p.X)) //nolint:gosec
	order.PutUint16(buffer[2:], uint16(p.Y)) //nolint:gosec
}

func getPoint(buffer []byte) Point {
	return Point{
		X: int16(order.Uint16(buffer[0:])), //nolint:gosec
		Y: int16(order.Uint16(buffer[2:])), //nolint:gosec
	}
}

// PointerData is the state reported by a pointer device.
type PointerData struct {
	Point Point
	Touch Touch
}

// NewPointerData returns a new [PointerData].
func NewPointerData(point Point, touch Touch) PointerData {
	return PointerData{Point: point, Touch: touch}
}

// Encode writes the record into buffer, which must be exactly
// [PointerDataSize] bytes long.
func (d PointerData) Encode(buffer []byte) error {
	if len(buffer) != PointerDataSize {
		return fmt.Errorf("(graphics) %d bytes, want %d: %w", len(buffer), PointerDataSize, ErrRecordSize)
	}

	buffer[0] = Version
	putPoint(buffer[1:], d.Point)
	buffer[5] = byte(d.Touch)

	return nil
}

// DecodePointerData reads a record written by [PointerData.Encode].
func DecodePointerData(buffer []byte) (PointerData, error) {
	if err := checkHeader(buffer, PointerDataSize); err != nil {
		return PointerData{}, err
	}

	touch := Touch(buffer[5])
	if touch != Released && touch != Pressed {
		return PointerData{}, fmt.Errorf("(graphics) touch %d: %w", touch, ErrInvalidTouch)
	}

	return PointerData{Point: getPoint(buffer[1:]), Touch: touch}, nil
}

// ScreenReadData is the state reported when reading a screen device.
type ScreenReadData struct {
	Resolution Point
}

// Encode writes the record into buffer, which must be exactly
// [ScreenReadDataSize] bytes long.
func (d ScreenReadData) Encode(buffer []byte) error {
	if len(buffer) != ScreenReadDataSize {
		return fmt.Errorf("(graphics) %d bytes, want %d: %w", len(buffer), ScreenReadDataSize, ErrRecordSize)
	}

	buffer[0] = Version
	putPoint(buffer[1:], d.Resolution)

	return nil
}

// DecodeScreenReadData reads a record written by [ScreenReadData.Encode].
func DecodeScreenReadData(buffer []byte) (ScreenReadData, error) {
	if err := checkHeader(buffer, ScreenReadDataSize); err != nil {
		return ScreenReadData{}, err
	}

	return ScreenReadData{Resolution: getPoint(buffer[1:])}, nil
}

// ScreenWriteData is a rectangular region of pixels to draw on a screen.
// Pixels are ordered row by row and must cover the area exactly.
type ScreenWriteData struct {
	Area   Area
	Pixels []Color
}

// ScreenWriteSize returns the encoded length of a [ScreenWriteData]
// carrying the given number of pixels.
func ScreenWriteSize(pixels int) int {
	return ScreenWriteHeaderSize + pixels*colorSize
}

// Encode returns the encoded record.
func (d ScreenWriteData) Encode() ([]byte, error) {
	if !d.Area.Valid() {
		return nil, fmt.Errorf("(graphics) area %v-%v: %w", d.Area.P1, d.Area.P2, ErrInvalidArea)
	}

	if len(d.Pixels) != d.Area.PixelCount() {
		return nil, fmt.Errorf("(graphics) %d pixels for %d: %w", len(d.Pixels), d.Area.PixelCount(), ErrRecordSize)
	}

	buffer := make([]byte, ScreenWriteSize(len(d.Pixels)))
	buffer[0] = Version
	putPoint(buffer[1:], d.Area.P1)
	putPoint(buffer[5:], d.Area.P2)

	for i, c := range d.Pixels {
		order.PutUint16(buffer[ScreenWriteHeaderSize+i*colorSize:], uint16(c))
	}

	return buffer, nil
}

// DecodeScreenWriteData reads a record written by [ScreenWriteData.Encode].
// The buffer length must match the pixel count of the declared area.
func DecodeScreenWriteData(buffer []byte) (ScreenWriteData, error) {
	if len(buffer) < ScreenWriteHeaderSize {
		return ScreenWriteData{}, fmt.Errorf("(graphics) %d bytes, want at least %d: %w", len(buffer), ScreenWriteHeaderSize, ErrRecordSize)
	}

	if buffer[0] != Version {
		return ScreenWriteData{}, fmt.Errorf("(graphics) version %d: %w", buffer[0], ErrRecordVersion)
	}

	area := NewArea(getPoint(buffer[1:]), getPoint(buffer[5:]))
	if !area.Valid() {
		return ScreenWriteData{}, fmt.Errorf("(graphics) area %v-%v: %w", area.P1, area.P2, ErrInvalidArea)
	}

	if want := ScreenWriteSize(area.PixelCount()); len(buffer) != want {
		return ScreenWriteData{}, fmt.Errorf("(graphics) %d bytes for area %v-%v, want %d: %w", len(buffer), area.P1, area.P2, want, ErrRecordSize)
	}

	pixels := make([]Color, area.PixelCount())
	for i := range pixels {
		pixels[i] = Color(order.Uint16(buffer[ScreenWriteHeaderSize+i*colorSize:]))
	}

	return ScreenWriteData{Area: area, Pixels: pixels}, nil
}
