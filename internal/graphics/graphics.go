package graphics

import (
	"fmt"
	"image/color"
)

// Point is a position on the screen, in pixels.
type Point struct {
	X int16
	Y int16
}

// NewPoint returns a new [Point].
func NewPoint(x, y int16) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Area is a rectangle spanning from P1 to P2, both inclusive.
type Area struct {
	P1 Point
	P2 Point
}

// NewArea returns a new [Area].
func NewArea(p1, p2 Point) Area {
	return Area{P1: p1, P2: p2}
}

// Width returns the width of the area in pixels.
func (a Area) Width() int {
	return int(a.P2.X) - int(a.P1.X) + 1
}

// Height returns the height of the area in pixels.
func (a Area) Height() int {
	return int(a.P2.Y) - int(a.P1.Y) + 1
}

// PixelCount returns the number of pixels covered by the area.
func (a Area) PixelCount() int {
	return a.Width() * a.Height()
}

// Valid reports whether P1 lies above and left of P2 and both are on the
// positive quadrant.
func (a Area) Valid() bool {
	return a.P1.X >= 0 && a.P1.Y >= 0 && a.Width() > 0 && a.Height() > 0
}

// Touch is the press state of a pointer.
type Touch uint8

const (
	Released Touch = iota
	Pressed
)

func (t Touch) String() string {
	if t == Pressed {
		return "pressed"
	}

	return "released"
}

// Color is a pixel in RGB565, the wire format of screen writes.
type Color uint16

// NewColor packs 8-bit channels into a [Color], dropping the low bits.
func NewColor(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGBA converts the color to the 8-bit-per-channel format backends draw
// with. The channels are expanded so that full intensity stays 0xFF.
func (c Color) RGBA() color.RGBA {
	r := uint8((c >> 11) & 0x1F) //nolint:gosec
	g := uint8((c >> 5) & 0x3F)  //nolint:gosec
	b := uint8(c & 0x1F)         //nolint:gosec

	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xFF,
	}
}
