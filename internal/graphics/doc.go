/*
Package graphics defines the fixed-layout records exchanged with the display
and pointer devices.

Devices transfer these records through the ordinary read and write buffers
of the driver contract. Every record starts with a version byte and is
encoded little-endian; a buffer is only decoded if its length matches the
layout exactly.

Pointer state, version 1 (6 bytes):

	offset  size  field
	0       1     version (1)
	1       2     x (int16)
	3       2     y (int16)
	5       1     touch (0 released, 1 pressed)

Screen read (resolution), version 1 (5 bytes):

	offset  size  field
	0       1     version (1)
	1       2     width (int16)
	3       2     height (int16)

Screen write, version 1 (9 + 2*N bytes):

	offset  size  field
	0       1     version (1)
	1       2     area x1 (int16)
	3       2     area y1 (int16)
	5       2     area x2 (int16, inclusive)
	7       2     area y2 (int16, inclusive)
	9       2*N   pixels (RGB565, uint16), row by row

N is the pixel count of the area, (x2-x1+1)*(y2-y1+1).
*/
package graphics
