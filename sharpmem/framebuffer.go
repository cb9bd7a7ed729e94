// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Rotation is the orientation of the logical drawing surface relative to the
// panel. Each step turns the picture by 90°.
type Rotation uint8

// Possible rotations.
const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 1
	Rotate180 Rotation = 2
	Rotate270 Rotation = 3
)

func (r Rotation) String() string {
	switch r {
	case Rotate0:
		return "0°"
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return fmt.Sprintf("Rotation(%d)", uint8(r))
	}
}

// inactive is the byte value of a row of white (reflective) pixels.
const inactive = 0xFF

// FrameBuffer is the in-memory copy of the panel.
//
// Storage is always in panel order: bit index y*W+x, eight horizontally
// adjacent pixels per byte, leftmost pixel in bit 0. Callers address pixels
// in logical coordinates; the active rotation is applied on every access.
//
// A set bit (1) is a white pixel, a cleared bit (0) a black one.
//
// FrameBuffer implements draw.Image with the image1bit color model so any
// drawing package can render into it.
type FrameBuffer struct {
	w, h   int // physical
	stride int
	rot    Rotation
	pix    []byte
	dirty  []bool
}

// NewFrameBuffer returns a white frame buffer for a panel of w×h physical
// pixels. w must be a multiple of 8.
func NewFrameBuffer(w, h int) (*FrameBuffer, error) {
	if w <= 0 || w&7 != 0 {
		return nil, fmt.Errorf("%w: width %d is not a positive multiple of 8", ErrInvalidSize, w)
	}
	if h <= 0 || h > maxLines {
		return nil, fmt.Errorf("%w: height %d is not within [1, %d]", ErrInvalidSize, h, maxLines)
	}
	f := &FrameBuffer{
		w:      w,
		h:      h,
		stride: w / 8,
		pix:    bytes.Repeat([]byte{inactive}, w*h/8),
		dirty:  make([]bool, h),
	}
	return f, nil
}

// Width returns the logical width, which depends on the rotation.
func (f *FrameBuffer) Width() int {
	if f.rot&1 != 0 {
		return f.h
	}
	return f.w
}

// Height returns the logical height, which depends on the rotation.
func (f *FrameBuffer) Height() int {
	if f.rot&1 != 0 {
		return f.w
	}
	return f.h
}

// Rotation returns the active rotation.
func (f *FrameBuffer) Rotation() Rotation {
	return f.rot
}

// SetRotation changes how logical coordinates map to the panel. The stored
// pixels are not touched.
func (f *FrameBuffer) SetRotation(r Rotation) error {
	if r > Rotate270 {
		return fmt.Errorf("%w: %d", ErrInvalidRotation, uint8(r))
	}
	f.rot = r
	return nil
}

// physical maps logical (x, y) to panel coordinates. ok is false when the
// logical point is off the surface.
func (f *FrameBuffer) physical(x, y int) (px, py int, ok bool) {
	if x < 0 || y < 0 || x >= f.Width() || y >= f.Height() {
		return 0, 0, false
	}
	switch f.rot {
	case Rotate90:
		x, y = y, x
		x = f.w - 1 - x
	case Rotate180:
		x = f.w - 1 - x
		y = f.h - 1 - y
	case Rotate270:
		x, y = y, x
		y = f.h - 1 - y
	}
	return x, y, true
}

// SetPixel sets the logical pixel (x, y) to 1 when v is non-zero, 0
// otherwise. Coordinates off the surface are ignored.
func (f *FrameBuffer) SetPixel(x, y int, v uint8) {
	px, py, ok := f.physical(x, y)
	if !ok {
		return
	}
	i := py*f.stride + px/8
	mask := byte(1) << uint(px&7)
	old := f.pix[i]
	if v != 0 {
		f.pix[i] |= mask
	} else {
		f.pix[i] &^= mask
	}
	if f.pix[i] != old {
		f.dirty[py] = true
	}
}

// Pixel returns the logical pixel (x, y) as 0 or 1. Coordinates off the
// surface read as 0.
func (f *FrameBuffer) Pixel(x, y int) uint8 {
	px, py, ok := f.physical(x, y)
	if !ok {
		return 0
	}
	return (f.pix[py*f.stride+px/8] >> uint(px&7)) & 1
}

// Clear turns every pixel white. Rows that were not already white are
// marked as changed.
func (f *FrameBuffer) Clear() {
	for y := 0; y < f.h; y++ {
		row := f.row(y)
		for i, b := range row {
			if b != inactive {
				f.dirty[y] = true
				row[i] = inactive
			}
		}
	}
}

// Bytes returns a copy of the packed panel rows.
func (f *FrameBuffer) Bytes() []byte {
	return append([]byte(nil), f.pix...)
}

// BytesPerLine returns the number of data bytes of one panel row.
func (f *FrameBuffer) BytesPerLine() int {
	return f.stride
}

// Lines returns the number of panel rows.
func (f *FrameBuffer) Lines() int {
	return f.h
}

// row returns panel row y without copying.
func (f *FrameBuffer) row(y int) []byte {
	return f.pix[y*f.stride : (y+1)*f.stride]
}

// dirtyLines returns the 0-based indexes of the rows changed since the last
// call to markClean.
func (f *FrameBuffer) dirtyLines() []int {
	var lines []int
	for y, d := range f.dirty {
		if d {
			lines = append(lines, y)
		}
	}
	return lines
}

func (f *FrameBuffer) markClean() {
	for y := range f.dirty {
		f.dirty[y] = false
	}
}

// clone returns a deep copy, used to hand frames to observers.
func (f *FrameBuffer) clone() *FrameBuffer {
	c := *f
	c.pix = f.Bytes()
	c.dirty = make([]bool, f.h)
	return &c
}

// ColorModel implements image.Image.
func (f *FrameBuffer) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements image.Image. Min is always {0, 0}.
func (f *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width(), f.Height())
}

// At implements image.Image.
func (f *FrameBuffer) At(x, y int) color.Color {
	return image1bit.Bit(f.Pixel(x, y) != 0)
}

// Set implements draw.Image.
func (f *FrameBuffer) Set(x, y int, c color.Color) {
	var v uint8
	if image1bit.BitModel.Convert(c).(image1bit.Bit) {
		v = 1
	}
	f.SetPixel(x, y, v)
}
