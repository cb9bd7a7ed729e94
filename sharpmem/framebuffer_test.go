// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func mustFrameBuffer(t *testing.T, w, h int) *FrameBuffer {
	t.Helper()
	f, err := NewFrameBuffer(w, h)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewFrameBuffer(t *testing.T) {
	for _, tc := range []struct {
		name    string
		w, h    int
		wantErr error
	}{
		{name: "96x96", w: 96, h: 96},
		{name: "400x240", w: 400, h: 240},
		{name: "width not byte aligned", w: 12, h: 8, wantErr: ErrInvalidSize},
		{name: "zero width", w: 0, h: 8, wantErr: ErrInvalidSize},
		{name: "zero height", w: 8, h: 0, wantErr: ErrInvalidSize},
		{name: "too many lines", w: 8, h: 256, wantErr: ErrInvalidSize},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFrameBuffer(tc.w, tc.h)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewFrameBuffer(%d, %d) error = %v, want %v", tc.w, tc.h, err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if got, want := len(f.Bytes()), (tc.w*tc.h+7)/8; got != want {
				t.Errorf("len(Bytes()) = %d, want %d", got, want)
			}
			if !bytes.Equal(f.Bytes(), bytes.Repeat([]byte{0xff}, len(f.Bytes()))) {
				t.Errorf("new frame buffer is not white")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []image.Point{{16, 16}, {24, 8}, {8, 3}} {
		for r := Rotate0; r <= Rotate270; r++ {
			f := mustFrameBuffer(t, size.X, size.Y)
			if err := f.SetRotation(r); err != nil {
				t.Fatal(err)
			}
			for y := 0; y < f.Height(); y++ {
				for x := 0; x < f.Width(); x++ {
					for _, v := range []uint8{0, 1} {
						f.SetPixel(x, y, v)
						if got := f.Pixel(x, y); got != v {
							t.Fatalf("%v %v: Pixel(%d, %d) = %d after SetPixel(%d)", size, r, x, y, got, v)
						}
					}
				}
			}
			// Every logical pixel was last set to 1 and maps to a distinct
			// physical bit, so the buffer is white again.
			if !bytes.Equal(f.Bytes(), bytes.Repeat([]byte{0xff}, len(f.pix))) {
				t.Errorf("%v %v: buffer = %x", size, r, f.Bytes())
			}
		}
	}
}

func TestRotationMapping(t *testing.T) {
	// Logical (0, 0) set to black on a 16x8 panel.
	for _, tc := range []struct {
		rot       Rotation
		w, h      int
		wantIndex int
		wantByte  byte
	}{
		{rot: Rotate0, w: 16, h: 8, wantIndex: 0, wantByte: 0xfe},
		{rot: Rotate90, w: 8, h: 16, wantIndex: 1, wantByte: 0x7f},
		{rot: Rotate180, w: 16, h: 8, wantIndex: 15, wantByte: 0x7f},
		{rot: Rotate270, w: 8, h: 16, wantIndex: 14, wantByte: 0xfe},
	} {
		t.Run(tc.rot.String(), func(t *testing.T) {
			f := mustFrameBuffer(t, 16, 8)
			if err := f.SetRotation(tc.rot); err != nil {
				t.Fatal(err)
			}
			if f.Width() != tc.w || f.Height() != tc.h {
				t.Errorf("size = %dx%d, want %dx%d", f.Width(), f.Height(), tc.w, tc.h)
			}
			f.SetPixel(0, 0, 0)
			want := bytes.Repeat([]byte{0xff}, 16)
			want[tc.wantIndex] = tc.wantByte
			if diff := cmp.Diff(f.Bytes(), want); diff != "" {
				t.Errorf("Bytes() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestOutOfRange(t *testing.T) {
	for r := Rotate0; r <= Rotate270; r++ {
		f := mustFrameBuffer(t, 16, 8)
		if err := f.SetRotation(r); err != nil {
			t.Fatal(err)
		}
		f.Clear()
		for _, p := range []image.Point{{-1, 0}, {0, -1}, {f.Width(), 0}, {0, f.Height()}, {1000, 1000}} {
			f.SetPixel(p.X, p.Y, 0)
			if got := f.Pixel(p.X, p.Y); got != 0 {
				t.Errorf("%v: Pixel(%d, %d) = %d, want 0", r, p.X, p.Y, got)
			}
		}
		if !bytes.Equal(f.Bytes(), bytes.Repeat([]byte{0xff}, 16)) {
			t.Errorf("%v: out of range SetPixel changed the buffer: %x", r, f.Bytes())
		}
	}
}

func TestSetRotationInvalid(t *testing.T) {
	f := mustFrameBuffer(t, 8, 8)
	if err := f.SetRotation(4); !errors.Is(err, ErrInvalidRotation) {
		t.Errorf("SetRotation(4) = %v, want %v", err, ErrInvalidRotation)
	}
	if f.Rotation() != Rotate0 {
		t.Errorf("rotation changed to %v", f.Rotation())
	}
}

func TestClear(t *testing.T) {
	f := mustFrameBuffer(t, 16, 4)
	f.SetPixel(3, 1, 0)
	f.SetPixel(9, 3, 0)
	f.markClean()
	f.Clear()
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			if f.Pixel(x, y) != 1 {
				t.Fatalf("Pixel(%d, %d) = 0 after Clear", x, y)
			}
		}
	}
	if diff := cmp.Diff(f.dirtyLines(), []int{1, 3}); diff != "" {
		t.Errorf("dirtyLines() difference (-got +want):\n%s", diff)
	}
}

func TestDirtyLines(t *testing.T) {
	f := mustFrameBuffer(t, 8, 4)
	// Writing the value already stored is not a change.
	f.SetPixel(0, 0, 1)
	if got := f.dirtyLines(); len(got) != 0 {
		t.Errorf("dirtyLines() = %v, want none", got)
	}
	f.SetPixel(2, 2, 0)
	f.SetPixel(5, 2, 0)
	if diff := cmp.Diff(f.dirtyLines(), []int{2}); diff != "" {
		t.Errorf("dirtyLines() difference (-got +want):\n%s", diff)
	}
	f.markClean()
	if got := f.dirtyLines(); len(got) != 0 {
		t.Errorf("dirtyLines() = %v after markClean", got)
	}
}

func TestDrawImage(t *testing.T) {
	f := mustFrameBuffer(t, 16, 2)
	draw.Draw(f, image.Rect(0, 1, 8, 2), &image.Uniform{image1bit.Off}, image.Point{}, draw.Src)
	if diff := cmp.Diff(f.Bytes(), []byte{0xff, 0xff, 0x00, 0xff}); diff != "" {
		t.Errorf("Bytes() difference (-got +want):\n%s", diff)
	}
	if f.At(0, 1) != image1bit.Off || f.At(8, 1) != image1bit.On {
		t.Errorf("At() does not match the drawn image")
	}
	if got, want := f.Bounds(), image.Rect(0, 0, 16, 2); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}
