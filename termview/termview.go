// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termview implements a monochrome display.Drawer that outputs to the
// terminal (stdout) using ANSI color codes.
//
// Useful to preview what a memory LCD shows without the panel wired. Every
// character cell covers one pixel column and two pixel rows; cells where the
// two pixels differ are shown grey.
package termview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"github.com/GermanBionicSystems/memlcd/sharpmem"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Opts represents the options available for this display.
type Opts struct {
	// W and H are the emulated panel size, in its native orientation. W must
	// be a multiple of 8.
	W, H     int
	Rotation sharpmem.Rotation
	Palette  *ansi256.Palette
	// Out defaults to a colorable stdout.
	Out io.Writer

	_ struct{}
}

var (
	paper = color.NRGBA{0xe8, 0xe8, 0xe0, 0xff}
	ink   = color.NRGBA{0x20, 0x20, 0x20, 0xff}
	mixed = color.NRGBA{0x80, 0x80, 0x80, 0xff}
)

// Dev is a memory LCD emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette

	mu    sync.Mutex
	fb    *sharpmem.FrameBuffer
	buf   bytes.Buffer
	lines int
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	fb, err := sharpmem.NewFrameBuffer(opts.W, opts.H)
	if err != nil {
		return nil, fmt.Errorf("termview: %w", err)
	}
	if err := fb.SetRotation(opts.Rotation); err != nil {
		return nil, fmt.Errorf("termview: %w", err)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{w: w, palette: *p, fb: fb}, nil
}

func (d *Dev) String() string {
	return "TermView"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the prompt is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.fb.Bounds()
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Src.Draw(d.fb, r, src, sp)
	return d.refresh()
}

// Show replaces the whole view with img, aligned on its top left corner.
func (d *Dev) Show(img image.Image) error {
	return d.Draw(d.Bounds(), img, img.Bounds().Min)
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	if d.lines != 0 {
		// Draw over the previous frame.
		fmt.Fprintf(&d.buf, "\033[%dA", d.lines)
	}
	b := d.fb.Bounds()
	d.lines = 0
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := d.fb.Pixel(x, y)
			bottom := top
			if y+1 < b.Max.Y {
				bottom = d.fb.Pixel(x, y+1)
			}
			_, _ = io.WriteString(&d.buf, d.palette.Block(cell(top, bottom)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
		d.lines++
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

func cell(top, bottom uint8) color.NRGBA {
	switch {
	case top != bottom:
		return mixed
	case top == 1:
		return paper
	default:
		return ink
	}
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
