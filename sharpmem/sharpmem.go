// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

var (
	// ErrNotInitialized is returned when the panel is used before Init or
	// after Halt.
	ErrNotInitialized = errors.New("sharpmem: not initialized")
	// ErrInvalidSize is returned for panel dimensions the protocol cannot
	// address.
	ErrInvalidSize = errors.New("sharpmem: invalid size")
	// ErrInvalidPin is returned when a required pin is missing.
	ErrInvalidPin = errors.New("sharpmem: invalid pin")
	// ErrInvalidRotation is returned for rotations other than 0 to 3.
	ErrInvalidRotation = errors.New("sharpmem: invalid rotation")
)

// Opts defines the options for the device.
type Opts struct {
	// Width and Height of the panel in pixels, in the panel's native
	// orientation. Width must be a multiple of 8, Height at most 255.
	Width  int
	Height int
	// SettleDelay is the time chip select is held before the first and after
	// the last byte of every transfer. The panels need at least a few
	// microseconds, 6µs when zero.
	SettleDelay time.Duration
	// Frequency is the SPI clock. Defaults to 2MHz when zero. Ignored by
	// NewBitBang.
	Frequency physic.Frequency
	// ReverseBits opens the SPI port MSB first and mirrors every byte in
	// software. Use it on hosts whose SPI driver rejects spi.LSBFirst.
	ReverseBits bool
	// Disp is the optional DISP (display on) pin. It is driven high by Init
	// and low by Halt.
	Disp gpio.PinOut
	// Observer, if set, is called with a copy of the frame after every
	// successful transfer that changes what the panel shows.
	Observer func(image.Image)
}

// Panel presets.
var (
	// LS013B4DN04 is the 1.3" 96x96 panel.
	LS013B4DN04 = Opts{Width: 96, Height: 96}
	// LS013B7DH03 is the 1.28" 128x128 panel.
	LS013B7DH03 = Opts{Width: 128, Height: 128}
	// LS011B7DH03 is the 1.08" 160x68 panel.
	LS011B7DH03 = Opts{Width: 160, Height: 68}
	// LS012B7DD01 is the 1.19" 184x38 panel.
	LS012B7DD01 = Opts{Width: 184, Height: 38}
	// LS027B7DH01 is the 2.7" 400x240 panel.
	LS027B7DH01 = Opts{Width: 400, Height: 240}
)

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Width:       96,
	Height:      96,
	SettleDelay: 6 * time.Microsecond,
	Frequency:   2 * physic.MegaHertz,
}

// Dev is an open handle to a Sharp memory LCD.
//
// Dev implements display.Drawer and draw.Image. Pixel level access (Set,
// SetPixel) only changes the frame buffer; call Refresh or RefreshChanged to
// show it.
type Dev struct {
	t    transport
	cs   gpio.PinOut
	opts Opts

	// sleep is time.Sleep, replaced in tests.
	sleep func(time.Duration)

	mu          sync.Mutex
	fb          *FrameBuffer
	vcom        vcomState
	initialized bool
}

// New returns a Dev that talks to the panel over a hardware SPI port.
//
// cs is the panel's chip select. It is active high so it can't be the SPI
// port's own CS line; the port is opened with spi.NoCS.
//
// The port is connected by Init.
func New(p spi.Port, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, errors.New("sharpmem: spi port is nil")
	}
	o, err := normalize(opts)
	if err != nil {
		return nil, err
	}
	t := &spiTransport{p: p, f: o.Frequency, reverse: o.ReverseBits}
	return newDev(t, cs, o)
}

// NewBitBang returns a Dev that clocks the panel by toggling clk and mosi.
//
// Each pin change goes through the GPIO driver, so the clock is only as fast
// as the host toggles pins. The panel accepts clock pulses down to 250ns.
func NewBitBang(clk, mosi, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if !validPin(clk) {
		return nil, fmt.Errorf("%w: clk", ErrInvalidPin)
	}
	if !validPin(mosi) {
		return nil, fmt.Errorf("%w: mosi", ErrInvalidPin)
	}
	o, err := normalize(opts)
	if err != nil {
		return nil, err
	}
	return newDev(&bitBangTransport{clk: clk, mosi: mosi}, cs, o)
}

func newDev(t transport, cs gpio.PinOut, o Opts) (*Dev, error) {
	if !validPin(cs) {
		return nil, fmt.Errorf("%w: cs", ErrInvalidPin)
	}
	fb, err := NewFrameBuffer(o.Width, o.Height)
	if err != nil {
		return nil, err
	}
	return &Dev{t: t, cs: cs, opts: o, sleep: time.Sleep, fb: fb}, nil
}

// normalize applies defaults and validates the panel geometry before any pin
// is touched.
func normalize(opts *Opts) (Opts, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Width == 0 && o.Height == 0 {
		o.Width, o.Height = DefaultOpts.Width, DefaultOpts.Height
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultOpts.SettleDelay
	}
	if o.Frequency == 0 {
		o.Frequency = DefaultOpts.Frequency
	}
	if o.Width <= 0 || o.Width&7 != 0 {
		return o, fmt.Errorf("%w: width %d must be a positive multiple of 8", ErrInvalidSize, o.Width)
	}
	if o.Height <= 0 || o.Height > maxLines {
		return o, fmt.Errorf("%w: height %d must be between 1 and %d", ErrInvalidSize, o.Height, maxLines)
	}
	return o, nil
}

func validPin(p gpio.PinOut) bool {
	return p != nil && p != gpio.INVALID
}

func (d *Dev) String() string {
	return fmt.Sprintf("sharpmem.Dev{%s, %s, %dx%d}", d.t, d.cs, d.opts.Width, d.opts.Height)
}

// Init configures the pins and the SPI port and puts VCOM and the rotation
// in their initial state. It must be called once before any transfer, and
// again after Halt.
//
// The frame buffer content is kept.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.cs.Out(gpio.Low); err != nil {
		return fmt.Errorf("sharpmem: chip select: %w", err)
	}
	if err := d.t.connect(); err != nil {
		return fmt.Errorf("sharpmem: %s: %w", d.t, err)
	}
	if d.opts.Disp != nil {
		if err := d.opts.Disp.Out(gpio.High); err != nil {
			return fmt.Errorf("sharpmem: disp: %w", err)
		}
	}
	d.vcom.reset()
	d.fb.rot = Rotate0
	d.initialized = true
	return nil
}

// Halt implements conn.Resource.
//
// It turns the display off if Opts.Disp is set. The SPI connection is kept
// for the next Init since a port can only be connected once. Without a DISP
// pin the panel keeps showing its last image while powered.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	var err error
	if d.opts.Disp != nil {
		err = d.opts.Disp.Out(gpio.Low)
	}
	if err2 := d.t.halt(); err == nil {
		err = err2
	}
	return err
}

// SetDisplayOn drives the DISP pin. The image is retained while the display
// is off.
func (d *Dev) SetDisplayOn(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	if d.opts.Disp == nil {
		return fmt.Errorf("%w: no disp pin configured", ErrInvalidPin)
	}
	return d.opts.Disp.Out(gpio.Level(on))
}

// SetRotation changes the orientation of the drawing surface.
func (d *Dev) SetRotation(r Rotation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.SetRotation(r)
}

// Rotation returns the orientation of the drawing surface.
func (d *Dev) Rotation() Rotation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.Rotation()
}

// SetPixel sets one pixel of the frame buffer, 1 being white. Out of range
// coordinates are ignored.
func (d *Dev) SetPixel(x, y int, v uint8) {
	d.mu.Lock()
	d.fb.SetPixel(x, y, v)
	d.mu.Unlock()
}

// Pixel returns one pixel of the frame buffer, 0 when out of range.
func (d *Dev) Pixel(x, y int) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.Pixel(x, y)
}

// ClearBuffer turns the frame buffer white without touching the panel.
func (d *Dev) ClearBuffer() {
	d.mu.Lock()
	d.fb.Clear()
	d.mu.Unlock()
}

// Snapshot returns a copy of the frame buffer.
func (d *Dev) Snapshot() *FrameBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.clone()
}

// Refresh sends the whole frame buffer to the panel.
func (d *Dev) Refresh() error {
	d.mu.Lock()
	return d.unlock(d.refreshLocked(), true)
}

// RefreshChanged sends only the lines modified since the last transfer. When
// nothing changed it only toggles VCOM, so it is safe to call periodically.
func (d *Dev) RefreshChanged() error {
	d.mu.Lock()
	return d.unlock(d.refreshChangedLocked(), true)
}

// Clear turns both the frame buffer and the panel white. It is much faster
// than clearing the buffer and refreshing.
func (d *Dev) Clear() error {
	d.mu.Lock()
	d.fb.Clear()
	err := d.clearLocked()
	if err == nil {
		d.fb.markClean()
	}
	return d.unlock(err, true)
}

// ClearDisplay turns the panel white but keeps the frame buffer, a later
// Refresh or RefreshChanged shows it again.
func (d *Dev) ClearDisplay() error {
	d.mu.Lock()
	err := d.clearLocked()
	if err == nil {
		for y := range d.fb.dirty {
			d.fb.dirty[y] = true
		}
	}
	return d.unlock(err, false)
}

// ToggleVcom flips VCOM without changing the image.
//
// The panel must see VCOM change at least once per second. Call it
// periodically when no refresh happens.
func (d *Dev) ToggleVcom() error {
	d.mu.Lock()
	return d.unlock(d.toggleVcomLocked(), false)
}

// Write replaces the frame buffer with pixels, packed in panel order (see
// FrameBuffer), and sends the changed lines.
func (d *Dev) Write(pixels []byte) (int, error) {
	d.mu.Lock()
	if len(pixels) != len(d.fb.pix) {
		d.mu.Unlock()
		return 0, fmt.Errorf("sharpmem: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.fb.pix), len(pixels))
	}
	for y := 0; y < d.fb.h; y++ {
		row := d.fb.row(y)
		src := pixels[y*d.fb.stride : (y+1)*d.fb.stride]
		for i := range row {
			if row[i] != src[i] {
				row[i] = src[i]
				d.fb.dirty[y] = true
			}
		}
	}
	if err := d.unlock(d.refreshChangedLocked(), true); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. It follows the rotation.
func (d *Dev) Bounds() image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.Bounds()
}

// At implements image.Image.
func (d *Dev) At(x, y int) color.Color {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.At(x, y)
}

// Set implements draw.Image. Only the frame buffer is changed.
func (d *Dev) Set(x, y int, c color.Color) {
	d.mu.Lock()
	d.fb.Set(x, y, c)
	d.mu.Unlock()
}

// Draw implements display.Drawer.
//
// It draws synchronously, once this function returns, the changed lines are
// on the panel.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	draw.Src.Draw(d.fb, r, src, sp)
	return d.unlock(d.refreshChangedLocked(), true)
}

// unlock releases the lock taken by the caller. When shown is true the
// observer gets the frame the panel now displays.
func (d *Dev) unlock(err error, shown bool) error {
	var frame image.Image
	if err == nil && shown && d.opts.Observer != nil {
		frame = d.fb.clone()
	}
	d.mu.Unlock()
	if frame != nil {
		d.opts.Observer(frame)
	}
	return err
}

func (d *Dev) refreshLocked() error {
	err := d.converse(func(eh *errorHandler) {
		eh.sendByte(bitWriteCmd | d.vcom.bits())
		d.vcom.toggle()
		sendFrame(eh, d.fb.pix, d.fb.stride, d.fb.h)
	})
	if err == nil {
		d.fb.markClean()
	}
	return err
}

func (d *Dev) refreshChangedLocked() error {
	rows := d.fb.dirtyLines()
	if len(rows) == 0 {
		return d.toggleVcomLocked()
	}
	err := d.converse(func(eh *errorHandler) {
		eh.sendByte(bitWriteCmd | d.vcom.bits())
		d.vcom.toggle()
		sendLines(eh, d.fb, rows)
	})
	if err == nil {
		d.fb.markClean()
	}
	return err
}

func (d *Dev) clearLocked() error {
	return d.converse(func(eh *errorHandler) {
		eh.sendByte(bitClear | d.vcom.bits())
		eh.sendByte(bitDummy)
		d.vcom.toggle()
	})
}

func (d *Dev) toggleVcomLocked() error {
	return d.converse(func(eh *errorHandler) {
		eh.sendByte(bitWriteCmd | d.vcom.bits())
		d.vcom.toggle()
		eh.sendByte(bitDummy)
	})
}

// converse runs one chip select bracketed exchange with the panel. Chip
// select is released on every path, including I/O errors and panics.
func (d *Dev) converse(body func(eh *errorHandler)) (err error) {
	if !d.initialized {
		return ErrNotInitialized
	}
	eh := errorHandler{t: d.t}
	d.t.begin()
	eh.csOut(d.cs, gpio.High)
	defer func() {
		if err2 := d.cs.Out(gpio.Low); err2 != nil && err == nil {
			err = fmt.Errorf("sharpmem: chip select: %w", err2)
		}
	}()
	d.sleep(d.opts.SettleDelay)
	body(&eh)
	eh.flush()
	d.sleep(d.opts.SettleDelay)
	if eh.err != nil {
		return fmt.Errorf("sharpmem: %w", eh.err)
	}
	return nil
}

var _ display.Drawer = &Dev{}
var _ draw.Image = &Dev{}
var _ draw.Image = &FrameBuffer{}
