// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mirror serves a copy of what a memory LCD shows over HTTP.
//
// Frames are handed to Publish, typically by using it as the panel driver's
// observer:
//
//	m := mirror.New(&mirror.Options{Width: 128, Height: 128, Scale: 4})
//	opts.Observer = m.Publish
//
// Stream clients get the current frame and then a new one every time the
// panel changes, as "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG), the
// protocol IP cameras use. PNG is sent by default since it suits a two color
// picture far better; JPEG can be selected via Options.Format or the
// "format" URL parameter.
package mirror

import (
	"image"
	"image/color"
	"sync"

	"github.com/sirupsen/logrus"
)

// Options for a Mirror.
type Options struct {
	// Width and Height of the frame served before the first Publish.
	Width, Height int
	// Scale magnifies every panel pixel to a Scale x Scale square. Defaults to
	// 1.
	Scale int
	// Format is the image format sent when the client does not ask for one.
	Format ImageFormat
	// Log receives request errors. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// Palette of the served frames: pixel value 0 is ink, 1 is paper.
var Palette = color.Palette{
	color.Gray{Y: 0x20},
	color.Gray{Y: 0xe8},
}

// Mirror is an http.Handler streaming the published frames.
type Mirror struct {
	defaultFormat ImageFormat
	scale         int
	log           logrus.FieldLogger

	mu       sync.Mutex
	frame    *image.Paletted
	seq      uint64
	clients  map[*client]struct{}
	snapshot map[ImageFormat][]byte
}

// New returns a Mirror showing a blank (paper colored) frame.
func New(opt *Options) *Mirror {
	scale := opt.Scale
	if scale < 1 {
		scale = 1
	}
	l := opt.Log
	if l == nil {
		l = logrus.StandardLogger()
	}
	m := &Mirror{
		defaultFormat: opt.Format,
		scale:         scale,
		log:           l,
		clients:       map[*client]struct{}{},
		snapshot:      map[ImageFormat][]byte{},
	}
	m.frame = m.blank(image.Rect(0, 0, opt.Width, opt.Height))
	return m
}

// String returns the name of the mirror.
func (m *Mirror) String() string {
	return "Mirror"
}

// Halt implements conn.Resource and terminates all running stream requests
// asynchronously.
func (m *Mirror) Halt() error {
	m.mu.Lock()
	for c := range m.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	m.mu.Unlock()
	return nil
}

// Bounds returns the size of the served frames, scale included.
func (m *Mirror) Bounds() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame.Bounds()
}

// Frames returns the number of frames published so far.
func (m *Mirror) Frames() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// Publish makes img the current frame and wakes up the stream clients.
//
// Pixels are reduced to ink or paper by luminance. img is not retained, so
// Publish can be used as an observer receiving the driver's snapshots.
func (m *Mirror) Publish(img image.Image) {
	b := img.Bounds()
	frame := m.blank(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if Palette.Index(img.At(x, y)) != 0 {
				continue
			}
			m.fill(frame, x-b.Min.X, y-b.Min.Y, 0)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
	m.seq++
	for f, buf := range m.snapshot {
		//lint:ignore SA6002 buf is []byte and thus pointer-like
		bufferPool.Put(buf)
		delete(m.snapshot, f)
	}
	for c := range m.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

// blank returns a paper colored frame for a panel of size r.
func (m *Mirror) blank(r image.Rectangle) *image.Paletted {
	frame := image.NewPaletted(image.Rect(0, 0, r.Dx()*m.scale, r.Dy()*m.scale), Palette)
	for i := range frame.Pix {
		frame.Pix[i] = 1
	}
	return frame
}

func (m *Mirror) fill(frame *image.Paletted, x, y int, v uint8) {
	for dy := 0; dy < m.scale; dy++ {
		off := frame.PixOffset(x*m.scale, y*m.scale+dy)
		for dx := 0; dx < m.scale; dx++ {
			frame.Pix[off+dx] = v
		}
	}
}
