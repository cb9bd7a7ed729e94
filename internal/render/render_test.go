// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"image"
	"testing"
	"time"

	"github.com/GermanBionicSystems/memlcd/sharpmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func black(fb *sharpmem.FrameBuffer, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if fb.Pixel(x, y) == 0 {
				n++
			}
		}
	}
	return n
}

func newFrameBuffer(t *testing.T, w, h int) *sharpmem.FrameBuffer {
	t.Helper()
	fb, err := sharpmem.NewFrameBuffer(w, h)
	require.NoError(t, err)
	return fb
}

func TestFace(t *testing.T) {
	f, err := Face(24, false)
	require.NoError(t, err)
	small, err := Face(12, false)
	require.NoError(t, err)
	assert.Greater(t, int(f.Metrics().Height), int(small.Metrics().Height))

	bm, err := Face(24, true)
	require.NoError(t, err)
	assert.NotNil(t, bm)
}

func TestText(t *testing.T) {
	face, err := Face(16, false)
	require.NoError(t, err)
	fb := newFrameBuffer(t, 128, 64)

	Text(fb, face, "")
	assert.Zero(t, black(fb, fb.Bounds()), "empty text must leave the panel white")

	Text(fb, face, "Hello")
	n := black(fb, fb.Bounds())
	assert.Greater(t, n, 20)
	// Centered: the borders stay white.
	assert.Zero(t, black(fb, image.Rect(0, 0, 128, 8)))
	assert.Zero(t, black(fb, image.Rect(0, 56, 128, 64)))
	assert.Zero(t, black(fb, image.Rect(0, 0, 8, 64)))

	// Redrawing replaces the previous content.
	Text(fb, face, "Hello")
	assert.Equal(t, n, black(fb, fb.Bounds()))
}

func TestTextWraps(t *testing.T) {
	face, err := Face(16, false)
	require.NoError(t, err)
	fb := newFrameBuffer(t, 64, 96)
	Text(fb, face, "one two three four")
	top := black(fb, image.Rect(0, 0, 64, 48))
	bottom := black(fb, image.Rect(0, 48, 64, 96))
	assert.Greater(t, top, 0)
	assert.Greater(t, bottom, 0)
}

func TestTextBitmapFont(t *testing.T) {
	face, err := Face(0, true)
	require.NoError(t, err)
	fb := newFrameBuffer(t, 96, 32)
	Text(fb, face, "memlcd")
	assert.Greater(t, black(fb, fb.Bounds()), 10)
}

func TestClock(t *testing.T) {
	face, err := Face(12, false)
	require.NoError(t, err)
	fb := newFrameBuffer(t, 96, 96)
	Clock(fb, face, time.Date(2026, time.March, 1, 3, 0, 0, 0, time.UTC))
	// At 3 o'clock the hour hand points right and the minute hand up.
	assert.Greater(t, black(fb, image.Rect(56, 46, 64, 50)), 0, "hour hand")
	assert.Greater(t, black(fb, image.Rect(46, 16, 50, 30)), 0, "minute hand")
	assert.Zero(t, black(fb, image.Rect(16, 46, 36, 50)), "nothing points to 9")
	// The date sits in the bottom left corner.
	assert.Greater(t, black(fb, image.Rect(0, 80, 40, 96)), 0, "date")
}

func TestClockTiny(t *testing.T) {
	face, err := Face(12, false)
	require.NoError(t, err)
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	Clock(img, face, time.Now())
	for _, p := range img.Pix[:4] {
		assert.Equal(t, uint8(0xff), p)
	}
}
