// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws the scenes of the memlcd command.
//
// Scenes are drawn antialiased with gg and reduced to black and white by the
// destination's color model, so any draw.Image works, a sharpmem.Dev
// included.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Face returns Go Regular at size points, or the fixed size pixel font when
// bitmap is set.
func Face(size float64, bitmap bool) (font.Face, error) {
	if bitmap {
		return bitmapfont.Face, nil
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func newContext(dst draw.Image) *gg.Context {
	b := dst.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	return dc
}

// flush copies the picture drawn in dc to dst.
func flush(dst draw.Image, dc *gg.Context) {
	b := dst.Bounds()
	draw.Draw(dst, b, dc.Image(), image.Point{}, draw.Src)
}

// Text fills dst with msg, word wrapped and centered, black on white.
func Text(dst draw.Image, face font.Face, msg string) {
	dc := newContext(dst)
	dc.SetFontFace(face)
	w, h := float64(dc.Width()), float64(dc.Height())
	if msg != "" {
		dc.DrawStringWrapped(msg, w/2, h/2, 0.5, 0.5, w-4, 1.2, gg.AlignCenter)
	}
	flush(dst, dc)
}

// Clock fills dst with an analog clock showing t, the time in digits and the
// date in the bottom left corner.
func Clock(dst draw.Image, face font.Face, t time.Time) {
	dc := newContext(dst)
	w, h := float64(dc.Width()), float64(dc.Height())
	cx, cy := w/2, h/2
	r := math.Min(w, h)/2 - 2
	if r < 4 {
		flush(dst, dc)
		return
	}

	dc.SetLineWidth(math.Max(1, r/32))
	dc.DrawCircle(cx, cy, r)
	dc.Stroke()
	for i := 0; i < 12; i++ {
		a := gg.Radians(float64(i) * 30)
		inner := r * 0.85
		if i%3 == 0 {
			inner = r * 0.75
		}
		dc.DrawLine(cx+inner*math.Sin(a), cy-inner*math.Cos(a), cx+r*math.Sin(a), cy-r*math.Cos(a))
	}
	dc.Stroke()

	dc.SetFontFace(face)
	dc.DrawStringAnchored(t.Format("15:04"), cx, cy+r/2, 0.5, 0.5)

	dc.SetLineCapRound()
	minutes := float64(t.Minute()) + float64(t.Second())/60
	hours := float64(t.Hour()%12) + minutes/60
	hand(dc, cx, cy, r*0.5, hours*30, math.Max(2, r/12))
	hand(dc, cx, cy, r*0.8, minutes*6, math.Max(1, r/20))
	flush(dst, dc)

	date := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(dst.Bounds().Min.X+1, dst.Bounds().Max.Y-basicfont.Face7x13.Descent-1),
	}
	date.DrawString(t.Format("Jan 2"))
}

// hand draws a clock hand of length l at deg degrees clockwise from 12.
func hand(dc *gg.Context, cx, cy, l, deg, width float64) {
	a := gg.Radians(deg)
	dc.SetLineWidth(width)
	dc.DrawLine(cx, cy, cx+l*math.Sin(a), cy-l*math.Cos(a))
	dc.Stroke()
}
