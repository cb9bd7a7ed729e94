// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem_test

import (
	"image"
	"log"
	"time"

	"github.com/GermanBionicSystems/memlcd/sharpmem"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use spireg SPI port registry to find the first available SPI port.
	p, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	// The panel's chip select is active high, any free GPIO works.
	cs := gpioreg.ByName("GPIO8")
	if cs == nil {
		log.Fatal("no chip select pin")
	}

	opts := sharpmem.LS013B7DH03
	dev, err := sharpmem.New(p, cs, &opts)
	if err != nil {
		log.Fatalf("failed to initialize sharpmem: %v", err)
	}
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()
	if err := dev.Clear(); err != nil {
		log.Fatal(err)
	}

	// Draw black text on the white panel.
	img := image.NewGray(dev.Bounds())
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	f := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.Off},
		Face: f,
		Dot:  fixed.P(4, img.Bounds().Dy()/2),
	}
	drawer.DrawString("Hello from periph!")
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Fatal(err)
	}

	// VCOM must keep toggling while the image is shown.
	for i := 0; i < 10; i++ {
		time.Sleep(time.Second)
		if err := dev.ToggleVcom(); err != nil {
			log.Fatal(err)
		}
	}
}
