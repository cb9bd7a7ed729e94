// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sharpmem controls Sharp monochrome memory-in-pixel LCD panels
// (LS013B4DN04, LS013B7DH03, LS011B7DH03, LS012B7DD01, LS027B7DH01 and
// compatible) over SPI.
//
// The panel is write only. The driver keeps a packed 1 bit per pixel copy
// of the whole screen in memory and pushes it with the line addressed write
// command. Bytes are sent least significant bit first and the chip select
// line is active high, which is the opposite of most SPI devices; the driver
// drives it on a dedicated GPIO.
//
// The panel must see its common electrode (VCOM) polarity flip regularly,
// at least once per second, or the liquid crystal degrades. Every refresh,
// clear and ToggleVcom call flips it once; scheduling calls to ToggleVcom
// when the image does not change is up to the caller.
//
// # Wiring
//
// Connect SCLK to SPI_CLK, SI to SPI_MOSI and SCS to any free GPIO. DISP
// (display on) can be tied high or handed to the driver via Opts.Disp.
// EXTMODE must be low so VCOM is taken from the serial command.
//
// Hosts without a usable SPI port can clock the panel from any two GPIOs,
// see NewBitBang.
//
// # Datasheet
//
// https://www.sharpsde.com/fileadmin/products/Displays/Specs/LS013B7DH03_25Mar22_Spec_LD-2022013.pdf
//
// https://www.sharpsde.com/fileadmin/products/Displays/2016_SDE_App_Note_for_Memory_LCD_programming_V1.3.pdf
package sharpmem
