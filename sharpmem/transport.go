// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem

import (
	"fmt"
	"math/bits"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// transport clocks bytes to the panel, least significant bit first.
//
// A conversation calls begin, then writeByte for every byte, then flush
// before chip select is released.
type transport interface {
	fmt.Stringer
	connect() error
	begin()
	writeByte(b byte) error
	flush() error
	halt() error
}

// spiTransport uses a hardware SPI port. Bytes of a conversation are
// gathered and sent as one transaction.
type spiTransport struct {
	p       spi.Port
	f       physic.Frequency
	reverse bool

	c   spi.Conn
	buf []byte
}

func (t *spiTransport) String() string {
	if t.c != nil {
		return t.c.String()
	}
	return t.p.String()
}

func (t *spiTransport) connect() error {
	if t.c != nil {
		return nil
	}
	// Chip select is driven by the driver, the panel wants it active high.
	mode := spi.Mode0 | spi.NoCS
	if !t.reverse {
		mode |= spi.LSBFirst
	}
	c, err := t.p.Connect(t.f, mode, 8)
	if err != nil {
		return err
	}
	t.c = c
	return nil
}

func (t *spiTransport) begin() {
	t.buf = t.buf[:0]
}

func (t *spiTransport) writeByte(b byte) error {
	if t.reverse {
		b = bits.Reverse8(b)
	}
	t.buf = append(t.buf, b)
	return nil
}

func (t *spiTransport) flush() error {
	if t.c == nil {
		return ErrNotInitialized
	}
	w := t.buf
	limit := len(w)
	if l, ok := t.c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		limit = l.MaxTxSize()
	}
	for len(w) > 0 {
		n := len(w)
		if n > limit {
			n = limit
		}
		if err := t.c.Tx(w[:n], nil); err != nil {
			return err
		}
		w = w[n:]
	}
	t.buf = t.buf[:0]
	return nil
}

// halt keeps the connection: a spi.Port can only be connected once.
func (t *spiTransport) halt() error {
	t.buf = nil
	return nil
}

// bitBangTransport toggles a clock and a data GPIO by hand.
type bitBangTransport struct {
	clk  gpio.PinOut
	mosi gpio.PinOut
}

func (t *bitBangTransport) String() string {
	return fmt.Sprintf("bitbang{%s, %s}", t.clk, t.mosi)
}

func (t *bitBangTransport) connect() error {
	if err := t.clk.Out(gpio.Low); err != nil {
		return err
	}
	return t.mosi.Out(gpio.High)
}

func (t *bitBangTransport) begin() {
}

// writeByte sends b on the rising clock edges. The clock is left low.
func (t *bitBangTransport) writeByte(b byte) error {
	for i := 0; i < 8; i++ {
		if err := t.clk.Out(gpio.Low); err != nil {
			return err
		}
		if err := t.mosi.Out(gpio.Level(b&1 != 0)); err != nil {
			return err
		}
		if err := t.clk.Out(gpio.High); err != nil {
			return err
		}
		b >>= 1
	}
	return t.clk.Out(gpio.Low)
}

func (t *bitBangTransport) flush() error {
	return nil
}

func (t *bitBangTransport) halt() error {
	return nil
}

var _ transport = &spiTransport{}
var _ transport = &bitBangTransport{}
