// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem

// Command bits. Bit positions are fixed by the panel.
const (
	bitDummy    byte = 0x00
	bitWriteCmd byte = 0x01
	bitVcom     byte = 0x02
	bitClear    byte = 0x04
)

// maxLines is the highest line address a single address byte can carry.
const maxLines = 255

// vcomState is the polarity of the common electrode sent with the next
// command. It flips once per conversation.
type vcomState byte

// reset puts VCOM in its defined power-up state.
func (v *vcomState) reset() {
	*v = vcomState(bitVcom)
}

// bits returns the value to OR into a command byte.
func (v vcomState) bits() byte {
	return byte(v)
}

func (v *vcomState) toggle() {
	*v ^= vcomState(bitVcom)
}

// sender pushes one byte to the panel.
type sender interface {
	sendByte(b byte)
}

// sendFrame streams a whole frame after the write command: the 1-based
// address of line 1, then every row followed by a dummy byte and, when rows
// remain, the address of the next one. A last dummy byte ends the transfer.
func sendFrame(s sender, pix []byte, bytesPerLine, lines int) {
	line := 1
	s.sendByte(byte(line))
	for i, b := range pix {
		s.sendByte(b)
		next := (i+1)/bytesPerLine + 1
		if next != line {
			s.sendByte(bitDummy)
			if next <= lines {
				s.sendByte(byte(next))
			}
			line = next
		}
	}
	s.sendByte(bitDummy)
}

// sendLines streams only the listed rows (0-based) with the same per line
// framing as sendFrame.
func sendLines(s sender, f *FrameBuffer, rows []int) {
	for _, y := range rows {
		s.sendByte(byte(y + 1))
		for _, b := range f.row(y) {
			s.sendByte(b)
		}
		s.sendByte(bitDummy)
	}
	s.sendByte(bitDummy)
}
