// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharpmem

import (
	"periph.io/x/conn/v3/gpio"
)

// errorHandler keeps the first I/O error of a conversation. Once an error is
// recorded the remaining transfers are skipped.
type errorHandler struct {
	t   transport
	err error
}

func (eh *errorHandler) csOut(cs gpio.PinOut, l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = cs.Out(l)
}

func (eh *errorHandler) sendByte(b byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.t.writeByte(b)
}

func (eh *errorHandler) flush() {
	if eh.err != nil {
		return
	}
	eh.err = eh.t.flush()
}

var _ sender = &errorHandler{}
