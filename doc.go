// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package memlcd is a container for the Sharp memory LCD driver and its
// tools.
//
// The driver lives in sharpmem. termview and mirror show what the panel shows,
// on a terminal and over HTTP. The memlcd command under cmd/ ties them
// together.
package memlcd
