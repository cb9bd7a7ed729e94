// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GermanBionicSystems/memlcd/sharpmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	o, err := c.Opts()
	require.NoError(t, err)
	assert.Equal(t, 128, o.Width)
	assert.Equal(t, 128, o.Height)
	assert.Equal(t, 2*physic.MegaHertz, o.Frequency)
	assert.Equal(t, 6*time.Microsecond, o.SettleDelay)
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "memlcd.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memlcd.yaml")
	const data = `
panel:
  model: ls027b7dh01
  rotation: 1
transport:
  kind: BitBang
  frequency: 1MHz
  settle_delay: 10us
pins:
  cs: GPIO22
  clk: GPIO11
  mosi: GPIO10
  disp: GPIO24
vcom: "@every 500ms"
mirror:
  listen: ":8080"
  format: jpeg
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BitBang, c.Transport.Kind)
	assert.Equal(t, 10*time.Microsecond, c.Transport.SettleDelay)
	assert.Equal(t, "@every 1m", c.Redraw)
	assert.Equal(t, 2, c.Mirror.Scale)
	assert.Equal(t, 1, c.Panel.Rotation)
	assert.Equal(t, Pins{CS: "GPIO22", Clk: "GPIO11", MOSI: "GPIO10", Disp: "GPIO24"}, c.Pins)

	o, err := c.Opts()
	require.NoError(t, err)
	assert.Equal(t, sharpmem.LS027B7DH01.Width, o.Width)
	assert.Equal(t, sharpmem.LS027B7DH01.Height, o.Height)
	assert.Equal(t, physic.MegaHertz, o.Frequency)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memlcd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panel: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("vcom: every second\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "vcom schedule")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memlcd.yaml")
	c := Default()
	c.Panel = Panel{Width: 144, Height: 168, Rotation: 2}
	c.Transport.ReverseBits = true
	c.Mirror.Listen = "127.0.0.1:9000"
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown model",
			mutate:  func(c *Config) { c.Panel.Model = "LS044Q7DH01" },
			wantErr: "unknown panel.model",
		},
		{
			name:    "width not a multiple of 8",
			mutate:  func(c *Config) { c.Panel = Panel{Width: 100, Height: 100} },
			wantErr: "invalid size",
		},
		{
			name:    "too many lines",
			mutate:  func(c *Config) { c.Panel.Height = 300 },
			wantErr: "invalid size",
		},
		{
			name:    "rotation",
			mutate:  func(c *Config) { c.Panel.Rotation = 4 },
			wantErr: "panel.rotation",
		},
		{
			name:    "transport",
			mutate:  func(c *Config) { c.Transport.Kind = "i2c" },
			wantErr: "unknown transport.kind",
		},
		{
			name:    "bitbang pins",
			mutate:  func(c *Config) { c.Transport.Kind = BitBang },
			wantErr: "pins.clk",
		},
		{
			name:    "frequency",
			mutate:  func(c *Config) { c.Transport.Frequency = "fast" },
			wantErr: "transport.frequency",
		},
		{
			name:    "frequency range",
			mutate:  func(c *Config) { c.Transport.Frequency = "50MHz" },
			wantErr: "out of range",
		},
		{
			name:    "redraw schedule",
			mutate:  func(c *Config) { c.Redraw = "* * *" },
			wantErr: "redraw schedule",
		},
		{
			name:    "mirror format",
			mutate:  func(c *Config) { c.Mirror.Format = "gif" },
			wantErr: "unrecognized image format",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.ErrorContains(t, c.Validate(), tc.wantErr)
		})
	}
}

func TestModelNames(t *testing.T) {
	names := ModelNames()
	assert.Len(t, names, len(Models))
	assert.IsIncreasing(t, names)
}
