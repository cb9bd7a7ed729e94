// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the YAML configuration of the memlcd command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/GermanBionicSystems/memlcd/mirror"
	"github.com/GermanBionicSystems/memlcd/sharpmem"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Transport kinds.
const (
	SPI     = "spi"
	BitBang = "bitbang"
)

// Models maps the panel model names accepted in the configuration to their
// geometry.
var Models = map[string]sharpmem.Opts{
	"LS013B4DN04": sharpmem.LS013B4DN04,
	"LS013B7DH03": sharpmem.LS013B7DH03,
	"LS011B7DH03": sharpmem.LS011B7DH03,
	"LS012B7DD01": sharpmem.LS012B7DD01,
	"LS027B7DH01": sharpmem.LS027B7DH01,
}

// Panel describes the display geometry. Width and Height override the
// model's.
type Panel struct {
	Model    string `yaml:"model"`
	Width    int    `yaml:"width,omitempty"`
	Height   int    `yaml:"height,omitempty"`
	Rotation int    `yaml:"rotation"`
}

// Transport describes how the panel is wired.
type Transport struct {
	// Kind is "spi" or "bitbang".
	Kind string `yaml:"kind"`
	// Port is the spireg port name, empty for the first one.
	Port string `yaml:"port"`
	// Frequency such as "2MHz".
	Frequency   string        `yaml:"frequency"`
	ReverseBits bool          `yaml:"reverse_bits"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Pins are gpioreg names. Clk and MOSI are only used by the bitbang
// transport, Disp is optional.
type Pins struct {
	CS   string `yaml:"cs"`
	Disp string `yaml:"disp,omitempty"`
	Clk  string `yaml:"clk,omitempty"`
	MOSI string `yaml:"mosi,omitempty"`
}

// Font used by the text and clock scenes.
type Font struct {
	Size float64 `yaml:"size"`
	// Bitmap selects the pixel font instead of Go Regular.
	Bitmap bool `yaml:"bitmap"`
}

// Mirror is the HTTP surface. An empty Listen disables it.
type Mirror struct {
	Listen string `yaml:"listen"`
	Scale  int    `yaml:"scale"`
	Format string `yaml:"format"`
}

// Config is the top-level configuration.
type Config struct {
	Panel     Panel     `yaml:"panel"`
	Transport Transport `yaml:"transport"`
	Pins      Pins      `yaml:"pins"`
	// Vcom is the cron schedule of the VCOM keep-alive.
	Vcom string `yaml:"vcom"`
	// Redraw is the cron schedule of the clock scene.
	Redraw string `yaml:"redraw"`
	Font   Font   `yaml:"font"`
	Mirror Mirror `yaml:"mirror"`
	// Preview also renders every frame on the terminal.
	Preview bool `yaml:"preview"`
}

// Default returns the configuration of a 128x128 panel on the first SPI port.
func Default() *Config {
	return &Config{
		Panel:     Panel{Model: "LS013B7DH03"},
		Transport: Transport{Kind: SPI, Frequency: "2MHz", SettleDelay: 6 * time.Microsecond},
		Pins:      Pins{CS: "GPIO8"},
		Vcom:      "@every 1s",
		Redraw:    "@every 1m",
		Font:      Font{Size: 16},
		Mirror:    Mirror{Scale: 2, Format: "png"},
	}
}

// Normalize fills in missing values with the defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Panel.Model == "" && c.Panel.Width == 0 && c.Panel.Height == 0 {
		c.Panel.Model = d.Panel.Model
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = d.Transport.Kind
	}
	c.Transport.Kind = strings.ToLower(c.Transport.Kind)
	if c.Transport.Frequency == "" {
		c.Transport.Frequency = d.Transport.Frequency
	}
	if c.Transport.SettleDelay <= 0 {
		c.Transport.SettleDelay = d.Transport.SettleDelay
	}
	if c.Pins.CS == "" {
		c.Pins.CS = d.Pins.CS
	}
	if c.Vcom == "" {
		c.Vcom = d.Vcom
	}
	if c.Redraw == "" {
		c.Redraw = d.Redraw
	}
	if c.Font.Size <= 0 {
		c.Font.Size = d.Font.Size
	}
	if c.Mirror.Scale < 1 {
		c.Mirror.Scale = d.Mirror.Scale
	}
	if c.Mirror.Format == "" {
		c.Mirror.Format = d.Mirror.Format
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.Opts(); err != nil {
		return err
	}
	if c.Panel.Rotation < 0 || c.Panel.Rotation > 3 {
		return fmt.Errorf("config: panel.rotation %d must be between 0 and 3", c.Panel.Rotation)
	}
	switch c.Transport.Kind {
	case SPI:
	case BitBang:
		if c.Pins.Clk == "" || c.Pins.MOSI == "" {
			return errors.New("config: the bitbang transport needs pins.clk and pins.mosi")
		}
	default:
		return fmt.Errorf("config: unknown transport.kind %q, want %q or %q", c.Transport.Kind, SPI, BitBang)
	}
	if c.Pins.CS == "" {
		return errors.New("config: pins.cs is required")
	}
	for name, spec := range map[string]string{"vcom": c.Vcom, "redraw": c.Redraw} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("config: %s schedule %q: %w", name, spec, err)
		}
	}
	if _, err := mirror.ParseImageFormat(c.Mirror.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Opts returns the driver options described by the panel and transport
// sections. Pins are resolved by the caller.
func (c *Config) Opts() (sharpmem.Opts, error) {
	var o sharpmem.Opts
	if c.Panel.Model != "" {
		m, ok := Models[strings.ToUpper(c.Panel.Model)]
		if !ok {
			return o, fmt.Errorf("config: unknown panel.model %q, known models: %s", c.Panel.Model, strings.Join(ModelNames(), ", "))
		}
		o = m
	}
	if c.Panel.Width != 0 {
		o.Width = c.Panel.Width
	}
	if c.Panel.Height != 0 {
		o.Height = c.Panel.Height
	}
	if _, err := sharpmem.NewFrameBuffer(o.Width, o.Height); err != nil {
		return o, fmt.Errorf("config: panel %dx%d: %w", o.Width, o.Height, err)
	}
	if c.Transport.Frequency != "" {
		if err := o.Frequency.Set(c.Transport.Frequency); err != nil {
			return o, fmt.Errorf("config: transport.frequency: %w", err)
		}
		if o.Frequency <= 0 || o.Frequency > 20*physic.MegaHertz {
			return o, fmt.Errorf("config: transport.frequency %s out of range", o.Frequency)
		}
	}
	o.ReverseBits = c.Transport.ReverseBits
	o.SettleDelay = c.Transport.SettleDelay
	return o, nil
}

// ModelNames returns the known panel models, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(Models))
	for n := range Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads the configuration at path. A missing file is created with the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, Save(path, cfg)
		}
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return cfg, nil
}

// Save writes cfg to path atomically, through a temporary file in the same
// directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config: config is nil")
	}
	cfg.Normalize()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".memlcd-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
