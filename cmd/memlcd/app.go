// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/memlcd/internal/config"
	"github.com/GermanBionicSystems/memlcd/internal/render"
	"github.com/GermanBionicSystems/memlcd/mirror"
	"github.com/GermanBionicSystems/memlcd/sharpmem"
	"github.com/GermanBionicSystems/memlcd/termview"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// panel is what the command needs from the driver.
type panel interface {
	display.Drawer
	Clear() error
	ToggleVcom() error
}

type app struct {
	cfg  *config.Config
	log  *logrus.Logger
	face font.Face

	dev    panel
	port   spi.PortCloser
	mirror *mirror.Mirror
	view   *termview.Dev
}

func newApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	face, err := render.Face(cfg.Font.Size, cfg.Font.Bitmap)
	if err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}
	a := &app{cfg: cfg, log: log, face: face}
	if err := a.open(); err != nil {
		a.close(false)
		return nil, err
	}
	return a, nil
}

func pin(name, role string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%s pin %q not found", role, name)
	}
	return p, nil
}

// open initializes the host and the panel with its observers.
func (a *app) open() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing host: %w", err)
	}
	opts, err := a.cfg.Opts()
	if err != nil {
		return err
	}

	rot := sharpmem.Rotation(a.cfg.Panel.Rotation)
	if a.cfg.Mirror.Listen != "" {
		w, h := opts.Width, opts.Height
		if rot%2 == 1 {
			w, h = h, w
		}
		format, _ := mirror.ParseImageFormat(a.cfg.Mirror.Format)
		a.mirror = mirror.New(&mirror.Options{
			Width:  w,
			Height: h,
			Scale:  a.cfg.Mirror.Scale,
			Format: format,
			Log:    a.log.WithField("component", "mirror"),
		})
	}
	if a.cfg.Preview {
		if a.view, err = termview.New(&termview.Opts{W: opts.Width, H: opts.Height, Rotation: rot}); err != nil {
			return err
		}
	}
	opts.Observer = a.observe

	cs, err := pin(a.cfg.Pins.CS, "cs")
	if err != nil {
		return err
	}
	if a.cfg.Pins.Disp != "" {
		if opts.Disp, err = pin(a.cfg.Pins.Disp, "disp"); err != nil {
			return err
		}
	}

	var dev *sharpmem.Dev
	switch a.cfg.Transport.Kind {
	case config.BitBang:
		clk, err := pin(a.cfg.Pins.Clk, "clk")
		if err != nil {
			return err
		}
		mosi, err := pin(a.cfg.Pins.MOSI, "mosi")
		if err != nil {
			return err
		}
		if dev, err = sharpmem.NewBitBang(clk, mosi, cs, &opts); err != nil {
			return err
		}
	default:
		if a.port, err = spireg.Open(a.cfg.Transport.Port); err != nil {
			return fmt.Errorf("opening SPI port %q: %w", a.cfg.Transport.Port, err)
		}
		if dev, err = sharpmem.New(a.port, cs, &opts); err != nil {
			return err
		}
	}
	if err := dev.Init(); err != nil {
		return err
	}
	if err := dev.SetRotation(rot); err != nil {
		return err
	}
	a.dev = dev
	a.log.WithFields(logrus.Fields{"panel": dev.String(), "rotation": dev.Rotation()}).Info("Panel ready")
	return nil
}

// observe receives every frame the panel shows.
func (a *app) observe(img image.Image) {
	if a.mirror != nil {
		a.mirror.Publish(img)
	}
	if a.view != nil {
		if err := a.view.Show(img); err != nil {
			a.log.WithError(err).Warn("Terminal preview failed")
		}
	}
}

// close releases everything. With keepImage the panel is left on, so the
// image of a one-shot command stays visible after exit.
func (a *app) close(keepImage bool) {
	if a.mirror != nil {
		_ = a.mirror.Halt()
	}
	if a.dev != nil && !keepImage {
		if err := a.dev.Halt(); err != nil {
			a.log.WithError(err).Warn("Halting the panel failed")
		}
	}
	if a.view != nil {
		_ = a.view.Halt()
	}
	if a.port != nil {
		_ = a.port.Close()
	}
}

// showText renders msg over the whole panel.
func (a *app) showText(msg string) error {
	img := image.NewGray(a.dev.Bounds())
	render.Text(img, a.face, msg)
	return a.dev.Draw(img.Bounds(), img, image.Point{})
}

// showClock renders the clock for now.
func (a *app) showClock(now time.Time) error {
	img := image.NewGray(a.dev.Bounds())
	render.Clock(img, a.face, now)
	return a.dev.Draw(img.Bounds(), img, image.Point{})
}

// oneShot reports whether cmd exits right after drawing.
func oneShot(cmd string, hold bool) bool {
	return cmd == "clear" || (cmd == "text" && !hold)
}

func (a *app) run(cmd, msg string, hold bool) error {
	switch cmd {
	case "clear":
		return a.dev.Clear()
	case "text":
		if err := a.showText(msg); err != nil {
			return err
		}
		if !hold {
			return nil
		}
		return a.serve(false)
	case "clock":
		if err := a.showClock(time.Now()); err != nil {
			return err
		}
		return a.serve(true)
	case "vcom":
		return a.serve(false)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// schedule returns the cron jobs keeping the panel alive, and redrawing the
// clock when clock is set.
func (a *app) schedule(clock bool) (*cron.Cron, error) {
	l := cron.PrintfLogger(a.log)
	c := cron.New(cron.WithLogger(l), cron.WithChain(cron.SkipIfStillRunning(l)))
	if _, err := c.AddFunc(a.cfg.Vcom, func() {
		if err := a.dev.ToggleVcom(); err != nil {
			a.log.WithError(err).Error("Toggling VCOM failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("vcom schedule: %w", err)
	}
	if clock {
		if _, err := c.AddFunc(a.cfg.Redraw, func() {
			if err := a.showClock(time.Now()); err != nil {
				a.log.WithError(err).Error("Redrawing the clock failed")
			}
		}); err != nil {
			return nil, fmt.Errorf("redraw schedule: %w", err)
		}
	}
	return c, nil
}

// serve runs the schedules and the HTTP surface until SIGINT or SIGTERM.
func (a *app) serve(clock bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := a.schedule(clock)
	if err != nil {
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	var srv *http.Server
	errc := make(chan error, 1)
	if a.cfg.Mirror.Listen != "" {
		srv = &http.Server{
			Addr:              a.cfg.Mirror.Listen,
			Handler:           newRouter(a),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.log.WithField("listen", srv.Addr).Info("Serving the mirror")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.log.Info("Stopping")
	case err = <-errc:
	}
	if srv != nil {
		// Stream clients only leave once the mirror is halted.
		_ = a.mirror.Halt()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err2 := srv.Shutdown(sctx); err2 != nil && err == nil {
			err = err2
		}
	}
	return err
}

// preview renders a scene on the terminal only.
func preview(cfg *config.Config, scene, msg string) error {
	opts, err := cfg.Opts()
	if err != nil {
		return err
	}
	face, err := render.Face(cfg.Font.Size, cfg.Font.Bitmap)
	if err != nil {
		return err
	}
	v, err := termview.New(&termview.Opts{W: opts.Width, H: opts.Height, Rotation: sharpmem.Rotation(cfg.Panel.Rotation)})
	if err != nil {
		return err
	}
	img := image.NewGray(v.Bounds())
	switch scene {
	case "clock":
		render.Clock(img, face, time.Now())
	case "text":
		render.Text(img, face, msg)
	default:
		return fmt.Errorf("unknown scene %q, want clock or text", scene)
	}
	if err := v.Show(img); err != nil {
		return err
	}
	return v.Halt()
}
