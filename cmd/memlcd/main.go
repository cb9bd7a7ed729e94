// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// memlcd drives a Sharp memory LCD.
//
// It clears the panel, shows a message or a clock, and keeps VCOM toggling
// while the picture stays up. With mirror.listen set, the panel content is
// also streamed over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GermanBionicSystems/memlcd/internal/config"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	name := filepath.Base(os.Args[0])

	debug := flag.Bool("d", false, "Enable debug logging")
	cfgPath := flag.String("c", defaultConfigPath(), "Configuration file, created with the defaults when missing")
	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] COMMAND\n", name)
		fmt.Printf("\nDrive a Sharp memory LCD\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		fmt.Printf("  clear     Turn the panel white\n")
		fmt.Printf("  text      Show a message\n")
		fmt.Printf("  clock     Show a clock until interrupted\n")
		fmt.Printf("  vcom      Only keep VCOM toggling until interrupted\n")
		fmt.Printf("  preview   Render a scene on the terminal, no panel needed\n")
		fmt.Printf("\nRun '%s COMMAND -h' for more information on a command.\n", name)
	}

	clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)
	textCmd := flag.NewFlagSet("text", flag.ExitOnError)
	textHold := textCmd.Bool("hold", false, "Keep running, toggling VCOM, until interrupted")
	clockCmd := flag.NewFlagSet("clock", flag.ExitOnError)
	vcomCmd := flag.NewFlagSet("vcom", flag.ExitOnError)
	previewCmd := flag.NewFlagSet("preview", flag.ExitOnError)
	previewScene := previewCmd.String("scene", "clock", "Scene to render: clock or text")
	textCmd.Usage = func() {
		fmt.Printf("\nUsage: %s text [-hold] MESSAGE...\n", name)
		fmt.Printf("\nShow MESSAGE word wrapped in the middle of the panel\n")
		fmt.Printf("\nWithout -hold the panel is left on and the message stays visible.\n")
		fmt.Printf("VCOM is not toggled after exit, run '%s vcom' to keep the panel healthy.\n\n", name)
		textCmd.PrintDefaults()
	}
	previewCmd.Usage = func() {
		fmt.Printf("\nUsage: %s preview [-scene clock|text] [MESSAGE...]\n\n", name)
		previewCmd.PrintDefaults()
	}

	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	var fs *flag.FlagSet
	switch cmd {
	case "clear":
		fs = clearCmd
	case "text":
		fs = textCmd
	case "clock":
		fs = clockCmd
	case "vcom":
		fs = vcomCmd
	case "preview":
		fs = previewCmd
	default:
		fmt.Printf("\n%s is not a %s command\n", cmd, name)
		flag.Usage()
		os.Exit(1)
	}
	_ = fs.Parse(args)
	if cmd != "text" && cmd != "preview" && fs.NArg() > 0 {
		fmt.Printf("\n\"%s %s\" accepts no arguments\n", name, cmd)
		fs.Usage()
		os.Exit(1)
	}
	if cmd == "text" && fs.NArg() == 0 {
		textCmd.Usage()
		os.Exit(1)
	}

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		logrus.Debug("Debug mode activated")
	}
	log := logrus.StandardLogger()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Unable to load the configuration: %v", err)
	}
	log.WithField("path", *cfgPath).Debug("Configuration loaded")

	msg := strings.Join(fs.Args(), " ")
	if cmd == "preview" {
		if err := preview(cfg, *previewScene, msg); err != nil {
			log.Fatal(err)
		}
		return
	}

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal(err)
	}
	if err := a.run(cmd, msg, *textHold); err != nil {
		log.Error(err)
		a.close(false)
		os.Exit(1)
	}
	a.close(oneShot(cmd, *textHold))
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "memlcd", "memlcd.yaml")
	}
	return "memlcd.yaml"
}
