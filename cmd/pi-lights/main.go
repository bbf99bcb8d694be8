//go:build linux

// Command pi-lights runs the relay lights from a Raspberry Pi header through
// gobot. The strip is logged only.
package main

import (
	"flag"
	"os"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"gobot.io/x/gobot/platforms/raspi"

	"devicelights-go/internal/app"
	"devicelights-go/internal/platform/gobotio"
	"devicelights-go/internal/platform/sim"
	"devicelights-go/services/config"
)

const lockPath = "/var/lock/devicelights.lock"

func main() {
	configPath := flag.String("config", "", "YAML overlay on the built-in board config")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		l := app.Logger(os.Stderr, zerolog.InfoLevel, false)
		l.Fatal().Err(err).Msg("config")
	}
	log := app.Logger(os.Stderr, cfg.LogLevel(), false)

	// The relays are shared with other tools on the Pi; only one owner at a time.
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatal().Err(err).Str("lock", lockPath).Msg("lock")
	}
	if !locked {
		log.Fatal().Str("lock", lockPath).Msg("another instance holds the GPIO lock")
	}
	defer lock.Unlock()

	r := raspi.NewAdaptor()
	if err := r.Connect(); err != nil {
		log.Fatal().Err(err).Msg("raspi connect")
	}
	defer r.Finalize()

	pins := gobotio.NewPins(r, log)
	board := app.Board{
		Strip: sim.NewStrip(log),
		Pins:  pins,
		Reset: func() { log.Warn().Msg("factory reset requested") },
	}
	if cfg.Button.Light != "" {
		if board.Button, err = pins.Input(cfg.Button.Pin); err != nil {
			log.Fatal().Err(err).Msg("button")
		}
	}

	// Sensors use the Pi's own I2C bus; the configured SDA/SCL apply to the MCU.
	if cfg.Sensors.ClimatePeriodS > 0 {
		if board.Climate, err = gobotio.Climate(r); err != nil {
			log.Warn().Err(err).Msg("sht31 unavailable")
		}
	}
	if cfg.Sensors.LightPeriodS > 0 {
		if board.Light, err = gobotio.Light(r); err != nil {
			log.Warn().Err(err).Msg("bh1750 unavailable")
		}
	}

	a, err := app.New(cfg, board, log)
	if err != nil {
		log.Fatal().Err(err).Msg("lights")
	}
	ctx, stop := app.SignalContext()
	defer stop()
	a.Start(ctx)
	log.Info().Str("device", cfg.Device).Msg("pi-lights running")

	go func() {
		_ = a.Console(os.Stdout).Serve(ctx, os.Stdin)
	}()
	<-ctx.Done()
}
