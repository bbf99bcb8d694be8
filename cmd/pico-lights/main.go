//go:build rp2040 || rp2350

// Command pico-lights is the device firmware: WS2812 strip, relay GPIOs, the
// push button and a UART console.
package main

import (
	"context"
	"machine"
	"time"

	"devicelights-go/internal/app"
	"devicelights-go/internal/platform/rp2"
	"devicelights-go/services/config"
)

func main() {
	// Allow USB CDC to enumerate before we log.
	time.Sleep(2 * time.Second)

	ctx := context.Background()
	cfg := config.Default()
	serial := rp2.OpenSerial(ctx, cfg.Console)
	log := app.Logger(serial, cfg.LogLevel(), false)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	strip, err := rp2.NewStrip(cfg.Strip.Pin)
	if err != nil {
		log.Fatal().Err(err).Msg("strip")
	}
	board := app.Board{
		Strip: strip,
		Pins:  rp2.Pins{},
		Reset: func() {
			log.Warn().Msg("factory reset")
			time.Sleep(100 * time.Millisecond)
			machine.CPUReset()
		},
	}
	if cfg.Button.Light != "" {
		if board.Button, err = rp2.ButtonInput(cfg.Button); err != nil {
			log.Fatal().Err(err).Msg("button")
		}
	}

	if sc := cfg.Sensors; sc.Enabled() {
		i2c, err := rp2.OpenI2C(sc)
		if err != nil {
			log.Fatal().Err(err).Msg("i2c")
		}
		if sc.ClimatePeriodS > 0 {
			board.Climate = rp2.Climate(i2c)
		}
		if sc.LightPeriodS > 0 {
			board.Light = rp2.Light(i2c)
		}
	}

	a, err := app.New(cfg, board, log)
	if err != nil {
		log.Fatal().Err(err).Msg("lights")
	}
	a.Start(ctx)
	log.Info().Str("device", cfg.Device).Msg("boot")

	for {
		if err := a.Console(serial).Serve(ctx, serial); err != nil {
			log.Warn().Err(err).Msg("console")
		}
		time.Sleep(100 * time.Millisecond)
	}
}
