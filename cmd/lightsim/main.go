// Command lightsim runs the lighting subsystem on a host with a simulated
// strip and relays, driven from a console on stdin.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"devicelights-go/internal/app"
	"devicelights-go/internal/platform/sim"
	"devicelights-go/services/config"
)

func main() {
	configPath := flag.String("config", "", "YAML overlay on the built-in board config")
	level := flag.String("log-level", "", "override log.level")
	jsonLogs := flag.Bool("json", false, "JSON logs instead of console format")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		l := app.Logger(os.Stderr, zerolog.InfoLevel, true)
		l.Fatal().Err(err).Msg("config")
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	log := app.Logger(os.Stderr, cfg.LogLevel(), !*jsonLogs)
	log.Info().Str("device", cfg.Device).Str("config", *configPath).Msg("lightsim starting")

	pins := sim.NewPins(log)
	board := app.Board{
		Strip: sim.NewStrip(log),
		Pins:  pins,
		Reset: func() { log.Warn().Msg("factory reset requested (simulated)") },

		Climate: sim.Climate(21.5, 45),
		Light:   sim.Light(250),
	}
	a, err := app.New(cfg, board, log)
	if err != nil {
		log.Fatal().Err(err).Msg("lights")
	}

	ctx, stop := app.SignalContext()
	defer stop()
	a.Start(ctx)

	go func() {
		if err := a.Console(os.Stdout).Serve(ctx, os.Stdin); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("console")
		}
		stop()
	}()
	<-ctx.Done()
	log.Info().Msg("lightsim stopped")
}
