// Package app wires the configured services onto one bus. The cmd binaries
// differ only in the Board they pass in.
package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/services/button"
	"devicelights-go/services/config"
	"devicelights-go/services/console"
	"devicelights-go/services/heartbeat"
	"devicelights-go/services/lights"
	"devicelights-go/services/sensors"
)

const busQueueLen = 32

// Board is the hardware a binary provides.
type Board struct {
	Strip  lights.Strip
	Pins   lights.PinFactory
	Button button.Input // nil disables the button
	Reset  func()       // factory reset hook for a long button hold

	// Environment sensors; nil leaves a sensor unpolled.
	Climate sensors.Sensor
	Light   sensors.Sensor
}

type App struct {
	Bus    *bus.Bus
	Lights *lights.Service

	cfg   config.Config
	board Board
	log   zerolog.Logger
}

// Logger builds the root logger. Every record carries a per-boot id so logs
// from separate boots can be told apart.
func Logger(out io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("boot", uuid.NewString()).
		Logger()
}

// New builds the lighting service and publishes the configuration.
func New(cfg config.Config, board Board, log zerolog.Logger) (*App, error) {
	b := bus.NewBus(busQueueLen)
	config.Publish(b.NewConnection("config"), cfg)

	svc, err := lights.NewService(b.NewConnection("lights"), cfg.LightOptions(),
		lights.Hardware{Strip: board.Strip, Pins: board.Pins},
		log.With().Str("component", "lights").Logger())
	if err != nil {
		return nil, err
	}
	return &App{Bus: b, Lights: svc, cfg: cfg, board: board, log: log}, nil
}

// Start runs the lighting service, the heartbeat, the sensors and, when
// configured, the button.
func (a *App) Start(ctx context.Context) {
	a.Lights.Start(ctx)
	heartbeat.New(time.Duration(a.cfg.Heartbeat.IntervalMs)*time.Millisecond,
		a.log.With().Str("component", "heartbeat").Logger()).Start(ctx, a.Bus.NewConnection("heartbeat"))

	sc := a.cfg.Sensors
	sensors.New(a.Bus.NewConnection("sensors"), []sensors.Source{
		{ID: "sht31", Sensor: a.board.Climate, Period: time.Duration(sc.ClimatePeriodS) * time.Second},
		{ID: "bh1750", Sensor: a.board.Light, Period: time.Duration(sc.LightPeriodS) * time.Second},
	}, a.log.With().Str("component", "sensors").Logger()).Start(ctx)

	bc := a.cfg.Button
	if bc.Light == "" || a.board.Button == nil {
		return
	}
	button.New(a.Bus.NewConnection("button"), a.board.Button, button.Options{
		Light:     bc.Light,
		ActiveLow: bc.ActiveLow,
		Debounce:  time.Duration(bc.DebounceMs) * time.Millisecond,
		Hold:      time.Duration(bc.HoldMs) * time.Millisecond,
		Reset:     a.board.Reset,
	}, a.log.With().Str("component", "button").Logger()).Start(ctx)
}

// Console returns a command shell writing to out.
func (a *App) Console(out io.Writer) *console.Console {
	return console.New(a.Bus.NewConnection("console"), out, a.log.With().Str("component", "console").Logger())
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
