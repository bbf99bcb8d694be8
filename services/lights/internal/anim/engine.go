// Package anim paints short feedback effects onto the strip.
//
// The engine is a two-timer state machine. Trigger arms a periodic tick and a
// one-shot duration; every tick repaints and commits the frame; the duration
// expiry stops the tick and hands the strip back to the steady-state painter.
// Timer callbacks are expected to run serially on one goroutine.
package anim

import (
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/errcode"
	"devicelights-go/services/lights/internal/pixel"
	"devicelights-go/x/colorx"
)

type Style uint8

const (
	Spinner Style = iota
	PulseBlue
	PulseRed
	PulseGreen
)

func (s Style) String() string {
	switch s {
	case Spinner:
		return "spinner"
	case PulseBlue:
		return "pulse_blue"
	case PulseRed:
		return "pulse_red"
	case PulseGreen:
		return "pulse_green"
	default:
		return "unknown"
	}
}

type Direction uint8

const (
	Rising Direction = iota
	Falling
)

// CycleTicks is the length of one counter cycle.
const CycleTicks = 24

// ratioStep gives ratio 0..0.943 over a cycle, not a full 0..1 span.
const ratioStep = 0.041

// StyleFor maps a symbolic event to a style.
func StyleFor(event string) (Style, bool) {
	switch event {
	case "ERROR", "OTA":
		return PulseRed, true
	case "LOAD":
		return Spinner, true
	case "MOVE":
		return PulseBlue, true
	default:
		return 0, false
	}
}

// Timers arms the engine's two timers. Trigger restarts both; Expire stops the tick.
type Timers interface {
	StartTick(period time.Duration)
	StopTick()
	StartDuration(d time.Duration)
}

// Pulse is the colour range a pulse style breathes across.
type Pulse struct {
	Min, Max colorx.RGB
}

// Palette holds the effect colours before brightness scaling.
type Palette struct {
	SpinnerBackground colorx.RGB
	SpinnerForeground colorx.RGB
	Pulses            map[Style]Pulse
}

func DefaultPalette() Palette {
	return Palette{
		SpinnerBackground: colorx.RGB{R: 0, G: 8, B: 16},
		SpinnerForeground: colorx.RGB{R: 0, G: 160, B: 255},
		Pulses: map[Style]Pulse{
			PulseBlue:  {Min: colorx.RGB{B: 8}, Max: colorx.RGB{B: 255}},
			PulseRed:   {Min: colorx.RGB{R: 8}, Max: colorx.RGB{R: 255}},
			PulseGreen: {Min: colorx.RGB{G: 8}, Max: colorx.RGB{G: 255}},
		},
	}
}

type Options struct {
	TickPeriod    time.Duration
	Duration      time.Duration
	CommitTimeout time.Duration
	// InitialStyle is used until the first recognised trigger.
	InitialStyle Style
	Palette      *Palette
	// Level is the brightness percent applied to every pixel written.
	Level func() int
	// Settle repaints the steady state once an effect has expired.
	Settle func()
}

// State is a copy of the engine's animation state.
type State struct {
	Style   Style
	Counter int
	Dir     Direction
	Running bool
}

type Engine struct {
	buf    *pixel.Buffer
	timers Timers
	opts   Options
	pal    Palette
	log    zerolog.Logger

	style   Style
	counter int
	dir     Direction
	running bool
}

// New validates the timer settings. A non-positive period or duration is a
// timer setup failure and the engine is not created.
func New(buf *pixel.Buffer, timers Timers, opts Options, log zerolog.Logger) (*Engine, error) {
	if buf == nil || timers == nil {
		return nil, errcode.New(errcode.InvalidParams, "anim.New", "nil buffer or timers")
	}
	if opts.TickPeriod <= 0 {
		return nil, errcode.New(errcode.TimerInit, "anim.New", "tick period must be positive")
	}
	if opts.Duration <= 0 {
		return nil, errcode.New(errcode.TimerInit, "anim.New", "duration must be positive")
	}
	pal := DefaultPalette()
	if opts.Palette != nil {
		pal = *opts.Palette
	}
	return &Engine{
		buf:    buf,
		timers: timers,
		opts:   opts,
		pal:    pal,
		log:    log,
		style:  opts.InitialStyle,
	}, nil
}

func (e *Engine) State() State {
	return State{Style: e.style, Counter: e.counter, Dir: e.dir, Running: e.running}
}

func (e *Engine) Running() bool { return e.running }

// Trigger selects the style for event (unknown events keep the current one)
// and restarts both timers. A running effect is extended, not queued.
func (e *Engine) Trigger(event string) {
	if s, ok := StyleFor(event); ok {
		e.style = s
	} else {
		e.log.Debug().Str("event", event).Msg("unrecognised trigger; style unchanged")
	}
	if !e.running {
		// A fresh effect starts its cycle over; a retrigger keeps its phase.
		e.counter, e.dir = 0, Rising
		e.log.Debug().Str("style", e.style.String()).Msg("animation start")
	}
	e.timers.StartTick(e.opts.TickPeriod)
	e.timers.StartDuration(e.opts.Duration)
	e.running = true
}

// Tick advances the counter and repaints. Ticks while idle are ignored.
func (e *Engine) Tick() error {
	if !e.running {
		return nil
	}
	e.counter = (e.counter + 1) % CycleTicks
	if e.counter == 0 {
		if e.dir == Rising {
			e.dir = Falling
		} else {
			e.dir = Rising
		}
	}
	ratio := float64(e.counter) * ratioStep

	switch e.style {
	case Spinner:
		n := e.buf.Len()
		e.buf.Fill(e.scale(e.pal.SpinnerBackground))
		fg := e.scale(e.pal.SpinnerForeground)
		e.buf.Set(e.counter%n, fg)
		e.buf.Set((e.counter+1)%n, fg)
	default:
		p := e.pal.Pulses[e.style]
		t := ratio
		if e.dir == Falling {
			t = 1 - ratio
		}
		e.buf.Fill(e.scale(colorx.Interpolate(p.Min, p.Max, t)))
	}
	return e.buf.Commit(e.opts.CommitTimeout)
}

// Expire ends the effect regardless of the tick phase.
func (e *Engine) Expire() {
	e.timers.StopTick()
	if !e.running {
		return
	}
	e.running = false
	e.log.Debug().Str("style", e.style.String()).Msg("animation end")
	if e.opts.Settle != nil {
		e.opts.Settle()
	}
}

func (e *Engine) scale(c colorx.RGB) colorx.RGB {
	if e.opts.Level == nil {
		return c
	}
	return colorx.ScaleBrightness(c, e.opts.Level())
}
