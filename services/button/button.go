// Package button turns the local push button into lighting commands: a short
// press toggles one light, a long hold requests a factory reset.
package button

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/services/lights"
	"devicelights-go/types"
)

// Input is a raw GPIO level.
type Input interface {
	Get() bool
}

// InputFunc adapts a function to Input.
type InputFunc func() bool

func (f InputFunc) Get() bool { return f() }

type Event uint8

const (
	None Event = iota
	Pressed
	Released // short press completed
	Held     // held past the hold threshold; no Released follows
)

func (e Event) String() string {
	switch e {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	case Held:
		return "held"
	default:
		return "none"
	}
}

type Options struct {
	Light     string // toggled on release
	ActiveLow bool
	Debounce  time.Duration
	Hold      time.Duration
	Poll      time.Duration // defaults to 10ms
	// Reset runs on the button goroutine once per hold.
	Reset func()
}

// detector is the debounce and hold state machine, fed with polled levels.
type detector struct {
	debounce time.Duration
	hold     time.Duration

	level     bool // debounced, true = pressed
	lastEdge  time.Time
	pressedAt time.Time
	held      bool
}

func (d *detector) step(pressed bool, now time.Time) Event {
	if pressed != d.level {
		if !d.lastEdge.IsZero() && now.Sub(d.lastEdge) < d.debounce {
			return None
		}
		d.level = pressed
		d.lastEdge = now
		if pressed {
			d.pressedAt, d.held = now, false
			return Pressed
		}
		if d.held {
			return None
		}
		return Released
	}
	if d.level && !d.held && now.Sub(d.pressedAt) >= d.hold {
		d.held = true
		return Held
	}
	return None
}

type Service struct {
	conn *bus.Connection
	in   Input
	opts Options
	log  zerolog.Logger
	det  detector
}

func New(conn *bus.Connection, in Input, opts Options, log zerolog.Logger) *Service {
	if opts.Poll <= 0 {
		opts.Poll = 10 * time.Millisecond
	}
	return &Service{
		conn: conn,
		in:   in,
		opts: opts,
		log:  log,
		det:  detector{debounce: opts.Debounce, hold: opts.Hold},
	}
}

func (s *Service) pressed() bool {
	return s.in.Get() != s.opts.ActiveLow
}

func (s *Service) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Run polls the input until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	// A button held at boot is not a press.
	s.det.level = s.pressed()
	s.det.held = s.det.level

	t := time.NewTicker(s.opts.Poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.handle(s.det.step(s.pressed(), now))
		}
	}
}

func (s *Service) handle(ev Event) {
	if ev == None {
		return
	}
	s.conn.Publish(s.conn.NewMessage(bus.T("button", "event"), ev.String(), false))
	switch ev {
	case Released:
		if s.opts.Light == "" {
			return
		}
		s.log.Info().Str("light", s.opts.Light).Msg("button toggle")
		s.conn.Publish(s.conn.NewMessage(lights.TopicCtrl(s.opts.Light, types.ParamPower), "toggle", false))
	case Held:
		s.log.Warn().Dur("hold", s.opts.Hold).Msg("button held, factory reset")
		if s.opts.Reset != nil {
			s.opts.Reset()
		}
	}
}
