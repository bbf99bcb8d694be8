// Package sim provides host stand-ins for the strip and relay GPIOs. Frames
// and relay changes are logged instead of driven.
package sim

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/errcode"
	"devicelights-go/services/lights"
	"devicelights-go/x/colorx"
)

// Strip records the last frame and logs each transmit at debug level.
type Strip struct {
	log zerolog.Logger

	mu     sync.Mutex
	last   []colorx.RGB
	frames int
	fail   bool
}

func NewStrip(log zerolog.Logger) *Strip {
	return &Strip{log: log.With().Str("component", "strip").Logger()}
}

func (s *Strip) Transmit(px []colorx.RGB, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errcode.TransmitFailed
	}
	s.last = append(s.last[:0], px...)
	s.frames++
	if len(px) > 0 && s.log.GetLevel() <= zerolog.DebugLevel {
		s.log.Debug().Int("frame", s.frames).Int("pixels", len(px)).
			Str("px0", hex(px[0])).Dur("timeout", timeout).Msg("transmit")
	}
	return nil
}

// SetFail makes subsequent transmits fail.
func (s *Strip) SetFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

// Last returns a copy of the most recent frame.
func (s *Strip) Last() []colorx.RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]colorx.RGB(nil), s.last...)
}

func (s *Strip) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func hex(c colorx.RGB) string {
	const digits = "0123456789abcdef"
	b := [7]byte{'#'}
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b[:])
}

// Pins hands out logged outputs. With no allow-list any non-negative pin is
// accepted.
type Pins struct {
	log   zerolog.Logger
	allow map[int]bool

	mu   sync.Mutex
	pins map[int]*Pin
}

func NewPins(log zerolog.Logger, allow ...int) *Pins {
	p := &Pins{log: log.With().Str("component", "gpio").Logger(), pins: map[int]*Pin{}}
	if len(allow) > 0 {
		p.allow = map[int]bool{}
		for _, n := range allow {
			p.allow[n] = true
		}
	}
	return p
}

func (p *Pins) Output(n int) (lights.Output, bool) {
	pin, ok := p.Pin(n)
	if !ok {
		return nil, false
	}
	return pin, true
}

// Pin returns the simulated pin n, creating it on first use.
func (p *Pins) Pin(n int) (*Pin, bool) {
	if n < 0 || (p.allow != nil && !p.allow[n]) {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pin := p.pins[n]
	if pin == nil {
		pin = &Pin{n: n, log: p.log}
		p.pins[n] = pin
	}
	return pin, true
}

type Pin struct {
	n   int
	log zerolog.Logger

	mu    sync.Mutex
	level bool
	sets  int
}

func (p *Pin) Set(level bool) {
	p.mu.Lock()
	changed := level != p.level || p.sets == 0
	p.level = level
	p.sets++
	p.mu.Unlock()
	if changed {
		p.log.Info().Str("pin", "GP"+strconv.Itoa(p.n)).Bool("level", level).Msg("gpio")
	}
}

// Get also makes Pin usable as a button input in the simulator.
func (p *Pin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}
