// Package gobotio drives relays and the button through a gobot GPIO
// adaptor, typically raspi.Adaptor on a Raspberry Pi.
package gobotio

import (
	"strconv"

	"github.com/rs/zerolog"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/gpio"

	"devicelights-go/errcode"
	"devicelights-go/services/button"
	"devicelights-go/services/lights"
)

// header maps BCM GPIO numbers to physical pins on the 40-pin header, which
// is how the raspi adaptor names them.
var header = map[int]int{
	2: 3, 3: 5, 4: 7, 14: 8, 15: 10, 17: 11, 18: 12, 27: 13,
	22: 15, 23: 16, 24: 18, 10: 19, 9: 21, 25: 22, 11: 23, 8: 24,
	7: 26, 0: 27, 1: 28, 5: 29, 6: 31, 12: 32, 13: 33, 19: 35,
	16: 36, 26: 37, 20: 38, 21: 40,
}

// HeaderPin returns the adaptor pin name for a BCM GPIO number.
func HeaderPin(bcm int) (string, bool) {
	p, ok := header[bcm]
	if !ok {
		return "", false
	}
	return strconv.Itoa(p), true
}

type Pins struct {
	conn gobot.Connection
	log  zerolog.Logger
}

func NewPins(conn gobot.Connection, log zerolog.Logger) *Pins {
	return &Pins{conn: conn, log: log.With().Str("component", "gpio").Logger()}
}

func (p *Pins) Output(n int) (lights.Output, bool) {
	name, ok := HeaderPin(n)
	if !ok {
		return nil, false
	}
	r := &relay{d: gpio.NewDirectPinDriver(p.conn, name), bcm: n, log: p.log}
	r.Set(false)
	return r, true
}

// Input reads the button through the adaptor.
func (p *Pins) Input(n int) (button.Input, error) {
	name, ok := HeaderPin(n)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "gobotio.Input", Msg: strconv.Itoa(n)}
	}
	d := gpio.NewDirectPinDriver(p.conn, name)
	log := p.log
	return button.InputFunc(func() bool {
		v, err := d.DigitalRead()
		if err != nil {
			log.Warn().Err(err).Int("gpio", n).Msg("read failed")
			return false
		}
		return v != 0
	}), nil
}

type relay struct {
	d   *gpio.DirectPinDriver
	bcm int
	log zerolog.Logger
}

func (r *relay) Set(on bool) {
	var level byte
	if on {
		level = 1
	}
	if err := r.d.DigitalWrite(level); err != nil {
		r.log.Warn().Err(err).Int("gpio", r.bcm).Bool("on", on).Msg("relay write failed")
	}
}
