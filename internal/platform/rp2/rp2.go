//go:build rp2040 || rp2350

// Package rp2 binds the lighting subsystem to RP2040/RP2350 peripherals.
package rp2

import (
	"context"
	"image/color"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ws2812"

	"devicelights-go/errcode"
	"devicelights-go/services/button"
	"devicelights-go/services/config"
	"devicelights-go/services/lights"
	"devicelights-go/x/colorx"
)

const maxGPIO = 29

func inRange(n int) bool { return n >= 0 && n <= maxGPIO }

// Strip drives a WS2812 chain. The write is a synchronous bit-banged burst,
// so the timeout is only checked after the fact.
type Strip struct {
	dev ws2812.Device
	buf []color.RGBA
}

func NewStrip(pin int) (*Strip, error) {
	if !inRange(pin) {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "rp2.NewStrip"}
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Strip{dev: ws2812.New(p)}, nil
}

func (s *Strip) Transmit(px []colorx.RGB, timeout time.Duration) error {
	s.buf = s.buf[:0]
	for _, c := range px {
		s.buf = append(s.buf, c.RGBA())
	}
	start := time.Now()
	if err := s.dev.WriteColors(s.buf); err != nil {
		return errcode.Wrap(errcode.TransmitFailed, "ws2812", err)
	}
	if timeout > 0 && time.Since(start) > timeout {
		return errcode.New(errcode.TransmitFailed, "ws2812", "write exceeded timeout")
	}
	return nil
}

type gpio struct{ p machine.Pin }

func (g gpio) Set(b bool) { g.p.Set(b) }
func (g gpio) Get() bool  { return g.p.Get() }

// Pins configures board GPIOs as relay outputs, driven low until set.
type Pins struct{}

func (Pins) Output(n int) (lights.Output, bool) {
	if !inRange(n) {
		return nil, false
	}
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return gpio{p}, true
}

// ButtonInput configures the button pin with a pull toward its idle level.
func ButtonInput(cfg config.Button) (button.Input, error) {
	if !inRange(cfg.Pin) {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "rp2.ButtonInput"}
	}
	mode := machine.PinInputPulldown
	if cfg.ActiveLow {
		mode = machine.PinInputPullup
	}
	p := machine.Pin(cfg.Pin)
	p.Configure(machine.PinConfig{Mode: mode})
	return gpio{p}, nil
}

// Serial is the console UART as an io.ReadWriter. Reads block until bytes
// arrive or ctx is done.
type Serial struct {
	ctx context.Context
	u   *uartx.UART
}

func OpenSerial(ctx context.Context, cfg config.Console) *Serial {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: cfg.Baud,
		TX:       machine.Pin(cfg.TX),
		RX:       machine.Pin(cfg.RX),
	})
	return &Serial{ctx: ctx, u: u}
}

func (s *Serial) Read(p []byte) (int, error) {
	return s.u.RecvSomeContext(s.ctx, p)
}

func (s *Serial) Write(p []byte) (int, error) { return s.u.Write(p) }
