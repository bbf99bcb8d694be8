package lights

import (
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/errcode"
	"devicelights-go/services/lights/internal/anim"
	"devicelights-go/services/lights/internal/dimmer"
	"devicelights-go/services/lights/internal/pixel"
	"devicelights-go/types"
	"devicelights-go/x/colorx"
)

// Output is one relay GPIO.
type Output interface {
	Set(level bool)
}

// Strip is the addressable strip transmitter.
type Strip = pixel.Strip

// PinFactory supplies relay outputs by GPIO number.
type PinFactory interface {
	Output(pin int) (Output, bool)
}

// Notifier reports state changes upstream.
type Notifier interface {
	Notify(light string, p types.Param, value any)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(light string, p types.Param, value any)

func (f NotifyFunc) Notify(light string, p types.Param, value any) { f(light, p, value) }

// Options are the static parameters of the subsystem.
type Options struct {
	Pixels        int
	TickPeriod    time.Duration
	Duration      time.Duration
	CommitTimeout time.Duration
	Lights        []types.LightSpec
	Palette       *anim.Palette
}

// Hardware binds the subsystem to the physical strip and relay pins.
type Hardware struct {
	Strip Strip
	Pins  PinFactory
}

type light struct {
	spec types.LightSpec
	st   types.LightState
	outs []Output
}

// Controller owns all light state, the pixel buffer and the animation engine.
// It is not safe for concurrent use; Service serialises every call onto one
// goroutine together with the timer callbacks.
type Controller struct {
	log    zerolog.Logger
	notify Notifier

	lights map[string]*light
	order  []string

	rgb           *light
	buf           *pixel.Buffer
	eng           *anim.Engine
	commitTimeout time.Duration
}

// NewController validates the light set and claims outputs. timers arms the
// animation tick and duration and must deliver their expiries serially.
func NewController(opts Options, hw Hardware, timers anim.Timers, n Notifier, log zerolog.Logger) (*Controller, error) {
	if n == nil {
		n = NotifyFunc(func(string, types.Param, any) {})
	}
	c := &Controller{
		log:           log,
		notify:        n,
		lights:        make(map[string]*light, len(opts.Lights)),
		commitTimeout: opts.CommitTimeout,
	}
	for _, spec := range opts.Lights {
		if spec.Name == "" {
			return nil, errcode.New(errcode.InvalidParams, "lights.New", "light without a name")
		}
		if _, dup := c.lights[spec.Name]; dup {
			return nil, errcode.New(errcode.InvalidParams, "lights.New", "duplicate light "+spec.Name)
		}
		l := &light{spec: spec, st: spec.Default}
		switch spec.Kind {
		case types.LightRGB:
			if c.rgb != nil {
				return nil, errcode.New(errcode.InvalidParams, "lights.New", "more than one rgb light")
			}
			buf, err := pixel.New(opts.Pixels, hw.Strip, log)
			if err != nil {
				return nil, err
			}
			c.rgb, c.buf = l, buf
		case types.LightSwitch, types.LightStaged:
			want := 1
			if spec.Kind == types.LightStaged {
				want = len(dimmer.Off)
			}
			if len(spec.Pins) != want || hw.Pins == nil {
				return nil, errcode.New(errcode.InvalidParams, "lights.New", spec.Name+": wrong pin count")
			}
			for _, p := range spec.Pins {
				o, ok := hw.Pins.Output(p)
				if !ok {
					return nil, &errcode.E{C: errcode.UnknownPin, Op: "lights.New", Msg: spec.Name}
				}
				l.outs = append(l.outs, o)
			}
		default:
			return nil, errcode.New(errcode.InvalidParams, "lights.New", spec.Name+": unknown kind "+string(spec.Kind))
		}
		c.lights[spec.Name] = l
		c.order = append(c.order, spec.Name)
	}

	if c.rgb != nil {
		eng, err := anim.New(c.buf, timers, anim.Options{
			TickPeriod:    opts.TickPeriod,
			Duration:      opts.Duration,
			CommitTimeout: opts.CommitTimeout,
			InitialStyle:  anim.PulseGreen,
			Palette:       opts.Palette,
			Level:         func() int { return c.rgb.st.Brightness },
			Settle:        func() { _ = c.paintSteady() },
		}, log)
		if err != nil {
			return nil, err
		}
		c.eng = eng
	}
	return c, nil
}

// Start drives every output to its default state.
func (c *Controller) Start() {
	for _, name := range c.order {
		l := c.lights[name]
		if l == c.rgb {
			_ = c.paintSteady()
			continue
		}
		c.apply(l)
	}
}

// ---- Mutators ----

func (c *Controller) SetPower(name string, on bool) error {
	l, err := c.lookup(name)
	if err != nil {
		return err
	}
	if l.spec.Kind == types.LightSwitch && l.st.Power == on {
		c.notify.Notify(name, types.ParamPower, on)
		return nil
	}
	l.st.Power = on
	c.notify.Notify(name, types.ParamPower, on)
	c.refresh(l)
	return nil
}

// SetBrightness sets 0..100. On a staged light any value above zero turns the
// light on; on the RGB light any value does.
func (c *Controller) SetBrightness(name string, v int) error {
	l, err := c.lookup(name)
	if err != nil {
		return err
	}
	switch l.spec.Kind {
	case types.LightSwitch:
		return &errcode.E{C: errcode.Unsupported, Op: "SetBrightness", Msg: name}
	case types.LightStaged:
		l.st.Brightness = v
		c.notify.Notify(name, types.ParamBrightness, v)
		if v > 0 {
			c.forceOn(l)
		}
	default:
		l.st.Brightness = v
		c.notify.Notify(name, types.ParamBrightness, v)
		c.forceOn(l)
	}
	c.refresh(l)
	return nil
}

func (c *Controller) SetHue(name string, v int) error {
	l, err := c.lookupRGB(name, "SetHue")
	if err != nil {
		return err
	}
	l.st.Hue = v
	c.notify.Notify(name, types.ParamHue, v)
	c.forceOn(l)
	c.refresh(l)
	return nil
}

func (c *Controller) SetSaturation(name string, v int) error {
	l, err := c.lookupRGB(name, "SetSaturation")
	if err != nil {
		return err
	}
	l.st.Saturation = v
	c.notify.Notify(name, types.ParamSaturation, v)
	c.forceOn(l)
	c.refresh(l)
	return nil
}

// Toggle flips the power of a light and returns the new state.
func (c *Controller) Toggle(name string) (bool, error) {
	l, err := c.lookup(name)
	if err != nil {
		return false, err
	}
	on := !l.st.Power
	return on, c.SetPower(name, on)
}

// ---- Animation ----

// Trigger starts or extends a feedback effect on the strip.
func (c *Controller) Trigger(event string) error {
	if c.eng == nil {
		return &errcode.E{C: errcode.Unsupported, Op: "Trigger", Msg: "no rgb light"}
	}
	c.eng.Trigger(event)
	return nil
}

// Tick is the periodic animation callback.
func (c *Controller) Tick() error {
	if c.eng == nil {
		return nil
	}
	return c.eng.Tick()
}

// Expire is the one-shot duration callback.
func (c *Controller) Expire() {
	if c.eng != nil {
		c.eng.Expire()
	}
}

// Animation reports the engine state; ok is false without an RGB light.
func (c *Controller) Animation() (st anim.State, ok bool) {
	if c.eng == nil {
		return anim.State{}, false
	}
	return c.eng.State(), true
}

// ---- Queries ----

func (c *Controller) Get(name string) (types.LightInfo, error) {
	l, err := c.lookup(name)
	if err != nil {
		return types.LightInfo{}, err
	}
	return types.LightInfo{Name: name, Kind: l.spec.Kind, State: l.st}, nil
}

func (c *Controller) Lights() []types.LightInfo {
	out := make([]types.LightInfo, 0, len(c.order))
	for _, name := range c.order {
		l := c.lights[name]
		out = append(out, types.LightInfo{Name: name, Kind: l.spec.Kind, State: l.st})
	}
	return out
}

// Frame returns a copy of the strip frame, nil without an RGB light.
func (c *Controller) Frame() []colorx.RGB {
	if c.buf == nil {
		return nil
	}
	return c.buf.Snapshot()
}

// ---- internals ----

func (c *Controller) lookup(name string) (*light, error) {
	l, ok := c.lights[name]
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownLight, Msg: name}
	}
	return l, nil
}

func (c *Controller) lookupRGB(name, op string) (*light, error) {
	l, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	if l != c.rgb {
		return nil, &errcode.E{C: errcode.Unsupported, Op: op, Msg: name}
	}
	return l, nil
}

func (c *Controller) forceOn(l *light) {
	if l.st.Power {
		return
	}
	l.st.Power = true
	c.notify.Notify(l.spec.Name, types.ParamPower, true)
}

func (c *Controller) refresh(l *light) {
	if l != c.rgb {
		c.apply(l)
		return
	}
	if c.eng.Running() {
		// Picked up by paintSteady when the effect expires.
		return
	}
	_ = c.paintSteady()
}

// apply writes the relay outputs derived from a relay light's state.
func (c *Controller) apply(l *light) {
	switch l.spec.Kind {
	case types.LightSwitch:
		l.outs[0].Set(l.st.Power)
		c.log.Debug().Str("light", l.spec.Name).Bool("on", l.st.Power).Msg("relay")
	case types.LightStaged:
		r := dimmer.Derive(l.st.Power, l.st.Brightness)
		for i, o := range l.outs {
			o.Set(r[i])
		}
		c.log.Debug().Str("light", l.spec.Name).Int("tier", tierOf(l.st)).
			Bool("r0", r[0]).Bool("r1", r[1]).Bool("r2", r[2]).Msg("relays")
	}
}

func tierOf(st types.LightState) int {
	if !st.Power {
		return 0
	}
	return dimmer.Tier(st.Brightness)
}

// paintSteady commits the non-animated strip output. Brightness is baked into
// the HSV value here; it is not applied a second time at pixel write.
func (c *Controller) paintSteady() error {
	st := c.rgb.st
	if !st.Power {
		c.buf.Fill(colorx.Black)
	} else {
		c.buf.Fill(colorx.HSVToRGB(st.Hue, st.Saturation, st.Brightness))
	}
	return c.buf.Commit(c.commitTimeout)
}
