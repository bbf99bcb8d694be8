package lights

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/errcode"
	"devicelights-go/types"
	"devicelights-go/x/colorx"
)

// ---- fakes ----

type fakePin struct {
	mu     sync.Mutex
	level  bool
	writes int
}

func (p *fakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.writes++
	p.mu.Unlock()
}

func (p *fakePin) get() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, p.writes
}

type fakePins struct {
	mu   sync.Mutex
	pins map[int]*fakePin
}

func newFakePins() *fakePins { return &fakePins{pins: map[int]*fakePin{}} }

func (f *fakePins) Output(n int) (Output, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 {
		return nil, false
	}
	p, ok := f.pins[n]
	if !ok {
		p = &fakePin{}
		f.pins[n] = p
	}
	return p, true
}

func (f *fakePins) levels(ns ...int) []bool {
	out := make([]bool, len(ns))
	for i, n := range ns {
		f.mu.Lock()
		p := f.pins[n]
		f.mu.Unlock()
		out[i], _ = p.get()
	}
	return out
}

type fakeStrip struct {
	mu     sync.Mutex
	frames [][]colorx.RGB
	fail   bool
}

func (s *fakeStrip) Transmit(px []colorx.RGB, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("rmt timeout")
	}
	s.frames = append(s.frames, append([]colorx.RGB(nil), px...))
	return nil
}

func (s *fakeStrip) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeStrip) last() []colorx.RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

type fakeTimers struct {
	ticks, stops, durs int
}

func (f *fakeTimers) StartTick(time.Duration)     { f.ticks++ }
func (f *fakeTimers) StopTick()                   { f.stops++ }
func (f *fakeTimers) StartDuration(time.Duration) { f.durs++ }

type note struct {
	light string
	param types.Param
	value any
}

type recorder struct{ notes []note }

func (r *recorder) Notify(light string, p types.Param, v any) {
	r.notes = append(r.notes, note{light, p, v})
}

func (r *recorder) has(light string, p types.Param, v any) bool {
	for _, n := range r.notes {
		if n.light == light && n.param == p && n.value == v {
			return true
		}
	}
	return false
}

// ---- fixtures ----

const (
	rgbName    = "RGB Light"
	switchName = "Bedroom Light"
	stagedName = "Wall Light"
)

func testSpecs() []types.LightSpec {
	return []types.LightSpec{
		{Name: rgbName, Kind: types.LightRGB, Pins: []int{5}, Default: types.LightState{Hue: 180, Saturation: 100, Brightness: 15}},
		{Name: switchName, Kind: types.LightSwitch, Pins: []int{19}},
		{Name: stagedName, Kind: types.LightStaged, Pins: []int{18, 17, 16}, Default: types.LightState{Power: true}},
	}
}

func testOptions() Options {
	return Options{
		Pixels:        6,
		TickPeriod:    40 * time.Millisecond,
		Duration:      10 * time.Second,
		CommitTimeout: 100 * time.Millisecond,
		Lights:        testSpecs(),
	}
}

func newTestController(t *testing.T) (*Controller, *fakeStrip, *fakePins, *fakeTimers, *recorder) {
	t.Helper()
	strip := &fakeStrip{}
	pins := newFakePins()
	tm := &fakeTimers{}
	rec := &recorder{}
	c, err := NewController(testOptions(), Hardware{Strip: strip, Pins: pins}, tm, rec, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	c.Start()
	return c, strip, pins, tm, rec
}

func frameIs(t *testing.T, frame []colorx.RGB, want colorx.RGB) {
	t.Helper()
	if len(frame) == 0 {
		t.Fatal("no frame committed")
	}
	for i, c := range frame {
		if c != want {
			t.Fatalf("pixel %d = %v, want %v", i, c, want)
		}
	}
}

// ---- tests ----

func TestNewController_Validation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Options)
		want errcode.Code
	}{
		{"dup", func(o *Options) { o.Lights = append(o.Lights, o.Lights[1]) }, errcode.InvalidParams},
		{"two rgb", func(o *Options) {
			o.Lights = append(o.Lights, types.LightSpec{Name: "x", Kind: types.LightRGB})
		}, errcode.InvalidParams},
		{"staged pins", func(o *Options) { o.Lights[2].Pins = []int{1, 2} }, errcode.InvalidParams},
		{"bad pin", func(o *Options) { o.Lights[1].Pins = []int{-1} }, errcode.UnknownPin},
		{"kind", func(o *Options) { o.Lights[1].Kind = "dimmer" }, errcode.InvalidParams},
		{"pixels", func(o *Options) { o.Pixels = 0 }, errcode.InvalidParams},
		{"tick", func(o *Options) { o.TickPeriod = 0 }, errcode.TimerInit},
		{"duration", func(o *Options) { o.Duration = 0 }, errcode.TimerInit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := testOptions()
			tc.mut(&o)
			_, err := NewController(o, Hardware{Strip: &fakeStrip{}, Pins: newFakePins()}, &fakeTimers{}, nil, zerolog.Nop())
			if errcode.Of(err) != tc.want {
				t.Fatalf("got %v, want %s", err, tc.want)
			}
		})
	}
}

func TestStart_DefaultOutputs(t *testing.T) {
	_, strip, pins, _, _ := newTestController(t)
	// RGB default power is off: strip cleared.
	frameIs(t, strip.last(), colorx.Black)
	if got := pins.levels(19); got[0] {
		t.Fatal("switch default should be off")
	}
	// Staged default: power on, brightness 0 => all off.
	if got := pins.levels(18, 17, 16); got[0] || got[1] || got[2] {
		t.Fatalf("staged defaults = %v", got)
	}
}

func TestStaged_EndToEnd(t *testing.T) {
	c, _, pins, _, _ := newTestController(t)

	if err := c.SetBrightness(stagedName, 60); err != nil {
		t.Fatal(err)
	}
	if got := pins.levels(18, 17, 16); !got[0] || !got[1] || got[2] {
		t.Fatalf("brightness 60 => %v, want [on on off]", got)
	}
	if err := c.SetBrightness(stagedName, 0); err != nil {
		t.Fatal(err)
	}
	if got := pins.levels(18, 17, 16); got[0] || got[1] || got[2] {
		t.Fatalf("brightness 0 => %v, want all off", got)
	}
	info, _ := c.Get(stagedName)
	if !info.State.Power {
		t.Fatal("brightness 0 must not clear power")
	}
}

func TestStaged_BrightnessForcesPowerOn(t *testing.T) {
	c, _, pins, _, rec := newTestController(t)
	_ = c.SetPower(stagedName, false)
	if got := pins.levels(18, 17, 16); got[0] || got[1] || got[2] {
		t.Fatalf("power off => %v", got)
	}
	rec.notes = nil

	_ = c.SetBrightness(stagedName, 30)
	info, _ := c.Get(stagedName)
	if !info.State.Power {
		t.Fatal("brightness > 0 should force power on")
	}
	if got := pins.levels(18, 17, 16); !got[0] || got[1] || !got[2] {
		t.Fatalf("brightness 30 => %v, want [on off on]", got)
	}
	if !rec.has(stagedName, types.ParamPower, true) || !rec.has(stagedName, types.ParamBrightness, 30) {
		t.Fatalf("missing notifications: %+v", rec.notes)
	}

	// Brightness 0 while off keeps it off.
	_ = c.SetPower(stagedName, false)
	_ = c.SetBrightness(stagedName, 0)
	if info, _ := c.Get(stagedName); info.State.Power {
		t.Fatal("brightness 0 must not force power on")
	}
}

func TestSwitch_WritesOnlyOnChange(t *testing.T) {
	c, _, pins, _, rec := newTestController(t)
	p, _ := pins.Output(19)
	_, before := p.(*fakePin).get()

	_ = c.SetPower(switchName, false) // unchanged
	if _, n := p.(*fakePin).get(); n != before {
		t.Fatal("unchanged switch state rewrote the pin")
	}
	on, err := c.Toggle(switchName)
	if err != nil || !on {
		t.Fatalf("Toggle = %v, %v", on, err)
	}
	if lvl, _ := p.(*fakePin).get(); !lvl {
		t.Fatal("switch not driven high")
	}
	if !rec.has(switchName, types.ParamPower, true) {
		t.Fatal("toggle not reported")
	}
	if err := c.SetBrightness(switchName, 40); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("brightness on switch: %v", err)
	}
	if err := c.SetHue(switchName, 40); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("hue on switch: %v", err)
	}
}

func TestRGB_SteadyStateAndImplicitPower(t *testing.T) {
	c, strip, _, _, rec := newTestController(t)

	if err := c.SetHue(rgbName, 120); err != nil {
		t.Fatal(err)
	}
	// Setting hue turns the light on with brightness baked into V.
	frameIs(t, strip.last(), colorx.HSVToRGB(120, 100, 15))
	if !rec.has(rgbName, types.ParamPower, true) || !rec.has(rgbName, types.ParamHue, 120) {
		t.Fatalf("notifications: %+v", rec.notes)
	}

	_ = c.SetSaturation(rgbName, 0)
	frameIs(t, strip.last(), colorx.HSVToRGB(120, 0, 15))

	_ = c.SetBrightness(rgbName, 80)
	frameIs(t, strip.last(), colorx.HSVToRGB(120, 0, 80))

	_ = c.SetPower(rgbName, false)
	frameIs(t, strip.last(), colorx.Black)
	_ = c.SetPower(rgbName, true)
	frameIs(t, strip.last(), colorx.HSVToRGB(120, 0, 80))
}

func TestRGB_CommitDeferredWhileAnimating(t *testing.T) {
	c, strip, _, tm, _ := newTestController(t)
	_ = c.SetPower(rgbName, true)

	if err := c.Trigger("LOAD"); err != nil {
		t.Fatal(err)
	}
	_ = c.Tick()
	n := strip.count()

	_ = c.SetHue(rgbName, 0)
	_ = c.SetBrightness(rgbName, 100)
	if strip.count() != n {
		t.Fatal("steady commit while animating")
	}
	if info, _ := c.Get(rgbName); info.State.Hue != 0 || info.State.Brightness != 100 {
		t.Fatalf("state not updated: %+v", info.State)
	}

	c.Expire()
	if tm.stops != 1 {
		t.Fatalf("tick not stopped: %+v", tm)
	}
	frameIs(t, strip.last(), colorx.RGB{R: 255})
	if st, _ := c.Animation(); st.Running {
		t.Fatal("still running after expiry")
	}
}

func TestRGB_ExpireWhilePoweredOffClears(t *testing.T) {
	c, strip, _, _, _ := newTestController(t)
	_ = c.Trigger("ERROR")
	_ = c.Tick()
	if strip.last()[0] == colorx.Black {
		// brightness 15 on a red pulse tick is still dim red
		t.Fatal("expected a painted tick")
	}
	c.Expire()
	frameIs(t, strip.last(), colorx.Black)
}

func TestRGB_TransmitFailureNonFatal(t *testing.T) {
	c, strip, _, _, _ := newTestController(t)
	strip.mu.Lock()
	strip.fail = true
	strip.mu.Unlock()

	if err := c.SetHue(rgbName, 200); err != nil {
		t.Fatalf("transmit failure surfaced from mutator: %v", err)
	}
	strip.mu.Lock()
	strip.fail = false
	strip.mu.Unlock()

	_ = c.SetPower(rgbName, true)
	frameIs(t, strip.last(), colorx.HSVToRGB(200, 100, 15))
}

func TestUnknownLight(t *testing.T) {
	c, _, _, _, _ := newTestController(t)
	if err := c.SetPower("Garage", true); errcode.Of(err) != errcode.UnknownLight {
		t.Fatalf("got %v", err)
	}
	if _, err := c.Get("Garage"); errcode.Of(err) != errcode.UnknownLight {
		t.Fatalf("got %v", err)
	}
}

func TestLights_Order(t *testing.T) {
	c, _, _, _, _ := newTestController(t)
	ls := c.Lights()
	if len(ls) != 3 || ls[0].Name != rgbName || ls[1].Name != switchName || ls[2].Name != stagedName {
		t.Fatalf("unexpected order %+v", ls)
	}
}

func TestTrigger_NoRGBLight(t *testing.T) {
	o := testOptions()
	o.Lights = o.Lights[1:]
	c, err := NewController(o, Hardware{Pins: newFakePins()}, &fakeTimers{}, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Trigger("LOAD"); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("got %v", err)
	}
	if c.Frame() != nil {
		t.Fatal("expected nil frame")
	}
}
