package lights

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/types"
	"devicelights-go/x/colorx"
)

type svcFixture struct {
	b     *bus.Bus
	conn  *bus.Connection
	strip *fakeStrip
	pins  *fakePins
}

func startService(t *testing.T, tick, dur time.Duration) *svcFixture {
	t.Helper()
	b := bus.NewBus(32)
	f := &svcFixture{b: b, conn: b.NewConnection("test"), strip: &fakeStrip{}, pins: newFakePins()}

	o := testOptions()
	o.TickPeriod, o.Duration = tick, dur
	svc, err := NewService(b.NewConnection("lights"), o, Hardware{Strip: f.strip, Pins: f.pins}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ready := f.conn.Subscribe(topicServiceState())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-ready.Channel():
			if st, ok := m.Payload.(types.ServiceState); ok && st.Level == "ready" {
				f.conn.Unsubscribe(ready)
				return f
			}
		case <-deadline:
			t.Fatal("service not ready")
		}
	}
}

func (f *svcFixture) request(t *testing.T, topic bus.Topic, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	reply, err := f.conn.RequestWait(ctx, f.conn.NewMessage(topic, payload, false))
	if err != nil {
		t.Fatalf("request %v: %v", topic, err)
	}
	return reply.Payload
}

func expectOK(t *testing.T, p any) {
	t.Helper()
	if r, ok := p.(types.OKReply); !ok || !r.OK {
		t.Fatalf("expected ok reply, got %#v", p)
	}
}

func expectErr(t *testing.T, p any, code string) {
	t.Helper()
	r, ok := p.(types.ErrorReply)
	if !ok || r.OK || r.Error != code {
		t.Fatalf("expected error %q, got %#v", code, p)
	}
}

func retained(t *testing.T, f *svcFixture, topic bus.Topic) any {
	t.Helper()
	sub := f.conn.Subscribe(topic)
	defer f.conn.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		return m.Payload
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("no retained value on %v", topic)
		return nil
	}
}

func TestService_InitialStatePublished(t *testing.T) {
	f := startService(t, 5*time.Millisecond, time.Second)
	if v := retained(t, f, TopicState(rgbName, types.ParamHue)); v != 180 {
		t.Fatalf("hue = %v", v)
	}
	if v := retained(t, f, TopicState(switchName, types.ParamPower)); v != false {
		t.Fatalf("switch power = %v", v)
	}
	st, ok := retained(t, f, TopicAnimState()).(types.AnimStatus)
	if !ok || st.Running {
		t.Fatalf("anim state = %#v", st)
	}
}

func TestService_ControlStagedLight(t *testing.T) {
	f := startService(t, 5*time.Millisecond, time.Second)

	expectOK(t, f.request(t, TopicCtrl(stagedName, types.ParamBrightness), 60))
	if got := f.pins.levels(18, 17, 16); !got[0] || !got[1] || got[2] {
		t.Fatalf("relays = %v", got)
	}
	// String payloads from the console are accepted.
	expectOK(t, f.request(t, TopicCtrl(stagedName, types.ParamBrightness), "0"))
	if got := f.pins.levels(18, 17, 16); got[0] || got[1] || got[2] {
		t.Fatalf("relays = %v", got)
	}
	if v := retained(t, f, TopicState(stagedName, types.ParamBrightness)); v != 0 {
		t.Fatalf("retained brightness = %v", v)
	}
	info, ok := f.request(t, TopicGet(stagedName), nil).(types.LightInfo)
	if !ok || !info.State.Power || info.State.Brightness != 0 {
		t.Fatalf("get = %#v", info)
	}
}

func TestService_ControlErrors(t *testing.T) {
	f := startService(t, 5*time.Millisecond, time.Second)

	expectErr(t, f.request(t, TopicCtrl("Garage", types.ParamPower), true), "unknown_light")
	expectErr(t, f.request(t, TopicCtrl(rgbName, types.ParamHue), 360), "invalid_params")
	expectErr(t, f.request(t, TopicCtrl(rgbName, types.ParamBrightness), 101), "invalid_params")
	expectErr(t, f.request(t, TopicCtrl(rgbName, types.ParamSaturation), "lots"), "invalid_payload")
	expectErr(t, f.request(t, TopicCtrl(rgbName, types.ParamPower), 2.5), "invalid_payload")
	expectErr(t, f.request(t, TopicCtrl(rgbName, "colour"), 1), "unknown_param")
	expectErr(t, f.request(t, TopicCtrl(switchName, types.ParamBrightness), 10), "unsupported")
	expectErr(t, f.request(t, TopicTrigger(), 42), "invalid_payload")
}

func TestService_SwitchToggle(t *testing.T) {
	f := startService(t, 5*time.Millisecond, time.Second)
	expectOK(t, f.request(t, TopicCtrl(switchName, types.ParamPower), "toggle"))
	if got := f.pins.levels(19); !got[0] {
		t.Fatal("switch not on after toggle")
	}
	if v := retained(t, f, TopicState(switchName, types.ParamPower)); v != true {
		t.Fatalf("retained power = %v", v)
	}
}

func TestService_AnimationRunsAndSettles(t *testing.T) {
	f := startService(t, 5*time.Millisecond, 80*time.Millisecond)
	expectOK(t, f.request(t, TopicCtrl(rgbName, types.ParamHue), 240))
	steady := colorx.HSVToRGB(240, 100, 15)
	frameIs(t, f.strip.last(), steady)

	animSub := f.conn.Subscribe(TopicAnimState())
	defer f.conn.Unsubscribe(animSub)
	<-animSub.Channel() // retained idle

	before := f.strip.count()
	expectOK(t, f.request(t, TopicTrigger(), "LOAD"))
	if st := (<-animSub.Channel()).Payload.(types.AnimStatus); !st.Running || st.Style != "spinner" {
		t.Fatalf("anim start = %#v", st)
	}
	// Retrigger before expiry switches style with no idle in between.
	expectOK(t, f.request(t, TopicTrigger(), types.Trigger{Event: "MOVE"}))
	if st := (<-animSub.Channel()).Payload.(types.AnimStatus); !st.Running || st.Style != "pulse_blue" {
		t.Fatalf("anim restart = %#v", st)
	}

	select {
	case m := <-animSub.Channel():
		if st := m.Payload.(types.AnimStatus); st.Running {
			t.Fatalf("expected idle, got %#v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("animation never expired")
	}
	if f.strip.count()-before < 3 {
		t.Fatalf("expected several tick frames, got %d", f.strip.count()-before)
	}
	frameIs(t, f.strip.last(), steady)
}

func TestService_List(t *testing.T) {
	f := startService(t, 5*time.Millisecond, time.Second)
	ls, ok := f.request(t, TopicList(), nil).([]types.LightInfo)
	if !ok || len(ls) != 3 {
		t.Fatalf("list = %#v", ls)
	}
}

func TestAsIntAsBool(t *testing.T) {
	if v, ok := asInt(float64(42)); !ok || v != 42 {
		t.Fatal("float64 42")
	}
	if _, ok := asInt(1.5); ok {
		t.Fatal("fractional accepted")
	}
	if v, ok := asInt(" 7 "); !ok || v != 7 {
		t.Fatal("string 7")
	}
	for in, want := range map[any]bool{"on": true, "OFF": false, true: true, 0: false, 1.0: true} {
		if got, ok := asBool(in); !ok || got != want {
			t.Fatalf("asBool(%v) = %v,%v", in, got, ok)
		}
	}
	if _, ok := asBool("maybe"); ok {
		t.Fatal("maybe accepted")
	}
}
