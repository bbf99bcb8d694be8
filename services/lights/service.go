package lights

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/errcode"
	"devicelights-go/types"
	"devicelights-go/x/mathx"
)

// Service runs the lighting subsystem on a single goroutine. Bus commands,
// animation ticks and the duration expiry are all handled by that one loop,
// so a frame never observes a half-applied command.
type Service struct {
	conn *bus.Connection
	ctrl *Controller
	log  zerolog.Logger

	ticker *time.Ticker
	tickC  <-chan time.Time
	dur    *time.Timer
	durC   <-chan time.Time
}

// NewService builds the controller with the service as its timer owner and
// the bus as its notifier.
func NewService(conn *bus.Connection, opts Options, hw Hardware, log zerolog.Logger) (*Service, error) {
	s := &Service{conn: conn, log: log}
	ctrl, err := NewController(opts, hw, s, NotifyFunc(s.publishState), log)
	if err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// Controller exposes the owned controller for inspection before Run.
func (s *Service) Controller() *Controller { return s.ctrl }

// Start runs the service loop in a goroutine.
func (s *Service) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ctrlSub := s.conn.Subscribe(topicCtrlWildcard())
	trigSub := s.conn.Subscribe(topicAnimTrigger())
	listSub := s.conn.Subscribe(topicList())
	defer s.conn.Unsubscribe(ctrlSub)
	defer s.conn.Unsubscribe(trigSub)
	defer s.conn.Unsubscribe(listSub)
	defer s.stopTimers()

	s.ctrl.Start()
	for _, li := range s.ctrl.Lights() {
		s.publishAll(li)
	}
	s.publishAnim()
	s.pubServiceState("ready", "")
	s.log.Info().Int("lights", len(s.ctrl.order)).Msg("lighting service ready")

	for {
		select {
		case <-ctx.Done():
			s.pubServiceState("stopped", "context_cancelled")
			s.log.Info().Msg("lighting service stopping")
			return
		case m := <-ctrlSub.Channel():
			s.handleControl(m)
		case m := <-trigSub.Channel():
			s.handleTrigger(m)
		case m := <-listSub.Channel():
			s.conn.Reply(m, s.ctrl.Lights(), false)
		case <-s.tickC:
			_ = s.ctrl.Tick()
		case <-s.durC:
			s.durC = nil
			s.ctrl.Expire()
			s.publishAnim()
		}
	}
}

// ---- anim.Timers (called only from the loop goroutine) ----

func (s *Service) StartTick(period time.Duration) {
	if s.ticker == nil {
		s.ticker = time.NewTicker(period)
	} else {
		s.ticker.Reset(period)
	}
	s.tickC = s.ticker.C
}

func (s *Service) StopTick() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.tickC = nil
}

func (s *Service) StartDuration(d time.Duration) {
	if s.dur == nil {
		s.dur = time.NewTimer(d)
	} else {
		resetTimer(s.dur, d)
	}
	s.durC = s.dur.C
}

func (s *Service) stopTimers() {
	s.StopTick()
	if s.dur != nil {
		s.dur.Stop()
	}
}

// ---- bus handlers ----

// handleControl serves lights/ctrl/<light>/<verb>.
func (s *Service) handleControl(m *bus.Message) {
	name, _ := m.Topic.At(2).(string)
	verb, _ := m.Topic.At(3).(string)
	if m.Topic.Len() != 4 || name == "" {
		s.replyErr(m, errcode.InvalidTopic)
		return
	}
	if verb == verbGet {
		info, err := s.ctrl.Get(name)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		s.conn.Reply(m, info, false)
		return
	}

	err := s.apply(name, types.Param(verb), m.Payload)
	if err != nil {
		s.log.Warn().Str("light", name).Str("param", verb).Err(err).Msg("control rejected")
		s.replyErr(m, err)
		return
	}
	s.conn.Reply(m, types.OKReply{OK: true}, false)
}

func (s *Service) apply(name string, p types.Param, payload any) error {
	if p == types.ParamPower {
		if t, ok := payload.(string); ok && strings.EqualFold(t, "toggle") {
			_, err := s.ctrl.Toggle(name)
			return err
		}
		on, ok := asBool(payload)
		if !ok {
			return errcode.InvalidPayload
		}
		return s.ctrl.SetPower(name, on)
	}

	v, ok := asInt(payload)
	if !ok {
		return errcode.InvalidPayload
	}
	switch p {
	case types.ParamBrightness:
		if !mathx.Between(v, 0, 100) {
			return errcode.InvalidParams
		}
		return s.ctrl.SetBrightness(name, v)
	case types.ParamHue:
		if !mathx.Between(v, 0, 359) {
			return errcode.InvalidParams
		}
		return s.ctrl.SetHue(name, v)
	case types.ParamSaturation:
		if !mathx.Between(v, 0, 100) {
			return errcode.InvalidParams
		}
		return s.ctrl.SetSaturation(name, v)
	default:
		return errcode.UnknownParam
	}
}

func (s *Service) handleTrigger(m *bus.Message) {
	var ev string
	switch p := m.Payload.(type) {
	case string:
		ev = p
	case types.Trigger:
		ev = p.Event
	case map[string]any:
		ev, _ = p["event"].(string)
	default:
		s.replyErr(m, errcode.InvalidPayload)
		return
	}
	if err := s.ctrl.Trigger(ev); err != nil {
		s.replyErr(m, err)
		return
	}
	s.log.Info().Str("event", ev).Msg("animation triggered")
	s.publishAnim()
	s.conn.Reply(m, types.OKReply{OK: true}, false)
}

// ---- publishing ----

func (s *Service) publishState(light string, p types.Param, v any) {
	s.conn.Publish(s.conn.NewMessage(topicState(light, p), v, true))
}

func (s *Service) publishAll(li types.LightInfo) {
	s.publishState(li.Name, types.ParamPower, li.State.Power)
	if li.Kind == types.LightSwitch {
		return
	}
	s.publishState(li.Name, types.ParamBrightness, li.State.Brightness)
	if li.Kind == types.LightRGB {
		s.publishState(li.Name, types.ParamHue, li.State.Hue)
		s.publishState(li.Name, types.ParamSaturation, li.State.Saturation)
	}
}

func (s *Service) publishAnim() {
	st, ok := s.ctrl.Animation()
	if !ok {
		return
	}
	s.conn.Publish(s.conn.NewMessage(topicAnimState(), types.AnimStatus{
		Running: st.Running,
		Style:   st.Style.String(),
		TSms:    time.Now().UnixMilli(),
	}, true))
}

func (s *Service) pubServiceState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(topicServiceState(), types.ServiceState{
		Level: level, Status: status, TSms: time.Now().UnixMilli(),
	}, true))
}

func (s *Service) replyErr(m *bus.Message, err error) {
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
}

// ---- payload coercion ----

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int:
		if x == 0 || x == 1 {
			return x == 1, true
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "on", "true", "1":
			return true, true
		case "off", "false", "0":
			return false, true
		}
	}
	return false, false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint16:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

// resetTimer safely stops, drains, and resets a timer.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
