// Package heartbeat publishes a periodic liveness record with a sequence
// number and uptime.
package heartbeat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/types"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicHeartbeat       = bus.T("sys", "heartbeat")
)

// Beat is published retained on sys/heartbeat.
type Beat struct {
	Seq      uint64 `json:"seq"`
	UptimeMs int64  `json:"uptime_ms"`
	TSms     int64  `json:"ts_ms"`
}

type Service struct {
	interval time.Duration
	log      zerolog.Logger
	started  time.Time
	seq      uint64
}

func New(interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Service{interval: interval, log: log}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("heartbeat stopping")
			return
		case now := <-tick.C:
			s.beat(conn, now)
		case msg := <-cfgSub.Channel():
			iv, ok := interval(msg.Payload)
			if !ok || iv == s.interval {
				continue
			}
			s.interval = iv
			tick.Reset(iv)
			s.log.Info().Dur("interval", iv).Msg("heartbeat interval set")
		}
	}
}

func (s *Service) beat(conn *bus.Connection, now time.Time) {
	s.seq++
	b := Beat{Seq: s.seq, UptimeMs: now.Sub(s.started).Milliseconds(), TSms: now.UnixMilli()}
	conn.Publish(conn.NewMessage(topicHeartbeat, b, true))
	s.log.Debug().Uint64("seq", b.Seq).Int64("uptime_ms", b.UptimeMs).Msg("heartbeat")
}

func interval(p any) (time.Duration, bool) {
	switch v := p.(type) {
	case types.HeartbeatConfig:
		if v.IntervalMs > 0 {
			return time.Duration(v.IntervalMs) * time.Millisecond, true
		}
	case map[string]any:
		if f, ok := v["interval_ms"].(float64); ok && f > 0 {
			return time.Duration(f) * time.Millisecond, true
		}
	}
	return 0, false
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	s.started = time.Now()
	go s.serviceLoop(ctx, conn)
}
