// Package sensors polls the board's environment sensors and publishes each
// reading retained on sensors/<name>/value.
package sensors

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/bus"
	"devicelights-go/types"
)

// Reading names published by the board sensors.
const (
	Temperature = "temperature"
	Humidity    = "humidity"
	Luminosity  = "luminosity"
)

const measureTimeout = 2 * time.Second

type Reading struct {
	Name  string
	Value float64
	Unit  string
}

// Sensor takes one measurement. A sensor may report several quantities.
type Sensor interface {
	Measure(ctx context.Context) ([]Reading, error)
}

// SensorFunc adapts a function to Sensor.
type SensorFunc func(ctx context.Context) ([]Reading, error)

func (f SensorFunc) Measure(ctx context.Context) ([]Reading, error) { return f(ctx) }

// Climate builds temperature and humidity readings, rounded to 0.01.
func Climate(tempC, rh float64) []Reading {
	return []Reading{
		{Name: Temperature, Value: round2(tempC), Unit: "C"},
		{Name: Humidity, Value: round2(rh), Unit: "%"},
	}
}

// Light builds a luminosity reading.
func Light(lux float64) []Reading {
	return []Reading{{Name: Luminosity, Value: round2(lux), Unit: "lx"}}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Source is a sensor and how often to read it.
type Source struct {
	ID     string // for logs
	Sensor Sensor
	Period time.Duration
}

type Service struct {
	conn    *bus.Connection
	sources []Source
	log     zerolog.Logger
}

// New drops sources with no sensor or a non-positive period.
func New(conn *bus.Connection, sources []Source, log zerolog.Logger) *Service {
	s := &Service{conn: conn, log: log}
	for _, src := range sources {
		if src.Sensor == nil || src.Period <= 0 {
			continue
		}
		s.sources = append(s.sources, src)
	}
	return s
}

// Start polls every source on its own goroutine. Each source is read once
// immediately, then every Period.
func (s *Service) Start(ctx context.Context) {
	for _, src := range s.sources {
		go s.poll(ctx, src)
	}
	s.log.Info().Int("sources", len(s.sources)).Msg("sensors started")
}

func (s *Service) poll(ctx context.Context, src Source) {
	t := time.NewTicker(src.Period)
	defer t.Stop()
	for {
		s.measure(ctx, src)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Service) measure(ctx context.Context, src Source) {
	mctx, cancel := context.WithTimeout(ctx, measureTimeout)
	defer cancel()
	rs, err := src.Sensor.Measure(mctx)
	if err != nil {
		// The previous retained value stays in place.
		s.log.Warn().Str("sensor", src.ID).Err(err).Msg("measure failed")
		return
	}
	now := time.Now().UnixMilli()
	for _, r := range rs {
		s.conn.Publish(s.conn.NewMessage(TopicValue(r.Name),
			types.SensorReading{Value: r.Value, Unit: r.Unit, TSms: now}, true))
		s.log.Debug().Str("sensor", src.ID).Str("name", r.Name).Float64("value", r.Value).Msg("reading")
	}
}

// TopicValue is the retained topic for a named reading.
func TopicValue(name string) bus.Topic { return bus.T("sensors", name, "value") }
