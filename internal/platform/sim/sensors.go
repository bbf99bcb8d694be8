package sim

import (
	"context"
	"math"
	"time"

	"devicelights-go/services/sensors"
)

// Climate reports a slow sinusoidal drift around base temperature and
// humidity so successive readings differ.
func Climate(baseC, baseRH float64) sensors.Sensor {
	start := time.Now()
	return sensors.SensorFunc(func(ctx context.Context) ([]sensors.Reading, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		phase := drift(start)
		return sensors.Climate(baseC+0.5*phase, baseRH-2*phase), nil
	})
}

// Light reports luminosity drifting around base lux.
func Light(baseLux float64) sensors.Sensor {
	start := time.Now()
	return sensors.SensorFunc(func(ctx context.Context) ([]sensors.Reading, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sensors.Light(math.Max(0, baseLux*(1+0.2*drift(start)))), nil
	})
}

// drift cycles through [-1, 1] once an hour.
func drift(start time.Time) float64 {
	return math.Sin(2 * math.Pi * time.Since(start).Hours())
}
