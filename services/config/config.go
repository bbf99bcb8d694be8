// Package config holds the static device configuration: compiled-in board
// defaults with an optional YAML overlay.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"devicelights-go/bus"
	"devicelights-go/errcode"
	"devicelights-go/services/lights"
	"devicelights-go/types"
	"devicelights-go/x/mathx"
)

const configPrefix = "config"

type Config struct {
	Device    string                `yaml:"device"`
	Strip     Strip                 `yaml:"strip"`
	Animation Animation             `yaml:"animation"`
	Lights    []types.LightSpec     `yaml:"lights"`
	Button    Button                `yaml:"button"`
	Console   Console               `yaml:"console"`
	Sensors   Sensors               `yaml:"sensors"`
	Heartbeat types.HeartbeatConfig `yaml:"heartbeat"`
	Log       Log                   `yaml:"log"`
}

type Strip struct {
	Pin             int `yaml:"pin"`
	Pixels          int `yaml:"pixels"`
	CommitTimeoutMs int `yaml:"commit_timeout_ms"`
}

type Animation struct {
	TickMs     int `yaml:"tick_ms"`
	DurationMs int `yaml:"duration_ms"`
}

// Button is the local push button. Light is toggled on release; holding for
// HoldMs requests a factory reset. An empty Light disables the button.
type Button struct {
	Pin        int    `yaml:"pin"`
	ActiveLow  bool   `yaml:"active_low"`
	Light      string `yaml:"light"`
	DebounceMs int    `yaml:"debounce_ms"`
	HoldMs     int    `yaml:"hold_ms"`
}

// Console is the serial command line (MCU builds only). A zero Baud leaves
// its pins unclaimed.
type Console struct {
	Baud uint32 `yaml:"baud"`
	TX   int    `yaml:"tx"`
	RX   int    `yaml:"rx"`
}

// Sensors are the I2C environment sensors. A zero period disables a sensor;
// SDA and SCL are claimed only while one is enabled.
type Sensors struct {
	SDA            int `yaml:"sda"`
	SCL            int `yaml:"scl"`
	ClimatePeriodS int `yaml:"climate_period_s"` // SHT31 temperature and humidity
	LightPeriodS   int `yaml:"light_period_s"`   // BH1750 luminosity
}

// Enabled reports whether any sensor is polled.
func (s Sensors) Enabled() bool { return s.ClimatePeriodS > 0 || s.LightPeriodS > 0 }

type Log struct {
	Level string `yaml:"level"`
}

// Load overlays YAML from r onto the defaults. Unknown keys are rejected.
// An empty document yields the defaults.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errcode.Wrap(errcode.InvalidParams, "config.Load", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile loads path; an empty path returns the validated defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Load(bytes.NewReader(nil))
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidParams, "config.LoadFile", err)
	}
	defer f.Close()
	return Load(f)
}

func invalid(msg string) error { return errcode.New(errcode.InvalidParams, "config", msg) }

// Validate checks ranges and wiring. Pins may not be shared between outputs.
func (c Config) Validate() error {
	if c.Strip.Pixels <= 0 {
		return invalid("strip.pixels must be positive")
	}
	if c.Animation.TickMs <= 0 || c.Animation.DurationMs <= 0 {
		return invalid("animation tick_ms and duration_ms must be positive")
	}
	if c.Strip.CommitTimeoutMs < 0 {
		return invalid("strip.commit_timeout_ms must not be negative")
	}
	if c.Heartbeat.IntervalMs <= 0 {
		return invalid("heartbeat.interval_ms must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: " + c.Log.Level)
	}

	used := map[int]string{}
	claim := func(pin int, who string) error {
		if pin < 0 {
			return invalid(who + ": negative pin")
		}
		if prev, ok := used[pin]; ok {
			return invalid("pin " + strconv.Itoa(pin) + " used by " + prev + " and " + who)
		}
		used[pin] = who
		return nil
	}

	if c.Console.Baud > 0 {
		if err := claim(c.Console.TX, "console tx"); err != nil {
			return err
		}
		if err := claim(c.Console.RX, "console rx"); err != nil {
			return err
		}
	}

	if c.Sensors.ClimatePeriodS < 0 || c.Sensors.LightPeriodS < 0 {
		return invalid("sensor periods must not be negative")
	}
	if c.Sensors.Enabled() {
		if err := claim(c.Sensors.SDA, "i2c sda"); err != nil {
			return err
		}
		if err := claim(c.Sensors.SCL, "i2c scl"); err != nil {
			return err
		}
	}

	names := map[string]types.LightKind{}
	rgb := 0
	for _, l := range c.Lights {
		if l.Name == "" {
			return invalid("light without a name")
		}
		if _, dup := names[l.Name]; dup {
			return invalid("duplicate light " + l.Name)
		}
		names[l.Name] = l.Kind

		d := l.Default
		if !mathx.Between(d.Brightness, 0, 100) || !mathx.Between(d.Saturation, 0, 100) || !mathx.Between(d.Hue, 0, 359) {
			return invalid(l.Name + ": default out of range")
		}

		want := 0
		switch l.Kind {
		case types.LightRGB:
			rgb++
			if err := claim(c.Strip.Pin, l.Name); err != nil {
				return err
			}
		case types.LightSwitch:
			want = 1
		case types.LightStaged:
			want = 3
		default:
			return invalid(l.Name + ": unknown kind " + string(l.Kind))
		}
		if l.Kind != types.LightRGB && len(l.Pins) != want {
			return invalid(l.Name + ": needs " + strconv.Itoa(want) + " pins")
		}
		for _, p := range l.Pins {
			if l.Kind == types.LightRGB {
				continue
			}
			if err := claim(p, l.Name); err != nil {
				return err
			}
		}
	}
	if rgb > 1 {
		return invalid("at most one rgb light")
	}
	if c.Button.Light != "" {
		if _, ok := names[c.Button.Light]; !ok {
			return invalid("button.light: unknown light " + c.Button.Light)
		}
		if err := claim(c.Button.Pin, "button"); err != nil {
			return err
		}
		if c.Button.HoldMs <= 0 || c.Button.DebounceMs < 0 {
			return invalid("button hold_ms must be positive and debounce_ms not negative")
		}
	}
	return nil
}

// LightOptions converts to the lighting subsystem's static parameters.
func (c Config) LightOptions() lights.Options {
	return lights.Options{
		Pixels:        c.Strip.Pixels,
		TickPeriod:    time.Duration(c.Animation.TickMs) * time.Millisecond,
		Duration:      time.Duration(c.Animation.DurationMs) * time.Millisecond,
		CommitTimeout: time.Duration(c.Strip.CommitTimeoutMs) * time.Millisecond,
		Lights:        append([]types.LightSpec(nil), c.Lights...),
	}
}

// LogLevel returns the parsed level; Validate guarantees it parses.
func (c Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Publish makes each section available retained under config/<section>.
func Publish(conn *bus.Connection, c Config) {
	sections := map[string]any{
		"device":    c.Device,
		"strip":     c.Strip,
		"animation": c.Animation,
		"lights":    append([]types.LightSpec(nil), c.Lights...),
		"button":    c.Button,
		"console":   c.Console,
		"sensors":   c.Sensors,
		"heartbeat": c.Heartbeat,
	}
	for k, v := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
}
