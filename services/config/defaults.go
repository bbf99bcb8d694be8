package config

import "devicelights-go/types"

// Names of the lights wired on the reference board.
const (
	RGBLight     = "RGB Light"
	BedroomLight = "Bedroom Light"
	WallLight    = "Wall Light"
)

// Default returns the compiled-in board configuration.
func Default() Config {
	return Config{
		Device: "smart-home-22z",
		Strip: Strip{
			Pin:             5,
			Pixels:          24,
			CommitTimeoutMs: 100,
		},
		Animation: Animation{
			TickMs:     40,
			DurationMs: 10_000,
		},
		Lights: []types.LightSpec{
			{
				Name: RGBLight,
				Kind: types.LightRGB,
				Default: types.LightState{
					Power:      false,
					Hue:        180,
					Saturation: 100,
					Brightness: 15,
				},
			},
			{Name: BedroomLight, Kind: types.LightSwitch, Pins: []int{19}},
			{Name: WallLight, Kind: types.LightStaged, Pins: []int{18, 17, 16}},
		},
		Button: Button{
			Pin:        0,
			ActiveLow:  true,
			Light:      BedroomLight,
			DebounceMs: 30,
			HoldMs:     3000,
		},
		Console: Console{
			Baud: 115200,
			TX:   12,
			RX:   13,
		},
		Sensors: Sensors{
			SDA:            20,
			SCL:            21,
			ClimatePeriodS: 305,
			LightPeriodS:   60,
		},
		Heartbeat: types.HeartbeatConfig{IntervalMs: 10_000},
		Log:       Log{Level: "info"},
	}
}
