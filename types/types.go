package types

// ---- Light kinds & params ----

type LightKind string

const (
	// LightRGB is the addressable strip.
	LightRGB LightKind = "rgb"
	// LightSwitch is a single relay, on or off.
	LightSwitch LightKind = "switch"
	// LightStaged is three relays approximating four brightness tiers.
	LightStaged LightKind = "staged"
)

type Param string

const (
	ParamPower      Param = "power"
	ParamBrightness Param = "brightness"
	ParamHue        Param = "hue"
	ParamSaturation Param = "saturation"
)

// LightState is the in-memory state of one light. Hue and Saturation only
// apply to the RGB light.
type LightState struct {
	Power      bool `json:"power" yaml:"power"`
	Brightness int  `json:"brightness" yaml:"brightness"`
	Hue        int  `json:"hue,omitempty" yaml:"hue"`
	Saturation int  `json:"saturation,omitempty" yaml:"saturation"`
}

// LightSpec configures one light. Pins holds one GPIO for a switch, three
// (r0, r1, r2) for a staged light and is ignored for the RGB light, which
// drives the strip data pin.
type LightSpec struct {
	Name    string     `json:"name" yaml:"name"`
	Kind    LightKind  `json:"kind" yaml:"kind"`
	Pins    []int      `json:"pins" yaml:"pins"`
	Default LightState `json:"default" yaml:"default"`
}

// LightInfo is the reply to a get/list request.
type LightInfo struct {
	Name  string     `json:"name"`
	Kind  LightKind  `json:"kind"`
	State LightState `json:"state"`
}

// ---- Animation ----

// Trigger asks for a transient effect ("ERROR", "OTA", "LOAD", "MOVE").
type Trigger struct {
	Event string `json:"event"`
}

// AnimStatus is published retained when an effect starts or ends.
type AnimStatus struct {
	Running bool   `json:"running"`
	Style   string `json:"style"`
	TSms    int64  `json:"ts_ms"`
}

// ---- Service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TSms   int64  `json:"ts_ms"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HeartbeatConfig is published retained on config/heartbeat.
type HeartbeatConfig struct {
	IntervalMs int `json:"interval_ms" yaml:"interval_ms"`
}

// ---- Sensors ----

// SensorReading is published retained on sensors/<name>/value.
type SensorReading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	TSms  int64   `json:"ts_ms"`
}
