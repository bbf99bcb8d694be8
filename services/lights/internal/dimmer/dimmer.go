// Package dimmer approximates dimming with three switched relays.
package dimmer

// Relays is the combination driven onto the three outputs of a staged light.
type Relays [3]bool

var Off = Relays{}

// Derive maps power and brightness to relay outputs.
//
// The tiers are a fixed lookup: r1 and r2 swap between 26-50 and 51-75
// because of how the loads are wired behind the relays.
func Derive(power bool, brightness int) Relays {
	switch {
	case !power || brightness <= 0:
		return Off
	case brightness <= 25:
		return Relays{true, false, false}
	case brightness <= 50:
		return Relays{true, false, true}
	case brightness <= 75:
		return Relays{true, true, false}
	default:
		return Relays{true, true, true}
	}
}

// Tier reports the 0..4 step a brightness falls into when powered.
func Tier(brightness int) int {
	switch {
	case brightness <= 0:
		return 0
	case brightness <= 25:
		return 1
	case brightness <= 50:
		return 2
	case brightness <= 75:
		return 3
	default:
		return 4
	}
}
