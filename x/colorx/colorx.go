// Package colorx holds the 8-bit colour maths used by the strip driver.
package colorx

import (
	"image/color"

	"devicelights-go/x/mathx"
)

// RGB is one 8-bit-per-channel pixel colour.
type RGB struct {
	R, G, B uint8
}

var Black = RGB{}

// RGBA converts to the form the WS2812 driver writes.
func (c RGB) RGBA() color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff} }

// HSV is a percent-scale colour: H in degrees, S and V in 0..100.
type HSV struct {
	H, S, V int
}

func (c HSV) RGB() RGB { return HSVToRGB(c.H, c.S, c.V) }

// HSVToRGB converts with the integer colour wheel used on the strip.
// Hue wraps modulo 360. Saturation is held to 0..100. Value is not limited;
// channels saturate at 255 when stored.
func HSVToRGB(h, s, v int) RGB {
	hue := uint32(mathx.Wrap(h, 360))
	sat := uint32(mathx.Clamp(s, 0, 100))
	val := uint32(max(v, 0))

	rgbMax := uint32(float32(val) * 2.55)
	rgbMin := uint32(float32(rgbMax*(100-sat)) / 100)

	sector := hue / 60
	diff := hue % 60
	adj := (rgbMax - rgbMin) * diff / 60

	var r, g, b uint32
	switch sector {
	case 0:
		r, g, b = rgbMax, rgbMin+adj, rgbMin
	case 1:
		r, g, b = rgbMax-adj, rgbMax, rgbMin
	case 2:
		r, g, b = rgbMin, rgbMax, rgbMin+adj
	case 3:
		r, g, b = rgbMin, rgbMax-adj, rgbMax
	case 4:
		r, g, b = rgbMin+adj, rgbMin, rgbMax
	default:
		r, g, b = rgbMax, rgbMin, rgbMax-adj
	}
	return RGB{R: mathx.Sat8(r), G: mathx.Sat8(g), B: mathx.Sat8(b)}
}

// Interpolate blends lo towards hi by t. t is not clamped; channels saturate
// to 0..255 on store.
func Interpolate(lo, hi RGB, t float64) RGB {
	return RGB{
		R: lerp8(lo.R, hi.R, t),
		G: lerp8(lo.G, hi.G, t),
		B: lerp8(lo.B, hi.B, t),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	return uint8(mathx.Clamp(v, 0, 255))
}

// ScaleBrightness multiplies each channel by percent/100, truncating.
func ScaleBrightness(c RGB, percent int) RGB {
	p := uint32(max(percent, 0))
	return RGB{
		R: mathx.Sat8(uint32(c.R) * p / 100),
		G: mathx.Sat8(uint32(c.G) * p / 100),
		B: mathx.Sat8(uint32(c.B) * p / 100),
	}
}
