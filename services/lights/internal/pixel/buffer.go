// Package pixel holds the frame for the addressable strip.
package pixel

import (
	"time"

	"github.com/rs/zerolog"

	"devicelights-go/errcode"
	"devicelights-go/x/colorx"
)

// Strip is the physical transmitter. Implementations own the wire timing.
type Strip interface {
	Transmit(px []colorx.RGB, timeout time.Duration) error
}

// Buffer is a fixed-length frame. Its length never changes after New.
type Buffer struct {
	px    []colorx.RGB
	strip Strip
	log   zerolog.Logger
}

func New(n int, strip Strip, log zerolog.Logger) (*Buffer, error) {
	if n <= 0 {
		return nil, errcode.New(errcode.InvalidParams, "pixel.New", "pixel count must be positive")
	}
	if strip == nil {
		return nil, errcode.New(errcode.InvalidParams, "pixel.New", "nil strip")
	}
	return &Buffer{px: make([]colorx.RGB, n), strip: strip, log: log}, nil
}

func (b *Buffer) Len() int { return len(b.px) }

// Set writes index i. i must be in range; wrapping is the caller's job.
func (b *Buffer) Set(i int, c colorx.RGB) { b.px[i] = c }

func (b *Buffer) At(i int) colorx.RGB { return b.px[i] }

func (b *Buffer) Fill(c colorx.RGB) {
	for i := range b.px {
		b.px[i] = c
	}
}

// Snapshot returns a copy of the current frame.
func (b *Buffer) Snapshot() []colorx.RGB { return append([]colorx.RGB(nil), b.px...) }

// Commit flushes the frame. A failed transmit is logged and returned but not
// retried; the frame stays as is and goes out again on the next commit.
func (b *Buffer) Commit(timeout time.Duration) error {
	if err := b.strip.Transmit(b.px, timeout); err != nil {
		b.log.Warn().Err(err).Int("pixels", len(b.px)).Msg("strip transmit failed")
		return errcode.Wrap(errcode.TransmitFailed, "pixel.Commit", err)
	}
	return nil
}
