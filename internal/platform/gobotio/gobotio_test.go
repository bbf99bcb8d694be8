package gobotio

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// fakeAdaptor is a gobot.Connection that records digital writes.
type fakeAdaptor struct {
	name   string
	writes map[string]byte
	reads  map[string]int
	fail   bool
}

func newFakeAdaptor() *fakeAdaptor {
	return &fakeAdaptor{name: "fake", writes: map[string]byte{}, reads: map[string]int{}}
}

func (f *fakeAdaptor) Name() string     { return f.name }
func (f *fakeAdaptor) SetName(n string) { f.name = n }
func (f *fakeAdaptor) Connect() error   { return nil }
func (f *fakeAdaptor) Finalize() error  { return nil }

func (f *fakeAdaptor) DigitalWrite(pin string, level byte) error {
	if f.fail {
		return errors.New("bus error")
	}
	f.writes[pin] = level
	return nil
}

func (f *fakeAdaptor) DigitalRead(pin string) (int, error) {
	return f.reads[pin], nil
}

func TestHeaderPin(t *testing.T) {
	if p, ok := HeaderPin(17); !ok || p != "11" {
		t.Fatalf("bcm 17 -> %q,%v", p, ok)
	}
	if _, ok := HeaderPin(40); ok {
		t.Fatal("bcm 40 mapped")
	}
}

func TestPins_RelayWrites(t *testing.T) {
	a := newFakeAdaptor()
	p := NewPins(a, zerolog.Nop())
	o, ok := p.Output(18)
	if !ok {
		t.Fatal("bcm 18 rejected")
	}
	if lvl, seen := a.writes["12"]; !seen || lvl != 0 {
		t.Fatalf("initial level = %v,%v", lvl, seen)
	}
	o.Set(true)
	if a.writes["12"] != 1 {
		t.Fatalf("writes = %v", a.writes)
	}
	a.fail = true
	o.Set(false) // logged, not fatal
	if _, ok := p.Output(99); ok {
		t.Fatal("unknown pin accepted")
	}
}

func TestPins_Input(t *testing.T) {
	a := newFakeAdaptor()
	p := NewPins(a, zerolog.Nop())
	in, err := p.Input(17)
	if err != nil {
		t.Fatal(err)
	}
	if in.Get() {
		t.Fatal("idle read high")
	}
	a.reads["11"] = 1
	if !in.Get() {
		t.Fatal("high not read")
	}
	if _, err := p.Input(99); err == nil {
		t.Fatal("unknown pin accepted")
	}
}
