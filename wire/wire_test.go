package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/chazu/tether/bridge"
)

func TestCrossingRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	c := bridge.Crossing{
		Kind:     bridge.CrossFunction,
		Function: 7,
		Self:     42,
		Frame:    0x30,
		Argc:     2,
		Data:     -1,
		Args:     []bridge.ValueType{bridge.TypeNumber, bridge.TypeString},
		Error:    "bad input",
		Elapsed:  1500 * time.Microsecond,
	}

	data, err := MarshalCrossing(NewCrossingRecord("s1", at, c))
	if err != nil {
		t.Fatal(err)
	}
	r, err := UnmarshalCrossing(data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Session != "s1" || !r.At.Equal(at) {
		t.Errorf("stamp = %s at %s", r.Session, r.At)
	}

	got := r.Crossing()
	if got.Kind != c.Kind || got.Function != c.Function || got.Self != c.Self ||
		got.Frame != c.Frame || got.Argc != c.Argc || got.Data != c.Data ||
		got.Error != c.Error || got.Elapsed != c.Elapsed {
		t.Errorf("crossing = %+v, want %+v", got, c)
	}
	if len(got.Args) != 2 || got.Args[1] != bridge.TypeString {
		t.Errorf("Args = %v", got.Args)
	}
}

func TestCrossingEncodingIsDeterministic(t *testing.T) {
	r := NewCrossingRecord("s", time.Unix(0, 0).UTC(), bridge.Crossing{Kind: bridge.CrossScript, Callable: 3})
	a, err := MarshalCrossing(r)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := MarshalCrossing(r)
	if !bytes.Equal(a, b) {
		t.Error("two encodings of the same record differ")
	}
}

func TestStatsRoundTrip(t *testing.T) {
	s := &bridge.Stats{
		Session:           "abc",
		Taken:             time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LiveFrames:        1,
		FrameCapacity:     64,
		Callables:         3,
		Classes:           2,
		BoundObjects:      5,
		Revivals:          4,
		PendingFinalizers: 5,
		Released:          9,
	}
	data, err := MarshalStats(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalStats(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Session != s.Session || !got.Taken.Equal(s.Taken) || got.Revivals != 4 ||
		got.BoundObjects != 5 || got.Released != 9 || got.FrameCapacity != 64 {
		t.Errorf("stats = %+v", got)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := UnmarshalCrossing([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage decoded as a crossing")
	}
	if _, err := UnmarshalStats([]byte("not cbor")); err == nil {
		t.Error("garbage decoded as stats")
	}
}
