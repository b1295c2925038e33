// Package wire encodes session statistics and boundary crossings as
// canonical CBOR.
package wire

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/tether/bridge"
)

var cborEncMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// CrossingRecord is the encoded form of a bridge.Crossing, stamped with the
// session it belongs to and the time it completed.
type CrossingRecord struct {
	Session  string              `cbor:"1,keyasint"`
	At       time.Time           `cbor:"2,keyasint"`
	Kind     bridge.CrossingKind `cbor:"3,keyasint"`
	Function bridge.FunctionPtr  `cbor:"4,keyasint,omitempty"`
	Callable bridge.CallableID   `cbor:"5,keyasint,omitempty"`
	Self     bridge.HostID       `cbor:"6,keyasint,omitempty"`
	Frame    bridge.Pointer      `cbor:"7,keyasint,omitempty"`
	Argc     int                 `cbor:"8,keyasint,omitempty"`
	Data     int64               `cbor:"9,keyasint,omitempty"`
	Args     []bridge.ValueType  `cbor:"10,keyasint,omitempty"`
	Error    string              `cbor:"11,keyasint,omitempty"`
	Elapsed  time.Duration       `cbor:"12,keyasint"`
}

// NewCrossingRecord stamps c with session and at.
func NewCrossingRecord(session string, at time.Time, c bridge.Crossing) *CrossingRecord {
	return &CrossingRecord{
		Session:  session,
		At:       at,
		Kind:     c.Kind,
		Function: c.Function,
		Callable: c.Callable,
		Self:     c.Self,
		Frame:    c.Frame,
		Argc:     c.Argc,
		Data:     c.Data,
		Args:     c.Args,
		Error:    c.Error,
		Elapsed:  c.Elapsed,
	}
}

// Crossing returns the crossing the record was made from.
func (r *CrossingRecord) Crossing() bridge.Crossing {
	return bridge.Crossing{
		Kind:     r.Kind,
		Function: r.Function,
		Callable: r.Callable,
		Self:     r.Self,
		Frame:    r.Frame,
		Argc:     r.Argc,
		Data:     r.Data,
		Args:     r.Args,
		Error:    r.Error,
		Elapsed:  r.Elapsed,
	}
}

// MarshalCrossing serializes a CrossingRecord to CBOR bytes.
func MarshalCrossing(r *CrossingRecord) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalCrossing deserializes a CrossingRecord from CBOR bytes.
func UnmarshalCrossing(data []byte) (*CrossingRecord, error) {
	var r CrossingRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("wire: unmarshal crossing: %w", err)
	}
	return &r, nil
}

// MarshalStats serializes a Stats snapshot to CBOR bytes.
func MarshalStats(s *bridge.Stats) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalStats deserializes a Stats snapshot from CBOR bytes.
func UnmarshalStats(data []byte) (*bridge.Stats, error) {
	var s bridge.Stats
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("wire: unmarshal stats: %w", err)
	}
	return &s, nil
}
