package host

import (
	"github.com/chazu/tether/bridge"
	"github.com/chazu/tether/vm"
)

// Call is the view a native callback has of one boundary call.
type Call struct {
	Runtime *Runtime
	Self    bridge.HostID
	Info    bridge.Pointer
	Argc    int
	Data    int64
}

func (r *Runtime) newCall(self bridge.HostID, info bridge.Pointer, argc int, data int64) *Call {
	return &Call{Runtime: r, Self: self, Info: info, Argc: argc, Data: data}
}

func (c *Call) frames() *bridge.FrameTable {
	return c.Runtime.Engine().Frames
}

// Arg returns argument i. The first 16 arguments are read through the
// synthetic pointer; the rest by index on the frame.
func (c *Call) Arg(i int) vm.Value {
	if i < bridge.MaxAddressableArgs {
		return c.frames().Argument(c.Info.WithArg(i))
	}
	return c.frames().FrameOf(c.Info).Arg(i)
}

// Float returns argument i as a float64, converting integer kinds.
func (c *Call) Float(i int) (float64, bool) {
	switch v := c.Arg(i).(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// String returns argument i as a string.
func (c *Call) String(i int) (string, bool) {
	s, ok := c.Arg(i).(string)
	return s, ok
}

// SelfValue returns the Go value of the receiver.
func (c *Call) SelfValue() (any, bool) {
	return c.Runtime.Value(c.Self)
}

// Return sets the call's return value.
func (c *Call) Return(v vm.Value) {
	c.frames().FrameOf(c.Info).SetReturnValue(v)
}

// Throw raises message on the script side instead of returning.
func (c *Call) Throw(message string) {
	c.frames().FrameOf(c.Info).Throw(message)
}
