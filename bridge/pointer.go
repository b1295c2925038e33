package bridge

import "fmt"

// Pointer is a synthetic address standing in for a native pointer to a call
// frame. The high bits hold the frame's index in the FrameTable; the low four
// bits optionally address one argument inside that frame.
//
// Only arguments 0..15 are addressable through a Pointer. Calls with more
// arguments must read the rest by index through FrameOf(p).Arg(i).
type Pointer uint32

const (
	argBits = 4
	argMask = 1<<argBits - 1

	// MaxAddressableArgs is the number of arguments reachable through the
	// sub-index of a Pointer.
	MaxAddressableArgs = argMask + 1
)

// NilPointer is never handed out; it means "no frame".
const NilPointer Pointer = 0

func makePointer(index int) Pointer {
	return Pointer(index << argBits)
}

// Index returns the frame-table index encoded in p.
func (p Pointer) Index() int {
	return int(p >> argBits)
}

// Arg returns the argument sub-index encoded in p.
func (p Pointer) Arg() int {
	return int(p & argMask)
}

// Frame returns p with the argument sub-index cleared.
func (p Pointer) Frame() Pointer {
	return p &^ argMask
}

// WithArg returns a pointer addressing argument i of p's frame. It panics if
// i cannot be encoded in the sub-index.
func (p Pointer) WithArg(i int) Pointer {
	if i < 0 || i > argMask {
		panic(fmt.Sprintf("bridge: argument index %d not addressable through a pointer (max %d)", i, argMask))
	}
	return p.Frame() | Pointer(i)
}

func (p Pointer) String() string {
	return fmt.Sprintf("frame#%d[%d]", p.Index(), p.Arg())
}
