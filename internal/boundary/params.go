package boundary

import (
	"errors"
	"fmt"
	"strings"
)

// MaxParams is the fixed number of parameter slots carried by every boundary call.
const MaxParams = 4

// Kind identifies the direction and payload type of a parameter slot. The
// numeric values match the GlobalPlatform parameter type encoding so packed
// shapes stay wire compatible.
type Kind uint8

const (
	KindNone         Kind = 0
	KindValueInput   Kind = 1
	KindValueOutput  Kind = 2
	KindValueInout   Kind = 3
	KindMemrefInput  Kind = 5
	KindMemrefOutput Kind = 6
	KindMemrefInout  Kind = 7
)

var kindNames = map[Kind]string{
	KindNone:         "none",
	KindValueInput:   "value_input",
	KindValueOutput:  "value_output",
	KindValueInout:   "value_inout",
	KindMemrefInput:  "memref_input",
	KindMemrefOutput: "memref_output",
	KindMemrefInout:  "memref_inout",
}

// ErrUnknownKind is returned when a parameter type name is not recognised.
var ErrUnknownKind = errors.New("unknown parameter type")

// ParseKind converts a wire name such as "value_input" into a Kind. An empty
// name is treated as none.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KindNone, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsValue reports whether the slot carries an integer.
func (k Kind) IsValue() bool {
	return k == KindValueInput || k == KindValueOutput || k == KindValueInout
}

// IsMemref reports whether the slot carries a caller-allocated buffer.
func (k Kind) IsMemref() bool {
	return k == KindMemrefInput || k == KindMemrefOutput || k == KindMemrefInout
}

// IsOutput reports whether the protected side writes the slot back.
func (k Kind) IsOutput() bool {
	return k == KindValueOutput || k == KindValueInout || k == KindMemrefOutput || k == KindMemrefInout
}

// Param is a single tagged parameter slot.
//
// For value kinds only Value is meaningful. For memref kinds Buffer is the
// caller-allocated memory (its length is the capacity) and Size reports how
// many bytes are valid.
type Param struct {
	Kind   Kind
	Value  int64
	Buffer []byte
	Size   int
}

// Bundle is the parameter set of one boundary call.
type Bundle [MaxParams]Param

// Shape returns the kinds of every slot in b.
func (b *Bundle) Shape() Shape {
	var s Shape
	for i := range b {
		s[i] = b[i].Kind
	}
	return s
}

// Shape is the expected arity, direction and kind of a command's parameters.
type Shape [MaxParams]Kind

// ShapeOf builds a Shape from the leading kinds; remaining slots are none.
func ShapeOf(kinds ...Kind) Shape {
	var s Shape
	copy(s[:], kinds)
	return s
}

// Pack encodes s into the 4-bits-per-slot form used on the wire.
func (s Shape) Pack() uint32 {
	var packed uint32
	for i, k := range s {
		packed |= uint32(k&0xf) << (4 * i)
	}
	return packed
}

// UnpackShape is the inverse of Shape.Pack.
func UnpackShape(packed uint32) Shape {
	var s Shape
	for i := range s {
		s[i] = Kind((packed >> (4 * i)) & 0xf)
	}
	return s
}

func (s Shape) String() string {
	names := make([]string, len(s))
	for i, k := range s {
		names[i] = k.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// ErrShapeMismatch indicates a bundle did not carry the parameter shape a
// command expects.
var ErrShapeMismatch = errors.New("parameter shape mismatch")

// Expect returns a BadParameters error unless b has exactly the shape want.
func Expect(b *Bundle, want Shape) error {
	if got := b.Shape(); got != want {
		return Errorf(CodeBadParameters, "%w: expected %s, got %s", ErrShapeMismatch, want, got)
	}
	return nil
}
