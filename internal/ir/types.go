package ir

// Type is the semantic width of a value.
type Type uint8

const (
	// Void represents the absence of a value.
	Void Type = iota
	// I1 is a boolean; it occupies a full register with the payload in bit 0.
	I1
	// I8 is an 8-bit integer.
	I8
	// I16 is a 16-bit integer.
	I16
	// I32 is a 32-bit integer.
	I32
	// I64 is a 64-bit integer, held as a lo/hi pair of 32-bit registers.
	I64
	// F32 is a single-precision float.
	F32
	// F64 is a double-precision float.
	F64
	// V4I1 is a vector of four booleans.
	V4I1
	// V8I1 is a vector of eight booleans.
	V8I1
	// V16I1 is a vector of sixteen booleans.
	V16I1
	// V16I8 is a vector of sixteen 8-bit integers.
	V16I8
	// V8I16 is a vector of eight 16-bit integers.
	V8I16
	// V4I32 is a vector of four 32-bit integers.
	V4I32
	// V4F32 is a vector of four single-precision floats.
	V4F32

	// NumTypes is the number of defined types.
	NumTypes
)

var typeNames = [NumTypes]string{
	Void: "void",
	I1:   "i1", I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	F32: "f32", F64: "f64",
	V4I1: "v4i1", V8I1: "v8i1", V16I1: "v16i1",
	V16I8: "v16i8", V8I16: "v8i16", V4I32: "v4i32", V4F32: "v4f32",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type?"
}

// IsVector reports whether t is one of the vector shapes.
func (t Type) IsVector() bool { return t >= V4I1 && t <= V4F32 }

// IsScalarFloat reports whether t is f32 or f64.
func (t Type) IsScalarFloat() bool { return t == F32 || t == F64 }

// IsScalarInt reports whether t is a scalar integer type.
func (t Type) IsScalarInt() bool { return t >= I1 && t <= I64 }

// BitWidth returns the semantic width in bits of a scalar integer type.
func (t Type) BitWidth() int {
	switch t {
	case I1:
		return 1
	case I8:
		return 8
	case I16:
		return 16
	case I32:
		return 32
	case I64:
		return 64
	default:
		return 0
	}
}

// WidthInBytes returns the in-memory width of t in bytes. I1 rounds up to one
// byte.
func (t Type) WidthInBytes() int {
	switch t {
	case Void:
		return 0
	case I1, I8:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	default:
		return 16
	}
}

// WidthOnStack returns the width in bytes t occupies in a stack slot. Narrow
// integers widen to a full 32-bit slot.
func (t Type) WidthOnStack() int {
	if w := t.WidthInBytes(); w > 4 {
		return w
	}
	if t == Void {
		return 0
	}
	return 4
}
