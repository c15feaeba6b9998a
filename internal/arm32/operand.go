package arm32

import (
	"fmt"
	"math/bits"

	"anvil/internal/ir"
)

// ShiftKind is a barrel-shifter operation applied to a register operand.
type ShiftKind uint8

const (
	// NoShift applies no shift.
	NoShift ShiftKind = iota
	// LSL is a logical shift left.
	LSL
	// LSR is a logical shift right.
	LSR
	// ASR is an arithmetic shift right.
	ASR
	// ROR is a rotate right.
	ROR
	// RRX is a one-bit rotate right through carry.
	RRX
)

var shiftNames = [...]string{
	NoShift: "", LSL: "lsl", LSR: "lsr", ASR: "asr", ROR: "ror", RRX: "rrx",
}

func (s ShiftKind) String() string {
	if int(s) < len(shiftNames) {
		return shiftNames[s]
	}
	return "shift?"
}

// AddrMode distinguishes memory addressing behavior. Pre/post-increment
// modes update the base register as a side effect; the 64-bit splitter
// rejects them because duplicating the access would double the update.
type AddrMode uint8

const (
	// Offset is plain base+offset addressing.
	Offset AddrMode = iota
	// NegOffset is base-offset addressing.
	NegOffset
	// PreIndex writes base+offset back to the base before the access.
	PreIndex
	// PostIndex accesses at base, then writes base+offset back.
	PostIndex
)

// HasSideEffect reports whether the mode updates the base register.
func (m AddrMode) HasSideEffect() bool { return m == PreIndex || m == PostIndex }

// Mem is a memory reference: base plus either an immediate offset or a
// shifted index register.
type Mem struct {
	Ty       ir.Type
	Base     *ir.Variable
	Index    *ir.Variable
	ShiftOp  ShiftKind
	ShiftAmt uint32
	Off      *ir.ConstI32
	Mode     AddrMode
}

// NewMem builds a base+immediate-offset memory operand.
func NewMem(ty ir.Type, base *ir.Variable, off *ir.ConstI32) *Mem {
	return &Mem{Ty: ty, Base: base, Off: off, Mode: Offset}
}

// NewMemRegReg builds a base+shifted-index memory operand.
func NewMemRegReg(ty ir.Type, base, index *ir.Variable, shiftOp ShiftKind, shiftAmt uint32, mode AddrMode) *Mem {
	return &Mem{Ty: ty, Base: base, Index: index, ShiftOp: shiftOp, ShiftAmt: shiftAmt, Mode: mode}
}

// IsRegReg reports whether the operand uses an index register.
func (m *Mem) IsRegReg() bool { return m.Index != nil }

func (m *Mem) Type() ir.Type { return m.Ty }

func (m *Mem) Vars() []*ir.Variable {
	out := []*ir.Variable{m.Base}
	if m.Index != nil {
		out = append(out, m.Index)
	}
	return out
}

func (m *Mem) String() string {
	if m.IsRegReg() {
		sign := "+"
		if m.Mode == NegOffset {
			sign = "-"
		}
		if m.ShiftOp != NoShift {
			return fmt.Sprintf("[%s, %s%s, %s #%d]", m.Base, sign, m.Index, m.ShiftOp, m.ShiftAmt)
		}
		return fmt.Sprintf("[%s, %s%s]", m.Base, sign, m.Index)
	}
	if m.Off != nil && m.Off.Value != 0 {
		return fmt.Sprintf("[%s, #%d]", m.Base, m.Off.Value)
	}
	return fmt.Sprintf("[%s]", m.Base)
}

// OffsetValue returns the immediate offset, 0 when none.
func (m *Mem) OffsetValue() int32 {
	if m.Off == nil {
		return 0
	}
	return m.Off.Value
}

// CanHoldOffset reports whether a load/store of the given type can encode
// the immediate offset. Word and unsigned-byte accesses take a 12-bit
// offset; halfword and signed-byte accesses only 8 bits.
func CanHoldOffset(ty ir.Type, signExt bool, offset int32) bool {
	abs := offset
	if abs < 0 {
		abs = -abs
	}
	switch ty {
	case ir.I1, ir.I8:
		if signExt {
			return abs <= 255
		}
		return abs <= 4095
	case ir.I16:
		return abs <= 255
	case ir.I32:
		return abs <= 4095
	case ir.F32, ir.F64:
		// vldr/vstr: 8-bit offset scaled by 4.
		return abs <= 1020 && abs%4 == 0
	default:
		return false
	}
}

// FlexImm is a flexible second operand holding an 8-bit immediate rotated
// right by an even amount.
type FlexImm struct {
	Ty        ir.Type
	Imm8      uint32
	RotateAmt uint32
}

// NewFlexImm builds a rotated-immediate flexible operand.
func NewFlexImm(ty ir.Type, imm8, rotateAmt uint32) *FlexImm {
	return &FlexImm{Ty: ty, Imm8: imm8, RotateAmt: rotateAmt}
}

func (f *FlexImm) Type() ir.Type        { return f.Ty }
func (f *FlexImm) Vars() []*ir.Variable { return nil }
func (f *FlexImm) String() string       { return fmt.Sprintf("#%d", f.Value()) }

// Value returns the decoded immediate.
func (f *FlexImm) Value() uint32 { return bits.RotateLeft32(f.Imm8, -int(2*f.RotateAmt)) }

// CanHoldFlexImm reports whether value is encodable as an 8-bit immediate
// rotated right by an even amount, returning the encoding if so.
func CanHoldFlexImm(value uint32) (imm8, rotateAmt uint32, ok bool) {
	for rot := uint32(0); rot < 16; rot++ {
		imm := bits.RotateLeft32(value, int(2*rot))
		if imm <= 0xff {
			return imm, rot, true
		}
	}
	return 0, 0, false
}

// FlexReg is a flexible second operand holding a register with an optional
// barrel shift. The shift amount is an immediate or another register.
type FlexReg struct {
	Ty       ir.Type
	Reg      *ir.Variable
	ShiftOp  ShiftKind
	ShiftAmt ir.Operand
}

// NewFlexReg builds a shifted-register flexible operand.
func NewFlexReg(ty ir.Type, reg *ir.Variable, shiftOp ShiftKind, shiftAmt ir.Operand) *FlexReg {
	return &FlexReg{Ty: ty, Reg: reg, ShiftOp: shiftOp, ShiftAmt: shiftAmt}
}

func (f *FlexReg) Type() ir.Type { return f.Ty }

func (f *FlexReg) Vars() []*ir.Variable {
	out := []*ir.Variable{f.Reg}
	if f.ShiftAmt != nil {
		out = append(out, f.ShiftAmt.Vars()...)
	}
	return out
}

func (f *FlexReg) String() string {
	if f.ShiftOp == NoShift {
		return f.Reg.String()
	}
	amt := ir.OperandString(f.ShiftAmt)
	if _, isConst := f.ShiftAmt.(*ir.ConstI32); isConst {
		amt = "#" + amt
	}
	return fmt.Sprintf("%s, %s %s", f.Reg, f.ShiftOp, amt)
}
