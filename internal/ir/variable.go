package ir

import "fmt"

// NoRegister marks a variable with no physical register assigned.
const NoRegister int32 = -1

// LiveRange is a closed interval of instruction numbers during which a
// variable is live. Computed by interval liveness, consumed by the register
// allocator.
type LiveRange struct {
	Start, End int32
}

// Overlaps reports whether the two ranges share any instruction.
func (r LiveRange) Overlaps(o LiveRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Variable is a virtual register. It is mutable until register allocation:
// the allocator either pins it to a physical register or leaves it for a
// stack slot. A 64-bit variable structurally owns a lo/hi pair of 32-bit
// children, created together with it.
type Variable struct {
	Num  int32
	Name string
	Ty   Type

	// RegNum is the assigned physical register, or NoRegister.
	RegNum int32
	// MustHaveReg forces a physical register (infinite allocation weight).
	MustHaveReg bool
	// IsArg marks a function argument (explicit or home register).
	IsArg bool
	// IgnoreLiveness exempts the variable from liveness checking (sp, lr).
	IgnoreLiveness bool

	// StackOffset is the frame offset assigned when no register is given.
	StackOffset    int32
	HasStackOffset bool
	// FrameBased addresses the slot relative to the frame pointer instead
	// of the stack pointer.
	FrameBased bool

	// Lo and Hi are the 32-bit halves of an i64 variable, nil otherwise.
	Lo, Hi *Variable

	// Range is the live interval, valid after interval liveness.
	Range LiveRange
	// SingleBlock reports the variable is only live within one block,
	// making it eligible for the local spill area.
	SingleBlock bool
	// LocalBlock is the index of that block when SingleBlock is set.
	LocalBlock int32
}

func (v *Variable) Type() Type        { return v.Ty }
func (v *Variable) Vars() []*Variable { return []*Variable{v} }

// HasReg reports whether a physical register has been assigned.
func (v *Variable) HasReg() bool { return v.RegNum != NoRegister }

// SetStackOffset records a stack-pointer relative frame offset.
func (v *Variable) SetStackOffset(off int32) {
	v.StackOffset = off
	v.HasStackOffset = true
	v.FrameBased = false
}

// SetFrameOffset records a frame-pointer relative frame offset.
func (v *Variable) SetFrameOffset(off int32) {
	v.StackOffset = off
	v.HasStackOffset = true
	v.FrameBased = true
}

// RegisterNamer resolves an assigned physical register number to its assembly
// name. The target package installs it at init; dumps taken before register
// allocation are unaffected because nothing is assigned yet.
var RegisterNamer func(reg int32) string

func (v *Variable) String() string {
	if v.RegNum != NoRegister && RegisterNamer != nil {
		return RegisterNamer(v.RegNum)
	}
	if v.HasStackOffset {
		if v.FrameBased {
			return fmt.Sprintf("[fp, #%d]", v.StackOffset)
		}
		return fmt.Sprintf("[sp, #%d]", v.StackOffset)
	}
	if v.Name != "" {
		return "%" + v.Name
	}
	return fmt.Sprintf("%%t%d", v.Num)
}
