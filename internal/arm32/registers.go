// Package arm32 lowers portable IR into ARM (AArch32, integer subset)
// instructions: operand legalization, 64-bit splitting into register pairs,
// per-opcode lowering, calling convention and stack frame construction, and
// the pass schedules tying them to liveness and register allocation.
package arm32

import "anvil/internal/ir"

func init() { ir.RegisterNamer = RegName }

// Reg numbers the physical registers. The values double as the RegNum
// stored on virtual registers once allocated.
const (
	RegR0 int32 = iota
	RegR1
	RegR2
	RegR3
	RegR4
	RegR5
	RegR6
	RegR7
	RegR8
	RegR9
	RegR10
	RegR11
	RegIP
	RegSP
	RegLR
	RegPC

	// NumRegs is the number of physical registers.
	NumRegs
)

// regInfo is the static property table entry for one physical register.
// Register-set membership is computed by filtering this table, never stored
// per register at runtime.
type regInfo struct {
	name      string
	scratch   bool // caller-saved
	preserved bool // callee-saved
	stackPtr  bool
	framePtr  bool
	isInt     bool
	isFP      bool
}

var regTable = [NumRegs]regInfo{
	RegR0:  {name: "r0", scratch: true, isInt: true},
	RegR1:  {name: "r1", scratch: true, isInt: true},
	RegR2:  {name: "r2", scratch: true, isInt: true},
	RegR3:  {name: "r3", scratch: true, isInt: true},
	RegR4:  {name: "r4", preserved: true, isInt: true},
	RegR5:  {name: "r5", preserved: true, isInt: true},
	RegR6:  {name: "r6", preserved: true, isInt: true},
	RegR7:  {name: "r7", preserved: true, isInt: true},
	RegR8:  {name: "r8", preserved: true, isInt: true},
	RegR9:  {name: "r9", preserved: true, isInt: true},
	RegR10: {name: "r10", preserved: true, isInt: true},
	RegR11: {name: "fp", preserved: true, framePtr: true, isInt: true},
	RegIP:  {name: "ip", scratch: true, isInt: true},
	RegSP:  {name: "sp", stackPtr: true},
	RegLR:  {name: "lr", isInt: true},
	RegPC:  {name: "pc"},
}

// RegName returns the assembly name of a physical register.
func RegName(r int32) string {
	if r < 0 || r >= NumRegs {
		return "r?"
	}
	return regTable[r].name
}

// RegMask is a bitmask over physical register numbers.
type RegMask uint32

// Has reports whether register r is in the mask.
func (m RegMask) Has(r int32) bool { return m&(1<<uint(r)) != 0 }

// Add returns the mask with register r included.
func (m RegMask) Add(r int32) RegMask { return m | 1<<uint(r) }

// Remove returns the mask with register r excluded.
func (m RegMask) Remove(r int32) RegMask { return m &^ (1 << uint(r)) }

// Count returns the number of registers in the mask.
func (m RegMask) Count() int {
	n := 0
	for r := int32(0); r < NumRegs; r++ {
		if m.Has(r) {
			n++
		}
	}
	return n
}

// RegSet selects register classes when building register sets.
type RegSet uint8

const (
	// RegSetNone selects nothing.
	RegSetNone RegSet = 0
	// RegSetCallerSave selects scratch registers.
	RegSetCallerSave RegSet = 1 << iota
	// RegSetCalleeSave selects preserved registers.
	RegSetCalleeSave
	// RegSetStackPointer selects the stack pointer.
	RegSetStackPointer
	// RegSetFramePointer selects the frame pointer.
	RegSetFramePointer
)

// RegisterSet filters the static register table: include the classes in
// include, then drop the classes in exclude.
func RegisterSet(include, exclude RegSet) RegMask {
	var m RegMask
	for r := int32(0); r < NumRegs; r++ {
		info := &regTable[r]
		if info.scratch && include&RegSetCallerSave != 0 {
			m = m.Add(r)
		}
		if info.preserved && include&RegSetCalleeSave != 0 {
			m = m.Add(r)
		}
		if info.stackPtr && include&RegSetStackPointer != 0 {
			m = m.Add(r)
		}
		if info.framePtr && include&RegSetFramePointer != 0 {
			m = m.Add(r)
		}
		if info.scratch && exclude&RegSetCallerSave != 0 {
			m = m.Remove(r)
		}
		if info.preserved && exclude&RegSetCalleeSave != 0 {
			m = m.Remove(r)
		}
		if info.stackPtr && exclude&RegSetStackPointer != 0 {
			m = m.Remove(r)
		}
		if info.framePtr && exclude&RegSetFramePointer != 0 {
			m = m.Remove(r)
		}
	}
	return m
}

// RegFP is the conventional frame pointer.
const RegFP = RegR11

// AllocatableGPRs returns the general-purpose registers the allocator may
// hand out, in preference order (scratch first, then preserved). The frame
// pointer drops out when the function establishes one; ip stays reserved as
// the frame scratch register.
func AllocatableGPRs(usesFramePointer bool) []int32 {
	var out []int32
	for r := int32(0); r < NumRegs; r++ {
		if regTable[r].scratch && regTable[r].isInt && r != RegIP {
			out = append(out, r)
		}
	}
	for r := int32(0); r < NumRegs; r++ {
		if !regTable[r].preserved || !regTable[r].isInt {
			continue
		}
		if usesFramePointer && regTable[r].framePtr {
			continue
		}
		out = append(out, r)
	}
	return out
}
