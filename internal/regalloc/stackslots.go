package regalloc

import (
	"sort"

	"anvil/internal/ir"
)

// SlotParams is the computed spill-slot layout: which variables need a
// slot, split into the cross-block area and per-block local areas that
// overlay each other.
type SlotParams struct {
	// Globals need their slot across blocks.
	Globals []*ir.Variable
	// Locals holds, per block index, the variables whose liveness is
	// confined to that block. Their areas share the same frame range.
	Locals map[int32][]*ir.Variable

	GlobalsSize int32
	// LocalsMax is the largest single-block area; the shared local region
	// is sized to it.
	LocalsMax int32
}

// SpillAreaSize is the number of frame bytes the spill areas need before
// stack-alignment padding.
func (p *SlotParams) SpillAreaSize() int32 { return p.GlobalsSize + p.LocalsMax }

// StackSlotParams decides which variables spill and lays out their relative
// order: wider variables first within each area so natural alignment falls
// out of the packing.
func StackSlotParams(f *ir.Func) *SlotParams {
	p := &SlotParams{Locals: map[int32][]*ir.Variable{}}
	for _, v := range f.Vars {
		if !needsStackSlot(v) {
			continue
		}
		if v.SingleBlock {
			p.Locals[v.LocalBlock] = append(p.Locals[v.LocalBlock], v)
		} else {
			p.Globals = append(p.Globals, v)
		}
	}
	sortSlots(p.Globals)
	for _, v := range p.Globals {
		p.GlobalsSize += slotWidth(v)
	}
	for _, vars := range p.Locals {
		sortSlots(vars)
		var size int32
		for _, v := range vars {
			size += slotWidth(v)
		}
		if size > p.LocalsMax {
			p.LocalsMax = size
		}
	}
	return p
}

// AssignStackSlots writes the final frame offset of every spilled variable.
// Offsets are negative from the frame pointer when one is in use, otherwise
// positive from the post-prologue stack pointer.
func AssignStackSlots(p *SlotParams, spillAreaSize int32, usesFramePointer bool) {
	assign := func(v *ir.Variable, next int32) {
		if usesFramePointer {
			v.SetFrameOffset(-next)
		} else {
			v.SetStackOffset(spillAreaSize - next)
		}
	}
	next := int32(0)
	for _, v := range p.Globals {
		next += slotWidth(v)
		assign(v, next)
	}
	for _, vars := range p.Locals {
		blockNext := p.GlobalsSize
		for _, v := range vars {
			blockNext += slotWidth(v)
			assign(v, blockNext)
		}
	}
}

func needsStackSlot(v *ir.Variable) bool {
	if v.IgnoreLiveness || v.HasReg() || v.IsArg || v.Lo != nil {
		return false
	}
	if v.HasStackOffset {
		return false
	}
	return referenced(v)
}

func slotWidth(v *ir.Variable) int32 { return int32(v.Ty.WidthOnStack()) }

func sortSlots(vars []*ir.Variable) {
	sort.SliceStable(vars, func(i, j int) bool {
		wi, wj := slotWidth(vars[i]), slotWidth(vars[j])
		if wi != wj {
			return wi > wj
		}
		return vars[i].Num < vars[j].Num
	})
}
