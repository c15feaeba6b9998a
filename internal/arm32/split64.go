package arm32

import (
	"fmt"

	"anvil/internal/ir"
)

// loOperand projects the low 32 bits of a 64-bit operand. Variables carry
// their halves structurally; constants split arithmetically.
func loOperand(op ir.Operand) ir.Operand {
	if op.Type() != ir.I64 {
		panic(fmt.Sprintf("arm32: loOperand on %v operand", op.Type()))
	}
	switch v := op.(type) {
	case *ir.Variable:
		if v.Lo == nil {
			panic("arm32: 64-bit variable " + v.String() + " has no low half")
		}
		return v.Lo
	case *ir.ConstI64:
		return ir.NewConstI32(int32(uint64(v.Value) & 0xffffffff))
	case *ir.ConstUndef:
		return ir.NewConstI32(0)
	}
	panic(fmt.Sprintf("arm32: cannot split %T", op))
}

// hiOperand projects the high 32 bits of a 64-bit operand.
func hiOperand(op ir.Operand) ir.Operand {
	if op.Type() != ir.I64 {
		panic(fmt.Sprintf("arm32: hiOperand on %v operand", op.Type()))
	}
	switch v := op.(type) {
	case *ir.Variable:
		if v.Hi == nil {
			panic("arm32: 64-bit variable " + v.String() + " has no high half")
		}
		return v.Hi
	case *ir.ConstI64:
		return ir.NewConstI32(int32(uint64(v.Value) >> 32))
	case *ir.ConstUndef:
		return ir.NewConstI32(0)
	}
	panic(fmt.Sprintf("arm32: cannot split %T", op))
}

// memHiOperand derives the memory operand for the high half of a 64-bit
// access: the low operand's address plus four. When the altered offset stops
// encoding, or the operand uses reg+reg addressing, the full address is
// folded into a fresh base first.
func (t *Target) memHiOperand(lo *Mem) *Mem {
	if lo.IsRegReg() {
		newBase := t.makeReg(ir.I32, NoRegister)
		var index ir.Operand = lo.Index
		if lo.ShiftOp != NoShift {
			index = NewFlexReg(ir.I32, lo.Index, lo.ShiftOp, ir.NewConstI32(int32(lo.ShiftAmt)))
		}
		t.add(newBase, lo.Base, index)
		return NewMem(lo.Ty, newBase, ir.NewConstI32(4))
	}
	off := lo.OffsetValue() + 4
	if !CanHoldOffset(lo.Ty, typeUsesSignExtLoad(lo.Ty), off) {
		newBase := t.makeReg(ir.I32, NoRegister)
		t.lowerInt32Add(newBase, lo.Base, ir.NewConstI32(off))
		return NewMem(lo.Ty, newBase, nil)
	}
	return NewMem(lo.Ty, lo.Base, ir.NewConstI32(off))
}
