package arm32

import (
	"fmt"

	"anvil/internal/ir"
)

// LegalMask names the operand shapes an instruction position accepts.
type LegalMask uint8

const (
	// LegalReg accepts a register.
	LegalReg LegalMask = 1 << iota
	// LegalFlex accepts a flexible second operand (shifted register or
	// rotated 8-bit immediate).
	LegalFlex
	// LegalMem accepts a memory operand.
	LegalMem

	// LegalAll accepts any shape.
	LegalAll = LegalReg | LegalFlex | LegalMem
)

// legalize rewrites from into a shape permitted by allowed, inserting
// materializing instructions at the cursor as needed. The returned operand
// satisfies allowed.
func (t *Target) legalize(from ir.Operand, allowed LegalMask) ir.Operand {
	switch op := from.(type) {
	case *Mem:
		mem := t.legalizeMem(op)
		if allowed&LegalMem != 0 {
			return mem
		}
		// The position wants a register; load through a temporary.
		dest := t.makeReg(mem.Ty, NoRegister)
		t.ldr(dest, mem)
		return dest

	case *FlexImm, *FlexReg:
		if allowed&LegalFlex != 0 {
			return from
		}
		return t.copyToReg(from, NoRegister)

	case *ir.ConstUndef:
		// Undef reads as zero so downstream passes see a defined value.
		return t.legalize(ir.NewConstInt(op.Ty, 0), allowed)

	case *ir.ConstI32:
		value := uint32(op.Value)
		if allowed&LegalFlex != 0 {
			if imm8, rot, ok := CanHoldFlexImm(value); ok {
				return NewFlexImm(op.Ty, imm8, rot)
			}
		}
		if allowed&LegalReg == 0 {
			t.f.SetErrorf("cannot place immediate %d without a register position", op.Value)
			return from
		}
		dest := t.makeReg(op.Ty, NoRegister)
		if imm8, rot, ok := CanHoldFlexImm(^value); ok {
			t.mvn(dest, NewFlexImm(op.Ty, imm8, rot))
			return dest
		}
		t.movw(dest, ir.NewConstInt(op.Ty, int32(value&0xffff)))
		if value>>16 != 0 {
			t.movt(dest, ir.NewConstInt(op.Ty, int32(value>>16)))
		}
		return dest

	case *ir.ConstReloc:
		// Symbol addresses are always materialized as a movw/movt pair so
		// the linker can patch both halves.
		if allowed&LegalReg == 0 {
			t.f.SetErrorf("cannot place symbol %s without a register position", op.Name)
			return from
		}
		dest := t.makeReg(ir.I32, NoRegister)
		t.movw(dest, op)
		t.movt(dest, op)
		return dest

	case *ir.Variable:
		if allowed&LegalReg == 0 {
			panic("arm32: variable operand in a non-register position")
		}
		return op

	case *ir.ConstI64:
		panic("arm32: 64-bit constant reached legalize; split it first")
	}
	panic(fmt.Sprintf("arm32: unknown operand %T", from))
}

// legalizeToReg legalizes from into a register-class variable, copying when
// legalize returns something else.
func (t *Target) legalizeToReg(from ir.Operand) *ir.Variable {
	if v, ok := t.legalize(from, LegalReg).(*ir.Variable); ok {
		return v
	}
	return t.copyToReg(from, NoRegister)
}

// legalizeToRegFixed legalizes from into the given physical register.
func (t *Target) legalizeToRegFixed(from ir.Operand, reg int32) *ir.Variable {
	legal := t.legalize(from, LegalReg|LegalFlex)
	if v, ok := legal.(*ir.Variable); ok && v.RegNum == reg {
		return v
	}
	return t.copyToReg(legal, reg)
}

// copyToReg moves src into a fresh register temporary, precolored when
// reg >= 0.
func (t *Target) copyToReg(src ir.Operand, reg int32) *ir.Variable {
	dest := t.makeReg(src.Type(), reg)
	t.mov(dest, src)
	return dest
}

// legalizeMem registerizes the base and index of a memory operand and
// rewrites offsets the addressing mode cannot encode.
func (t *Target) legalizeMem(mem *Mem) *Mem {
	if mem.Mode.HasSideEffect() {
		t.f.SetErrorf("pre/post-indexed addressing is not generated")
		return mem
	}
	base := mem.Base
	if base == nil {
		panic("arm32: memory operand without a base")
	}
	if mem.IsRegReg() {
		return NewMemRegReg(mem.Ty, base, mem.Index, mem.ShiftOp, mem.ShiftAmt, mem.Mode)
	}
	off := mem.OffsetValue()
	if !CanHoldOffset(mem.Ty, typeUsesSignExtLoad(mem.Ty), off) {
		// Fold the oversized offset into a new base register.
		newBase := t.makeReg(ir.I32, NoRegister)
		t.lowerInt32Add(newBase, base, ir.NewConstI32(off))
		return NewMem(mem.Ty, newBase, nil)
	}
	return NewMem(mem.Ty, base, mem.Off)
}

// typeUsesSignExtLoad reports whether loads of ty use the sign-extending
// encoding, which has the narrower offset range.
func typeUsesSignExtLoad(ty ir.Type) bool { return ty == ir.I16 }

// lowerInt32Add emits dest = base + value, choosing between an encodable
// immediate, its complement, or a materialized constant.
func (t *Target) lowerInt32Add(dest, base *ir.Variable, value *ir.ConstI32) {
	v := uint32(value.Value)
	if imm8, rot, ok := CanHoldFlexImm(v); ok {
		t.add(dest, base, NewFlexImm(ir.I32, imm8, rot))
		return
	}
	if imm8, rot, ok := CanHoldFlexImm(-v); ok {
		t.sub(dest, base, NewFlexImm(ir.I32, imm8, rot))
		return
	}
	t.add(dest, base, t.legalizeToReg(value))
}

// formMemoryOperand coerces an address operand into a legal memory operand
// of access type ty.
func (t *Target) formMemoryOperand(addr ir.Operand, ty ir.Type) *Mem {
	if mem, ok := addr.(*Mem); ok {
		m := *mem
		m.Ty = ty
		return t.legalizeMem(&m)
	}
	base := t.legalizeToReg(addr)
	return NewMem(ty, base, nil)
}

// alignRegisterPow2 clears the low bits of reg in place so it becomes a
// multiple of align, which must be a power of two.
func (t *Target) alignRegisterPow2(reg *ir.Variable, align uint32) {
	if align <= 1 {
		return
	}
	mask := align - 1
	if imm8, rot, ok := CanHoldFlexImm(mask); ok {
		t.bic(reg, reg, NewFlexImm(ir.I32, imm8, rot))
		return
	}
	t.bic(reg, reg, t.legalizeToReg(ir.NewConstI32(int32(mask))))
}
