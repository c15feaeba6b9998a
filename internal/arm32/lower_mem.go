package arm32

import "anvil/internal/ir"

func (t *Target) lowerLoad(in *ir.Load) {
	dest := in.Dest()
	addr := in.Srcs()[0]
	if dest.Ty.IsVector() || dest.Ty.IsScalarFloat() {
		t.unimplemented(in, "load of "+dest.Ty.String())
		return
	}
	if dest.Ty == ir.I64 {
		// Two word accesses, low half first.
		memLo := t.formMemoryOperand(addr, ir.I32)
		t.ldr(dest.Lo, memLo)
		t.ldr(dest.Hi, t.memHiOperand(memLo))
		return
	}
	mem := t.formMemoryOperand(addr, dest.Ty)
	t.ldr(dest, mem)
}

func (t *Target) lowerStore(in *ir.Store) {
	value := in.Srcs()[0]
	addr := in.Srcs()[1]
	ty := value.Type()
	if ty.IsVector() || ty.IsScalarFloat() {
		t.unimplemented(in, "store of "+ty.String())
		return
	}
	if ty == ir.I64 {
		// High half first, mirroring the layout order callers rely on for
		// partially observed stores.
		memLo := t.formMemoryOperand(addr, ir.I32)
		memHi := t.memHiOperand(memLo)
		t.str(t.legalizeToReg(hiOperand(value)), memHi)
		t.str(t.legalizeToReg(loOperand(value)), memLo)
		return
	}
	mem := t.formMemoryOperand(addr, ty)
	t.str(t.legalizeToReg(value), mem)
}

// lowerAlloca carves a dynamic allocation out of the stack. Any alloca
// forces frame-pointer addressing and prologue stack realignment, because
// stack-pointer-relative spill offsets stop being constant.
func (t *Target) lowerAlloca(in *ir.Alloca) {
	dest := in.Dest()
	t.usesFramePointer = true
	t.needsStackAlignment = true

	align := in.Align
	if align < StackAlignment {
		align = StackAlignment
	}
	sp := t.spReg()
	if align > StackAlignment {
		// The prologue only guarantees StackAlignment; stricter requests
		// must clear the extra low bits of sp themselves.
		t.alignRegisterPow2(sp, align)
	}
	size := in.Srcs()[0]
	if c, ok := size.(*ir.ConstI32); ok {
		rounded := (uint32(c.Value) + align - 1) &^ (align - 1)
		amount := t.legalize(ir.NewConstI32(int32(rounded)), LegalReg|LegalFlex)
		t.sub(sp, sp, amount)
	} else {
		amount := t.legalizeToReg(size)
		rounded := t.makeReg(ir.I32, NoRegister)
		t.lowerInt32Add(rounded, amount, ir.NewConstI32(int32(align-1)))
		t.alignRegisterPow2(rounded, align)
		t.sub(sp, sp, rounded)
	}
	t.mov(dest, sp)
}
