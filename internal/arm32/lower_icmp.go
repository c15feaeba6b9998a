package arm32

import "anvil/internal/ir"

// lowerIcmp materializes a comparison result as 0 or 1 in the boolean
// destination.
func (t *Target) lowerIcmp(in *ir.Icmp) {
	dest := in.Dest()
	a, b := in.Srcs()[0], in.Srcs()[1]
	ty := a.Type()
	if ty.IsVector() || ty.IsScalarFloat() {
		t.unimplemented(in, "comparison on "+ty.String())
		return
	}
	if ty == ir.I64 {
		t.lowerIcmp64(in, dest, a, b)
		return
	}

	// Narrow operands get shifted into the top bits so the full-width
	// compare observes the right sign and carry behavior.
	src0 := t.legalizeToReg(a)
	src1 := t.legalize(b, LegalReg|LegalFlex)
	if shift := 32 - ty.BitWidth(); shift > 0 {
		shiftImm := NewFlexImm(ir.I32, uint32(shift), 0)
		n0 := t.makeReg(ir.I32, NoRegister)
		t.lsl(n0, src0, shiftImm)
		src0 = n0
		n1 := t.makeReg(ir.I32, NoRegister)
		t.lsl(n1, t.legalizeToReg(src1), shiftImm)
		src1 = n1
	}

	cond, ok := icmp32[in.Cond]
	if !ok {
		panic("arm32: no condition mapping for " + in.Cond.String())
	}
	tmp := t.makeReg(ir.I1, NoRegister)
	t.cmp(src0, src1)
	t.mov(tmp, flexZero(ir.I1))
	t.movNonKillable(cond, tmp, flexOne(ir.I1))
	t.mov(dest, tmp)
}

// lowerIcmp64 compares a 64-bit pair. Signed kinds subtract the high words
// with borrow after an unconditional low compare; unsigned kinds compare
// high words and fall back to the low words only on equality.
func (t *Target) lowerIcmp64(in *ir.Icmp, dest *ir.Variable, a, b ir.Operand) {
	entry, ok := icmp64[in.Cond]
	if !ok {
		panic("arm32: no 64-bit condition mapping for " + in.Cond.String())
	}
	if entry.Swapped {
		a, b = b, a
	}

	aLo := t.legalizeToReg(loOperand(a))
	aHi := t.legalizeToReg(hiOperand(a))
	bLo := t.legalize(loOperand(b), LegalReg|LegalFlex)
	bHi := t.legalize(hiOperand(b), LegalReg|LegalFlex)

	if entry.Signed {
		scratch := t.makeReg(ir.I32, NoRegister)
		t.cmp(aLo, bLo)
		t.sbcs(scratch, aHi, bHi)
		// The subtraction exists for its flags; keep the result alive so
		// the instruction survives dead-code checks.
		t.fakeUse(scratch)
	} else {
		t.cmp(aHi, bHi)
		t.cmpPred(CondEQ, aLo, bLo)
	}

	tmp := t.makeReg(ir.I1, NoRegister)
	t.movPred(entry.C1, tmp, flexOne(ir.I1))
	t.movNonKillable(entry.C2, tmp, flexZero(ir.I1))
	t.mov(dest, tmp)
}
