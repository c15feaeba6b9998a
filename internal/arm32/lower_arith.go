package arm32

import "anvil/internal/ir"

// arith32Ops maps portable operators onto their single-instruction 32-bit
// encodings. Operators absent here need a multi-instruction sequence or are
// not lowered.
var arith32Ops = map[ir.ArithOp]Op{
	ir.ArithAdd:  OpAdd,
	ir.ArithAnd:  OpAnd,
	ir.ArithOr:   OpOrr,
	ir.ArithXor:  OpEor,
	ir.ArithSub:  OpSub,
	ir.ArithMul:  OpMul,
	ir.ArithShl:  OpLsl,
	ir.ArithLshr: OpLsr,
	ir.ArithAshr: OpAsr,
}

func (t *Target) lowerArith(in *ir.Arith) {
	dest := in.Dest()
	a, b := in.Srcs()[0], in.Srcs()[1]
	if dest.Ty.IsVector() || dest.Ty.IsScalarFloat() {
		t.unimplemented(in, "arithmetic on "+dest.Ty.String())
		return
	}
	if dest.Ty == ir.I64 {
		t.lowerArith64(in, dest, a, b)
		return
	}

	op, ok := arith32Ops[in.Op]
	if !ok {
		t.unimplemented(in, in.Op.String())
		return
	}
	src0 := t.legalizeToReg(a)
	var src1 ir.Operand
	if op == OpMul {
		// mul takes two register operands, no flexible form.
		src1 = t.legalizeToReg(b)
	} else {
		src1 = t.legalize(b, LegalReg|LegalFlex)
	}
	tmp := t.makeReg(dest.Ty, NoRegister)
	t.dataOp(op, tmp, src0, src1)
	t.mov(dest, tmp)
}

func (t *Target) lowerArith64(in *ir.Arith, dest *ir.Variable, a, b ir.Operand) {
	switch in.Op {
	case ir.ArithAdd:
		t.lowerCarryChain64(dest, a, b, OpAdds, OpAdc)
	case ir.ArithSub:
		t.lowerCarryChain64(dest, a, b, OpSubs, OpSbc)
	case ir.ArithAnd:
		t.lowerBitwise64(dest, a, b, OpAnd)
	case ir.ArithOr:
		t.lowerBitwise64(dest, a, b, OpOrr)
	case ir.ArithXor:
		t.lowerBitwise64(dest, a, b, OpEor)
	case ir.ArithMul:
		t.lowerMul64(dest, a, b)
	case ir.ArithShl:
		t.lowerShl64(dest, a, b)
	case ir.ArithLshr:
		t.lowerShr64(dest, a, b, false)
	case ir.ArithAshr:
		t.lowerShr64(dest, a, b, true)
	default:
		t.unimplemented(in, "64-bit "+in.Op.String())
	}
}

// lowerCarryChain64 emits the flag-setting low-half operation followed by
// the carry-consuming high-half operation. The moves between them do not
// touch flags.
func (t *Target) lowerCarryChain64(dest *ir.Variable, a, b ir.Operand, loOp, hiOp Op) {
	aLo := t.legalizeToReg(loOperand(a))
	bLo := t.legalize(loOperand(b), LegalReg|LegalFlex)
	aHi := t.legalizeToReg(hiOperand(a))
	bHi := t.legalize(hiOperand(b), LegalReg|LegalFlex)

	tLo := t.makeReg(ir.I32, NoRegister)
	tHi := t.makeReg(ir.I32, NoRegister)
	t.dataOp(loOp, tLo, aLo, bLo)
	t.mov(dest.Lo, tLo)
	t.dataOp(hiOp, tHi, aHi, bHi)
	t.mov(dest.Hi, tHi)
}

func (t *Target) lowerBitwise64(dest *ir.Variable, a, b ir.Operand, op Op) {
	aLo := t.legalizeToReg(loOperand(a))
	bLo := t.legalize(loOperand(b), LegalReg|LegalFlex)
	tLo := t.makeReg(ir.I32, NoRegister)
	t.dataOp(op, tLo, aLo, bLo)
	t.mov(dest.Lo, tLo)

	aHi := t.legalizeToReg(hiOperand(a))
	bHi := t.legalize(hiOperand(b), LegalReg|LegalFlex)
	tHi := t.makeReg(ir.I32, NoRegister)
	t.dataOp(op, tHi, aHi, bHi)
	t.mov(dest.Hi, tHi)
}

// lowerMul64 computes the truncating 64x64->64 product from three partial
// products: the unsigned widening lo*lo plus the two cross terms folded into
// its high word.
func (t *Target) lowerMul64(dest *ir.Variable, a, b ir.Operand) {
	aLo := t.legalizeToReg(loOperand(a))
	aHi := t.legalizeToReg(hiOperand(a))
	bLo := t.legalizeToReg(loOperand(b))
	bHi := t.legalizeToReg(hiOperand(b))

	acc1 := t.makeReg(ir.I32, NoRegister)
	acc2 := t.makeReg(ir.I32, NoRegister)
	tLo := t.makeReg(ir.I32, NoRegister)
	tHi := t.makeReg(ir.I32, NoRegister)
	tHi2 := t.makeReg(ir.I32, NoRegister)

	t.mul(acc1, aLo, bHi)
	t.mla(acc2, aHi, bLo, acc1)
	t.umull(tLo, tHi, aLo, bLo)
	t.add(tHi2, tHi, acc2)
	t.mov(dest.Lo, tLo)
	t.mov(dest.Hi, tHi2)
}

// lowerShl64 shifts left by an amount in 0..63 without branching. The
// register-shift forms use only the low byte of the amount and produce zero
// for amounts of 32 or more, which the or-chain exploits: exactly one of the
// two candidate contributions to the high word is nonzero.
func (t *Target) lowerShl64(dest *ir.Variable, a, b ir.Operand) {
	lo := t.legalizeToReg(loOperand(a))
	hi := t.legalizeToReg(hiOperand(a))
	amt := t.legalizeToReg(loOperand(b))

	t0 := t.makeReg(ir.I32, NoRegister)
	t1 := t.makeReg(ir.I32, NoRegister)
	t2 := t.makeReg(ir.I32, NoRegister)
	t3 := t.makeReg(ir.I32, NoRegister)
	t4 := t.makeReg(ir.I32, NoRegister)
	t5 := t.makeReg(ir.I32, NoRegister)

	t.rsb(t0, amt, NewFlexImm(ir.I32, 32, 0))
	t.lsr(t1, lo, t0)
	t.orr(t2, t1, NewFlexReg(ir.I32, hi, LSL, amt))
	t.sub(t3, amt, NewFlexImm(ir.I32, 32, 0))
	t.orr(t4, t2, NewFlexReg(ir.I32, lo, LSL, t3))
	t.mov(dest.Hi, t4)
	t.lsl(t5, lo, amt)
	t.mov(dest.Lo, t5)
}

// lowerShr64 is the mirror of lowerShl64 for right shifts. The logical
// variant stays branch-free; the arithmetic variant needs the sign bits for
// amounts past 32, so the final contribution is gated on the flags of the
// amount-minus-32 subtraction instead of relying on shift saturation.
func (t *Target) lowerShr64(dest *ir.Variable, a, b ir.Operand, arithmetic bool) {
	lo := t.legalizeToReg(loOperand(a))
	hi := t.legalizeToReg(hiOperand(a))
	amt := t.legalizeToReg(loOperand(b))

	t0 := t.makeReg(ir.I32, NoRegister)
	t1 := t.makeReg(ir.I32, NoRegister)
	t2 := t.makeReg(ir.I32, NoRegister)
	t3 := t.makeReg(ir.I32, NoRegister)
	t5 := t.makeReg(ir.I32, NoRegister)

	t.rsb(t0, amt, NewFlexImm(ir.I32, 32, 0))
	t.lsl(t1, hi, t0)
	t.orr(t2, t1, NewFlexReg(ir.I32, lo, LSR, amt))
	if arithmetic {
		t.subs(t3, amt, NewFlexImm(ir.I32, 32, 0))
		t.dataOpPred(OpOrr, CondPL, t2, t2, NewFlexReg(ir.I32, hi, ASR, t3))
		t.mov(dest.Lo, t2)
		t.asr(t5, hi, amt)
	} else {
		t.sub(t3, amt, NewFlexImm(ir.I32, 32, 0))
		t4 := t.makeReg(ir.I32, NoRegister)
		t.orr(t4, t2, NewFlexReg(ir.I32, hi, LSR, t3))
		t.mov(dest.Lo, t4)
		t.lsr(t5, hi, amt)
	}
	t.mov(dest.Hi, t5)
}
