package arm32

import "anvil/internal/ir"

func (t *Target) lowerCast(in *ir.Cast) {
	dest := in.Dest()
	src := in.Srcs()[0]
	switch in.Op {
	case ir.CastSext:
		t.lowerSext(in, dest, src)
	case ir.CastZext:
		t.lowerZext(in, dest, src)
	case ir.CastTrunc:
		t.lowerTrunc(in, dest, src)
	case ir.CastBitcast:
		if dest.Ty != src.Type() {
			t.unimplemented(in, "bitcast between "+src.Type().String()+" and "+dest.Ty.String())
			return
		}
		t.lowerAssign(dest, src)
	default:
		t.unimplemented(in, in.Op.String()+" cast")
	}
}

// lowerSext sign-extends. The boolean type keeps its payload in bit 0, so
// its sign bit is manufactured by a shift to bit 31 and an arithmetic shift
// back.
func (t *Target) lowerSext(in *ir.Cast, dest *ir.Variable, src ir.Operand) {
	srcTy := src.Type()
	if !srcTy.IsScalarInt() || !dest.Ty.IsScalarInt() {
		t.unimplemented(in, "sext of "+srcTy.String())
		return
	}
	full := t.makeReg(ir.I32, NoRegister)
	switch srcTy {
	case ir.I1:
		shifted := t.makeReg(ir.I32, NoRegister)
		t.lsl(shifted, t.legalizeToReg(src), NewFlexImm(ir.I32, 31, 0))
		t.asr(full, shifted, NewFlexImm(ir.I32, 31, 0))
	case ir.I8, ir.I16:
		t.sxt(full, t.legalizeToReg(src))
	case ir.I32:
		full = t.legalizeToReg(src)
	default:
		t.unimplemented(in, "sext from "+srcTy.String())
		return
	}
	if dest.Ty == ir.I64 {
		t.mov(dest.Lo, full)
		hi := t.makeReg(ir.I32, NoRegister)
		if srcTy == ir.I1 {
			// The extended boolean is already all-ones or all-zero.
			t.mov(hi, full)
		} else {
			t.asr(hi, full, NewFlexImm(ir.I32, 31, 0))
		}
		t.mov(dest.Hi, hi)
		return
	}
	t.mov(dest, full)
}

func (t *Target) lowerZext(in *ir.Cast, dest *ir.Variable, src ir.Operand) {
	srcTy := src.Type()
	if !srcTy.IsScalarInt() || !dest.Ty.IsScalarInt() {
		t.unimplemented(in, "zext of "+srcTy.String())
		return
	}
	full := t.makeReg(ir.I32, NoRegister)
	switch srcTy {
	case ir.I1:
		t.and(full, t.legalizeToReg(src), flexOne(ir.I32))
	case ir.I8, ir.I16:
		t.uxt(full, t.legalizeToReg(src))
	case ir.I32:
		full = t.legalizeToReg(src)
	default:
		t.unimplemented(in, "zext from "+srcTy.String())
		return
	}
	if dest.Ty == ir.I64 {
		t.mov(dest.Lo, full)
		t.mov(dest.Hi, flexZero(ir.I32))
		return
	}
	t.mov(dest, full)
}

// lowerTrunc drops the high bits. Only truncation to the boolean type
// masks, because its consumers test bit 0 alone.
func (t *Target) lowerTrunc(in *ir.Cast, dest *ir.Variable, src ir.Operand) {
	srcTy := src.Type()
	if !srcTy.IsScalarInt() || !dest.Ty.IsScalarInt() {
		t.unimplemented(in, "trunc of "+srcTy.String())
		return
	}
	narrow := src
	if srcTy == ir.I64 {
		narrow = loOperand(src)
	}
	reg := t.legalizeToReg(narrow)
	if dest.Ty == ir.I1 {
		masked := t.makeReg(ir.I1, NoRegister)
		t.and(masked, reg, flexOne(ir.I1))
		t.mov(dest, masked)
		return
	}
	t.mov(dest, reg)
}
