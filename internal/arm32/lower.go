package arm32

import (
	"fmt"

	"anvil/internal/ir"
)

// lowerInstr replaces one portable instruction with its machine sequence,
// inserted at the cursor. The caller marks the original deleted.
func (t *Target) lowerInstr(in ir.Instr) {
	switch instr := in.(type) {
	case *ir.Arith:
		t.lowerArith(instr)
	case *ir.Assign:
		t.lowerAssign(instr.Dest(), instr.Srcs()[0])
	case *ir.Br:
		t.lowerBr(instr)
	case *ir.Call:
		t.lowerCall(instr)
	case *ir.Cast:
		t.lowerCast(instr)
	case *ir.Icmp:
		t.lowerIcmp(instr)
	case *ir.IntrinsicCall:
		t.lowerIntrinsic(instr)
	case *ir.Load:
		t.lowerLoad(instr)
	case *ir.Store:
		t.lowerStore(instr)
	case *ir.Alloca:
		t.lowerAlloca(instr)
	case *ir.Ret:
		t.lowerRet(instr)
	case *ir.Select:
		t.unimplemented(instr, "select")
	case *ir.Switch:
		t.unimplemented(instr, "switch")
	case *ir.Unreachable:
		t.unimplemented(instr, "unreachable")
	case *ir.Phi:
		panic("arm32: phi reached instruction lowering; phis are eliminated earlier")
	default:
		panic(fmt.Sprintf("arm32: unknown instruction %T", in))
	}
}

// lowerAssign emits dest = src, splitting 64-bit values into two moves.
func (t *Target) lowerAssign(dest *ir.Variable, src ir.Operand) {
	switch {
	case dest.Ty.IsVector() || dest.Ty.IsScalarFloat():
		t.unimplemented(ir.NewAssign(dest, src), "assign of "+dest.Ty.String())
	case dest.Ty == ir.I64:
		lo := t.legalize(loOperand(src), LegalReg|LegalFlex)
		t.mov(dest.Lo, lo)
		hi := t.legalize(hiOperand(src), LegalReg|LegalFlex)
		t.mov(dest.Hi, hi)
	default:
		t.mov(dest, t.legalize(src, LegalReg|LegalFlex))
	}
}

// lowerBr emits a direct branch, or a compare-against-zero plus a
// conditional branch.
func (t *Target) lowerBr(in *ir.Br) {
	if in.Unconditional() {
		t.br(in.True)
		return
	}
	cond := t.legalizeToReg(in.Cond())
	t.cmp(cond, flexZero(cond.Ty))
	t.condBr(CondNE, in.True, in.False)
}

// lowerRet moves the return value into its ABI register (pair) and emits the
// return. The stack pointer gets a keep-alive so epilogue adjustments are
// never removed as dead.
func (t *Target) lowerRet(in *ir.Ret) {
	var liveRegs []*ir.Variable
	if value := in.Value(); value != nil {
		ty := value.Type()
		switch {
		case ty.IsVector() || ty.IsScalarFloat():
			t.unimplemented(in, "return of "+ty.String())
			return
		case ty == ir.I64:
			r0 := t.legalizeToRegFixed(loOperand(value), RegR0)
			r1 := t.legalizeToRegFixed(hiOperand(value), RegR1)
			liveRegs = []*ir.Variable{r0, r1}
		default:
			r0 := t.legalizeToRegFixed(value, RegR0)
			liveRegs = []*ir.Variable{r0}
		}
	}
	t.fakeUse(t.spReg())
	t.ret(liveRegs...)
}

// flexZero returns the encodable immediate zero of type ty.
func flexZero(ty ir.Type) *FlexImm { return NewFlexImm(ty, 0, 0) }

// flexOne returns the encodable immediate one of type ty.
func flexOne(ty ir.Type) *FlexImm { return NewFlexImm(ty, 1, 0) }
