package arm32

import "anvil/internal/ir"

// lowerCall emits a call with its return-register plumbing. Outgoing
// argument passing is not lowered yet, so calls with arguments fail fast.
func (t *Target) lowerCall(in *ir.Call) {
	if len(in.Args()) > 0 {
		t.unimplemented(in, "call with arguments")
		return
	}
	t.maybeLeafFunc = false

	target := in.Target()
	if _, ok := target.(*ir.ConstReloc); !ok {
		target = t.legalizeToReg(target)
	}

	// Results land in the fixed return registers; 64-bit results use a
	// pair, with the high register defined via a marker since the call
	// instruction carries one destination.
	var retLo, retHi *ir.Variable
	if d := in.Dest(); d != nil {
		switch {
		case d.Ty.IsVector() || d.Ty.IsScalarFloat():
			t.unimplemented(in, "call returning "+d.Ty.String())
			return
		case d.Ty == ir.I64:
			retLo = t.makeReg(ir.I32, RegR0)
			retHi = t.makeReg(ir.I32, RegR1)
		default:
			retLo = t.makeReg(d.Ty, RegR0)
		}
	}

	callIn := newCall(retLo, target)
	t.insert(callIn)
	// Every caller-saved register dies here unless the call defines it.
	t.fakeKill(callIn)
	if retHi != nil {
		t.fakeDef(retHi)
	}
	if in.SideEffects && retLo != nil {
		t.fakeUse(retLo)
		if retHi != nil {
			t.fakeUse(retHi)
		}
	}

	if d := in.Dest(); d != nil {
		if d.Ty == ir.I64 {
			t.mov(d.Lo, retLo)
			t.mov(d.Hi, retHi)
		} else {
			t.mov(d, retLo)
		}
	}
}
