package arm32

import "anvil/internal/ir"

// Runtime helper symbols the intrinsic lowerings call into.
const (
	helperMemcpy  = "memcpy"
	helperMemmove = "memmove"
	helperMemset  = "memset"
	helperReadTP  = "__aeabi_read_tp"
	helperSetjmp  = "setjmp"
	helperLongjmp = "longjmp"
)

// lowerIntrinsic maps the supported intrinsics onto runtime helper calls.
// Everything else fails fast under the usual policy.
func (t *Target) lowerIntrinsic(in *ir.IntrinsicCall) {
	args := in.Srcs()
	switch in.ID {
	case ir.IntrinsicMemcpy:
		t.lowerHelperCall(nil, helperMemcpy, args...)
	case ir.IntrinsicMemmove:
		t.lowerHelperCall(nil, helperMemmove, args...)
	case ir.IntrinsicMemset:
		// The byte fill value widens to the 32-bit slot the helper ABI
		// expects.
		val := t.widenToI32(args[1])
		t.lowerHelperCall(nil, helperMemset, args[0], val, args[2])
	case ir.IntrinsicReadTP:
		t.lowerHelperCall(in.Dest(), helperReadTP)
	case ir.IntrinsicSetjmp:
		t.lowerHelperCall(in.Dest(), helperSetjmp, args...)
	case ir.IntrinsicLongjmp:
		t.lowerHelperCall(nil, helperLongjmp, args...)
	default:
		t.unimplemented(in, in.ID.String()+" intrinsic")
	}
}

// lowerHelperCall rebuilds an intrinsic as an ordinary call to a runtime
// symbol and hands it to call lowering.
func (t *Target) lowerHelperCall(dest *ir.Variable, symbol string, args ...ir.Operand) {
	call := ir.NewCall(dest, ir.NewConstReloc(symbol, 0), args...)
	call.SideEffects = true
	t.lowerCall(call)
}

// widenToI32 zero-extends a sub-word operand for helper argument slots.
func (t *Target) widenToI32(op ir.Operand) ir.Operand {
	switch v := op.(type) {
	case *ir.ConstI32:
		if v.Ty == ir.I32 {
			return v
		}
		mask := int32(1)<<uint(v.Ty.BitWidth()) - 1
		return ir.NewConstI32(v.Value & mask)
	case *ir.Variable:
		if v.Ty == ir.I32 {
			return v
		}
		wide := t.makeReg(ir.I32, NoRegister)
		if v.Ty == ir.I1 {
			t.and(wide, t.legalizeToReg(v), flexOne(ir.I32))
		} else {
			t.uxt(wide, t.legalizeToReg(v))
		}
		return wide
	}
	return op
}
