package irpack

import (
	"tlog.app/go/errors"

	"anvil/internal/ir"
)

func encodeOperand(op ir.Operand) (fileOperand, error) {
	switch o := op.(type) {
	case *ir.Variable:
		return fileOperand{Kind: opKindVar, Var: o.Num}, nil
	case *ir.ConstI32:
		return fileOperand{Kind: opKindConstI32, Ty: uint8(o.Ty), I32: o.Value}, nil
	case *ir.ConstI64:
		return fileOperand{Kind: opKindConstI64, I64: o.Value}, nil
	case *ir.ConstReloc:
		return fileOperand{Kind: opKindReloc, Sym: o.Name, Off: o.Offset}, nil
	case *ir.ConstUndef:
		return fileOperand{Kind: opKindUndef, Ty: uint8(o.Ty)}, nil
	}
	return fileOperand{}, errors.New("operand %T is not serializable", op)
}

func decodeOperand(f *ir.Func, fo fileOperand) (ir.Operand, error) {
	switch fo.Kind {
	case opKindVar:
		return decodeVar(f, fo.Var)
	case opKindConstI32:
		return ir.NewConstInt(ir.Type(fo.Ty), fo.I32), nil
	case opKindConstI64:
		return ir.NewConstI64(fo.I64), nil
	case opKindReloc:
		return ir.NewConstReloc(fo.Sym, fo.Off), nil
	case opKindUndef:
		return ir.NewConstUndef(ir.Type(fo.Ty)), nil
	}
	return nil, errors.New("unknown operand kind %d", fo.Kind)
}

func encodeInstr(in ir.Instr) (fileInstr, error) {
	fi := fileInstr{Dest: -1}
	if d := in.Dest(); d != nil {
		fi.Dest = d.Num
	}
	for _, src := range in.Srcs() {
		fo, err := encodeOperand(src)
		if err != nil {
			return fi, err
		}
		fi.Srcs = append(fi.Srcs, fo)
	}

	switch instr := in.(type) {
	case *ir.Arith:
		fi.Kind, fi.Op = instArith, uint8(instr.Op)
	case *ir.Icmp:
		fi.Kind, fi.Op = instIcmp, uint8(instr.Cond)
	case *ir.Cast:
		fi.Kind, fi.Op = instCast, uint8(instr.Op)
	case *ir.Assign:
		fi.Kind = instAssign
	case *ir.Load:
		fi.Kind = instLoad
	case *ir.Store:
		fi.Kind = instStore
	case *ir.Br:
		fi.Kind = instBr
		fi.Targets = append(fi.Targets, instr.True.Index)
		if !instr.Unconditional() {
			fi.Targets = append(fi.Targets, instr.False.Index)
		}
	case *ir.Call:
		fi.Kind = instCall
		fi.Effects = instr.SideEffects
	case *ir.IntrinsicCall:
		fi.Kind, fi.Op = instIntrinsic, uint8(instr.ID)
	case *ir.Alloca:
		fi.Kind = instAlloca
		fi.Align = instr.Align
	case *ir.Ret:
		fi.Kind = instRet
	case *ir.Select:
		fi.Kind = instSelect
	case *ir.Switch:
		fi.Kind = instSwitch
		fi.Targets = append(fi.Targets, instr.Default.Index)
		for _, c := range instr.Cases {
			fi.Cases = append(fi.Cases, fileCase{Value: c.Value, Target: c.Target.Index})
		}
	case *ir.Unreachable:
		fi.Kind = instUnreachable
	default:
		return fi, errors.New("instruction %T is not serializable", in)
	}
	return fi, nil
}

func decodeInstr(f *ir.Func, fi *fileInstr) (ir.Instr, error) {
	var dest *ir.Variable
	var err error
	if fi.Dest >= 0 {
		if dest, err = decodeVar(f, fi.Dest); err != nil {
			return nil, err
		}
	}
	srcs := make([]ir.Operand, len(fi.Srcs))
	for i, fo := range fi.Srcs {
		if srcs[i], err = decodeOperand(f, fo); err != nil {
			return nil, err
		}
	}
	need := func(n int) error {
		if len(srcs) != n {
			return errors.New("instruction kind %d wants %d operands, got %d", fi.Kind, n, len(srcs))
		}
		return nil
	}

	switch fi.Kind {
	case instArith:
		if err = need(2); err != nil {
			return nil, err
		}
		return ir.NewArith(ir.ArithOp(fi.Op), dest, srcs[0], srcs[1]), nil
	case instIcmp:
		if err = need(2); err != nil {
			return nil, err
		}
		return ir.NewIcmp(ir.IcmpCond(fi.Op), dest, srcs[0], srcs[1]), nil
	case instCast:
		if err = need(1); err != nil {
			return nil, err
		}
		return ir.NewCast(ir.CastOp(fi.Op), dest, srcs[0]), nil
	case instAssign:
		if err = need(1); err != nil {
			return nil, err
		}
		return ir.NewAssign(dest, srcs[0]), nil
	case instLoad:
		if err = need(1); err != nil {
			return nil, err
		}
		return ir.NewLoad(dest, srcs[0]), nil
	case instStore:
		if err = need(2); err != nil {
			return nil, err
		}
		return ir.NewStore(srcs[0], srcs[1]), nil
	case instBr:
		if len(fi.Targets) == 0 {
			return nil, errors.New("branch without a target")
		}
		if len(fi.Targets) == 1 {
			target, err := decodeBlockRef(f, fi.Targets[0])
			if err != nil {
				return nil, err
			}
			return ir.NewBr(target), nil
		}
		if err = need(1); err != nil {
			return nil, err
		}
		ifTrue, err := decodeBlockRef(f, fi.Targets[0])
		if err != nil {
			return nil, err
		}
		ifFalse, err := decodeBlockRef(f, fi.Targets[1])
		if err != nil {
			return nil, err
		}
		return ir.NewCondBr(srcs[0], ifTrue, ifFalse), nil
	case instCall:
		if len(srcs) == 0 {
			return nil, errors.New("call without a target")
		}
		call := ir.NewCall(dest, srcs[0], srcs[1:]...)
		call.SideEffects = fi.Effects
		return call, nil
	case instIntrinsic:
		return ir.NewIntrinsicCall(ir.IntrinsicID(fi.Op), dest, srcs...), nil
	case instAlloca:
		if err = need(1); err != nil {
			return nil, err
		}
		return ir.NewAlloca(dest, srcs[0], fi.Align), nil
	case instRet:
		if len(srcs) == 0 {
			return ir.NewRet(nil), nil
		}
		return ir.NewRet(srcs[0]), nil
	case instSelect:
		if err = need(3); err != nil {
			return nil, err
		}
		return ir.NewSelect(dest, srcs[0], srcs[1], srcs[2]), nil
	case instSwitch:
		if len(fi.Targets) == 0 {
			return nil, errors.New("switch without a default target")
		}
		def, err := decodeBlockRef(f, fi.Targets[0])
		if err != nil {
			return nil, err
		}
		cases := make([]ir.SwitchCase, len(fi.Cases))
		for i, c := range fi.Cases {
			target, err := decodeBlockRef(f, c.Target)
			if err != nil {
				return nil, err
			}
			cases[i] = ir.SwitchCase{Value: c.Value, Target: target}
		}
		if err = need(1); err != nil {
			return nil, err
		}
		return ir.NewSwitch(srcs[0], def, cases), nil
	case instUnreachable:
		return ir.NewUnreachable(), nil
	}
	return nil, errors.New("unknown instruction kind %d", fi.Kind)
}
