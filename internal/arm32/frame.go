package arm32

import (
	"anvil/internal/ir"
	"anvil/internal/regalloc"
)

const (
	// MaxGPRArgs is how many 32-bit argument slots pass in registers.
	MaxGPRArgs = 4
	// StackAlignment is the required stack pointer alignment in bytes.
	StackAlignment uint32 = 16
)

// lowerArguments homes the leading arguments into r0-r3. A 64-bit argument
// must start on an even register slot and goes entirely to the stack when
// the remaining slots cannot hold both halves. Each homed argument becomes a
// fresh precolored variable, with a copy into the original at function
// entry.
func (t *Target) lowerArguments() {
	if len(t.f.Blocks) == 0 {
		return
	}
	entry := t.f.Blocks[0]
	t.block = entry
	t.cur = 0

	gprsUsed := 0
	for i, arg := range t.f.Args {
		ty := arg.Ty
		if ty.IsVector() || ty.IsScalarFloat() {
			t.f.SetErrorf("unimplemented lowering: %s argument", ty)
			break
		}
		if ty == ir.I64 {
			if gprsUsed%2 != 0 {
				gprsUsed++
			}
			if gprsUsed+2 > MaxGPRArgs {
				continue
			}
			home := t.f.NewVariable(ir.I64, "")
			home.IsArg = true
			home.Lo.IsArg = true
			home.Hi.IsArg = true
			home.Lo.RegNum = RegR0 + int32(gprsUsed)
			home.Hi.RegNum = RegR0 + int32(gprsUsed) + 1
			gprsUsed += 2
			t.replaceArg(i, arg, home)
			continue
		}
		if gprsUsed >= MaxGPRArgs {
			continue
		}
		home := t.f.NewVariable(ty, "")
		home.IsArg = true
		home.RegNum = RegR0 + int32(gprsUsed)
		gprsUsed++
		t.replaceArg(i, arg, home)
	}
	t.block = nil
}

// replaceArg swaps the declared argument for its register home and copies
// the home into the old variable at entry. The copy is a portable assign so
// code generation legalizes it like any other.
func (t *Target) replaceArg(i int, arg, home *ir.Variable) {
	arg.IsArg = false
	if arg.Lo != nil {
		arg.Lo.IsArg = false
		arg.Hi.IsArg = false
	}
	t.f.Args[i] = home
	t.insert(ir.NewAssign(arg, home))
}

// argIsRegisterHomed reports whether lowerArguments moved the argument into
// a register.
func argIsRegisterHomed(v *ir.Variable) bool {
	if v.Lo != nil {
		return v.Lo.HasReg()
	}
	return v.HasReg()
}

// savedRegisters returns the callee-saved registers the prologue must
// preserve, ascending. The frame pointer and link register join the list
// when the frame or a call needs them.
func (t *Target) savedRegisters() []int32 {
	var regs []int32
	for r := int32(0); r < NumRegs; r++ {
		switch {
		case regTable[r].preserved && t.regsUsed.Has(r):
			regs = append(regs, r)
		case r == RegFP && t.usesFramePointer:
			regs = append(regs, r)
		case r == RegLR && !t.maybeLeafFunc:
			regs = append(regs, r)
		}
	}
	return regs
}

// addProlog builds the frame at the top of the entry block: save preserved
// registers, establish the frame pointer, carve the spill area, then assign
// the final stack offsets of stack-passed arguments and spilled variables.
func (t *Target) addProlog() {
	if len(t.f.Blocks) == 0 {
		return
	}
	t.block = t.f.Blocks[0]
	t.cur = 0

	saved := t.savedRegisters()
	preservedBytes := int32(len(saved)) * 4
	if len(saved) > 0 {
		vars := make([]*ir.Variable, len(saved))
		for i, r := range saved {
			vars[i] = t.getPhysicalRegister(r, ir.I32)
		}
		t.push(vars)
	}
	if t.usesFramePointer {
		t.mov(t.getPhysicalRegister(RegFP, ir.I32), t.spReg())
	}

	params := regalloc.StackSlotParams(t.f)
	spillArea := params.SpillAreaSize()
	if t.needsStackAlignment {
		spillArea = applyAlignment(spillArea, StackAlignment)
	}
	t.spillAreaSizeBytes = spillArea
	if spillArea > 0 {
		sp := t.spReg()
		t.sub(sp, sp, t.frameAdjustOperand(spillArea))
	}

	// With a frame pointer the incoming arguments are addressed off fp,
	// which is established before the spill area is carved, so the spill
	// bytes only enter sp-relative argument offsets.
	basicFrameOffset := preservedBytes
	if !t.usesFramePointer {
		basicFrameOffset += spillArea
	}
	t.finishArgumentLowering(basicFrameOffset)
	regalloc.AssignStackSlots(params, spillArea, t.usesFramePointer)

	t.hasComputedFrame = true
	t.block = nil

	if t.stats != nil {
		t.stats.AddRegistersSaved(len(saved))
		t.stats.AddFrameBytes(int(spillArea))
		for range params.Globals {
			t.stats.AddSpill()
		}
		for _, vars := range params.Locals {
			for range vars {
				t.stats.AddSpill()
			}
		}
	}
}

// finishArgumentLowering gives every stack-passed argument its offset from
// the frame base: fp when a frame pointer is in use, the post-prologue
// stack pointer otherwise. 64-bit arguments are 8-byte aligned in the
// incoming argument area and split low half first.
func (t *Target) finishArgumentLowering(basicFrameOffset int32) {
	setOffset := func(v *ir.Variable, off int32) {
		if t.usesFramePointer {
			v.SetFrameOffset(off)
		} else {
			v.SetStackOffset(off)
		}
	}
	inArgsSize := int32(0)
	for _, arg := range t.f.Args {
		if argIsRegisterHomed(arg) {
			continue
		}
		if arg.Ty == ir.I64 {
			inArgsSize = applyAlignment(inArgsSize, 8)
			setOffset(arg.Lo, basicFrameOffset+inArgsSize)
			setOffset(arg.Hi, basicFrameOffset+inArgsSize+4)
		} else {
			setOffset(arg, basicFrameOffset+inArgsSize)
		}
		inArgsSize += int32(arg.Ty.WidthOnStack())
		if t.stats != nil {
			t.stats.AddFill()
		}
	}
}

// addEpilogs rewrites every returning block: undo the stack adjustment,
// restore saved registers, and under sandboxing replace the plain return
// with the masked bundle sequence.
func (t *Target) addEpilogs() {
	for _, b := range t.f.Blocks {
		retIdx := -1
		for i := len(b.Instrs) - 1; i >= 0; i-- {
			if b.Instrs[i].Deleted() {
				continue
			}
			if _, ok := b.Instrs[i].(*Ret); ok {
				retIdx = i
			}
			break
		}
		if retIdx < 0 {
			continue
		}
		t.block = b
		t.cur = retIdx

		sp := t.spReg()
		if t.usesFramePointer {
			t.mov(sp, t.getPhysicalRegister(RegFP, ir.I32))
		} else if t.spillAreaSizeBytes > 0 {
			t.add(sp, sp, t.frameAdjustOperand(t.spillAreaSizeBytes))
		}
		if saved := t.savedRegisters(); len(saved) > 0 {
			vars := make([]*ir.Variable, len(saved))
			for i, r := range saved {
				vars[i] = t.getPhysicalRegister(r, ir.I32)
			}
			t.pop(vars)
		}
		if t.cfg.Sandboxing {
			// bic clears the low four bits and the top two so the return
			// address stays inside the untrusted text region, with the
			// mask and branch fused into one bundle.
			lr := t.lrReg()
			t.bundled(true)
			imm8, rot, ok := CanHoldFlexImm(0xc000000f)
			if !ok {
				panic("arm32: return mask stopped encoding as a rotated immediate")
			}
			t.bic(lr, lr, NewFlexImm(ir.I32, imm8, rot))
			// The ret itself sits at t.cur now; the unlock goes after it.
			t.cur++
			t.bundled(false)
		}
	}
	t.block = nil
}

// frameAdjustOperand yields amount as a data-op operand, spilling through
// the ip scratch register when the immediate does not encode. Safe after
// register allocation because ip is never allocated.
func (t *Target) frameAdjustOperand(amount int32) ir.Operand {
	if imm8, rot, ok := CanHoldFlexImm(uint32(amount)); ok {
		return NewFlexImm(ir.I32, imm8, rot)
	}
	ip := t.makeReg(ir.I32, RegIP)
	t.movw(ip, ir.NewConstI32(amount&0xffff))
	if amount>>16 != 0 {
		t.movt(ip, ir.NewConstI32(int32(uint32(amount)>>16)))
	}
	return ip
}

// applyAlignment rounds size up to the next multiple of align, a power of
// two.
func applyAlignment(size int32, align uint32) int32 {
	mask := int32(align) - 1
	return (size + mask) &^ mask
}
