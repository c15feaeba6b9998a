package arm32

import (
	"tlog.app/go/tlog"

	"anvil/internal/config"
	"anvil/internal/ir"
	"anvil/internal/liveness"
	"anvil/internal/observ"
	"anvil/internal/regalloc"
)

// Target holds per-function lowering state. One Target serves one function;
// translating functions in parallel means one Target each.
type Target struct {
	f     *ir.Func
	cfg   config.Config
	stats *observ.Stats

	// Lowering cursor: new instructions are inserted into block before
	// position cur.
	block *ir.Block
	cur   int

	physRegs [NumRegs]*ir.Variable

	usesFramePointer    bool
	needsStackAlignment bool
	maybeLeafFunc       bool
	hasComputedFrame    bool
	spillAreaSizeBytes  int32
	regsUsed            RegMask

	rng nopRNG
}

// NewTarget prepares a lowering context for f.
func NewTarget(f *ir.Func, cfg config.Config, stats *observ.Stats) *Target {
	return &Target{
		f:             f,
		cfg:           cfg,
		stats:         stats,
		maybeLeafFunc: true,
		rng:           newNopRNG(cfg.RandomSeed, f.Name),
	}
}

// phase runs fn under a named timer slot unless an earlier pass already
// failed the function.
func (t *Target) phase(tm *observ.Timer, name string, fn func()) {
	if t.f.HasError() {
		return
	}
	idx := tm.Begin(name)
	fn()
	tm.End(idx, "")
	if tlog.If("dump") {
		tlog.Printw("pass finished", "func", t.f.Name, "pass", name)
		tlog.Printw("dump", "ir", ir.Dump(t.f))
	}
}

// TranslateO2 runs the optimizing pipeline over the function. Passes after a
// failing one are skipped; the caller inspects f.Err.
func (t *Target) TranslateO2(tm *observ.Timer) {
	t.phase(tm, "phi-lower", func() {
		if t.cfg.PhiEdgeSplit {
			ir.SplitCriticalEdges(t.f)
		}
		ir.PlacePhiLoads(t.f)
		ir.PlacePhiStores(t.f)
		ir.DeletePhis(t.f)
	})
	t.phase(tm, "address-opt", t.doAddressOpt)
	t.phase(tm, "arg-lower", t.lowerArguments)
	t.phase(tm, "gen-code", func() {
		t.f.RenumberInstrs()
		liveness.EliminateDead(t.f)
		t.genCode()
		t.f.RenumberInstrs()
	})
	t.phase(tm, "liveness", func() {
		liveness.Intervals(t.f)
	})
	t.phase(tm, "regalloc", func() {
		t.regAlloc(regalloc.KindGlobal)
	})
	t.phase(tm, "gen-frame", func() {
		t.addProlog()
		t.addEpilogs()
	})
	t.phase(tm, "branch-opt", t.optimizeBranches)
	if t.cfg.NopInsertion {
		t.phase(tm, "nop-insert", t.insertNops)
	}
}

// TranslateOm1 runs the fast pipeline: no liveness-driven optimization, a
// register allocator that only touches infinite-weight temporaries, and no
// branch cleanup.
func (t *Target) TranslateOm1(tm *observ.Timer) {
	t.phase(tm, "phi-lower", func() {
		if t.cfg.PhiEdgeSplit {
			ir.SplitCriticalEdges(t.f)
		}
		ir.PlacePhiLoads(t.f)
		ir.PlacePhiStores(t.f)
		ir.DeletePhis(t.f)
	})
	t.phase(tm, "arg-lower", t.lowerArguments)
	t.phase(tm, "gen-code", func() {
		t.genCode()
		t.f.RenumberInstrs()
	})
	t.phase(tm, "liveness", func() {
		liveness.Intervals(t.f)
	})
	t.phase(tm, "regalloc", func() {
		t.regAlloc(regalloc.KindInfOnly)
	})
	t.phase(tm, "gen-frame", func() {
		t.addProlog()
		t.addEpilogs()
	})
	if t.cfg.NopInsertion {
		t.phase(tm, "nop-insert", t.insertNops)
	}
}

// doAddressOpt folds address arithmetic into memory operands. The current
// lowering forms memory operands during legalization instead, so this pass
// only exists as the scheduling point.
func (t *Target) doAddressOpt() {}

// genCode walks every block and replaces each portable instruction with its
// machine sequence. Lowered instructions are inserted before the original,
// which is then marked deleted.
func (t *Target) genCode() {
	for _, b := range t.f.Blocks {
		t.block = b
		for i := 0; i < len(b.Instrs); i++ {
			in := b.Instrs[i]
			if in.Deleted() {
				continue
			}
			if t.isMachineInstr(in) {
				continue
			}
			t.cur = i
			before := len(b.Instrs)
			t.lowerInstr(in)
			in.SetDeleted()
			// Skip past the instructions just inserted.
			i += len(b.Instrs) - before
		}
	}
	t.block = nil
}

// isMachineInstr reports whether in was already produced by lowering (for
// example by argument lowering) and must not be lowered again.
func (t *Target) isMachineInstr(in ir.Instr) bool {
	switch in.(type) {
	case *DataOp, *Mla, *Umull, *Mov, *Mvn, *Movw, *Movt, *Cmp, *Sxt, *Uxt,
		*Ldr, *Str, *Push, *Pop, *Br, *Call, *Ret, *BundleLock, *BundleUnlock, *Nop,
		*ir.FakeDef, *ir.FakeUse, *ir.FakeKill:
		return true
	}
	return false
}

// insert places in at the lowering cursor and advances it.
func (t *Target) insert(in ir.Instr) {
	t.block.InsertAt(t.cur, in)
	t.cur++
}

// unimplemented records an unsupported construct. Under SkipUnimplemented the
// destination still gets a definition so downstream passes stay consistent.
func (t *Target) unimplemented(in ir.Instr, what string) {
	if t.cfg.SkipUnimplemented {
		if d := in.Dest(); d != nil {
			t.insert(ir.NewFakeDef(d))
			if d.Lo != nil {
				t.insert(ir.NewFakeDef(d.Lo))
				t.insert(ir.NewFakeDef(d.Hi))
			}
		}
		return
	}
	t.f.SetErrorf("unimplemented lowering: %s", what)
}

// makeReg creates a register-class temporary of type ty. With reg >= 0 the
// temporary is precolored.
func (t *Target) makeReg(ty ir.Type, reg int32) *ir.Variable {
	if ty == ir.I64 {
		panic("arm32: 64-bit values live in register pairs, not a single temporary")
	}
	v := t.f.NewVariable(ty, "")
	if reg == NoRegister {
		v.MustHaveReg = true
	} else {
		v.RegNum = reg
	}
	return v
}

// NoRegister aliases the portable sentinel for an unassigned register.
const NoRegister = ir.NoRegister

// getPhysicalRegister returns the canonical variable for a physical
// register. SP and LR sit outside allocation: they become implicit arguments
// excluded from liveness.
func (t *Target) getPhysicalRegister(reg int32, ty ir.Type) *ir.Variable {
	if v := t.physRegs[reg]; v != nil {
		return v
	}
	v := t.f.NewVariable(ty, RegName(reg))
	v.RegNum = reg
	if reg == RegSP || reg == RegLR || reg == RegPC {
		v.IgnoreLiveness = true
		t.f.AddImplicitArg(v)
	}
	t.physRegs[reg] = v
	return v
}

func (t *Target) spReg() *ir.Variable { return t.getPhysicalRegister(RegSP, ir.I32) }
func (t *Target) lrReg() *ir.Variable { return t.getPhysicalRegister(RegLR, ir.I32) }

// regAlloc runs linear-scan allocation and records register usage for frame
// construction.
func (t *Target) regAlloc(kind regalloc.Kind) {
	opts := regalloc.Opts{
		Kind:    kind,
		GPRs:    AllocatableGPRs(t.usesFramePointer),
		Scratch: uint32(RegisterSet(RegSetCallerSave, RegSetNone)),
	}
	regalloc.Run(t.f, opts)
	for _, v := range t.f.Vars {
		if v.HasReg() && !v.IsArg {
			t.regsUsed = t.regsUsed.Add(v.RegNum)
		}
	}
}

// emit helpers. Each inserts one instruction at the cursor.

func (t *Target) dataOp(op Op, dest, src0 *ir.Variable, src1 ir.Operand) {
	t.insert(newDataOp(op, CondAL, dest, src0, src1))
}

func (t *Target) dataOpPred(op Op, pred Cond, dest, src0 *ir.Variable, src1 ir.Operand) {
	t.insert(newDataOp(op, pred, dest, src0, src1))
}

func (t *Target) add(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpAdd, dest, a, b) }
func (t *Target) adds(dest, a *ir.Variable, b ir.Operand) { t.dataOp(OpAdds, dest, a, b) }
func (t *Target) adc(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpAdc, dest, a, b) }
func (t *Target) sub(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpSub, dest, a, b) }
func (t *Target) subs(dest, a *ir.Variable, b ir.Operand) { t.dataOp(OpSubs, dest, a, b) }
func (t *Target) sbc(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpSbc, dest, a, b) }
func (t *Target) sbcs(dest, a *ir.Variable, b ir.Operand) { t.dataOp(OpSbcs, dest, a, b) }
func (t *Target) rsb(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpRsb, dest, a, b) }
func (t *Target) and(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpAnd, dest, a, b) }
func (t *Target) orr(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpOrr, dest, a, b) }
func (t *Target) eor(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpEor, dest, a, b) }
func (t *Target) bic(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpBic, dest, a, b) }
func (t *Target) lsl(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpLsl, dest, a, b) }
func (t *Target) lsr(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpLsr, dest, a, b) }
func (t *Target) asr(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpAsr, dest, a, b) }
func (t *Target) mul(dest, a *ir.Variable, b ir.Operand)  { t.dataOp(OpMul, dest, a, b) }

func (t *Target) mov(dest *ir.Variable, src ir.Operand) {
	t.insert(newMov(CondAL, dest, src))
}

func (t *Target) movPred(pred Cond, dest *ir.Variable, src ir.Operand) {
	t.insert(newMov(pred, dest, src))
}

// movNonKillable emits a predicated overwrite that does not end the previous
// definition's live range.
func (t *Target) movNonKillable(pred Cond, dest *ir.Variable, src ir.Operand) {
	m := newMov(pred, dest, src)
	m.nonKillable = true
	t.insert(m)
}

func (t *Target) mvn(dest *ir.Variable, src ir.Operand)  { t.insert(newMvn(dest, src)) }
func (t *Target) movw(dest *ir.Variable, src ir.Operand) { t.insert(newMovw(dest, src)) }
func (t *Target) movt(dest *ir.Variable, src ir.Operand) { t.insert(newMovt(dest, src)) }

func (t *Target) cmp(a *ir.Variable, b ir.Operand) { t.insert(newCmp(CondAL, a, b)) }

func (t *Target) cmpPred(pred Cond, a *ir.Variable, b ir.Operand) {
	t.insert(newCmp(pred, a, b))
}

func (t *Target) sxt(dest, src *ir.Variable) { t.insert(newSxt(dest, src)) }
func (t *Target) uxt(dest, src *ir.Variable) { t.insert(newUxt(dest, src)) }

func (t *Target) ldr(dest *ir.Variable, mem *Mem)  { t.insert(newLdr(dest, mem)) }
func (t *Target) str(value *ir.Variable, mem *Mem) { t.insert(newStr(value, mem)) }

func (t *Target) mla(dest, a, b, acc *ir.Variable) { t.insert(newMla(dest, a, b, acc)) }

func (t *Target) umull(destLo, destHi, a, b *ir.Variable) {
	t.insert(newUmull(destLo, destHi, a, b))
	// The second destination needs its own defining instruction for
	// liveness and allocation.
	t.insert(ir.NewFakeDef(destHi))
}

func (t *Target) br(target *ir.Block) { t.insert(newBr(target)) }

func (t *Target) condBr(pred Cond, ifTrue, ifFalse *ir.Block) {
	t.insert(newCondBr(pred, ifTrue, ifFalse))
}

func (t *Target) call(dest *ir.Variable, target ir.Operand) {
	t.insert(newCall(dest, target))
}

func (t *Target) ret(values ...*ir.Variable) {
	t.insert(newRet(t.lrReg(), values...))
}

func (t *Target) fakeDef(v *ir.Variable)   { t.insert(ir.NewFakeDef(v)) }
func (t *Target) fakeUse(v *ir.Variable)   { t.insert(ir.NewFakeUse(v)) }
func (t *Target) fakeKill(linked ir.Instr) { t.insert(ir.NewFakeKill(linked)) }
func (t *Target) push(regs []*ir.Variable) { t.insert(newPush(regs)) }
func (t *Target) pop(regs []*ir.Variable)  { t.insert(newPop(regs)) }
func (t *Target) bundled(lock bool) {
	if lock {
		t.insert(newBundleLock())
	} else {
		t.insert(newBundleUnlock())
	}
}
