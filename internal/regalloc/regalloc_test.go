package regalloc

import (
	"strings"
	"testing"

	"anvil/internal/ir"
)

// testOpts uses a tiny synthetic geometry: registers 0 and 1 are scratch,
// 4 and 5 preserved.
func testOpts(kind Kind) Opts {
	return Opts{
		Kind:    kind,
		GPRs:    []int32{0, 1, 4, 5},
		Scratch: 1<<0 | 1<<1,
	}
}

func newVar(f *ir.Func, name string, start, end int32) *ir.Variable {
	v := f.NewVariable(ir.I32, name)
	v.Range = ir.LiveRange{Start: start, End: end}
	return v
}

func TestRunLinearScan(t *testing.T) {
	f := ir.NewFunc("scan", ir.Void)
	a := newVar(f, "a", 1, 10)
	b := newVar(f, "b", 2, 6)
	c := newVar(f, "c", 11, 14)

	Run(f, testOpts(KindGlobal))

	if !a.HasReg() || !b.HasReg() || !c.HasReg() {
		t.Fatalf("unallocated variables: a=%v b=%v c=%v", a.RegNum, b.RegNum, c.RegNum)
	}
	if a.RegNum == b.RegNum {
		t.Errorf("overlapping intervals share register %d", a.RegNum)
	}
	// c starts after a ends, so the first preference register is free again.
	if c.RegNum != 0 {
		t.Errorf("c got register %d, want the retired register 0", c.RegNum)
	}
}

func TestRunPrecoloredBlocksRegister(t *testing.T) {
	f := ir.NewFunc("pin", ir.Void)
	pinned := newVar(f, "pinned", 0, 20)
	pinned.RegNum = 0
	v := newVar(f, "v", 5, 8)

	Run(f, testOpts(KindGlobal))

	if v.RegNum == 0 {
		t.Error("allocation reused a pinned register over its interval")
	}
	if !v.HasReg() {
		t.Error("v not allocated at all")
	}

	// Outside the pinned interval the register is available again.
	f2 := ir.NewFunc("pin2", ir.Void)
	p2 := newVar(f2, "pinned", 0, 4)
	p2.RegNum = 0
	w := newVar(f2, "w", 5, 8)
	Run(f2, testOpts(KindGlobal))
	if w.RegNum != 0 {
		t.Errorf("w got register %d, want 0 after the pin retires", w.RegNum)
	}
}

func TestRunKillPointBarsScratch(t *testing.T) {
	f := ir.NewFunc("kill", ir.Void)
	b := f.NewBlock("entry")
	x := f.NewVariable(ir.I32, "x")
	b.Append(ir.NewAssign(x, ir.NewConstI32(1)))
	b.Append(ir.NewFakeKill(nil))
	b.Append(ir.NewRet(nil))
	f.ComputeFlow()
	f.RenumberInstrs()

	kill := b.Instrs[1].Number()
	x.Range = ir.LiveRange{Start: kill - 1, End: kill + 1}

	Run(f, testOpts(KindGlobal))

	if !x.HasReg() {
		t.Fatal("x not allocated")
	}
	if x.RegNum == 0 || x.RegNum == 1 {
		t.Errorf("interval crossing a kill point landed in scratch register %d", x.RegNum)
	}
}

func TestRunKillPointIgnoredWhenCallDeleted(t *testing.T) {
	f := ir.NewFunc("kill", ir.Void)
	b := f.NewBlock("entry")
	x := f.NewVariable(ir.I32, "x")
	call := ir.NewAssign(x, ir.NewConstI32(1))
	b.Append(call)
	b.Append(ir.NewFakeKill(call))
	b.Append(ir.NewRet(nil))
	f.ComputeFlow()
	f.RenumberInstrs()

	kill := b.Instrs[1].Number()
	x.Range = ir.LiveRange{Start: kill - 1, End: kill + 1}
	call.SetDeleted()

	Run(f, testOpts(KindGlobal))
	if x.RegNum != 0 {
		t.Errorf("x got register %d, want scratch 0 once the linked call is gone", x.RegNum)
	}
}

func TestRunInfOnly(t *testing.T) {
	f := ir.NewFunc("inf", ir.Void)
	plain := newVar(f, "plain", 1, 5)
	forced := newVar(f, "forced", 2, 6)
	forced.MustHaveReg = true

	Run(f, testOpts(KindInfOnly))

	if plain.HasReg() {
		t.Error("plain variable allocated in demand-only mode")
	}
	if !forced.HasReg() {
		t.Error("demanding variable left unallocated")
	}
}

func TestRunSkipsArgsAndHalves(t *testing.T) {
	f := ir.NewFunc("skip", ir.Void)
	arg := newVar(f, "arg", 0, 9)
	arg.IsArg = true
	wide := f.NewVariable(ir.I64, "wide")
	wide.Range = ir.LiveRange{Start: 0, End: 9}

	Run(f, testOpts(KindGlobal))

	if arg.HasReg() {
		t.Error("stack-passed argument was allocated a register")
	}
	if wide.HasReg() {
		t.Error("the 64-bit parent was allocated instead of its halves")
	}
}

func TestRunStarvationPanics(t *testing.T) {
	f := ir.NewFunc("starve", ir.Void)
	pinned := newVar(f, "pinned", 0, 20)
	pinned.RegNum = 0
	forced := newVar(f, "forced", 5, 8)
	forced.MustHaveReg = true

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("no panic on register starvation")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "no register") {
			t.Errorf("unexpected panic value %v", r)
		}
	}()
	Run(f, Opts{Kind: KindGlobal, GPRs: []int32{0}})
}

func TestStackSlotOverlay(t *testing.T) {
	f := ir.NewFunc("slots", ir.Void)
	g := newVar(f, "g", 1, 9)
	l1 := newVar(f, "l1", 2, 3)
	l1.SingleBlock = true
	l1.LocalBlock = 0
	l2 := newVar(f, "l2", 6, 7)
	l2.SingleBlock = true
	l2.LocalBlock = 1

	p := StackSlotParams(f)
	if p.GlobalsSize != 4 {
		t.Errorf("GlobalsSize = %d, want 4", p.GlobalsSize)
	}
	// The two single-block areas overlay, so only the larger one counts.
	if p.LocalsMax != 4 {
		t.Errorf("LocalsMax = %d, want 4", p.LocalsMax)
	}
	if got := p.SpillAreaSize(); got != 8 {
		t.Errorf("SpillAreaSize = %d, want 8", got)
	}

	AssignStackSlots(p, p.SpillAreaSize(), false)
	if g.StackOffset != 4 {
		t.Errorf("global slot at sp+%d, want sp+4", g.StackOffset)
	}
	if l1.StackOffset != 0 || l2.StackOffset != 0 {
		t.Errorf("local slots at %d/%d, want the shared slot 0", l1.StackOffset, l2.StackOffset)
	}
}

func TestStackSlotFramePointerOffsets(t *testing.T) {
	f := ir.NewFunc("slots", ir.Void)
	g := newVar(f, "g", 1, 9)
	l := newVar(f, "l", 2, 3)
	l.SingleBlock = true
	l.LocalBlock = 0

	p := StackSlotParams(f)
	AssignStackSlots(p, p.SpillAreaSize(), true)
	if g.StackOffset != -4 {
		t.Errorf("global slot at fp%d, want fp-4", g.StackOffset)
	}
	if l.StackOffset != -8 {
		t.Errorf("local slot at fp%d, want fp-8", l.StackOffset)
	}
	for _, v := range []*ir.Variable{g, l} {
		if !v.FrameBased {
			t.Errorf("%s not addressed off the frame pointer", v.Name)
		}
	}
}

func TestStackSlotSkips(t *testing.T) {
	f := ir.NewFunc("slots", ir.Void)
	inReg := newVar(f, "r", 1, 5)
	inReg.RegNum = 3
	arg := newVar(f, "arg", 0, 5)
	arg.IsArg = true
	f.NewVariable(ir.I32, "dead")
	homed := newVar(f, "homed", 1, 5)
	homed.SetStackOffset(16)

	p := StackSlotParams(f)
	if len(p.Globals) != 0 || len(p.Locals) != 0 {
		t.Errorf("unexpected slots: %d globals, %d local areas", len(p.Globals), len(p.Locals))
	}
}
