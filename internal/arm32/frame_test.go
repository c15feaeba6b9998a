package arm32

import (
	"testing"

	"anvil/internal/config"
	"anvil/internal/ir"
)

func TestLowerArgumentsRegisterHoming(t *testing.T) {
	f := ir.NewFunc("args", ir.Void)
	a := f.NewVariable(ir.I32, "a")
	b := f.NewVariable(ir.I64, "b")
	c := f.NewVariable(ir.I32, "c")
	f.AddArg(a)
	f.AddArg(b)
	f.AddArg(c)
	blk := f.NewBlock("entry")
	blk.Append(ir.NewRet(nil))

	tg := NewTarget(f, config.Default(), nil)
	tg.lowerArguments()

	if got := f.Args[0].RegNum; got != RegR0 {
		t.Errorf("arg a homed to %s, want r0", RegName(got))
	}
	// The pair starts on an even slot, so r1 is skipped.
	if lo, hi := f.Args[1].Lo.RegNum, f.Args[1].Hi.RegNum; lo != RegR2 || hi != RegR3 {
		t.Errorf("arg b homed to %s:%s, want r2:r3", RegName(lo), RegName(hi))
	}
	if f.Args[2].HasReg() {
		t.Errorf("arg c homed to %s, want stack", RegName(f.Args[2].RegNum))
	}
	if f.Args[2] != c {
		t.Error("stack argument was replaced")
	}

	// Each homed argument copies into its original at entry.
	assigns := 0
	for _, in := range blk.Instrs {
		if _, ok := in.(*ir.Assign); ok {
			assigns++
		}
	}
	if assigns != 2 {
		t.Errorf("found %d entry copies, want 2", assigns)
	}
}

func TestLowerArgumentsWideOverflow(t *testing.T) {
	f := ir.NewFunc("args", ir.Void)
	for _, name := range []string{"a", "b", "c"} {
		v := f.NewVariable(ir.I32, name)
		f.AddArg(v)
	}
	wide := f.NewVariable(ir.I64, "wide")
	f.AddArg(wide)
	blk := f.NewBlock("entry")
	blk.Append(ir.NewRet(nil))

	tg := NewTarget(f, config.Default(), nil)
	tg.lowerArguments()

	// Three slots used, the pair would need r4: it goes entirely to the
	// stack instead of splitting across register and memory.
	if f.Args[3] != wide || argIsRegisterHomed(f.Args[3]) {
		t.Error("wide argument should stay on the stack")
	}
	for i := 0; i < 3; i++ {
		if got := f.Args[i].RegNum; got != RegR0+int32(i) {
			t.Errorf("arg %d homed to %s, want r%d", i, RegName(got), i)
		}
	}
}

func TestFinishArgumentLoweringOffsets(t *testing.T) {
	f := ir.NewFunc("args", ir.Void)
	a := f.NewVariable(ir.I32, "a")
	b := f.NewVariable(ir.I64, "b")
	c := f.NewVariable(ir.I32, "c")
	f.AddArg(a)
	f.AddArg(b)
	f.AddArg(c)
	f.NewBlock("entry")

	tg := NewTarget(f, config.Default(), nil)
	const base = int32(8)
	tg.finishArgumentLowering(base)

	if got := a.StackOffset; got != base {
		t.Errorf("a at %d, want %d", got, base)
	}
	// The pair is 8-byte aligned in the argument area, low half first.
	if lo, hi := b.Lo.StackOffset, b.Hi.StackOffset; lo != base+8 || hi != base+12 {
		t.Errorf("b at %d:%d, want %d:%d", lo, hi, base+8, base+12)
	}
	if got := c.StackOffset; got != base+16 {
		t.Errorf("c at %d, want %d", got, base+16)
	}
	for _, v := range []*ir.Variable{a, b.Lo, b.Hi, c} {
		if !v.HasStackOffset {
			t.Errorf("%s has no stack offset", v.Name)
		}
	}
}

func TestAddPrologFramePointerArgOffsets(t *testing.T) {
	f := ir.NewFunc("frame", ir.Void)
	var args []*ir.Variable
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		v := f.NewVariable(ir.I32, name)
		f.AddArg(v)
		args = append(args, v)
	}
	blk := f.NewBlock("entry")
	spilled := f.NewVariable(ir.I32, "tmp")
	blk.Append(ir.NewAssign(spilled, ir.NewConstI32(7)))
	blk.Append(ir.NewRet(nil))
	spilled.Range = ir.LiveRange{Start: 1, End: 2}

	tg := NewTarget(f, config.Default(), nil)
	tg.lowerArguments()
	tg.usesFramePointer = true
	tg.addProlog()

	// fp is set right after the push, before the spill area is carved, so
	// the fifth argument sits past the preserved bytes alone and the spill
	// area must not shift it.
	e := args[4]
	if got := e.StackOffset; got != 4 {
		t.Errorf("stack arg at offset %d, want 4", got)
	}
	if !e.FrameBased {
		t.Error("stack arg not addressed off the frame pointer")
	}
	if got := e.String(); got != "[fp, #4]" {
		t.Errorf("stack arg renders as %q, want [fp, #4]", got)
	}
	if spilled.StackOffset >= 0 || !spilled.FrameBased {
		t.Errorf("spill slot at %d (frame-based %v), want a negative fp offset",
			spilled.StackOffset, spilled.FrameBased)
	}
}

func TestFinishArgumentLoweringStackPointerBase(t *testing.T) {
	f := ir.NewFunc("args", ir.Void)
	a := f.NewVariable(ir.I32, "a")
	f.AddArg(a)
	f.NewBlock("entry")

	tg := NewTarget(f, config.Default(), nil)
	tg.finishArgumentLowering(20)

	if a.FrameBased {
		t.Error("fixed frame argument addressed off the frame pointer")
	}
	if got := a.String(); got != "[sp, #20]" {
		t.Errorf("stack arg renders as %q, want [sp, #20]", got)
	}
}

func TestSavedRegistersOrdering(t *testing.T) {
	f := ir.NewFunc("frame", ir.Void)
	f.NewBlock("entry")

	tg := NewTarget(f, config.Default(), nil)
	tg.regsUsed = tg.regsUsed.Add(RegR4).Add(RegR0)
	tg.usesFramePointer = true
	tg.maybeLeafFunc = false

	got := tg.savedRegisters()
	want := []int32{RegR4, RegFP, RegLR}
	if len(got) != len(want) {
		t.Fatalf("saved %d registers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("saved[%d] = %s, want %s", i, RegName(got[i]), RegName(want[i]))
		}
	}
}

func TestSavedRegistersLeaf(t *testing.T) {
	f := ir.NewFunc("leaf", ir.Void)
	f.NewBlock("entry")

	tg := NewTarget(f, config.Default(), nil)
	tg.maybeLeafFunc = true
	if got := tg.savedRegisters(); len(got) != 0 {
		t.Errorf("leaf function saves %v, want none", got)
	}
}

func TestAllocatableGPRs(t *testing.T) {
	withFP := AllocatableGPRs(true)
	for _, r := range withFP {
		if r == RegFP {
			t.Error("frame pointer handed to the allocator while in use")
		}
		if r == RegIP {
			t.Error("ip handed to the allocator")
		}
	}
	noFP := AllocatableGPRs(false)
	if len(noFP) != len(withFP)+1 {
		t.Errorf("expected exactly the frame pointer to join the pool: %d vs %d", len(noFP), len(withFP))
	}
	// Scratch registers come first so preserved ones are only touched
	// under pressure.
	if withFP[0] != RegR0 {
		t.Errorf("preference order starts at %s, want r0", RegName(withFP[0]))
	}
}

func TestApplyAlignment(t *testing.T) {
	tests := []struct {
		size  int32
		align uint32
		want  int32
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{4, 8, 8},
	}
	for _, tc := range tests {
		if got := applyAlignment(tc.size, tc.align); got != tc.want {
			t.Errorf("applyAlignment(%d, %d) = %d, want %d", tc.size, tc.align, got, tc.want)
		}
	}
}
