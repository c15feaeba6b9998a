package arm32

import (
	"fmt"
	"strings"

	"anvil/internal/ir"
)

// Op is a data-processing mnemonic for three-address instructions.
type Op uint8

const (
	// OpAdd is add.
	OpAdd Op = iota
	// OpAdds is add, setting flags.
	OpAdds
	// OpAdc is add with carry.
	OpAdc
	// OpSub is subtract.
	OpSub
	// OpSubs is subtract, setting flags.
	OpSubs
	// OpSbc is subtract with carry.
	OpSbc
	// OpSbcs is subtract with carry, setting flags.
	OpSbcs
	// OpRsb is reverse subtract.
	OpRsb
	// OpAnd is bitwise and.
	OpAnd
	// OpOrr is bitwise or.
	OpOrr
	// OpEor is bitwise exclusive or.
	OpEor
	// OpBic is bit clear (and with complement).
	OpBic
	// OpLsl is logical shift left.
	OpLsl
	// OpLsr is logical shift right.
	OpLsr
	// OpAsr is arithmetic shift right.
	OpAsr
	// OpMul is 32x32->32 multiply.
	OpMul
)

var opNames = [...]string{
	OpAdd: "add", OpAdds: "adds", OpAdc: "adc",
	OpSub: "sub", OpSubs: "subs", OpSbc: "sbc", OpSbcs: "sbcs",
	OpRsb: "rsb", OpAnd: "and", OpOrr: "orr", OpEor: "eor", OpBic: "bic",
	OpLsl: "lsl", OpLsr: "lsr", OpAsr: "asr", OpMul: "mul",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op?"
}

// DataOp is a three-address data-processing instruction: dest = src0 op src1,
// src1 being a register or flexible operand.
type DataOp struct {
	ir.InstrBase
	Op   Op
	Pred Cond
}

func newDataOp(op Op, pred Cond, dest *ir.Variable, src0 *ir.Variable, src1 ir.Operand) *DataOp {
	return &DataOp{InstrBase: ir.MakeBase(dest, src0, src1), Op: op, Pred: pred}
}

// PartialDef: a predicated data op conditionally overwrites its destination.
func (in *DataOp) PartialDef() bool { return in.Pred != CondAL }

func (in *DataOp) String() string {
	return fmt.Sprintf("%s%s %s, %s, %s", in.Op, in.Pred.Suffix(), in.Dest(),
		ir.OperandString(in.Srcs()[0]), ir.OperandString(in.Srcs()[1]))
}

// Mla is multiply-accumulate: dest = src0*src1 + acc.
type Mla struct {
	ir.InstrBase
}

func newMla(dest, src0, src1, acc *ir.Variable) *Mla {
	return &Mla{InstrBase: ir.MakeBase(dest, src0, src1, acc)}
}

func (in *Mla) String() string {
	s := in.Srcs()
	return fmt.Sprintf("mla %s, %s, %s, %s", in.Dest(),
		ir.OperandString(s[0]), ir.OperandString(s[1]), ir.OperandString(s[2]))
}

// Umull is an unsigned 32x32->64 multiply writing a register pair. DestHi is
// the second destination; the emitter pairs it with a FakeDef so liveness
// sees both definitions.
type Umull struct {
	ir.InstrBase
	DestHi *ir.Variable
}

func newUmull(destLo, destHi, src0, src1 *ir.Variable) *Umull {
	return &Umull{InstrBase: ir.MakeBase(destLo, src0, src1), DestHi: destHi}
}

func (in *Umull) String() string {
	s := in.Srcs()
	return fmt.Sprintf("umull %s, %s, %s, %s", in.Dest(), in.DestHi,
		ir.OperandString(s[0]), ir.OperandString(s[1]))
}

// Mov copies a register, flexible operand, or encodable immediate into a
// register. A non-killable mov is a predicated overwrite that leaves the
// prior definition live.
type Mov struct {
	ir.InstrBase
	Pred        Cond
	nonKillable bool
}

func newMov(pred Cond, dest *ir.Variable, src ir.Operand) *Mov {
	return &Mov{InstrBase: ir.MakeBase(dest, src), Pred: pred}
}

// PartialDef reports the destination is conditionally overwritten rather
// than freshly defined. Consulted by liveness.
func (in *Mov) PartialDef() bool { return in.nonKillable }

func (in *Mov) String() string {
	return fmt.Sprintf("mov%s %s, %s", in.Pred.Suffix(), in.Dest(), in.srcString0())
}

func (in *Mov) srcString0() string { return ir.OperandString(in.Srcs()[0]) }

// Mvn writes the bitwise complement of a flexible operand.
type Mvn struct {
	ir.InstrBase
	Pred Cond
}

func newMvn(dest *ir.Variable, src ir.Operand) *Mvn {
	return &Mvn{InstrBase: ir.MakeBase(dest, src), Pred: CondAL}
}

func (in *Mvn) String() string {
	return fmt.Sprintf("mvn%s %s, %s", in.Pred.Suffix(), in.Dest(), ir.OperandString(in.Srcs()[0]))
}

// Movw loads the low halfword of a constant, zeroing the high half.
type Movw struct {
	ir.InstrBase
	Pred Cond
}

func newMovw(dest *ir.Variable, src ir.Operand) *Movw {
	return &Movw{InstrBase: ir.MakeBase(dest, src), Pred: CondAL}
}

func (in *Movw) String() string {
	src := in.Srcs()[0]
	if reloc, ok := src.(*ir.ConstReloc); ok {
		return fmt.Sprintf("movw%s %s, #:lower16:%s", in.Pred.Suffix(), in.Dest(), reloc.Name)
	}
	return fmt.Sprintf("movw%s %s, #%s", in.Pred.Suffix(), in.Dest(), ir.OperandString(src))
}

// Movt loads the high halfword of a constant, keeping the low half.
type Movt struct {
	ir.InstrBase
	Pred Cond
}

func newMovt(dest *ir.Variable, src ir.Operand) *Movt {
	return &Movt{InstrBase: ir.MakeBase(dest, src), Pred: CondAL}
}

// PartialDef: movt merges into an existing low halfword.
func (in *Movt) PartialDef() bool { return true }

func (in *Movt) String() string {
	src := in.Srcs()[0]
	if reloc, ok := src.(*ir.ConstReloc); ok {
		return fmt.Sprintf("movt%s %s, #:upper16:%s", in.Pred.Suffix(), in.Dest(), reloc.Name)
	}
	return fmt.Sprintf("movt%s %s, #%s", in.Pred.Suffix(), in.Dest(), ir.OperandString(src))
}

// Cmp compares a register against a register or flexible operand, setting
// flags.
type Cmp struct {
	ir.InstrBase
	Pred Cond
}

func newCmp(pred Cond, src0 *ir.Variable, src1 ir.Operand) *Cmp {
	return &Cmp{InstrBase: ir.MakeBase(nil, src0, src1), Pred: pred}
}

func (in *Cmp) String() string {
	s := in.Srcs()
	return fmt.Sprintf("cmp%s %s, %s", in.Pred.Suffix(),
		ir.OperandString(s[0]), ir.OperandString(s[1]))
}

// Sxt sign-extends a narrow register into a full register.
type Sxt struct {
	ir.InstrBase
}

func newSxt(dest, src *ir.Variable) *Sxt {
	return &Sxt{InstrBase: ir.MakeBase(dest, src)}
}

func (in *Sxt) String() string {
	mn := "sxtb"
	if in.Srcs()[0].Type() == ir.I16 {
		mn = "sxth"
	}
	return fmt.Sprintf("%s %s, %s", mn, in.Dest(), ir.OperandString(in.Srcs()[0]))
}

// Uxt zero-extends a narrow register into a full register.
type Uxt struct {
	ir.InstrBase
}

func newUxt(dest, src *ir.Variable) *Uxt {
	return &Uxt{InstrBase: ir.MakeBase(dest, src)}
}

func (in *Uxt) String() string {
	mn := "uxtb"
	if in.Srcs()[0].Type() == ir.I16 {
		mn = "uxth"
	}
	return fmt.Sprintf("%s %s, %s", mn, in.Dest(), ir.OperandString(in.Srcs()[0]))
}

// Ldr loads from memory.
type Ldr struct {
	ir.InstrBase
	Pred Cond
}

func newLdr(dest *ir.Variable, mem *Mem) *Ldr {
	return &Ldr{InstrBase: ir.MakeBase(dest, mem), Pred: CondAL}
}

func (in *Ldr) String() string {
	mn := "ldr"
	switch in.Dest().Ty {
	case ir.I1, ir.I8:
		mn = "ldrb"
	case ir.I16:
		mn = "ldrh"
	}
	return fmt.Sprintf("%s%s %s, %s", mn, in.Pred.Suffix(), in.Dest(), ir.OperandString(in.Srcs()[0]))
}

// Str stores to memory.
type Str struct {
	ir.InstrBase
	Pred Cond
}

func newStr(value *ir.Variable, mem *Mem) *Str {
	return &Str{InstrBase: ir.MakeBase(nil, value, mem), Pred: CondAL}
}

func (in *Str) String() string {
	mn := "str"
	switch in.Srcs()[0].Type() {
	case ir.I1, ir.I8:
		mn = "strb"
	case ir.I16:
		mn = "strh"
	}
	return fmt.Sprintf("%s%s %s, %s", mn, in.Pred.Suffix(),
		ir.OperandString(in.Srcs()[0]), ir.OperandString(in.Srcs()[1]))
}

// Push saves a register list to the stack.
type Push struct {
	ir.InstrBase
}

func newPush(regs []*ir.Variable) *Push {
	srcs := make([]ir.Operand, len(regs))
	for i, r := range regs {
		srcs[i] = r
	}
	return &Push{InstrBase: ir.MakeBase(nil, srcs...)}
}

func (in *Push) String() string { return "push " + regListString(in.Srcs()) }

// Pop restores a register list from the stack, in the same ascending order
// used to push it.
type Pop struct {
	ir.InstrBase
	Regs []*ir.Variable
}

func newPop(regs []*ir.Variable) *Pop {
	return &Pop{InstrBase: ir.MakeBase(nil), Regs: regs}
}

func (in *Pop) String() string {
	ops := make([]ir.Operand, len(in.Regs))
	for i, r := range in.Regs {
		ops[i] = r
	}
	return "pop " + regListString(ops)
}

func regListString(regs []ir.Operand) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = ir.OperandString(r)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Br is a branch to a block, conditional when Pred is not CondAL. A
// conditional branch falls through to False.
type Br struct {
	ir.InstrBase
	Pred        Cond
	True, False *ir.Block
}

func newBr(target *ir.Block) *Br {
	return &Br{InstrBase: ir.MakeBase(nil), Pred: CondAL, True: target}
}

func newCondBr(pred Cond, ifTrue, ifFalse *ir.Block) *Br {
	return &Br{InstrBase: ir.MakeBase(nil), Pred: pred, True: ifTrue, False: ifFalse}
}

// Targets returns the successor blocks.
func (in *Br) Targets() []*ir.Block {
	if in.False == nil {
		return []*ir.Block{in.True}
	}
	return []*ir.Block{in.True, in.False}
}

// TerminatesBlock marks Br as a block terminator.
func (in *Br) TerminatesBlock() bool { return true }

// OptimizeBranch deletes a branch that only transfers to the next block, or
// flips a conditional branch whose taken target is the next block. Returns
// true when something changed.
func (in *Br) OptimizeBranch(next *ir.Block) bool {
	if in.False == nil {
		if in.True == next {
			in.SetDeleted()
			return true
		}
		return false
	}
	if in.False == next {
		// Fallthrough already matches; keep only the taken side.
		in.False = nil
		return true
	}
	if in.True == next {
		in.Pred = in.Pred.Invert()
		in.True = in.False
		in.False = nil
		return true
	}
	return false
}

func (in *Br) String() string {
	if in.False == nil {
		return fmt.Sprintf("b%s %s", in.Pred.Suffix(), in.True.Name)
	}
	return fmt.Sprintf("b%s %s ; b %s", in.Pred.Suffix(), in.True.Name, in.False.Name)
}

// Call branches with link to a direct symbol or a register target.
type Call struct {
	ir.InstrBase
}

func newCall(dest *ir.Variable, target ir.Operand) *Call {
	return &Call{InstrBase: ir.MakeBase(dest, target)}
}

func (in *Call) String() string {
	target := in.Srcs()[0]
	if reloc, ok := target.(*ir.ConstReloc); ok {
		return "bl " + reloc.Name
	}
	return "blx " + ir.OperandString(target)
}

// Ret returns through the link register. Srcs keep lr and the return value
// registers live up to the return.
type Ret struct {
	ir.InstrBase
}

func newRet(lr *ir.Variable, values ...*ir.Variable) *Ret {
	srcs := []ir.Operand{lr}
	for _, v := range values {
		if v != nil {
			srcs = append(srcs, v)
		}
	}
	return &Ret{InstrBase: ir.MakeBase(nil, srcs...)}
}

// TerminatesBlock marks Ret as a block terminator.
func (in *Ret) TerminatesBlock() bool { return true }

func (in *Ret) String() string { return "bx " + ir.OperandString(in.Srcs()[0]) }

// BundleLock begins an atomic instruction bundle (sandboxed return
// sequences).
type BundleLock struct {
	ir.InstrBase
}

func newBundleLock() *BundleLock { return &BundleLock{InstrBase: ir.MakeBase(nil)} }

func (in *BundleLock) String() string { return ".bundle_lock" }

// BundleUnlock ends an atomic instruction bundle.
type BundleUnlock struct {
	ir.InstrBase
}

func newBundleUnlock() *BundleUnlock { return &BundleUnlock{InstrBase: ir.MakeBase(nil)} }

func (in *BundleUnlock) String() string { return ".bundle_unlock" }

// Nop is a padding instruction.
type Nop struct {
	ir.InstrBase
}

func newNop() *Nop { return &Nop{InstrBase: ir.MakeBase(nil)} }

func (in *Nop) String() string { return "nop" }

// Invert returns the opposite condition. AL has no inverse and panics;
// callers only invert comparison results.
func (c Cond) Invert() Cond {
	switch c {
	case CondEQ:
		return CondNE
	case CondNE:
		return CondEQ
	case CondCS:
		return CondCC
	case CondCC:
		return CondCS
	case CondMI:
		return CondPL
	case CondPL:
		return CondMI
	case CondVS:
		return CondVC
	case CondVC:
		return CondVS
	case CondHI:
		return CondLS
	case CondLS:
		return CondHI
	case CondGE:
		return CondLT
	case CondLT:
		return CondGE
	case CondGT:
		return CondLE
	case CondLE:
		return CondGT
	default:
		panic("arm32: cannot invert condition " + c.Suffix())
	}
}
