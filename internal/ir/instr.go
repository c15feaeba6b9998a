package ir

import (
	"fmt"
	"strings"
)

// Instr is one instruction in a block's instruction list. Both portable IR
// instructions (this package) and lowered target instructions (backend
// packages) implement it by embedding InstrBase. Instructions are immutable
// once created, except for deletion marking and renumbering.
type Instr interface {
	// Dest returns the destination variable, or nil.
	Dest() *Variable
	// Srcs returns the ordered source operands.
	Srcs() []Operand
	// Number returns the instruction number assigned by renumbering.
	Number() int32
	// SetNumber assigns the instruction number.
	SetNumber(n int32)
	// Deleted reports whether the instruction was logically removed.
	Deleted() bool
	// SetDeleted logically removes the instruction. It stays in the list
	// for iterator stability until the next compaction.
	SetDeleted()
	// String renders the instruction for dumps.
	String() string
}

// InstrBase carries the state shared by every instruction kind.
type InstrBase struct {
	num     int32
	dest    *Variable
	srcs    []Operand
	deleted bool
}

// MakeBase builds an InstrBase for embedding.
func MakeBase(dest *Variable, srcs ...Operand) InstrBase {
	return InstrBase{num: -1, dest: dest, srcs: srcs}
}

func (b *InstrBase) Dest() *Variable   { return b.dest }
func (b *InstrBase) Srcs() []Operand   { return b.srcs }
func (b *InstrBase) Number() int32     { return b.num }
func (b *InstrBase) SetNumber(n int32) { b.num = n }
func (b *InstrBase) Deleted() bool     { return b.deleted }
func (b *InstrBase) SetDeleted()       { b.deleted = true }

func (b *InstrBase) srcString() string {
	parts := make([]string, len(b.srcs))
	for i, s := range b.srcs {
		parts[i] = OperandString(s)
	}
	return strings.Join(parts, ", ")
}

// OperandString renders an operand for dumps.
func OperandString(op Operand) string {
	switch o := op.(type) {
	case *Variable:
		return o.String()
	case *ConstI32:
		return fmt.Sprintf("%d", o.Value)
	case *ConstI64:
		return fmt.Sprintf("%d", o.Value)
	case *ConstReloc:
		if o.Offset != 0 {
			return fmt.Sprintf("@%s+%d", o.Name, o.Offset)
		}
		return "@" + o.Name
	case *ConstUndef:
		return "undef"
	case fmt.Stringer:
		return o.String()
	default:
		return fmt.Sprintf("operand?(%T)", op)
	}
}

// ArithOp enumerates arithmetic operators.
type ArithOp uint8

const (
	// ArithAdd is integer addition.
	ArithAdd ArithOp = iota
	// ArithAnd is bitwise and.
	ArithAnd
	// ArithOr is bitwise or.
	ArithOr
	// ArithXor is bitwise exclusive or.
	ArithXor
	// ArithSub is integer subtraction.
	ArithSub
	// ArithMul is integer multiplication (truncating).
	ArithMul
	// ArithShl is a left shift.
	ArithShl
	// ArithLshr is a logical (zero-filling) right shift.
	ArithLshr
	// ArithAshr is an arithmetic (sign-filling) right shift.
	ArithAshr
	// ArithUdiv is unsigned division.
	ArithUdiv
	// ArithSdiv is signed division.
	ArithSdiv
	// ArithUrem is the unsigned remainder.
	ArithUrem
	// ArithSrem is the signed remainder.
	ArithSrem
	// ArithFadd is floating-point addition.
	ArithFadd
	// ArithFsub is floating-point subtraction.
	ArithFsub
	// ArithFmul is floating-point multiplication.
	ArithFmul
	// ArithFdiv is floating-point division.
	ArithFdiv
	// ArithFrem is the floating-point remainder.
	ArithFrem

	// NumArithOps is the number of arithmetic operators.
	NumArithOps
)

var arithNames = [NumArithOps]string{
	ArithAdd: "add", ArithAnd: "and", ArithOr: "or", ArithXor: "xor",
	ArithSub: "sub", ArithMul: "mul", ArithShl: "shl", ArithLshr: "lshr",
	ArithAshr: "ashr", ArithUdiv: "udiv", ArithSdiv: "sdiv",
	ArithUrem: "urem", ArithSrem: "srem", ArithFadd: "fadd",
	ArithFsub: "fsub", ArithFmul: "fmul", ArithFdiv: "fdiv", ArithFrem: "frem",
}

func (op ArithOp) String() string {
	if int(op) < len(arithNames) {
		return arithNames[op]
	}
	return "arith?"
}

// Arith is a two-operand arithmetic instruction.
type Arith struct {
	InstrBase
	Op ArithOp
}

// NewArith builds dest = op a, b.
func NewArith(op ArithOp, dest *Variable, a, b Operand) *Arith {
	return &Arith{InstrBase: MakeBase(dest, a, b), Op: op}
}

func (in *Arith) String() string {
	return fmt.Sprintf("%s = %s %s %s", in.Dest(), in.Op, in.Dest().Ty, in.srcString())
}

// IcmpCond enumerates integer comparison kinds.
type IcmpCond uint8

const (
	// IcmpEq is equality.
	IcmpEq IcmpCond = iota
	// IcmpNe is inequality.
	IcmpNe
	// IcmpUgt is unsigned greater-than.
	IcmpUgt
	// IcmpUge is unsigned greater-or-equal.
	IcmpUge
	// IcmpUlt is unsigned less-than.
	IcmpUlt
	// IcmpUle is unsigned less-or-equal.
	IcmpUle
	// IcmpSgt is signed greater-than.
	IcmpSgt
	// IcmpSge is signed greater-or-equal.
	IcmpSge
	// IcmpSlt is signed less-than.
	IcmpSlt
	// IcmpSle is signed less-or-equal.
	IcmpSle

	// NumIcmpConds is the number of comparison kinds.
	NumIcmpConds
)

var icmpNames = [NumIcmpConds]string{
	IcmpEq: "eq", IcmpNe: "ne", IcmpUgt: "ugt", IcmpUge: "uge",
	IcmpUlt: "ult", IcmpUle: "ule", IcmpSgt: "sgt", IcmpSge: "sge",
	IcmpSlt: "slt", IcmpSle: "sle",
}

func (c IcmpCond) String() string {
	if int(c) < len(icmpNames) {
		return icmpNames[c]
	}
	return "icmp?"
}

// Icmp is an integer comparison producing an i1 destination.
type Icmp struct {
	InstrBase
	Cond IcmpCond
}

// NewIcmp builds dest = icmp cond a, b.
func NewIcmp(cond IcmpCond, dest *Variable, a, b Operand) *Icmp {
	return &Icmp{InstrBase: MakeBase(dest, a, b), Cond: cond}
}

func (in *Icmp) String() string {
	return fmt.Sprintf("%s = icmp %s %s", in.Dest(), in.Cond, in.srcString())
}

// CastOp enumerates cast kinds.
type CastOp uint8

const (
	// CastSext is sign extension.
	CastSext CastOp = iota
	// CastZext is zero extension.
	CastZext
	// CastTrunc is integer truncation.
	CastTrunc
	// CastFptrunc narrows a float.
	CastFptrunc
	// CastFpext widens a float.
	CastFpext
	// CastFptosi converts float to signed integer.
	CastFptosi
	// CastFptoui converts float to unsigned integer.
	CastFptoui
	// CastSitofp converts signed integer to float.
	CastSitofp
	// CastUitofp converts unsigned integer to float.
	CastUitofp
	// CastBitcast reinterprets bits at the same width.
	CastBitcast
)

var castNames = [...]string{
	CastSext: "sext", CastZext: "zext", CastTrunc: "trunc",
	CastFptrunc: "fptrunc", CastFpext: "fpext", CastFptosi: "fptosi",
	CastFptoui: "fptoui", CastSitofp: "sitofp", CastUitofp: "uitofp",
	CastBitcast: "bitcast",
}

func (c CastOp) String() string {
	if int(c) < len(castNames) {
		return castNames[c]
	}
	return "cast?"
}

// Cast converts a value between types.
type Cast struct {
	InstrBase
	Op CastOp
}

// NewCast builds dest = op src.
func NewCast(op CastOp, dest *Variable, src Operand) *Cast {
	return &Cast{InstrBase: MakeBase(dest, src), Op: op}
}

func (in *Cast) String() string {
	return fmt.Sprintf("%s = %s %s to %s", in.Dest(), in.Op, in.srcString(), in.Dest().Ty)
}

// Assign copies a value into a variable. It appears when rewriting arguments
// to home registers and when phi instructions are placed as copies.
type Assign struct {
	InstrBase
}

// NewAssign builds dest = src.
func NewAssign(dest *Variable, src Operand) *Assign {
	return &Assign{InstrBase: MakeBase(dest, src)}
}

func (in *Assign) String() string {
	return fmt.Sprintf("%s = %s", in.Dest(), in.srcString())
}

// Load reads a value of the destination's type from an address.
type Load struct {
	InstrBase
}

// NewLoad builds dest = load addr.
func NewLoad(dest *Variable, addr Operand) *Load {
	return &Load{InstrBase: MakeBase(dest, addr)}
}

func (in *Load) String() string {
	return fmt.Sprintf("%s = load %s, %s", in.Dest(), in.Dest().Ty, in.srcString())
}

// Store writes a value to an address. Srcs are (value, addr).
type Store struct {
	InstrBase
}

// NewStore builds store value, addr.
func NewStore(value, addr Operand) *Store {
	return &Store{InstrBase: MakeBase(nil, value, addr)}
}

func (in *Store) String() string {
	return "store " + in.srcString()
}

// Br transfers control to another block, optionally on a condition. An
// unconditional branch has a nil condition and only True set.
type Br struct {
	InstrBase
	True, False *Block
}

// NewBr builds an unconditional branch.
func NewBr(target *Block) *Br {
	return &Br{InstrBase: MakeBase(nil), True: target}
}

// NewCondBr builds a conditional branch on cond != 0.
func NewCondBr(cond Operand, ifTrue, ifFalse *Block) *Br {
	return &Br{InstrBase: MakeBase(nil, cond), True: ifTrue, False: ifFalse}
}

// Unconditional reports whether the branch has no condition.
func (in *Br) Unconditional() bool { return len(in.Srcs()) == 0 }

// Cond returns the branch condition, or nil for an unconditional branch.
func (in *Br) Cond() Operand {
	if in.Unconditional() {
		return nil
	}
	return in.Srcs()[0]
}

func (in *Br) String() string {
	if in.Unconditional() {
		return "br " + in.True.Name
	}
	return fmt.Sprintf("br %s, %s, %s", in.srcString(), in.True.Name, in.False.Name)
}

// Call invokes a function. Srcs are (target, args...).
type Call struct {
	InstrBase
	SideEffects bool
}

// NewCall builds dest = call target(args...). dest may be nil.
func NewCall(dest *Variable, target Operand, args ...Operand) *Call {
	srcs := append([]Operand{target}, args...)
	c := &Call{InstrBase: MakeBase(dest, srcs...)}
	c.SideEffects = true
	return c
}

// Target returns the call target operand.
func (in *Call) Target() Operand { return in.Srcs()[0] }

// Args returns the argument operands.
func (in *Call) Args() []Operand { return in.Srcs()[1:] }

func (in *Call) String() string {
	args := make([]string, len(in.Args()))
	for i, a := range in.Args() {
		args[i] = OperandString(a)
	}
	call := fmt.Sprintf("call %s(%s)", OperandString(in.Target()), strings.Join(args, ", "))
	if in.Dest() == nil {
		return call
	}
	return fmt.Sprintf("%s = %s", in.Dest(), call)
}

// IntrinsicID enumerates known intrinsics.
type IntrinsicID uint8

const (
	// IntrinsicMemcpy copies a byte range.
	IntrinsicMemcpy IntrinsicID = iota
	// IntrinsicMemmove copies a possibly overlapping byte range.
	IntrinsicMemmove
	// IntrinsicMemset fills a byte range.
	IntrinsicMemset
	// IntrinsicReadTP reads the thread pointer.
	IntrinsicReadTP
	// IntrinsicSetjmp saves a non-local jump context.
	IntrinsicSetjmp
	// IntrinsicLongjmp performs a non-local jump.
	IntrinsicLongjmp
	// IntrinsicAtomicCmpxchg is an atomic compare-exchange.
	IntrinsicAtomicCmpxchg
	// IntrinsicAtomicFence is an atomic fence.
	IntrinsicAtomicFence
	// IntrinsicAtomicFenceAll fences all loads and stores.
	IntrinsicAtomicFenceAll
	// IntrinsicAtomicIsLockFree queries lock-freedom.
	IntrinsicAtomicIsLockFree
	// IntrinsicAtomicLoad is an atomic load.
	IntrinsicAtomicLoad
	// IntrinsicAtomicRMW is an atomic read-modify-write.
	IntrinsicAtomicRMW
	// IntrinsicAtomicStore is an atomic store.
	IntrinsicAtomicStore
	// IntrinsicBswap reverses byte order.
	IntrinsicBswap
	// IntrinsicCtpop counts set bits.
	IntrinsicCtpop
	// IntrinsicCtlz counts leading zeros.
	IntrinsicCtlz
	// IntrinsicCttz counts trailing zeros.
	IntrinsicCttz
	// IntrinsicFabs is the floating-point absolute value.
	IntrinsicFabs
	// IntrinsicSqrt is the floating-point square root.
	IntrinsicSqrt
	// IntrinsicStacksave captures the stack pointer.
	IntrinsicStacksave
	// IntrinsicStackrestore restores a captured stack pointer.
	IntrinsicStackrestore
	// IntrinsicTrap aborts execution.
	IntrinsicTrap
)

var intrinsicNames = [...]string{
	IntrinsicMemcpy: "memcpy", IntrinsicMemmove: "memmove",
	IntrinsicMemset: "memset", IntrinsicReadTP: "read_tp",
	IntrinsicSetjmp: "setjmp", IntrinsicLongjmp: "longjmp",
	IntrinsicAtomicCmpxchg: "atomic_cmpxchg", IntrinsicAtomicFence: "atomic_fence",
	IntrinsicAtomicFenceAll: "atomic_fence_all",
	IntrinsicAtomicIsLockFree: "atomic_is_lock_free",
	IntrinsicAtomicLoad: "atomic_load", IntrinsicAtomicRMW: "atomic_rmw",
	IntrinsicAtomicStore: "atomic_store", IntrinsicBswap: "bswap",
	IntrinsicCtpop: "ctpop", IntrinsicCtlz: "ctlz", IntrinsicCttz: "cttz",
	IntrinsicFabs: "fabs", IntrinsicSqrt: "sqrt",
	IntrinsicStacksave: "stacksave", IntrinsicStackrestore: "stackrestore",
	IntrinsicTrap: "trap",
}

func (id IntrinsicID) String() string {
	if int(id) < len(intrinsicNames) {
		return intrinsicNames[id]
	}
	return "intrinsic?"
}

// IntrinsicCall invokes a known intrinsic.
type IntrinsicCall struct {
	InstrBase
	ID IntrinsicID
}

// NewIntrinsicCall builds dest = intrinsic(args...). dest may be nil.
func NewIntrinsicCall(id IntrinsicID, dest *Variable, args ...Operand) *IntrinsicCall {
	return &IntrinsicCall{InstrBase: MakeBase(dest, args...), ID: id}
}

func (in *IntrinsicCall) String() string {
	call := fmt.Sprintf("intrinsic %s(%s)", in.ID, in.srcString())
	if in.Dest() == nil {
		return call
	}
	return fmt.Sprintf("%s = %s", in.Dest(), call)
}

// Alloca reserves bytes in the dynamic-allocation area of the frame and
// yields their address.
type Alloca struct {
	InstrBase
	Align uint32
}

// NewAlloca builds dest = alloca size, align.
func NewAlloca(dest *Variable, size Operand, align uint32) *Alloca {
	return &Alloca{InstrBase: MakeBase(dest, size), Align: align}
}

func (in *Alloca) String() string {
	return fmt.Sprintf("%s = alloca %s, align %d", in.Dest(), in.srcString(), in.Align)
}

// Ret returns from the function, optionally with a value.
type Ret struct {
	InstrBase
}

// NewRet builds a return. value may be nil.
func NewRet(value Operand) *Ret {
	if value == nil {
		return &Ret{InstrBase: MakeBase(nil)}
	}
	return &Ret{InstrBase: MakeBase(nil, value)}
}

// Value returns the returned operand, or nil.
func (in *Ret) Value() Operand {
	if len(in.Srcs()) == 0 {
		return nil
	}
	return in.Srcs()[0]
}

func (in *Ret) String() string {
	if in.Value() == nil {
		return "ret"
	}
	return "ret " + in.srcString()
}

// Select chooses between two values on a condition. Srcs are (cond, t, f).
type Select struct {
	InstrBase
}

// NewSelect builds dest = select cond, t, f.
func NewSelect(dest *Variable, cond, ifTrue, ifFalse Operand) *Select {
	return &Select{InstrBase: MakeBase(dest, cond, ifTrue, ifFalse)}
}

func (in *Select) String() string {
	return fmt.Sprintf("%s = select %s", in.Dest(), in.srcString())
}

// SwitchCase pairs a case value with its target block.
type SwitchCase struct {
	Value  int64
	Target *Block
}

// Switch is a multi-way branch on an integer value.
type Switch struct {
	InstrBase
	Cases   []SwitchCase
	Default *Block
}

// NewSwitch builds a switch on value.
func NewSwitch(value Operand, def *Block, cases []SwitchCase) *Switch {
	return &Switch{InstrBase: MakeBase(nil, value), Cases: cases, Default: def}
}

func (in *Switch) String() string {
	return fmt.Sprintf("switch %s, default %s (%d cases)", in.srcString(), in.Default.Name, len(in.Cases))
}

// Unreachable marks control flow that must never execute.
type Unreachable struct {
	InstrBase
}

// NewUnreachable builds an unreachable marker.
func NewUnreachable() *Unreachable { return &Unreachable{InstrBase: MakeBase(nil)} }

func (in *Unreachable) String() string { return "unreachable" }

// Phi merges one value per predecessor block. Preds is aligned with Srcs.
// Phi instructions must be eliminated before target lowering.
type Phi struct {
	InstrBase
	Preds []*Block

	// temp carries the value from predecessor stores to the block-top load
	// during simple phi lowering.
	temp *Variable
}

// NewPhi builds dest = phi [src, pred]...
func NewPhi(dest *Variable, srcs []Operand, preds []*Block) *Phi {
	if len(srcs) != len(preds) {
		panic("ir: phi operand/predecessor length mismatch")
	}
	return &Phi{InstrBase: MakeBase(dest, srcs...), Preds: preds}
}

func (in *Phi) String() string {
	parts := make([]string, len(in.Preds))
	for i, p := range in.Preds {
		parts[i] = fmt.Sprintf("[%s, %s]", OperandString(in.Srcs()[i]), p.Name)
	}
	return fmt.Sprintf("%s = phi %s", in.Dest(), strings.Join(parts, ", "))
}

// FakeDef marks its destination as defined without emitting code. Used for
// the high half of call results and for destinations of skipped lowerings,
// so liveness never sees an undefined use.
type FakeDef struct {
	InstrBase
}

// NewFakeDef builds a synthetic definition of dest.
func NewFakeDef(dest *Variable) *FakeDef { return &FakeDef{InstrBase: MakeBase(dest)} }

func (in *FakeDef) String() string { return fmt.Sprintf("%s = fakedef", in.Dest()) }

// FakeUse marks its sources as used without emitting code. Keeps values
// (such as post-call stack adjustments through sp) from being treated as
// dead.
type FakeUse struct {
	InstrBase
}

// NewFakeUse builds a synthetic use.
func NewFakeUse(srcs ...Operand) *FakeUse { return &FakeUse{InstrBase: MakeBase(nil, srcs...)} }

func (in *FakeUse) String() string { return "fakeuse " + in.srcString() }

// FakeKill marks every caller-saved register as clobbered by the linked
// instruction (a call).
type FakeKill struct {
	InstrBase
	Linked Instr
}

// NewFakeKill builds a clobber-all marker tied to a call.
func NewFakeKill(linked Instr) *FakeKill {
	return &FakeKill{InstrBase: MakeBase(nil), Linked: linked}
}

func (in *FakeKill) String() string { return "fakekill scratch" }
