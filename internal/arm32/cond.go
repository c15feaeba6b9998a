package arm32

import "anvil/internal/ir"

// Cond is an ARM condition code.
type Cond uint8

const (
	// CondEQ: equal (Z set).
	CondEQ Cond = iota
	// CondNE: not equal.
	CondNE
	// CondCS: carry set / unsigned higher or same.
	CondCS
	// CondCC: carry clear / unsigned lower.
	CondCC
	// CondMI: minus / negative.
	CondMI
	// CondPL: plus / positive or zero.
	CondPL
	// CondVS: overflow.
	CondVS
	// CondVC: no overflow.
	CondVC
	// CondHI: unsigned higher.
	CondHI
	// CondLS: unsigned lower or same.
	CondLS
	// CondGE: signed greater or equal.
	CondGE
	// CondLT: signed less than.
	CondLT
	// CondGT: signed greater than.
	CondGT
	// CondLE: signed less or equal.
	CondLE
	// CondAL: always.
	CondAL
)

var condSuffix = [...]string{
	CondEQ: "eq", CondNE: "ne", CondCS: "cs", CondCC: "cc",
	CondMI: "mi", CondPL: "pl", CondVS: "vs", CondVC: "vc",
	CondHI: "hi", CondLS: "ls", CondGE: "ge", CondLT: "lt",
	CondGT: "gt", CondLE: "le", CondAL: "",
}

// Suffix returns the assembly mnemonic suffix ("" for always).
func (c Cond) Suffix() string {
	if int(c) < len(condSuffix) {
		return condSuffix[c]
	}
	return "??"
}

// The icmp-to-condition tables. The 32-bit table maps each comparison kind
// directly onto the condition code of a single cmp. The 64-bit table selects
// between the signed shape (cmp lo; sbcs hi) and the unsigned shape
// (cmp hi; cmpeq lo), an operand swap for kinds whose natural encoding needs
// reversed order, and the two conditional-move codes that materialize the
// boolean result.
//
// Both tables are maps keyed by the shared ir.IcmpCond enumeration so that
// checkIcmpTables can verify the bijection at startup instead of trusting
// hand-maintained parallel array order.

var icmp32 = map[ir.IcmpCond]Cond{
	ir.IcmpEq:  CondEQ,
	ir.IcmpNe:  CondNE,
	ir.IcmpUgt: CondHI,
	ir.IcmpUge: CondCS,
	ir.IcmpUlt: CondCC,
	ir.IcmpUle: CondLS,
	ir.IcmpSgt: CondGT,
	ir.IcmpSge: CondGE,
	ir.IcmpSlt: CondLT,
	ir.IcmpSle: CondLE,
}

type icmp64Entry struct {
	Signed  bool
	Swapped bool
	C1, C2  Cond
}

var icmp64 = map[ir.IcmpCond]icmp64Entry{
	ir.IcmpEq:  {Signed: false, Swapped: false, C1: CondEQ, C2: CondNE},
	ir.IcmpNe:  {Signed: false, Swapped: false, C1: CondNE, C2: CondEQ},
	ir.IcmpUgt: {Signed: false, Swapped: false, C1: CondHI, C2: CondLS},
	ir.IcmpUge: {Signed: false, Swapped: false, C1: CondCS, C2: CondCC},
	ir.IcmpUlt: {Signed: false, Swapped: false, C1: CondCC, C2: CondCS},
	ir.IcmpUle: {Signed: false, Swapped: false, C1: CondLS, C2: CondHI},
	ir.IcmpSgt: {Signed: true, Swapped: true, C1: CondLT, C2: CondGE},
	ir.IcmpSge: {Signed: true, Swapped: false, C1: CondGE, C2: CondLT},
	ir.IcmpSlt: {Signed: true, Swapped: false, C1: CondLT, C2: CondGE},
	ir.IcmpSle: {Signed: true, Swapped: true, C1: CondGE, C2: CondLT},
}

func checkIcmpTables() {
	if len(icmp32) != int(ir.NumIcmpConds) {
		panic("arm32: icmp32 table out of sync with ir.IcmpCond")
	}
	if len(icmp64) != int(ir.NumIcmpConds) {
		panic("arm32: icmp64 table out of sync with ir.IcmpCond")
	}
	for c := ir.IcmpCond(0); c < ir.NumIcmpConds; c++ {
		if _, ok := icmp32[c]; !ok {
			panic("arm32: icmp32 table missing entry for " + c.String())
		}
		e, ok := icmp64[c]
		if !ok {
			panic("arm32: icmp64 table missing entry for " + c.String())
		}
		if e.C1 == e.C2 {
			panic("arm32: icmp64 entry for " + c.String() + " cannot set and clear on the same condition")
		}
	}
}

func init() { checkIcmpTables() }
