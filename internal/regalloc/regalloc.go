// Package regalloc assigns physical registers to variables by linear scan
// over their live intervals, and hands out stack slots for everything it
// rejects.
package regalloc

import (
	"fmt"
	"sort"

	"anvil/internal/ir"
)

// Kind selects how much the allocator takes on.
type Kind uint8

const (
	// KindGlobal allocates every candidate variable.
	KindGlobal Kind = iota
	// KindInfOnly allocates only variables that demand a register,
	// leaving the rest on the stack. Used by the fast pipeline.
	KindInfOnly
)

// Opts parameterizes a run. The target supplies its register geometry so
// this package stays architecture-agnostic.
type Opts struct {
	Kind Kind
	// GPRs is the allocatable register set in preference order.
	GPRs []int32
	// Scratch is the bitmask of caller-saved registers. A variable whose
	// interval crosses a call kill point cannot live in one.
	Scratch uint32
}

func isScratch(opts Opts, reg int32) bool { return opts.Scratch&(1<<uint(reg)) != 0 }

// Run performs allocation over f. Live intervals must be computed. A
// variable that demands a register but cannot get one is an invariant
// violation and panics.
func Run(f *ir.Func, opts Opts) {
	killPoints := collectKillPoints(f)

	// Precolored variables pin their register over their whole interval.
	blocked := map[int32][]ir.LiveRange{}
	var candidates []*ir.Variable
	for _, v := range f.Vars {
		if v.IgnoreLiveness || v.Lo != nil {
			continue
		}
		if v.HasReg() {
			blocked[v.RegNum] = append(blocked[v.RegNum], v.Range)
			continue
		}
		if v.IsArg {
			// A stack-passed argument lives at its caller-assigned slot;
			// the frame builder gives it an offset instead.
			continue
		}
		if !referenced(v) {
			continue
		}
		if opts.Kind == KindInfOnly && !v.MustHaveReg {
			continue
		}
		candidates = append(candidates, v)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Range.Start < candidates[j].Range.Start
	})

	var active []activeEntry

	for _, v := range candidates {
		// Retire intervals that ended before this one starts.
		kept := active[:0]
		for _, a := range active {
			if a.v.Range.End >= v.Range.Start {
				kept = append(kept, a)
			}
		}
		active = kept

		crossesKill := rangeCrossesKill(v.Range, killPoints)
		reg := int32(-1)
		for _, r := range opts.GPRs {
			if crossesKill && isScratch(opts, r) {
				continue
			}
			if regTaken(active, r, v.Range) {
				continue
			}
			if overlapsAny(blocked[r], v.Range) {
				continue
			}
			reg = r
			break
		}
		if reg < 0 {
			if v.MustHaveReg {
				panic(fmt.Sprintf("regalloc: no register for %s over [%d,%d] in %s",
					v, v.Range.Start, v.Range.End, f.Name))
			}
			continue
		}
		v.RegNum = reg
		active = append(active, activeEntry{v: v, reg: reg})
	}
}

type activeEntry struct {
	v   *ir.Variable
	reg int32
}

func regTaken(active []activeEntry, r int32, rng ir.LiveRange) bool {
	for _, a := range active {
		if a.reg == r && a.v.Range.Overlaps(rng) {
			return true
		}
	}
	return false
}

// referenced reports whether liveness saw the variable at all. Arguments
// are always live from entry.
func referenced(v *ir.Variable) bool {
	return v.IsArg || v.Range.Start != 0 || v.Range.End != 0
}

func overlapsAny(ranges []ir.LiveRange, r ir.LiveRange) bool {
	for _, b := range ranges {
		if b.Overlaps(r) {
			return true
		}
	}
	return false
}

// collectKillPoints gathers the instruction numbers where every scratch
// register dies: the position of each kill marker whose linked call
// survived lowering.
func collectKillPoints(f *ir.Func) []int32 {
	var points []int32
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Deleted() {
				continue
			}
			if fk, ok := in.(*ir.FakeKill); ok {
				if fk.Linked != nil && fk.Linked.Deleted() {
					continue
				}
				points = append(points, in.Number())
			}
		}
	}
	return points
}

func rangeCrossesKill(r ir.LiveRange, points []int32) bool {
	for _, p := range points {
		if r.Start < p && p < r.End {
			return true
		}
	}
	return false
}
