// Package liveness computes variable liveness over a lowered function, at
// two fidelity levels: block-level sets, and per-variable live intervals
// for the register allocator.
package liveness

import (
	"math/bits"

	"anvil/internal/ir"
)

// bitSet is a dense set of variable numbers.
type bitSet []uint64

func newBitSet(n int) bitSet { return make(bitSet, (n+63)/64) }

func (s bitSet) has(i int32) bool { return s[i/64]&(1<<uint(i%64)) != 0 }
func (s bitSet) set(i int32)      { s[i/64] |= 1 << uint(i%64) }
func (s bitSet) clear(i int32)    { s[i/64] &^= 1 << uint(i%64) }

// orInto merges o into s and reports whether s changed.
func (s bitSet) orInto(o bitSet) bool {
	changed := false
	for i, w := range o {
		if s[i]|w != s[i] {
			s[i] |= w
			changed = true
		}
	}
	return changed
}

func (s bitSet) copyFrom(o bitSet) { copy(s, o) }

// partialDef marks instructions that conditionally overwrite their
// destination: the prior value flows through, so the destination is also a
// use.
type partialDef interface {
	PartialDef() bool
}

// Info holds the per-block dataflow solution, indexed by block index.
type Info struct {
	LiveIn  []bitSet
	LiveOut []bitSet
}

// Basic solves backward liveness dataflow to a fixed point over the block
// graph. Variables flagged IgnoreLiveness never enter the sets.
func Basic(f *ir.Func) *Info {
	nvars := len(f.Vars)
	nblocks := len(f.Blocks)
	info := &Info{
		LiveIn:  make([]bitSet, nblocks),
		LiveOut: make([]bitSet, nblocks),
	}
	for i := range info.LiveIn {
		info.LiveIn[i] = newBitSet(nvars)
		info.LiveOut[i] = newBitSet(nvars)
	}

	// Iterate in reverse block order until no live-in set grows. The graph
	// is reducible in practice, so this converges in a few sweeps.
	for changed := true; changed; {
		changed = false
		for i := nblocks - 1; i >= 0; i-- {
			b := f.Blocks[i]
			out := info.LiveOut[i]
			for _, succ := range b.Succs {
				out.orInto(info.LiveIn[succ.Index])
			}
			in := newBitSet(nvars)
			in.copyFrom(out)
			applyBlock(b, in)
			if info.LiveIn[i].orInto(in) {
				changed = true
			}
		}
	}
	return info
}

// EliminateDead removes instructions computing values nothing reads. It
// solves block liveness, then sweeps each block backward from its live-out
// set, deleting pure instructions with a dead destination; a deleted
// instruction contributes no uses, so its feeders can die in the same
// sweep. Returns the number of instructions deleted.
func EliminateDead(f *ir.Func) int {
	info := Basic(f)
	deleted := 0
	for i, b := range f.Blocks {
		live := newBitSet(len(f.Vars))
		live.copyFrom(info.LiveOut[i])
		for j := len(b.Instrs) - 1; j >= 0; j-- {
			in := b.Instrs[j]
			if in.Deleted() {
				continue
			}
			if d := in.Dest(); d != nil && pureInstr(in) &&
				!d.IgnoreLiveness && !live.has(d.Num) {
				in.SetDeleted()
				deleted++
				continue
			}
			stepInstr(in, func(v *ir.Variable, isDef bool) {
				if v.IgnoreLiveness {
					return
				}
				if isDef {
					live.clear(v.Num)
				} else {
					live.set(v.Num)
				}
			})
		}
	}
	return deleted
}

// pureInstr reports whether in only produces its destination value, with no
// control or memory effect that must survive a dead destination.
func pureInstr(in ir.Instr) bool {
	switch in.(type) {
	case *ir.Assign, *ir.Arith, *ir.Icmp, *ir.Cast, *ir.Select, *ir.Load:
		return true
	}
	return false
}

// applyBlock transfers a live set backward through one block in place.
func applyBlock(b *ir.Block, live bitSet) {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		in := b.Instrs[i]
		if in.Deleted() {
			continue
		}
		stepInstr(in, func(v *ir.Variable, isDef bool) {
			if v.IgnoreLiveness {
				return
			}
			if isDef {
				live.clear(v.Num)
			} else {
				live.set(v.Num)
			}
		})
	}
}

// stepInstr reports the instruction's definition first, then its uses, the
// order a backward transfer function needs.
func stepInstr(in ir.Instr, visit func(v *ir.Variable, isDef bool)) {
	if d := in.Dest(); d != nil {
		partial := false
		if pd, ok := in.(partialDef); ok {
			partial = pd.PartialDef()
		}
		if !partial {
			visit(d, true)
		} else {
			visit(d, false)
		}
	}
	for _, src := range in.Srcs() {
		for _, v := range src.Vars() {
			visit(v, false)
		}
	}
}

// Intervals computes one conservative live interval per variable from the
// dataflow solution and the instruction numbering, and classifies variables
// whose entire liveness sits inside one block. Requires RenumberInstrs to
// have run.
func Intervals(f *ir.Func) *Info {
	info := Basic(f)

	type state struct {
		seen  bool
		block int32
		multi bool
	}
	states := make([]state, len(f.Vars))

	extend := func(v *ir.Variable, n, block int32) {
		if v.IgnoreLiveness {
			return
		}
		st := &states[v.Num]
		if !st.seen {
			st.seen = true
			st.block = block
			v.Range = ir.LiveRange{Start: n, End: n}
		} else {
			if st.block != block {
				st.multi = true
			}
			if n < v.Range.Start {
				v.Range.Start = n
			}
			if n > v.Range.End {
				v.Range.End = n
			}
		}
	}

	// Arguments, explicit and implicit, are live from function entry.
	entryArg := func(v *ir.Variable) {
		if v.Lo != nil {
			extend(v.Lo, 0, 0)
			extend(v.Hi, 0, 0)
			return
		}
		extend(v, 0, 0)
	}
	for _, a := range f.Args {
		entryArg(a)
	}
	for _, a := range f.ImplicitArgs {
		entryArg(a)
	}

	for bi, b := range f.Blocks {
		first, last := blockBounds(b)
		if first < 0 {
			continue
		}
		forEach(info.LiveIn[bi], f.Vars, func(v *ir.Variable) {
			extend(v, first, b.Index)
		})
		forEach(info.LiveOut[bi], f.Vars, func(v *ir.Variable) {
			extend(v, last, b.Index)
		})
		for _, in := range b.Instrs {
			if in.Deleted() {
				continue
			}
			n := in.Number()
			stepInstr(in, func(v *ir.Variable, _ bool) {
				extend(v, n, b.Index)
			})
		}
	}

	for i, v := range f.Vars {
		st := states[i]
		v.SingleBlock = st.seen && !st.multi
		if v.SingleBlock {
			v.LocalBlock = st.block
		}
	}
	return info
}

func blockBounds(b *ir.Block) (first, last int32) {
	first = -1
	for _, in := range b.Instrs {
		if in.Deleted() {
			continue
		}
		if first < 0 {
			first = in.Number()
		}
		last = in.Number()
	}
	return first, last
}

func forEach(s bitSet, vars []*ir.Variable, fn func(*ir.Variable)) {
	for wi, w := range s {
		for w != 0 {
			idx := wi*64 + bits.TrailingZeros64(w)
			fn(vars[idx])
			w &= w - 1
		}
	}
}
