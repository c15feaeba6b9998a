package ir

// Branching is implemented by instructions that transfer control to other
// blocks.
type Branching interface {
	// Targets returns the possible successor blocks, in order.
	Targets() []*Block
}

// Terminator is implemented by instructions that legally end a block.
type Terminator interface {
	TerminatesBlock() bool
}

// Targets returns the branch targets of an unconditional or conditional
// branch.
func (in *Br) Targets() []*Block {
	if in.Unconditional() {
		return []*Block{in.True}
	}
	return []*Block{in.True, in.False}
}

// TerminatesBlock marks Br as a block terminator.
func (in *Br) TerminatesBlock() bool { return true }

// Targets returns the case targets followed by the default.
func (in *Switch) Targets() []*Block {
	out := make([]*Block, 0, len(in.Cases)+1)
	for _, c := range in.Cases {
		out = append(out, c.Target)
	}
	return append(out, in.Default)
}

// TerminatesBlock marks Switch as a block terminator.
func (in *Switch) TerminatesBlock() bool { return true }

// TerminatesBlock marks Ret as a block terminator.
func (in *Ret) TerminatesBlock() bool { return true }

// TerminatesBlock marks Unreachable as a block terminator.
func (in *Unreachable) TerminatesBlock() bool { return true }

// Block is a basic block: phis, then straight-line instructions, ending in a
// terminator. Instruction lists support insertion at an arbitrary index and
// logical deletion.
type Block struct {
	Index  int32
	Name   string
	Phis   []*Phi
	Instrs []Instr

	Preds []*Block
	Succs []*Block
}

// Append adds an instruction at the end of the block.
func (b *Block) Append(in Instr) { b.Instrs = append(b.Instrs, in) }

// InsertAt inserts an instruction before index i.
func (b *Block) InsertAt(i int, in Instr) {
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = in
}

// InsertSpan inserts a run of instructions before index i and returns the
// index just past the inserted run.
func (b *Block) InsertSpan(i int, ins []Instr) int {
	for _, in := range ins {
		b.InsertAt(i, in)
		i++
	}
	return i
}

// Compact physically removes logically deleted instructions.
func (b *Block) Compact() {
	kept := b.Instrs[:0]
	for _, in := range b.Instrs {
		if !in.Deleted() {
			kept = append(kept, in)
		}
	}
	for i := len(kept); i < len(b.Instrs); i++ {
		b.Instrs[i] = nil
	}
	b.Instrs = kept
}

// Terminated reports whether the last live instruction is a terminator.
func (b *Block) Terminated() bool {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		if b.Instrs[i].Deleted() {
			continue
		}
		t, ok := b.Instrs[i].(Terminator)
		return ok && t.TerminatesBlock()
	}
	return false
}
