package ir

// Simple phi lowering: every phi becomes an assignment from a fresh
// temporary at the top of its block, fed by assignments placed at the end of
// each predecessor. The target lowering then only ever sees plain assigns;
// a phi surviving to lowering is a pipeline bug.

// PlacePhiLoads inserts "dest = temp" assignments at the start of each block
// with phis, creating one temporary per phi.
func PlacePhiLoads(f *Func) {
	for _, b := range f.Blocks {
		for i, phi := range b.Phis {
			temp := phiTemp(f, phi)
			b.InsertAt(i, NewAssign(phi.Dest(), temp))
		}
	}
}

// PlacePhiStores inserts "temp = src" assignments before the terminator of
// each predecessor block.
func PlacePhiStores(f *Func) {
	for _, b := range f.Blocks {
		for _, phi := range b.Phis {
			temp := phiTemp(f, phi)
			for i, pred := range phi.Preds {
				src := phi.Srcs()[i]
				pos := terminatorIndex(pred)
				if pos < 0 {
					f.SetErrorf("phi predecessor %s is unterminated", pred.Name)
					return
				}
				pred.InsertAt(pos, NewAssign(temp, src))
			}
		}
	}
}

// SplitCriticalEdges breaks every edge whose source has multiple successors
// and whose destination has phis, inserting a forwarding block. Phi stores
// placed afterwards then sit on an edge of their own instead of polluting a
// shared predecessor.
func SplitCriticalEdges(f *Func) {
	type edge struct{ pred, succ *Block }
	splits := map[edge]*Block{}
	// Snapshot: splitting appends blocks while iterating.
	blocks := append([]*Block(nil), f.Blocks...)
	for _, b := range blocks {
		for _, phi := range b.Phis {
			for i, pred := range phi.Preds {
				if len(pred.Succs) < 2 {
					continue
				}
				split, ok := splits[edge{pred, b}]
				if !ok {
					split = splitEdge(f, pred, b)
					splits[edge{pred, b}] = split
				}
				phi.Preds[i] = split
			}
		}
	}
	if len(splits) > 0 {
		f.ComputeFlow()
	}
}

// splitEdge reroutes pred->succ through a fresh block ending in an
// unconditional branch.
func splitEdge(f *Func, pred, succ *Block) *Block {
	pos := terminatorIndex(pred)
	if pos < 0 {
		f.SetErrorf("edge source %s is unterminated", pred.Name)
		return pred
	}
	split := f.NewBlock(pred.Name + "." + succ.Name)
	split.Append(NewBr(succ))
	switch in := pred.Instrs[pos].(type) {
	case *Br:
		if in.True == succ {
			in.True = split
		}
		if in.False == succ {
			in.False = split
		}
	case *Switch:
		if in.Default == succ {
			in.Default = split
		}
		for i := range in.Cases {
			if in.Cases[i].Target == succ {
				in.Cases[i].Target = split
			}
		}
	}
	return split
}

// DeletePhis drops all phi instructions once loads and stores are placed.
func DeletePhis(f *Func) {
	for _, b := range f.Blocks {
		b.Phis = nil
	}
}

func phiTemp(f *Func, phi *Phi) *Variable {
	if phi.temp == nil {
		phi.temp = f.NewVariable(phi.Dest().Ty, phi.Dest().baseName()+".phi")
	}
	return phi.temp
}

func terminatorIndex(b *Block) int {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		if b.Instrs[i].Deleted() {
			continue
		}
		if t, ok := b.Instrs[i].(Terminator); ok && t.TerminatesBlock() {
			return i
		}
	}
	return -1
}
