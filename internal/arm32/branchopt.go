package arm32

// optimizeBranches removes branches that only reach the next block in layout
// order and rewrites conditional branches whose taken side is the
// fallthrough.
func (t *Target) optimizeBranches() {
	for i, b := range t.f.Blocks {
		if i+1 >= len(t.f.Blocks) {
			break
		}
		next := t.f.Blocks[i+1]
		for j := len(b.Instrs) - 1; j >= 0; j-- {
			in := b.Instrs[j]
			if in.Deleted() {
				continue
			}
			if br, ok := in.(*Br); ok {
				br.OptimizeBranch(next)
			}
			break
		}
	}
}
