package arm32

import (
	"fmt"
	"io"

	"anvil/internal/ir"
)

// EmitFunc renders the lowered function as assembly-flavored text: a global
// label, block labels, one instruction per line. Deleted instructions are
// skipped.
func (t *Target) EmitFunc(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "\t.globl %s\n%s:\n", t.f.Name, t.f.Name); err != nil {
		return err
	}
	for i, b := range t.f.Blocks {
		if i > 0 {
			if _, err := fmt.Fprintf(w, "%s:\n", b.Name); err != nil {
				return err
			}
		}
		for _, in := range b.Instrs {
			if in.Deleted() || isFake(in) {
				continue
			}
			if _, err := fmt.Fprintf(w, "\t%s\n", in); err != nil {
				return err
			}
		}
	}
	return nil
}

// isFake reports whether in carries no machine encoding.
func isFake(in ir.Instr) bool {
	switch in.(type) {
	case *ir.FakeDef, *ir.FakeUse, *ir.FakeKill:
		return true
	}
	return false
}
