package ir

import "strings"

// Dump renders the function's current instruction stream, one instruction
// per line, for pass-by-pass debug output.
func Dump(f *Func) string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	sb.WriteString(":\n")
	for _, b := range f.Blocks {
		sb.WriteString(b.Name)
		sb.WriteString(":\n")
		for _, phi := range b.Phis {
			sb.WriteString("  ")
			sb.WriteString(phi.String())
			sb.WriteByte('\n')
		}
		for _, in := range b.Instrs {
			if in.Deleted() {
				continue
			}
			sb.WriteString("  ")
			sb.WriteString(in.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
