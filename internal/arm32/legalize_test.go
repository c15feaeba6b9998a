package arm32

import (
	"testing"

	"anvil/internal/ir"
)

func TestLegalizeImmediateForms(t *testing.T) {
	tests := []struct {
		name  string
		value int32
		// want is the sequence of instruction shapes inserted to
		// materialize the constant; empty means a flexible immediate.
		want []string
	}{
		{name: "encodable", value: 42, want: nil},
		{name: "complement encodable", value: -0x100, want: []string{"mvn"}},
		{name: "halfword", value: 0x1234, want: []string{"movw"}},
		{name: "full word", value: 0x12345678, want: []string{"movw", "movt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ir.NewFunc("l", ir.Void)
			tg, b := scratchTarget(f)

			got := tg.legalize(ir.NewConstI32(tt.value), LegalReg|LegalFlex)
			if len(tt.want) == 0 {
				imm, ok := got.(*FlexImm)
				if !ok {
					t.Fatalf("got %T, want flexible immediate", got)
				}
				if int32(imm.Value()) != tt.value {
					t.Fatalf("immediate decodes to %d, want %d", int32(imm.Value()), tt.value)
				}
				return
			}
			if _, ok := got.(*ir.Variable); !ok {
				t.Fatalf("got %T, want register temporary", got)
			}
			if len(b.Instrs) != len(tt.want) {
				t.Fatalf("inserted %d instructions, want %d", len(b.Instrs), len(tt.want))
			}
			for i, shape := range tt.want {
				var name string
				switch b.Instrs[i].(type) {
				case *Mvn:
					name = "mvn"
				case *Movw:
					name = "movw"
				case *Movt:
					name = "movt"
				default:
					name = "other"
				}
				if name != shape {
					t.Errorf("instruction %d is %s, want %s", i, name, shape)
				}
			}
		})
	}
}

func TestLegalizeUndefReadsZero(t *testing.T) {
	f := ir.NewFunc("l", ir.Void)
	tg, _ := scratchTarget(f)

	got := tg.legalize(ir.NewConstUndef(ir.I32), LegalReg|LegalFlex)
	imm, ok := got.(*FlexImm)
	if !ok {
		t.Fatalf("got %T, want flexible immediate", got)
	}
	if imm.Value() != 0 {
		t.Fatalf("undef legalizes to %d, want 0", imm.Value())
	}
}

func TestLegalizeRelocAlwaysPaired(t *testing.T) {
	f := ir.NewFunc("l", ir.Void)
	tg, b := scratchTarget(f)

	got := tg.legalize(ir.NewConstReloc("table", 0), LegalReg|LegalFlex)
	if _, ok := got.(*ir.Variable); !ok {
		t.Fatalf("got %T, want register temporary", got)
	}
	if len(b.Instrs) != 2 {
		t.Fatalf("inserted %d instructions, want movw+movt", len(b.Instrs))
	}
	if _, ok := b.Instrs[0].(*Movw); !ok {
		t.Errorf("first instruction is %T, want movw", b.Instrs[0])
	}
	if _, ok := b.Instrs[1].(*Movt); !ok {
		t.Errorf("second instruction is %T, want movt", b.Instrs[1])
	}
}

func TestLegalizeMemToRegister(t *testing.T) {
	f := ir.NewFunc("l", ir.Void)
	tg, b := scratchTarget(f)
	base := f.NewVariable(ir.I32, "base")

	got := tg.legalize(NewMem(ir.I32, base, nil), LegalReg)
	if _, ok := got.(*ir.Variable); !ok {
		t.Fatalf("got %T, want register temporary", got)
	}
	if len(b.Instrs) != 1 {
		t.Fatalf("inserted %d instructions, want one load", len(b.Instrs))
	}
	if _, ok := b.Instrs[0].(*Ldr); !ok {
		t.Fatalf("inserted %T, want ldr", b.Instrs[0])
	}
}

func TestLegalizeMemRejectsIndexedModes(t *testing.T) {
	f := ir.NewFunc("l", ir.Void)
	tg, _ := scratchTarget(f)
	base := f.NewVariable(ir.I32, "base")
	idx := f.NewVariable(ir.I32, "idx")

	mem := NewMemRegReg(ir.I32, base, idx, NoShift, 0, PostIndex)
	tg.legalizeMem(mem)
	if !f.HasError() {
		t.Fatal("post-indexed addressing did not fail the function")
	}
}

func TestLowerInt32AddPrefersSubtraction(t *testing.T) {
	f := ir.NewFunc("l", ir.Void)
	tg, b := scratchTarget(f)
	base := f.NewVariable(ir.I32, "base")
	dest := f.NewVariable(ir.I32, "dest")

	// -260 has no rotated encoding, but its negation does.
	tg.lowerInt32Add(dest, base, ir.NewConstI32(-260))
	if len(b.Instrs) != 1 {
		t.Fatalf("inserted %d instructions, want one", len(b.Instrs))
	}
	op, ok := b.Instrs[0].(*DataOp)
	if !ok || op.Op != OpSub {
		t.Fatalf("inserted %s, want sub with the negated immediate", b.Instrs[0])
	}
}
