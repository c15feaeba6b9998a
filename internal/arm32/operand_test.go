package arm32

import (
	"testing"

	"anvil/internal/ir"
)

func TestCanHoldFlexImm(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		ok    bool
	}{
		{name: "zero", value: 0, ok: true},
		{name: "small", value: 42, ok: true},
		{name: "max imm8", value: 0xff, ok: true},
		{name: "one rotated", value: 0x100, ok: true},
		{name: "nine bit span", value: 0x101, ok: false},
		{name: "top byte", value: 0xff000000, ok: true},
		{name: "wrapped run", value: 0xc000000f, ok: true},
		{name: "wide pattern", value: 0x12345678, ok: false},
		{name: "all ones", value: 0xffffffff, ok: false},
		{name: "shifted byte", value: 0x3fc00, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imm8, rot, ok := CanHoldFlexImm(tt.value)
			if ok != tt.ok {
				t.Fatalf("CanHoldFlexImm(%#x) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if !ok {
				return
			}
			if imm8 > 0xff {
				t.Fatalf("CanHoldFlexImm(%#x) imm8 = %#x, want <= 0xff", tt.value, imm8)
			}
			got := NewFlexImm(ir.I32, imm8, rot).Value()
			if got != tt.value {
				t.Fatalf("encoding round trip: got %#x, want %#x", got, tt.value)
			}
		})
	}
}

func TestCanHoldOffset(t *testing.T) {
	tests := []struct {
		name    string
		ty      ir.Type
		signExt bool
		offset  int32
		ok      bool
	}{
		{name: "word max", ty: ir.I32, offset: 4095, ok: true},
		{name: "word over", ty: ir.I32, offset: 4096, ok: false},
		{name: "word negative", ty: ir.I32, offset: -4095, ok: true},
		{name: "byte unsigned", ty: ir.I8, offset: 4095, ok: true},
		{name: "byte signed max", ty: ir.I8, signExt: true, offset: 255, ok: true},
		{name: "byte signed over", ty: ir.I8, signExt: true, offset: 256, ok: false},
		{name: "halfword max", ty: ir.I16, offset: 255, ok: true},
		{name: "halfword over", ty: ir.I16, offset: 256, ok: false},
		{name: "float max", ty: ir.F64, offset: 1020, ok: true},
		{name: "float over", ty: ir.F64, offset: 1024, ok: false},
		{name: "float unaligned", ty: ir.F64, offset: 6, ok: false},
		{name: "vector", ty: ir.V4I32, offset: 0, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanHoldOffset(tt.ty, tt.signExt, tt.offset); got != tt.ok {
				t.Fatalf("CanHoldOffset(%v, %v, %d) = %v, want %v",
					tt.ty, tt.signExt, tt.offset, got, tt.ok)
			}
		})
	}
}

func TestMemString(t *testing.T) {
	f := ir.NewFunc("m", ir.Void)
	base := f.NewVariable(ir.I32, "base")
	idx := f.NewVariable(ir.I32, "idx")

	if got := NewMem(ir.I32, base, nil).String(); got != "[%base]" {
		t.Errorf("plain base: %q", got)
	}
	if got := NewMem(ir.I32, base, ir.NewConstI32(8)).String(); got != "[%base, #8]" {
		t.Errorf("base plus offset: %q", got)
	}
	rr := NewMemRegReg(ir.I32, base, idx, LSL, 2, Offset)
	if got := rr.String(); got != "[%base, +%idx, lsl #2]" {
		t.Errorf("reg reg: %q", got)
	}
}
