package ir

// Operand is a value an instruction can consume: a Variable, a constant, or a
// target-specific operand form (memory reference, flexible operand) defined
// by a backend package. The set of implementations is closed; lowering code
// dispatches with exhaustive type switches and panics on anything else.
type Operand interface {
	// Type returns the semantic width of the operand.
	Type() Type
	// Vars returns the variables referenced by the operand, for liveness.
	Vars() []*Variable
}

// ConstI32 is a 32-bit integer immediate. The bit pattern is what matters;
// signedness is up to the consuming instruction.
type ConstI32 struct {
	Ty    Type
	Value int32
}

// NewConstI32 returns an i32-typed integer immediate.
func NewConstI32(v int32) *ConstI32 { return &ConstI32{Ty: I32, Value: v} }

// NewConstInt returns an integer immediate of the given scalar type.
func NewConstInt(ty Type, v int32) *ConstI32 { return &ConstI32{Ty: ty, Value: v} }

func (c *ConstI32) Type() Type        { return c.Ty }
func (c *ConstI32) Vars() []*Variable { return nil }

// ConstI64 is a 64-bit integer immediate. It is never materialized directly;
// lowering splits it into two 32-bit halves.
type ConstI64 struct {
	Value int64
}

// NewConstI64 returns an i64 integer immediate.
func NewConstI64(v int64) *ConstI64 { return &ConstI64{Value: v} }

func (c *ConstI64) Type() Type        { return I64 }
func (c *ConstI64) Vars() []*Variable { return nil }

// ConstReloc is a symbolic address whose value is resolved at link time.
type ConstReloc struct {
	Name   string
	Offset int32
}

// NewConstReloc returns a relocatable constant for the named symbol.
func NewConstReloc(name string, offset int32) *ConstReloc {
	return &ConstReloc{Name: name, Offset: offset}
}

func (c *ConstReloc) Type() Type        { return I32 }
func (c *ConstReloc) Vars() []*Variable { return nil }

// ConstUndef is an undefined value of some type. Lowering turns it into an
// architectural zero for determinism.
type ConstUndef struct {
	Ty Type
}

// NewConstUndef returns an undefined value of the given type.
func NewConstUndef(ty Type) *ConstUndef { return &ConstUndef{Ty: ty} }

func (c *ConstUndef) Type() Type        { return c.Ty }
func (c *ConstUndef) Vars() []*Variable { return nil }
