package ir

import "fmt"

// Module is a set of functions to translate.
type Module struct {
	Name  string
	Funcs []*Func
}

// Func is one function's CFG. It owns its variables and blocks; a function
// is processed to completion by a single goroutine, so no field needs
// synchronization.
type Func struct {
	Name       string
	ReturnType Type

	// Args is the declared parameter list. Argument lowering rewrites
	// entries to home-register variables.
	Args []*Variable
	// ImplicitArgs are registers considered live on entry (sp, lr).
	ImplicitArgs []*Variable
	// Vars is every variable ever created for the function.
	Vars []*Variable
	// Blocks is the block list; Blocks[0] is the entry.
	Blocks []*Block

	err error
}

// NewFunc creates an empty function.
func NewFunc(name string, ret Type) *Func {
	return &Func{Name: name, ReturnType: ret}
}

// NewVariable creates a fresh variable of the given type. For i64 the lo/hi
// pair is created structurally, right here, so the pairing is a property of
// the variable rather than a lazily mutated cache.
func (f *Func) NewVariable(ty Type, name string) *Variable {
	v := f.newVariable(ty, name)
	if ty == I64 {
		v.Lo = f.newVariable(I32, v.baseName()+".lo")
		v.Hi = f.newVariable(I32, v.baseName()+".hi")
	}
	return v
}

func (f *Func) newVariable(ty Type, name string) *Variable {
	v := &Variable{
		Num:    int32(len(f.Vars)),
		Name:   name,
		Ty:     ty,
		RegNum: NoRegister,
	}
	f.Vars = append(f.Vars, v)
	return v
}

func (v *Variable) baseName() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("t%d", v.Num)
}

// AddArg appends a declared parameter.
func (f *Func) AddArg(v *Variable) {
	v.IsArg = true
	if v.Lo != nil {
		v.Lo.IsArg = true
		v.Hi.IsArg = true
	}
	f.Args = append(f.Args, v)
}

// AddImplicitArg marks a register variable live on function entry.
func (f *Func) AddImplicitArg(v *Variable) {
	f.ImplicitArgs = append(f.ImplicitArgs, v)
}

// NewBlock appends a new empty block.
func (f *Func) NewBlock(name string) *Block {
	b := &Block{Index: int32(len(f.Blocks)), Name: name}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the entry block.
func (f *Func) Entry() *Block { return f.Blocks[0] }

// SetError records a translation error and aborts the remaining pipeline
// for this function. The first error wins.
func (f *Func) SetError(err error) {
	if f.err == nil {
		f.err = err
	}
}

// SetErrorf records a formatted translation error.
func (f *Func) SetErrorf(format string, args ...any) {
	f.SetError(fmt.Errorf(format, args...))
}

// HasError reports whether a pass recorded an error.
func (f *Func) HasError() bool { return f.err != nil }

// Err returns the recorded error, if any.
func (f *Func) Err() error { return f.err }

// RenumberInstrs assigns monotonically increasing numbers to all live
// instructions, in block order, after compacting deleted ones. Interval
// liveness depends on this numbering.
func (f *Func) RenumberInstrs() {
	var n int32
	for _, b := range f.Blocks {
		b.Compact()
		for _, in := range b.Instrs {
			in.SetNumber(n)
			n++
		}
	}
}

// ComputeFlow recomputes predecessor and successor lists from branch
// instructions.
func (f *Func) ComputeFlow() {
	for _, b := range f.Blocks {
		b.Preds = nil
		b.Succs = nil
	}
	for _, b := range f.Blocks {
		seen := map[*Block]bool{}
		for _, in := range b.Instrs {
			if in.Deleted() {
				continue
			}
			br, ok := in.(Branching)
			if !ok {
				continue
			}
			for _, t := range br.Targets() {
				if t == nil || seen[t] {
					continue
				}
				seen[t] = true
				b.Succs = append(b.Succs, t)
				t.Preds = append(t.Preds, b)
			}
		}
	}
}
