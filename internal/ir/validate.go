package ir

import (
	"errors"
	"fmt"
)

// Validate checks module invariants. Returns an error joining every
// violation found.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Func) error {
	var errs []error

	if len(f.Blocks) == 0 {
		return errors.New("no blocks")
	}

	blocks := map[*Block]bool{}
	for _, b := range f.Blocks {
		blocks[b] = true
	}

	for _, b := range f.Blocks {
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Name))
		}
		for _, in := range b.Instrs {
			if br, ok := in.(Branching); ok && !in.Deleted() {
				for _, t := range br.Targets() {
					if !blocks[t] {
						errs = append(errs, fmt.Errorf("%s: branch to foreign block", b.Name))
					}
				}
			}
		}
		for _, phi := range b.Phis {
			if len(phi.Srcs()) != len(phi.Preds) {
				errs = append(errs, fmt.Errorf("%s: phi arity mismatch", b.Name))
			}
		}
	}

	for _, arg := range f.Args {
		if arg.Ty == Void {
			errs = append(errs, fmt.Errorf("argument %s has void type", arg))
		}
	}

	return errors.Join(errs...)
}
