// Package config holds the per-run translation configuration. A Config is
// built once, from defaults, an optional anvil.toml, and command-line flags,
// and then passed read-only into every component that needs it.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// OptLevel selects the translation pass schedule.
type OptLevel uint8

const (
	// OptOm1 is the minimal schedule: no full liveness, allocation only of
	// variables that demand a register.
	OptOm1 OptLevel = iota
	// OptO2 is the aggressive schedule: full liveness, global linear-scan
	// allocation, branch optimization.
	OptO2
)

func (o OptLevel) String() string {
	switch o {
	case OptOm1:
		return "Om1"
	case OptO2:
		return "O2"
	default:
		return "opt?"
	}
}

// ParseOptLevel converts a CLI string to an OptLevel.
func ParseOptLevel(s string) (OptLevel, error) {
	switch s {
	case "m1", "Om1", "0":
		return OptOm1, nil
	case "2", "O2":
		return OptO2, nil
	default:
		return OptOm1, fmt.Errorf("invalid optimization level %q (expected: Om1|O2)", s)
	}
}

// Config is the full set of translation options. Zero value is usable;
// Default fills in the non-zero defaults.
type Config struct {
	// Opt selects the pass schedule.
	Opt OptLevel `toml:"-"`
	// Sandboxing rewrites returns into masked-return bundles.
	Sandboxing bool `toml:"sandboxing"`
	// SkipUnimplemented downgrades unimplemented-lowering errors to a
	// skip that fake-defines the destination. Triage aid, not a
	// production mode.
	SkipUnimplemented bool `toml:"skip_unimplemented"`
	// PhiEdgeSplit selects advanced (edge-split) phi lowering instead of
	// the simple load/store placement.
	PhiEdgeSplit bool `toml:"phi_edge_split"`
	// NopInsertion enables randomized nop padding after lowering.
	NopInsertion bool `toml:"nop_insertion"`
	// NopProbability is the per-instruction probability of inserting a nop.
	NopProbability float64 `toml:"nop_probability"`
	// RandomSeed seeds nop insertion for reproducibility.
	RandomSeed int64 `toml:"random_seed"`
	// TranslateOnly restricts translation to one function name, if set.
	TranslateOnly string `toml:"translate_only"`
	// Parallel is the number of functions translated concurrently.
	Parallel int `toml:"parallel"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Opt:            OptO2,
		NopProbability: 0.5,
		RandomSeed:     1,
		Parallel:       1,
	}
}

// fileConfig mirrors the TOML layout of anvil.toml.
type fileConfig struct {
	Opt    string `toml:"opt"`
	Target Config `toml:"target"`
}

// LoadFile merges options from a TOML file over base. Missing file fields
// keep their base values.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	fc := fileConfig{Target: base}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	out := fc.Target
	out.Opt = base.Opt
	if fc.Opt != "" {
		lvl, err := ParseOptLevel(fc.Opt)
		if err != nil {
			return base, fmt.Errorf("%s: %w", path, err)
		}
		out.Opt = lvl
	}
	return out, nil
}
