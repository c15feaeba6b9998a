package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    OptLevel
		wantErr bool
	}{
		{in: "Om1", want: OptOm1},
		{in: "m1", want: OptOm1},
		{in: "0", want: OptOm1},
		{in: "O2", want: OptO2},
		{in: "2", want: OptO2},
		{in: "O3", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseOptLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseOptLevel(%q): no error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOptLevel(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseOptLevel(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anvil.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
opt = "Om1"

[target]
sandboxing = true
nop_insertion = true
random_seed = 42
parallel = 4
translate_only = "hot"
`), 0o644))

	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)

	require.Equal(t, OptOm1, cfg.Opt)
	require.True(t, cfg.Sandboxing)
	require.True(t, cfg.NopInsertion)
	require.EqualValues(t, 42, cfg.RandomSeed)
	require.Equal(t, 4, cfg.Parallel)
	require.Equal(t, "hot", cfg.TranslateOnly)
	// Fields the file leaves out keep their defaults.
	require.Equal(t, Default().NopProbability, cfg.NopProbability)
	require.False(t, cfg.PhiEdgeSplit)
}

func TestLoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anvil.toml")
	require.NoError(t, os.WriteFile(path, []byte("[target]\nparallel = 8\n"), 0o644))

	base := Default()
	base.Opt = OptOm1
	cfg, err := LoadFile(path, base)
	require.NoError(t, err)
	require.Equal(t, OptOm1, cfg.Opt, "opt survives when the file does not set it")
	require.Equal(t, 8, cfg.Parallel)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.toml"), Default())
	require.True(t, os.IsNotExist(err))

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("opt = [broken"), 0o644))
	_, err = LoadFile(bad, Default())
	require.ErrorContains(t, err, "parse")

	lvl := filepath.Join(dir, "lvl.toml")
	require.NoError(t, os.WriteFile(lvl, []byte(`opt = "O9"`), 0o644))
	_, err = LoadFile(lvl, Default())
	require.ErrorContains(t, err, "invalid optimization level")
}
