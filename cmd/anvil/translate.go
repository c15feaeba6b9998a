package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"tlog.app/go/tlog"

	"anvil/internal/config"
	"anvil/internal/driver"
	"anvil/internal/ir"
	"anvil/internal/irpack"
	"anvil/internal/observ"
)

var translateCmd = &cobra.Command{
	Use:   "translate [flags] <module>",
	Short: "Lower a serialized IR module to ARM32 assembly",
	Args:  cobra.ExactArgs(1),
	RunE:  translateExecution,
}

func init() {
	translateCmd.Flags().StringP("opt", "O", "O2", "optimization level (Om1|O2)")
	translateCmd.Flags().Bool("sandbox", false, "emit sandboxed masked-return sequences")
	translateCmd.Flags().Bool("skip-unimplemented", false, "skip unimplemented lowerings instead of failing")
	translateCmd.Flags().Bool("phi-edge-split", false, "split critical edges before phi lowering")
	translateCmd.Flags().Bool("nop-insertion", false, "randomly insert nops after lowering")
	translateCmd.Flags().Float64("nop-prob", 0, "per-instruction nop probability (0 keeps configured value)")
	translateCmd.Flags().Int64("seed", 0, "nop insertion seed (0 keeps configured value)")
	translateCmd.Flags().String("translate-only", "", "translate only the named function")
	translateCmd.Flags().Int("parallel", 0, "functions translated concurrently (0 keeps configured value)")
	translateCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	translateCmd.Flags().Bool("timings", false, "report per-function pass timings")
	translateCmd.Flags().Bool("progress", false, "show a progress bar")
	translateCmd.Flags().Bool("trace", false, "dump the lowered IR of every function to stderr")
}

func translateExecution(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyTranslateFlags(cmd, &cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	m, err := irpack.DecodeModule(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	progress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return err
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())
	stats := &observ.Stats{}
	results, err := driver.New(cfg, stats).TranslateModule(ctx, m, progress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var file *os.File
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		file, err = os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	if err := writeResults(out, results); err != nil {
		return err
	}

	if timings {
		for _, r := range results {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s:\n%s", r.Func.Name, r.Timer.Summary())
		}
	}
	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		for _, r := range results {
			fmt.Fprint(cmd.ErrOrStderr(), ir.Dump(r.Func))
		}
	}
	if !quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), stats.Summary())
	}
	if failed := driver.FailedFuncs(results); len(failed) > 0 {
		return fmt.Errorf("translation failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

func writeResults(out io.Writer, results []*driver.Result) error {
	for _, r := range results {
		if r.Failed {
			continue
		}
		if _, err := io.WriteString(out, r.Asm); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig resolves the layered run configuration: defaults, then the
// optional TOML file. A missing default config file is not an error.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return cfg, err
	}
	loaded, err := config.LoadFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) && !cmd.Flags().Changed("config") {
			return cfg, nil
		}
		return cfg, err
	}
	return loaded, nil
}

// applyTranslateFlags overlays command-line flags on the loaded
// configuration. Only explicitly set flags win over the file.
func applyTranslateFlags(cmd *cobra.Command, cfg *config.Config) error {
	optValue, err := cmd.Flags().GetString("opt")
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("opt") {
		opt, err := config.ParseOptLevel(optValue)
		if err != nil {
			return err
		}
		cfg.Opt = opt
	}
	if cmd.Flags().Changed("sandbox") {
		cfg.Sandboxing, _ = cmd.Flags().GetBool("sandbox")
	}
	if cmd.Flags().Changed("skip-unimplemented") {
		cfg.SkipUnimplemented, _ = cmd.Flags().GetBool("skip-unimplemented")
	}
	if cmd.Flags().Changed("phi-edge-split") {
		cfg.PhiEdgeSplit, _ = cmd.Flags().GetBool("phi-edge-split")
	}
	if cmd.Flags().Changed("nop-insertion") {
		cfg.NopInsertion, _ = cmd.Flags().GetBool("nop-insertion")
	}
	if prob, _ := cmd.Flags().GetFloat64("nop-prob"); prob > 0 {
		cfg.NopProbability = prob
	}
	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		cfg.RandomSeed = seed
	}
	if only, _ := cmd.Flags().GetString("translate-only"); only != "" {
		cfg.TranslateOnly = only
	}
	if parallel, _ := cmd.Flags().GetInt("parallel"); parallel > 0 {
		cfg.Parallel = parallel
	}
	return nil
}
