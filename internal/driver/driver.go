// Package driver runs the translation pipeline over whole modules: one
// target instance per function, optionally several functions in flight.
package driver

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"anvil/internal/arm32"
	"anvil/internal/config"
	"anvil/internal/ir"
	"anvil/internal/observ"
)

// Result is the outcome of translating one function.
type Result struct {
	Func   *ir.Func
	Timer  *observ.Timer
	Asm    string
	Failed bool
}

// Driver owns the run-wide pieces: configuration and aggregate statistics.
type Driver struct {
	cfg   config.Config
	stats *observ.Stats
}

// New builds a driver for one run.
func New(cfg config.Config, stats *observ.Stats) *Driver {
	return &Driver{cfg: cfg, stats: stats}
}

// TranslateModule lowers every selected function of m. Functions fail
// independently: a lowering error marks its result failed and the rest keep
// going. Results come back in the module's function order.
func (d *Driver) TranslateModule(ctx context.Context, m *ir.Module, progress bool) ([]*Result, error) {
	if err := ir.Validate(m); err != nil {
		return nil, errors.Wrap(err, "validate module")
	}

	funcs := m.Funcs
	if only := d.cfg.TranslateOnly; only != "" {
		funcs = nil
		for _, f := range m.Funcs {
			if f.Name == only {
				funcs = append(funcs, f)
			}
		}
		if len(funcs) == 0 {
			return nil, errors.New("function %q not found in module %s", only, m.Name)
		}
	}

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.Default(int64(len(funcs)), "translating")
	}

	results := make([]*Result, len(funcs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	limit := d.cfg.Parallel
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, f := range funcs {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := d.translateFunc(ctx, f)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// translateFunc runs the configured pass schedule over one function.
func (d *Driver) translateFunc(ctx context.Context, f *ir.Func) *Result {
	span := tlog.SpanFromContext(ctx)
	tm := observ.NewTimer()
	target := arm32.NewTarget(f, d.cfg, d.stats)

	switch d.cfg.Opt {
	case config.OptO2:
		target.TranslateO2(tm)
	default:
		target.TranslateOm1(tm)
	}

	res := &Result{Func: f, Timer: tm}
	if err := f.Err(); err != nil {
		res.Failed = true
		d.stats.AddFuncFailed()
		span.Printw("translation failed", "func", f.Name, "err", err)
		return res
	}
	d.stats.AddFuncTranslated()

	var sb strings.Builder
	if err := target.EmitFunc(&sb); err != nil {
		res.Failed = true
		d.stats.AddFuncFailed()
		return res
	}
	res.Asm = sb.String()
	span.Printw("translated", "func", f.Name, "blocks", len(f.Blocks), "vars", len(f.Vars))
	return res
}

// FailedFuncs lists the names of functions whose translation failed,
// sorted.
func FailedFuncs(results []*Result) []string {
	var names []string
	for _, r := range results {
		if r != nil && r.Failed {
			names = append(names, r.Func.Name)
		}
	}
	sort.Strings(names)
	return names
}
