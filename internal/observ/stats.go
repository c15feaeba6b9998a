package observ

import (
	"fmt"
	"sync/atomic"
)

// Stats accumulates module-wide translation counters. All counters are
// atomic so concurrently translated functions may share one Stats.
type Stats struct {
	funcsTranslated atomic.Int64
	funcsFailed     atomic.Int64
	registersSaved  atomic.Int64
	frameBytes      atomic.Int64
	fills           atomic.Int64
	spills          atomic.Int64
}

// AddFuncTranslated counts one successfully translated function.
func (s *Stats) AddFuncTranslated() { s.funcsTranslated.Add(1) }

// AddFuncFailed counts one function aborted by the error flag.
func (s *Stats) AddFuncFailed() { s.funcsFailed.Add(1) }

// AddRegistersSaved counts callee-saved registers preserved by a prologue.
func (s *Stats) AddRegistersSaved(n int) { s.registersSaved.Add(int64(n)) }

// AddFrameBytes counts bytes of stack frame allocated by a prologue.
func (s *Stats) AddFrameBytes(n int) { s.frameBytes.Add(int64(n)) }

// AddFill counts one load of an argument or spilled value from the stack.
func (s *Stats) AddFill() { s.fills.Add(1) }

// AddSpill counts one variable rejected to a stack slot.
func (s *Stats) AddSpill() { s.spills.Add(1) }

// Failed reports whether any function failed.
func (s *Stats) Failed() bool { return s.funcsFailed.Load() > 0 }

// Summary returns a one-line report of the counters.
func (s *Stats) Summary() string {
	return fmt.Sprintf(
		"funcs=%d failed=%d regs-saved=%d frame-bytes=%d fills=%d spills=%d",
		s.funcsTranslated.Load(), s.funcsFailed.Load(), s.registersSaved.Load(),
		s.frameBytes.Load(), s.fills.Load(), s.spills.Load())
}
