// Package observ tracks per-pass timings and translation statistics.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one timed pass of a function pipeline.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects the pass timings of one function pipeline. It is not
// goroutine-safe; parallel translation means one Timer per function.
type Timer struct {
	phases []Phase
}

// NewTimer returns an empty Timer.
func NewTimer() *Timer { return &Timer{} }

// Begin opens a named phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase at idx with an optional note. Out-of-range indices
// are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Phases returns the recorded phases in Begin order.
func (t *Timer) Phases() []Phase { return t.phases }

// Total sums the recorded phase durations.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
	}
	return total
}

// Summary renders the phases as an indented table, one pass per line plus
// the total.
func (t *Timer) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range t.phases {
		writePhase(&b, p.Name, p.Dur, p.Note)
	}
	writePhase(&b, "total", t.Total(), "")
	return b.String()
}

func writePhase(b *strings.Builder, name string, d time.Duration, note string) {
	fmt.Fprintf(b, "  %-20s %10s", name, d.Round(time.Microsecond))
	if note != "" {
		b.WriteString("  // " + note)
	}
	b.WriteByte('\n')
}
