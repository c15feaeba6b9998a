package arm32

import (
	"hash/fnv"
	"math/rand"
)

// nopRNG is the deterministic source for diversification. Seeding mixes the
// configured seed with the function name so the stream is stable per
// function and independent of translation order.
type nopRNG struct {
	r *rand.Rand
}

func newNopRNG(seed int64, fname string) nopRNG {
	h := fnv.New64a()
	h.Write([]byte(fname))
	return nopRNG{r: rand.New(rand.NewSource(seed ^ int64(h.Sum64())))}
}

func (n nopRNG) chance(prob float64) bool { return n.r.Float64() < prob }

// insertNops sprinkles padding instructions through the finished stream with
// the configured per-instruction probability. Runs after the frame is
// computed so offsets are already final.
func (t *Target) insertNops() {
	prob := t.cfg.NopProbability
	if prob <= 0 {
		return
	}
	for _, b := range t.f.Blocks {
		t.block = b
		for i := 0; i < len(b.Instrs); i++ {
			if b.Instrs[i].Deleted() {
				continue
			}
			if t.rng.chance(prob) {
				t.cur = i
				t.insert(newNop())
				i++
			}
		}
	}
	t.block = nil
}
