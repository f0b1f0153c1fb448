package las

import "github.com/unixpickle/anyvec"

// Spell runs pure greedy decoding for a fixed number of
// steps, feeding each step's greedy guess into the next.
//
// The cell must have features registered. The result holds
// one label code per step for every batch element; trimming at
// the end-of-sequence code is up to the caller.
func Spell(c *Cell, steps int) [][]int {
	f := c.requireFeatures()
	state := c.Start(f.Batch)
	empty := c.creator.MakeVector(0)

	res := make([][]int, f.Batch)
	for t := 0; t < steps; t++ {
		step := c.Step(state, empty)
		out := step.Output()
		for b := 0; b < f.Batch; b++ {
			code := anyvec.MaxIndex(out.Slice(b*c.NumLabels, (b+1)*c.NumLabels))
			res[b] = append(res[b], code)
		}
		state = step.State()
	}
	return res
}
