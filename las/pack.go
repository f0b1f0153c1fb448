package las

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// PackFeatures re-packs a fully-present encoder output
// sequence into the batch-major tensor consumed by
// Cell.SetFeatures, returning the packed result and the
// number of timesteps.
func PackFeatures(seq anyseq.Seq, featDim int) (anydiff.Res, int) {
	steps := seq.Output()
	if len(steps) == 0 {
		panic("cannot pack an empty sequence")
	}
	n := len(steps[0].Present)
	for _, s := range steps {
		if s.NumPresent() != n {
			panic("sequences must be fully present")
		}
	}
	if steps[0].Packed.Len() != n*featDim {
		panic(fmt.Sprintf("step length should be %d, but got %d",
			n*featDim, steps[0].Packed.Len()))
	}

	c := steps[0].Packed.Creator()
	chunks := make([]anyvec.Vector, 0, n*len(steps))
	for b := 0; b < n; b++ {
		for _, s := range steps {
			chunks = append(chunks, s.Packed.Slice(b*featDim, (b+1)*featDim))
		}
	}
	return &packRes{
		In:     seq,
		OutVec: c.Concat(chunks...),
		Batch:  n,
		Time:   len(steps),
		Dim:    featDim,
		V:      seq.Vars(),
	}, len(steps)
}

type packRes struct {
	In     anyseq.Seq
	OutVec anyvec.Vector
	Batch  int
	Time   int
	Dim    int
	V      anydiff.VarSet
}

func (p *packRes) Output() anyvec.Vector {
	return p.OutVec
}

func (p *packRes) Vars() anydiff.VarSet {
	return p.V
}

func (p *packRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	inSteps := p.In.Output()
	c := p.OutVec.Creator()
	down := make([]*anyseq.Batch, len(inSteps))
	for t := range inSteps {
		chunks := make([]anyvec.Vector, 0, p.Batch)
		for b := 0; b < p.Batch; b++ {
			start := (b*p.Time + t) * p.Dim
			chunks = append(chunks, u.Slice(start, start+p.Dim))
		}
		down[t] = &anyseq.Batch{
			Packed:  c.Concat(chunks...),
			Present: inSteps[t].Present,
		}
	}
	p.In.Propagate(down, g)
}
