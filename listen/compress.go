package listen

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// compressTime halves the time axis of a fully-present
// sequence batch by joining consecutive timestep pairs
// depth-wise per sequence. An odd tail is paired with zeros.
func compressTime(in anyseq.Seq) anyseq.Seq {
	steps := in.Output()
	if len(steps) == 0 {
		return in
	}
	n := len(steps[0].Present)
	for _, s := range steps {
		if s.NumPresent() != n {
			panic("sequences must be fully present")
		}
	}
	dim := steps[0].Packed.Len() / n
	c := steps[0].Packed.Creator()

	var out []*anyseq.Batch
	for i := 0; i < len(steps); i += 2 {
		first := steps[i].Packed
		second := c.MakeVector(n * dim)
		if i+1 < len(steps) {
			second = steps[i+1].Packed
		}
		chunks := make([]anyvec.Vector, 0, n*2)
		for b := 0; b < n; b++ {
			chunks = append(chunks, first.Slice(b*dim, (b+1)*dim),
				second.Slice(b*dim, (b+1)*dim))
		}
		out = append(out, &anyseq.Batch{
			Packed:  c.Concat(chunks...),
			Present: steps[i].Present,
		})
	}

	return &pairSeq{
		In:  in,
		Out: out,
		N:   n,
		Dim: dim,
		V:   in.Vars(),
	}
}

type pairSeq struct {
	In  anyseq.Seq
	Out []*anyseq.Batch
	N   int
	Dim int
	V   anydiff.VarSet
}

func (p *pairSeq) Creator() anyvec.Creator {
	return p.In.Creator()
}

func (p *pairSeq) Output() []*anyseq.Batch {
	return p.Out
}

func (p *pairSeq) Vars() anydiff.VarSet {
	return p.V
}

func (p *pairSeq) Propagate(u []*anyseq.Batch, g anydiff.Grad) {
	inSteps := p.In.Output()
	if len(inSteps) == 0 {
		return
	}
	c := inSteps[0].Packed.Creator()
	down := make([]*anyseq.Batch, len(inSteps))
	for i := range inSteps {
		pair := u[i/2].Packed
		off := (i % 2) * p.Dim
		chunks := make([]anyvec.Vector, 0, p.N)
		for b := 0; b < p.N; b++ {
			start := b*2*p.Dim + off
			chunks = append(chunks, pair.Slice(start, start+p.Dim))
		}
		down[i] = &anyseq.Batch{
			Packed:  c.Concat(chunks...),
			Present: inSteps[i].Present,
		}
	}
	p.In.Propagate(down, g)
}
