package las

import (
	"fmt"

	"github.com/unixpickle/anynet/anyrnn"
)

// A CellState carries the per-sequence decoder state between
// consecutive attend-and-spell steps.
//
// LastLabel holds the previously emitted (or fed back) one-hot
// label; Context holds the attention summary computed at the
// previous step.
type CellState struct {
	PreContext  anyrnn.State
	PostContext anyrnn.State
	LastLabel   *anyrnn.VecState
	Context     *anyrnn.VecState
}

// newCellState builds a CellState, verifying that the two
// vector-backed fields share a single creator (and therefore a
// single numeric element type).
func newCellState(pre, post anyrnn.State, label, ctx *anyrnn.VecState) *CellState {
	if label.Vector.Creator() != ctx.Vector.Creator() {
		panic(fmt.Sprintf("inconsistent state creators: %T vs %T",
			label.Vector.Creator(), ctx.Vector.Creator()))
	}
	return &CellState{
		PreContext:  pre,
		PostContext: post,
		LastLabel:   label,
		Context:     ctx,
	}
}

// Present returns the present map.
func (c *CellState) Present() anyrnn.PresentMap {
	return c.PreContext.Present()
}

// Reduce reduces every sub-state.
func (c *CellState) Reduce(p anyrnn.PresentMap) anyrnn.State {
	return &CellState{
		PreContext:  c.PreContext.Reduce(p),
		PostContext: c.PostContext.Reduce(p),
		LastLabel:   c.LastLabel.Reduce(p).(*anyrnn.VecState),
		Context:     c.Context.Reduce(p).(*anyrnn.VecState),
	}
}

// A CellGrad is the upstream gradient counterpart of a
// CellState.
//
// The recurrent sub-grads may be nil, indicating a zero
// upstream (e.g. for a sub-network that was never stepped).
type CellGrad struct {
	PreContext  anyrnn.StateGrad
	PostContext anyrnn.StateGrad
	LastLabel   *anyrnn.VecState
	Context     *anyrnn.VecState
}

// Present returns the present map.
func (c *CellGrad) Present() anyrnn.PresentMap {
	return c.Context.Present()
}

// Expand expands every sub-grad.
func (c *CellGrad) Expand(p anyrnn.PresentMap) anyrnn.StateGrad {
	res := &CellGrad{
		LastLabel: c.LastLabel.Expand(p).(*anyrnn.VecState),
		Context:   c.Context.Expand(p).(*anyrnn.VecState),
	}
	if c.PreContext != nil {
		res.PreContext = c.PreContext.Expand(p)
	}
	if c.PostContext != nil {
		res.PostContext = c.PostContext.Expand(p)
	}
	return res
}
