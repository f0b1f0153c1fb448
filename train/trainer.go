package train

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"

	"github.com/MelancholyMing/tfkaldi/dispense"
	"github.com/MelancholyMing/tfkaldi/las"
)

// A Batch wraps an assembled minibatch for SGD.
type Batch struct {
	Batch *dispense.Batch
}

// A Trainer creates batches, computes gradients, and adds up
// costs for the listener/speller pair.
//
// The label sequences feed the cell shifted by one step: the
// logits at step l are scored against the labels at step l+1.
type Trainer struct {
	Listener las.Encoder
	Cell     *las.Cell
	Cost     anynet.Cost
	Params   []*anydiff.Var
	Creator  anyvec.Creator

	// MaxTime, when positive, caps the padded time axis of
	// every assembled batch.
	MaxTime int

	// Average indicates whether or not the total cost should
	// be averaged before computing gradients.
	Average bool

	// After every gradient computation, LastCost is set to
	// the cost from the batch.
	LastCost anyvec.Numeric
}

// Fetch assembles a one-hot batch for the subset of samples.
// The s argument must be a SampleList.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		panic("empty batch")
	}
	l := s.(SampleList)
	inputs := make([][][]float64, l.Len())
	targets := make([][]int, l.Len())
	for i := 0; i < l.Len(); i++ {
		sample := l.GetSample(i)
		if len(sample.Targets) < 2 {
			return nil, fmt.Errorf("fetch batch: utterance %q has %d labels, need at least 2",
				sample.Utterance.ID, len(sample.Targets))
		}
		inputs[i] = sample.Utterance.Features
		targets[i] = sample.Targets
	}
	b, err := dispense.AssembleBatch(t.Creator, inputs, targets, l.Len(),
		t.MaxTime, t.Cell.NumLabels, dispense.OneHotEncoding)
	if err != nil {
		return nil, err
	}
	return &Batch{Batch: b}, nil
}

// TotalCost computes the total cost for the batch.
func (t *Trainer) TotalCost(b *dispense.Batch) anydiff.Res {
	features, lens := t.Listener.Encode(b.InputSeq(), b.SeqLens)
	packed, time := las.PackFeatures(features, t.Cell.FeatureDim)
	t.Cell.SetFeatures(packed, lens, time)

	out := anyrnn.Map(t.feedSeq(b), t.Cell)

	var idx int
	var costCount int
	allCosts := anyseq.Map(out, func(a anydiff.Res, n int) anydiff.Res {
		desired := b.LabelStep(idx + 1)
		idx++
		costCount += n
		probs := anydiff.LogSoftmax(a, t.Cell.NumLabels)
		return t.Cost.Cost(anydiff.NewConst(desired), probs, n)
	})

	sum := anydiff.Sum(anyseq.Sum(allCosts))
	if t.Average {
		scaler := sum.Output().Creator().MakeNumeric(1 / float64(costCount))
		return anydiff.Scale(sum, scaler)
	}
	return sum
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the total
// cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad := anydiff.NewGrad(t.Params...)

	cost := t.TotalCost(b.(*Batch).Batch)
	t.LastCost = anyvec.Sum(cost.Output())

	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, grad)

	return grad
}

// feedSeq is the teacher forcing input: label steps 0 through
// LabelLen-2 as a fully-present constant sequence.
func (t *Trainer) feedSeq(b *dispense.Batch) anyseq.Seq {
	present := make([]bool, b.Size)
	for i := range present {
		present[i] = true
	}
	batches := make([]*anyseq.Batch, b.LabelLen-1)
	for l := range batches {
		batches[l] = &anyseq.Batch{Packed: b.LabelStep(l), Present: present}
	}
	return anyseq.ConstSeq(t.Creator, batches)
}
