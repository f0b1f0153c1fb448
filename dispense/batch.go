package dispense

import (
	"fmt"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// A TargetEncoding selects how a batch materializes its label
// sequences.
type TargetEncoding int

const (
	// OneHotEncoding stores targets as a dense time-major
	// one-hot tensor.
	OneHotEncoding TargetEncoding = iota

	// SparseEncoding stores targets as a sparse index/value
	// triple, omitting the blank code 0.
	SparseEncoding
)

// SparseTargets is a sparse rendition of a label grid: the
// positions and values of every nonzero code over a logical
// [batch, length] shape.
type SparseTargets struct {
	Indices [][2]int
	Values  []int
	Shape   [2]int
}

// A Batch is a fixed-shape minibatch of padded utterances and
// their label sequences.
//
// Inputs is time-major: entry (t, b, f) lives at index
// (t*Size+b)*NumFeatures+f. OneHot, when present, is likewise
// time-major over (l, b, code). Exactly one of OneHot and
// Sparse is set, depending on the encoding.
type Batch struct {
	Inputs      anyvec.Vector
	SeqLens     []int
	MaxSteps    int
	Size        int
	NumFeatures int

	NumLabels int
	LabelLen  int
	OneHot    anyvec.Vector
	Sparse    *SparseTargets
}

// AssembleBatch packs utterance feature matrices (indexed
// [feature][time]) and encoded label sequences into a Batch.
//
// Every call must supply exactly size utterances. When
// maxTime is positive it caps the time axis and utterances
// beyond the cap are rejected; otherwise the longest
// utterance in the batch sets the time axis.
func AssembleBatch(c anyvec.Creator, inputs [][][]float64, targets [][]int,
	size, maxTime, numLabels int, enc TargetEncoding) (*Batch, error) {
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("assemble batch: have %d inputs but %d targets",
			len(inputs), len(targets))
	}
	if len(inputs) != size || size == 0 {
		return nil, fmt.Errorf("assemble batch: need exactly %d utterances, got %d",
			size, len(inputs))
	}

	numFeatures := len(inputs[0])
	maxSteps := maxTime
	if maxSteps <= 0 {
		for _, m := range inputs {
			if len(m) > 0 && len(m[0]) > maxSteps {
				maxSteps = len(m[0])
			}
		}
	}

	seqLens := make([]int, size)
	data := make([]float64, maxSteps*size*numFeatures)
	for b, m := range inputs {
		if len(m) != numFeatures {
			return nil, fmt.Errorf("assemble batch: utterance %d has %d features, want %d",
				b, len(m), numFeatures)
		}
		steps := 0
		if len(m) > 0 {
			steps = len(m[0])
		}
		if steps > maxSteps {
			return nil, fmt.Errorf("assemble batch: utterance %d has %d steps, cap is %d",
				b, steps, maxSteps)
		}
		seqLens[b] = steps
		for f, row := range m {
			if len(row) != steps {
				return nil, fmt.Errorf("assemble batch: utterance %d has a ragged feature matrix", b)
			}
			for t, x := range row {
				data[(t*size+b)*numFeatures+f] = x
			}
		}
	}

	res := &Batch{
		Inputs:      c.MakeVectorData(c.MakeNumericList(data)),
		SeqLens:     seqLens,
		MaxSteps:    maxSteps,
		Size:        size,
		NumFeatures: numFeatures,
		NumLabels:   numLabels,
	}

	switch enc {
	case OneHotEncoding:
		labelLen := 0
		for _, seq := range targets {
			if len(seq) > labelLen {
				labelLen = len(seq)
			}
		}
		res.LabelLen = labelLen
		oneHot := make([]float64, labelLen*size*numLabels)
		for b, seq := range targets {
			for l, code := range seq {
				if code < 0 || code >= numLabels {
					return nil, fmt.Errorf("assemble batch: label code %d outside of %d labels",
						code, numLabels)
				}
				oneHot[(l*size+b)*numLabels+code] = 1
			}
		}
		res.OneHot = c.MakeVectorData(c.MakeNumericList(oneHot))
	case SparseEncoding:
		res.Sparse = TargetsToSparse(targets)
		res.LabelLen = res.Sparse.Shape[1]
	default:
		return nil, fmt.Errorf("assemble batch: unknown target encoding: %d", enc)
	}

	return res, nil
}

// InputSeq views the padded input tensor as a fully-present
// constant sequence batch, one step per timestep.
func (b *Batch) InputSeq() anyseq.Seq {
	present := make([]bool, b.Size)
	for i := range present {
		present[i] = true
	}
	stride := b.Size * b.NumFeatures
	batches := make([]*anyseq.Batch, b.MaxSteps)
	for t := 0; t < b.MaxSteps; t++ {
		batches[t] = &anyseq.Batch{
			Packed:  b.Inputs.Slice(t*stride, (t+1)*stride),
			Present: present,
		}
	}
	return anyseq.ConstSeq(b.Inputs.Creator(), batches)
}

// LabelStep returns the one-hot label batch for step l.
func (b *Batch) LabelStep(l int) anyvec.Vector {
	if b.OneHot == nil {
		panic("batch has no one-hot targets")
	}
	if l < 0 || l >= b.LabelLen {
		panic(fmt.Sprintf("label step %d outside of %d steps", l, b.LabelLen))
	}
	stride := b.Size * b.NumLabels
	return b.OneHot.Slice(l*stride, (l+1)*stride)
}
