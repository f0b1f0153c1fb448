package las

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// greedyLabels picks the highest scoring label per batch row
// and re-encodes the choice as a one-hot vector.
//
// The selection is deterministic: identical logits always
// produce identical one-hot output.
func greedyLabels(logits anyvec.Vector, numLabels int) anyvec.Vector {
	if logits.Len()%numLabels != 0 {
		panic(fmt.Sprintf("label count %d must divide logit length %d",
			numLabels, logits.Len()))
	}
	n := logits.Len() / numLabels
	c := logits.Creator()
	data := make([]float64, logits.Len())
	for i := 0; i < n; i++ {
		idx := anyvec.MaxIndex(logits.Slice(i*numLabels, (i+1)*numLabels))
		data[i*numLabels+idx] = 1
	}
	return c.MakeVectorData(c.MakeNumericList(data))
}

// oneHot encodes a single label code as a one-hot vector.
func oneHot(c anyvec.Creator, label, numLabels int) anyvec.Vector {
	if label < 0 || label >= numLabels {
		panic(fmt.Sprintf("label %d outside of %d labels", label, numLabels))
	}
	data := make([]float64, numLabels)
	data[label] = 1
	return c.MakeVectorData(c.MakeNumericList(data))
}
