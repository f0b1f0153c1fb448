package dispense

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestAssembleBatchShapes(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inputs := [][][]float64{
		testFeatures(2, 5, 1),
		testFeatures(2, 3, 100),
	}
	targets := [][]int{{1, 2, 0}, {1, 0}}

	b, err := AssembleBatch(c, inputs, targets, 2, 0, 3, OneHotEncoding)
	if err != nil {
		t.Fatal(err)
	}
	if b.MaxSteps != 5 || b.Size != 2 || b.NumFeatures != 2 {
		t.Fatalf("unexpected shape: steps=%d size=%d features=%d",
			b.MaxSteps, b.Size, b.NumFeatures)
	}
	if !reflect.DeepEqual(b.SeqLens, []int{5, 3}) {
		t.Errorf("unexpected lens: %v", b.SeqLens)
	}
	if b.Inputs.Len() != 5*2*2 {
		t.Errorf("input length should be %d, but got %d", 5*2*2, b.Inputs.Len())
	}

	data := vectorData(b.Inputs)
	for tm := 3; tm < 5; tm++ {
		for f := 0; f < 2; f++ {
			if x := data[(tm*2+1)*2+f]; x != 0 {
				t.Errorf("step %d feature %d should be padded, but got %f", tm, f, x)
			}
		}
	}
	if data[(2*2+1)*2] == 0 {
		t.Error("meaningful step should not be zero")
	}
}

func TestAssembleBatchOneHot(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inputs := [][][]float64{testFeatures(1, 2, 1), testFeatures(1, 2, 2)}
	targets := [][]int{{1, 0, 2}, {2, 1}}

	b, err := AssembleBatch(c, inputs, targets, 2, 0, 3, OneHotEncoding)
	if err != nil {
		t.Fatal(err)
	}
	if b.LabelLen != 3 {
		t.Fatalf("label length should be 3, but got %d", b.LabelLen)
	}

	step0 := vectorData(b.LabelStep(0))
	if !reflect.DeepEqual(step0, []float64{0, 1, 0, 0, 0, 1}) {
		t.Errorf("unexpected step 0: %v", step0)
	}
	step2 := vectorData(b.LabelStep(2))
	if !reflect.DeepEqual(step2, []float64{0, 0, 1, 0, 0, 0}) {
		t.Errorf("unexpected step 2: %v", step2)
	}
}

func TestAssembleBatchSparse(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inputs := [][][]float64{testFeatures(1, 2, 1)}
	targets := [][]int{{0, 3, 0, 5}}

	b, err := AssembleBatch(c, inputs, targets, 1, 0, 6, SparseEncoding)
	if err != nil {
		t.Fatal(err)
	}
	if b.OneHot != nil {
		t.Error("sparse batch should not carry one-hot targets")
	}
	if !reflect.DeepEqual(b.Sparse.Values, []int{3, 5}) {
		t.Errorf("unexpected values: %v", b.Sparse.Values)
	}
	if b.LabelLen != 4 {
		t.Errorf("label length should be 4, but got %d", b.LabelLen)
	}
}

func TestAssembleBatchErrors(t *testing.T) {
	c := anyvec32.CurrentCreator()
	good := [][][]float64{testFeatures(1, 2, 1), testFeatures(1, 2, 2)}
	targets := [][]int{{1}, {2}}

	if _, err := AssembleBatch(c, good, targets[:1], 2, 0, 3, OneHotEncoding); err == nil {
		t.Error("expected error on mismatching list lengths")
	}
	if _, err := AssembleBatch(c, good, targets, 3, 0, 3, OneHotEncoding); err == nil {
		t.Error("expected error on wrong batch size")
	}
	if _, err := AssembleBatch(c, good, targets, 2, 1, 3, OneHotEncoding); err == nil {
		t.Error("expected error on utterance over the time cap")
	}
	if _, err := AssembleBatch(c, good, [][]int{{1}, {7}}, 2, 0, 3, OneHotEncoding); err == nil {
		t.Error("expected error on out of range label code")
	}
}

func TestAssembleBatchEmptyTargets(t *testing.T) {
	c := anyvec32.CurrentCreator()
	inputs := [][][]float64{testFeatures(1, 2, 1)}

	b, err := AssembleBatch(c, inputs, [][]int{{}}, 1, 0, 3, OneHotEncoding)
	if err != nil {
		t.Fatal(err)
	}
	if b.LabelLen != 0 || b.OneHot.Len() != 0 {
		t.Errorf("expected empty targets, got len=%d", b.OneHot.Len())
	}
}

// testFeatures builds a [features x steps] matrix with
// nonzero entries derived from base.
func testFeatures(features, steps int, base float64) [][]float64 {
	res := make([][]float64, features)
	for f := range res {
		res[f] = make([]float64, steps)
		for t := range res[f] {
			res[f][t] = base + float64(f*steps+t+1)
		}
	}
	return res
}

func vectorData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return data
	}
	panic("unsupported numeric type")
}
