package las

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestPackFeatures(t *testing.T) {
	c := anyvec32.CurrentCreator()
	present := []bool{true, true}
	seq := anyseq.ConstSeq(c, []*anyseq.Batch{
		{
			Packed:  c.MakeVectorData(c.MakeNumericList([]float64{1, 2, 5, 6})),
			Present: present,
		},
		{
			Packed:  c.MakeVectorData(c.MakeNumericList([]float64{3, 4, 7, 8})),
			Present: present,
		},
	})

	packed, time := PackFeatures(seq, 2)
	if time != 2 {
		t.Errorf("expected 2 timesteps, but got %d", time)
	}
	expected := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	actual := vectorData(packed.Output())
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestPackFeaturesGrad(t *testing.T) {
	c := anyvec32.CurrentCreator()
	present := []bool{true, true}
	var vars []*anydiff.Var
	var batches []*anyseq.ResBatch
	for i := 0; i < 3; i++ {
		v := randomTestVar(c, 4)
		vars = append(vars, v)
		batches = append(batches, &anyseq.ResBatch{Packed: v, Present: present})
	}
	seq := anyseq.ResSeq(c, batches)

	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			res, _ := PackFeatures(seq, 2)
			return res
		},
		V: vars,
	}
	ch.FullCheck(t)
}
