package las

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testCell(c anyvec.Creator, variant CellVariant) *Cell {
	cell := NewCell(c, CellConfig{
		NumLabels:    5,
		FeatureDim:   3,
		StateSize:    4,
		HiddenSize:   4,
		HiddenLayers: 0,
		Variant:      variant,
		FeedProb:     1,
		StartLabel:   1,
	})
	cell.Rand = rand.New(rand.NewSource(3))
	return cell
}

func TestCellGrad(t *testing.T) {
	for _, variant := range []CellVariant{SingleRNN, DualRNN} {
		c := anyvec32.CurrentCreator()
		cell := testCell(c, variant)

		batch, time := 2, 3
		featVar := randomTestVar(c, batch*time*cell.FeatureDim)

		present := []bool{true, true}
		var inVars []*anydiff.Var
		var batches []*anyseq.ResBatch
		for i := 0; i < 4; i++ {
			v := randomTestVar(c, batch*cell.NumLabels)
			inVars = append(inVars, v)
			batches = append(batches, &anyseq.ResBatch{Packed: v, Present: present})
		}
		inSeq := anyseq.ResSeq(c, batches)

		ch := &anydifftest.SeqChecker{
			F: func() anyseq.Seq {
				cell.SetFeatures(featVar, []int{time, time}, time)
				return anyrnn.Map(inSeq, cell)
			},
			V: append(append([]*anydiff.Var{featVar}, inVars...),
				cell.Parameters()...),
		}
		ch.FullCheck(t)
	}
}

func TestCellPanics(t *testing.T) {
	c := anyvec32.CurrentCreator()
	cell := testCell(c, SingleRNN)

	if !didPanic(func() { cell.Start(2) }) {
		t.Error("expected panic before SetFeatures")
	}

	batch, time := 2, 2
	feats := c.MakeVector(batch * time * cell.FeatureDim)
	anyvec.Rand(feats, anyvec.Normal, nil)
	cell.SetFeatures(anydiff.NewConst(feats), []int{2, 2}, time)

	if !didPanic(func() { cell.Start(3) }) {
		t.Error("expected panic on batch mismatch")
	}

	state := cell.Start(batch)
	if !didPanic(func() { cell.Step(state, c.MakeVector(7)) }) {
		t.Error("expected panic on bad input length")
	}
}

func TestCellCreatorMismatch(t *testing.T) {
	cell := testCell(anyvec32.CurrentCreator(), SingleRNN)
	c64 := anyvec64.CurrentCreator()
	feats := anydiff.NewConst(c64.MakeVector(2 * 2 * cell.FeatureDim))
	if !didPanic(func() { cell.SetFeatures(feats, []int{2, 2}, 2) }) {
		t.Error("expected panic on creator mismatch")
	}
}

func TestCellSerialize(t *testing.T) {
	c := anyvec32.CurrentCreator()
	cell := testCell(c, DualRNN)

	data, err := cell.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	cell2, err := DeserializeCell(data)
	if err != nil {
		t.Fatal(err)
	}
	if cell2.Variant != DualRNN || cell2.NumLabels != cell.NumLabels ||
		cell2.FeatureDim != cell.FeatureDim || cell2.FeedProb != cell.FeedProb {
		t.Error("mismatching cell configuration")
	}

	batch, time := 2, 3
	feats := c.MakeVector(batch * time * cell.FeatureDim)
	anyvec.Rand(feats, anyvec.Normal, nil)
	fr := anydiff.NewConst(feats)
	cell.SetFeatures(fr, []int{3, 3}, time)
	cell2.SetFeatures(fr, []int{3, 3}, time)

	out1 := Spell(cell, 4)
	out2 := Spell(cell2, 4)
	if !reflect.DeepEqual(out1, out2) {
		t.Errorf("expected %v but got %v", out1, out2)
	}
}

func didPanic(f func()) (res bool) {
	defer func() {
		if recover() != nil {
			res = true
		}
	}()
	f()
	return
}
