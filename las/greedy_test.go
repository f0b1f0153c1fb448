package las

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
)

func TestGreedyLabels(t *testing.T) {
	c := anyvec32.CurrentCreator()
	logits := c.MakeVectorData(c.MakeNumericList([]float64{
		0.1, 2, -1,
		3, 0.5, 0.4,
	}))
	expected := []float64{0, 1, 0, 1, 0, 0}

	actual := vectorData(greedyLabels(logits, 3))
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}

	again := vectorData(greedyLabels(logits, 3))
	if !reflect.DeepEqual(again, actual) {
		t.Errorf("expected %v but got %v", actual, again)
	}
}

func TestGreedyLabelsPanic(t *testing.T) {
	c := anyvec32.CurrentCreator()
	logits := c.MakeVector(7)
	if !didPanic(func() { greedyLabels(logits, 3) }) {
		t.Error("expected panic on indivisible logit length")
	}
}

func TestOneHot(t *testing.T) {
	c := anyvec32.CurrentCreator()
	actual := vectorData(oneHot(c, 2, 4))
	expected := []float64{0, 0, 1, 0}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	if !didPanic(func() { oneHot(c, 4, 4) }) {
		t.Error("expected panic on out of range label")
	}
}
