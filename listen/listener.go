// Package listen implements the pyramidal bidirectional
// listener which turns padded acoustic frame sequences into
// the high level features consumed by the attend-and-spell
// decoder.
package listen

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var l Listener
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeListener)
}

// A Listener compresses an utterance in time while raising
// its feature dimensionality.
//
// The base layer is a plain bidirectional LSTM; every pyramid
// layer halves the time axis by joining consecutive timestep
// pairs before running another bidirectional LSTM.
type Listener struct {
	Base    *anyrnn.Bidir
	Pyramid []*anyrnn.Bidir
}

// NewListener creates a randomized Listener with the given
// number of pyramid layers.
func NewListener(c anyvec.Creator, inDim, stateSize, outDim, pyramidLayers int) *Listener {
	if inDim <= 0 || stateSize <= 0 || outDim <= 0 || pyramidLayers < 0 {
		panic(fmt.Sprintf("invalid listener dimensions: in=%d state=%d out=%d layers=%d",
			inDim, stateSize, outDim, pyramidLayers))
	}
	res := &Listener{Base: newBidir(c, inDim, stateSize, outDim)}
	for i := 0; i < pyramidLayers; i++ {
		res.Pyramid = append(res.Pyramid, newBidir(c, outDim*2, stateSize, outDim))
	}
	return res
}

// DeserializeListener deserializes a Listener.
func DeserializeListener(d []byte) (*Listener, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Listener", err)
	}
	if len(slice) == 0 {
		return nil, essentials.AddCtx("deserialize Listener",
			fmt.Errorf("empty layer list"))
	}
	res := &Listener{}
	for i, x := range slice {
		layer, ok := x.(*anyrnn.Bidir)
		if !ok {
			return nil, fmt.Errorf("deserialize Listener: not a Bidir: %T", x)
		}
		if i == 0 {
			res.Base = layer
		} else {
			res.Pyramid = append(res.Pyramid, layer)
		}
	}
	return res, nil
}

func newBidir(c anyvec.Creator, in, state, out int) *anyrnn.Bidir {
	return &anyrnn.Bidir{
		Forward:  anyrnn.NewLSTM(c, in, state),
		Backward: anyrnn.NewLSTM(c, in, state),
		Mixer: &anynet.AddMixer{
			In1: anynet.NewFC(c, state, out),
			In2: anynet.NewFC(c, state, out),
			Out: anynet.Tanh,
		},
	}
}

// Encode computes high level features for a batch of padded
// sequences, halving the reported lengths once per pyramid
// layer.
func (l *Listener) Encode(in anyseq.Seq, lens []int) (anyseq.Seq, []int) {
	out := l.Base.Apply(in)
	newLens := append([]int{}, lens...)
	for _, layer := range l.Pyramid {
		out = compressTime(out)
		for i, ln := range newLens {
			newLens[i] = (ln + 1) / 2
		}
		out = layer.Apply(out)
	}
	return out, newLens
}

// Parameters returns the parameters of every layer.
func (l *Listener) Parameters() []*anydiff.Var {
	res := anynet.AllParameters(l.Base)
	for _, p := range l.Pyramid {
		res = append(res, p.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize a
// Listener with the serializer package.
func (l *Listener) SerializerType() string {
	return "github.com/MelancholyMing/tfkaldi/listen.Listener"
}

// Serialize serializes the Listener.
func (l *Listener) Serialize() ([]byte, error) {
	slice := []serializer.Serializer{l.Base}
	for _, p := range l.Pyramid {
		slice = append(slice, p)
	}
	return serializer.SerializeSlice(slice)
}
