package las

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// padEnergy is added to the scalar energies of padded
// timesteps so that the softmax assigns them no weight.
const padEnergy = -1e30

func init() {
	var a Attender
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAttender)
}

// An Attender scores encoder timesteps against a projected
// decoder state and summarizes them into a context vector.
type Attender struct {
	// StateNet projects decoder states into the energy space.
	StateNet anynet.Net

	// FeatNet projects encoder features into the same space.
	FeatNet anynet.Net
}

// NewAttender creates an Attender with randomized projection
// networks: hidden ReLU layers followed by a linear output of
// size proj.
func NewAttender(c anyvec.Creator, stateSize, featDim, proj, hidden, layers int) *Attender {
	return &Attender{
		StateNet: newProjNet(c, stateSize, proj, hidden, layers),
		FeatNet:  newProjNet(c, featDim, proj, hidden, layers),
	}
}

// DeserializeAttender deserializes an Attender.
func DeserializeAttender(d []byte) (*Attender, error) {
	var res Attender
	if err := serializer.DeserializeAny(d, &res.StateNet, &res.FeatNet); err != nil {
		return nil, essentials.AddCtx("deserialize Attender", err)
	}
	return &res, nil
}

func newProjNet(c anyvec.Creator, in, out, hidden, layers int) anynet.Net {
	var res anynet.Net
	cur := in
	for i := 0; i < layers; i++ {
		res = append(res, anynet.NewFC(c, cur, hidden), anynet.ReLU)
		cur = hidden
	}
	return append(res, anynet.NewFC(c, cur, out))
}

// Features holds the per-batch attention precomputations:
// the raw encoder output, its projection psi, and the padding
// mask. Psi is computed exactly once per batch and reused at
// every decode step.
type Features struct {
	// Raw is packed batch-major: all timesteps of the first
	// sequence, then all timesteps of the second, etc.
	Raw anydiff.Res

	// Psi is the projection of Raw, packed the same way.
	Psi anydiff.Res

	// Mask is packed [batch x time] and holds 0 for meaningful
	// timesteps and padEnergy for padded ones.
	Mask anyvec.Vector

	Lens []int

	Batch, Time, Dim, Proj int
}

// Analyze projects the encoder features and builds the
// padding mask for one batch.
func (a *Attender) Analyze(features anydiff.Res, lens []int, batch, time, dim int) *Features {
	if features.Output().Len() != batch*time*dim {
		panic(fmt.Sprintf("feature length should be %d, but got %d",
			batch*time*dim, features.Output().Len()))
	}
	if len(lens) != batch {
		panic(fmt.Sprintf("length count should be %d, but got %d", batch, len(lens)))
	}

	psi := a.FeatNet.Apply(features, batch*time)
	proj := psi.Output().Len() / (batch * time)

	c := features.Output().Creator()
	maskData := make([]float64, batch*time)
	for b, l := range lens {
		if l > time || l < 0 {
			panic(fmt.Sprintf("sequence length %d outside time axis of %d", l, time))
		}
		for t := l; t < time; t++ {
			maskData[b*time+t] = padEnergy
		}
	}

	return &Features{
		Raw:   features,
		Psi:   psi,
		Mask:  c.MakeVectorData(c.MakeNumericList(maskData)),
		Lens:  lens,
		Batch: batch,
		Time:  time,
		Dim:   dim,
		Proj:  proj,
	}
}

// Weights computes the alignment over encoder timesteps for a
// batch of decoder states.
//
// The result is packed [batch x time]; each row sums to 1 and
// padded timesteps receive no weight.
func (a *Attender) Weights(f *Features, state anydiff.Res) anydiff.Res {
	phiOut := a.StateNet.Apply(state, f.Batch)
	return anydiff.Pool(phiOut, func(phi anydiff.Res) anydiff.Res {
		return anydiff.Pool(f.Psi, func(psi anydiff.Res) anydiff.Res {
			energies := make([]anydiff.Res, 0, f.Batch)
			for b := 0; b < f.Batch; b++ {
				psiMat := &anydiff.Matrix{
					Data: anydiff.Slice(psi, b*f.Time*f.Proj, (b+1)*f.Time*f.Proj),
					Rows: f.Time,
					Cols: f.Proj,
				}
				phiMat := &anydiff.Matrix{
					Data: anydiff.Slice(phi, b*f.Proj, (b+1)*f.Proj),
					Rows: 1,
					Cols: f.Proj,
				}
				energies = append(energies, anydiff.MatMul(false, true, psiMat, phiMat).Data)
			}
			masked := anydiff.Add(anydiff.Concat(energies...), anydiff.NewConst(f.Mask))
			return anydiff.Exp(anydiff.LogSoftmax(masked, f.Time))
		})
	})
}

// Attend computes the context vectors for a batch of decoder
// states as the alignment-weighted sum of the raw encoder
// features, packed [batch x dim].
func (a *Attender) Attend(f *Features, state anydiff.Res) anydiff.Res {
	return anydiff.Pool(a.Weights(f, state), func(alpha anydiff.Res) anydiff.Res {
		return anydiff.Pool(f.Raw, func(raw anydiff.Res) anydiff.Res {
			ctxs := make([]anydiff.Res, 0, f.Batch)
			for b := 0; b < f.Batch; b++ {
				alphaMat := &anydiff.Matrix{
					Data: anydiff.Slice(alpha, b*f.Time, (b+1)*f.Time),
					Rows: 1,
					Cols: f.Time,
				}
				rawMat := &anydiff.Matrix{
					Data: anydiff.Slice(raw, b*f.Time*f.Dim, (b+1)*f.Time*f.Dim),
					Rows: f.Time,
					Cols: f.Dim,
				}
				ctxs = append(ctxs, anydiff.MatMul(false, false, alphaMat, rawMat).Data)
			}
			return anydiff.Concat(ctxs...)
		})
	})
}

// Parameters returns the parameters of both projection
// networks.
func (a *Attender) Parameters() []*anydiff.Var {
	return anynet.AllParameters(a.StateNet, a.FeatNet)
}

// SerializerType returns the unique ID used to serialize an
// Attender with the serializer package.
func (a *Attender) SerializerType() string {
	return "github.com/MelancholyMing/tfkaldi/las.Attender"
}

// Serialize serializes the Attender.
func (a *Attender) Serialize() ([]byte, error) {
	return serializer.SerializeAny(a.StateNet, a.FeatNet)
}
