package las

import (
	"fmt"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// DefaultFeedProb is the probability of feeding the ground
// truth label (rather than the previous greedy guess) back
// into the next step during training.
const DefaultFeedProb = 0.8

func init() {
	var c Cell
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCell)
}

// A CellVariant selects how the label scores are wired.
type CellVariant int

const (
	// SingleRNN scores labels on the pre-context output
	// concatenated with the fresh context vector.
	SingleRNN CellVariant = iota

	// DualRNN runs a second recurrence over the fresh context
	// vector and scores labels on the pre-context output
	// concatenated with its output.
	DualRNN
)

// A CellConfig bundles the construction-time dimensions of a
// Cell.
type CellConfig struct {
	// NumLabels is the label vocabulary size.
	NumLabels int

	// FeatureDim is the encoder output dimensionality.
	FeatureDim int

	// StateSize is the size of the recurrent sub-networks.
	StateSize int

	// HiddenSize and HiddenLayers shape the feed-forward
	// projection and label-scoring networks.
	HiddenSize   int
	HiddenLayers int

	Variant CellVariant

	// FeedProb overrides DefaultFeedProb when non-zero.
	FeedProb float64

	// StartLabel is the code seeded as the first input label.
	StartLabel int
}

// A Cell is the attend-and-spell decoder.
//
// It implements anyrnn.Block. SetFeatures must be called with
// the encoder output for the batch before the cell is started
// or stepped.
type Cell struct {
	Variant    CellVariant
	NumLabels  int
	FeatureDim int
	StartLabel int
	FeedProb   float64

	PreContext  anyrnn.Block
	PostContext anyrnn.Block
	Attender    *Attender
	CharNet     anynet.Net

	// Rand, if non-nil, drives the ground-truth selection.
	// A nil Rand uses the shared math/rand source.
	Rand *rand.Rand

	creator anyvec.Creator
	feats   *Features
}

// NewCell creates a Cell with randomized parameters.
// All learnable variables are allocated here; stepping the
// cell never allocates parameters.
func NewCell(c anyvec.Creator, cfg CellConfig) *Cell {
	if cfg.NumLabels <= 0 || cfg.FeatureDim <= 0 || cfg.StateSize <= 0 ||
		cfg.HiddenSize <= 0 || cfg.HiddenLayers < 0 {
		panic(fmt.Sprintf("invalid cell configuration: %+v", cfg))
	}
	if cfg.StartLabel < 0 || cfg.StartLabel >= cfg.NumLabels {
		panic(fmt.Sprintf("start label %d outside of %d labels",
			cfg.StartLabel, cfg.NumLabels))
	}
	feed := cfg.FeedProb
	if feed == 0 {
		feed = DefaultFeedProb
	}
	charIn := cfg.StateSize + cfg.FeatureDim
	if cfg.Variant == DualRNN {
		charIn = cfg.StateSize * 2
	}
	return &Cell{
		Variant:    cfg.Variant,
		NumLabels:  cfg.NumLabels,
		FeatureDim: cfg.FeatureDim,
		StartLabel: cfg.StartLabel,
		FeedProb:   feed,

		PreContext:  anyrnn.NewLSTM(c, cfg.NumLabels+cfg.FeatureDim, cfg.StateSize),
		PostContext: anyrnn.NewLSTM(c, cfg.FeatureDim, cfg.StateSize),
		Attender: NewAttender(c, cfg.StateSize, cfg.FeatureDim, cfg.HiddenSize,
			cfg.HiddenSize, cfg.HiddenLayers),
		CharNet: newScoreNet(c, charIn, cfg.HiddenSize, cfg.HiddenLayers,
			cfg.NumLabels),

		creator: c,
	}
}

// DeserializeCell deserializes a Cell.
func DeserializeCell(d []byte) (*Cell, error) {
	var res Cell
	var variant int
	err := serializer.DeserializeAny(d, &variant, &res.NumLabels, &res.FeatureDim,
		&res.StartLabel, &res.FeedProb, &res.PreContext, &res.PostContext,
		&res.Attender, &res.CharNet)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Cell", err)
	}
	res.Variant = CellVariant(variant)
	res.creator = res.CharNet.Parameters()[0].Vector.Creator()
	return &res, nil
}

func newScoreNet(c anyvec.Creator, in, hidden, layers, out int) anynet.Net {
	var res anynet.Net
	cur := in
	for i := 0; i < layers; i++ {
		res = append(res, anynet.NewFC(c, cur, hidden), anynet.ReLU)
		cur = hidden
	}
	return append(res, anynet.NewFC(c, cur, out))
}

// SetFeatures registers the encoder output for the next
// batch, computing the attention projection psi exactly once.
//
// The features must be packed batch-major; lens gives the
// number of meaningful timesteps per sequence, used to mask
// padding out of the attention softmax.
func (c *Cell) SetFeatures(features anydiff.Res, lens []int, time int) {
	if features.Output().Creator() != c.creator {
		panic(fmt.Sprintf("inconsistent feature creator: %T vs %T",
			features.Output().Creator(), c.creator))
	}
	c.feats = c.Attender.Analyze(features, lens, len(lens), time, c.FeatureDim)
}

// Features returns the registered encoder features, or nil if
// SetFeatures has not been called.
func (c *Cell) Features() *Features {
	return c.feats
}

// Start produces the initial state: zero recurrent states, a
// one-hot start-of-sequence label, and an all-zero context
// vector.
func (c *Cell) Start(n int) anyrnn.State {
	f := c.requireFeatures()
	if f.Batch != n {
		panic(fmt.Sprintf("start batch should be %d, but got %d", f.Batch, n))
	}
	return newCellState(
		c.PreContext.Start(n),
		c.PostContext.Start(n),
		anyrnn.NewVecState(oneHot(c.creator, c.StartLabel, c.NumLabels), n),
		anyrnn.NewVecState(c.creator.MakeVector(c.FeatureDim), n),
	)
}

// PropagateStart back-propagates through the start state.
// The start label and zero context are constants, so only the
// recurrent sub-states receive gradients.
func (c *Cell) PropagateStart(s anyrnn.StateGrad, g anydiff.Grad) {
	cg := s.(*CellGrad)
	if cg.PreContext != nil {
		c.PreContext.PropagateStart(cg.PreContext, g)
	}
	if cg.PostContext != nil {
		c.PostContext.PropagateStart(cg.PostContext, g)
	}
}

// Step advances the decoder by one output label.
//
// During training, in holds the packed ground-truth one-hot
// labels for this step; the cell feeds them forward with
// probability FeedProb and its own previous greedy guess
// otherwise. An empty input vector selects pure decoding.
//
// The step output is the packed label logits.
func (c *Cell) Step(s anyrnn.State, in anyvec.Vector) anyrnn.Res {
	f := c.requireFeatures()
	st := s.(*CellState)
	n := st.Present().NumPresent()
	if in.Len() != 0 && in.Len() != n*c.NumLabels {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			n*c.NumLabels, in.Len()))
	}

	res := &cellRes{
		InPool:    anydiff.NewVar(in),
		LabelPool: anydiff.NewVar(st.LastLabel.Vector),
		CtxPool:   anydiff.NewVar(st.Context.Vector),
		V:         anydiff.VarSet{},
	}

	var label anydiff.Res = res.LabelPool
	if in.Len() != 0 && c.pickTruth() {
		label = res.InPool
	}

	mixer := anynet.ConcatMixer{}
	res.RNNIn = mixer.Mix(label, res.CtxPool, n)
	res.PreRes = c.PreContext.Step(st.PreContext, res.RNNIn.Output())
	res.PreOutPool = anydiff.NewVar(res.PreRes.Output())

	res.Ctx = c.Attender.Attend(f, res.PreOutPool)
	res.CtxOutPool = anydiff.NewVar(res.Ctx.Output())

	var charIn anydiff.Res
	postState := st.PostContext
	if c.Variant == DualRNN {
		res.PostRes = c.PostContext.Step(st.PostContext, res.Ctx.Output())
		res.PostOutPool = anydiff.NewVar(res.PostRes.Output())
		charIn = mixer.Mix(res.PreOutPool, res.PostOutPool, n)
		postState = res.PostRes.State()
	} else {
		charIn = mixer.Mix(res.PreOutPool, res.CtxOutPool, n)
	}
	res.Logits = c.CharNet.Apply(charIn, n)

	pres := st.Present()
	res.OutState = newCellState(
		res.PreRes.State(),
		postState,
		&anyrnn.VecState{
			Vector:     greedyLabels(res.Logits.Output(), c.NumLabels),
			PresentMap: pres,
		},
		&anyrnn.VecState{Vector: res.Ctx.Output(), PresentMap: pres},
	)

	res.V = anydiff.MergeVarSets(res.V, res.PreRes.Vars())
	if res.PostRes != nil {
		res.V = anydiff.MergeVarSets(res.V, res.PostRes.Vars())
	}
	res.V = anydiff.MergeVarSets(res.V, res.Ctx.Vars())
	res.V = anydiff.MergeVarSets(res.V, res.Logits.Vars())
	for _, p := range res.pools() {
		res.V.Del(p)
	}
	return res
}

// Parameters returns the parameters of every sub-network.
func (c *Cell) Parameters() []*anydiff.Var {
	return anynet.AllParameters(c.PreContext, c.PostContext, c.Attender,
		c.CharNet)
}

// SerializerType returns the unique ID used to serialize a
// Cell with the serializer package.
func (c *Cell) SerializerType() string {
	return "github.com/MelancholyMing/tfkaldi/las.Cell"
}

// Serialize serializes the Cell.
// The registered features are per-batch state and are not
// persisted.
func (c *Cell) Serialize() ([]byte, error) {
	return serializer.SerializeAny(int(c.Variant), c.NumLabels, c.FeatureDim,
		c.StartLabel, c.FeedProb, c.PreContext, c.PostContext, c.Attender,
		c.CharNet)
}

func (c *Cell) requireFeatures() *Features {
	if c.feats == nil {
		panic("features must be set")
	}
	return c.feats
}

func (c *Cell) pickTruth() bool {
	if c.Rand != nil {
		return c.Rand.Float64() < c.FeedProb
	}
	return rand.Float64() < c.FeedProb
}

type cellRes struct {
	InPool      *anydiff.Var
	LabelPool   *anydiff.Var
	CtxPool     *anydiff.Var
	PreOutPool  *anydiff.Var
	CtxOutPool  *anydiff.Var
	PostOutPool *anydiff.Var

	RNNIn   anydiff.Res
	PreRes  anyrnn.Res
	PostRes anyrnn.Res
	Ctx     anydiff.Res
	Logits  anydiff.Res

	OutState *CellState
	V        anydiff.VarSet
}

func (c *cellRes) State() anyrnn.State {
	return c.OutState
}

func (c *cellRes) Output() anyvec.Vector {
	return c.Logits.Output()
}

func (c *cellRes) Vars() anydiff.VarSet {
	return c.V
}

func (c *cellRes) Propagate(u anyvec.Vector, s anyrnn.StateGrad,
	g anydiff.Grad) (anyvec.Vector, anyrnn.StateGrad) {
	for _, p := range c.pools() {
		g[p] = p.Vector.Creator().MakeVector(p.Vector.Len())
		defer func(p *anydiff.Var) {
			delete(g, p)
		}(p)
	}

	c.Logits.Propagate(u, g)

	var cg *CellGrad
	if s != nil {
		cg = s.(*CellGrad)
	}

	// The greedy label in the output state is produced by an
	// argmax, so its upstream gradient is discarded.

	ctxUp := g[c.CtxOutPool]
	if cg != nil {
		ctxUp.Add(cg.Context.Vector)
	}

	var postDown anyrnn.StateGrad
	if c.PostRes != nil {
		var postUp anyrnn.StateGrad
		if cg != nil {
			postUp = cg.PostContext
		}
		inDown, stateDown := c.PostRes.Propagate(g[c.PostOutPool], postUp, g)
		postDown = stateDown
		ctxUp.Add(inDown)
	} else if cg != nil {
		postDown = cg.PostContext
	}

	c.Ctx.Propagate(ctxUp, g)

	var preUp anyrnn.StateGrad
	if cg != nil {
		preUp = cg.PreContext
	}
	rnnInDown, preDown := c.PreRes.Propagate(g[c.PreOutPool], preUp, g)
	c.RNNIn.Propagate(rnnInDown, g)

	pres := c.OutState.Present()
	return g[c.InPool], &CellGrad{
		PreContext:  preDown,
		PostContext: postDown,
		LastLabel:   &anyrnn.VecState{Vector: g[c.LabelPool], PresentMap: pres},
		Context:     &anyrnn.VecState{Vector: g[c.CtxPool], PresentMap: pres},
	}
}

func (c *cellRes) pools() []*anydiff.Var {
	res := []*anydiff.Var{c.InPool, c.LabelPool, c.CtxPool, c.PreOutPool,
		c.CtxOutPool}
	if c.PostOutPool != nil {
		res = append(res, c.PostOutPool)
	}
	return res
}
