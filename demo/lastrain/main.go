// Command lastrain trains a character-level listener/speller
// on a synthetic corpus and greedily decodes a held-out batch.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"

	"github.com/MelancholyMing/tfkaldi/config"
	"github.com/MelancholyMing/tfkaldi/dispense"
	"github.com/MelancholyMing/tfkaldi/las"
	"github.com/MelancholyMing/tfkaldi/listen"
	"github.com/MelancholyMing/tfkaldi/train"
)

const corpusSize = 80

func main() {
	var confPath string
	flag.StringVar(&confPath, "config", "", "configuration file")
	flag.Parse()

	log.Println("Setting up...")

	conf := config.Default()
	if confPath != "" {
		var err error
		conf, err = config.Load(confPath)
		if err != nil {
			essentials.Die(err)
		}
	}

	creator := anyvec32.CurrentCreator()
	coder := dispense.NewCharCoder()

	utts, transcripts := syntheticCorpus(conf.Listener.InputDim, corpusSize)
	reader := dispense.NewMemoryReader(utts)

	encoding, err := conf.Batch.TargetEncoding()
	if err != nil {
		essentials.Die(err)
	}
	valReader := reader.Split(conf.Batch.Size)
	valDisp, err := dispense.NewDispenser(creator, valReader, coder, transcripts,
		conf.Batch.Size, conf.Batch.MaxTime, encoding)
	if err != nil {
		essentials.Die(err)
	}

	listener := listen.NewListener(creator, conf.Listener.InputDim,
		conf.Listener.StateSize, conf.Listener.OutputDim, conf.Listener.PyramidLayers)
	variant := las.SingleRNN
	if conf.Cell.DualRNN {
		variant = las.DualRNN
	}
	cell := las.NewCell(creator, las.CellConfig{
		NumLabels:    coder.NumLabels(),
		FeatureDim:   conf.Listener.OutputDim,
		StateSize:    conf.Cell.StateSize,
		HiddenSize:   conf.Cell.HiddenSize,
		HiddenLayers: conf.Cell.HiddenLayers,
		Variant:      variant,
		FeedProb:     conf.Cell.FeedProb,
		StartLabel:   dispense.StartLabel,
	})

	samples, err := train.Samples(reader, coder, transcripts)
	if err != nil {
		essentials.Die(err)
	}

	t := &train.Trainer{
		Listener: listener,
		Cell:     cell,
		Cost:     anynet.DotCost{},
		Params:   append(listener.Parameters(), cell.Parameters()...),
		Creator:  creator,
		MaxTime:  conf.Batch.MaxTime,
		Average:  conf.Train.Average,
	}

	var iterNum int
	s := &anysgd.SGD{
		Fetcher:     t,
		Gradienter:  t,
		Transformer: &anysgd.Adam{},
		Samples:     samples,
		Rater:       anysgd.ConstRater(conf.Train.StepSize),
		StatusFunc: func(b anysgd.Batch) {
			log.Printf("iter %d: cost=%v", iterNum, t.LastCost)
			iterNum++
		},
		BatchSize: conf.Batch.Size,
	}

	log.Println("Press ctrl+c once to stop...")
	s.Run(rip.NewRIP().Chan())

	log.Println("Decoding held-out batch...")
	decodeBatch(valDisp, listener, cell, coder)
}

func decodeBatch(d *dispense.Dispenser, l *listen.Listener, cell *las.Cell,
	coder *dispense.CharCoder) {
	b, err := d.GetBatch()
	if err != nil {
		essentials.Die(err)
	}
	features, lens := l.Encode(b.InputSeq(), b.SeqLens)
	packed, time := las.PackFeatures(features, cell.FeatureDim)
	cell.SetFeatures(packed, lens, time)
	for i, codes := range las.Spell(cell, b.LabelLen+5) {
		log.Printf("utterance %d: %q", i, decodeText(coder, codes))
	}
}

// decodeText renders label codes as text, stopping at the
// first end-of-sequence marker.
func decodeText(coder *dispense.CharCoder, codes []int) string {
	for i, c := range codes {
		if c == dispense.EndLabel {
			return coder.Decode(codes[:i+1])
		}
	}
	return coder.Decode(codes)
}

// syntheticCorpus fabricates transcribed utterances whose
// features are noisy per-character embeddings, three frames
// per character.
func syntheticCorpus(numFeatures, count int) ([]*dispense.Utterance,
	map[string][]string) {
	rng := rand.New(rand.NewSource(1))
	lexicon := []string{"speech", "model", "listen", "attend", "spell",
		"audio", "batch", "train"}

	embeddings := map[rune][]float64{}
	embed := func(r rune) []float64 {
		if e, ok := embeddings[r]; ok {
			return e
		}
		e := make([]float64, numFeatures)
		for i := range e {
			e[i] = rng.NormFloat64()
		}
		embeddings[r] = e
		return e
	}

	var utts []*dispense.Utterance
	transcripts := map[string][]string{}
	for i := 0; i < count; i++ {
		words := make([]string, 1+rng.Intn(3))
		for j := range words {
			words[j] = lexicon[rng.Intn(len(lexicon))]
		}
		text := strings.Join(words, " ")

		steps := len(text) * 3
		feats := make([][]float64, numFeatures)
		for f := range feats {
			feats[f] = make([]float64, steps)
		}
		for t := 0; t < steps; t++ {
			e := embed(rune(text[t/3]))
			for f := range feats {
				feats[f][t] = e[f] + 0.1*rng.NormFloat64()
			}
		}

		id := fmt.Sprintf("utt%03d", i)
		utts = append(utts, &dispense.Utterance{ID: id, Features: feats})
		transcripts[id] = words
	}
	return utts, transcripts
}
