package dispense

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Dispenser pairs a feature reader with encoded transcripts
// and serves fixed-size batches.
type Dispenser struct {
	Reader   FeatureReader
	Coder    TargetCoder
	Creator  anyvec.Creator
	Size     int
	MaxTime  int
	Encoding TargetEncoding

	transcripts map[string][]int
}

// NewDispenser encodes every transcript up front and creates
// a Dispenser around the reader.
func NewDispenser(c anyvec.Creator, reader FeatureReader, coder TargetCoder,
	transcripts map[string][]string, size, maxTime int,
	enc TargetEncoding) (*Dispenser, error) {
	if size <= 0 {
		return nil, errors.New("new dispenser: batch size must be positive")
	}
	encoded := map[string][]int{}
	for id, words := range transcripts {
		codes, err := coder.Encode(coder.Normalize(words))
		if err != nil {
			return nil, essentials.AddCtx("encode transcript "+id, err)
		}
		encoded[id] = codes
	}
	return &Dispenser{
		Reader:      reader,
		Coder:       coder,
		Creator:     c,
		Size:        size,
		MaxTime:     maxTime,
		Encoding:    enc,
		transcripts: encoded,
	}, nil
}

// GetBatch reads the next Size utterances and assembles them
// into a batch, advancing the read cursor.
func (d *Dispenser) GetBatch() (*Batch, error) {
	inputs := make([][][]float64, 0, d.Size)
	targets := make([][]int, 0, d.Size)
	for i := 0; i < d.Size; i++ {
		u := d.Reader.NextUtterance()
		codes, ok := d.transcripts[u.ID]
		if !ok {
			return nil, fmt.Errorf("get batch: no transcript for utterance %q", u.ID)
		}
		inputs = append(inputs, u.Features)
		targets = append(targets, codes)
	}
	return AssembleBatch(d.Creator, inputs, targets, d.Size, d.MaxTime,
		d.Coder.NumLabels(), d.Encoding)
}

// SkipBatch moves the cursor past the next batch without
// assembling it.
func (d *Dispenser) SkipBatch() {
	d.Reader.Advance(d.Size)
}

// ReturnBatch moves the cursor back over the previous batch
// so it is served again.
func (d *Dispenser) ReturnBatch() {
	d.Reader.Rewind(d.Size)
}

// BatchCount returns how many full batches remain before the
// reader wraps around.
func (d *Dispenser) BatchCount() int {
	return d.Reader.Remaining() / d.Size
}

// SplitReader detaches the next n utterances into an
// independent reader, typically to hold out validation data.
func (d *Dispenser) SplitReader(n int) FeatureReader {
	return d.Reader.Split(n)
}
