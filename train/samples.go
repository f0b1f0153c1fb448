// Package train fits a listener and attend-and-spell cell to
// a corpus of transcribed utterances.
package train

import (
	"fmt"

	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"

	"github.com/MelancholyMing/tfkaldi/dispense"
)

// A Sample is one transcribed utterance.
type Sample struct {
	Utterance *dispense.Utterance
	Targets   []int
}

// A SampleList is a list of samples for SGD.
type SampleList []*Sample

// Samples pairs every utterance remaining in the reader with
// its encoded transcript.
func Samples(r dispense.FeatureReader, coder dispense.TargetCoder,
	transcripts map[string][]string) (SampleList, error) {
	var res SampleList
	for i, n := 0, r.Remaining(); i < n; i++ {
		u := r.NextUtterance()
		words, ok := transcripts[u.ID]
		if !ok {
			return nil, fmt.Errorf("gather samples: no transcript for utterance %q", u.ID)
		}
		codes, err := coder.Encode(coder.Normalize(words))
		if err != nil {
			return nil, essentials.AddCtx("gather samples", err)
		}
		res = append(res, &Sample{Utterance: u, Targets: codes})
	}
	return res, nil
}

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-range of the list.
func (s SampleList) Slice(i, j int) anysgd.SampleList {
	return append(SampleList{}, s[i:j]...)
}

// GetSample returns the sample at index i.
func (s SampleList) GetSample(i int) *Sample {
	return s[i]
}
