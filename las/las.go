// Package las implements the attend-and-spell half of a
// listen-attend-spell speech recognizer: a recurrent decoder
// cell which aligns itself over encoder features with a soft
// attention mechanism and emits one label distribution per
// step.
package las

import (
	"github.com/unixpickle/anydiff/anyseq"
)

// An Encoder turns padded input frame sequences into high
// level features, possibly compressing the time axis.
//
// The returned lengths give the number of meaningful
// timesteps per sequence after compression.
type Encoder interface {
	Encode(in anyseq.Seq, lens []int) (anyseq.Seq, []int)
}
