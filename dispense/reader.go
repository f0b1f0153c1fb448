package dispense

import "fmt"

// An Utterance is a single recording's acoustic features,
// indexed as Features[feature][time].
type Utterance struct {
	ID       string
	Features [][]float64
}

// NumFeatures returns the feature dimensionality.
func (u *Utterance) NumFeatures() int {
	return len(u.Features)
}

// NumSteps returns the number of timesteps.
func (u *Utterance) NumSteps() int {
	if len(u.Features) == 0 {
		return 0
	}
	return len(u.Features[0])
}

// A FeatureReader walks a corpus of utterances with a cyclic
// read cursor.
//
// Split detaches the next n utterances into an independent
// reader, removing them from the receiver.
type FeatureReader interface {
	NextUtterance() *Utterance
	Advance(n int)
	Rewind(n int)
	Remaining() int
	Split(n int) FeatureReader
}

// A MemoryReader is a FeatureReader over an in-memory
// utterance list.
type MemoryReader struct {
	utts []*Utterance
	pos  int
}

// NewMemoryReader creates a MemoryReader.
func NewMemoryReader(utts []*Utterance) *MemoryReader {
	return &MemoryReader{utts: append([]*Utterance{}, utts...)}
}

// NextUtterance returns the utterance under the cursor and
// moves the cursor forward, wrapping at the end.
func (m *MemoryReader) NextUtterance() *Utterance {
	if len(m.utts) == 0 {
		panic("read from an empty reader")
	}
	res := m.utts[m.pos]
	m.pos = (m.pos + 1) % len(m.utts)
	return res
}

// Advance moves the cursor forward by n utterances.
func (m *MemoryReader) Advance(n int) {
	m.shift(n)
}

// Rewind moves the cursor backward by n utterances.
func (m *MemoryReader) Rewind(n int) {
	m.shift(-n)
}

// Remaining returns the number of utterances between the
// cursor and the end of the corpus.
func (m *MemoryReader) Remaining() int {
	return len(m.utts) - m.pos
}

// Split detaches the next n utterances.
func (m *MemoryReader) Split(n int) FeatureReader {
	if n <= 0 || m.pos+n > len(m.utts) {
		panic(fmt.Sprintf("cannot split %d utterances at position %d of %d",
			n, m.pos, len(m.utts)))
	}
	detached := append([]*Utterance{}, m.utts[m.pos:m.pos+n]...)
	m.utts = append(m.utts[:m.pos], m.utts[m.pos+n:]...)
	if len(m.utts) == 0 {
		m.pos = 0
	} else {
		m.pos %= len(m.utts)
	}
	return NewMemoryReader(detached)
}

func (m *MemoryReader) shift(n int) {
	if len(m.utts) == 0 {
		return
	}
	m.pos = ((m.pos+n)%len(m.utts) + len(m.utts)) % len(m.utts)
}
