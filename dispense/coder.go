// Package dispense turns raw utterances and transcripts into
// fixed-shape minibatches for training and decoding.
package dispense

import (
	"fmt"
	"sort"
	"strings"

	"github.com/unixpickle/serializer"
)

const (
	// EndLabel is the code of the end-of-sequence marker.
	EndLabel = 0

	// StartLabel is the code of the start-of-sequence marker.
	StartLabel = 1
)

func init() {
	var c CharCoder
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCharCoder)
	var p PhonemeCoder
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePhonemeCoder)
}

// A TargetCoder maps raw transcript words to dense integer
// label codes.
type TargetCoder interface {
	Normalize(words []string) []string
	Encode(tokens []string) ([]int, error)
	NumLabels() int
}

// A CharCoder spells transcripts out character by character
// over a fixed 33 symbol alphabet.
//
// Code 0 is the end marker '>' and code 1 is the start marker
// '<'. Normalize rewrites characters outside the alphabet as
// '?'; Encode rejects anything it cannot look up.
type CharCoder struct {
	runes []rune
	codes map[rune]int
}

// NewCharCoder creates the character coder.
func NewCharCoder() *CharCoder {
	runes := []rune{'>', '<', ' ', ',', '.', '\'', '?'}
	for r := 'a'; r <= 'z'; r++ {
		runes = append(runes, r)
	}
	codes := map[rune]int{}
	for i, r := range runes {
		codes[r] = i
	}
	return &CharCoder{runes: runes, codes: codes}
}

// DeserializeCharCoder deserializes a CharCoder.
func DeserializeCharCoder(d []byte) (*CharCoder, error) {
	return NewCharCoder(), nil
}

// Normalize rewrites a word-level transcript as a character
// sequence wrapped in start and end markers.
//
// Ordinary words are followed by a space, punctuation words
// become bare symbols, everything is lowercased, and
// characters outside the alphabet become '?'.
func (c *CharCoder) Normalize(words []string) []string {
	tokens := []string{"<"}
	for _, w := range words {
		switch w {
		case ",COMMA":
			tokens = append(tokens, ",")
		case ".PERIOD":
			tokens = append(tokens, ".")
		default:
			tokens = append(tokens, w, " ")
		}
	}
	tokens[len(tokens)-1] = ">"

	var res []string
	for _, t := range tokens {
		for _, r := range strings.ToLower(t) {
			if _, ok := c.codes[r]; !ok {
				r = '?'
			}
			res = append(res, string(r))
		}
	}
	return res
}

// Encode maps character tokens to label codes. A token that
// is not a single alphabet character is a data error.
func (c *CharCoder) Encode(tokens []string) ([]int, error) {
	res := make([]int, len(tokens))
	for i, t := range tokens {
		runes := []rune(t)
		if len(runes) != 1 {
			return nil, fmt.Errorf("not a single character: %q", t)
		}
		code, ok := c.codes[runes[0]]
		if !ok {
			return nil, fmt.Errorf("unknown character: %q", t)
		}
		res[i] = code
	}
	return res, nil
}

// Decode maps label codes back to a string.
func (c *CharCoder) Decode(codes []int) string {
	var res []rune
	for _, code := range codes {
		if code < 0 || code >= len(c.runes) {
			panic(fmt.Sprintf("label code %d outside of %d labels", code, len(c.runes)))
		}
		res = append(res, c.runes[code])
	}
	return string(res)
}

// NumLabels returns the alphabet size.
func (c *CharCoder) NumLabels() int {
	return len(c.runes)
}

// SerializerType returns the unique ID used to serialize a
// CharCoder with the serializer package.
func (c *CharCoder) SerializerType() string {
	return "github.com/MelancholyMing/tfkaldi/dispense.CharCoder"
}

// Serialize serializes the CharCoder.
func (c *CharCoder) Serialize() ([]byte, error) {
	return []byte{}, nil
}

// A PhonemeCoder maps phone tokens to label codes using a
// vocabulary discovered from a transcript corpus.
type PhonemeCoder struct {
	phones []string
	codes  map[string]int
}

// NewPhonemeCoder creates a coder over the sorted phone
// vocabulary found in the transcripts.
//
// It fails if the discovered vocabulary size does not match
// numLabels, since a mismatch would silently change the
// output layer size.
func NewPhonemeCoder(transcripts map[string][]string, numLabels int) (*PhonemeCoder, error) {
	set := map[string]bool{}
	for _, words := range transcripts {
		for _, w := range words {
			set[w] = true
		}
	}
	var phones []string
	for p := range set {
		phones = append(phones, p)
	}
	sort.Strings(phones)
	if len(phones) != numLabels {
		return nil, fmt.Errorf("phoneme vocabulary should have %d entries, but got %d",
			numLabels, len(phones))
	}
	return newPhonemeCoder(phones), nil
}

// DeserializePhonemeCoder deserializes a PhonemeCoder.
func DeserializePhonemeCoder(d []byte) (*PhonemeCoder, error) {
	phones := strings.Fields(string(d))
	if len(phones) == 0 {
		return nil, fmt.Errorf("deserialize PhonemeCoder: empty vocabulary")
	}
	return newPhonemeCoder(phones), nil
}

func newPhonemeCoder(phones []string) *PhonemeCoder {
	codes := map[string]int{}
	for i, p := range phones {
		codes[p] = i
	}
	return &PhonemeCoder{phones: phones, codes: codes}
}

// Normalize is the identity for phone transcripts.
func (p *PhonemeCoder) Normalize(words []string) []string {
	return append([]string{}, words...)
}

// Encode maps phone tokens to label codes.
func (p *PhonemeCoder) Encode(tokens []string) ([]int, error) {
	res := make([]int, len(tokens))
	for i, t := range tokens {
		code, ok := p.codes[t]
		if !ok {
			return nil, fmt.Errorf("unknown phoneme: %q", t)
		}
		res[i] = code
	}
	return res, nil
}

// NumLabels returns the vocabulary size.
func (p *PhonemeCoder) NumLabels() int {
	return len(p.phones)
}

// SerializerType returns the unique ID used to serialize a
// PhonemeCoder with the serializer package.
func (p *PhonemeCoder) SerializerType() string {
	return "github.com/MelancholyMing/tfkaldi/dispense.PhonemeCoder"
}

// Serialize serializes the PhonemeCoder.
func (p *PhonemeCoder) Serialize() ([]byte, error) {
	return []byte(strings.Join(p.phones, " ")), nil
}
