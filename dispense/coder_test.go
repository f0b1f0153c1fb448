package dispense

import (
	"reflect"
	"strings"
	"testing"
)

func TestCharCoderNormalize(t *testing.T) {
	coder := NewCharCoder()
	actual := coder.Normalize([]string{"THE", ",COMMA", "CAT"})
	expected := []string{"<", "t", "h", "e", " ", ",", "c", "a", "t", ">"}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestCharCoderRoundTrip(t *testing.T) {
	coder := NewCharCoder()
	codes, err := coder.Encode(coder.Normalize([]string{"HELLO", "WORLD"}))
	if err != nil {
		t.Fatal(err)
	}
	if codes[0] != StartLabel {
		t.Errorf("expected start label %d, but got %d", StartLabel, codes[0])
	}
	if codes[len(codes)-1] != EndLabel {
		t.Errorf("expected end label %d, but got %d", EndLabel, codes[len(codes)-1])
	}
	if coder.Decode(codes) != "<hello world>" {
		t.Errorf("unexpected decode: %q", coder.Decode(codes))
	}
}

func TestCharCoderUnknown(t *testing.T) {
	coder := NewCharCoder()

	// Normalize rewrites characters outside the alphabet.
	codes, err := coder.Encode(coder.Normalize([]string{"A#B"}))
	if err != nil {
		t.Fatal(err)
	}
	if coder.Decode(codes) != "<a?b>" {
		t.Errorf("expected %q but got %q", "<a?b>", coder.Decode(codes))
	}

	// Encode itself fails loudly on anything it cannot look up.
	if _, err := coder.Encode([]string{"#"}); err == nil {
		t.Error("expected error on unknown character")
	}
	if _, err := coder.Encode([]string{""}); err == nil {
		t.Error("expected error on empty token")
	}
	if _, err := coder.Encode([]string{"ab"}); err == nil {
		t.Error("expected error on multi-character token")
	}
}

func TestCharCoderLabels(t *testing.T) {
	coder := NewCharCoder()
	if coder.NumLabels() != 33 {
		t.Errorf("expected 33 labels, but got %d", coder.NumLabels())
	}
}

func TestPhonemeCoder(t *testing.T) {
	transcripts := map[string][]string{
		"utt1": {"ah", "b"},
		"utt2": {"b", "sil"},
	}
	coder, err := NewPhonemeCoder(transcripts, 3)
	if err != nil {
		t.Fatal(err)
	}
	codes, err := coder.Encode(coder.Normalize([]string{"b", "sil", "ah"}))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(codes, []int{1, 2, 0}) {
		t.Errorf("expected [1 2 0] but got %v", codes)
	}

	if _, err := NewPhonemeCoder(transcripts, 4); err == nil {
		t.Error("expected error on vocabulary size mismatch")
	}
	if _, err := coder.Encode([]string{"zz"}); err == nil {
		t.Error("expected error on unknown phoneme")
	}
}

func TestPhonemeCoderSerialize(t *testing.T) {
	transcripts := map[string][]string{"utt1": {"ah", "b", "sil"}}
	coder, err := NewPhonemeCoder(transcripts, 3)
	if err != nil {
		t.Fatal(err)
	}
	data, err := coder.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	coder2, err := DeserializePhonemeCoder(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(coder2.phones, coder.phones) {
		t.Errorf("expected %v but got %v", coder.phones, coder2.phones)
	}
}

func TestReadTranscripts(t *testing.T) {
	in := "utt1 HELLO WORLD\n\nutt2 HI\n"
	res, err := ReadTranscripts(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string][]string{
		"utt1": {"HELLO", "WORLD"},
		"utt2": {"HI"},
	}
	if !reflect.DeepEqual(res, expected) {
		t.Errorf("expected %v but got %v", expected, res)
	}
}
