package dispense

import (
	"bufio"
	"io"
	"strings"

	"github.com/unixpickle/essentials"
)

// ReadTranscripts parses a transcript file with one utterance
// per line, formatted as an utterance ID followed by
// whitespace separated words.
func ReadTranscripts(r io.Reader) (map[string][]string, error) {
	res := map[string][]string{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		res[fields[0]] = fields[1:]
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("read transcripts", err)
	}
	return res, nil
}
