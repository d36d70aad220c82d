// Package stream decodes provider streaming responses into vendor-neutral
// incremental text chunks.
//
// All three supported providers speak SSE (line-oriented "event:"/"data:"
// framing) but disagree on the payload grammar, so there is one decoder per
// provider. The decoders share the low-level line handling: bytes arrive
// with no framing guarantee, so a partial trailing line is buffered across
// reads and flushed as a final logical line at end of input.
//
// A decoder is a lazy, finite, non-restartable sequence. The last chunk is
// always Chunk{Done: true} with empty text, emitted exactly once; consumers
// must treat it as the sole terminal marker.
package stream

import (
	"io"
	"strings"
)

// Chunk is one incremental piece of a streamed completion.
type Chunk struct {
	Text string
	Done bool
}

// Decoder yields chunks until the terminal Done chunk, after which Next
// returns io.EOF.
type Decoder interface {
	Next() (Chunk, error)
}

const readSize = 4096

// lineReader turns an unframed byte stream into logical lines. The last,
// possibly-incomplete line is retained across reads and flushed on EOF.
type lineReader struct {
	r       io.Reader
	partial strings.Builder
	pending []string
	err     error
	buf     []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r, buf: make([]byte, readSize)}
}

// nextLine returns the next complete logical line, or io.EOF once the source
// and the partial-line buffer are both exhausted.
func (lr *lineReader) nextLine() (string, error) {
	for {
		if len(lr.pending) > 0 {
			line := lr.pending[0]
			lr.pending = lr.pending[1:]
			return line, nil
		}
		if lr.err != nil {
			if lr.err == io.EOF && lr.partial.Len() > 0 {
				line := lr.partial.String()
				lr.partial.Reset()
				return line, nil
			}
			return "", lr.err
		}

		n, err := lr.r.Read(lr.buf)
		if n > 0 {
			lr.split(string(lr.buf[:n]))
		}
		if err != nil {
			lr.err = err
		}
	}
}

func (lr *lineReader) split(chunk string) {
	for {
		idx := strings.IndexByte(chunk, '\n')
		if idx < 0 {
			lr.partial.WriteString(chunk)
			return
		}
		lr.partial.WriteString(chunk[:idx])
		lr.pending = append(lr.pending, strings.TrimSuffix(lr.partial.String(), "\r"))
		lr.partial.Reset()
		chunk = chunk[idx+1:]
	}
}

// ignorable reports whether a line is an SSE comment or keepalive.
func ignorable(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, ":")
}

// dataPayload extracts the payload of a "data:" line, reporting ok=false for
// lines with any other field name.
func dataPayload(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")), true
}
