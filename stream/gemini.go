package stream

import (
	"encoding/json"
	"io"
	"strings"
)

// geminiDecoder handles the Gemini SSE grammar: each "data:" payload carries
// candidates[0].content.parts[], and all parts of one payload are joined
// into a single chunk. Payloads with zero characters across parts yield no
// chunk at all.
type geminiDecoder struct {
	lines    *lineReader
	finished bool
}

// NewGeminiDecoder decodes a Gemini streamGenerateContent stream.
func NewGeminiDecoder(r io.Reader) Decoder {
	return &geminiDecoder{lines: newLineReader(r)}
}

type geminiPayload struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (d *geminiDecoder) Next() (Chunk, error) {
	if d.finished {
		return Chunk{}, io.EOF
	}
	for {
		line, err := d.lines.nextLine()
		if err == io.EOF {
			d.finished = true
			return Chunk{Done: true}, nil
		}
		if err != nil {
			return Chunk{}, err
		}
		if ignorable(line) {
			continue
		}
		payload, ok := dataPayload(line)
		if !ok {
			continue
		}

		var evt geminiPayload
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}
		if len(evt.Candidates) == 0 {
			continue
		}

		var joined strings.Builder
		for _, part := range evt.Candidates[0].Content.Parts {
			joined.WriteString(part.Text)
		}
		if joined.Len() == 0 {
			continue
		}
		return Chunk{Text: joined.String()}, nil
	}
}
