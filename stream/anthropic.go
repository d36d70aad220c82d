package stream

import (
	"encoding/json"
	"io"
	"strings"
)

// anthropicDecoder handles the Anthropic SSE grammar: "event: <name>" lines
// interleaved with "data: <json>" lines. The most recent event name decides
// how a data payload is interpreted, so it is carried as local state until
// overwritten by the next "event:" line.
type anthropicDecoder struct {
	lines        *lineReader
	currentEvent string
	finished     bool
}

// NewAnthropicDecoder decodes an Anthropic messages stream.
func NewAnthropicDecoder(r io.Reader) Decoder {
	return &anthropicDecoder{lines: newLineReader(r)}
}

type anthropicDelta struct {
	Delta struct {
		Text *string `json:"text"`
	} `json:"delta"`
}

func (d *anthropicDecoder) Next() (Chunk, error) {
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

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "event:") {
			d.currentEvent = strings.TrimSpace(strings.TrimPrefix(trimmed, "event:"))
			// message_stop ends the stream immediately; any data on later
			// lines is discarded.
			if d.currentEvent == "message_stop" {
				d.finished = true
				return Chunk{Done: true}, nil
			}
			continue
		}

		payload, ok := dataPayload(line)
		if !ok {
			continue
		}
		if d.currentEvent != "content_block_delta" {
			continue
		}

		var evt anthropicDelta
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}
		if evt.Delta.Text == nil {
			continue
		}
		return Chunk{Text: *evt.Delta.Text}, nil
	}
}
