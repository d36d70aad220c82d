package stream

import (
	"encoding/json"
	"io"
)

// openAIDecoder handles the OpenAI-compatible SSE grammar: every meaningful
// line is "data: <json>", and the literal payload "[DONE]" ends the stream.
type openAIDecoder struct {
	lines    *lineReader
	finished bool
}

// NewOpenAIDecoder decodes an OpenAI-style chat completion stream.
func NewOpenAIDecoder(r io.Reader) Decoder {
	return &openAIDecoder{lines: newLineReader(r)}
}

type openAIDelta struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (d *openAIDecoder) Next() (Chunk, error) {
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
		if payload == "[DONE]" {
			d.finished = true
			return Chunk{Done: true}, nil
		}

		var delta openAIDelta
		if err := json.Unmarshal([]byte(payload), &delta); err != nil {
			// One malformed payload line is not fatal to the stream.
			continue
		}
		if len(delta.Choices) == 0 || delta.Choices[0].Delta.Content == nil {
			continue
		}
		return Chunk{Text: *delta.Choices[0].Delta.Content}, nil
	}
}
