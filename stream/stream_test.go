package stream

import (
	"io"
	"strings"
	"testing"
)

// chunkedReader delivers its input in fixed-size reads to exercise the
// partial-line buffering.
type chunkedReader struct {
	data string
	size int
	pos  int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.size
	if end > len(c.data) {
		end = len(c.data)
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += n
	return n, nil
}

// drain collects all chunks until the decoder reports io.EOF.
func drain(t *testing.T, d Decoder) []Chunk {
	t.Helper()
	var chunks []Chunk
	for {
		chunk, err := d.Next()
		if err == io.EOF {
			return chunks
		}
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func joinText(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func assertTerminal(t *testing.T, chunks []Chunk) {
	t.Helper()
	if len(chunks) == 0 {
		t.Fatal("expected at least the terminal chunk")
	}
	last := chunks[len(chunks)-1]
	if !last.Done || last.Text != "" {
		t.Errorf("terminal chunk: got %+v, want Done with empty text", last)
	}
	for i, c := range chunks[:len(chunks)-1] {
		if c.Done {
			t.Errorf("chunk %d: unexpected Done before end of stream", i)
		}
	}
}

func TestOpenAIDecoder(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   []string
	}{
		{
			name: "basic deltas with DONE sentinel",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
				"data: [DONE]\n",
			want: []string{"Hel", "lo"},
		},
		{
			name: "malformed payload line is skipped",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
				"data: {not json}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n" +
				"data: [DONE]\n",
			want: []string{"a", "b"},
		},
		{
			name: "missing delta content yields no chunk",
			input: "data: {\"choices\":[{\"delta\":{}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n" +
				"data: [DONE]\n",
			want: []string{"x"},
		},
		{
			name: "comments and keepalives ignored",
			input: ": keepalive\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\n" +
				": another comment\n" +
				"data: [DONE]\n",
			want: []string{"y"},
		},
		{
			name: "data after DONE is discarded",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"z\"}}]}\n" +
				"data: [DONE]\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n",
			want: []string{"z"},
		},
		{
			name:  "end of input without sentinel still terminates",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"only\"}}]}\n",
			want:  []string{"only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := drain(t, NewOpenAIDecoder(strings.NewReader(tt.input)))
			assertTerminal(t, chunks)
			texts := chunks[:len(chunks)-1]
			if len(texts) != len(tt.want) {
				t.Fatalf("got %d text chunks, want %d (%+v)", len(texts), len(tt.want), texts)
			}
			for i, want := range tt.want {
				if texts[i].Text != want {
					t.Errorf("chunk %d: got %q, want %q", i, texts[i].Text, want)
				}
			}
		})
	}
}

func TestOpenAIDecoderSplitAcrossReads(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"split payload\"}}]}\n" +
		"data: [DONE]\n"

	// Every chunking of the byte stream must produce the same joined text.
	for size := 1; size <= len(input); size++ {
		d := NewOpenAIDecoder(&chunkedReader{data: input, size: size})
		chunks := drain(t, d)
		assertTerminal(t, chunks)
		if got := joinText(chunks); got != "split payload" {
			t.Fatalf("read size %d: joined text %q, want %q", size, got, "split payload")
		}
	}
}

func TestOpenAIDecoderFlushesUnterminatedFinalLine(t *testing.T) {
	// No trailing newline: the buffered partial line is flushed at EOF.
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"
	chunks := drain(t, NewOpenAIDecoder(strings.NewReader(input)))
	assertTerminal(t, chunks)
	if got := joinText(chunks); got != "tail" {
		t.Errorf("joined text: got %q, want %q", got, "tail")
	}
}

func TestAnthropicDecoder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "content_block_delta events emit text",
			input: "event: message_start\n" +
				"data: {\"type\":\"message_start\"}\n" +
				"event: content_block_delta\n" +
				"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n" +
				"event: content_block_delta\n" +
				"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"lo\"}}\n" +
				"event: message_stop\n" +
				"data: {\"type\":\"message_stop\"}\n",
			want: []string{"Hel", "lo"},
		},
		{
			name: "event name persists across data lines",
			input: "event: content_block_delta\n" +
				"data: {\"delta\":{\"text\":\"a\"}}\n" +
				"data: {\"delta\":{\"text\":\"b\"}}\n" +
				"event: message_stop\n",
			want: []string{"a", "b"},
		},
		{
			name: "non-delta events contribute nothing",
			input: "event: ping\n" +
				"data: {\"delta\":{\"text\":\"ignored\"}}\n" +
				"event: content_block_delta\n" +
				"data: {\"delta\":{\"text\":\"kept\"}}\n" +
				"event: message_stop\n",
			want: []string{"kept"},
		},
		{
			name: "missing delta text yields no chunk",
			input: "event: content_block_delta\n" +
				"data: {\"delta\":{\"type\":\"input_json_delta\"}}\n" +
				"event: message_stop\n",
			want: nil,
		},
		{
			name: "data after message_stop is discarded",
			input: "event: content_block_delta\n" +
				"data: {\"delta\":{\"text\":\"x\"}}\n" +
				"event: message_stop\n" +
				"event: content_block_delta\n" +
				"data: {\"delta\":{\"text\":\"late\"}}\n",
			want: []string{"x"},
		},
		{
			name: "stream without message_stop terminates at EOF",
			input: "event: content_block_delta\n" +
				"data: {\"delta\":{\"text\":\"only\"}}\n",
			want: []string{"only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := drain(t, NewAnthropicDecoder(strings.NewReader(tt.input)))
			assertTerminal(t, chunks)
			texts := chunks[:len(chunks)-1]
			if len(texts) != len(tt.want) {
				t.Fatalf("got %d text chunks, want %d (%+v)", len(texts), len(tt.want), texts)
			}
			for i, want := range tt.want {
				if texts[i].Text != want {
					t.Errorf("chunk %d: got %q, want %q", i, texts[i].Text, want)
				}
			}
		})
	}
}

func TestGeminiDecoder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "parts of one payload join into a single chunk",
			input: "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"},{\"text\":\"lo\"}]}}]}\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\" world\"}]}}]}\n",
			want: []string{"Hello", " world"},
		},
		{
			name: "payload with zero characters yields no chunk",
			input: "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"\"},{\"text\":\"\"}]}}]}\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"x\"}]}}]}\n",
			want: []string{"x"},
		},
		{
			name:  "empty stream emits only the terminal chunk",
			input: "",
			want:  nil,
		},
		{
			name: "malformed payload skipped",
			input: "data: {broken\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ok\"}]}}]}\n",
			want: []string{"ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := drain(t, NewGeminiDecoder(strings.NewReader(tt.input)))
			assertTerminal(t, chunks)
			texts := chunks[:len(chunks)-1]
			if len(texts) != len(tt.want) {
				t.Fatalf("got %d text chunks, want %d (%+v)", len(texts), len(tt.want), texts)
			}
			for i, want := range tt.want {
				if texts[i].Text != want {
					t.Errorf("chunk %d: got %q, want %q", i, texts[i].Text, want)
				}
			}
		})
	}
}

func TestDecoderTerminalChunkExactlyOnce(t *testing.T) {
	decoders := map[string]Decoder{
		"openai":    NewOpenAIDecoder(strings.NewReader("data: [DONE]\n")),
		"anthropic": NewAnthropicDecoder(strings.NewReader("event: message_stop\n")),
		"gemini":    NewGeminiDecoder(strings.NewReader("")),
	}
	for name, d := range decoders {
		t.Run(name, func(t *testing.T) {
			chunk, err := d.Next()
			if err != nil || !chunk.Done {
				t.Fatalf("first Next: got (%+v, %v), want terminal chunk", chunk, err)
			}
			if _, err := d.Next(); err != io.EOF {
				t.Errorf("Next after terminal chunk: got %v, want io.EOF", err)
			}
			if _, err := d.Next(); err != io.EOF {
				t.Errorf("repeated Next after terminal chunk: got %v, want io.EOF", err)
			}
		})
	}
}

func TestLineReaderCarriageReturns(t *testing.T) {
	input := "data: [DONE]\r\n"
	chunks := drain(t, NewOpenAIDecoder(strings.NewReader(input)))
	assertTerminal(t, chunks)
	if len(chunks) != 1 {
		t.Errorf("got %d chunks, want only the terminal chunk", len(chunks))
	}
}
