package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"canopy/model"
	"canopy/provider"
	"canopy/search"
)

const writerSystemPrompt = `You are a scientific research writer. Given a lineage of research notes, one chosen direction and numbered grounding sources, write the next note.

Respond with ONLY a JSON array containing one element:
{"title": "<short title>", "text": "<note body, citing sources inline as [1], [2], ...>", "type": "observation" | "mechanism" | "validation"}`

// noteCandidateWire is the JSON shape the writer call is asked to emit.
type noteCandidateWire struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Type  string `json:"type"`
}

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// GenerateNote runs the grounding search and one generation call for a
// single direction. The completion is retried on transient failure with the
// same budget the planner uses; search retries independently inside the
// search client.
func (o *Orchestrator) GenerateNote(ctx context.Context, direction model.Direction, ancestryText string) (model.NoteCandidate, error) {
	var results []search.Result
	if o.searcher != nil && direction.SearchQuery != "" {
		var err error
		results, err = o.searcher.Search(ctx, direction.SearchQuery, search.DefaultNumResults)
		if err != nil {
			return model.NoteCandidate{}, fmt.Errorf("grounding search: %w", err)
		}
	}

	prompt := buildNotePrompt(direction, ancestryText, results)
	resp, err := withRetry(ctx, o.log, o.sleep, func() (provider.Response, error) {
		return o.completer.Complete(ctx, provider.RequestOptions{
			Messages: []provider.Message{
				provider.TextMessage(provider.RoleSystem, writerSystemPrompt),
				provider.TextMessage(provider.RoleUser, prompt),
			},
		})
	})
	if err != nil {
		return model.NoteCandidate{}, err
	}
	return parseNoteCandidate(resp.Text, direction, results)
}

// GenerateNotes fans out GenerateNote across directions concurrently.
// Results come back in direction order; any single failure aborts the whole
// batch.
func (o *Orchestrator) GenerateNotes(ctx context.Context, directions []model.Direction, ancestryText string) ([]model.NoteCandidate, error) {
	candidates := make([]model.NoteCandidate, len(directions))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range directions {
		g.Go(func() error {
			candidate, err := o.GenerateNote(gctx, d, ancestryText)
			if err != nil {
				return fmt.Errorf("direction %q: %w", d.SummaryTitle, err)
			}
			candidates[i] = candidate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func buildNotePrompt(direction model.Direction, ancestryText string, results []search.Result) string {
	var b strings.Builder
	b.WriteString("Research lineage, oldest ancestor first:\n\n")
	b.WriteString(ancestryText)
	fmt.Fprintf(&b, "Chosen direction: %s (suggested type: %s)\n\n", direction.SummaryTitle, direction.SuggestedType)
	if len(results) > 0 {
		b.WriteString("Grounding sources:\n")
		for i, r := range results {
			fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.URL, r.Text)
		}
	}
	b.WriteString("Write the next note as a single-element JSON array.")
	return b.String()
}

// parseNoteCandidate decodes the writer's reply. Invalid JSON and an empty
// array both map to ErrUnparsableResponse.
func parseNoteCandidate(raw string, direction model.Direction, results []search.Result) (model.NoteCandidate, error) {
	var wire []noteCandidateWire
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &wire); err != nil {
		return model.NoteCandidate{}, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}
	if len(wire) == 0 {
		return model.NoteCandidate{}, ErrUnparsableResponse
	}

	first := wire[0]
	noteType := model.NodeType(strings.ToLower(strings.TrimSpace(first.Type)))
	if !model.ValidNodeType(noteType) {
		noteType = direction.SuggestedType
	}
	title := strings.TrimSpace(first.Title)
	if title == "" {
		title = direction.SummaryTitle
	}
	return model.NoteCandidate{
		Title:     title,
		Text:      first.Text,
		Type:      noteType,
		Citations: extractCitations(first.Text, results),
	}, nil
}

// extractCitations resolves inline [n] markers against the numbered search
// results. Markers without a matching source are ignored; each source is
// cited at most once.
func extractCitations(text string, results []search.Result) []model.Citation {
	var citations []model.Citation
	seen := map[int]bool{}
	for _, match := range citationMarker.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(match[1])
		if err != nil || idx < 1 || idx > len(results) || seen[idx] {
			continue
		}
		seen[idx] = true
		r := results[idx-1]
		citations = append(citations, model.Citation{
			Index:         idx,
			Title:         r.Title,
			URL:           r.URL,
			PublishedDate: r.PublishedDate,
		})
	}
	return citations
}
