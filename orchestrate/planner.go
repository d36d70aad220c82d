package orchestrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"canopy/model"
)

// minDirections is the minimum number of planned directions a plan call must
// return; fewer fails the whole orchestration.
const minDirections = 3

var (
	// ErrTooFewDirections is returned when the planner produced a valid
	// array with fewer than the required number of directions.
	ErrTooFewDirections = errors.New("AI returned fewer than 3 planned directions")

	// ErrUnparsableResponse covers model output that is not the JSON shape
	// a step asked for, including an empty note-candidate array.
	ErrUnparsableResponse = errors.New("Failed to parse AI response")
)

const plannerSystemPrompt = `You are a scientific research planner. Given a lineage of research notes, propose distinct directions for the next investigation step.

Respond with ONLY a JSON array, no prose. Each element:
{"summaryTitle": "<short title>", "suggestedType": "observation" | "mechanism" | "validation", "searchQuery": "<web search query grounding this direction>"}

Propose at least 3 directions. Prefer directions that extend or challenge the most recent note.`

func buildPlanPrompt(ancestryText, gradedContext string) string {
	var b strings.Builder
	b.WriteString("Research lineage, oldest ancestor first:\n\n")
	b.WriteString(ancestryText)
	if gradedContext != "" {
		b.WriteString("Graded notes across the canvas:\n")
		b.WriteString(gradedContext)
		b.WriteString("\n")
	}
	b.WriteString("Propose the next research directions as a JSON array.")
	return b.String()
}

// plannedDirection is the wire shape the planner is asked to emit.
type plannedDirection struct {
	SummaryTitle  string `json:"summaryTitle"`
	SuggestedType string `json:"suggestedType"`
	SearchQuery   string `json:"searchQuery"`
}

// ParseDirections decodes the planner's reply into directions. Markdown code
// fences around the array are tolerated. Invalid JSON maps to
// ErrUnparsableResponse; a valid array with fewer than minDirections entries
// maps to ErrTooFewDirections.
func ParseDirections(raw, sourceNodeID string, newID func() string) ([]model.Direction, error) {
	var planned []plannedDirection
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &planned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}
	if len(planned) < minDirections {
		return nil, ErrTooFewDirections
	}

	directions := make([]model.Direction, 0, len(planned))
	for _, p := range planned {
		suggested := model.NodeType(strings.ToLower(strings.TrimSpace(p.SuggestedType)))
		if !model.ValidNodeType(suggested) {
			suggested = model.NodeObservation
		}
		directions = append(directions, model.Direction{
			ID:            newID(),
			SummaryTitle:  strings.TrimSpace(p.SummaryTitle),
			SuggestedType: suggested,
			SearchQuery:   strings.TrimSpace(p.SearchQuery),
			SourceNodeID:  sourceNodeID,
		})
	}
	return directions, nil
}

// stripCodeFence unwraps a ```json ... ``` block if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
