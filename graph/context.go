package graph

import (
	"fmt"
	"math"
	"strings"

	"canopy/model"
)

const (
	gradeMin      = 1
	gradeMax      = 5
	gradeMidpoint = 3

	emptyTextFallback = "(no content)"
)

// GradedNode is one entry of the graded-summary context handed to the
// planner for prioritization.
type GradedNode struct {
	ID    string
	Type  model.NodeType
	Grade int
	Text  string
}

// BuildNodeSuggestionContext filters to graded nodes and normalizes them for
// prompt use. Grades clamp into [1,5]; a non-finite or zero grade becomes
// the midpoint rather than an error, and empty text gets a fixed fallback.
func BuildNodeSuggestionContext(nodes []model.Node) []GradedNode {
	var graded []GradedNode
	for _, n := range nodes {
		if n.Grade == nil {
			continue
		}
		text := n.Text
		if strings.TrimSpace(text) == "" {
			text = emptyTextFallback
		}
		graded = append(graded, GradedNode{
			ID:    n.ID,
			Type:  n.Type,
			Grade: clampGrade(*n.Grade),
			Text:  text,
		})
	}
	return graded
}

// FormatSuggestionContext renders graded nodes as prompt text, one line per
// node.
func FormatSuggestionContext(graded []GradedNode) string {
	var b strings.Builder
	for _, g := range graded {
		fmt.Fprintf(&b, "- [%s, grade %d/5] %s\n", strings.ToUpper(string(g.Type)), g.Grade, g.Text)
	}
	return b.String()
}

func clampGrade(grade float64) int {
	if math.IsNaN(grade) || math.IsInf(grade, 0) || grade == 0 {
		return gradeMidpoint
	}
	switch {
	case grade < gradeMin:
		return gradeMin
	case grade > gradeMax:
		return gradeMax
	}
	return int(math.Round(grade))
}
