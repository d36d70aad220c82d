// Package model defines the shared domain types for the canopy note graph.
//
// The graph, ghost, orchestrate and storage packages all exchange these
// types; keeping them here avoids import cycles between the store and the
// components that mutate it.
package model

import "time"

// NodeType classifies a research note.
type NodeType string

const (
	NodeObservation NodeType = "observation"
	NodeMechanism   NodeType = "mechanism"
	NodeValidation  NodeType = "validation"
)

// ValidNodeType reports whether t is one of the three note types.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeObservation, NodeMechanism, NodeValidation:
		return true
	}
	return false
}

// Node is a committed note on the canvas.
type Node struct {
	ID        string     `json:"id"`
	Type      NodeType   `json:"type"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Grade     *float64   `json:"grade,omitempty"` // nil means ungraded
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Edge connects a parent (Source) to a child (Target).
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Citation is one grounding source referenced from generated text via an
// inline [n] marker. Index is 1-based and local to a single generation call.
type Citation struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Direction is one planner-proposed avenue of investigation. It carries no
// generated prose; the body is produced later, when the matching ghost
// proposal is accepted.
type Direction struct {
	ID            string   `json:"id"`
	SummaryTitle  string   `json:"summary_title"`
	SuggestedType NodeType `json:"suggested_type"`
	SearchQuery   string   `json:"search_query"`
	SourceNodeID  string   `json:"source_node_id"`
}

// GhostStatus is the lifecycle state of a staged proposal.
type GhostStatus string

const (
	GhostProposed GhostStatus = "proposed"
	GhostPending  GhostStatus = "pending"
	GhostComplete GhostStatus = "complete"
	GhostError    GhostStatus = "error"
)

// GhostFailure records why an accept-time generation failed, so the user can
// decide between retry and dismiss.
type GhostFailure struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Code      string `json:"code"`
}

// GhostProposal is a speculative note staged against a parent node. It is
// created from a planner Direction and either promoted into a permanent Node
// or dismissed; it never outlives a successful promotion.
type GhostProposal struct {
	ID            string        `json:"id"`
	ParentID      string        `json:"parent_id"`
	SuggestedType NodeType      `json:"suggested_type"`
	Direction     Direction     `json:"direction"`
	Text          string        `json:"text,omitempty"`
	Citations     []Citation    `json:"citations,omitempty"`
	Status        GhostStatus   `json:"status"`
	Failure       *GhostFailure `json:"failure,omitempty"`
}

// NoteCandidate is the output of one single-direction generation call.
type NoteCandidate struct {
	Title     string
	Text      string
	Type      NodeType
	Citations []Citation
}

// Snapshot is a consistent copy of the whole graph, used for persistence and
// read-only traversal.
type Snapshot struct {
	Nodes  []Node
	Edges  []Edge
	Ghosts []GhostProposal
}
