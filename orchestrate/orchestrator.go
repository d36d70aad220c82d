// Package orchestrate implements the plan-then-generate pipeline: one
// planner call proposing research directions, staged as ghost proposals, and
// per-direction grounded note generation.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canopy/graph"
	"canopy/model"
	"canopy/provider"
	"canopy/search"
)

// ErrNoAPIKey is returned before any network call when the active provider
// has no usable credential.
var ErrNoAPIKey = errors.New("no API key configured for the active provider")

// Completer is the single-shot completion surface the orchestrator calls.
// *provider.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, opts provider.RequestOptions) (provider.Response, error)
}

// Searcher is the grounding-search collaborator. *search.Client satisfies
// it; a nil Searcher degrades to ungrounded generation.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]search.Result, error)
}

// Orchestrator drives plan and generation calls against one graph store.
type Orchestrator struct {
	store     *graph.Store
	completer Completer
	searcher  Searcher
	log       *zap.Logger

	// Overridable in tests for deterministic attempt counts and ids.
	sleep func(time.Duration)
	newID func() string
}

// NewOrchestrator wires a provider client from cfg. An empty API key is a
// configuration error surfaced here, before any network call.
func NewOrchestrator(cfg provider.Config, store *graph.Store, searcher Searcher, log *zap.Logger) (*Orchestrator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w (provider %s)", ErrNoAPIKey, cfg.Type)
	}
	client, err := provider.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return newOrchestrator(store, client, searcher, log), nil
}

func newOrchestrator(store *graph.Store, completer Completer, searcher Searcher, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:     store,
		completer: completer,
		searcher:  searcher,
		log:       log,
		sleep:     time.Sleep,
		newID:     uuid.NewString,
	}
}

// Generate runs one plan step for sourceNodeID and stages the returned
// directions as ghost proposals in a single atomic batch. No note bodies are
// generated here; that cost is deferred until a proposal is accepted.
func (o *Orchestrator) Generate(ctx context.Context, sourceNodeID string) ([]model.GhostProposal, error) {
	snap := o.store.Snapshot()
	if _, ok := findNode(snap.Nodes, sourceNodeID); !ok {
		return nil, fmt.Errorf("node %s not found", sourceNodeID)
	}

	ancestry := graph.Ancestry(sourceNodeID, snap.Nodes, snap.Edges)
	ancestryText := graph.FormatAncestryForPrompt(ancestry)
	gradedContext := graph.FormatSuggestionContext(graph.BuildNodeSuggestionContext(snap.Nodes))

	directions, err := o.plan(ctx, sourceNodeID, ancestryText, gradedContext)
	if err != nil {
		return nil, err
	}

	proposals := make([]model.GhostProposal, 0, len(directions))
	for _, d := range directions {
		proposals = append(proposals, model.GhostProposal{
			ID:            o.newID(),
			ParentID:      sourceNodeID,
			SuggestedType: d.SuggestedType,
			Direction:     d,
			Status:        model.GhostProposed,
		})
	}
	if err := o.store.SetGhostProposals(proposals); err != nil {
		return nil, err
	}
	o.log.Info("staged ghost proposals",
		zap.String("source", sourceNodeID),
		zap.Int("count", len(proposals)))
	return proposals, nil
}

// plan makes the planner call with the transient-only retry budget and
// parses the reply. Parse failures are non-transient and propagate on the
// attempt they occur.
func (o *Orchestrator) plan(ctx context.Context, sourceNodeID, ancestryText, gradedContext string) ([]model.Direction, error) {
	return withRetry(ctx, o.log, o.sleep, func() ([]model.Direction, error) {
		resp, err := o.completer.Complete(ctx, provider.RequestOptions{
			Messages: []provider.Message{
				provider.TextMessage(provider.RoleSystem, plannerSystemPrompt),
				provider.TextMessage(provider.RoleUser, buildPlanPrompt(ancestryText, gradedContext)),
			},
		})
		if err != nil {
			return nil, err
		}
		return ParseDirections(resp.Text, sourceNodeID, o.newID)
	})
}

// AncestryPromptFor renders the lineage prompt for a node from the current
// graph. Accept-time generation reuses this so a ghost sees the same context
// shape its direction was planned against.
func (o *Orchestrator) AncestryPromptFor(nodeID string) string {
	snap := o.store.Snapshot()
	return graph.FormatAncestryForPrompt(graph.Ancestry(nodeID, snap.Nodes, snap.Edges))
}

func findNode(nodes []model.Node, id string) (model.Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Node{}, false
}
