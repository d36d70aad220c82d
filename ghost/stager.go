// Package ghost runs the staging lifecycle of speculative proposals:
// accept triggers generation and promotion into a permanent node, failures
// stay visible on the proposal for retry, dismiss removes it outright.
package ghost

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canopy/graph"
	"canopy/model"
	"canopy/provider"
)

// childOffsetY places a promoted node below its parent on the canvas.
const childOffsetY = 200

// Generator produces the note body for an accepted proposal.
// *orchestrate.Orchestrator satisfies it.
type Generator interface {
	GenerateNote(ctx context.Context, direction model.Direction, ancestryText string) (model.NoteCandidate, error)
	AncestryPromptFor(nodeID string) string
}

// Stager owns accept/retry/dismiss for the staged proposals of one store.
// Concurrent accepts on different proposals are independent; a second accept
// on a pending proposal is a no-op.
type Stager struct {
	store *graph.Store
	gen   Generator
	log   *zap.Logger
	newID func() string
}

// NewStager builds a stager. log may be nil.
func NewStager(store *graph.Store, gen Generator, log *zap.Logger) *Stager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stager{store: store, gen: gen, log: log, newID: uuid.NewString}
}

// Accept transitions a proposal to pending, generates its note body and
// promotes it into a permanent node. A generation failure is recorded on the
// proposal (status error, retryable flag, coarse code) and returns (nil,
// nil); the caller inspects the proposal for the outcome. Accepting an
// already-pending proposal is a no-op. Cancellation reverts the proposal to
// proposed and returns the context error.
func (s *Stager) Accept(ctx context.Context, ghostID string) (*model.Node, error) {
	g, ok := s.store.Ghost(ghostID)
	if !ok {
		return nil, fmt.Errorf("ghost %s not found", ghostID)
	}

	// Claim the proposal under the store lock so concurrent accepts race to
	// exactly one generation call.
	var claimed bool
	err := s.store.UpdateGhost(ghostID, func(g *model.GhostProposal) {
		if g.Status == model.GhostPending {
			return
		}
		g.Status = model.GhostPending
		g.Failure = nil
		claimed = true
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}

	var candidate model.NoteCandidate
	var genErr error
	if g.Text != "" {
		// Body was generated eagerly at plan time; promote it as-is.
		candidate = model.NoteCandidate{
			Title:     g.Direction.SummaryTitle,
			Text:      g.Text,
			Type:      g.SuggestedType,
			Citations: g.Citations,
		}
	} else {
		ancestry := s.gen.AncestryPromptFor(g.ParentID)
		candidate, genErr = s.gen.GenerateNote(ctx, g.Direction, ancestry)
	}

	if genErr != nil && (errors.Is(genErr, context.Canceled) || errors.Is(genErr, context.DeadlineExceeded)) {
		s.revertToProposed(ghostID)
		return nil, genErr
	}
	if genErr != nil {
		s.recordFailure(ghostID, genErr)
		return nil, nil
	}
	if ctx.Err() != nil {
		// Cancelled while the result was in flight. The proposal must not
		// complete; the generated text is discarded.
		s.revertToProposed(ghostID)
		return nil, ctx.Err()
	}

	parent, ok := s.store.Node(g.ParentID)
	if !ok {
		s.recordFailure(ghostID, fmt.Errorf("parent node %s no longer exists", g.ParentID))
		return nil, nil
	}

	node := model.Node{
		ID:        s.newID(),
		Type:      candidate.Type,
		Title:     candidate.Title,
		Text:      candidate.Text,
		X:         parent.X,
		Y:         parent.Y + childOffsetY,
		Citations: candidate.Citations,
	}
	edge := model.Edge{ID: s.newID(), Source: parent.ID, Target: node.ID}

	if err := s.store.PromoteGhost(ghostID, node, edge); err != nil {
		// Dismissed while generation was in flight; discard the result.
		s.log.Debug("promotion skipped", zap.String("ghost", ghostID), zap.Error(err))
		return nil, nil
	}
	s.log.Info("promoted ghost proposal",
		zap.String("ghost", ghostID),
		zap.String("node", node.ID))
	return &node, nil
}

// Retry re-runs generation for a proposal stuck in the error state. It is
// the same transition accept makes, kept separate so callers express intent.
func (s *Stager) Retry(ctx context.Context, ghostID string) (*model.Node, error) {
	return s.Accept(ctx, ghostID)
}

// Dismiss removes a proposal unconditionally, whatever its state. An
// in-flight generation for it is allowed to finish; its result is discarded
// at promotion time.
func (s *Stager) Dismiss(ghostID string) {
	s.store.RemoveGhost(ghostID)
}

func (s *Stager) revertToProposed(ghostID string) {
	_ = s.store.UpdateGhost(ghostID, func(g *model.GhostProposal) {
		g.Status = model.GhostProposed
		g.Failure = nil
	})
}

func (s *Stager) recordFailure(ghostID string, genErr error) {
	_ = s.store.UpdateGhost(ghostID, func(g *model.GhostProposal) {
		g.Status = model.GhostError
		g.Failure = &model.GhostFailure{
			Message:   genErr.Error(),
			Retryable: provider.IsTransient(genErr),
			Code:      provider.ErrorCode(genErr),
		}
	})
	s.log.Warn("ghost generation failed",
		zap.String("ghost", ghostID),
		zap.Error(genErr))
}
