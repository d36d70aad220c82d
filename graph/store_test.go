package graph

import (
	"testing"

	"canopy/model"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if err := s.AddNode(node("parent", 0)); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	return s
}

func TestStoreAddNode(t *testing.T) {
	s := seededStore(t)
	if err := s.AddNode(node("parent", 0)); err == nil {
		t.Error("duplicate id must be rejected")
	}
	if err := s.AddNode(model.Node{}); err == nil {
		t.Error("empty id must be rejected")
	}
}

func TestStoreAddEdgeEndpoints(t *testing.T) {
	s := seededStore(t)
	if err := s.AddEdge(edge("parent", "missing")); err == nil {
		t.Error("dangling target must be rejected")
	}
	if err := s.AddEdge(edge("missing", "parent")); err == nil {
		t.Error("dangling source must be rejected")
	}
	if err := s.AddNode(node("child", 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEdge(edge("parent", "child")); err != nil {
		t.Errorf("valid edge rejected: %v", err)
	}
}

func TestSetGhostProposalsAtomicity(t *testing.T) {
	s := seededStore(t)
	batch := []model.GhostProposal{
		{ID: "g1", ParentID: "parent", Status: model.GhostProposed},
		{ID: "g2", ParentID: "nowhere", Status: model.GhostProposed},
	}
	if err := s.SetGhostProposals(batch); err == nil {
		t.Fatal("batch with dangling parent must be rejected")
	}
	if got := len(s.Ghosts()); got != 0 {
		t.Errorf("rejected batch must insert nothing, got %d ghosts", got)
	}

	ok := []model.GhostProposal{
		{ID: "g1", ParentID: "parent", Status: model.GhostProposed},
		{ID: "g2", ParentID: "parent", Status: model.GhostProposed},
		{ID: "g3", ParentID: "parent", Status: model.GhostProposed},
	}
	if err := s.SetGhostProposals(ok); err != nil {
		t.Fatalf("SetGhostProposals: %v", err)
	}
	if got := len(s.Ghosts()); got != 3 {
		t.Errorf("ghosts: got %d, want 3", got)
	}
}

func TestPromoteGhostAtomic(t *testing.T) {
	s := seededStore(t)
	if err := s.SetGhostProposals([]model.GhostProposal{
		{ID: "g1", ParentID: "parent", Status: model.GhostPending, Text: "body"},
	}); err != nil {
		t.Fatal(err)
	}

	err := s.PromoteGhost("g1",
		model.Node{ID: "n2", Type: model.NodeObservation, Text: "body"},
		edge("parent", "n2"))
	if err != nil {
		t.Fatalf("PromoteGhost: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Ghosts) != 0 {
		t.Errorf("ghost must be removed on promotion, %d remain", len(snap.Ghosts))
	}
	if len(snap.Nodes) != 2 {
		t.Errorf("nodes: got %d, want 2", len(snap.Nodes))
	}
	if len(snap.Edges) != 1 {
		t.Errorf("edges: got %d, want 1", len(snap.Edges))
	}

	if err := s.PromoteGhost("g1", node("n3", 0), edge("parent", "n3")); err == nil {
		t.Error("promoting an already-promoted ghost must fail")
	}
}

func TestRemoveGhostIdempotent(t *testing.T) {
	s := seededStore(t)
	if err := s.SetGhostProposals([]model.GhostProposal{
		{ID: "g1", ParentID: "parent", Status: model.GhostProposed},
	}); err != nil {
		t.Fatal(err)
	}
	s.RemoveGhost("g1")
	s.RemoveGhost("g1") // no-op
	if got := len(s.Ghosts()); got != 0 {
		t.Errorf("ghosts: got %d, want 0", got)
	}
}

func TestUpdateGhost(t *testing.T) {
	s := seededStore(t)
	if err := s.SetGhostProposals([]model.GhostProposal{
		{ID: "g1", ParentID: "parent", Status: model.GhostProposed},
	}); err != nil {
		t.Fatal(err)
	}
	err := s.UpdateGhost("g1", func(g *model.GhostProposal) {
		g.Status = model.GhostError
		g.Failure = &model.GhostFailure{Message: "boom", Retryable: true, Code: "upstream"}
	})
	if err != nil {
		t.Fatalf("UpdateGhost: %v", err)
	}
	g, ok := s.Ghost("g1")
	if !ok {
		t.Fatal("ghost missing")
	}
	if g.Status != model.GhostError || g.Failure == nil || !g.Failure.Retryable {
		t.Errorf("update not applied: %+v", g)
	}
	if err := s.UpdateGhost("missing", func(*model.GhostProposal) {}); err == nil {
		t.Error("unknown ghost must error")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := seededStore(t)
	snap := s.Snapshot()
	snap.Nodes[0].Text = "mutated copy"
	if n, _ := s.Node("parent"); n.Text == "mutated copy" {
		t.Error("snapshot must be a copy, not a view")
	}
}
