package storage

import (
	"path/filepath"
	"testing"
	"time"

	"canopy/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "canvas.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	grade := 4.0
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	snap := model.Snapshot{
		Nodes: []model.Node{
			{
				ID: "n1", Type: model.NodeObservation, Title: "Start", Text: "first note",
				X: 10, Y: 20, Grade: &grade, CreatedAt: created,
				Citations: []model.Citation{{Index: 1, Title: "Paper", URL: "https://example.org"}},
			},
			{ID: "n2", Type: model.NodeMechanism, Text: "second", CreatedAt: created},
		},
		Edges: []model.Edge{{ID: "e1", Source: "n1", Target: "n2"}},
		Ghosts: []model.GhostProposal{
			{
				ID: "g1", ParentID: "n2", SuggestedType: model.NodeValidation,
				Direction: model.Direction{ID: "d1", SummaryTitle: "check it", SearchQuery: "q", SourceNodeID: "n2"},
				Status:    model.GhostError,
				Failure:   &model.GhostFailure{Message: "rate limited", Retryable: true, Code: "rate_limit"},
			},
		},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Nodes) != 2 || len(loaded.Edges) != 1 || len(loaded.Ghosts) != 1 {
		t.Fatalf("counts: %d nodes, %d edges, %d ghosts",
			len(loaded.Nodes), len(loaded.Edges), len(loaded.Ghosts))
	}

	var n1 model.Node
	for _, n := range loaded.Nodes {
		if n.ID == "n1" {
			n1 = n
		}
	}
	if n1.Grade == nil || *n1.Grade != 4.0 {
		t.Errorf("grade: got %v", n1.Grade)
	}
	if !n1.CreatedAt.Equal(created) {
		t.Errorf("created_at: got %v, want %v", n1.CreatedAt, created)
	}
	if len(n1.Citations) != 1 || n1.Citations[0].Title != "Paper" {
		t.Errorf("citations: got %+v", n1.Citations)
	}

	g := loaded.Ghosts[0]
	if g.Direction.SummaryTitle != "check it" {
		t.Errorf("direction: got %+v", g.Direction)
	}
	if g.Failure == nil || g.Failure.Code != "rate_limit" || !g.Failure.Retryable {
		t.Errorf("failure: got %+v", g.Failure)
	}
}

func TestSaveReplacesPreviousGraph(t *testing.T) {
	store := openTestStore(t)

	first := model.Snapshot{Nodes: []model.Node{
		{ID: "old", Type: model.NodeObservation},
	}}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := model.Snapshot{Nodes: []model.Node{
		{ID: "new", Type: model.NodeMechanism},
	}}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Nodes) != 1 || loaded.Nodes[0].ID != "new" {
		t.Errorf("save must replace, got %+v", loaded.Nodes)
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	store := openTestStore(t)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Nodes) != 0 || len(snap.Edges) != 0 || len(snap.Ghosts) != 0 {
		t.Errorf("fresh database must be empty, got %+v", snap)
	}
}

func TestNilGradeSurvivesRoundTrip(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save(model.Snapshot{Nodes: []model.Node{
		{ID: "n1", Type: model.NodeObservation, CreatedAt: time.Now().UTC()},
	}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Nodes[0].Grade != nil {
		t.Errorf("ungraded node must stay ungraded, got %v", *loaded.Nodes[0].Grade)
	}
}
