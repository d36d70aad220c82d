// Package graph owns the in-memory note graph: the mutation surface the
// generation pipeline writes to, and the ancestry traversal it reads from.
//
// Every mutation replaces whole collections under one lock, so a reader
// never observes a half-applied batch (e.g. two of three ghost proposals
// inserted).
package graph

import (
	"fmt"
	"sync"

	"canopy/model"
)

// Store holds the nodes, edges and staged ghost proposals of one canvas.
type Store struct {
	mu     sync.RWMutex
	nodes  []model.Node
	edges  []model.Edge
	ghosts []model.GhostProposal
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// FromSnapshot creates a store seeded with a persisted snapshot.
func FromSnapshot(snap model.Snapshot) *Store {
	s := &Store{}
	s.nodes = append(s.nodes, snap.Nodes...)
	s.edges = append(s.edges, snap.Edges...)
	s.ghosts = append(s.ghosts, snap.Ghosts...)
	return s
}

// Snapshot returns a consistent copy of the whole graph.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Snapshot{
		Nodes:  append([]model.Node(nil), s.nodes...),
		Edges:  append([]model.Edge(nil), s.edges...),
		Ghosts: append([]model.GhostProposal(nil), s.ghosts...),
	}
}

// Node looks up a node by id.
func (s *Store) Node(id string) (model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Node{}, false
}

// Nodes returns a copy of all nodes.
func (s *Store) Nodes() []model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Node(nil), s.nodes...)
}

// AddNode appends a node.
func (s *Store) AddNode(n model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	for _, existing := range s.nodes {
		if existing.ID == n.ID {
			return fmt.Errorf("node %s already exists", n.ID)
		}
	}
	s.nodes = append(append([]model.Node(nil), s.nodes...), n)
	return nil
}

// AddEdge appends an edge. Both endpoints must exist.
func (s *Store) AddEdge(e model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.nodeExistsLocked(e.Source) {
		return fmt.Errorf("edge source %s does not exist", e.Source)
	}
	if !s.nodeExistsLocked(e.Target) {
		return fmt.Errorf("edge target %s does not exist", e.Target)
	}
	s.edges = append(append([]model.Edge(nil), s.edges...), e)
	return nil
}

// UpdateNode applies fn to one node under the store lock.
func (s *Store) UpdateNode(id string, fn func(*model.Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]model.Node(nil), s.nodes...)
	for i := range next {
		if next[i].ID == id {
			fn(&next[i])
			s.nodes = next
			return nil
		}
	}
	return fmt.Errorf("node %s not found", id)
}

// Ghost looks up a ghost proposal by id.
func (s *Store) Ghost(id string) (model.GhostProposal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.ghosts {
		if g.ID == id {
			return g, true
		}
	}
	return model.GhostProposal{}, false
}

// Ghosts returns a copy of the staged set.
func (s *Store) Ghosts() []model.GhostProposal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.GhostProposal(nil), s.ghosts...)
}

// SetGhostProposals stages a batch of proposals in one atomic step. Every
// parent must already exist in the graph; a dangling parent rejects the
// whole batch and nothing is inserted.
func (s *Store) SetGhostProposals(proposals []model.GhostProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range proposals {
		if !s.nodeExistsLocked(p.ParentID) {
			return fmt.Errorf("ghost parent %s does not exist", p.ParentID)
		}
	}
	s.ghosts = append(append([]model.GhostProposal(nil), s.ghosts...), proposals...)
	return nil
}

// UpdateGhost applies fn to one staged proposal under the store lock.
func (s *Store) UpdateGhost(id string, fn func(*model.GhostProposal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]model.GhostProposal(nil), s.ghosts...)
	for i := range next {
		if next[i].ID == id {
			fn(&next[i])
			s.ghosts = next
			return nil
		}
	}
	return fmt.Errorf("ghost %s not found", id)
}

// PromoteGhost replaces a staged proposal with a permanent node and its
// parent edge in a single atomic update. At no point do the ghost and the
// permanent node both exist.
func (s *Store) PromoteGhost(id string, node model.Node, edge model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, g := range s.ghosts {
		if g.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("ghost %s not found", id)
	}
	if !s.nodeExistsLocked(edge.Source) {
		return fmt.Errorf("edge source %s does not exist", edge.Source)
	}

	nextGhosts := make([]model.GhostProposal, 0, len(s.ghosts)-1)
	nextGhosts = append(nextGhosts, s.ghosts[:idx]...)
	nextGhosts = append(nextGhosts, s.ghosts[idx+1:]...)

	s.nodes = append(append([]model.Node(nil), s.nodes...), node)
	s.edges = append(append([]model.Edge(nil), s.edges...), edge)
	s.ghosts = nextGhosts
	return nil
}

// RemoveGhost deletes a staged proposal regardless of its state. Removing a
// ghost that is already gone is not an error.
func (s *Store) RemoveGhost(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]model.GhostProposal, 0, len(s.ghosts))
	for _, g := range s.ghosts {
		if g.ID != id {
			next = append(next, g)
		}
	}
	s.ghosts = next
}

func (s *Store) nodeExistsLocked(id string) bool {
	for _, n := range s.nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
