package graph

import (
	"fmt"
	"sort"
	"strings"

	"canopy/model"
)

// maxAncestryDepth is an independent safety bound for pathological but
// acyclic graphs; cycles are already bounded by the visited set.
const maxAncestryDepth = 50

// Ancestry computes the ordered lineage of a node: breadth-first backward
// over incoming edges, most distant ancestor first, the starting node last.
// Parents discovered at the same BFS layer are sorted by horizontal position
// ascending, which is the deterministic tie-break for prompt ordering.
// Cycles are silently absorbed by the visited set.
func Ancestry(startID string, nodes []model.Node, edges []model.Edge) []model.Node {
	byID := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	start, ok := byID[startID]
	if !ok {
		return nil
	}

	// incoming[target] = source node ids (parents)
	incoming := make(map[string][]string, len(edges))
	for _, e := range edges {
		incoming[e.Target] = append(incoming[e.Target], e.Source)
	}

	visited := map[string]bool{startID: true}
	var layers [][]model.Node

	layer := []string{startID}
	for depth := 0; depth < maxAncestryDepth && len(layer) > 0; depth++ {
		var parents []model.Node
		for _, id := range layer {
			for _, parentID := range incoming[id] {
				if visited[parentID] {
					continue
				}
				parent, ok := byID[parentID]
				if !ok {
					continue
				}
				visited[parentID] = true
				parents = append(parents, parent)
			}
		}
		sort.Slice(parents, func(i, j int) bool { return parents[i].X < parents[j].X })

		if len(parents) > 0 {
			layers = append(layers, parents)
		}
		layer = layer[:0]
		for _, p := range parents {
			layer = append(layer, p.ID)
		}
	}

	// Layers were built near-to-far; the prompt wants the most distant
	// ancestors first, keeping each layer's X ordering intact.
	var result []model.Node
	for i := len(layers) - 1; i >= 0; i-- {
		result = append(result, layers[i]...)
	}
	return append(result, start)
}

// FormatAncestryForPrompt renders nodes in the order supplied as
// "[TYPE] Node #i:" blocks, 1-indexed. Callers pass ancestry-ordered input.
func FormatAncestryForPrompt(nodes []model.Node) string {
	var b strings.Builder
	for i, n := range nodes {
		fmt.Fprintf(&b, "[%s] Node #%d:\n%s\n\n", strings.ToUpper(string(n.Type)), i+1, n.Text)
	}
	return b.String()
}
