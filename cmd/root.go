// Package cmd wires the canopy CLI: canvas commands (node, edge), the
// generation pipeline (generate, ghost) and context inspection.
package cmd

import (
	"fmt"
	"os"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canopy/config"
	"canopy/graph"
	"canopy/model"
	"canopy/orchestrate"
	"canopy/search"
	"canopy/storage"
)

var providerFlag string

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Research-note canvas with AI-planned next steps",
	Long: `canopy keeps a graph of research notes and uses an LLM planner to
propose the next investigation steps as ghost proposals, which you accept
into permanent notes or dismiss.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "provider id to use (defaults to active_provider)")
}

// appEnv bundles what every command needs: resolved config, the persisted
// graph loaded into memory, and the logger.
type appEnv struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *storage.Store
	graph *graph.Store
}

func openEnv() (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := config.NewLogger(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := storage.Open(cfg.GraphPath())
	if err != nil {
		return nil, err
	}
	snap, err := db.Load()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &appEnv{cfg: cfg, log: log, db: db, graph: graph.FromSnapshot(snap)}, nil
}

// persist writes the in-memory graph back to disk.
func (e *appEnv) persist() error {
	return e.db.Save(e.graph.Snapshot())
}

func (e *appEnv) close() {
	e.db.Close()
	e.log.Sync()
}

// orchestrator builds the pipeline for the selected provider. The API-key
// check lives inside NewOrchestrator so a missing credential fails before
// any network call.
func (e *appEnv) orchestrator() (*orchestrate.Orchestrator, error) {
	clientCfg, err := e.cfg.ProviderClientConfig(providerFlag)
	if err != nil {
		return nil, err
	}
	var searcher orchestrate.Searcher
	if e.cfg.Search.BaseURL != "" {
		searcher = search.NewClient(e.cfg.Search.BaseURL, e.cfg.Credentials.Get("search"), e.log)
	}
	return orchestrate.NewOrchestrator(clientCfg, e.graph, searcher, e.log)
}

// resolveNode accepts an exact node id or falls back to fuzzy-matching
// titles, so "canopy context humid" finds "Humidity drives decay".
func (e *appEnv) resolveNode(query string) (model.Node, error) {
	if n, ok := e.graph.Node(query); ok {
		return n, nil
	}

	nodes := e.graph.Nodes()
	titles := make([]string, len(nodes))
	for i, n := range nodes {
		titles[i] = n.Title
	}
	matches := fuzzy.Find(query, titles)
	if len(matches) == 0 {
		return model.Node{}, fmt.Errorf("no node matches %q", query)
	}
	return nodes[matches[0].Index], nil
}
