package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canopy/graph"
)

var contextCmd = &cobra.Command{
	Use:   "context <id-or-title>",
	Short: "Show the lineage context the planner would see for a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		n, err := env.resolveNode(args[0])
		if err != nil {
			return err
		}

		snap := env.graph.Snapshot()
		ancestry := graph.Ancestry(n.ID, snap.Nodes, snap.Edges)
		fmt.Print(graph.FormatAncestryForPrompt(ancestry))

		if graded := graph.BuildNodeSuggestionContext(snap.Nodes); len(graded) > 0 {
			fmt.Println("Graded notes:")
			fmt.Print(graph.FormatSuggestionContext(graded))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
}
