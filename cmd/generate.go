package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canopy/model"
)

var eagerFlag bool

var generateCmd = &cobra.Command{
	Use:   "generate <id-or-title>",
	Short: "Plan next research directions from a note",
	Long: `generate runs one planner call over the note's lineage and stages the
returned directions as ghost proposals. Note bodies are not generated until a
proposal is accepted; --eager generates all bodies up front instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		source, err := env.resolveNode(args[0])
		if err != nil {
			return err
		}
		orch, err := env.orchestrator()
		if err != nil {
			return err
		}

		proposals, err := orch.Generate(cmd.Context(), source.ID)
		if err != nil {
			return err
		}

		if eagerFlag {
			directions := make([]model.Direction, len(proposals))
			for i, p := range proposals {
				directions[i] = p.Direction
			}
			candidates, err := orch.GenerateNotes(cmd.Context(), directions, orch.AncestryPromptFor(source.ID))
			if err != nil {
				return err
			}
			for i, p := range proposals {
				candidate := candidates[i]
				if err := env.graph.UpdateGhost(p.ID, func(g *model.GhostProposal) {
					g.Text = candidate.Text
					g.Citations = candidate.Citations
				}); err != nil {
					return err
				}
			}
		}

		if err := env.persist(); err != nil {
			return err
		}
		for _, g := range env.graph.Ghosts() {
			fmt.Println(renderGhostLine(g))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&eagerFlag, "eager", false, "generate all note bodies during planning instead of on accept")
	rootCmd.AddCommand(generateCmd)
}
