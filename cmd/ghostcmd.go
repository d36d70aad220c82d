package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canopy/ghost"
)

var ghostCmd = &cobra.Command{
	Use:   "ghost",
	Short: "Act on staged proposals",
}

var ghostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged proposals",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		for _, g := range env.graph.Ghosts() {
			fmt.Println(renderGhostLine(g))
		}
		return nil
	},
}

var ghostAcceptCmd = &cobra.Command{
	Use:   "accept <ghost-id>",
	Short: "Generate the note body and promote the proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGhostAccept,
}

var ghostRetryCmd = &cobra.Command{
	Use:   "retry <ghost-id>",
	Short: "Retry a failed proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGhostAccept,
}

var ghostDismissCmd = &cobra.Command{
	Use:   "dismiss <ghost-id>",
	Short: "Remove a proposal without generating anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		ghost.NewStager(env.graph, nil, env.log).Dismiss(args[0])
		return env.persist()
	},
}

func runGhostAccept(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	orch, err := env.orchestrator()
	if err != nil {
		return err
	}
	stager := ghost.NewStager(env.graph, orch, env.log)

	node, err := stager.Accept(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := env.persist(); err != nil {
		return err
	}

	if node != nil {
		fmt.Println(renderNote(*node))
		return nil
	}
	// Failure was recorded on the proposal rather than propagated.
	if g, ok := env.graph.Ghost(args[0]); ok && g.Failure != nil {
		fmt.Println(renderGhostLine(g))
	}
	return nil
}

func init() {
	ghostCmd.AddCommand(ghostListCmd, ghostAcceptCmd, ghostRetryCmd, ghostDismissCmd)
	rootCmd.AddCommand(ghostCmd)
}
