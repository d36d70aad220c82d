package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"canopy/model"
)

var (
	nodeType  string
	nodeTitle string
	nodeX     float64
	nodeY     float64
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage notes on the canvas",
}

var nodeAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		t := model.NodeType(nodeType)
		if !model.ValidNodeType(t) {
			return fmt.Errorf("invalid type %q (observation, mechanism or validation)", nodeType)
		}

		n := model.Node{
			ID:        uuid.NewString(),
			Type:      t,
			Title:     nodeTitle,
			Text:      args[0],
			X:         nodeX,
			Y:         nodeY,
			CreatedAt: time.Now().UTC(),
		}
		if err := env.graph.AddNode(n); err != nil {
			return err
		}
		if err := env.persist(); err != nil {
			return err
		}
		fmt.Println(n.ID)
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		for _, n := range env.graph.Nodes() {
			fmt.Println(renderNodeLine(n))
		}
		return nil
	},
}

var nodeShowCmd = &cobra.Command{
	Use:   "show <id-or-title>",
	Short: "Show one note with rendered markdown and sources",
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
		fmt.Println(renderNote(n))
		return nil
	},
}

var nodeGradeCmd = &cobra.Command{
	Use:   "grade <id-or-title> <1-5>",
	Short: "Grade a note to steer future planning",
	Args:  cobra.ExactArgs(2),
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
		grade, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("grade must be a number: %w", err)
		}

		if err := env.graph.UpdateNode(n.ID, func(n *model.Node) {
			n.Grade = &grade
		}); err != nil {
			return err
		}
		return env.persist()
	},
}

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage edges between notes",
}

var edgeAddCmd = &cobra.Command{
	Use:   "add <parent> <child>",
	Short: "Connect a parent note to a child note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.close()

		parent, err := env.resolveNode(args[0])
		if err != nil {
			return err
		}
		child, err := env.resolveNode(args[1])
		if err != nil {
			return err
		}
		e := model.Edge{ID: uuid.NewString(), Source: parent.ID, Target: child.ID}
		if err := env.graph.AddEdge(e); err != nil {
			return err
		}
		return env.persist()
	},
}

func init() {
	nodeAddCmd.Flags().StringVar(&nodeType, "type", "observation", "note type: observation, mechanism or validation")
	nodeAddCmd.Flags().StringVar(&nodeTitle, "title", "", "note title")
	nodeAddCmd.Flags().Float64Var(&nodeX, "x", 0, "horizontal canvas position")
	nodeAddCmd.Flags().Float64Var(&nodeY, "y", 0, "vertical canvas position")

	nodeCmd.AddCommand(nodeAddCmd, nodeListCmd, nodeShowCmd, nodeGradeCmd)
	edgeCmd.AddCommand(edgeAddCmd)
	rootCmd.AddCommand(nodeCmd, edgeCmd)
}
