package cmd

import (
	"fmt"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"

	"canopy/model"
)

const renderWidth = 100

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	idStyle    = lipgloss.NewStyle().Faint(true)
	typeStyles = map[model.NodeType]lipgloss.Style{
		model.NodeObservation: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		model.NodeMechanism:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		model.NodeValidation:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
	statusStyles = map[model.GhostStatus]lipgloss.Style{
		model.GhostProposed: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		model.GhostPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.GhostError:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

func typeBadge(t model.NodeType) string {
	style, ok := typeStyles[t]
	if !ok {
		return string(t)
	}
	return style.Render(strings.ToUpper(string(t)))
}

func statusBadge(s model.GhostStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

func renderNodeLine(n model.Node) string {
	title := n.Title
	if title == "" {
		title = firstLine(n.Text)
	}
	grade := ""
	if n.Grade != nil {
		grade = fmt.Sprintf("  grade %.0f/5", *n.Grade)
	}
	return fmt.Sprintf("%s  %s%s  %s",
		typeBadge(n.Type), titleStyle.Render(title), grade, idStyle.Render(n.ID))
}

func renderNote(n model.Node) string {
	var b strings.Builder
	b.WriteString(renderNodeLine(n))
	b.WriteString("\n\n")
	b.Write(markdown.Render(n.Text, renderWidth, 2))
	if len(n.Citations) > 0 {
		b.WriteString("\nSources:\n")
		for _, c := range n.Citations {
			fmt.Fprintf(&b, "  [%d] %s  %s\n", c.Index, c.Title, idStyle.Render(c.URL))
		}
	}
	return b.String()
}

func renderGhostLine(g model.GhostProposal) string {
	line := fmt.Sprintf("%s  %s  %s  %s",
		statusBadge(g.Status), typeBadge(g.SuggestedType),
		titleStyle.Render(g.Direction.SummaryTitle), idStyle.Render(g.ID))
	if g.Failure != nil {
		retry := "not retryable"
		if g.Failure.Retryable {
			retry = "retryable"
		}
		line += fmt.Sprintf("\n    %s (%s, %s)", g.Failure.Message, g.Failure.Code, retry)
	}
	return line
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
