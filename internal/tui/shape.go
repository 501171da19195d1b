package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/valobj/contract"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	bodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD787"))
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// RenderShape renders the inspected shape of c: ancestors, the flattened
// attribute list and any behavior members, followed by the validation
// verdict.
func RenderShape(c *contract.Contract, width int) string {
	if c == nil {
		return mutedStyle.Render("No contract selected.")
	}
	shape := contract.Inspect(c)
	lines := []string{titleStyle.Render(c.QualifiedName())}
	if c.Source != "" {
		lines = append(lines, mutedStyle.Render(c.Source))
	}
	if len(c.Extends) > 0 {
		var names []string
		for _, parent := range c.Extends {
			names = append(names, parent.QualifiedName())
		}
		lines = append(lines, bodyStyle.Render("Extends: "+strings.Join(names, ", ")))
	}
	lines = append(lines, "")
	if len(shape.Attributes) == 0 {
		lines = append(lines, mutedStyle.Render("No attributes."))
	} else {
		nameWidth := 0
		for _, attr := range shape.Attributes {
			nameWidth = max(nameWidth, len(attr.Name))
		}
		lines = append(lines, titleStyle.Render(fmt.Sprintf("Attributes (%d)", len(shape.Attributes))))
		for _, attr := range shape.Attributes {
			row := fmt.Sprintf("  %-*s  %s", nameWidth, attr.Name, attr.Type)
			if attr.Mutable {
				row += "  " + badStyle.Render("writable")
			}
			lines = append(lines, bodyStyle.Render(row))
		}
	}
	if len(shape.Behaviors) > 0 {
		lines = append(lines, "", titleStyle.Render(fmt.Sprintf("Methods (%d)", len(shape.Behaviors))))
		for _, member := range shape.Behaviors {
			lines = append(lines, bodyStyle.Render(fmt.Sprintf("  %s %s", member.Name, member.Signature)))
		}
	}
	lines = append(lines, "", Verdict(contract.Validate(c)))
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

// Verdict renders a validation outcome.
func Verdict(err error) string {
	if err == nil {
		return okStyle.Render("✓ eligible for synthesis")
	}
	if kind, ok := contract.KindOf(err); ok {
		return badStyle.Render("✗ "+string(kind)) + "\n" + bodyStyle.Render(err.Error())
	}
	return badStyle.Render("✗ " + err.Error())
}

// Box draws the panel border used across views.
func Box(content string, width int) string {
	return boxStyle.Width(max(20, width)).Render(content)
}
