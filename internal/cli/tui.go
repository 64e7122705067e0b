package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/stepgrid/pkg/pipeline"
	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// List styles
var (
	listDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	listInvalidStyle = lipgloss.NewStyle().Foreground(colorRed)
	listIssueStyle   = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// PlayModel - Interactive timeline stepping
// =============================================================================

// PlayModel is the bubbletea model that steps through resolved plans.
type PlayModel struct {
	Plans    []resolve.PlanJSON
	Timeline variable.Timeline
	Cursor   int
	Details  bool // show the entry table
}

// NewPlayModel creates a player positioned at plan index start.
func NewPlayModel(plans []resolve.PlanJSON, tl variable.Timeline, start int) PlayModel {
	start = max(0, min(start, len(plans)-1))
	return PlayModel{Plans: plans, Timeline: tl, Cursor: start, Details: true}
}

func (m PlayModel) Init() tea.Cmd {
	return nil
}

func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h", "p":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "right", "l", "n", " ":
		if m.Cursor < len(m.Plans)-1 {
			m.Cursor++
		}
	case "home", "g":
		m.Cursor = 0
	case "end", "G":
		m.Cursor = max(len(m.Plans)-1, 0)
	case "d":
		m.Details = !m.Details
	}
	return m, nil
}

func (m PlayModel) View() string {
	var b strings.Builder

	if len(m.Plans) == 0 {
		b.WriteString(StyleDim.Render("Nothing to play"))
		b.WriteString("\n")
		return b.String()
	}
	p := m.Plans[m.Cursor]

	title := fmt.Sprintf("Step %d/%d", p.Step+1, max(m.Timeline.Len(), 1))
	if p.Line > 0 {
		title += fmt.Sprintf(" · line %d", p.Line)
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→ step  g/G first/last  d details  q quit"))
	b.WriteString("\n\n")

	if vars := formatSnapshot(m.Timeline.SnapshotAt(p.Step)); vars != "" {
		b.WriteString(vars)
		b.WriteString("\n\n")
	}

	b.WriteString(renderGrid(pipeline.NewGrid(p)))
	b.WriteString("\n")

	if m.Details && len(p.Cells)+len(p.Overlay)+len(p.Panels) > 0 {
		b.WriteString("\n")
		b.WriteString(entryTable(p))
		b.WriteString("\n")
	}
	return b.String()
}

// formatSnapshot renders the variables of a step as name=value pairs.
func formatSnapshot(snap variable.Snapshot) string {
	names := snap.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := snap[name]
		parts = append(parts, StyleDim.Render(name+"=")+StyleNumber.Render(v.String()))
	}
	return strings.Join(parts, "  ")
}

// entryTable lists the panels and content of a plan.
func entryTable(p resolve.PlanJSON) string {
	type entry struct {
		row   []string
		issue string
		bad   bool
	}
	var entries []entry
	for _, pn := range p.Panels {
		entries = append(entries, entry{
			row:   []string{pn.ID, "panel", fmt.Sprintf("%d,%d", pn.Row, pn.Col), fmt.Sprintf("%dx%d", pn.Width, pn.Height), pn.Title},
			issue: firstNonEmpty(pn.InvalidReason, pn.TimelineIssue),
			bad:   pn.InvalidReason != "",
		})
	}
	add := func(cells []resolve.CellJSON, note string) {
		for _, c := range cells {
			text := c.Text
			if note != "" {
				text = strings.TrimSpace(text + " " + note)
			}
			entries = append(entries, entry{
				row:   []string{c.ID, string(c.Kind), fmt.Sprintf("%d,%d", c.Row, c.Col), fmt.Sprintf("%dx%d", c.Width, c.Height), text},
				issue: firstNonEmpty(c.InvalidReason, c.TimelineIssue),
				bad:   c.InvalidReason != "",
			})
		}
	}
	add(p.Cells, "")
	add(p.Overlay, "(overlay)")

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = append(e.row, e.issue)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Kind", "Cell", "Size", "Text", "Issue").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < 0 || row >= len(entries) {
				return lipgloss.NewStyle()
			}
			if col == 5 {
				if entries[row].bad {
					return listInvalidStyle
				}
				return listIssueStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	return t.Render()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
