package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stepgrid/pkg/pipeline"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// kindStyles color grid cells by the kind of their topmost occupant.
var kindStyles = map[scene.Kind]lipgloss.Style{
	scene.KindShape:  lipgloss.NewStyle().Foreground(colorGreen),
	scene.KindArray:  lipgloss.NewStyle().Foreground(colorBlue),
	scene.KindScalar: lipgloss.NewStyle().Foreground(colorCyan),
	scene.KindLabel:  lipgloss.NewStyle().Foreground(colorWhite),
	scene.KindPanel:  lipgloss.NewStyle().Foreground(colorDim),
}

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints run statistics on a single line.
func printStats(stats pipeline.Stats, info pipeline.CacheInfo) {
	parts := []string{
		fmt.Sprintf("%d steps", stats.Steps),
		fmt.Sprintf("%d entities", stats.Entities),
	}
	if stats.Invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid", stats.Invalid))
	}

	status, statusStyle := iconFresh, styleComputed
	if info.PlanMisses == 0 && info.PlanHits > 0 {
		status, statusStyle = iconCached, styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + statusStyle.Render(status)
	fmt.Println(line)
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Grid Preview
// =============================================================================

// renderGrid draws g with row and column rulers, coloring each cell by the
// kind of its topmost occupant.
func renderGrid(g pipeline.Grid) string {
	if len(g.Rows) == 0 {
		return StyleDim.Render("(empty board)")
	}
	width := len(g.Rows[0])

	var b strings.Builder
	b.WriteString("    ")
	for c := 0; c < width; c++ {
		b.WriteString(StyleDim.Render(fmt.Sprintf("%d", (g.Left+c)%10)))
	}
	b.WriteByte('\n')

	for r, row := range g.Rows {
		b.WriteString(StyleDim.Render(fmt.Sprintf("%3d ", g.Top+r)))
		for c, ch := range row {
			style, ok := kindStyles[g.Kinds[r][c]]
			if !ok {
				b.WriteRune(ch)
				continue
			}
			b.WriteString(style.Render(string(ch)))
		}
		if r < len(g.Rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
