// Package output renders USE checks and raw snapshots for the terminal and
// for machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danpilch/hoststat/pkg/use"
)

// Format represents the output format type.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatTSV      Format = "tsv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatTable, FormatJSON, FormatTSV, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	statusStyles = map[use.Status]lipgloss.Style{
		use.StatusOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true), // Green
		use.StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true), // Yellow
		use.StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),  // Red
		use.StatusUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),  // Gray
	}
)

// Formatter handles output formatting.
type Formatter struct {
	format    Format
	writer    io.Writer
	sparkline *SparklineTracker
	showScore bool
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// SetSparklineTracker enables sparkline tracking for watch mode.
func (f *Formatter) SetSparklineTracker(s *SparklineTracker) {
	f.sparkline = s
}

// SetShowScore enables health score display.
func (f *Formatter) SetShowScore(show bool) {
	f.showScore = show
}

// Render outputs the checks in the configured format.
func (f *Formatter) Render(checks []use.Check) error {
	if f.sparkline != nil {
		for _, c := range checks {
			f.sparkline.Record(checkKey(c), c.RawValue)
		}
	}

	switch f.format {
	case FormatJSON:
		return f.renderJSON(checks)
	case FormatMarkdown:
		return f.renderMarkdown(checks)
	case FormatTSV:
		return f.renderTSV(checks)
	default:
		return f.renderTable(checks)
	}
}

func checkKey(c use.Check) string {
	return c.Resource + "|" + string(c.Type) + "|" + c.Source
}

func (f *Formatter) renderJSON(checks []use.Check) error {
	output := struct {
		Checks  []use.Check `json:"checks"`
		Summary use.Summary `json:"summary"`
		Score   *int        `json:"score,omitempty"`
	}{
		Checks:  checks,
		Summary: use.Summarize(checks),
	}
	if output.Checks == nil {
		output.Checks = []use.Check{}
	}
	if f.showScore {
		score := HealthScore(checks)
		output.Score = &score
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
}

func (f *Formatter) renderTable(checks []use.Check) error {
	fmt.Fprintln(f.writer, titleStyle.Render("USE Method Host Check"))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	hasSparklines := f.sparkline != nil
	rows := make([][]string, len(checks))
	for i, check := range checks {
		row := []string{
			check.Resource,
			string(check.Type),
			check.Value,
			statusStyles[check.Status].Render(strings.ToUpper(string(check.Status))),
		}
		if hasSparklines {
			row = append(row, f.sparkline.Sparkline(checkKey(check)))
		}
		rows[i] = row
	}

	headers := []string{"RESOURCE", "TYPE", "VALUE", "STATUS"}
	if hasSparklines {
		headers = append(headers, "TREND")
	}
	fmt.Fprintln(f.writer, newTable(headers, rows))

	fmt.Fprintln(f.writer)
	f.renderSummary(use.Summarize(checks))

	if f.showScore {
		score := HealthScore(checks)
		scoreStyle := statusStyles[use.StatusOK]
		if score < 80 {
			scoreStyle = statusStyles[use.StatusWarning]
		}
		if score < 50 {
			scoreStyle = statusStyles[use.StatusError]
		}
		fmt.Fprintf(f.writer, "Health Score: %s\n",
			scoreStyle.Render(fmt.Sprintf("%d/100 (%s)", score, ScoreLabel(score))))
	}
	return nil
}

func (f *Formatter) renderSummary(summary use.Summary) {
	var parts []string

	if summary.Errors > 0 {
		parts = append(parts, statusStyles[use.StatusError].Render(fmt.Sprintf("%d errors", summary.Errors)))
	}
	if summary.Warnings > 0 {
		parts = append(parts, statusStyles[use.StatusWarning].Render(fmt.Sprintf("%d warnings", summary.Warnings)))
	}
	if summary.Unknown > 0 {
		parts = append(parts, statusStyles[use.StatusUnknown].Render(fmt.Sprintf("%d unknown", summary.Unknown)))
	}

	if len(parts) == 0 {
		fmt.Fprintln(f.writer, statusStyles[use.StatusOK].Render("All checks passed"))
		return
	}
	fmt.Fprintf(f.writer, "Summary: %s\n", strings.Join(parts, ", "))
}

// renderMarkdown writes a report meant to be pasted into tickets or read by
// an assistant: issues first, then every metric by resource.
func (f *Formatter) renderMarkdown(checks []use.Check) error {
	summary := use.Summarize(checks)

	if summary.Errors == 0 && summary.Warnings == 0 {
		fmt.Fprintln(f.writer, "# Host Health: OK")
		fmt.Fprintln(f.writer, "\nAll USE method checks passed.")
	} else {
		fmt.Fprintln(f.writer, "# Host Health: Issues Detected")
		fmt.Fprintf(f.writer, "\n**Status:** %d errors, %d warnings, %d ok, %d unknown\n",
			summary.Errors, summary.Warnings, summary.OK, summary.Unknown)
	}
	fmt.Fprintln(f.writer)

	issues := filterByStatus(checks, use.StatusError, use.StatusWarning)
	if len(issues) > 0 {
		fmt.Fprintln(f.writer, "## Issues Requiring Attention")
		fmt.Fprintln(f.writer)
		for _, check := range issues {
			fmt.Fprintf(f.writer, "- **[%s] %s %s:** %s\n",
				strings.ToUpper(string(check.Status)), check.Resource, check.Type, check.Value)
			fmt.Fprintf(f.writer, "  - %s\n", interpret(check))
		}
		fmt.Fprintln(f.writer)
	}

	byResource := make(map[string][]use.Check)
	var order []string
	for _, check := range checks {
		if _, ok := byResource[check.Resource]; !ok {
			order = append(order, check.Resource)
		}
		byResource[check.Resource] = append(byResource[check.Resource], check)
	}

	fmt.Fprintln(f.writer, "## All Metrics")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "| Resource | Utilization | Saturation | Errors |")
	fmt.Fprintln(f.writer, "|----------|-------------|------------|--------|")
	for _, resource := range order {
		cols := map[use.MetricType][]string{}
		for _, c := range byResource[resource] {
			val := c.Value
			if c.Status != use.StatusOK {
				val = fmt.Sprintf("**%s**", val)
			}
			cols[c.Type] = append(cols[c.Type], val)
		}
		cell := func(t use.MetricType) string {
			if len(cols[t]) == 0 {
				return "-"
			}
			return strings.Join(cols[t], ", ")
		}
		fmt.Fprintf(f.writer, "| %s | %s | %s | %s |\n",
			resource, cell(use.Utilization), cell(use.Saturation), cell(use.Errors))
	}

	suggestions := GetDrillDownSuggestions(checks)
	if len(suggestions) > 0 {
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, "## Suggested Next Steps")
		for _, group := range suggestions {
			fmt.Fprintln(f.writer)
			fmt.Fprintf(f.writer, "**%s:**\n", group.Metric)
			for _, s := range group.Suggestions {
				fmt.Fprintf(f.writer, "- `%s` - %s\n", s.Command, s.Reason)
			}
		}
	}
	return nil
}

func (f *Formatter) renderTSV(checks []use.Check) error {
	fmt.Fprintln(f.writer, "RESOURCE\tTYPE\tVALUE\tRAW_VALUE\tSTATUS\tDESCRIPTION\tSOURCE")
	for _, c := range checks {
		fmt.Fprintf(f.writer, "%s\t%s\t%s\t%.4f\t%s\t%s\t%s\n",
			c.Resource, c.Type, c.Value, c.RawValue,
			c.Status, c.Description, c.Source)
	}
	return nil
}

func filterByStatus(checks []use.Check, statuses ...use.Status) []use.Check {
	var result []use.Check
	for _, c := range checks {
		for _, s := range statuses {
			if c.Status == s {
				result = append(result, c)
				break
			}
		}
	}
	return result
}

// interpret returns actionable context for a check.
func interpret(check use.Check) string {
	resource := strings.ToLower(check.Resource)

	switch check.Type {
	case use.Utilization:
		if check.RawValue >= 90 {
			return "Critical: resource near capacity. Immediate attention needed."
		}
		return "Elevated usage. Monitor for sustained high values."

	case use.Saturation:
		if strings.Contains(resource, "memory") {
			return "Swap in use. Memory pressure detected."
		}
		if strings.Contains(resource, "network") {
			return "Packets being dropped. Network congestion or ring buffer exhaustion."
		}
		return "Resource has queued work. Potential bottleneck."

	case use.Errors:
		if strings.Contains(resource, "network") {
			return "Network interface errors. Check cables, drivers, or hardware."
		}
		return "Errors detected. Review system logs for details."
	}
	return check.Description
}
