package debug

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danpilch/hoststat/pkg/use"
)

var debugCell = lipgloss.NewStyle().Padding(0, 1)

// reportTable builds the bordered table both debug reports use.
func reportTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(debugDim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return debugHeader
			}
			return debugCell
		}).
		Headers(headers...).
		Rows(rows...)
}

// DumpRawMetrics writes every check with the unrounded value it was graded
// on and the kernel source it came from.
func DumpRawMetrics(w io.Writer, checks []use.Check) {
	rows := make([][]string, len(checks))
	for i, c := range checks {
		rows[i] = []string{
			c.Resource,
			string(c.Type),
			string(c.Status),
			strconv.FormatFloat(c.RawValue, 'f', 4, 64),
			c.Value,
			c.Source,
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Raw Metrics Dump"))
	fmt.Fprintln(w, reportTable(
		[]string{"RESOURCE", "TYPE", "STATUS", "RAW VALUE", "VALUE", "SOURCE"}, rows))
}
