package crosscheck

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/danpilch/hoststat/pkg/use"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	validStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	suspectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Run cross-checks snap against the gatherer's references and runs the
// sanity checks over snap and checks.
func Run(g *Gatherer, snap *sampler.Snapshot, checks []use.Check) ([]ValidationResult, []SanityResult) {
	validator := NewValidator()

	var validations []ValidationResult
	for _, m := range []struct {
		metric  string
		sources []Source
	}{
		{"Core Count", g.CoreCount(snap)},
		{"cpu0 User Seconds", g.CoreUserSeconds(snap)},
		{"Memory Total", g.MemoryTotal(snap)},
		{"Swap Total", g.SwapTotal(snap)},
		{"Root Filesystem Size", g.RootCapacity(snap)},
	} {
		if len(m.sources) > 1 {
			validations = append(validations, validator.CrossCheck(m.metric, m.sources))
		}
	}

	recv := g.InterfaceRecvBytes(snap)
	names := make([]string, 0, len(recv))
	for name := range recv {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(recv[name]) > 1 {
			validations = append(validations, validator.CrossCheck(name+" Receive Bytes", recv[name]))
		}
	}

	sanity := append(SnapshotSanity(snap), CheckSanity(checks)...)
	return validations, sanity
}

// Failed reports whether any validation conflicts or any sanity check
// failed.
func Failed(validations []ValidationResult, sanity []SanityResult) bool {
	for _, v := range validations {
		if v.Status == StatusConflict {
			return true
		}
	}
	for _, s := range sanity {
		if !s.Passed {
			return true
		}
	}
	return false
}

// Report outputs cross-check validation results and sanity checks as styled tables.
func Report(w io.Writer, validations []ValidationResult, sanity []SanityResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Cross-Check Validation Report"))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("═", 60)))

	if len(validations) > 0 {
		rows := make([][]string, len(validations))
		for i, v := range validations {
			sources := make([]string, len(v.Sources))
			for j, s := range v.Sources {
				sources[j] = fmt.Sprintf("%s=%.6g", s.Name, s.Value)
			}
			var status string
			switch v.Status {
			case StatusConflict:
				status = conflictStyle.Render("CONFLICT")
			case StatusSuspect:
				status = suspectStyle.Render("SUSPECT")
			default:
				status = validStyle.Render("VALID")
			}
			rows[i] = []string{
				v.Metric,
				fmt.Sprintf("%.6g", v.Consensus),
				fmt.Sprintf("%.2f%%", v.MaxDeviation),
				status,
				strings.Join(sources, ", "),
			}
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Metric Cross-Checks"))
		fmt.Fprintln(w, table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(dimStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("METRIC", "CONSENSUS", "MAX DEV", "STATUS", "SOURCES").
			Rows(rows...))
	}

	if len(sanity) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Sanity Checks"))
		failed := 0
		for _, s := range sanity {
			icon := validStyle.Render("PASS")
			if !s.Passed {
				icon = conflictStyle.Render("FAIL")
				failed++
			}
			fmt.Fprintf(w, "  [%s] %-40s %s\n", icon, s.Check, dimStyle.Render(s.Details))
		}
		fmt.Fprintln(w)
		if failed == 0 {
			fmt.Fprintf(w, "  %s\n", validStyle.Render(fmt.Sprintf("All %d sanity checks passed.", len(sanity))))
		} else {
			fmt.Fprintf(w, "  %s\n", conflictStyle.Render(fmt.Sprintf("%d of %d sanity checks failed.", failed, len(sanity))))
		}
	}
}

// ReportJSON outputs cross-check results as JSON.
func ReportJSON(w io.Writer, validations []ValidationResult, sanity []SanityResult) error {
	output := struct {
		Validations []ValidationResult `json:"validations"`
		Sanity      []SanityResult     `json:"sanity"`
		Failed      bool               `json:"failed"`
	}{
		Validations: validations,
		Sanity:      sanity,
		Failed:      Failed(validations, sanity),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
