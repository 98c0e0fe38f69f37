package baseline

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danpilch/hoststat/pkg/use"
)

// Severity indicates the magnitude of a metric drift.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityRegress  Severity = "regression"
)

// Comparison holds the drift of one check against its baseline.
type Comparison struct {
	Resource    string         `json:"resource"`
	Type        use.MetricType `json:"type"`
	BaselineVal float64        `json:"baseline"`
	CurrentVal  float64        `json:"current"`
	DeltaPct    float64        `json:"delta_pct"`
	Severity    Severity       `json:"severity"`
}

// Regressed reports whether the drift is large enough to act on.
func (c Comparison) Regressed() bool {
	return c.Severity == SeverityRegress || c.Severity == SeverityMajor
}

var (
	blTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	blHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	blCell   = lipgloss.NewStyle().Padding(0, 1)
	blDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	blOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	blWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	blErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	blMinor  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Compare matches current checks to the baseline by resource and type, in
// the order of current. Checks missing from either side are skipped.
func Compare(b *Baseline, current []use.Check) []Comparison {
	type key struct {
		resource string
		typ      use.MetricType
	}
	base := make(map[key]use.Check, len(b.Checks))
	for _, c := range b.Checks {
		base[key{c.Resource, c.Type}] = c
	}

	var comparisons []Comparison
	for _, cur := range current {
		old, ok := base[key{cur.Resource, cur.Type}]
		if !ok || cur.Status == use.StatusUnknown {
			continue
		}

		var deltaPct float64
		if old.RawValue != 0 {
			deltaPct = (cur.RawValue - old.RawValue) / math.Abs(old.RawValue) * 100
		} else if cur.RawValue != 0 {
			deltaPct = 100
		}

		comparisons = append(comparisons, Comparison{
			Resource:    cur.Resource,
			Type:        cur.Type,
			BaselineVal: old.RawValue,
			CurrentVal:  cur.RawValue,
			DeltaPct:    deltaPct,
			Severity:    classifySeverity(deltaPct),
		})
	}
	return comparisons
}

func classifySeverity(deltaPct float64) Severity {
	switch abs := math.Abs(deltaPct); {
	case abs < 5:
		return SeverityNone
	case abs < 15:
		return SeverityMinor
	case abs < 30:
		return SeverityModerate
	case deltaPct > 0:
		return SeverityRegress
	}
	return SeverityMajor
}

// Regressions counts the comparisons that regressed.
func Regressions(comparisons []Comparison) int {
	n := 0
	for _, c := range comparisons {
		if c.Regressed() {
			n++
		}
	}
	return n
}

// RenderComparison outputs a styled comparison table.
func RenderComparison(w io.Writer, b *Baseline, comparisons []Comparison) {
	fmt.Fprintln(w, blTitle.Render("Baseline Comparison"))
	fmt.Fprintf(w, "Comparing against %s from %s on %s\n\n",
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%q", b.Name)),
		blDim.Render(b.Timestamp.Format("2006-01-02 15:04:05")),
		b.Hostname)

	rows := make([][]string, len(comparisons))
	for i, c := range comparisons {
		var sev string
		switch c.Severity {
		case SeverityRegress:
			sev = blErr.Render("REGRESSION")
		case SeverityMajor:
			sev = blErr.Render("MAJOR")
		case SeverityModerate:
			sev = blWarn.Render("moderate")
		case SeverityMinor:
			sev = blMinor.Render("minor")
		default:
			sev = blOK.Render("none")
		}
		rows[i] = []string{
			c.Resource, string(c.Type),
			fmt.Sprintf("%.2f", c.BaselineVal), fmt.Sprintf("%.2f", c.CurrentVal),
			fmt.Sprintf("%+.1f%%", c.DeltaPct), sev,
		}
	}

	fmt.Fprintln(w, table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(blDim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return blHeader
			}
			return blCell
		}).
		Headers("RESOURCE", "TYPE", "BASELINE", "CURRENT", "DELTA", "SEVERITY").
		Rows(rows...))

	if n := Regressions(comparisons); n > 0 {
		fmt.Fprintln(w, blErr.Render(fmt.Sprintf("%d potential regressions detected.", n)))
	} else {
		fmt.Fprintln(w, blOK.Render("No significant regressions detected."))
	}
}
