package output

import (
	"strings"

	"github.com/danpilch/hoststat/pkg/use"
)

// Suggestion represents a diagnostic next-step.
type Suggestion struct {
	Tool    string
	Command string
	Reason  string
}

// SuggestionGroup holds the suggestions for one failing metric.
type SuggestionGroup struct {
	Metric      string
	Suggestions []Suggestion
}

// DrillDown returns diagnostic suggestions for a check with issues.
func DrillDown(check use.Check) []Suggestion {
	if check.Status != use.StatusError && check.Status != use.StatusWarning {
		return nil
	}
	resource := strings.ToLower(check.Resource)

	var suggestions []Suggestion
	switch {
	case strings.HasPrefix(resource, "cpu"):
		suggestions = append(suggestions,
			Suggestion{"top", "top -o %CPU", "Identify top CPU consumers"},
			Suggestion{"hoststat", "hoststat watch --count 10", "Follow per-core utilization"},
		)

	case strings.HasPrefix(resource, "memory"):
		suggestions = append(suggestions,
			Suggestion{"top", "top -o %MEM", "Identify top memory consumers"},
		)
		if check.Type == use.Saturation {
			suggestions = append(suggestions,
				Suggestion{"vmstat", "vmstat 1 5", "Monitor swap activity"},
			)
		}

	case strings.HasPrefix(resource, "filesystem"):
		suggestions = append(suggestions,
			Suggestion{"df", "df -ih", "Check inode and disk usage"},
		)
		if check.Source == "/proc/diskstats" {
			suggestions = append(suggestions,
				Suggestion{"iostat", "iostat -x 1 3", "Detailed I/O statistics"},
			)
		}

	case strings.HasPrefix(resource, "network"):
		suggestions = append(suggestions,
			Suggestion{"ip", "ip -s link", "Per-interface error and drop counters"},
			Suggestion{"netstat", "netstat -s", "Network statistics summary"},
		)
	}
	return suggestions
}

// GetDrillDownSuggestions returns suggestions for checks with issues, in
// check order.
func GetDrillDownSuggestions(checks []use.Check) []SuggestionGroup {
	var groups []SuggestionGroup
	seen := make(map[string]bool)
	for _, c := range checks {
		key := c.Resource + " " + string(c.Type)
		if seen[key] {
			continue
		}
		if suggestions := DrillDown(c); len(suggestions) > 0 {
			seen[key] = true
			groups = append(groups, SuggestionGroup{Metric: key, Suggestions: suggestions})
		}
	}
	return groups
}
