package output

import "github.com/danpilch/hoststat/pkg/use"

// Score penalties per check status.
const (
	errorPenalty   = 15
	warningPenalty = 5
	unknownPenalty = 3
)

// HealthScore computes a 0-100 health score from check results.
func HealthScore(checks []use.Check) int {
	s := use.Summarize(checks)
	score := 100 - errorPenalty*s.Errors - warningPenalty*s.Warnings - unknownPenalty*s.Unknown
	return max(score, 0)
}

// ScoreLabel returns a human-readable label for a health score.
func ScoreLabel(score int) string {
	switch {
	case score >= 80:
		return "Healthy"
	case score >= 50:
		return "Degraded"
	}
	return "Critical"
}
