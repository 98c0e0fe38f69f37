// Package use turns host snapshots into USE method checks: utilization,
// saturation and errors per resource.
package use

// MetricType is the USE dimension a check measures.
type MetricType string

const (
	Utilization MetricType = "utilization"
	Saturation  MetricType = "saturation"
	Errors      MetricType = "errors"
)

// Status grades a check. StatusUnknown marks a check whose data could
// not be collected.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// Check is one graded measurement of one resource.
type Check struct {
	Resource    string     `json:"resource"`
	Type        MetricType `json:"type"`
	Value       string     `json:"value"`
	RawValue    float64    `json:"raw_value"`
	Status      Status     `json:"status"`
	Description string     `json:"description"`
	// Source names the kernel table or system call the value came from.
	Source string `json:"source"`
}

// Thresholds are the percentages checks are evaluated against.
type Thresholds struct {
	// WarnUtil and CritUtil bound utilization: at or above WarnUtil is a
	// warning, at or above CritUtil an error.
	WarnUtil float64
	CritUtil float64
	// SwapWarn is the share of swap in use, in percent, above which
	// memory counts as saturated.
	SwapWarn float64
}

// DefaultThresholds returns the thresholds used when none are given.
func DefaultThresholds() Thresholds {
	return Thresholds{WarnUtil: 70, CritUtil: 90, SwapWarn: 10}
}

// EvaluateUtilization grades a utilization percentage.
func (t Thresholds) EvaluateUtilization(percent float64) Status {
	switch {
	case percent >= t.CritUtil:
		return StatusError
	case percent >= t.WarnUtil:
		return StatusWarning
	}
	return StatusOK
}

// EvaluateErrors grades an error count: any error is a warning.
func EvaluateErrors(count uint64) Status {
	if count == 0 {
		return StatusOK
	}
	return StatusWarning
}

// EvaluateSaturation grades a saturation value that must stay at or
// below threshold.
func EvaluateSaturation(value, threshold float64) Status {
	if value <= threshold {
		return StatusOK
	}
	return StatusWarning
}

// Summary counts check results by status.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
	Unknown  int `json:"unknown"`
}

// Summarize counts checks by status.
func Summarize(checks []Check) Summary {
	s := Summary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case StatusOK:
			s.OK++
		case StatusWarning:
			s.Warnings++
		case StatusError:
			s.Errors++
		case StatusUnknown:
			s.Unknown++
		}
	}
	return s
}

// Process exit codes of the check command.
const (
	ExitOK        = 0
	ExitWarning   = 1
	ExitCritical  = 2
	ExitToolError = 3
)

// ExitCode maps check results to a process exit code. Unknown results only
// decide the code when nothing else is wrong.
func ExitCode(checks []Check) int {
	s := Summarize(checks)
	switch {
	case s.Errors > 0:
		return ExitCritical
	case s.Warnings > 0:
		return ExitWarning
	case s.Unknown > 0:
		return ExitToolError
	}
	return ExitOK
}
