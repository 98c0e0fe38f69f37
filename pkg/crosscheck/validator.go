// Package crosscheck compares hoststat readings with independent
// implementations and checks snapshots against the invariants the
// collectors guarantee.
package crosscheck

import (
	"math"
	"sort"
)

// ValidationStatus grades the agreement between sources.
type ValidationStatus string

const (
	StatusValid    ValidationStatus = "valid"
	StatusSuspect  ValidationStatus = "suspect"
	StatusConflict ValidationStatus = "conflict"
)

// Source is one reading of a quantity by one implementation.
type Source struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ValidationResult is the agreement of several sources on one metric.
type ValidationResult struct {
	Metric  string   `json:"metric"`
	Sources []Source `json:"sources"`
	// Consensus is the median of the source values and MaxDeviation the
	// largest distance from it, in percent of the consensus.
	Consensus    float64          `json:"consensus"`
	MaxDeviation float64          `json:"max_deviation"`
	Status       ValidationStatus `json:"status"`
}

// Validator grades how far sources stray from their consensus.
type Validator struct {
	// Deviations at or above SuspectThreshold percent are suspect, at or
	// above ConflictThreshold a conflict.
	SuspectThreshold  float64
	ConflictThreshold float64
}

// NewValidator creates a validator with 5% and 20% thresholds.
func NewValidator() *Validator {
	return &Validator{SuspectThreshold: 5, ConflictThreshold: 20}
}

// CrossCheck compares the readings of one metric. Fewer than two sources
// are trivially valid.
func (v *Validator) CrossCheck(metric string, sources []Source) ValidationResult {
	result := ValidationResult{
		Metric:  metric,
		Sources: sources,
		Status:  StatusValid,
	}
	if len(sources) == 0 {
		return result
	}

	values := make([]float64, len(sources))
	for i, s := range sources {
		values[i] = s.Value
	}
	result.Consensus = median(values)

	for _, val := range values {
		result.MaxDeviation = max(result.MaxDeviation, deviation(val, result.Consensus))
	}

	switch {
	case result.MaxDeviation >= v.ConflictThreshold:
		result.Status = StatusConflict
	case result.MaxDeviation >= v.SuspectThreshold:
		result.Status = StatusSuspect
	}
	return result
}

// median sorts values in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}

// deviation is the distance of val from ref in percent of ref. Any
// distance from a zero reference counts as 100%.
func deviation(val, ref float64) float64 {
	if ref == 0 {
		if val == 0 {
			return 0
		}
		return 100
	}
	return math.Abs(val-ref) / math.Abs(ref) * 100
}
