// Package classifier maps raw metric values to qualitative judgments using
// the score bands declared in the catalog.
package classifier

import "github.com/uimetrics/uima-go-api/internal/models"

// Classify tests bands in declared order and returns the judgment of the
// first band satisfying min <= value <= max, where an unbounded end always
// matches its side. ok is false when no band matches; callers render that as
// "no judgment". The function is pure, repeated calls with identical inputs
// return identical output.
func Classify(value float64, bands []models.ScoreBand) (judgment string, ok bool) {
	for _, band := range bands {
		if band.Min != nil && value < *band.Min {
			continue
		}
		if band.Max != nil && value > *band.Max {
			continue
		}
		return band.Judgment, true
	}
	return "", false
}

// ClassifyOutcome derives the judgment slice for an ordered value list
// against the metric's declared results. Image values and values outside
// every band yield an empty judgment at their index. The slice is always
// aligned with values by index.
func ClassifyOutcome(values []models.ResultValue, results []models.ResultDescriptor) []string {
	judgments := make([]string, len(values))
	for i, value := range values {
		if i >= len(results) {
			break
		}
		num, numeric := value.Number()
		if !numeric {
			continue
		}
		if judgment, ok := Classify(num, results[i].Scores); ok {
			judgments[i] = judgment
		}
	}
	return judgments
}
