// Package evaluator defines the capability each pluggable metric
// implementation satisfies and ships the built-in metric set. Evaluators are
// pure with respect to the artifact and deterministic for identical bytes;
// the declared result shape is enforced by the dispatcher at the completion
// boundary.
package evaluator

import (
	"context"
	"fmt"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
)

// Error is the typed failure an evaluator reports. It never crosses the task
// boundary as a raw error; the dispatcher converts it to a task outcome.
type Error struct {
	Kind    models.FailureKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Failf builds an evaluator error with the given kind.
func Failf(kind models.FailureKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Evaluator is the capability one metric implementation provides. Evaluate
// must produce exactly the values the catalog declares for the metric, in
// index order, and must not retain or mutate the artifact.
type Evaluator interface {
	MetricID() string
	Evaluate(ctx context.Context, art *artifact.Artifact) ([]models.ResultValue, error)
}

// BuiltIn returns the shipped evaluator set keyed by metric id.
func BuiltIn() map[string]Evaluator {
	set := []Evaluator{
		PNGFileSize{},
		JPEGFileSize{},
		DistinctRGB{},
		ContourDensity{},
		LuminanceSD{},
		Colourfulness{},
		StaticClusters{},
		ColourBlindness{},
		EdgeMapPreview{},
	}

	out := make(map[string]Evaluator, len(set))
	for _, ev := range set {
		out[ev.MetricID()] = ev
	}
	return out
}
