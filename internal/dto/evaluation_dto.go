package dto

import (
	"time"

	"github.com/uimetrics/uima-go-api/internal/models"
)

// ExecuteRequest is the single inbound websocket message starting an
// evaluation. Data carries the Base64-encoded screenshot; Metrics maps metric
// ids to a selected flag, mirroring the client-side checkbox state.
type ExecuteRequest struct {
	Type     string          `json:"type" validate:"required,eq=execute"`
	Data     string          `json:"data" validate:"required"`
	MimeType string          `json:"mimeType"`
	Metrics  map[string]bool `json:"metrics"`
}

// SelectedMetrics returns the ids flagged true, in no particular order.
func (r ExecuteRequest) SelectedMetrics() []string {
	var ids []string
	for id, selected := range r.Metrics {
		if selected {
			ids = append(ids, id)
		}
	}
	return ids
}

// CatalogMetric is the catalog listing entry for one metric.
type CatalogMetric struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Description   string                    `json:"description,omitempty"`
	Evidence      int                       `json:"evidence"`
	Relevance     int                       `json:"relevance"`
	Speed         int                       `json:"speed"`
	Visualization string                    `json:"visualization"`
	Results       []models.ResultDescriptor `json:"results"`
}

// CatalogCategory groups catalog metrics for presentation.
type CatalogCategory struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Metrics []CatalogMetric `json:"metrics"`
}

// CatalogResponse is the full metric catalog grouped by category.
type CatalogResponse struct {
	Categories []CatalogCategory `json:"categories"`
}

// NewCatalogMetric converts a descriptor for catalog listing.
func NewCatalogMetric(desc models.MetricDescriptor) CatalogMetric {
	return CatalogMetric{
		ID:            desc.ID,
		Name:          desc.Name,
		Description:   desc.Description,
		Evidence:      desc.Evidence,
		Relevance:     desc.Relevance,
		Speed:         desc.Speed,
		Visualization: string(desc.Visualization),
		Results:       desc.Results,
	}
}

// EvaluationSummary is one history listing row.
type EvaluationSummary struct {
	SessionID      string                    `json:"sessionId"`
	ArtifactSHA256 string                    `json:"artifactSha256"`
	ArtifactWidth  int                       `json:"artifactWidth"`
	ArtifactHeight int                       `json:"artifactHeight"`
	SubmittedCount int                       `json:"submittedCount"`
	CompletedCount int                       `json:"completedCount"`
	CreatedAt      time.Time                 `json:"createdAt"`
	Results        []EvaluationResultSummary `json:"results,omitempty"`
}

// EvaluationResultSummary is one stored metric outcome within a summary.
type EvaluationResultSummary struct {
	MetricID    string `json:"metricId"`
	FailureKind string `json:"failureKind,omitempty"`
	DurationMs  int64  `json:"durationMs"`
	Cached      bool   `json:"cached"`
}

// NewEvaluationSummary converts a stored evaluation row.
func NewEvaluationSummary(eval models.Evaluation) EvaluationSummary {
	summary := EvaluationSummary{
		SessionID:      eval.SessionID,
		ArtifactSHA256: eval.ArtifactSHA256,
		ArtifactWidth:  eval.ArtifactWidth,
		ArtifactHeight: eval.ArtifactHeight,
		SubmittedCount: eval.SubmittedCount,
		CompletedCount: eval.CompletedCount,
		CreatedAt:      eval.CreatedAt,
	}
	for _, result := range eval.Results {
		summary.Results = append(summary.Results, EvaluationResultSummary{
			MetricID:    result.MetricID,
			FailureKind: result.FailureKind,
			DurationMs:  result.DurationMs,
			Cached:      result.Cached,
		})
	}
	return summary
}

// NewEvaluationSummarySlice converts stored rows for listing.
func NewEvaluationSummarySlice(evals []models.Evaluation) []EvaluationSummary {
	out := make([]EvaluationSummary, 0, len(evals))
	for _, eval := range evals {
		out = append(out, NewEvaluationSummary(eval))
	}
	return out
}
