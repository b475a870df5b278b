package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation is the persisted log of one evaluation session. Rows are
// append-only history, not resumable session state.
type Evaluation struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	SessionID      string `gorm:"uniqueIndex;size:64" json:"session_id"`
	CorrelationID  string `gorm:"size:64" json:"correlation_id"`
	ArtifactSHA256 string `gorm:"index;size:64" json:"artifact_sha256"`
	ArtifactWidth  int    `json:"artifact_width"`
	ArtifactHeight int    `json:"artifact_height"`
	SubmittedCount int    `json:"submitted_count"`
	CompletedCount int    `json:"completed_count"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Results []EvaluationResult `gorm:"foreignKey:EvaluationID" json:"results,omitempty"`
}

// EvaluationResult is the persisted outcome of one metric within a session.
// Image payloads are replaced by their byte length before storage.
type EvaluationResult struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	EvaluationID uint           `gorm:"index" json:"evaluation_id"`
	MetricID     string         `gorm:"index;size:32" json:"metric_id"`
	Values       datatypes.JSON `json:"values"`
	Judgments    datatypes.JSON `json:"judgments"`
	FailureKind  string         `gorm:"size:32" json:"failure_kind,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
	Cached       bool           `json:"cached"`
	CreatedAt    time.Time
}
