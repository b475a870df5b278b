package evaluator

import (
	"context"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
)

// PNGFileSize measures the byte size of the canonical PNG encoding, a proxy
// for the amount of visual information on the page.
type PNGFileSize struct{}

// MetricID returns the catalog id.
func (PNGFileSize) MetricID() string { return "m1" }

// Evaluate returns the PNG file size in bytes.
func (PNGFileSize) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	return []models.ResultValue{models.IntValue(int64(len(art.PNG)))}, nil
}

// JPEGFileSize measures the byte size of the canonical quality-70 JPEG
// encoding, a clutter proxy robust to flat-colour regions.
type JPEGFileSize struct{}

// MetricID returns the catalog id.
func (JPEGFileSize) MetricID() string { return "m2" }

// Evaluate returns the JPEG file size in bytes.
func (JPEGFileSize) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	return []models.ResultValue{models.IntValue(int64(len(art.JPEG)))}, nil
}
