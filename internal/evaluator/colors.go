package evaluator

import (
	"context"
	"image"
	"math"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
)

// DistinctRGB counts the unique 8-bit RGB triples present in the screenshot.
type DistinctRGB struct{}

// MetricID returns the catalog id.
func (DistinctRGB) MetricID() string { return "m3" }

// Evaluate returns the number of distinct RGB values.
func (DistinctRGB) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	seen := make(map[uint32]struct{})
	forEachRGB(art.Image, func(r, g, b uint8) {
		seen[uint32(r)<<16|uint32(g)<<8|uint32(b)] = struct{}{}
	})
	return []models.ResultValue{models.IntValue(int64(len(seen)))}, nil
}

// LuminanceSD measures the standard deviation of pixel luminance, an
// indicator of figure-ground contrast.
type LuminanceSD struct{}

// MetricID returns the catalog id.
func (LuminanceSD) MetricID() string { return "m5" }

// Evaluate returns the luminance standard deviation in [0, 255] scale.
func (LuminanceSD) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	var sum, sumSq float64
	var n int
	forEachRGB(art.Image, func(r, g, b uint8) {
		l := luminance(r, g, b)
		sum += l
		sumSq += l * l
		n++
	})
	if n == 0 {
		return nil, Failf(models.FailureInvalidInput, "artifact has no pixels")
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return []models.ResultValue{models.FloatValue(math.Sqrt(variance))}, nil
}

// Colourfulness implements the Hasler-Suesstrunk colourfulness measure over
// the opponent colour axes rg and yb.
type Colourfulness struct{}

// MetricID returns the catalog id.
func (Colourfulness) MetricID() string { return "m6" }

// Evaluate returns the colourfulness score.
func (Colourfulness) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	var sumRG, sumYB, sumRGSq, sumYBSq float64
	var n int
	forEachRGB(art.Image, func(r, g, b uint8) {
		rg := float64(r) - float64(g)
		yb := 0.5*(float64(r)+float64(g)) - float64(b)
		sumRG += rg
		sumYB += yb
		sumRGSq += rg * rg
		sumYBSq += yb * yb
		n++
	})
	if n == 0 {
		return nil, Failf(models.FailureInvalidInput, "artifact has no pixels")
	}

	fn := float64(n)
	meanRG := sumRG / fn
	meanYB := sumYB / fn
	varRG := sumRGSq/fn - meanRG*meanRG
	varYB := sumYBSq/fn - meanYB*meanYB
	if varRG < 0 {
		varRG = 0
	}
	if varYB < 0 {
		varYB = 0
	}

	score := math.Sqrt(varRG+varYB) + 0.3*math.Hypot(meanRG, meanYB)
	return []models.ResultValue{models.FloatValue(score)}, nil
}

// StaticClusters counts populated cells of a fixed 32-level-per-channel RGB
// partition, ignoring cells with five or fewer pixels.
type StaticClusters struct{}

// MetricID returns the catalog id.
func (StaticClusters) MetricID() string { return "m7" }

// clusterMinPoints is the population below which a cell is treated as noise.
const clusterMinPoints = 5

// Evaluate returns the static cluster count.
func (StaticClusters) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	cells := make(map[uint32]int)
	forEachRGB(art.Image, func(r, g, b uint8) {
		key := uint32(r/8)<<16 | uint32(g/8)<<8 | uint32(b/8)
		cells[key]++
	})

	var clusters int64
	for _, count := range cells {
		if count > clusterMinPoints {
			clusters++
		}
	}
	return []models.ResultValue{models.IntValue(clusters)}, nil
}

func forEachRGB(img image.Image, fn func(r, g, b uint8)) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			fn(uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
}

func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
