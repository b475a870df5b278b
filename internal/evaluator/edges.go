package evaluator

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
)

// edgeThreshold is the gradient magnitude above which a pixel counts as an
// edge, on the 0-255 luminance scale.
const edgeThreshold = 48.0

// ContourDensity measures the proportion of edge pixels, a visual clutter
// indicator.
type ContourDensity struct{}

// MetricID returns the catalog id.
func (ContourDensity) MetricID() string { return "m4" }

// Evaluate returns the edge pixel proportion in [0, 1].
func (ContourDensity) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	edges, total := edgeMap(art.Image)
	if total == 0 {
		return nil, Failf(models.FailureInvalidInput, "artifact too small for edge detection")
	}

	var count int
	bounds := edges.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if edges.GrayAt(x, y).Y > 0 {
				count++
			}
		}
	}
	return []models.ResultValue{models.FloatValue(float64(count) / float64(total))}, nil
}

// EdgeMapPreview renders the detected edges as an image overlay. It is a
// best-effort view: artifacts below the minimum dimension yield an explicit
// empty payload instead of an error.
type EdgeMapPreview struct{}

// MetricID returns the catalog id.
func (EdgeMapPreview) MetricID() string { return "m9" }

// previewMinDim is the smallest artifact side for which the preview is built.
const previewMinDim = 64

// Evaluate returns the Base64-encoded edge map, or an empty payload when the
// artifact is too small for a meaningful preview.
func (EdgeMapPreview) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	if art.Width < previewMinDim || art.Height < previewMinDim {
		return []models.ResultValue{models.ImageValue("")}, nil
	}

	edges, _ := edgeMap(art.Image)

	var buf bytes.Buffer
	if err := png.Encode(&buf, edges); err != nil {
		return nil, Failf(models.FailureComputation, "encode edge map: %v", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return []models.ResultValue{models.ImageValue(encoded)}, nil
}

// edgeMap runs a Sobel gradient over the luminance channel and thresholds
// the magnitude into a binary gray image. total is the number of interior
// pixels considered.
func edgeMap(img image.Image) (*image.Gray, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out, 0
	}

	lum := make([][]float64, h)
	for y := 0; y < h; y++ {
		lum[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum[y][x] = luminance(uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}

	total := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := lum[y-1][x+1] + 2*lum[y][x+1] + lum[y+1][x+1] -
				lum[y-1][x-1] - 2*lum[y][x-1] - lum[y+1][x-1]
			gy := lum[y+1][x-1] + 2*lum[y+1][x] + lum[y+1][x+1] -
				lum[y-1][x-1] - 2*lum[y-1][x] - lum[y-1][x+1]
			if math.Hypot(gx, gy) > edgeThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
			total++
		}
	}
	return out, total
}
