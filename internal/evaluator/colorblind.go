package evaluator

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
)

// ColourBlindness simulates how the screenshot appears with the three common
// dichromatic deficiencies, producing one image view per deficiency in the
// declared order: protanopia, deuteranopia, tritanopia.
type ColourBlindness struct{}

// MetricID returns the catalog id.
func (ColourBlindness) MetricID() string { return "m8" }

// Linear RGB transform matrices for dichromacy simulation.
var dichromacyMatrices = [3][9]float64{
	// protanopia
	{0.567, 0.433, 0.000, 0.558, 0.442, 0.000, 0.000, 0.242, 0.758},
	// deuteranopia
	{0.625, 0.375, 0.000, 0.700, 0.300, 0.000, 0.000, 0.300, 0.700},
	// tritanopia
	{0.950, 0.050, 0.000, 0.000, 0.433, 0.567, 0.000, 0.475, 0.525},
}

// Evaluate returns the three simulated views as Base64-encoded PNGs.
func (ColourBlindness) Evaluate(_ context.Context, art *artifact.Artifact) ([]models.ResultValue, error) {
	out := make([]models.ResultValue, 0, len(dichromacyMatrices))
	for _, m := range dichromacyMatrices {
		simulated := applyMatrix(art.Image, m)

		var buf bytes.Buffer
		if err := png.Encode(&buf, simulated); err != nil {
			return nil, Failf(models.FailureComputation, "encode simulated view: %v", err)
		}
		out = append(out, models.ImageValue(base64.StdEncoding.EncodeToString(buf.Bytes())))
	}
	return out, nil
}

func applyMatrix(img image.Image, m [9]float64) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			fr, fg, fb := float64(r>>8), float64(g>>8), float64(b>>8)
			dst.SetRGBA(x, y, color.RGBA{
				R: clamp8(m[0]*fr + m[1]*fg + m[2]*fb),
				G: clamp8(m[3]*fr + m[4]*fg + m[5]*fb),
				B: clamp8(m[6]*fr + m[7]*fg + m[8]*fb),
				A: uint8(a >> 8),
			})
		}
	}
	return dst
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
