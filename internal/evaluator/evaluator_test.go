package evaluator

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
)

func testArtifact(t *testing.T, w, h int, paint func(x, y int) color.Color) *artifact.Artifact {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, paint(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	art, err := artifact.Decode(buf.Bytes(), 0)
	require.NoError(t, err)
	return art
}

func solid(c color.Color) func(int, int) color.Color {
	return func(int, int) color.Color { return c }
}

func halves(left, right color.Color, w int) func(int, int) color.Color {
	return func(x, _ int) color.Color {
		if x < w/2 {
			return left
		}
		return right
	}
}

func TestBuiltInCoversShippedMetricSet(t *testing.T) {
	set := BuiltIn()
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9"} {
		ev, ok := set[id]
		require.True(t, ok, "missing evaluator %s", id)
		require.Equal(t, id, ev.MetricID())
	}
}

func TestFileSizesMatchCanonicalEncodings(t *testing.T) {
	art := testArtifact(t, 120, 90, solid(color.RGBA{R: 10, G: 120, B: 230, A: 255}))

	values, err := PNGFileSize{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, models.KindInt, values[0].Kind)
	require.Equal(t, int64(len(art.PNG)), values[0].IntVal)

	values, err = JPEGFileSize{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, int64(len(art.JPEG)), values[0].IntVal)
}

func TestDistinctRGBCountsUniqueTriples(t *testing.T) {
	art := testArtifact(t, 100, 100, halves(
		color.RGBA{R: 255, A: 255},
		color.RGBA{B: 255, A: 255}, 100))

	values, err := DistinctRGB{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, int64(2), values[0].IntVal)
}

func TestLuminanceSDZeroForUniformImage(t *testing.T) {
	art := testArtifact(t, 80, 80, solid(color.Gray{Y: 128}))

	values, err := LuminanceSD{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, models.KindFloat, values[0].Kind)
	require.InDelta(t, 0, values[0].FloatVal, 1e-9)
}

func TestLuminanceSDPositiveForContrast(t *testing.T) {
	art := testArtifact(t, 80, 80, halves(color.Black, color.White, 80))

	values, err := LuminanceSD{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Greater(t, values[0].FloatVal, 100.0)
}

func TestColourfulnessOrdersGreyBelowSaturated(t *testing.T) {
	grey := testArtifact(t, 64, 64, solid(color.Gray{Y: 100}))
	saturated := testArtifact(t, 64, 64, halves(
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255}, 64))

	greyValues, err := Colourfulness{}.Evaluate(context.Background(), grey)
	require.NoError(t, err)
	saturatedValues, err := Colourfulness{}.Evaluate(context.Background(), saturated)
	require.NoError(t, err)

	require.InDelta(t, 0, greyValues[0].FloatVal, 1e-9)
	require.Greater(t, saturatedValues[0].FloatVal, greyValues[0].FloatVal)
}

func TestStaticClustersIgnoresNoiseCells(t *testing.T) {
	// One dominant colour plus a second one on too few pixels to count.
	art := testArtifact(t, 50, 50, func(x, y int) color.Color {
		if x == 0 && y < 3 {
			return color.RGBA{R: 250, A: 255}
		}
		return color.RGBA{B: 250, A: 255}
	})

	values, err := StaticClusters{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, int64(1), values[0].IntVal)
}

func TestContourDensityWithinUnitRange(t *testing.T) {
	art := testArtifact(t, 100, 100, halves(color.Black, color.White, 100))

	values, err := ContourDensity{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Greater(t, values[0].FloatVal, 0.0)
	require.LessOrEqual(t, values[0].FloatVal, 1.0)
}

func TestContourDensityZeroForFlatImage(t *testing.T) {
	art := testArtifact(t, 100, 100, solid(color.White))

	values, err := ContourDensity{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, 0.0, values[0].FloatVal)
}

func TestColourBlindnessProducesThreeViews(t *testing.T) {
	art := testArtifact(t, 64, 64, halves(
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255}, 64))

	values, err := ColourBlindness{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Len(t, values, 3)
	for _, value := range values {
		require.Equal(t, models.KindImage, value.Kind)
		require.NotEmpty(t, value.ImageB64)
	}
}

func TestEdgeMapPreviewEmptyForSmallArtifacts(t *testing.T) {
	art := testArtifact(t, 32, 32, solid(color.White))

	values, err := EdgeMapPreview{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, models.KindImage, values[0].Kind)
	require.Empty(t, values[0].ImageB64)
}

func TestEdgeMapPreviewRendersLargeArtifacts(t *testing.T) {
	art := testArtifact(t, 100, 100, halves(color.Black, color.White, 100))

	values, err := EdgeMapPreview{}.Evaluate(context.Background(), art)
	require.NoError(t, err)
	require.NotEmpty(t, values[0].ImageB64)
}

func TestEvaluatorsAreDeterministic(t *testing.T) {
	art := testArtifact(t, 96, 96, func(x, y int) color.Color {
		return color.RGBA{R: uint8(x * 2), G: uint8(y * 2), B: uint8((x + y) % 256), A: 255}
	})

	for id, ev := range BuiltIn() {
		first, err := ev.Evaluate(context.Background(), art)
		require.NoError(t, err, "metric %s", id)
		second, err := ev.Evaluate(context.Background(), art)
		require.NoError(t, err, "metric %s", id)
		require.Equal(t, first, second, "metric %s", id)
	}
}
