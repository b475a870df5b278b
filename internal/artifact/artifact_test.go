package artifact

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uimetrics/uima-go-api/internal/models"
)

func pngBytes(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	art, err := Decode(pngBytes(t, 100, 80, color.RGBA{R: 200, G: 100, B: 50, A: 255}), 0)
	require.NoError(t, err)

	require.Equal(t, "image/png", art.MIME)
	require.Equal(t, 100, art.Width)
	require.Equal(t, 80, art.Height)
	require.NotEmpty(t, art.PNG)
	require.NotEmpty(t, art.JPEG)
	require.Len(t, art.SHA256, 64)

	require.Equal(t, art.PNG, art.Bytes(models.InputFormatPNG))
	require.Equal(t, art.JPEG, art.Bytes(models.InputFormatJPEG))
}

func TestDecodeJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	art, err := Decode(buf.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", art.MIME)
	require.Equal(t, 64, art.Width)
}

func TestDecodeDigestIsStable(t *testing.T) {
	data := pngBytes(t, 50, 50, color.White)

	first, err := Decode(data, 0)
	require.NoError(t, err)
	second, err := Decode(data, 0)
	require.NoError(t, err)

	require.Equal(t, first.SHA256, second.SHA256)
	require.Equal(t, first.PNG, second.PNG)
}

func TestDecodeDownscalesWideImages(t *testing.T) {
	art, err := Decode(pngBytes(t, 2560, 1440, color.Black), 0)
	require.NoError(t, err)

	require.Equal(t, 1280, art.Width)
	require.Equal(t, 720, art.Height)
}

func TestDecodeKeepsNarrowImages(t *testing.T) {
	art, err := Decode(pngBytes(t, 640, 480, color.Black), 0)
	require.NoError(t, err)

	require.Equal(t, 640, art.Width)
	require.Equal(t, 480, art.Height)
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	_, err := Decode(nil, 0)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestDecodeRejectsOversizedPayload(t *testing.T) {
	data := pngBytes(t, 200, 200, color.White)
	_, err := Decode(data, len(data)-1)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeRejectsUnsupportedFormat(t *testing.T) {
	_, err := Decode([]byte("GIF89a not really an image"), 0)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
