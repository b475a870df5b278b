// Package artifact normalises the screenshot under evaluation: it sniffs and
// validates the upload, decodes it, downscales oversized captures and
// produces the canonical PNG and JPEG encodings evaluators consume.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"

	"github.com/uimetrics/uima-go-api/internal/models"
)

// Rejection reasons surfaced to the caller as request-level validation errors.
var (
	ErrEmpty             = errors.New("artifact payload is empty")
	ErrTooLarge          = errors.New("artifact exceeds the size limit")
	ErrUnsupportedFormat = errors.New("artifact must be a PNG or JPEG image")
)

const (
	// maxWidth matches the capture viewport; wider uploads are downscaled.
	maxWidth = 1280

	// jpegQuality is the canonical re-encode quality for JPEG-input metrics.
	jpegQuality = 70
)

// Artifact is one decoded, normalised screenshot. It is immutable once built
// and safe to share across concurrent tasks.
type Artifact struct {
	Image  image.Image
	PNG    []byte
	JPEG   []byte
	MIME   string
	Width  int
	Height int
	SHA256 string
}

// Decode validates raw upload bytes and builds the normalised artifact.
// maxBytes <= 0 disables the size limit.
func Decode(data []byte, maxBytes int) (*Artifact, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	mime := mimetype.Detect(data)
	if !mime.Is("image/png") && !mime.Is("image/jpeg") {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedFormat, mime.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	img = downscale(img, maxWidth)

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode canonical png: %w", err)
	}

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode canonical jpeg: %w", err)
	}

	sum := sha256.Sum256(pngBuf.Bytes())
	bounds := img.Bounds()

	return &Artifact{
		Image:  img,
		PNG:    pngBuf.Bytes(),
		JPEG:   jpegBuf.Bytes(),
		MIME:   mime.String(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// Bytes returns the canonical encoding for the given evaluator input format.
func (a *Artifact) Bytes(format models.InputFormat) []byte {
	if format == models.InputFormatJPEG {
		return a.JPEG
	}
	return a.PNG
}

// downscale reduces the image to at most maxW pixels wide, preserving aspect
// ratio, using nearest-neighbour sampling. Narrower images pass through.
func downscale(img image.Image, maxW int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	if w <= maxW {
		return img
	}

	h := bounds.Dy() * maxW / w
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, h))
	for y := 0; y < h; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/h
		for x := 0; x < maxW; x++ {
			srcX := bounds.Min.X + x*w/maxW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}
