package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
)

// MaxImageBytes is the upload size cap for meal photos.
const MaxImageBytes = 10 << 20 // 10 MiB

const (
	maxWidth    = 800
	maxHeight   = 600
	jpegQuality = 85
)

// ErrNotImage is returned when the declared media type is not an image.
var ErrNotImage = fmt.Errorf("only image uploads are allowed")

// ErrImageTooLarge is returned when the upload exceeds MaxImageBytes.
var ErrImageTooLarge = fmt.Errorf("image exceeds the %d byte limit", MaxImageBytes)

// ProcessImage validates and normalizes an uploaded meal photo: scaled to
// fit inside 800x600 without upscaling or cropping, then re-encoded as JPEG
// at quality 85. Output is a pure function of the input bytes, which the
// downstream detector depends on. Buffers that do not decode as an image
// pass through unchanged after validation; they still feed the detector
// deterministically.
func ProcessImage(data []byte, mimeType string) ([]byte, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrNotImage
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}

	img = resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return out.Bytes(), nil
}
