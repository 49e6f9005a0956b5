package imageproxy

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Transcoder converts image bytes into the proxy's output format.
type Transcoder interface {
	Transcode(src []byte) ([]byte, error)
	ContentType() string
}

// WebPTranscoder decodes any registered format (JPEG, PNG, GIF, WebP, BMP,
// TIFF) and re-encodes it as lossless WebP. Animated GIFs keep their first
// frame only.
type WebPTranscoder struct{}

func (WebPTranscoder) ContentType() string { return "image/webp" }

func (WebPTranscoder) Transcode(src []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode %s as webp: %w", format, err)
	}
	return buf.Bytes(), nil
}
