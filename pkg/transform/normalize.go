package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// Decoders for the source formats accounts may upload.
	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// EditImageSize is the only square resolution the provider accepts.
const EditImageSize = 1024

// Normalize decodes an uploaded image, converts it to 4-channel RGBA, stretches
// it to exactly EditImageSize×EditImageSize (aspect ratio is not preserved,
// matching the provider's fixed input shape), and re-encodes it as PNG.
func Normalize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("transform: decode source image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, EditImageSize, EditImageSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("transform: encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}
