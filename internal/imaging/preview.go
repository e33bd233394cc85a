package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// PreviewMaxSide bounds the longer side of the preview shown back to the user.
const PreviewMaxSide = 512

// PreviewDataURI encodes a downscaled copy of img as a PNG data URI.
func PreviewDataURI(img image.Image) (string, error) {
	thumb := resize.Thumbnail(PreviewMaxSide, PreviewMaxSide, img, resize.Bilinear)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
