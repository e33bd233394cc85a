// Package imaging decodes leaf photos and turns them into classifier input tensors.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("image could not be decoded")
)

// Mode selects where the image comes from.
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeCamera Mode = "camera"
)

// ParseMode maps a form value to a Mode, defaulting to upload.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeCamera {
		return ModeCamera
	}
	return ModeUpload
}

// FormField is the multipart field carrying the image for this mode.
func (m Mode) FormField() string {
	if m == ModeCamera {
		return "camera"
	}
	return "image"
}

// AllowedExtensions lists the upload file types accepted from the file picker.
var AllowedExtensions = []string{"jpg", "png", "jpeg", "bmp", "webp"}

// CheckExtension rejects file names whose extension is not in AllowedExtensions.
func CheckExtension(filename string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	if ext == "" {
		return fmt.Errorf("%w: file %q has no extension", ErrUnsupportedFormat, filename)
	}
	return fmt.Errorf("%w: .%s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(AllowedExtensions, ", "))
}

// MaxPixels bounds the decoded size of an image. The upload limit only caps
// compressed bytes, and a small file can declare enormous dimensions.
const MaxPixels = 40_000_000

// Decode reads a single raster image. Any failure is reported as ErrDecode.
func Decode(r io.Reader) (image.Image, string, error) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return img, format, nil
}
