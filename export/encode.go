package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// DefaultJPEGQuality bounds output size for image-heavy documents.
	DefaultJPEGQuality = 90
	// DefaultBackground is painted under transparent regions before encoding.
	DefaultBackground = "#ffffff"
)

// ParseHexColor parses #rgb and #rrggbb colors.
func ParseHexColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, NewError(KindValidation, fmt.Sprintf("invalid color: %q", value), nil)
	}
	parsed, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, NewError(KindValidation, fmt.Sprintf("invalid color: %q", value), err)
	}
	return color.NRGBA{
		R: uint8(parsed >> 16),
		G: uint8(parsed >> 8),
		B: uint8(parsed),
		A: 0xff,
	}, nil
}

// Flatten composites img over an opaque background, since JPEG has no alpha.
func Flatten(img image.Image, background color.Color) *image.NRGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), background)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// CropBand returns rows [top, bottom) of img.
func CropBand(img image.Image, top, bottom int) *image.NRGBA {
	bounds := img.Bounds()
	rect := image.Rect(bounds.Min.X, bounds.Min.Y+top, bounds.Max.X, bounds.Min.Y+bottom)
	return imaging.Crop(img, rect)
}

// EncodeJPEG encodes img as a named JPEG image.
func EncodeJPEG(name string, img image.Image, quality int) (*EncodedImage, error) {
	if img == nil {
		return nil, NewError(KindEncoding, "image is nil", nil)
	}
	if quality < 1 || quality > 100 {
		return nil, NewError(KindValidation, fmt.Sprintf("jpeg quality must be between 1 and 100, got %d", quality), nil)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, NewError(KindEncoding, "image is empty", nil)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, NewError(KindEncoding, "encode jpeg", err)
	}
	return &EncodedImage{
		Name:   name,
		Type:   "JPG",
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
