package export

import (
	"fmt"
	"math"
	"strings"
)

var pageSizesMM = map[PaperSize]PageSize{
	PaperA4:     {WidthMM: 210, HeightMM: 297},
	PaperLetter: {WidthMM: 215.9, HeightMM: 279.4},
	PaperLegal:  {WidthMM: 215.9, HeightMM: 355.6},
}

// NormalizePaperSize coerces paper size values into known aliases with defaults applied.
func NormalizePaperSize(size PaperSize) PaperSize {
	normalized := strings.ToLower(strings.TrimSpace(string(size)))
	switch normalized {
	case "", string(PaperA4):
		return PaperA4
	case "us-letter", "us_letter", "usletter":
		return PaperLetter
	case "us-legal", "us_legal", "uslegal":
		return PaperLegal
	default:
		return PaperSize(normalized)
	}
}

// NormalizeOrientation coerces orientation values, accepting the short "p"/"l" forms.
func NormalizeOrientation(orientation Orientation) Orientation {
	normalized := strings.ToLower(strings.TrimSpace(string(orientation)))
	switch normalized {
	case "", "p", string(OrientationPortrait):
		return OrientationPortrait
	case "l", string(OrientationLandscape):
		return OrientationLandscape
	default:
		return Orientation(normalized)
	}
}

// NormalizeFormat applies aliases and defaults to a page format.
func NormalizeFormat(cfg PageFormatConfig) PageFormatConfig {
	cfg.PaperSize = NormalizePaperSize(cfg.PaperSize)
	cfg.Orientation = NormalizeOrientation(cfg.Orientation)
	return cfg
}

// ValidateFormat checks a normalized page format.
func ValidateFormat(cfg PageFormatConfig) error {
	size, ok := pageSizesMM[cfg.PaperSize]
	if !ok {
		return NewError(KindValidation, fmt.Sprintf("unsupported paper size: %s", cfg.PaperSize), nil)
	}
	if cfg.Orientation != OrientationPortrait && cfg.Orientation != OrientationLandscape {
		return NewError(KindValidation, fmt.Sprintf("unsupported orientation: %s", cfg.Orientation), nil)
	}
	if math.IsNaN(cfg.MarginMM) || cfg.MarginMM < 0 {
		return NewError(KindValidation, "margin must be a non-negative number", nil)
	}
	if cfg.MarginMM*2 >= math.Min(size.WidthMM, size.HeightMM) {
		return NewError(KindValidation, "margin leaves no printable area", nil)
	}
	return nil
}

// PageDimensions resolves the page size in millimeters. Landscape swaps width and height.
func PageDimensions(cfg PageFormatConfig) (PageSize, error) {
	cfg = NormalizeFormat(cfg)
	if err := ValidateFormat(cfg); err != nil {
		return PageSize{}, err
	}
	size := pageSizesMM[cfg.PaperSize]
	if cfg.Orientation == OrientationLandscape {
		size.WidthMM, size.HeightMM = size.HeightMM, size.WidthMM
	}
	return size, nil
}

// PaperSizes lists the supported paper sizes.
func PaperSizes() []PaperSize {
	return []PaperSize{PaperA4, PaperLetter, PaperLegal}
}
