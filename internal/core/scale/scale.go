// Package scale parses drawing scale annotations and converts pixel-space
// quantities into real-world units.
package scale

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

// Parsed is the result of recognizing a scale annotation.
type Parsed struct {
	Ratio      float64
	Unit       domain.ScaleUnit
	NotToScale bool
	Method     domain.ScaleDetectionMethod
}

var (
	// 1/4" = 1'-0"
	architecturalRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)\s*"?\s*=\s*(\d+)\s*'(?:\s*-?\s*(\d+)\s*"?)?`)
	// 1" = 50'
	engineeringRe = regexp.MustCompile(`^(\d+)\s*"\s*=\s*(\d+)\s*'`)
	// 1:100, SCALE 1:100
	ratioRe = regexp.MustCompile(`^(?:SCALE\s*:?\s*)?1\s*:\s*(\d+(?:\.\d+)?)\s*$`)

	// The NTS alternative must not fire on letters embedded in ordinary
	// words ("PAINTS"), so both sides are fenced by non-letters.
	notToScaleRe = regexp.MustCompile(`(?:^|[^A-Z])(?:N\.?\s?T\.?\s?S\.?|NOT\s+TO\s+SCALE)(?:[^A-Z]|$)`)
)

// ParseText recognizes the four textual scale families. The most specific
// pattern wins on ambiguity: architectural, then engineering, then pure
// ratio, then not-to-scale markers. Unrecognized text returns ErrParse; the
// caller must treat that as "no scale detected", never as a zero ratio.
func ParseText(text string) (Parsed, error) {
	normalized := strings.ToUpper(strings.TrimSpace(text))
	if normalized == "" {
		return Parsed{}, domain.WrapError(domain.ErrParse, "parse scale", errors.New("empty text"))
	}

	if m := architecturalRe.FindStringSubmatch(normalized); m != nil {
		numerator := mustFloat(m[1])
		denominator := mustFloat(m[2])
		feet := mustFloat(m[3])
		inches := 0.0
		if m[4] != "" {
			inches = mustFloat(m[4])
		}
		if numerator == 0 || denominator == 0 {
			return Parsed{}, domain.WrapError(domain.ErrParse, "parse scale",
				fmt.Errorf("degenerate architectural fraction in %q", text))
		}
		return Parsed{
			Ratio:  (feet*12 + inches) / (numerator / denominator),
			Unit:   domain.ScaleUnitFoot,
			Method: domain.ScaleDetectedOCRPattern,
		}, nil
	}

	if m := engineeringRe.FindStringSubmatch(normalized); m != nil {
		drawingInches := mustFloat(m[1])
		feet := mustFloat(m[2])
		if drawingInches == 0 {
			return Parsed{}, domain.WrapError(domain.ErrParse, "parse scale",
				fmt.Errorf("zero drawing inches in %q", text))
		}
		return Parsed{
			Ratio:  feet * 12 / drawingInches,
			Unit:   domain.ScaleUnitFoot,
			Method: domain.ScaleDetectedOCRPattern,
		}, nil
	}

	if m := ratioRe.FindStringSubmatch(normalized); m != nil {
		ratio := mustFloat(m[1])
		if ratio <= 0 {
			return Parsed{}, domain.WrapError(domain.ErrParse, "parse scale",
				fmt.Errorf("zero ratio in %q", text))
		}
		return Parsed{
			Ratio:  ratio,
			Unit:   domain.ScaleUnitFoot,
			Method: domain.ScaleDetectedOCRPattern,
		}, nil
	}

	if notToScaleRe.MatchString(normalized) {
		return Parsed{
			Ratio:      0,
			Unit:       domain.ScaleUnitFoot,
			NotToScale: true,
			Method:     domain.ScaleDetectedOCRPattern,
		}, nil
	}

	return Parsed{}, domain.WrapError(domain.ErrParse, "parse scale",
		fmt.Errorf("unrecognized scale text %q", text))
}

// Calibrate derives pixels-per-foot from a user-drawn reference distance.
// realDistance in inches is converted to feet before dividing.
func Calibrate(pixelDistance, realDistance float64, unit domain.ScaleUnit) (float64, error) {
	if pixelDistance <= 0 {
		return 0, domain.WrapError(domain.ErrValidation, "calibrate",
			fmt.Errorf("pixel distance must be positive, got %v", pixelDistance))
	}
	if realDistance <= 0 {
		return 0, domain.WrapError(domain.ErrValidation, "calibrate",
			fmt.Errorf("real distance must be positive, got %v", realDistance))
	}

	realFeet := realDistance
	switch unit {
	case domain.ScaleUnitFoot:
	case domain.ScaleUnitInch:
		realFeet = realDistance / 12
	default:
		return 0, domain.WrapError(domain.ErrValidation, "calibrate",
			fmt.Errorf("unknown unit %q", unit))
	}
	return pixelDistance / realFeet, nil
}

// ConvertQuantity converts a pixel quantity to real units using the
// dimensionality of the geometry kind: lengths divide once by pixelsPerFoot,
// areas by its square, counts pass through unchanged.
func ConvertQuantity(pixelValue float64, kind geometry.Kind, pixelsPerFoot float64) (float64, error) {
	if kind == geometry.KindPoint {
		return pixelValue, nil
	}
	if pixelsPerFoot <= 0 {
		return 0, domain.WrapError(domain.ErrValidation, "convert quantity",
			fmt.Errorf("pixels per foot must be positive, got %v", pixelsPerFoot))
	}

	switch kind {
	case geometry.KindPolygon:
		return pixelValue / (pixelsPerFoot * pixelsPerFoot), nil
	case geometry.KindLine, geometry.KindPolyline:
		return pixelValue / pixelsPerFoot, nil
	default:
		return 0, domain.WrapError(domain.ErrValidation, "convert quantity",
			fmt.Errorf("unknown geometry kind %q", kind))
	}
}

// PixelsPerFoot resolves a calibration factor from a scale spec at a raster
// resolution. Manual calibrations and scale bars store pixels-per-foot in the
// ratio directly; parsed annotations store the architectural ratio, which
// needs the page DPI.
func PixelsPerFoot(spec domain.ScaleSpec, dpi float64) (float64, error) {
	if spec.NotToScale || spec.Ratio <= 0 {
		return 0, domain.WrapError(domain.ErrValidation, "pixels per foot",
			errors.New("spec is not to scale"))
	}
	switch spec.DetectionMethod {
	case domain.ScaleDetectedManual, domain.ScaleDetectedScaleBar:
		return spec.Ratio, nil
	default:
		if dpi <= 0 {
			return 0, domain.WrapError(domain.ErrValidation, "pixels per foot",
				fmt.Errorf("dpi must be positive, got %v", dpi))
		}
		return dpi * 12 / spec.Ratio, nil
	}
}

func mustFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
