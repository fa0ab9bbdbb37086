package scale

import (
	"math"
	"testing"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

func TestParseTextArchitectural(t *testing.T) {
	got, err := ParseText(`1/4" = 1'-0"`)
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}
	if got.Ratio != 48 {
		t.Errorf("ParseText() ratio = %v, want 48", got.Ratio)
	}
	if got.NotToScale {
		t.Error("ParseText() NotToScale = true for a valid annotation")
	}
	if got.Method != domain.ScaleDetectedOCRPattern {
		t.Errorf("ParseText() method = %s, want %s", got.Method, domain.ScaleDetectedOCRPattern)
	}
}

func TestParseTextArchitecturalWithInches(t *testing.T) {
	got, err := ParseText(`1/8" = 1'-6"`)
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}
	// 18 drawing inches per 1/8 inch.
	if got.Ratio != 144 {
		t.Errorf("ParseText() ratio = %v, want 144", got.Ratio)
	}
}

func TestParseTextEngineering(t *testing.T) {
	got, err := ParseText(`1" = 50'`)
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}
	if got.Ratio != 600 {
		t.Errorf("ParseText() ratio = %v, want 600", got.Ratio)
	}
}

func TestParseTextRatio(t *testing.T) {
	for _, text := range []string{"1:100", "SCALE 1:100", "scale: 1:100"} {
		got, err := ParseText(text)
		if err != nil {
			t.Fatalf("ParseText(%q) error = %v", text, err)
		}
		if got.Ratio != 100 {
			t.Errorf("ParseText(%q) ratio = %v, want 100", text, got.Ratio)
		}
	}
}

func TestParseTextNotToScale(t *testing.T) {
	for _, text := range []string{"N.T.S.", "NTS", "Not to scale"} {
		got, err := ParseText(text)
		if err != nil {
			t.Fatalf("ParseText(%q) error = %v", text, err)
		}
		if !got.NotToScale {
			t.Errorf("ParseText(%q) NotToScale = false, want true", text)
		}
		if got.Ratio != 0 {
			t.Errorf("ParseText(%q) ratio = %v, want 0", text, got.Ratio)
		}
	}
}

func TestParseTextRejectsUnrecognized(t *testing.T) {
	for _, text := range []string{"", "whatever", "SHEET A-101", "PAINTS", "CONSULTANTS"} {
		if _, err := ParseText(text); !domain.IsKind(err, domain.ErrParse) {
			t.Errorf("ParseText(%q) error = %v, want parse error", text, err)
		}
	}
}

func TestParseTextRejectsZeroRatio(t *testing.T) {
	for _, text := range []string{"1:0", "SCALE 1:0"} {
		if _, err := ParseText(text); !domain.IsKind(err, domain.ErrParse) {
			t.Errorf("ParseText(%q) error = %v, want parse error", text, err)
		}
	}
}

func TestParseTextRejectsDegenerateFraction(t *testing.T) {
	if _, err := ParseText(`0/4" = 1'-0"`); !domain.IsKind(err, domain.ErrParse) {
		t.Errorf("ParseText() zero numerator error = %v, want parse error", err)
	}
	if _, err := ParseText(`1/0" = 1'-0"`); !domain.IsKind(err, domain.ErrParse) {
		t.Errorf("ParseText() zero denominator error = %v, want parse error", err)
	}
}

func TestCalibrate(t *testing.T) {
	got, err := Calibrate(100, 10, domain.ScaleUnitFoot)
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if got != 10 {
		t.Errorf("Calibrate() = %v, want 10", got)
	}

	got, err = Calibrate(120, 10, domain.ScaleUnitInch)
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if got != 144 {
		t.Errorf("Calibrate() inches = %v, want 144", got)
	}
}

func TestCalibrateRejectsBadInput(t *testing.T) {
	if _, err := Calibrate(0, 10, domain.ScaleUnitFoot); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("Calibrate(pixel=0) error = %v, want validation error", err)
	}
	if _, err := Calibrate(100, -1, domain.ScaleUnitFoot); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("Calibrate(real=-1) error = %v, want validation error", err)
	}
	if _, err := Calibrate(100, 10, domain.ScaleUnit("meter")); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("Calibrate(bad unit) error = %v, want validation error", err)
	}
}

func TestConvertQuantity(t *testing.T) {
	tests := []struct {
		name       string
		pixelValue float64
		kind       geometry.Kind
		ppf        float64
		want       float64
	}{
		{"length divides once", 500, geometry.KindPolyline, 10, 50},
		{"line divides once", 120, geometry.KindLine, 12, 10},
		{"area divides by square", 10000, geometry.KindPolygon, 10, 100},
		{"count passes through", 7, geometry.KindPoint, 10, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertQuantity(tt.pixelValue, tt.kind, tt.ppf)
			if err != nil {
				t.Fatalf("ConvertQuantity() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertQuantity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertQuantityRejectsBadFactor(t *testing.T) {
	if _, err := ConvertQuantity(100, geometry.KindLine, 0); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("ConvertQuantity(ppf=0) error = %v, want validation error", err)
	}
	// Counts never touch the factor, so a zero factor is fine there.
	if got, err := ConvertQuantity(3, geometry.KindPoint, 0); err != nil || got != 3 {
		t.Errorf("ConvertQuantity(point, ppf=0) = %v, %v, want 3, nil", got, err)
	}
}

func TestPixelsPerFoot(t *testing.T) {
	manual := domain.ScaleSpec{Ratio: 12.5, DetectionMethod: domain.ScaleDetectedManual}
	got, err := PixelsPerFoot(manual, 150)
	if err != nil {
		t.Fatalf("PixelsPerFoot() error = %v", err)
	}
	if got != 12.5 {
		t.Errorf("PixelsPerFoot() manual = %v, want 12.5", got)
	}

	parsed := domain.ScaleSpec{Ratio: 48, DetectionMethod: domain.ScaleDetectedOCRPattern}
	got, err = PixelsPerFoot(parsed, 150)
	if err != nil {
		t.Fatalf("PixelsPerFoot() error = %v", err)
	}
	// 150 dpi * 12 inches per foot / 48.
	if got != 37.5 {
		t.Errorf("PixelsPerFoot() parsed = %v, want 37.5", got)
	}
}

func TestPixelsPerFootRejectsUnusableSpecs(t *testing.T) {
	nts := domain.ScaleSpec{NotToScale: true, DetectionMethod: domain.ScaleDetectedOCRPattern}
	if _, err := PixelsPerFoot(nts, 150); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("PixelsPerFoot() not-to-scale error = %v, want validation error", err)
	}

	parsed := domain.ScaleSpec{Ratio: 48, DetectionMethod: domain.ScaleDetectedOCRPattern}
	if _, err := PixelsPerFoot(parsed, 0); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("PixelsPerFoot() zero dpi error = %v, want validation error", err)
	}
}
