package usecase

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

func TestParseAndBindMakesSpecActive(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1", RenderDPI: 150})
	scales := newFakeScales()
	uc := NewCalibrateScaleUseCase(scales, pages, fakeImages{}, &fakeReader{})

	spec, err := uc.ParseAndBind(context.Background(), "p1", `1/4" = 1'-0"`, "")
	if err != nil {
		t.Fatalf("ParseAndBind() error = %v", err)
	}
	if spec.Ratio != 48 {
		t.Errorf("ParseAndBind() ratio = %v, want 48", spec.Ratio)
	}
	if spec.DetectionMethod != domain.ScaleDetectedOCRPattern {
		t.Errorf("ParseAndBind() method = %s, want %s", spec.DetectionMethod, domain.ScaleDetectedOCRPattern)
	}
	if spec.RawText != `1/4" = 1'-0"` {
		t.Errorf("ParseAndBind() raw text = %q, want the original annotation", spec.RawText)
	}

	if pages.bound["p1"] != spec.ID {
		t.Errorf("page bound spec = %q, want %q", pages.bound["p1"], spec.ID)
	}
	if _, err := scales.GetByID(context.Background(), spec.ID); err != nil {
		t.Errorf("GetByID() persisted spec error = %v", err)
	}
}

func TestParseAndBindKeepsCallerMethod(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	uc := NewCalibrateScaleUseCase(newFakeScales(), pages, fakeImages{}, &fakeReader{})

	spec, err := uc.ParseAndBind(context.Background(), "p1", "1:100", domain.ScaleDetectedVisionLLM)
	if err != nil {
		t.Fatalf("ParseAndBind() error = %v", err)
	}
	if spec.DetectionMethod != domain.ScaleDetectedVisionLLM {
		t.Errorf("ParseAndBind() method = %s, want %s", spec.DetectionMethod, domain.ScaleDetectedVisionLLM)
	}
}

func TestParseAndBindUnrecognizedTextHasNoSideEffect(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	scales := newFakeScales()
	uc := NewCalibrateScaleUseCase(scales, pages, fakeImages{}, &fakeReader{})

	_, err := uc.ParseAndBind(context.Background(), "p1", "SHEET A-101", "")
	if !domain.IsKind(err, domain.ErrParse) {
		t.Fatalf("ParseAndBind() error = %v, want parse error", err)
	}
	if len(scales.items) != 0 {
		t.Errorf("ParseAndBind() persisted %d specs on parse failure, want 0", len(scales.items))
	}
	if len(pages.bound) != 0 {
		t.Error("ParseAndBind() bound a spec on parse failure")
	}
}

func TestParseAndBindNotToScale(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	uc := NewCalibrateScaleUseCase(newFakeScales(), pages, fakeImages{}, &fakeReader{})

	spec, err := uc.ParseAndBind(context.Background(), "p1", "N.T.S.", "")
	if err != nil {
		t.Fatalf("ParseAndBind() error = %v", err)
	}
	if !spec.NotToScale || spec.Ratio != 0 {
		t.Errorf("ParseAndBind() N.T.S. spec = ratio %v, NotToScale %v, want 0 and true", spec.Ratio, spec.NotToScale)
	}
}

func TestDetectFromRegionBindsRecognizedAnnotation(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1", RenderDPI: 150})
	scales := newFakeScales()
	reader := &fakeReader{text: "1/4\" = 1'-0\"\n"}
	uc := NewCalibrateScaleUseCase(scales, pages, fakeImages{}, reader)

	spec, err := uc.DetectFromRegion(context.Background(), "p1", geometry.Rect{X: 20, Y: 250, Width: 120, Height: 30})
	if err != nil {
		t.Fatalf("DetectFromRegion() error = %v", err)
	}
	if spec.Ratio != 48 {
		t.Errorf("DetectFromRegion() ratio = %v, want 48", spec.Ratio)
	}
	if spec.DetectionMethod != domain.ScaleDetectedOCR {
		t.Errorf("DetectFromRegion() method = %s, want %s", spec.DetectionMethod, domain.ScaleDetectedOCR)
	}
	if pages.bound["p1"] != spec.ID {
		t.Errorf("page bound spec = %q, want %q", pages.bound["p1"], spec.ID)
	}

	want := image.Rect(20, 250, 140, 280)
	if len(reader.regions) != 1 || reader.regions[0] != want {
		t.Errorf("ReadText() region = %v, want %v", reader.regions, want)
	}
}

func TestDetectFromRegionUnreadableTextHasNoSideEffect(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	scales := newFakeScales()
	uc := NewCalibrateScaleUseCase(scales, pages, fakeImages{}, &fakeReader{text: "PAINT SCHEDULE"})

	_, err := uc.DetectFromRegion(context.Background(), "p1", geometry.Rect{X: 0, Y: 0, Width: 50, Height: 20})
	if !domain.IsKind(err, domain.ErrParse) {
		t.Fatalf("DetectFromRegion() error = %v, want parse error", err)
	}
	if len(scales.items) != 0 || len(pages.bound) != 0 {
		t.Error("DetectFromRegion() persisted state on parse failure")
	}
}

func TestDetectFromRegionOCRFailure(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	reader := &fakeReader{err: errors.New("ocr engine unavailable")}
	uc := NewCalibrateScaleUseCase(newFakeScales(), pages, fakeImages{}, reader)

	_, err := uc.DetectFromRegion(context.Background(), "p1", geometry.Rect{X: 0, Y: 0, Width: 50, Height: 20})
	if !domain.IsKind(err, domain.ErrDetection) {
		t.Fatalf("DetectFromRegion() error = %v, want detection error", err)
	}
}

func TestDetectFromRegionRejectsBadRegion(t *testing.T) {
	reader := &fakeReader{text: "1:100"}
	uc := NewCalibrateScaleUseCase(newFakeScales(), newFakePages(&domain.Page{ID: "p1"}), fakeImages{}, reader)

	if _, err := uc.DetectFromRegion(context.Background(), "p1", geometry.Rect{Width: 0, Height: 20}); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("DetectFromRegion(zero width) error = %v, want validation error", err)
	}
	if _, err := uc.DetectFromRegion(context.Background(), "p1", geometry.Rect{X: 5000, Y: 5000, Width: 50, Height: 20}); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("DetectFromRegion(off-page) error = %v, want validation error", err)
	}
	if len(reader.regions) != 0 {
		t.Errorf("ReadText() called %d times for rejected regions, want 0", len(reader.regions))
	}
}

func TestCalibrateManual(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	scales := newFakeScales()
	uc := NewCalibrateScaleUseCase(scales, pages, fakeImages{}, &fakeReader{})

	spec, err := uc.CalibrateManual(context.Background(), "p1", 100, 10, domain.ScaleUnitFoot)
	if err != nil {
		t.Fatalf("CalibrateManual() error = %v", err)
	}
	if spec.Ratio != 10 {
		t.Errorf("CalibrateManual() ratio = %v, want 10 px/ft", spec.Ratio)
	}
	if spec.DetectionMethod != domain.ScaleDetectedManual {
		t.Errorf("CalibrateManual() method = %s, want %s", spec.DetectionMethod, domain.ScaleDetectedManual)
	}
	if pages.bound["p1"] != spec.ID {
		t.Errorf("page bound spec = %q, want %q", pages.bound["p1"], spec.ID)
	}
}

func TestCalibrateManualRecalibrationBindsFreshSpec(t *testing.T) {
	pages := newFakePages(&domain.Page{ID: "p1"})
	scales := newFakeScales()
	uc := NewCalibrateScaleUseCase(scales, pages, fakeImages{}, &fakeReader{})

	first, err := uc.CalibrateManual(context.Background(), "p1", 100, 10, domain.ScaleUnitFoot)
	if err != nil {
		t.Fatalf("CalibrateManual() first error = %v", err)
	}
	second, err := uc.CalibrateManual(context.Background(), "p1", 200, 10, domain.ScaleUnitFoot)
	if err != nil {
		t.Fatalf("CalibrateManual() second error = %v", err)
	}

	if first.ID == second.ID {
		t.Error("recalibration reused the old scale record id, want a fresh one")
	}
	if pages.bound["p1"] != second.ID {
		t.Errorf("page bound spec = %q, want the newer %q", pages.bound["p1"], second.ID)
	}
	// The first spec survives for historical conversions.
	if _, err := scales.GetByID(context.Background(), first.ID); err != nil {
		t.Errorf("GetByID() original spec error = %v", err)
	}
}

func TestCalibrateManualRejectsBadDistances(t *testing.T) {
	uc := NewCalibrateScaleUseCase(newFakeScales(), newFakePages(&domain.Page{ID: "p1"}), fakeImages{}, &fakeReader{})

	if _, err := uc.CalibrateManual(context.Background(), "p1", 0, 10, domain.ScaleUnitFoot); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("CalibrateManual(pixel=0) error = %v, want validation error", err)
	}
}
