package usecase

import (
	"context"
	"math"
	"testing"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/revision"
)

type createFixture struct {
	measurements *fakeMeasurements
	conditions   *fakeConditions
	pages        *fakePages
	scales       *fakeScales
	revisionRepo *fakeRevisions
	uc           *CreateMeasurementUseCase
}

func newCreateFixture(condition *domain.Condition, page *domain.Page, spec *domain.ScaleSpec) *createFixture {
	f := &createFixture{
		measurements: newFakeMeasurements(),
		conditions:   newFakeConditions(condition),
		pages:        newFakePages(page),
		scales:       newFakeScales(),
		revisionRepo: &fakeRevisions{},
	}
	if spec != nil {
		f.scales = newFakeScales(spec)
	}
	f.uc = NewCreateMeasurementUseCase(
		f.measurements, f.conditions, f.pages, f.scales, revision.NewEngine(f.revisionRepo))
	return f
}

func TestCreateMeasurementConvertsArea(t *testing.T) {
	f := newCreateFixture(
		&domain.Condition{ID: "c1", MeasurementType: domain.MeasurementTypeArea, Unit: "SF"},
		&domain.Page{ID: "p1", RenderDPI: 150, ScaleSpecID: "s1"},
		&domain.ScaleSpec{ID: "s1", PageID: "p1", Ratio: 10, DetectionMethod: domain.ScaleDetectedManual},
	)
	g, err := geometry.NewPolygon([]geometry.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100},
	})
	if err != nil {
		t.Fatalf("NewPolygon() error = %v", err)
	}

	m, err := f.uc.Create(context.Background(), CreateMeasurementRequest{
		ConditionID: "c1",
		PageID:      "p1",
		Geometry:    g,
		Actor:       "alice",
		ActorType:   domain.ActorTypeUser,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 10000 px2 at 10 px/ft.
	if math.Abs(m.Quantity-100) > 1e-9 {
		t.Errorf("Create() quantity = %v, want 100 SF", m.Quantity)
	}
	if m.Unit != "SF" {
		t.Errorf("Create() unit = %s, want SF", m.Unit)
	}
	if m.PixelArea != 10000 || m.PixelLength != 0 {
		t.Errorf("Create() pixel fields = area %v, length %v, want 10000 and 0", m.PixelArea, m.PixelLength)
	}
	if m.Status != domain.MeasurementCreated {
		t.Errorf("Create() status = %s, want %s", m.Status, domain.MeasurementCreated)
	}

	nodes := f.revisionRepo.byMeasurement(m.ID)
	if len(nodes) != 1 || nodes[0].Action != domain.RevisionActionCreated {
		t.Fatalf("revisions = %+v, want one created node", nodes)
	}
	if len(nodes[0].ParentIDs) != 0 {
		t.Errorf("root revision parents = %v, want none", nodes[0].ParentIDs)
	}
}

func TestCreateMeasurementVolumeAppliesDepth(t *testing.T) {
	f := newCreateFixture(
		&domain.Condition{ID: "c1", MeasurementType: domain.MeasurementTypeVolume, Unit: "CF", DepthInches: 6},
		&domain.Page{ID: "p1", RenderDPI: 150, ScaleSpecID: "s1"},
		&domain.ScaleSpec{ID: "s1", PageID: "p1", Ratio: 10, DetectionMethod: domain.ScaleDetectedManual},
	)
	g, _ := geometry.NewPolygon([]geometry.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100},
	})

	m, err := f.uc.Create(context.Background(), CreateMeasurementRequest{
		ConditionID: "c1", PageID: "p1", Geometry: g, ActorType: domain.ActorTypeUser,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// 100 SF at 6 inches deep.
	if math.Abs(m.Quantity-50) > 1e-9 {
		t.Errorf("Create() volume quantity = %v, want 50 CF", m.Quantity)
	}
}

func TestCreateMeasurementNotToScalePageKeepsPixels(t *testing.T) {
	f := newCreateFixture(
		&domain.Condition{ID: "c1", MeasurementType: domain.MeasurementTypeLinear, Unit: "LF"},
		&domain.Page{ID: "p1", RenderDPI: 150, ScaleSpecID: "s1"},
		&domain.ScaleSpec{ID: "s1", PageID: "p1", NotToScale: true, DetectionMethod: domain.ScaleDetectedOCRPattern},
	)
	g, _ := geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 120, Y: 0})

	m, err := f.uc.Create(context.Background(), CreateMeasurementRequest{
		ConditionID: "c1", PageID: "p1", Geometry: g, ActorType: domain.ActorTypeUser,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.Quantity != 120 || m.Unit != "px" {
		t.Errorf("Create() on N.T.S. page = %v %s, want 120 px", m.Quantity, m.Unit)
	}
}

func TestCreateMeasurementFlagsAIOrigin(t *testing.T) {
	f := newCreateFixture(
		&domain.Condition{ID: "c1", MeasurementType: domain.MeasurementTypeCount, Unit: "EA"},
		&domain.Page{ID: "p1"},
		nil,
	)

	m, err := f.uc.Create(context.Background(), CreateMeasurementRequest{
		ConditionID:  "c1",
		PageID:       "p1",
		Geometry:     geometry.NewPoint(geometry.Point{X: 40, Y: 40}),
		ActorType:    domain.ActorTypeAI,
		AIConfidence: 0.87,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !m.IsAIGenerated || m.AIConfidence != 0.87 {
		t.Errorf("Create() AI flags = %v/%v, want true/0.87", m.IsAIGenerated, m.AIConfidence)
	}
	if m.Quantity != 1 || m.Unit != "EA" {
		t.Errorf("Create() count = %v %s, want 1 EA", m.Quantity, m.Unit)
	}
}

func TestCreateMeasurementRejectsInvalidGeometry(t *testing.T) {
	f := newCreateFixture(
		&domain.Condition{ID: "c1", MeasurementType: domain.MeasurementTypeLinear, Unit: "LF"},
		&domain.Page{ID: "p1"},
		nil,
	)

	_, err := f.uc.Create(context.Background(), CreateMeasurementRequest{
		ConditionID: "c1",
		PageID:      "p1",
		Geometry:    geometry.Geometry{Kind: geometry.KindLine, Points: []geometry.Point{{X: 1, Y: 1}}},
		ActorType:   domain.ActorTypeUser,
	})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("Create() invalid geometry error = %v, want validation error", err)
	}
	if len(f.measurements.items) != 0 {
		t.Errorf("Create() persisted %d measurements on invalid input, want 0", len(f.measurements.items))
	}
}
