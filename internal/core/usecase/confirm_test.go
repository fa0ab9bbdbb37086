package usecase

import (
	"context"
	"testing"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/revision"
)

type confirmFixture struct {
	sessions     *fakeSessions
	measurements *fakeMeasurements
	conditions   *fakeConditions
	revisionRepo *fakeRevisions
	uc           *ConfirmDetectionsUseCase
}

func newConfirmFixture(t *testing.T, measurementType domain.MeasurementType, confidences ...float64) *confirmFixture {
	t.Helper()
	f := &confirmFixture{
		sessions: newFakeSessions(&domain.AutoCountSession{
			ID:              "sess1",
			PageID:          "p1",
			ConditionID:     "c1",
			DetectionMethod: domain.DetectionMethodTemplate,
			Status:          domain.SessionCompleted,
			TotalDetections: len(confidences),
		}),
		measurements: newFakeMeasurements(),
		conditions: newFakeConditions(&domain.Condition{
			ID: "c1", Name: "sprinkler head", MeasurementType: measurementType, Unit: "EA",
		}),
		revisionRepo: &fakeRevisions{},
	}
	for i, confidence := range confidences {
		d := &domain.Detection{
			ID:              detectionID(i),
			SessionID:       "sess1",
			BBox:            geometry.Rect{X: float64(i * 50), Y: 10, Width: 20, Height: 20},
			CenterX:         float64(i*50) + 10,
			CenterY:         20,
			Confidence:      confidence,
			DetectionSource: domain.DetectionSourceTemplate,
			Status:          domain.DetectionPending,
		}
		if err := f.sessions.CreateDetection(context.Background(), d); err != nil {
			t.Fatalf("CreateDetection() error = %v", err)
		}
	}
	f.uc = NewConfirmDetectionsUseCase(
		f.sessions, f.measurements, f.conditions, revision.NewEngine(f.revisionRepo), 0)
	return f
}

func TestConfirmDefaultThreshold(t *testing.T) {
	newUC := func(threshold float64) *ConfirmDetectionsUseCase {
		return NewConfirmDetectionsUseCase(
			newFakeSessions(), newFakeMeasurements(), newFakeConditions(),
			revision.NewEngine(&fakeRevisions{}), threshold)
	}

	if got := newUC(0.65).DefaultThreshold(); got != 0.65 {
		t.Errorf("DefaultThreshold() = %v, want the configured 0.65", got)
	}
	if got := newUC(0).DefaultThreshold(); got != 0.8 {
		t.Errorf("DefaultThreshold() unset = %v, want fallback 0.8", got)
	}
	if got := newUC(1.5).DefaultThreshold(); got != 0.8 {
		t.Errorf("DefaultThreshold() out of range = %v, want fallback 0.8", got)
	}
}

func detectionID(i int) string {
	return string(rune('a'+i)) + "-det"
}

func TestAutoConfirmAppliesThreshold(t *testing.T) {
	f := newConfirmFixture(t, domain.MeasurementTypeCount, 0.95, 0.79, 0.81)

	session, err := f.uc.AutoConfirm(context.Background(), "sess1", 0.8)
	if err != nil {
		t.Fatalf("AutoConfirm() error = %v", err)
	}
	if session.ConfirmedDetections != 2 {
		t.Errorf("AutoConfirm() confirmed = %d, want 2", session.ConfirmedDetections)
	}

	detections := f.sessions.listBySession("sess1")
	var confirmed, pending int
	for _, d := range detections {
		switch d.Status {
		case domain.DetectionConfirmed:
			confirmed++
			if !d.IsAutoConfirmed {
				t.Errorf("detection %s confirmed but IsAutoConfirmed = false", d.ID)
			}
			if d.MeasurementID == "" {
				t.Errorf("detection %s has no measurement link", d.ID)
			}
		case domain.DetectionPending:
			pending++
			if d.Confidence >= 0.8 {
				t.Errorf("detection %s confidence %v left pending above threshold", d.ID, d.Confidence)
			}
		}
	}
	if confirmed != 2 || pending != 1 {
		t.Errorf("detections = %d confirmed, %d pending, want 2 and 1", confirmed, pending)
	}

	if len(f.measurements.items) != 2 {
		t.Fatalf("measurements created = %d, want 2", len(f.measurements.items))
	}
	for _, m := range f.measurements.items {
		if m.Status != domain.MeasurementAutoAccepted {
			t.Errorf("measurement status = %s, want %s", m.Status, domain.MeasurementAutoAccepted)
		}
		if !m.IsAIGenerated {
			t.Error("measurement IsAIGenerated = false, want true")
		}
		if m.Geometry.Kind != geometry.KindPoint {
			t.Errorf("count measurement kind = %s, want %s", m.Geometry.Kind, geometry.KindPoint)
		}
		if m.Quantity != 1 || m.Unit != "EA" {
			t.Errorf("count measurement quantity = %v %s, want 1 EA", m.Quantity, m.Unit)
		}
		nodes := f.revisionRepo.byMeasurement(m.ID)
		if len(nodes) != 1 || nodes[0].Action != domain.RevisionActionAutoAccepted {
			t.Errorf("measurement %s revisions = %+v, want one auto_accepted node", m.ID, nodes)
		}
		if len(nodes) == 1 && nodes[0].ActorType != domain.ActorTypeAutoAccept {
			t.Errorf("revision actor type = %s, want %s", nodes[0].ActorType, domain.ActorTypeAutoAccept)
		}
	}
}

func TestBulkConfirmRecordsActingUser(t *testing.T) {
	f := newConfirmFixture(t, domain.MeasurementTypeCount, 0.9, 0.85)

	session, err := f.uc.BulkConfirm(context.Background(), "sess1", 0.8, "bob")
	if err != nil {
		t.Fatalf("BulkConfirm() error = %v", err)
	}
	if session.ConfirmedDetections != 2 {
		t.Errorf("BulkConfirm() confirmed = %d, want 2", session.ConfirmedDetections)
	}

	for _, d := range f.sessions.listBySession("sess1") {
		if d.IsAutoConfirmed {
			t.Errorf("detection %s IsAutoConfirmed = true for a manual bulk confirm", d.ID)
		}
	}
	for _, m := range f.measurements.items {
		if m.Status != domain.MeasurementCreated {
			t.Errorf("measurement status = %s, want %s", m.Status, domain.MeasurementCreated)
		}
		nodes := f.revisionRepo.byMeasurement(m.ID)
		if len(nodes) != 1 || nodes[0].Action != domain.RevisionActionCreated {
			t.Errorf("revisions = %+v, want one created node", nodes)
		}
		if len(nodes) == 1 && (nodes[0].Actor != "bob" || nodes[0].ActorType != domain.ActorTypeUser) {
			t.Errorf("revision actor = %s/%s, want bob/user", nodes[0].Actor, nodes[0].ActorType)
		}
	}
}

func TestConfirmRejectsBadThreshold(t *testing.T) {
	f := newConfirmFixture(t, domain.MeasurementTypeCount, 0.9)

	if _, err := f.uc.AutoConfirm(context.Background(), "sess1", 1.5); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("AutoConfirm(threshold=1.5) error = %v, want validation error", err)
	}
	if _, err := f.uc.AutoConfirm(context.Background(), "sess1", -0.1); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("AutoConfirm(threshold=-0.1) error = %v, want validation error", err)
	}
}

func TestConfirmDetectionMaterializesBBoxForAreaConditions(t *testing.T) {
	f := newConfirmFixture(t, domain.MeasurementTypeArea, 0.5)

	detection, err := f.uc.ConfirmDetection(context.Background(), detectionID(0), "carol")
	if err != nil {
		t.Fatalf("ConfirmDetection() error = %v", err)
	}
	if detection.Status != domain.DetectionConfirmed {
		t.Errorf("ConfirmDetection() status = %s, want %s", detection.Status, domain.DetectionConfirmed)
	}

	m, err := f.measurements.GetByID(context.Background(), detection.MeasurementID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if m.Geometry.Kind != geometry.KindPolygon {
		t.Errorf("area measurement kind = %s, want %s", m.Geometry.Kind, geometry.KindPolygon)
	}
	if m.Quantity != 400 {
		t.Errorf("area measurement quantity = %v, want 400 px2", m.Quantity)
	}
}

func TestConfirmDetectionRejectsNonPending(t *testing.T) {
	f := newConfirmFixture(t, domain.MeasurementTypeCount, 0.9)

	if _, err := f.uc.ConfirmDetection(context.Background(), detectionID(0), "carol"); err != nil {
		t.Fatalf("ConfirmDetection() first call error = %v", err)
	}
	if _, err := f.uc.ConfirmDetection(context.Background(), detectionID(0), "carol"); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("ConfirmDetection() already confirmed error = %v, want validation error", err)
	}
}

func TestRejectDetection(t *testing.T) {
	f := newConfirmFixture(t, domain.MeasurementTypeCount, 0.9)

	detection, err := f.uc.RejectDetection(context.Background(), detectionID(0))
	if err != nil {
		t.Fatalf("RejectDetection() error = %v", err)
	}
	if detection.Status != domain.DetectionRejected {
		t.Errorf("RejectDetection() status = %s, want %s", detection.Status, domain.DetectionRejected)
	}

	session, err := f.sessions.GetByID(context.Background(), "sess1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if session.RejectedDetections != 1 {
		t.Errorf("session rejected counter = %d, want 1", session.RejectedDetections)
	}
	if len(f.measurements.items) != 0 {
		t.Errorf("RejectDetection() created %d measurements, want 0", len(f.measurements.items))
	}

	if _, err := f.uc.RejectDetection(context.Background(), detectionID(0)); !domain.IsKind(err, domain.ErrValidation) {
		t.Errorf("RejectDetection() already rejected error = %v, want validation error", err)
	}
}
