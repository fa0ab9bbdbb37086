package usecase

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
)

type fakeMeasurements struct {
	items   map[string]*domain.Measurement
	updates int
}

func newFakeMeasurements(seed ...*domain.Measurement) *fakeMeasurements {
	f := &fakeMeasurements{items: make(map[string]*domain.Measurement)}
	for _, m := range seed {
		clone := *m
		f.items[m.ID] = &clone
	}
	return f
}

func (f *fakeMeasurements) Create(_ context.Context, m *domain.Measurement) error {
	clone := *m
	f.items[m.ID] = &clone
	return nil
}

func (f *fakeMeasurements) GetByID(_ context.Context, id string) (*domain.Measurement, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get measurement", fmt.Errorf("id=%s", id))
	}
	clone := *m
	return &clone, nil
}

func (f *fakeMeasurements) Update(_ context.Context, m *domain.Measurement) error {
	if _, ok := f.items[m.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update measurement", fmt.Errorf("id=%s", m.ID))
	}
	clone := *m
	f.items[m.ID] = &clone
	f.updates++
	return nil
}

func (f *fakeMeasurements) ListByCondition(_ context.Context, conditionID string) ([]domain.Measurement, error) {
	out := make([]domain.Measurement, 0)
	for _, m := range f.items {
		if m.ConditionID == conditionID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRevisions struct {
	nodes []domain.RevisionNode
}

func (f *fakeRevisions) Create(_ context.Context, node *domain.RevisionNode) error {
	f.nodes = append(f.nodes, *node)
	return nil
}

func (f *fakeRevisions) ListByMeasurement(_ context.Context, measurementID string) ([]domain.RevisionNode, error) {
	out := make([]domain.RevisionNode, 0)
	for _, node := range f.nodes {
		if node.MeasurementID == measurementID {
			out = append(out, node)
		}
	}
	return out, nil
}

func (f *fakeRevisions) byMeasurement(measurementID string) []domain.RevisionNode {
	nodes, _ := f.ListByMeasurement(context.Background(), measurementID)
	return nodes
}

type fakeSessions struct {
	sessions   map[string]*domain.AutoCountSession
	detections map[string]*domain.Detection
	order      []string

	onCreateDetection func(*domain.Detection)
}

func newFakeSessions(seed ...*domain.AutoCountSession) *fakeSessions {
	f := &fakeSessions{
		sessions:   make(map[string]*domain.AutoCountSession),
		detections: make(map[string]*domain.Detection),
	}
	for _, s := range seed {
		clone := *s
		f.sessions[s.ID] = &clone
	}
	return f
}

func (f *fakeSessions) Create(_ context.Context, s *domain.AutoCountSession) error {
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*domain.AutoCountSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("id=%s", id))
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSessions) Update(_ context.Context, s *domain.AutoCountSession) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update session", fmt.Errorf("id=%s", s.ID))
	}
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *fakeSessions) CreateDetection(_ context.Context, d *domain.Detection) error {
	clone := *d
	f.detections[d.ID] = &clone
	f.order = append(f.order, d.ID)
	if f.onCreateDetection != nil {
		f.onCreateDetection(&clone)
	}
	return nil
}

func (f *fakeSessions) GetDetection(_ context.Context, id string) (*domain.Detection, error) {
	d, ok := f.detections[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get detection", fmt.Errorf("id=%s", id))
	}
	clone := *d
	return &clone, nil
}

func (f *fakeSessions) UpdateDetection(_ context.Context, d *domain.Detection) error {
	if _, ok := f.detections[d.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update detection", fmt.Errorf("id=%s", d.ID))
	}
	clone := *d
	f.detections[d.ID] = &clone
	return nil
}

func (f *fakeSessions) ListDetections(_ context.Context, sessionID string) ([]domain.Detection, error) {
	out := make([]domain.Detection, 0)
	for _, id := range f.order {
		if d := f.detections[id]; d.SessionID == sessionID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeSessions) listBySession(sessionID string) []domain.Detection {
	out, _ := f.ListDetections(context.Background(), sessionID)
	return out
}

type fakeConditions struct {
	items map[string]*domain.Condition
}

func newFakeConditions(seed ...*domain.Condition) *fakeConditions {
	f := &fakeConditions{items: make(map[string]*domain.Condition)}
	for _, c := range seed {
		clone := *c
		f.items[c.ID] = &clone
	}
	return f
}

func (f *fakeConditions) Create(_ context.Context, c *domain.Condition) error {
	clone := *c
	f.items[c.ID] = &clone
	return nil
}

func (f *fakeConditions) GetByID(_ context.Context, id string) (*domain.Condition, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get condition", fmt.Errorf("id=%s", id))
	}
	clone := *c
	return &clone, nil
}

type fakePages struct {
	items map[string]*domain.Page
	bound map[string]string
}

func newFakePages(seed ...*domain.Page) *fakePages {
	f := &fakePages{items: make(map[string]*domain.Page), bound: make(map[string]string)}
	for _, p := range seed {
		clone := *p
		f.items[p.ID] = &clone
	}
	return f
}

func (f *fakePages) Create(_ context.Context, page *domain.Page) error {
	clone := *page
	f.items[page.ID] = &clone
	return nil
}

func (f *fakePages) GetByID(_ context.Context, id string) (*domain.Page, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get page", fmt.Errorf("id=%s", id))
	}
	clone := *p
	return &clone, nil
}

func (f *fakePages) SetScaleSpec(_ context.Context, pageID, scaleSpecID string) error {
	p, ok := f.items[pageID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "set scale spec", fmt.Errorf("id=%s", pageID))
	}
	p.ScaleSpecID = scaleSpecID
	f.bound[pageID] = scaleSpecID
	return nil
}

type fakeScales struct {
	items map[string]*domain.ScaleSpec
}

func newFakeScales(seed ...*domain.ScaleSpec) *fakeScales {
	f := &fakeScales{items: make(map[string]*domain.ScaleSpec)}
	for _, s := range seed {
		clone := *s
		f.items[s.ID] = &clone
	}
	return f
}

func (f *fakeScales) Create(_ context.Context, spec *domain.ScaleSpec) error {
	clone := *spec
	f.items[spec.ID] = &clone
	return nil
}

func (f *fakeScales) GetByID(_ context.Context, id string) (*domain.ScaleSpec, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get scale spec", fmt.Errorf("id=%s", id))
	}
	clone := *s
	return &clone, nil
}

type fakeMatcher struct {
	hits []ports.DetectionCandidate
	err  error
	fn   func(ctx context.Context)
}

func (f *fakeMatcher) Match(ctx context.Context, _ image.Image, _ geometry.Rect, _ ports.DetectionTolerances) ([]ports.DetectionCandidate, error) {
	if f.fn != nil {
		f.fn(ctx)
	}
	return f.hits, f.err
}

type fakeDetector struct {
	hits []ports.DetectionCandidate
	err  error
}

func (f *fakeDetector) DetectElements(_ context.Context, _ image.Image, _ geometry.Rect, _ ports.DetectionTolerances) ([]ports.DetectionCandidate, error) {
	return f.hits, f.err
}

type fakeImages struct{}

func (fakeImages) GetPageImage(_ context.Context, _ *domain.Page) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 400, 300)), nil
}

type fakeReader struct {
	text    string
	err     error
	regions []image.Rectangle
}

func (f *fakeReader) ReadText(_ context.Context, region image.Image) (string, error) {
	f.regions = append(f.regions, region.Bounds())
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeProgress struct {
	steps []string
}

func (f *fakeProgress) Progress(_ context.Context, _ string, _ int, step string) {
	f.steps = append(f.steps, step)
}

type fakeQueue struct {
	published []string
	err       error
}

func (f *fakeQueue) PublishRunRequested(_ context.Context, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, sessionID)
	return nil
}

func (f *fakeQueue) SubscribeRunRequested(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}
