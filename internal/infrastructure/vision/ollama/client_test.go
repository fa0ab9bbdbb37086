package ollama

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
)

func testPage() image.Image {
	return image.NewGray(image.Rect(0, 0, 200, 100))
}

func TestDetectorParsesDetections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		images, _ := payload["images"].([]any)
		if len(images) != 2 {
			t.Fatalf("expected page and template images, got %d", len(images))
		}
		inner := `{"detections":[{"x":10,"y":20,"width":16,"height":16,"confidence":0.92},{"x":180,"y":90,"width":40,"height":40,"confidence":1.7}]}`
		body, _ := json.Marshal(map[string]string{"response": inner})
		_, _ = w.Write(body)
	}))
	defer server.Close()

	detector := NewDetector(New(server.URL, "llava", Options{RequestsPerSecond: 100}))
	candidates, err := detector.DetectElements(context.Background(), testPage(),
		geometry.Rect{X: 0, Y: 0, Width: 16, Height: 16}, ports.DetectionTolerances{})
	if err != nil {
		t.Fatalf("DetectElements() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].BBox.X != 10 || candidates[0].Confidence != 0.92 {
		t.Fatalf("unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].Confidence != 1 {
		t.Fatalf("confidence should clamp to 1, got %v", candidates[1].Confidence)
	}
	if candidates[1].BBox.X+candidates[1].BBox.Width > 200 {
		t.Fatalf("bbox should clamp to page bounds: %+v", candidates[1].BBox)
	}
}

func TestDetectorRejectsEmptyTemplateRegion(t *testing.T) {
	detector := NewDetector(New("http://127.0.0.1:1", "llava", Options{RequestsPerSecond: 100}))
	_, err := detector.DetectElements(context.Background(), testPage(),
		geometry.Rect{}, ports.DetectionTolerances{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDetectorIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	detector := NewDetector(New(server.URL, "llava", Options{RequestsPerSecond: 100}))
	_, err := detector.DetectElements(context.Background(), testPage(),
		geometry.Rect{X: 0, Y: 0, Width: 16, Height: 16}, ports.DetectionTolerances{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
