package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/time/rate"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	RequestBurst       int
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := options.RequestBurst
	if burst <= 0 {
		burst = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		executor:   options.ResilienceExecutor,
	}
}

// Detector asks a multimodal model to locate occurrences of a template
// symbol on a drawing page.
type Detector struct {
	client *Client
}

func NewDetector(client *Client) *Detector {
	return &Detector{client: client}
}

type detectionResponse struct {
	Detections []struct {
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

func (d *Detector) DetectElements(ctx context.Context, page image.Image, templateRegion geometry.Rect, _ ports.DetectionTolerances) ([]ports.DetectionCandidate, error) {
	template, err := cropRegion(page, templateRegion)
	if err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "vision detect", err)
	}

	pageB64, err := encodePNGBase64(page)
	if err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	templateB64, err := encodePNGBase64(template)
	if err != nil {
		return nil, fmt.Errorf("encode template image: %w", err)
	}

	reqBody := map[string]any{
		"model":  d.client.model,
		"prompt": buildDetectionPrompt(),
		"images": []string{pageB64, templateB64},
		"stream": false,
		"format": "json",
	}

	raw, err := d.client.generate(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var parsed detectionResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrDetection, "vision detect", fmt.Errorf("parse detection json: %w", err))
	}

	bounds := page.Bounds()
	out := make([]ports.DetectionCandidate, 0, len(parsed.Detections))
	for _, hit := range parsed.Detections {
		if hit.Width <= 0 || hit.Height <= 0 {
			continue
		}
		out = append(out, ports.DetectionCandidate{
			BBox: clampRect(geometry.Rect{
				X:      hit.X,
				Y:      hit.Y,
				Width:  hit.Width,
				Height: hit.Height,
			}, bounds),
			Confidence: clampUnit(hit.Confidence),
		})
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("vision rate limit: %w", err)
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyVisionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func cropRegion(page image.Image, region geometry.Rect) (image.Image, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("template region is empty")
	}
	crop := imaging.Crop(page, image.Rect(
		int(region.X), int(region.Y),
		int(region.X+region.Width), int(region.Y+region.Height),
	))
	if crop.Bounds().Dx() == 0 || crop.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("template region is outside the page")
	}
	return crop, nil
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func clampRect(r geometry.Rect, bounds image.Rectangle) geometry.Rect {
	maxX := float64(bounds.Max.X)
	maxY := float64(bounds.Max.Y)
	if r.X < 0 {
		r.Width += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.Height += r.Y
		r.Y = 0
	}
	if r.X+r.Width > maxX {
		r.Width = maxX - r.X
	}
	if r.Y+r.Height > maxY {
		r.Height = maxY - r.Y
	}
	return r
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
