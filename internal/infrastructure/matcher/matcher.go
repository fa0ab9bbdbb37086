// Package matcher implements grayscale normalized cross-correlation
// template matching for counting repeated symbols on drawing pages.
package matcher

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
)

type Options struct {
	// MinScore is the lowest correlation kept as a candidate.
	MinScore float64
	// Stride is the sliding-window step in pixels.
	Stride int
	// OverlapThreshold is the IoU above which two hits collapse into one.
	OverlapThreshold float64
}

type Matcher struct {
	minScore float64
	stride   int
	overlap  float64
}

func New(options Options) *Matcher {
	minScore := options.MinScore
	if minScore <= 0 {
		minScore = 0.6
	}
	stride := options.Stride
	if stride <= 0 {
		stride = 2
	}
	overlap := options.OverlapThreshold
	if overlap <= 0 {
		overlap = 0.3
	}
	return &Matcher{minScore: minScore, stride: stride, overlap: overlap}
}

type grayPlane struct {
	w, h int
	pix  []float64
}

func (m *Matcher) Match(ctx context.Context, page image.Image, templateRegion geometry.Rect, tol ports.DetectionTolerances) ([]ports.DetectionCandidate, error) {
	if templateRegion.Width <= 1 || templateRegion.Height <= 1 {
		return nil, domain.WrapError(domain.ErrValidation, "template match", fmt.Errorf("template region is empty"))
	}

	pagePlane := toPlane(effect.Grayscale(page))
	template := imaging.Crop(page, image.Rect(
		int(templateRegion.X), int(templateRegion.Y),
		int(templateRegion.X+templateRegion.Width), int(templateRegion.Y+templateRegion.Height),
	))
	if template.Bounds().Dx() < 2 || template.Bounds().Dy() < 2 {
		return nil, domain.WrapError(domain.ErrValidation, "template match", fmt.Errorf("template region is outside the page"))
	}

	hits := make([]ports.DetectionCandidate, 0)
	for _, variant := range templateVariants(template, tol) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plane := toPlane(effect.Grayscale(variant))
		found, err := m.scan(ctx, pagePlane, plane)
		if err != nil {
			return nil, err
		}
		hits = append(hits, found...)
	}

	return m.suppress(hits), nil
}

// templateVariants produces the scale and rotation sweep. Tolerances are
// fractions for scale (0.2 means +-20%) and degrees for rotation.
func templateVariants(template image.Image, tol ports.DetectionTolerances) []image.Image {
	scales := []float64{1}
	if tol.Scale > 0 {
		scales = append(scales, 1-tol.Scale, 1+tol.Scale)
	}
	rotations := []float64{0}
	if tol.Rotation > 0 {
		rotations = append(rotations, -tol.Rotation, tol.Rotation)
	}

	w := template.Bounds().Dx()
	h := template.Bounds().Dy()
	out := make([]image.Image, 0, len(scales)*len(rotations))
	for _, s := range scales {
		sw := int(math.Round(float64(w) * s))
		sh := int(math.Round(float64(h) * s))
		if sw < 2 || sh < 2 {
			continue
		}
		scaled := imaging.Resize(template, sw, sh, imaging.Lanczos)
		for _, r := range rotations {
			if r == 0 {
				out = append(out, scaled)
				continue
			}
			out = append(out, imaging.Rotate(scaled, r, color.White))
		}
	}
	return out
}

func (m *Matcher) scan(ctx context.Context, page, template grayPlane) ([]ports.DetectionCandidate, error) {
	if template.w > page.w || template.h > page.h {
		return nil, nil
	}

	tMean, tStd := meanStd(template.pix)
	if tStd < 1e-9 {
		// Flat template matches everything; nothing useful to report.
		return nil, nil
	}

	out := make([]ports.DetectionCandidate, 0)
	for y := 0; y+template.h <= page.h; y += m.stride {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x+template.w <= page.w; x += m.stride {
			score := m.correlate(page, template, x, y, tMean, tStd)
			if score < m.minScore {
				continue
			}
			out = append(out, ports.DetectionCandidate{
				BBox: geometry.Rect{
					X:      float64(x),
					Y:      float64(y),
					Width:  float64(template.w),
					Height: float64(template.h),
				},
				Confidence: score,
			})
		}
	}
	return out, nil
}

func (m *Matcher) correlate(page, template grayPlane, ox, oy int, tMean, tStd float64) float64 {
	n := float64(template.w * template.h)

	var sum, sumSq float64
	for y := 0; y < template.h; y++ {
		row := (oy+y)*page.w + ox
		for x := 0; x < template.w; x++ {
			v := page.pix[row+x]
			sum += v
			sumSq += v * v
		}
	}
	wMean := sum / n
	wVar := sumSq/n - wMean*wMean
	if wVar < 1e-9 {
		return 0
	}
	wStd := math.Sqrt(wVar)

	var cross float64
	for y := 0; y < template.h; y++ {
		pRow := (oy+y)*page.w + ox
		tRow := y * template.w
		for x := 0; x < template.w; x++ {
			cross += (page.pix[pRow+x] - wMean) * (template.pix[tRow+x] - tMean)
		}
	}
	return cross / (n * wStd * tStd)
}

// suppress keeps the highest-scoring hit in each cluster of overlapping
// boxes.
func (m *Matcher) suppress(hits []ports.DetectionCandidate) []ports.DetectionCandidate {
	sort.Slice(hits, func(i, j int) bool { return hits[i].Confidence > hits[j].Confidence })

	kept := make([]ports.DetectionCandidate, 0, len(hits))
	for _, hit := range hits {
		overlapping := false
		for _, k := range kept {
			if iou(hit.BBox, k.BBox) > m.overlap {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, hit)
		}
	}
	return kept
}

func iou(a, b geometry.Rect) float64 {
	ix := math.Max(a.X, b.X)
	iy := math.Max(a.Y, b.Y)
	ax := math.Min(a.X+a.Width, b.X+b.Width)
	ay := math.Min(a.Y+a.Height, b.Y+b.Height)
	if ax <= ix || ay <= iy {
		return 0
	}
	inter := (ax - ix) * (ay - iy)
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func toPlane(img image.Image) grayPlane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			pix[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
		}
	}
	return grayPlane{w: w, h: h, pix: pix}
}

func meanStd(pix []float64) (float64, float64) {
	n := float64(len(pix))
	var sum, sumSq float64
	for _, v := range pix {
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
