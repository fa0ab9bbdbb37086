package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
)

// defaultHybridDedupeRadius is the center distance, in pixels, under which a
// template match and an LLM match are considered the same element.
const defaultHybridDedupeRadius = 15.0

// RunAutoCountUseCase executes the detection pipeline for one session. Runs
// are cancellable: cancellation transitions the session to failed with a
// distinguishable cancelled message, and detections persisted before the
// cancellation are retained.
type RunAutoCountUseCase struct {
	sessions ports.SessionRepository
	pages    ports.PageRepository
	images   ports.PageImageProvider
	matcher  ports.TemplateMatcher
	detector ports.ElementDetector
	progress ports.ProgressNotifier

	dedupeRadius float64
}

func NewRunAutoCountUseCase(
	sessions ports.SessionRepository,
	pages ports.PageRepository,
	images ports.PageImageProvider,
	matcher ports.TemplateMatcher,
	detector ports.ElementDetector,
	progress ports.ProgressNotifier,
	dedupeRadiusPx float64,
) *RunAutoCountUseCase {
	if dedupeRadiusPx <= 0 {
		dedupeRadiusPx = defaultHybridDedupeRadius
	}
	return &RunAutoCountUseCase{
		sessions:     sessions,
		pages:        pages,
		images:       images,
		matcher:      matcher,
		detector:     detector,
		progress:     progress,
		dedupeRadius: dedupeRadiusPx,
	}
}

func (uc *RunAutoCountUseCase) RunByID(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	if session.Status != domain.SessionPending {
		return domain.WrapError(domain.ErrValidation, "run session",
			fmt.Errorf("session is %s, expected %s", session.Status, domain.SessionPending))
	}

	session.Status = domain.SessionProcessing
	session.UpdatedAt = time.Now().UTC()
	if err := uc.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	start := time.Now()
	runErr := uc.runPipeline(ctx, session)
	session.ProcessingTimeMs = time.Since(start).Milliseconds()
	session.UpdatedAt = time.Now().UTC()

	if runErr != nil {
		session.Status = domain.SessionFailed
		session.ErrorMessage = runErr.Error()
		// The run context may already be cancelled; the terminal state still
		// has to be persisted or the session hangs in processing forever.
		if err := uc.sessions.Update(context.WithoutCancel(ctx), session); err != nil {
			return fmt.Errorf("%w; mark failed status: %v", runErr, err)
		}
		return runErr
	}

	session.Status = domain.SessionCompleted
	if err := uc.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *RunAutoCountUseCase) runPipeline(ctx context.Context, session *domain.AutoCountSession) error {
	page, err := uc.pages.GetByID(ctx, session.PageID)
	if err != nil {
		return domain.WrapError(domain.ErrDetection, "load page", err)
	}
	img, err := uc.images.GetPageImage(ctx, page)
	if err != nil {
		return domain.WrapError(domain.ErrDetection, "load page image", err)
	}
	uc.progress.Progress(ctx, session.ID, 10, "page_loaded")

	tol := ports.DetectionTolerances{
		Scale:    session.ScaleTolerance,
		Rotation: session.RotationTolerance,
	}

	var templateHits, llmHits []ports.DetectionCandidate
	if session.DetectionMethod == domain.DetectionMethodTemplate || session.DetectionMethod == domain.DetectionMethodHybrid {
		templateHits, err = uc.matcher.Match(ctx, img, session.TemplateBBox, tol)
		if err != nil {
			return uc.classifyPipelineError(ctx, "template matching", err)
		}
		session.TemplateMatchCount = len(templateHits)
		uc.progress.Progress(ctx, session.ID, 45, "template_matching")
	}
	if session.DetectionMethod == domain.DetectionMethodLLM || session.DetectionMethod == domain.DetectionMethodHybrid {
		llmHits, err = uc.detector.DetectElements(ctx, img, session.TemplateBBox, tol)
		if err != nil {
			return uc.classifyPipelineError(ctx, "vision detection", err)
		}
		session.LLMMatchCount = len(llmHits)
		uc.progress.Progress(ctx, session.ID, 75, "vision_detection")
	}

	merged := mergeCandidates(templateHits, llmHits, uc.dedupeRadius)
	for _, candidate := range merged {
		if err := ctx.Err(); err != nil {
			// Detections persisted so far stay; only the remainder is lost.
			return domain.WrapError(domain.ErrCancelled, "persist detections", err)
		}
		detection := &domain.Detection{
			ID:              uuid.NewString(),
			SessionID:       session.ID,
			BBox:            candidate.BBox,
			CenterX:         candidate.BBox.Center().X,
			CenterY:         candidate.BBox.Center().Y,
			Confidence:      candidate.Confidence,
			DetectionSource: candidate.Source,
			Status:          domain.DetectionPending,
			CreatedAt:       time.Now().UTC(),
		}
		if err := uc.sessions.CreateDetection(ctx, detection); err != nil {
			return domain.WrapError(domain.ErrDetection, "persist detection", err)
		}
		session.TotalDetections++
	}

	uc.progress.Progress(ctx, session.ID, 100, "completed")
	return nil
}

func (uc *RunAutoCountUseCase) classifyPipelineError(ctx context.Context, step string, err error) error {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return domain.WrapError(domain.ErrCancelled, step, err)
	}
	return domain.WrapError(domain.ErrDetection, step, err)
}

type sourcedCandidate struct {
	ports.DetectionCandidate
	Source domain.DetectionSource
}

// mergeCandidates combines template and LLM hits, deduplicating near-identical
// centers. The higher-confidence member of a duplicate pair wins.
func mergeCandidates(templateHits, llmHits []ports.DetectionCandidate, dedupeRadius float64) []sourcedCandidate {
	merged := make([]sourcedCandidate, 0, len(templateHits)+len(llmHits))
	for _, c := range templateHits {
		merged = append(merged, sourcedCandidate{DetectionCandidate: c, Source: domain.DetectionSourceTemplate})
	}

	for _, c := range llmHits {
		candidate := sourcedCandidate{DetectionCandidate: c, Source: domain.DetectionSourceLLM}
		duplicate := -1
		for i, kept := range merged {
			if geometry.Distance(kept.BBox.Center(), candidate.BBox.Center()) <= dedupeRadius {
				duplicate = i
				break
			}
		}
		if duplicate < 0 {
			merged = append(merged, candidate)
			continue
		}
		if candidate.Confidence > merged[duplicate].Confidence {
			merged[duplicate] = candidate
		}
	}
	return merged
}
