package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/planscale/takeoff-engine/internal/config"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/revision"
	"github.com/planscale/takeoff-engine/internal/core/usecase"
	"github.com/planscale/takeoff-engine/internal/infrastructure/matcher"
	"github.com/planscale/takeoff-engine/internal/infrastructure/ocr/tesseract"
	"github.com/planscale/takeoff-engine/internal/infrastructure/queue/nats"
	"github.com/planscale/takeoff-engine/internal/infrastructure/repository/postgres"
	"github.com/planscale/takeoff-engine/internal/infrastructure/resilience"
	"github.com/planscale/takeoff-engine/internal/infrastructure/storage/localfs"
	"github.com/planscale/takeoff-engine/internal/infrastructure/vision/ollama"
)

type App struct {
	Config config.Config

	Queue        *nats.Queue
	Measurements ports.MeasurementRepository
	Sessions     ports.SessionRepository

	CreateUC    *usecase.CreateMeasurementUseCase
	AdjustUC    *usecase.AdjustMeasurementUseCase
	ReviewUC    *usecase.ReviewMeasurementUseCase
	HistoryUC   *usecase.HistoryUseCase
	CalibrateUC *usecase.CalibrateScaleUseCase
	SessionUC   *usecase.CreateSessionUseCase
	ConfirmUC   *usecase.ConfirmDetectionsUseCase
	RunUC       *usecase.RunAutoCountUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	measurements := postgres.NewMeasurementRepository(db)
	revisions := postgres.NewRevisionRepository(db)
	sessions := postgres.NewSessionRepository(db)
	conditions := postgres.NewConditionRepository(db)
	scales := postgres.NewScaleRepository(db)
	pages := postgres.NewPageRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	pageImages := localfs.NewPageImages(storage)

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerFailureRatio: float64(cfg.BreakerFailureRatioPct) / 100.0,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSRunSubject, cfg.NATSProgressSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init detection queue: %w", err)
	}

	visionClient := ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, ollama.Options{
		Timeout:            time.Duration(cfg.RunTimeoutSeconds) * time.Second,
		RequestsPerSecond:  cfg.OllamaRPS,
		ResilienceExecutor: executor,
	})
	detector := ollama.NewDetector(visionClient)

	templateMatcher := matcher.New(matcher.Options{
		MinScore:         cfg.MatcherMinScore,
		Stride:           cfg.MatcherStride,
		OverlapThreshold: cfg.MatcherOverlap,
	})

	engine := revision.NewEngine(revisions)

	return &App{
		Config: cfg,

		Queue:        queue,
		Measurements: measurements,
		Sessions:     sessions,

		CreateUC:    usecase.NewCreateMeasurementUseCase(measurements, conditions, pages, scales, engine),
		AdjustUC:    usecase.NewAdjustMeasurementUseCase(measurements, conditions, pages, scales, engine),
		ReviewUC:    usecase.NewReviewMeasurementUseCase(measurements, engine),
		HistoryUC:   usecase.NewHistoryUseCase(measurements, engine),
		CalibrateUC: usecase.NewCalibrateScaleUseCase(scales, pages, pageImages, tesseract.NewReader()),
		SessionUC:   usecase.NewCreateSessionUseCase(sessions, pages, conditions, queue),
		ConfirmUC:   usecase.NewConfirmDetectionsUseCase(sessions, measurements, conditions, engine, cfg.AutoConfirmThreshold),
		RunUC:       usecase.NewRunAutoCountUseCase(sessions, pages, pageImages, templateMatcher, detector, queue, cfg.HybridDedupeRadiusPx),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
