package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/usecase"
	"github.com/planscale/takeoff-engine/internal/observability/metrics"
)

type Router struct {
	service string

	createUC    *usecase.CreateMeasurementUseCase
	adjustUC    *usecase.AdjustMeasurementUseCase
	reviewUC    *usecase.ReviewMeasurementUseCase
	historyUC   *usecase.HistoryUseCase
	calibrateUC *usecase.CalibrateScaleUseCase
	sessionUC   *usecase.CreateSessionUseCase
	confirmUC   *usecase.ConfirmDetectionsUseCase

	measurements ports.MeasurementRepository
	sessions     ports.SessionRepository

	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	service string,
	createUC *usecase.CreateMeasurementUseCase,
	adjustUC *usecase.AdjustMeasurementUseCase,
	reviewUC *usecase.ReviewMeasurementUseCase,
	historyUC *usecase.HistoryUseCase,
	calibrateUC *usecase.CalibrateScaleUseCase,
	sessionUC *usecase.CreateSessionUseCase,
	confirmUC *usecase.ConfirmDetectionsUseCase,
	measurements ports.MeasurementRepository,
	sessions ports.SessionRepository,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		service:      service,
		createUC:     createUC,
		adjustUC:     adjustUC,
		reviewUC:     reviewUC,
		historyUC:    historyUC,
		calibrateUC:  calibrateUC,
		sessionUC:    sessionUC,
		confirmUC:    confirmUC,
		measurements: measurements,
		sessions:     sessions,
		metrics:      httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/pages/{page_id}/scale/parse", rt.parseScale)
	mux.HandleFunc("POST /v1/pages/{page_id}/scale/detect", rt.detectScale)
	mux.HandleFunc("POST /v1/pages/{page_id}/scale/calibrate", rt.calibrateScale)

	mux.HandleFunc("POST /v1/measurements", rt.createMeasurement)
	mux.HandleFunc("GET /v1/measurements/{measurement_id}", rt.getMeasurement)
	mux.HandleFunc("POST /v1/measurements/{measurement_id}/adjust", rt.adjustMeasurement)
	mux.HandleFunc("POST /v1/measurements/{measurement_id}/approve", rt.approveMeasurement)
	mux.HandleFunc("POST /v1/measurements/{measurement_id}/reject", rt.rejectMeasurement)
	mux.HandleFunc("POST /v1/measurements/{measurement_id}/reopen", rt.reopenMeasurement)
	mux.HandleFunc("GET /v1/measurements/{measurement_id}/history", rt.measurementHistory)

	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions/{session_id}", rt.getSession)
	mux.HandleFunc("GET /v1/sessions/{session_id}/detections", rt.listDetections)
	mux.HandleFunc("POST /v1/sessions/{session_id}/run", rt.enqueueRun)
	mux.HandleFunc("POST /v1/sessions/{session_id}/confirm", rt.confirmSession)

	mux.HandleFunc("POST /v1/detections/{detection_id}/confirm", rt.confirmDetection)
	mux.HandleFunc("POST /v1/detections/{detection_id}/reject", rt.rejectDetection)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
