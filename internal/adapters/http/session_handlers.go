package httpadapter

import (
	"net/http"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/usecase"
)

type createSessionPayload struct {
	PageID              string        `json:"page_id"`
	ConditionID         string        `json:"condition_id"`
	TemplateBBox        geometry.Rect `json:"template_bbox"`
	TemplateImageKey    string        `json:"template_image_key"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	ScaleTolerance      float64       `json:"scale_tolerance"`
	RotationTolerance   float64       `json:"rotation_tolerance"`
	DetectionMethod     string        `json:"detection_method"`
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	method := domain.DetectionMethod(payload.DetectionMethod)
	if payload.DetectionMethod == "" {
		method = domain.DetectionMethodTemplate
	}
	session, err := rt.sessionUC.Create(r.Context(), usecase.CreateSessionRequest{
		PageID:              payload.PageID,
		ConditionID:         payload.ConditionID,
		TemplateBBox:        payload.TemplateBBox,
		TemplateImageKey:    payload.TemplateImageKey,
		ConfidenceThreshold: payload.ConfidenceThreshold,
		ScaleTolerance:      payload.ScaleTolerance,
		RotationTolerance:   payload.RotationTolerance,
		DetectionMethod:     method,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSessionCreated(rt.service, string(session.DetectionMethod))
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.sessions.GetByID(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) listDetections(w http.ResponseWriter, r *http.Request) {
	detections, err := rt.sessions.ListDetections(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"detections": detections})
}

func (rt *Router) enqueueRun(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := rt.sessionUC.Enqueue(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID, "status": "queued"})
}

type confirmSessionPayload struct {
	Mode      string   `json:"mode"`
	Threshold *float64 `json:"threshold"`
	Actor     string   `json:"actor"`
}

func (rt *Router) confirmSession(w http.ResponseWriter, r *http.Request) {
	var payload confirmSessionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	threshold := rt.confirmUC.DefaultThreshold()
	if payload.Threshold != nil {
		threshold = *payload.Threshold
	}

	sessionID := r.PathValue("session_id")
	var (
		session *domain.AutoCountSession
		err     error
	)
	switch payload.Mode {
	case "auto":
		session, err = rt.confirmUC.AutoConfirm(r.Context(), sessionID, threshold)
	case "bulk":
		session, err = rt.confirmUC.BulkConfirm(r.Context(), sessionID, threshold, payload.Actor)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be auto or bulk"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordConfirmation(rt.service, payload.Mode, session.ConfirmedDetections)
	}
	writeJSON(w, http.StatusOK, session)
}

type detectionActionPayload struct {
	Actor string `json:"actor"`
}

func (rt *Router) confirmDetection(w http.ResponseWriter, r *http.Request) {
	var payload detectionActionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	detection, err := rt.confirmUC.ConfirmDetection(r.Context(), r.PathValue("detection_id"), payload.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordConfirmation(rt.service, "single", 1)
	}
	writeJSON(w, http.StatusOK, detection)
}

func (rt *Router) rejectDetection(w http.ResponseWriter, r *http.Request) {
	detection, err := rt.confirmUC.RejectDetection(r.Context(), r.PathValue("detection_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detection)
}
