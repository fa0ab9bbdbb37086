package httpadapter

import (
	"net/http"
	"strings"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type parseScalePayload struct {
	Text   string `json:"text"`
	Method string `json:"method"`
}

func (rt *Router) parseScale(w http.ResponseWriter, r *http.Request) {
	var payload parseScalePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	spec, err := rt.calibrateUC.ParseAndBind(r.Context(), r.PathValue("page_id"),
		payload.Text, domain.ScaleDetectionMethod(payload.Method))
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCalibration(rt.service, string(spec.DetectionMethod))
	}
	writeJSON(w, http.StatusCreated, spec)
}

type detectScalePayload struct {
	Region regionPayload `json:"region"`
}

type regionPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (rt *Router) detectScale(w http.ResponseWriter, r *http.Request) {
	var payload detectScalePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	spec, err := rt.calibrateUC.DetectFromRegion(r.Context(), r.PathValue("page_id"), geometry.Rect{
		X:      payload.Region.X,
		Y:      payload.Region.Y,
		Width:  payload.Region.Width,
		Height: payload.Region.Height,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCalibration(rt.service, string(spec.DetectionMethod))
	}
	writeJSON(w, http.StatusCreated, spec)
}

type calibratePayload struct {
	PixelDistance float64 `json:"pixel_distance"`
	RealDistance  float64 `json:"real_distance"`
	Unit          string  `json:"unit"`
}

func (rt *Router) calibrateScale(w http.ResponseWriter, r *http.Request) {
	var payload calibratePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	unit := domain.ScaleUnitFoot
	if payload.Unit != "" {
		unit = domain.ScaleUnit(payload.Unit)
	}
	spec, err := rt.calibrateUC.CalibrateManual(r.Context(), r.PathValue("page_id"),
		payload.PixelDistance, payload.RealDistance, unit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCalibration(rt.service, string(spec.DetectionMethod))
	}
	writeJSON(w, http.StatusCreated, spec)
}
