package httpadapter

import (
	"net/http"
	"strings"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/usecase"
)

type createMeasurementPayload struct {
	ConditionID  string            `json:"condition_id"`
	PageID       string            `json:"page_id"`
	Geometry     geometry.Geometry `json:"geometry"`
	Actor        string            `json:"actor"`
	ActorType    string            `json:"actor_type"`
	AIConfidence float64           `json:"ai_confidence"`
	Notes        string            `json:"notes"`
}

func (rt *Router) createMeasurement(w http.ResponseWriter, r *http.Request) {
	var payload createMeasurementPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	m, err := rt.createUC.Create(r.Context(), usecase.CreateMeasurementRequest{
		ConditionID:  payload.ConditionID,
		PageID:       payload.PageID,
		Geometry:     payload.Geometry,
		Actor:        payload.Actor,
		ActorType:    actorTypeOrDefault(payload.ActorType),
		AIConfidence: payload.AIConfidence,
		Notes:        payload.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (rt *Router) getMeasurement(w http.ResponseWriter, r *http.Request) {
	m, err := rt.measurements.GetByID(r.Context(), r.PathValue("measurement_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type adjustPayload struct {
	Action    string          `json:"action"`
	Actor     string          `json:"actor"`
	ActorType string          `json:"actor_type"`
	Direction string          `json:"direction"`
	Distance  float64         `json:"distance"`
	GridSize  float64         `json:"grid_size"`
	Target    *geometry.Point `json:"target"`
	Side      int             `json:"side"`
	Other     string          `json:"other_measurement_id"`
}

func (rt *Router) adjustMeasurement(w http.ResponseWriter, r *http.Request) {
	var payload adjustPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(payload.Action) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action is required"})
		return
	}

	resp, err := rt.adjustUC.Adjust(r.Context(), ports.AdjustRequest{
		MeasurementID: r.PathValue("measurement_id"),
		Action:        payload.Action,
		Actor:         payload.Actor,
		ActorType:     actorTypeOrDefault(payload.ActorType),
		Direction:     geometry.Direction(payload.Direction),
		Distance:      payload.Distance,
		GridSize:      payload.GridSize,
		Target:        payload.Target,
		Side:          payload.Side,
		Other:         payload.Other,
	})
	if rt.metrics != nil {
		rt.metrics.RecordAdjustment(rt.service, payload.Action, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type reviewPayload struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (rt *Router) approveMeasurement(w http.ResponseWriter, r *http.Request) {
	var payload reviewPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	m, err := rt.reviewUC.Approve(r.Context(), r.PathValue("measurement_id"), payload.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (rt *Router) rejectMeasurement(w http.ResponseWriter, r *http.Request) {
	var payload reviewPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	m, err := rt.reviewUC.Reject(r.Context(), r.PathValue("measurement_id"), payload.Actor, payload.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (rt *Router) reopenMeasurement(w http.ResponseWriter, r *http.Request) {
	var payload reviewPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	m, err := rt.reviewUC.Reopen(r.Context(), r.PathValue("measurement_id"), payload.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (rt *Router) measurementHistory(w http.ResponseWriter, r *http.Request) {
	nodes, err := rt.historyUC.History(r.Context(), r.PathValue("measurement_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": nodes})
}

func actorTypeOrDefault(raw string) domain.ActorType {
	switch domain.ActorType(raw) {
	case domain.ActorTypeUser, domain.ActorTypeAI, domain.ActorTypeAutoAccept, domain.ActorTypeSystem:
		return domain.ActorType(raw)
	default:
		return domain.ActorTypeUser
	}
}
