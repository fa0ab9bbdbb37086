package domain

import (
	"time"

	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type RevisionAction string

const (
	RevisionActionCreated      RevisionAction = "created"
	RevisionActionModified     RevisionAction = "modified"
	RevisionActionApproved     RevisionAction = "approved"
	RevisionActionRejected     RevisionAction = "rejected"
	RevisionActionAutoAccepted RevisionAction = "auto_accepted"
)

type ActorType string

const (
	ActorTypeUser       ActorType = "user"
	ActorTypeAI         ActorType = "ai"
	ActorTypeAutoAccept ActorType = "auto_accept"
	ActorTypeSystem     ActorType = "system"
)

// RevisionNode is one recorded state transition in a measurement's audit
// history. The nodes of one measurement form a DAG through ParentIDs; no node
// may transitively be its own ancestor.
type RevisionNode struct {
	ID             string             `json:"id"`
	MeasurementID  string             `json:"measurement_id"`
	ParentIDs      []string           `json:"parent_ids"`
	Action         RevisionAction     `json:"action"`
	Actor          string             `json:"actor"`
	ActorType      ActorType          `json:"actor_type"`
	PreviousStatus MeasurementStatus  `json:"previous_status,omitempty"`
	NewStatus      MeasurementStatus  `json:"new_status"`
	PreviousGeom   *geometry.Geometry `json:"previous_geometry,omitempty"`
	NewGeom        *geometry.Geometry `json:"new_geometry,omitempty"`
	PreviousQty    float64            `json:"previous_quantity,omitempty"`
	NewQty         float64            `json:"new_quantity,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}
