// Package revision maintains the append-only, branchable history graph of a
// measurement and serves ordered views of it. Nodes are kept as an arena
// keyed by id with explicit parent-id sets, so cycle detection is a
// reachability search over ids rather than pointer chasing.
package revision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
)

// Engine serializes appends per measurement so the cycle check and the
// resulting order stay deterministic under concurrent writers.
// Cross-measurement appends proceed independently.
type Engine struct {
	repo ports.RevisionRepository
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(repo ports.RevisionRepository) *Engine {
	return &Engine{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*sync.Mutex),
	}
}

// AppendParams describes one prospective history node.
type AppendParams struct {
	ID            string
	MeasurementID string
	ParentIDs     []string
	Action        domain.RevisionAction
	Actor         string
	ActorType     domain.ActorType

	PreviousStatus domain.MeasurementStatus
	NewStatus      domain.MeasurementStatus
	PreviousGeom   *geometry.Geometry
	NewGeom        *geometry.Geometry
	PreviousQty    float64
	NewQty         float64
}

// Append validates and persists one history node. It rejects appends whose
// declared parents are missing, whose parent edges would make the node its
// own ancestor, or whose status transition leaves a terminal rejection
// without an explicit modified reopen. A failed append never leaves an
// orphan node.
func (e *Engine) Append(ctx context.Context, params AppendParams) (*domain.RevisionNode, error) {
	if params.MeasurementID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "append revision", errors.New("measurement id is required"))
	}
	if params.Action == "" {
		return nil, domain.WrapError(domain.ErrValidation, "append revision", errors.New("action is required"))
	}
	if err := validateTransition(params.PreviousStatus, params.NewStatus, params.Action); err != nil {
		return nil, err
	}

	lock := e.measurementLock(params.MeasurementID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := e.repo.ListByMeasurement(ctx, params.MeasurementID)
	if err != nil {
		return nil, fmt.Errorf("load revision graph: %w", err)
	}
	arena := make(map[string]domain.RevisionNode, len(existing))
	for _, node := range existing {
		arena[node.ID] = node
	}

	// Nil parents means "continue from the current graph heads"; an empty
	// non-nil slice declares an explicit root.
	if params.ParentIDs == nil {
		params.ParentIDs = leaves(arena)
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := arena[id]; exists {
		return nil, domain.WrapError(domain.ErrValidation, "append revision",
			fmt.Errorf("node %s already exists", id))
	}

	for _, parentID := range params.ParentIDs {
		if parentID == id {
			return nil, domain.WrapError(domain.ErrCycle, "append revision",
				fmt.Errorf("node %s cannot parent itself", id))
		}
		if _, ok := arena[parentID]; !ok {
			return nil, domain.WrapError(domain.ErrNotFound, "append revision",
				fmt.Errorf("parent %s does not exist", parentID))
		}
		if ancestorsOf(arena, parentID)[id] {
			return nil, domain.WrapError(domain.ErrCycle, "append revision",
				fmt.Errorf("parent %s is reachable from node %s", parentID, id))
		}
	}

	node := &domain.RevisionNode{
		ID:             id,
		MeasurementID:  params.MeasurementID,
		ParentIDs:      append([]string(nil), params.ParentIDs...),
		Action:         params.Action,
		Actor:          params.Actor,
		ActorType:      params.ActorType,
		PreviousStatus: params.PreviousStatus,
		NewStatus:      params.NewStatus,
		PreviousGeom:   params.PreviousGeom,
		NewGeom:        params.NewGeom,
		PreviousQty:    params.PreviousQty,
		NewQty:         params.NewQty,
		CreatedAt:      e.now(),
	}
	if err := e.repo.Create(ctx, node); err != nil {
		return nil, fmt.Errorf("persist revision node: %w", err)
	}
	return node, nil
}

// TopologicalOrder is the authoritative order for audit display. Raw
// timestamp order misrepresents causality when retried workers commit out of
// wall-clock order, so nodes are emitted parents-first, with ties among ready
// nodes broken by creation timestamp, then id.
func (e *Engine) TopologicalOrder(ctx context.Context, measurementID string) ([]domain.RevisionNode, error) {
	nodes, err := e.repo.ListByMeasurement(ctx, measurementID)
	if err != nil {
		return nil, fmt.Errorf("load revision graph: %w", err)
	}
	return Order(nodes)
}

// Order topologically sorts a node set with deterministic tie-breaking.
func Order(nodes []domain.RevisionNode) ([]domain.RevisionNode, error) {
	byID := make(map[string]domain.RevisionNode, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	indegree := make(map[string]int, len(nodes))
	children := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		count := 0
		for _, parentID := range node.ParentIDs {
			// Parents outside the set (trimmed history) don't block emission.
			if _, ok := byID[parentID]; ok {
				count++
				children[parentID] = append(children[parentID], node.ID)
			}
		}
		indegree[node.ID] = count
	}

	ready := make([]string, 0, len(nodes))
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	less := func(a, b string) bool {
		na, nb := byID[a], byID[b]
		if !na.CreatedAt.Equal(nb.CreatedAt) {
			return na.CreatedAt.Before(nb.CreatedAt)
		}
		return na.ID < nb.ID
	}

	out := make([]domain.RevisionNode, 0, len(nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		out = append(out, byID[next])

		for _, childID := range children[next] {
			indegree[childID]--
			if indegree[childID] == 0 {
				ready = append(ready, childID)
			}
		}
	}

	if len(out) != len(nodes) {
		return nil, domain.WrapError(domain.ErrCycle, "topological order",
			fmt.Errorf("%d nodes unreachable from roots", len(nodes)-len(out)))
	}
	return out, nil
}

// leaves returns ids that no other node declares as a parent, sorted for
// deterministic edge sets.
func leaves(arena map[string]domain.RevisionNode) []string {
	referenced := make(map[string]bool)
	for _, node := range arena {
		for _, parentID := range node.ParentIDs {
			referenced[parentID] = true
		}
	}
	out := make([]string, 0)
	for id := range arena {
		if !referenced[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ancestorsOf walks parent edges from start and returns every reachable id.
func ancestorsOf(arena map[string]domain.RevisionNode, start string) map[string]bool {
	seen := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		if node, ok := arena[id]; ok {
			stack = append(stack, node.ParentIDs...)
		}
	}
	return seen
}

// validateTransition enforces the measurement state machine: any state may
// move to modified, approved or rejected, except that rejected is terminal
// unless a modified action explicitly reopens it.
func validateTransition(previous, next domain.MeasurementStatus, action domain.RevisionAction) error {
	if previous == domain.MeasurementRejected && action != domain.RevisionActionModified {
		return domain.WrapError(domain.ErrValidation, "append revision",
			fmt.Errorf("rejected measurement can only be reopened by a modified action, got %s", action))
	}
	switch action {
	case domain.RevisionActionCreated, domain.RevisionActionAutoAccepted:
		if previous != "" {
			return domain.WrapError(domain.ErrValidation, "append revision",
				fmt.Errorf("%s must be the first action, previous status is %s", action, previous))
		}
	case domain.RevisionActionModified, domain.RevisionActionApproved, domain.RevisionActionRejected:
		if next == "" {
			return domain.WrapError(domain.ErrValidation, "append revision",
				errors.New("new status is required"))
		}
	default:
		return domain.WrapError(domain.ErrValidation, "append revision",
			fmt.Errorf("unknown action %q", action))
	}
	return nil
}

func (e *Engine) measurementLock(measurementID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[measurementID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[measurementID] = lock
	}
	return lock
}
