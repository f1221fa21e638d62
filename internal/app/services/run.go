package services

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

// RunState is the coordinator state of one run.
type RunState string

const (
	StatePending             RunState = "Pending"
	StateRelationalCommitted RunState = "RelationalCommitted"
	StateProjecting          RunState = "Projecting"
	StateCompleted           RunState = "Completed"
	StatePartiallyFailed     RunState = "PartiallyFailed"
	StateFailed              RunState = "Failed"
)

// transitions lists the legal successors of each state. Terminal states have none.
var transitions = map[RunState][]RunState{
	StatePending:             {StateRelationalCommitted, StateFailed},
	StateRelationalCommitted: {StateProjecting},
	StateProjecting:          {StateCompleted, StatePartiallyFailed},
}

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return len(transitions[s]) == 0
}

// Run kinds.
const (
	KindGenerate = "generate"
	KindProject  = "project"
)

// Run is the report of one pipeline run.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	State      RunState   `json:"state"`
	Seed       int64      `json:"seed,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Relational   *projectors.StoreReport            `json:"relational,omitempty"`
	Stores       map[string]*projectors.StoreReport `json:"stores"`
	Halted       []models.EntityType                `json:"halted,omitempty"`
	Inconsistent []string                           `json:"inconsistent_stores,omitempty"`
	Counts       map[models.EntityType]int          `json:"counts,omitempty"`
	Error        string                             `json:"error,omitempty"`
}

// NewRun creates a pending run
func NewRun(kind string) *Run {
	return &Run{
		ID:        uuid.New(),
		Kind:      kind,
		State:     StatePending,
		StartedAt: time.Now().UTC(),
		Stores:    make(map[string]*projectors.StoreReport),
	}
}

// Transition moves the run to state to, rejecting transitions the state machine does not
// allow.
func (r *Run) Transition(to RunState) error {
	if !slices.Contains(transitions[r.State], to) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrIllegalTransition, r.State, to)
	}
	r.State = to
	if to.Terminal() {
		now := time.Now().UTC()
		r.FinishedAt = &now
	}
	return nil
}

// halt records t as not written, together with every type depending on it.
func (r *Run) halt(t models.EntityType) {
	for _, h := range append([]models.EntityType{t}, models.Dependents(models.Dependencies, t)...) {
		if !slices.Contains(r.Halted, h) {
			r.Halted = append(r.Halted, h)
		}
	}
}

func (r *Run) isHalted(t models.EntityType) bool {
	return slices.Contains(r.Halted, t)
}

// finish derives the terminal state from the collected reports.
func (r *Run) finish() error {
	r.Inconsistent = r.Inconsistent[:0]
	if len(r.Halted) > 0 {
		r.Inconsistent = append(r.Inconsistent, r.Relational.Store)
	}
	for _, name := range projectors.Stores {
		if rep, ok := r.Stores[name]; ok && !rep.Consistent() {
			r.Inconsistent = append(r.Inconsistent, name)
		}
	}
	if len(r.Inconsistent) == 0 {
		r.Inconsistent = nil
		return r.Transition(StateCompleted)
	}
	return r.Transition(StatePartiallyFailed)
}
