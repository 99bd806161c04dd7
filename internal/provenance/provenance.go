// Package provenance tracks matching operations as a tree of timestamped
// spans with per-layer metrics counters (spec.md section 4.8). Grounded on
// the teacher's campaign package's uuid-suffixed operation IDs
// (internal/campaign/assault_campaign.go) and its start/complete/fail event
// shape, generalized from campaign phases to matching-core operations.
package provenance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// OperationStatus is the lifecycle state of a single tracked operation.
type OperationStatus string

const (
	OperationStarted   OperationStatus = "started"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
)

// Operation is a single provenance span. Inputs/Outputs carry summaries
// (counts, min/max), never full payloads (spec.md section 4.8: "summary of
// inputs (counts, not full payloads)").
type Operation struct {
	ID        string
	ParentID  string
	Name      string
	Status    OperationStatus
	StartedAt time.Time
	EndedAt   time.Time
	Inputs    map[string]int
	Outputs   map[string]float64
	Error     string
}

// Duration returns EndedAt.Sub(StartedAt), or zero while the operation is
// still running.
func (o Operation) Duration() time.Duration {
	if o.EndedAt.IsZero() {
		return 0
	}
	return o.EndedAt.Sub(o.StartedAt)
}

// LayerCounters accumulates the per-layer metrics spec.md section 4.8
// requires: request/success/error counts, mean processing time, and (for
// LLM) tokens/cost.
type LayerCounters struct {
	Requests        int
	Successes       int
	Errors          int
	totalDurationMS float64
	TokensUsed      int
	EstimatedCost   float64
}

// MeanProcessingTimeMS returns the running mean of recorded durations.
func (c LayerCounters) MeanProcessingTimeMS() float64 {
	if c.Requests == 0 {
		return 0
	}
	return c.totalDurationMS / float64(c.Requests)
}

// Tracker records operations and layer metrics for a single matching run.
// Safe for concurrent use by the orchestrator's parallel strategy.
type Tracker struct {
	mu         sync.Mutex
	operations map[string]*Operation
	order      []string
	counters   map[types.LayerType]*LayerCounters
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		operations: make(map[string]*Operation),
		counters:   make(map[types.LayerType]*LayerCounters),
	}
}

// Start begins a new operation and returns its ID. parentID may be empty
// for a root operation.
func (t *Tracker) Start(name, parentID string, inputs map[string]int) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := name + "_" + uuid.New().String()[:8]
	op := &Operation{
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		Status:    OperationStarted,
		StartedAt: time.Now(),
		Inputs:    inputs,
	}
	t.operations[id] = op
	t.order = append(t.order, id)

	logging.Get(logging.CategoryProvenance).Debugw("operation started", "id", id, "name", name, "parent", parentID)
	return id
}

// Complete marks an operation as completed with the given output summary.
func (t *Tracker) Complete(id string, outputs map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.operations[id]
	if !ok {
		return
	}
	op.Status = OperationCompleted
	op.EndedAt = time.Now()
	op.Outputs = outputs

	logging.Get(logging.CategoryProvenance).Debugw("operation completed", "id", id, "duration", op.Duration())
}

// Fail marks an operation as failed.
func (t *Tracker) Fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.operations[id]
	if !ok {
		return
	}
	op.Status = OperationFailed
	op.EndedAt = time.Now()
	if err != nil {
		op.Error = err.Error()
	}

	logging.Get(logging.CategoryProvenance).Errorw("operation failed", "id", id, "error", op.Error)
}

// RecordLayer folds a layer's metrics (spec.md section 4.8: "Metrics
// counters: per-layer request count, success count, error count, mean
// processing time") into the running per-layer counters.
func (t *Tracker) RecordLayer(layer types.LayerType, metrics types.LayerMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[layer]
	if !ok {
		c = &LayerCounters{}
		t.counters[layer] = c
	}

	c.Requests++
	if metrics.Success {
		c.Successes++
	}
	if len(metrics.Errors) > 0 {
		c.Errors += len(metrics.Errors)
	} else if !metrics.Success {
		c.Errors++
	}
	c.totalDurationMS += float64(metrics.Duration().Microseconds()) / 1000.0
}

// RecordLLMUsage adds to the LLM layer's token/cost counters (spec.md
// section 4.8: "for LLM, tokens used and estimated cost").
func (t *Tracker) RecordLLMUsage(tokens int, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[types.LayerLLM]
	if !ok {
		c = &LayerCounters{}
		t.counters[types.LayerLLM] = c
	}
	c.TokensUsed += tokens
	c.EstimatedCost += cost
}

// Operations returns every recorded operation in start order.
func (t *Tracker) Operations() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Operation, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.operations[id])
	}
	return out
}

// LayerMetrics returns a snapshot of every layer's accumulated counters.
func (t *Tracker) LayerMetrics() map[types.LayerType]LayerCounters {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[types.LayerType]LayerCounters, len(t.counters))
	for layer, c := range t.counters {
		out[layer] = *c
	}
	return out
}
