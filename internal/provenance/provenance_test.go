package provenance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

func TestStartCompleteRecordsOperation(t *testing.T) {
	tr := NewTracker()
	id := tr.Start("match_requirements", "", map[string]int{"requirements": 3})
	tr.Complete(id, map[string]float64{"matches": 2})

	ops := tr.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, OperationCompleted, ops[0].Status)
	assert.Equal(t, 3, ops[0].Inputs["requirements"])
	assert.Equal(t, 2.0, ops[0].Outputs["matches"])
	assert.GreaterOrEqual(t, ops[0].Duration(), time.Duration(0))
}

func TestFailRecordsError(t *testing.T) {
	tr := NewTracker()
	id := tr.Start("orchestrator_run", "", nil)
	tr.Fail(id, errors.New("boom"))

	ops := tr.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, OperationFailed, ops[0].Status)
	assert.Equal(t, "boom", ops[0].Error)
}

func TestOperationsPreserveParentID(t *testing.T) {
	tr := NewTracker()
	parent := tr.Start("match_requirements", "", nil)
	child := tr.Start("direct_layer", parent, nil)
	tr.Complete(child, nil)
	tr.Complete(parent, nil)

	ops := tr.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, parent, ops[1].ParentID)
}

func TestRecordLayerAccumulatesCounters(t *testing.T) {
	tr := NewTracker()
	tr.RecordLayer(types.LayerDirect, types.LayerMetrics{Success: true, Start: time.Now(), End: time.Now().Add(10 * time.Millisecond)})
	tr.RecordLayer(types.LayerDirect, types.LayerMetrics{Success: false, Errors: []string{"timeout"}})

	metrics := tr.LayerMetrics()[types.LayerDirect]
	assert.Equal(t, 2, metrics.Requests)
	assert.Equal(t, 1, metrics.Successes)
	assert.Equal(t, 1, metrics.Errors)
	assert.Greater(t, metrics.MeanProcessingTimeMS(), 0.0)
}

func TestRecordLLMUsageAccumulates(t *testing.T) {
	tr := NewTracker()
	tr.RecordLLMUsage(100, 0.01)
	tr.RecordLLMUsage(50, 0.005)

	metrics := tr.LayerMetrics()[types.LayerLLM]
	assert.Equal(t, 150, metrics.TokensUsed)
	assert.InDelta(t, 0.015, metrics.EstimatedCost, 0.0001)
}

func TestCompleteUnknownIDIsNoOp(t *testing.T) {
	tr := NewTracker()
	tr.Complete("does-not-exist", nil)
	assert.Empty(t, tr.Operations())
}
