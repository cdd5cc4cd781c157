package processor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	partnerID := uuid.New()

	runID := registry.CreateRun(partnerID)

	run, ok := registry.GetRun(runID)
	require.True(t, ok)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Equal(t, partnerID, run.PartnerID)
	assert.Nil(t, run.StartedAt)

	assert.True(t, registry.MarkRunning(runID))
	run, _ = registry.GetRun(runID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NotNil(t, run.StartedAt)

	assert.True(t, registry.MarkCompleted(runID))
	run, _ = registry.GetRun(runID)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.NotNil(t, run.CompletedAt)

	// Unknown runs
	_, ok = registry.GetRun(uuid.New())
	assert.False(t, ok)
	assert.False(t, registry.MarkRunning(uuid.New()))
}

func TestRegistryStop(t *testing.T) {
	registry := NewRegistry()
	runID := registry.CreateRun(uuid.New())
	registry.MarkRunning(runID)

	assert.False(t, registry.ShouldStop(runID))
	assert.True(t, registry.RequestStop(runID))
	assert.True(t, registry.ShouldStop(runID))

	// A running run moves to stopping, then to stopped on completion
	run, _ := registry.GetRun(runID)
	assert.Equal(t, RunStatusStopping, run.Status)

	registry.MarkCompleted(runID)
	run, _ = registry.GetRun(runID)
	assert.Equal(t, RunStatusStopped, run.Status)
}

func TestRegistryFailed(t *testing.T) {
	registry := NewRegistry()
	runID := registry.CreateRun(uuid.New())
	registry.MarkRunning(runID)

	registry.MarkFailed(runID, "database unavailable")
	run, _ := registry.GetRun(runID)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "database unavailable", run.Error)

	// Failed is terminal; the run's own completion does not override it
	registry.MarkCompleted(runID)
	run, _ = registry.GetRun(runID)
	assert.Equal(t, RunStatusFailed, run.Status)
}

func TestRegistryProgressConcurrent(t *testing.T) {
	registry := NewRegistry()
	runID := registry.CreateRun(uuid.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.UpdateProgress(runID, func(p *Progress) { p.Completed++ })
		}()
	}
	wg.Wait()

	run, _ := registry.GetRun(runID)
	assert.Equal(t, 50, run.Progress.Completed)
}

func TestRegistryList(t *testing.T) {
	registry := NewRegistry()
	first := registry.CreateRun(uuid.New())
	second := registry.CreateRun(uuid.New())

	runs := registry.ListRuns()
	assert.Len(t, runs, 2)

	assert.True(t, registry.DeleteRun(first))
	assert.False(t, registry.DeleteRun(first))

	runs = registry.ListRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].RunID)
}
