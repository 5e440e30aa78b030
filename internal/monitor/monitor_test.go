package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

type stubAPI struct{ snap models.APISnapshot }

func (s stubAPI) Collect(context.Context) models.APISnapshot { return s.snap }

type stubGPU struct{ snap models.GPUSnapshot }

func (s stubGPU) Collect(context.Context) models.GPUSnapshot { return s.snap }

type stubResources struct{ snap models.ResourceSnapshot }

func (s stubResources) Collect(context.Context) models.ResourceSnapshot { return s.snap }

type stubProcesses struct{ snap models.ProcessSnapshot }

func (s stubProcesses) Collect(context.Context) models.ProcessSnapshot { return s.snap }

type captureDispatcher struct {
	mu    sync.Mutex
	cands []models.AlertCandidate
}

func (d *captureDispatcher) Dispatch(_ context.Context, cand models.AlertCandidate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cands = append(d.cands, cand)
}

type captureRecorder struct {
	mu   sync.Mutex
	recs []models.CompositeRecord
}

func (r *captureRecorder) Append(rec models.CompositeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

func testManager(disp *captureDispatcher, rec *captureRecorder, rules []models.ThresholdRule) *Manager {
	return NewManager(Options{
		Interval: time.Hour,
		Rules:    rules,
		API: stubAPI{snap: models.APISnapshot{
			Health:     models.EndpointCheck{OK: true, Seconds: 0.01},
			Models:     models.EndpointCheck{OK: true, Seconds: 0.02},
			Generation: models.EndpointCheck{OK: true, Seconds: 1.5},
			Overall:    true,
		}},
		GPU:        stubGPU{snap: models.GPUSnapshot{Available: false, Error: "driver not loaded"}},
		Resources:  stubResources{snap: models.ResourceSnapshot{CPU: &models.CPUStats{UsagePercent: 95, Count: 8}}},
		Processes:  stubProcesses{snap: models.ProcessSnapshot{Processes: []models.ServingProcess{}}},
		Dispatcher: disp,
		Recorder:   rec,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRunOnceJoinsAllCollectors(t *testing.T) {
	disp := &captureDispatcher{}
	rec := &captureRecorder{}
	m := testManager(disp, rec, nil)

	record := m.RunOnce(context.Background())

	assert.NotEmpty(t, record.CycleID)
	assert.True(t, record.API.Overall)
	assert.False(t, record.GPU.Available)
	require.NotNil(t, record.Resources.CPU)
	assert.Equal(t, 95.0, record.Resources.CPU.UsagePercent)
	assert.Equal(t, 1, rec.count())
}

func TestRunOnceFeedsCandidatesInOrder(t *testing.T) {
	disp := &captureDispatcher{}
	rec := &captureRecorder{}
	rules := []models.ThresholdRule{
		{Metric: "cpu.usage_percent", Title: "CPU Usage High", Limit: 90, Op: models.ThresholdExceeds},
	}
	m := testManager(disp, rec, rules)

	m.RunOnce(context.Background())

	require.Len(t, disp.cands, 1)
	assert.Equal(t, "CPU Usage High", disp.cands[0].Title)
}

func TestRunOncePersistsFullyFailedCycle(t *testing.T) {
	disp := &captureDispatcher{}
	rec := &captureRecorder{}
	m := NewManager(Options{
		Interval:   time.Hour,
		API:        stubAPI{snap: models.APISnapshot{Failed: true, Error: "down"}},
		GPU:        stubGPU{snap: models.GPUSnapshot{Failed: true, Error: "down"}},
		Resources:  stubResources{snap: models.ResourceSnapshot{Failed: true, Error: "down"}},
		Processes:  stubProcesses{snap: models.ProcessSnapshot{Failed: true, Error: "down"}},
		Dispatcher: disp,
		Recorder:   rec,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	m.RunOnce(context.Background())

	// A fully-failed cycle is still persisted exactly once.
	assert.Equal(t, 1, rec.count())
	assert.Empty(t, disp.cands)
}

func TestHistoryIsBounded(t *testing.T) {
	disp := &captureDispatcher{}
	rec := &captureRecorder{}
	m := testManager(disp, rec, nil)
	m.historySize = 3

	for i := 0; i < 5; i++ {
		m.RunOnce(context.Background())
	}

	history := m.History()
	assert.Len(t, history, 3)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, history[len(history)-1].CycleID, latest.CycleID)
}

// slowAPI simulates a collector whose request outlives an external
// interrupt. It aborts only if its own context is cancelled.
type slowAPI struct {
	delay   time.Duration
	started chan struct{}

	mu       sync.Mutex
	once     sync.Once
	aborted  bool
	finished bool
}

func (s *slowAPI) Collect(ctx context.Context) models.APISnapshot {
	s.once.Do(func() { close(s.started) })
	select {
	case <-ctx.Done():
		s.mu.Lock()
		s.aborted = true
		s.mu.Unlock()
		return models.APISnapshot{Failed: true, Error: ctx.Err().Error()}
	case <-time.After(s.delay):
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
		return models.APISnapshot{
			Health:     models.EndpointCheck{OK: true, Seconds: s.delay.Seconds()},
			Models:     models.EndpointCheck{OK: true},
			Generation: models.EndpointCheck{OK: true},
			Overall:    true,
		}
	}
}

func TestInterruptDrainsInFlightCycle(t *testing.T) {
	api := &slowAPI{delay: 200 * time.Millisecond, started: make(chan struct{})}
	disp := &captureDispatcher{}
	rec := &captureRecorder{}
	m := NewManager(Options{
		Interval:   time.Hour,
		API:        api,
		GPU:        stubGPU{snap: models.GPUSnapshot{Available: false}},
		Resources:  stubResources{},
		Processes:  stubProcesses{},
		Dispatcher: disp,
		Recorder:   rec,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	// Cancel mid-collection, the way a SIGINT lands.
	<-api.started
	cancel()
	m.Stop()

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.finished, "in-flight collector should run to completion")
	assert.False(t, api.aborted, "interrupt must not cancel the in-flight collector")

	require.Equal(t, 1, rec.count())
	rec.mu.Lock()
	record := rec.recs[0]
	rec.mu.Unlock()
	assert.True(t, record.API.Overall, "drained cycle must not record spurious failures")
}

func TestStartStopDrainsInFlightCycle(t *testing.T) {
	disp := &captureDispatcher{}
	rec := &captureRecorder{}
	m := testManager(disp, rec, nil)
	m.interval = 10 * time.Millisecond

	m.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	// At least the initial cycle completed, and Stop returned cleanly.
	assert.GreaterOrEqual(t, rec.count(), 1)
	after := rec.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.count())
}

func TestLatestBeforeFirstCycle(t *testing.T) {
	m := testManager(&captureDispatcher{}, &captureRecorder{}, nil)
	_, ok := m.Latest()
	assert.False(t, ok)
}
