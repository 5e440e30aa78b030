// Package monitor drives the health-check cycle: collectors, evaluator,
// dispatcher and recorder, once per interval, until stopped.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JamesFincher/vllm-server-config/internal/evaluator"
	"github.com/JamesFincher/vllm-server-config/internal/metrics"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// collectorTimeout bounds the host telemetry probes so a stalled read
// cannot hold up the join. The API probe carries its own per-request
// timeouts.
const collectorTimeout = 60 * time.Second

// Narrow collector views so tests can substitute probes.
type apiCollector interface {
	Collect(ctx context.Context) models.APISnapshot
}

type gpuCollector interface {
	Collect(ctx context.Context) models.GPUSnapshot
}

type resourceCollector interface {
	Collect(ctx context.Context) models.ResourceSnapshot
}

type processCollector interface {
	Collect(ctx context.Context) models.ProcessSnapshot
}

type alertDispatcher interface {
	Dispatch(ctx context.Context, cand models.AlertCandidate)
}

type recordSink interface {
	Append(rec models.CompositeRecord)
}

// Options encapsulates the dependencies required to run the monitor.
type Options struct {
	Interval    time.Duration
	HistorySize int
	Rules       []models.ThresholdRule
	API         apiCollector
	GPU         gpuCollector
	Resources   resourceCollector
	Processes   processCollector
	Dispatcher  alertDispatcher
	Recorder    recordSink
	Logger      *slog.Logger
}

// Manager owns the monitoring loop lifecycle. One cycle runs to
// completion before the next is scheduled; the interval is measured from
// cycle completion so cycles never overlap.
type Manager struct {
	interval   time.Duration
	rules      []models.ThresholdRule
	api        apiCollector
	gpu        gpuCollector
	resources  resourceCollector
	processes  processCollector
	dispatcher alertDispatcher
	recorder   recordSink
	log        *slog.Logger

	mu          sync.RWMutex
	history     []models.CompositeRecord
	historySize int

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager constructs a monitor manager.
func NewManager(opts Options) *Manager {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	historySize := opts.HistorySize
	if historySize <= 0 {
		historySize = 120
	}
	return &Manager{
		interval:    interval,
		rules:       opts.Rules,
		api:         opts.API,
		gpu:         opts.GPU,
		resources:   opts.Resources,
		processes:   opts.Processes,
		dispatcher:  opts.Dispatcher,
		recorder:    opts.Recorder,
		log:         opts.Logger.With("component", "monitor"),
		historySize: historySize,
		stop:        make(chan struct{}),
	}
}

// Start launches the monitoring loop. The first cycle runs immediately;
// each subsequent cycle is scheduled relative to the previous cycle's
// completion. A stop signal or context cancellation drains the in-flight
// cycle before returning: the cycle itself runs on a non-cancellable
// context so collectors and notification sends finish on their own
// timeouts, and cancellation only prevents the next cycle from being
// scheduled.
func (m *Manager) Start(ctx context.Context) {
	m.log.Info("starting health monitoring", "interval", m.interval)

	cycleCtx := context.WithoutCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			m.RunOnce(cycleCtx)

			timer := time.NewTimer(m.interval)
			select {
			case <-timer.C:
			case <-m.stop:
				timer.Stop()
				m.log.Info("monitoring stopped")
				return
			case <-ctx.Done():
				timer.Stop()
				m.log.Info("monitoring context cancelled")
				return
			}
		}
	}()
}

// Stop signals the loop to stop and waits for the in-flight cycle.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// RunOnce executes a single health-check cycle and returns its record.
// The record is always persisted exactly once, even when every collector
// failed.
func (m *Manager) RunOnce(ctx context.Context) models.CompositeRecord {
	m.log.Info("starting health check cycle")
	start := time.Now()

	rec := m.collect(ctx)

	for _, cand := range evaluator.Evaluate(rec, m.rules) {
		m.dispatcher.Dispatch(ctx, cand)
	}

	m.recorder.Append(rec)
	m.pushHistory(rec)

	m.countFailures(rec)
	metrics.IncCycles()
	metrics.ObserveCycleDuration(time.Since(start).Seconds())

	m.log.Info("health check complete",
		"cycle_id", rec.CycleID,
		"api", statusWord(rec.API.Overall),
		"gpus", gpuWord(rec.GPU),
		"duration", time.Since(start).Round(time.Millisecond))
	return rec
}

// collect runs the four collectors concurrently and joins their results
// deterministically into one composite record. The collectors have no
// data dependency on each other; each is bounded by its own timeout.
func (m *Manager) collect(ctx context.Context) models.CompositeRecord {
	rec := models.CompositeRecord{
		CycleID:   uuid.NewString(),
		Timestamp: time.Now(),
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		rec.API = m.api.Collect(ctx)
	}()
	go func() {
		defer wg.Done()
		gpuCtx, cancel := context.WithTimeout(ctx, collectorTimeout)
		defer cancel()
		rec.GPU = m.gpu.Collect(gpuCtx)
	}()
	go func() {
		defer wg.Done()
		resCtx, cancel := context.WithTimeout(ctx, collectorTimeout)
		defer cancel()
		rec.Resources = m.resources.Collect(resCtx)
	}()
	go func() {
		defer wg.Done()
		procCtx, cancel := context.WithTimeout(ctx, collectorTimeout)
		defer cancel()
		rec.Processes = m.processes.Collect(procCtx)
	}()
	wg.Wait()

	return rec
}

func (m *Manager) pushHistory(rec models.CompositeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, rec)
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
}

// History returns a copy of the bounded recent-record ring, oldest first.
func (m *Manager) History() []models.CompositeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CompositeRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Latest returns the most recent record, if any cycle has completed.
func (m *Manager) Latest() (models.CompositeRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return models.CompositeRecord{}, false
	}
	return m.history[len(m.history)-1], true
}

func (m *Manager) countFailures(rec models.CompositeRecord) {
	if rec.API.Failed || !rec.API.Overall {
		metrics.IncCollectorFailure(string(models.CollectorAPI))
	}
	if rec.GPU.Failed {
		metrics.IncCollectorFailure(string(models.CollectorGPU))
	}
	if rec.Resources.Failed {
		metrics.IncCollectorFailure(string(models.CollectorResources))
	}
	if rec.Processes.Failed {
		metrics.IncCollectorFailure(string(models.CollectorProcesses))
	}
}

func statusWord(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

func gpuWord(snap models.GPUSnapshot) string {
	if !snap.Available {
		return "N/A"
	}
	if snap.Failed {
		return "FAIL"
	}
	return "OK"
}
