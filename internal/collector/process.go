package collector

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// ProcessProbe scans host processes for the serving runtime and reports
// per-process CPU, memory and lifecycle status.
type ProcessProbe struct {
	needle string
	log    *slog.Logger
}

// NewProcessProbe builds a process probe matching processes whose name or
// command line references needle (case-insensitive).
func NewProcessProbe(needle string, log *slog.Logger) *ProcessProbe {
	return &ProcessProbe{
		needle: strings.ToLower(needle),
		log:    log.With("component", "process_probe"),
	}
}

// Collect enumerates host processes. Processes that disappear or are
// inaccessible mid-scan are skipped, not treated as an error.
func (p *ProcessProbe) Collect(ctx context.Context) models.ProcessSnapshot {
	snap := models.ProcessSnapshot{Timestamp: time.Now(), Processes: []models.ServingProcess{}}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		snap.Failed = true
		snap.Error = err.Error()
		p.log.Error("process enumeration failed", "error", err)
		return snap
	}

	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cmdline, err := proc.CmdlineSliceWithContext(ctx)
		if err != nil {
			cmdline = nil
		}
		if !matchesRuntime(name, cmdline, p.needle) {
			continue
		}

		sp := models.ServingProcess{PID: proc.Pid, Name: name}
		if cpuPct, err := proc.CPUPercentWithContext(ctx); err == nil {
			sp.CPUPercent = cpuPct
		}
		if memPct, err := proc.MemoryPercentWithContext(ctx); err == nil {
			sp.MemoryPercent = memPct
		}
		if status, err := proc.StatusWithContext(ctx); err == nil && len(status) > 0 {
			sp.Status = status[0]
		}
		snap.Processes = append(snap.Processes, sp)
	}
	return snap
}

// matchesRuntime reports whether a process name or any command-line
// argument references the serving runtime.
func matchesRuntime(name string, cmdline []string, needle string) bool {
	if needle == "" {
		return false
	}
	if strings.Contains(strings.ToLower(name), needle) {
		return true
	}
	for _, arg := range cmdline {
		if strings.Contains(strings.ToLower(arg), needle) {
			return true
		}
	}
	return false
}
