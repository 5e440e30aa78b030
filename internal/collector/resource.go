package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// cpuSampleWindow is the interval over which CPU utilization is averaged.
// An instantaneous read reports zero on an idle sampling boundary.
const cpuSampleWindow = time.Second

// ResourceProbe reports host-level CPU, memory, disk, network and process
// figures. A failure to obtain any one figure leaves that field absent
// instead of failing the snapshot.
type ResourceProbe struct {
	rootPath string
	log      *slog.Logger
}

// NewResourceProbe builds a resource probe. rootPath is the filesystem
// whose usage is reported, normally "/".
func NewResourceProbe(rootPath string, log *slog.Logger) *ResourceProbe {
	if rootPath == "" {
		rootPath = "/"
	}
	return &ResourceProbe{rootPath: rootPath, log: log.With("component", "resource_probe")}
}

// Collect gathers all host resource figures.
func (p *ResourceProbe) Collect(ctx context.Context) models.ResourceSnapshot {
	snap := models.ResourceSnapshot{Timestamp: time.Now()}

	if percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err == nil && len(percents) > 0 {
		stats := &models.CPUStats{UsagePercent: percents[0]}
		if count, err := cpu.CountsWithContext(ctx, true); err == nil {
			stats.Count = count
		}
		// Load average is a Unix concept; absence is not a failure.
		if avg, err := load.AvgWithContext(ctx); err == nil {
			load1 := avg.Load1
			stats.Load1 = &load1
		}
		snap.CPU = stats
	} else if err != nil {
		p.log.Error("failed to sample cpu usage", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.Memory = &models.MemoryStats{
			Total:       vm.Total,
			Used:        vm.Used,
			Available:   vm.Available,
			UsedPercent: vm.UsedPercent,
		}
	} else {
		p.log.Error("failed to read memory stats", "error", err)
	}

	if usage, err := disk.UsageWithContext(ctx, p.rootPath); err == nil {
		snap.Disk = &models.DiskStats{
			Total:       usage.Total,
			Used:        usage.Used,
			Free:        usage.Free,
			UsedPercent: usage.UsedPercent,
		}
	} else {
		p.log.Error("failed to read disk usage", "path", p.rootPath, "error", err)
	}

	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		snap.Network = &models.NetworkStats{
			BytesSent:   counters[0].BytesSent,
			BytesRecv:   counters[0].BytesRecv,
			PacketsSent: counters[0].PacketsSent,
			PacketsRecv: counters[0].PacketsRecv,
		}
	} else if err != nil {
		p.log.Error("failed to read network counters", "error", err)
	}

	if pids, err := process.PidsWithContext(ctx); err == nil {
		count := len(pids)
		snap.Processes = &count
	} else {
		p.log.Error("failed to count processes", "error", err)
	}

	if snap.CPU == nil && snap.Memory == nil && snap.Disk == nil && snap.Network == nil && snap.Processes == nil {
		snap.Failed = true
		snap.Error = "no resource figures could be obtained"
	}
	return snap
}
