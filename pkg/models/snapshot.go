// Package models defines the shared data types exchanged between the
// collectors, evaluator, dispatcher and recorder.
package models

import "time"

// CollectorKind identifies the source of a snapshot.
type CollectorKind string

const (
	CollectorAPI       CollectorKind = "api"
	CollectorGPU       CollectorKind = "gpu"
	CollectorResources CollectorKind = "resources"
	CollectorProcesses CollectorKind = "processes"
)

// EndpointCheck is the outcome of a single probe request against the
// serving endpoint.
type EndpointCheck struct {
	OK      bool    `json:"status"`
	Seconds float64 `json:"response_time"`
}

// APISnapshot captures liveness, model listing and a synthetic generation
// round-trip against the serving API. Overall is the logical AND of the
// three sub-checks.
type APISnapshot struct {
	Timestamp  time.Time     `json:"timestamp"`
	Health     EndpointCheck `json:"health_endpoint"`
	Models     EndpointCheck `json:"models_endpoint"`
	Generation EndpointCheck `json:"generation_test"`
	Overall    bool          `json:"overall_status"`
	Failed     bool          `json:"failed,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// GPUDevice holds the telemetry of one enumerated GPU. PowerWatts is nil
// when the device does not expose power telemetry. A per-device read error
// is recorded in Error without affecting sibling devices.
type GPUDevice struct {
	Index             int      `json:"index"`
	Name              string   `json:"name"`
	MemoryUsed        uint64   `json:"memory_used"`
	MemoryTotal       uint64   `json:"memory_total"`
	MemoryPercent     float64  `json:"memory_used_percent"`
	Temperature       uint32   `json:"temperature"`
	UtilizationGPU    uint32   `json:"utilization_gpu"`
	UtilizationMemory uint32   `json:"utilization_memory"`
	PowerWatts        *float64 `json:"power_usage,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// GPUSnapshot reports telemetry for every GPU on the host. Available=false
// means the driver or NVML library is absent, which is an expected state on
// non-GPU hosts and distinct from Failed.
type GPUSnapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	Available bool        `json:"available"`
	Failed    bool        `json:"failed,omitempty"`
	Error     string      `json:"error,omitempty"`
	Devices   []GPUDevice `json:"gpus,omitempty"`
}

// CPUStats holds host CPU figures. Load1 is nil on platforms without a
// load average.
type CPUStats struct {
	UsagePercent float64  `json:"usage_percent"`
	Count        int      `json:"count"`
	Load1        *float64 `json:"load_average,omitempty"`
}

// MemoryStats holds host virtual memory figures.
type MemoryStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskStats holds usage of the root volume.
type DiskStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// NetworkStats holds cumulative host-wide network counters.
type NetworkStats struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// ResourceSnapshot reports host-level resource usage. A nil sub-struct
// means that figure could not be obtained this cycle; only Failed=true
// means the probe as a whole produced nothing.
type ResourceSnapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Failed    bool          `json:"failed,omitempty"`
	Error     string        `json:"error,omitempty"`
	CPU       *CPUStats     `json:"cpu,omitempty"`
	Memory    *MemoryStats  `json:"memory,omitempty"`
	Disk      *DiskStats    `json:"disk,omitempty"`
	Network   *NetworkStats `json:"network,omitempty"`
	Processes *int          `json:"processes,omitempty"`
}

// ServingProcess describes one host process matched against the serving
// runtime name.
type ServingProcess struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
	Status        string  `json:"status"`
}

// ProcessSnapshot lists the serving runtime processes found on the host.
type ProcessSnapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Failed    bool             `json:"failed,omitempty"`
	Error     string           `json:"error,omitempty"`
	Processes []ServingProcess `json:"processes"`
}

// Count returns the number of matched serving processes.
func (s ProcessSnapshot) Count() int { return len(s.Processes) }

// CompositeRecord is the union of one cycle's four snapshots. It is built
// once per cycle by the scheduler, consumed by the evaluator and recorder,
// and not retained beyond the bounded diagnostics ring.
type CompositeRecord struct {
	CycleID   string           `json:"cycle_id"`
	Timestamp time.Time        `json:"timestamp"`
	API       APISnapshot      `json:"api_health"`
	GPU       GPUSnapshot      `json:"gpu_status"`
	Resources ResourceSnapshot `json:"system_resources"`
	Processes ProcessSnapshot  `json:"vllm_processes"`
}
