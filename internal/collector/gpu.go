package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// GPUProbe reads per-device telemetry through NVML. When the driver or
// library is absent the probe reports the snapshot as unavailable, which
// is the expected state on non-GPU hosts and never treated as a failure.
type GPUProbe struct {
	log *slog.Logger

	initOnce  sync.Once
	available bool
	initErr   string
}

// NewGPUProbe builds a GPU probe. NVML initialization is deferred to the
// first Collect call so construction never blocks on driver state.
func NewGPUProbe(log *slog.Logger) *GPUProbe {
	return &GPUProbe{log: log.With("component", "gpu_probe")}
}

func (p *GPUProbe) init() {
	p.initOnce.Do(func() {
		if ret := nvml.Init(); ret != nvml.SUCCESS {
			p.initErr = nvml.ErrorString(ret)
			p.log.Warn("nvidia telemetry not available", "reason", p.initErr)
			return
		}
		p.available = true
		count, ret := nvml.DeviceGetCount()
		if ret == nvml.SUCCESS {
			p.log.Info("initialized nvidia telemetry", "gpu_count", count)
		}
	})
}

// Collect enumerates every GPU and reports its name, memory, temperature,
// utilization and power draw. A read failure on one device is recorded on
// that device only and never hides the others. Missing power telemetry is
// not an error.
func (p *GPUProbe) Collect(ctx context.Context) models.GPUSnapshot {
	p.init()

	snap := models.GPUSnapshot{Timestamp: time.Now(), Available: p.available}
	if !p.available {
		snap.Error = p.initErr
		return snap
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		snap.Failed = true
		snap.Error = nvml.ErrorString(ret)
		p.log.Error("gpu enumeration failed", "error", snap.Error)
		return snap
	}

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			snap.Failed = true
			snap.Error = err.Error()
			return snap
		}
		snap.Devices = append(snap.Devices, p.readDevice(i))
	}
	return snap
}

func (p *GPUProbe) readDevice(index int) models.GPUDevice {
	dev := models.GPUDevice{Index: index}

	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		dev.Error = nvml.ErrorString(ret)
		p.log.Error("failed to open gpu device", "index", index, "error", dev.Error)
		return dev
	}

	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		dev.Name = name
	}

	if mem, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
		dev.MemoryUsed = mem.Used
		dev.MemoryTotal = mem.Total
		if mem.Total > 0 {
			dev.MemoryPercent = float64(mem.Used) / float64(mem.Total) * 100
		}
	} else {
		dev.Error = nvml.ErrorString(ret)
	}

	if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		dev.Temperature = temp
	}

	if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
		dev.UtilizationGPU = util.Gpu
		dev.UtilizationMemory = util.Memory
	}

	// Power telemetry is optional on some boards.
	if power, ret := device.GetPowerUsage(); ret == nvml.SUCCESS {
		watts := float64(power) / 1000.0
		dev.PowerWatts = &watts
	}

	return dev
}

// Close releases the NVML handle if it was initialized.
func (p *GPUProbe) Close() {
	if p.available {
		_ = nvml.Shutdown()
	}
}
