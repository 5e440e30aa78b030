// Package evaluator turns a composite record and the configured limits
// into an ordered sequence of alert candidates.
package evaluator

import (
	"fmt"

	"github.com/JamesFincher/vllm-server-config/internal/config"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// Metric identities in evaluation order. Per-GPU metrics are derived from
// these with the device index, e.g. "gpu0.temperature".
const (
	MetricGPUMemory   = "gpu.memory_percent"
	MetricGPUTemp     = "gpu.temperature"
	MetricCPU         = "cpu.usage_percent"
	MetricMemory      = "memory.used_percent"
	MetricDisk        = "disk.used_percent"
	MetricAPIResponse = "api.response_seconds"
	MetricGeneration  = "api.generation_seconds"
)

// BuildRules constructs the ordered threshold rules from configuration.
// All configured metrics use the exceeds-limit comparison; the rule slice
// keeps the comparison explicit so a direction change never touches the
// evaluation code.
func BuildRules(t config.ThresholdConfig) []models.ThresholdRule {
	return []models.ThresholdRule{
		{Metric: MetricGPUMemory, Title: "GPU Memory High", Limit: t.GPUMemoryPercent, Op: models.ThresholdExceeds},
		{Metric: MetricGPUTemp, Title: "GPU Temperature High", Limit: t.GPUTemperature, Op: models.ThresholdExceeds},
		{Metric: MetricCPU, Title: "CPU Usage High", Limit: t.CPUPercent, Op: models.ThresholdExceeds},
		{Metric: MetricMemory, Title: "Memory Usage High", Limit: t.MemoryPercent, Op: models.ThresholdExceeds},
		{Metric: MetricDisk, Title: "Disk Usage High", Limit: t.DiskPercent, Op: models.ThresholdExceeds},
		{Metric: MetricAPIResponse, Title: "API Response Time High", Limit: t.APIResponseSecs, Op: models.ThresholdExceeds},
		{Metric: MetricGeneration, Title: "Generation Time High", Limit: t.GenerationSecs, Op: models.ThresholdExceeds},
	}
}

// Evaluate is a pure function from one cycle's record and the configured
// rules to zero or more alert candidates. Fields absent from the record
// (collector failed or metric unavailable) are skipped, never treated as a
// breach. The candidate order follows the rule order, and per-GPU
// candidates follow ascending device index, so repeated evaluation of the
// same record yields an identical sequence.
func Evaluate(rec models.CompositeRecord, rules []models.ThresholdRule) []models.AlertCandidate {
	var out []models.AlertCandidate
	for _, rule := range rules {
		out = append(out, evaluateRule(rec, rule)...)
	}
	return out
}

func evaluateRule(rec models.CompositeRecord, rule models.ThresholdRule) []models.AlertCandidate {
	switch rule.Metric {
	case MetricGPUMemory:
		return evaluateGPUs(rec, rule, func(d models.GPUDevice) (float64, string) {
			return d.MemoryPercent, fmt.Sprintf("GPU %d memory usage: %.1f%%", d.Index, d.MemoryPercent)
		})
	case MetricGPUTemp:
		return evaluateGPUs(rec, rule, func(d models.GPUDevice) (float64, string) {
			return float64(d.Temperature), fmt.Sprintf("GPU %d temperature: %d°C", d.Index, d.Temperature)
		})
	case MetricCPU:
		if rec.Resources.Failed || rec.Resources.CPU == nil {
			return nil
		}
		return candidate(rule, rule.Metric, rec.Resources.CPU.UsagePercent,
			fmt.Sprintf("CPU usage: %.1f%%", rec.Resources.CPU.UsagePercent))
	case MetricMemory:
		if rec.Resources.Failed || rec.Resources.Memory == nil {
			return nil
		}
		return candidate(rule, rule.Metric, rec.Resources.Memory.UsedPercent,
			fmt.Sprintf("Memory usage: %.1f%%", rec.Resources.Memory.UsedPercent))
	case MetricDisk:
		if rec.Resources.Failed || rec.Resources.Disk == nil {
			return nil
		}
		return candidate(rule, rule.Metric, rec.Resources.Disk.UsedPercent,
			fmt.Sprintf("Disk usage: %.1f%%", rec.Resources.Disk.UsedPercent))
	case MetricAPIResponse:
		if rec.API.Failed {
			return nil
		}
		return candidate(rule, rule.Metric, rec.API.Health.Seconds,
			fmt.Sprintf("Health endpoint response time: %.2fs", rec.API.Health.Seconds))
	case MetricGeneration:
		// Latency of a failed generation attempt is not a breach signal.
		if rec.API.Failed || !rec.API.Generation.OK {
			return nil
		}
		return candidate(rule, rule.Metric, rec.API.Generation.Seconds,
			fmt.Sprintf("Generation response time: %.2fs", rec.API.Generation.Seconds))
	default:
		return nil
	}
}

// evaluateGPUs applies one rule per device. An unavailable or failed GPU
// snapshot produces no candidates, and devices that failed to read are
// skipped individually.
func evaluateGPUs(rec models.CompositeRecord, rule models.ThresholdRule, read func(models.GPUDevice) (float64, string)) []models.AlertCandidate {
	if !rec.GPU.Available || rec.GPU.Failed {
		return nil
	}
	var out []models.AlertCandidate
	for _, dev := range rec.GPU.Devices {
		if dev.Error != "" {
			continue
		}
		value, message := read(dev)
		source := fmt.Sprintf("gpu%d.%s", dev.Index, metricSuffix(rule.Metric))
		out = append(out, candidate(rule, source, value, message)...)
	}
	return out
}

func candidate(rule models.ThresholdRule, source string, value float64, message string) []models.AlertCandidate {
	if !rule.Breached(value) {
		return nil
	}
	return []models.AlertCandidate{{
		Title:    rule.Title,
		Message:  message,
		Source:   source,
		Severity: models.AlertSeverityWarning,
	}}
}

func metricSuffix(metric string) string {
	switch metric {
	case MetricGPUMemory:
		return "memory_percent"
	case MetricGPUTemp:
		return "temperature"
	default:
		return metric
	}
}
