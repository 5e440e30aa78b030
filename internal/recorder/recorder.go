// Package recorder appends composite health records to a day-partitioned,
// append-only metrics log.
package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JamesFincher/vllm-server-config/internal/metrics"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// Recorder writes one JSON line per cycle to
// <dir>/metrics-YYYY-MM-DD.jsonl. Files are partitioned by the local
// calendar day, matching the log file partitioning.
type Recorder struct {
	dir string
	log *slog.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// New builds a recorder writing under dir. The directory is created on
// first use.
func New(dir string, log *slog.Logger) *Recorder {
	return &Recorder{
		dir: dir,
		log: log.With("component", "metrics_recorder"),
		now: time.Now,
	}
}

// Append persists one composite record. A write failure is logged and
// counted but never returned; metrics loss must not stop monitoring.
func (r *Recorder) Append(rec models.CompositeRecord) {
	if err := r.append(rec); err != nil {
		r.log.Error("failed to save metrics record", "cycle_id", rec.CycleID, "error", err)
		metrics.IncRecordWriteError()
	}
}

func (r *Recorder) append(rec models.CompositeRecord) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("error creating metrics directory: %w", err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error marshaling record: %w", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("metrics-%s.jsonl", r.now().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error opening metrics file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("error writing record: %w", err)
	}
	return nil
}
