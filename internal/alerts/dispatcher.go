package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JamesFincher/vllm-server-config/internal/metrics"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// DefaultSuppressionWindow mutes an alert identity for one hour after it
// was last dispatched.
const DefaultSuppressionWindow = time.Hour

// HistoryStore persists the audit trail of suppression decisions. Store
// failures never block dispatch.
type HistoryStore interface {
	InsertAlertHistory(ctx context.Context, entry models.AlertHistoryEntry) error
}

// Channel pairs a notification sender with a name used in logs and
// failure counters.
type Channel struct {
	Name   string
	Sender AlertSender
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Window is the suppression window, DefaultSuppressionWindow when zero.
	Window time.Duration
	// WindowOverrides maps a candidate Source to a custom window. The
	// base design applies the default uniformly; the override hook exists
	// so per-alert-kind tuning needs no restructuring.
	WindowOverrides map[string]time.Duration
	Channels        []Channel
	History         HistoryStore
	Logger          *slog.Logger
	// Now is swapped out in tests.
	Now func() time.Time
}

// Dispatcher applies exactly one suppression decision to every candidate
// and fans accepted candidates out to all channels. It owns the only piece
// of mutable state shared across cycles: the last-dispatched map.
type Dispatcher struct {
	window    time.Duration
	overrides map[string]time.Duration
	channels  []Channel
	history   HistoryStore
	log       *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDispatcher constructs a dispatcher. Suppression state starts empty;
// a process restart resetting the windows is accepted behavior.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	window := opts.Window
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		window:    window,
		overrides: opts.WindowOverrides,
		channels:  opts.Channels,
		history:   opts.History,
		log:       logger.With("component", "alert_dispatcher"),
		now:       now,
		lastSent:  make(map[string]time.Time),
	}
}

// Dispatch applies the suppression decision for one candidate and, when it
// passes, invokes every channel. A channel's delivery failure is logged
// and does not block the remaining channels or suppression bookkeeping.
func (d *Dispatcher) Dispatch(ctx context.Context, cand models.AlertCandidate) {
	key := cand.SuppressionKey()
	now := d.now()

	d.mu.Lock()
	last, seen := d.lastSent[key]
	suppressed := seen && now.Sub(last) < d.windowFor(cand.Source)
	if !suppressed {
		d.lastSent[key] = now
	}
	d.mu.Unlock()

	if suppressed {
		d.log.Debug("alert suppressed", "title", cand.Title, "source", cand.Source, "last_sent", last)
		metrics.IncAlertsSuppressed()
		d.audit(ctx, cand, models.AlertHistorySuppressed, now)
		return
	}

	d.log.Warn("ALERT", "title", cand.Title, "message", cand.Message, "source", cand.Source)
	metrics.IncAlertsDispatched()
	d.audit(ctx, cand, models.AlertHistoryDispatched, now)

	notification := Notification{
		Title:     cand.Title,
		Message:   cand.Message,
		Source:    cand.Source,
		Severity:  cand.Severity,
		Timestamp: now,
	}
	for _, ch := range d.channels {
		if err := ch.Sender.Send(ctx, notification); err != nil {
			d.log.Error("notification failed", "channel", ch.Name, "title", cand.Title, "error", err)
			metrics.IncNotificationFailure(ch.Name)
		}
	}
}

func (d *Dispatcher) windowFor(source string) time.Duration {
	if override, ok := d.overrides[source]; ok && override > 0 {
		return override
	}
	return d.window
}

func (d *Dispatcher) audit(ctx context.Context, cand models.AlertCandidate, status models.AlertHistoryStatus, at time.Time) {
	if d.history == nil {
		return
	}
	entry := models.AlertHistoryEntry{
		Identity:  cand.SuppressionKey(),
		Title:     cand.Title,
		Message:   cand.Message,
		Source:    cand.Source,
		Severity:  cand.Severity,
		Status:    status,
		CreatedAt: at,
	}
	if err := d.history.InsertAlertHistory(ctx, entry); err != nil {
		d.log.Error("failed to record alert history", "title", cand.Title, "error", err)
	}
}
