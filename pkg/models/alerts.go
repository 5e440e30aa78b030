package models

import "time"

// AlertSeverity indicates the urgency of an alert candidate.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// ThresholdOperator determines which side of a limit is considered a breach.
type ThresholdOperator string

const (
	// ThresholdExceeds triggers when the observed value is strictly
	// greater than the limit.
	ThresholdExceeds ThresholdOperator = "gt"
	// ThresholdFallsBelow triggers when the observed value is strictly
	// less than the limit.
	ThresholdFallsBelow ThresholdOperator = "lt"
)

// ThresholdRule binds one metric to a numeric limit and a comparison
// direction. Rules are evaluated in a fixed order so candidate ordering is
// reproducible.
type ThresholdRule struct {
	Metric string
	Title  string
	Limit  float64
	Op     ThresholdOperator
}

// Breached reports whether the observed value violates the rule.
func (r ThresholdRule) Breached(value float64) bool {
	switch r.Op {
	case ThresholdExceeds:
		return value > r.Limit
	case ThresholdFallsBelow:
		return value < r.Limit
	default:
		return false
	}
}

// AlertCandidate is produced by the evaluator and consumed immediately by
// the dispatcher. Source is the stable metric identity (for example
// "gpu0.temperature"); together with Title it forms the suppression key,
// so the formatted Message may embed live readings without defeating
// de-duplication.
type AlertCandidate struct {
	Title    string
	Message  string
	Source   string
	Severity AlertSeverity
}

// SuppressionKey returns the identity used for alert de-duplication.
func (c AlertCandidate) SuppressionKey() string {
	return c.Title + "\x00" + c.Source
}

// AlertHistoryStatus records the suppression decision made for a candidate.
type AlertHistoryStatus string

const (
	AlertHistoryDispatched AlertHistoryStatus = "dispatched"
	AlertHistorySuppressed AlertHistoryStatus = "suppressed"
)

// AlertHistoryEntry is one audit row written for every candidate that
// passed through the dispatcher, whether it reached a channel or not.
type AlertHistoryEntry struct {
	ID        int64              `json:"id"`
	Identity  string             `json:"identity"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Source    string             `json:"source"`
	Severity  AlertSeverity      `json:"severity"`
	Status    AlertHistoryStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}
