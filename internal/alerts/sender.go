// Package alerts contains the alert dispatcher and its notification
// channels. The dispatcher owns the suppression state; channels are
// stateless and never mutate shared data.
package alerts

import (
	"context"
	"time"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// Notification is a fully resolved alert ready for delivery.
type Notification struct {
	Title     string
	Message   string
	Source    string
	Severity  models.AlertSeverity
	Timestamp time.Time
}

// AlertSender abstracts one notification channel.
type AlertSender interface {
	Send(ctx context.Context, n Notification) error
}
