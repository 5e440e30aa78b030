package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// MailSenderOptions configures the system mail channel.
type MailSenderOptions struct {
	// Recipients is a comma-separated list passed to the mail command.
	Recipients string
	// Command is the mail binary, "mail" when empty.
	Command string
	Timeout time.Duration
	Logger  *slog.Logger
}

// MailSender delivers alerts through the host's local mail facility by
// invoking the mail command with a subject line and a plain-text body.
type MailSender struct {
	recipients string
	command    string
	timeout    time.Duration
	logger     *slog.Logger

	// runCommand is swapped out in tests.
	runCommand func(ctx context.Context, command string, args []string, stdin string) error
}

// NewMailSender builds the mail channel.
func NewMailSender(opts MailSenderOptions) *MailSender {
	command := strings.TrimSpace(opts.Command)
	if command == "" {
		command = "mail"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MailSender{
		recipients: strings.TrimSpace(opts.Recipients),
		command:    command,
		timeout:    timeout,
		logger:     logger.With("component", "alert_mail_sender"),
		runCommand: runMailCommand,
	}
}

// Send mails one notification to the configured recipients.
func (s *MailSender) Send(ctx context.Context, n Notification) error {
	if s.recipients == "" {
		return fmt.Errorf("mail channel has no recipients configured")
	}

	subject := fmt.Sprintf("vLLM Alert: %s", n.Title)
	body := fmt.Sprintf("Alert: %s\nDetails: %s\nTime: %s\n",
		n.Title, n.Message, n.Timestamp.Format(time.RFC3339))

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.runCommand(sendCtx, s.command, []string{"-s", subject, s.recipients}, body); err != nil {
		return fmt.Errorf("mail command failed: %w", err)
	}
	return nil
}

func runMailCommand(ctx context.Context, command string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if out, err := cmd.CombinedOutput(); err != nil {
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			return fmt.Errorf("%w: %s", err, trimmed)
		}
		return err
	}
	return nil
}
