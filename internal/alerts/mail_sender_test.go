package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailSenderInvokesCommand(t *testing.T) {
	var gotCommand string
	var gotArgs []string
	var gotStdin string

	s := NewMailSender(MailSenderOptions{
		Recipients: "ops@example.com",
		Logger:     testLogger(),
	})
	s.runCommand = func(_ context.Context, command string, args []string, stdin string) error {
		gotCommand = command
		gotArgs = args
		gotStdin = stdin
		return nil
	}

	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	err := s.Send(context.Background(), Notification{
		Title:     "CPU Usage High",
		Message:   "CPU usage: 97.2%",
		Timestamp: ts,
	})
	require.NoError(t, err)

	assert.Equal(t, "mail", gotCommand)
	assert.Equal(t, []string{"-s", "vLLM Alert: CPU Usage High", "ops@example.com"}, gotArgs)
	assert.Contains(t, gotStdin, "CPU usage: 97.2%")
	assert.Contains(t, gotStdin, ts.Format(time.RFC3339))
}

func TestMailSenderCommandFailure(t *testing.T) {
	s := NewMailSender(MailSenderOptions{
		Recipients: "ops@example.com",
		Logger:     testLogger(),
	})
	s.runCommand = func(context.Context, string, []string, string) error {
		return errors.New("mail: command not found")
	}

	err := s.Send(context.Background(), Notification{Title: "Disk Usage High"})
	assert.Error(t, err)
}

func TestMailSenderNoRecipients(t *testing.T) {
	s := NewMailSender(MailSenderOptions{Logger: testLogger()})
	err := s.Send(context.Background(), Notification{Title: "Disk Usage High"})
	assert.Error(t, err)
}
