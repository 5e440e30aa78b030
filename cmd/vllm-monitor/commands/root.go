// Package commands provides the CLI command definitions for the health
// monitor.
package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/JamesFincher/vllm-server-config/internal/app"
)

// Styles for CLI output
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// New creates the root CLI command with all subcommands. Invocation with
// no arguments starts the continuous monitoring loop.
func New(version, commit, date string) *cli.Command {
	return &cli.Command{
		Name:    "vllm-monitor",
		Usage:   "Continuous health monitoring for a vLLM serving host",
		Version: version,
		Description: `Monitors API liveness, GPU telemetry, host resources and the serving
   process, raising de-duplicated alerts when configured thresholds are
   breached. Every cycle is appended to a per-day metrics log.

   Run with no arguments to start the monitoring loop, or use
   'vllm-monitor check' for a single cycle.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("VLLM_MONITOR_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			runCommand(version),
			checkCommand(version),
			versionCommand(version, commit, date),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runLoop(ctx, cmd.String("config"), version)
		},
	}
}

// runCommand starts the continuous monitoring loop explicitly.
func runCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the continuous monitoring loop",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runLoop(ctx, cmd.String("config"), version)
		},
	}
}

// checkCommand performs one health-check cycle and prints the resulting
// composite record.
func checkCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "run a single health check cycle and print the result",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := app.New(app.Options{
				ConfigPath: cmd.String("config"),
				Version:    version,
			})
			if err != nil {
				return err
			}
			if err := a.Initialize(ctx); err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(context.Background()) }()

			rec := a.Monitor.RunOnce(ctx)
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render record: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func versionCommand(version, commit, date string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("%s version %s\n", logoStyle.Render("vllm-monitor"), version)
			fmt.Printf("  commit: %s\n", mutedStyle.Render(commit))
			fmt.Printf("  built:  %s\n", mutedStyle.Render(date))
			return nil
		},
	}
}

// runLoop builds the app and blocks until the context is cancelled.
func runLoop(ctx context.Context, configPath, version string) error {
	a, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    version,
	})
	if err != nil {
		return err
	}
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return a.Shutdown(context.Background())
}
