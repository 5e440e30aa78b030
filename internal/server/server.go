// Package server exposes the monitor's own liveness, Prometheus counters
// and the latest composite record over HTTP.
package server

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/JamesFincher/vllm-server-config/internal/metrics"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// StatusSource provides the recent cycle records kept by the monitor.
type StatusSource interface {
	Latest() (models.CompositeRecord, bool)
	History() []models.CompositeRecord
}

// Options configures the status server.
type Options struct {
	Listen string
	Source StatusSource
	Logger *slog.Logger
}

// Server is the optional status/metrics HTTP endpoint.
type Server struct {
	app    *fiber.App
	listen string
	log    *slog.Logger
}

// New builds the fiber app and its routes.
func New(opts Options) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "vllm-monitor",
	})
	s := &Server{
		app:    app,
		listen: opts.Listen,
		log:    opts.Logger.With("component", "server"),
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		metrics.WritePrometheus(&buf)
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		return c.Send(buf.Bytes())
	})

	app.Get("/api/v1/status", func(c *fiber.Ctx) error {
		latest, ok := opts.Source.Latest()
		if !ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "error",
				"error":  "no health check cycle has completed yet",
			})
		}
		return c.JSON(fiber.Map{
			"status": "success",
			"data":   latest,
		})
	})

	app.Get("/api/v1/status/history", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "success",
			"data":   opts.Source.History(),
		})
	})

	return s
}

// Start begins serving. It blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info("starting status server", "listen", s.listen)
	if err := s.app.Listen(s.listen); err != nil {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server, honoring the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
