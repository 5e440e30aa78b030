// Package collector implements the four metric probes that feed a health
// check cycle. Each probe folds its own failures into the snapshot it
// returns; no probe error ever aborts a cycle.
package collector

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/JamesFincher/vllm-server-config/internal/config"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

// generationPrompt is the synthetic request used to verify that the model
// actually produces tokens, not just that the HTTP surface is up.
const generationPrompt = "Say 'OK' if you're working."

// APIProbe checks liveness, model listing and a short synthetic generation
// against the serving endpoint.
type APIProbe struct {
	endpoint          string
	model             string
	requestTimeout    time.Duration
	generationTimeout time.Duration
	httpClient        *http.Client
	openai            *openai.Client
	log               *slog.Logger
}

// NewAPIProbe builds an API probe for the configured serving endpoint.
// The models and chat-completions checks go through the OpenAI-compatible
// client; the liveness check hits /health directly.
func NewAPIProbe(cfg config.APIConfig, log *slog.Logger) *APIProbe {
	clientCfg := openai.DefaultConfig(cfg.Key)
	clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/") + "/v1"

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	generationTimeout := cfg.GenerationTimeout
	if generationTimeout <= 0 {
		generationTimeout = 30 * time.Second
	}

	return &APIProbe{
		endpoint:          strings.TrimRight(cfg.Endpoint, "/"),
		model:             cfg.Model,
		requestTimeout:    requestTimeout,
		generationTimeout: generationTimeout,
		httpClient:        &http.Client{Timeout: requestTimeout},
		openai:            openai.NewClientWithConfig(clientCfg),
		log:               log.With("component", "api_probe"),
	}
}

// Collect runs the three sub-checks in order. Network errors, non-2xx
// statuses and timeouts all downgrade the corresponding sub-check instead
// of being raised.
func (p *APIProbe) Collect(ctx context.Context) models.APISnapshot {
	snap := models.APISnapshot{Timestamp: time.Now()}

	snap.Health = p.checkHealth(ctx)
	snap.Models = p.checkModels(ctx)
	snap.Generation = p.checkGeneration(ctx)
	snap.Overall = snap.Health.OK && snap.Models.OK && snap.Generation.OK

	if !snap.Overall {
		p.log.Warn("api health check degraded",
			"health", snap.Health.OK, "models", snap.Models.OK, "generation", snap.Generation.OK)
	}
	return snap
}

func (p *APIProbe) checkHealth(ctx context.Context) models.EndpointCheck {
	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return models.EndpointCheck{Seconds: time.Since(start).Seconds()}
	}
	resp, err := p.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		p.log.Error("health endpoint check failed", "error", err)
		return models.EndpointCheck{Seconds: elapsed}
	}
	defer resp.Body.Close()
	return models.EndpointCheck{OK: resp.StatusCode == http.StatusOK, Seconds: elapsed}
}

func (p *APIProbe) checkModels(ctx context.Context) models.EndpointCheck {
	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	start := time.Now()
	list, err := p.openai.ListModels(reqCtx)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		p.log.Error("models endpoint check failed", "error", err)
		return models.EndpointCheck{Seconds: elapsed}
	}
	// An empty data array means the server is up but serving nothing.
	return models.EndpointCheck{OK: len(list.Models) > 0, Seconds: elapsed}
}

func (p *APIProbe) checkGeneration(ctx context.Context) models.EndpointCheck {
	reqCtx, cancel := context.WithTimeout(ctx, p.generationTimeout)
	defer cancel()

	start := time.Now()
	_, err := p.openai.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: generationPrompt},
		},
		MaxTokens:   5,
		Temperature: 0.1,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		p.log.Error("generation test failed", "error", err)
		return models.EndpointCheck{Seconds: elapsed}
	}
	return models.EndpointCheck{OK: true, Seconds: elapsed}
}
