// Package ai scores a resume against a job posting through an inference provider.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/cuongbtq/resume-analyzer/internal/metrics"
	"github.com/cuongbtq/resume-analyzer/internal/retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 2 * time.Second
)

// Error texts that mark a provider failure as worth retrying. Matching is case-sensitive.
var transientMarkers = []string{"503", "overloaded", "rate limit", "RESOURCE_EXHAUSTED"}

// Inferencer sends one document plus an instruction prompt to a model and returns its text output
type Inferencer interface {
	Infer(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
}

// Config holds the client's retry and prompt settings
type Config struct {
	MaxAttempts     int
	BaseBackoff     time.Duration
	MaxJobTextRunes int
}

// Client validates provider output and retries overloaded providers
type Client struct {
	inferencer Inferencer
	config     Config
	logger     *slog.Logger
	sleep      retry.SleepFunc
}

// NewClient creates a new analysis client
func NewClient(inferencer Inferencer, config Config, logger *slog.Logger) *Client {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = DefaultBaseBackoff
	}
	return &Client{
		inferencer: inferencer,
		config:     config,
		logger:     logger,
		sleep:      retry.SleepContext,
	}
}

// IsTransient reports whether a provider error looks like overload or throttling.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Analyze scores resume against jobText.
//
// Invalid model output fails with PermanentProviderError immediately. Transient
// provider errors are retried; when attempts run out the result is a temporary
// TransientProviderError. Every other provider error is permanent.
func (c *Client) Analyze(ctx context.Context, resume []byte, mimeType, jobText string) (*domain.AnalysisResult, error) {
	prompt, err := BuildPrompt(jobText, c.config.MaxJobTextRunes)
	if err != nil {
		return nil, domain.NewError(domain.KindPermanentProviderError, "Failed to build analysis prompt", err)
	}

	policy := retry.Policy{
		MaxAttempts: c.config.MaxAttempts,
		Backoff:     retry.Exponential(c.config.BaseBackoff, 2),
		Retryable: func(err error) bool {
			var typed *domain.Error
			if errors.As(err, &typed) {
				return false
			}
			return IsTransient(err)
		},
		Sleep: c.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Warn("AI provider busy, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
		},
	}

	result, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*domain.AnalysisResult, error) {
		return c.attempt(ctx, attempt, resume, mimeType, prompt)
	})
	if err == nil {
		return result, nil
	}

	var typed *domain.Error
	switch {
	case errors.As(err, &typed):
		return nil, typed
	case retry.IsExhausted(err):
		return nil, domain.NewError(domain.KindTransientProviderError,
			"AI service is temporarily overloaded, please retry later", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, domain.NewError(domain.KindTransientProviderError, "AI analysis was interrupted", err)
	default:
		return nil, domain.NewError(domain.KindPermanentProviderError, "AI service request failed", err)
	}
}

func (c *Client) attempt(ctx context.Context, attempt int, resume []byte, mimeType, prompt string) (*domain.AnalysisResult, error) {
	raw, err := c.inferencer.Infer(ctx, resume, mimeType, prompt)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if IsTransient(err) {
			outcome = metrics.OutcomeTransient
		}
		metrics.ObserveProviderAttempt(outcome)
		return nil, err
	}

	c.logger.Debug("AI provider responded",
		slog.Int("attempt", attempt),
		slog.String("response_preview", truncateForLog(raw)),
	)

	result, err := ParseAnalysis(raw)
	if err != nil {
		metrics.ObserveProviderAttempt(metrics.OutcomeFailed)
		return nil, domain.NewError(domain.KindPermanentProviderError, "Invalid analysis structure", err)
	}

	metrics.ObserveProviderAttempt(metrics.OutcomeSuccess)
	return result, nil
}
