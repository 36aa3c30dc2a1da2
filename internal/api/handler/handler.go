package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/resume-analyzer/internal/analysis"
	"github.com/cuongbtq/resume-analyzer/shared/rabbitmq"
)

// AnalysisService is the part of the analysis pipeline the HTTP layer calls
type AnalysisService interface {
	SubmitSingleAnalysis(ctx context.Context, req analysis.SingleRequest) analysis.SingleResponse
	SubmitBulkAnalysis(ctx context.Context, req analysis.BulkRequest) (*analysis.BulkResponse, error)
}

// Publisher enqueues messages for the worker service
type Publisher interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// HealthCheck reports whether one backend is reachable
type HealthCheck = func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Service        AnalysisService
	Publisher      Publisher
	HealthChecks   map[string]HealthCheck
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// AnalysisHandler handles candidate analysis HTTP requests
type AnalysisHandler struct {
	logger    *slog.Logger
	service   AnalysisService
	publisher Publisher
}

// NewAnalysisHandler creates a new AnalysisHandler instance
func NewAnalysisHandler(deps *Dependencies) *AnalysisHandler {
	return &AnalysisHandler{
		logger:    deps.Logger,
		service:   deps.Service,
		publisher: deps.Publisher,
	}
}
