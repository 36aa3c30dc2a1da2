// Package worker consumes queued analysis requests and runs them on a goroutine pool.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/resume-analyzer/internal/analysis"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Analyzer runs the analysis pipeline for one candidate
type Analyzer interface {
	AnalyzeCandidate(ctx context.Context, req analysis.SingleRequest) (*domain.AnalysisResult, error)
}

// Consumer is the queue side of the worker
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Cancel(consumerTag string) error
}

// Config holds worker configuration
type Config struct {
	Logger          *slog.Logger
	Analyzer        Analyzer
	Consumer        Consumer
	WorkerID        string
	Concurrency     int
	AnalysisTimeout time.Duration
}

// task is one decoded delivery waiting for a pool goroutine
type task struct {
	delivery amqp.Delivery
	request  analysis.AsyncRequest
}

// Worker represents the background analysis worker
type Worker struct {
	logger          *slog.Logger
	analyzer        Analyzer
	consumer        Consumer
	workerID        string
	concurrency     int
	analysisTimeout time.Duration
	tasks           chan task
	wg              sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		logger:          cfg.Logger,
		analyzer:        cfg.Analyzer,
		consumer:        cfg.Consumer,
		workerID:        cfg.WorkerID,
		concurrency:     concurrency,
		analysisTimeout: cfg.AnalysisTimeout,
		tasks:           make(chan task),
	}
}

// Start consumes deliveries until ctx is canceled or the delivery channel closes.
// In-flight analyses finish before Start returns.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("analysis_timeout", w.analysisTimeout),
	)

	deliveries, err := w.consumer.Consume(w.workerID)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.dispatch(ctx, deliveries)

	if err := w.consumer.Cancel(w.workerID); err != nil {
		w.logger.Warn("Failed to cancel consumer", slog.Any("error", err))
	}

	close(w.tasks)
	w.wg.Wait()
	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))

	return nil
}
