package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
)

type decision string

const (
	decisionAck     decision = "ack"
	decisionRequeue decision = "requeue"
	decisionDrop    decision = "drop"
)

// decide maps an analysis outcome to an acknowledgement. Temporary failures are
// requeued once; a redelivered message that fails again is acknowledged.
func decide(err error, redelivered bool) decision {
	if err == nil || !domain.IsTemporary(err) {
		return decisionAck
	}
	if redelivered {
		return decisionAck
	}
	return decisionRequeue
}

// process runs one analysis. The analysis context survives worker shutdown so the
// pipeline is not cut off between saving and its side effects.
func (w *Worker) process(ctx context.Context, t task) (d decision) {
	logger := w.logger.With(
		slog.String("candidate_id", t.request.CandidateID),
		slog.String("user_id", t.request.UserID),
		slog.String("correlation_id", t.request.CorrelationID),
		slog.Bool("redelivered", t.delivery.Redelivered),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Analysis panicked", slog.String("panic", fmt.Sprint(r)))
			d = decisionDrop
		}
	}()

	runCtx := context.WithoutCancel(ctx)
	if w.analysisTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, w.analysisTimeout)
		defer cancel()
	}

	_, err := w.analyzer.AnalyzeCandidate(runCtx, t.request.SingleRequest())
	d = decide(err, t.delivery.Redelivered)
	if d == decisionRequeue {
		logger.Info("Temporary analysis failure, requeueing", slog.String("kind", string(domain.KindOf(err))))
	}
	return d
}
