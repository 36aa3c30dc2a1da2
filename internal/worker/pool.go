package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.String("worker_id", w.workerID),
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop processes tasks until the task channel is closed. It does not watch
// ctx so that an accepted delivery is always settled.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	for t := range w.tasks {
		d := w.process(ctx, t)
		w.logger.Debug("Message settled",
			slog.String("worker_name", workerName),
			slog.String("candidate_id", t.request.CandidateID),
			slog.String("decision", string(d)),
		)
		w.settle(t.delivery, d)
	}
}
