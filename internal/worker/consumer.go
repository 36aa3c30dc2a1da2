package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/resume-analyzer/internal/analysis"
	"github.com/cuongbtq/resume-analyzer/internal/metrics"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// dispatch decodes deliveries and hands them to the pool until ctx is done
func (w *Worker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			req, err := decodeRequest(delivery.Body)
			if err != nil {
				w.logger.Error("Dropping malformed analysis message",
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
					slog.Any("error", err),
				)
				w.settle(delivery, decisionDrop)
				continue
			}

			select {
			case w.tasks <- task{delivery: delivery, request: req}:
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				w.settle(delivery, decisionRequeue)
				return
			}
		}
	}
}

// decodeRequest parses and validates a queue message body
func decodeRequest(body []byte) (analysis.AsyncRequest, error) {
	var req analysis.AsyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid message JSON: %w", err)
	}
	if _, err := uuid.Parse(req.CandidateID); err != nil {
		return req, fmt.Errorf("candidate_id %q is not a UUID", req.CandidateID)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return req, fmt.Errorf("user_id is required")
	}
	return req, nil
}

// settle acknowledges the delivery according to decision
func (w *Worker) settle(delivery amqp.Delivery, d decision) {
	var err error
	switch d {
	case decisionAck:
		err = delivery.Ack(false)
	case decisionRequeue:
		err = delivery.Nack(false, true)
	default:
		err = delivery.Nack(false, false)
	}
	metrics.ObserveDelivery(string(d))

	if err != nil {
		w.logger.Error("Failed to settle message",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.String("decision", string(d)),
			slog.Any("error", err),
		)
	}
}
