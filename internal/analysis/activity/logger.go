// Package activity appends audit entries for completed analyses.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
)

// Store persists activity entries
type Store interface {
	InsertActivity(ctx context.Context, entry *domain.ActivityLogEntry) error
}

// Logger writes analysis audit records
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger creates a new activity Logger
func NewLogger(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Append stores entry, stamping CreatedAt when it is unset
func (l *Logger) Append(ctx context.Context, entry *domain.ActivityLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	if err := l.store.InsertActivity(ctx, entry); err != nil {
		return fmt.Errorf("append activity %s for %s: %w", entry.Action, entry.ResourceID, err)
	}
	return nil
}

// AnalysisEntry builds the audit record for a completed (re)analysis
func AnalysisEntry(userID, candidateID, jobID string, reanalysis bool, result *domain.AnalysisResult) (*domain.ActivityLogEntry, error) {
	action := domain.ActionAIAnalysisCompleted
	if reanalysis {
		action = domain.ActionAIReanalysisCompleted
	}

	var recommendation *string
	if result.Recommendation != "" {
		recommendation = &result.Recommendation
	}

	metadata, err := json.Marshal(struct {
		Score          float64 `json:"score"`
		Recommendation *string `json:"recommendation"`
		JobID          string  `json:"job_id"`
	}{
		Score:          result.Score,
		Recommendation: recommendation,
		JobID:          jobID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal activity metadata: %w", err)
	}

	return &domain.ActivityLogEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: domain.ResourceTypeCandidate,
		ResourceID:   candidateID,
		Metadata:     metadata,
	}, nil
}
