package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Storage handles the candidate, job, quota and activity tables
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetCandidate retrieves a candidate by ID
func (s *Storage) GetCandidate(ctx context.Context, candidateID string) (*domain.Candidate, error) {
	query := `
		SELECT id, job_id, user_id, status, resume_ref,
		       ai_score, ai_summary, ai_strengths, ai_weaknesses, ai_recommendation,
		       created_at, updated_at
		FROM candidates
		WHERE id = $1
	`

	var candidate domain.Candidate
	if err := s.db.GetContext(ctx, &candidate, query, candidateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, domain.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}

	return &candidate, nil
}

// isInvalidID reports whether postgres rejected the id as malformed uuid text.
// No row can match such an id.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// GetJob retrieves the job posting a candidate applied to
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT id, user_id, title, description, requirements, status
		FROM jobs
		WHERE id = $1
	`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// SaveAnalysis writes every ai_* column and moves the candidate to REVIEWED
// in a single statement, so readers never observe a partial result.
func (s *Storage) SaveAnalysis(ctx context.Context, candidateID string, result *domain.AnalysisResult) error {
	query := `
		UPDATE candidates
		SET ai_score = $1,
		    ai_summary = $2,
		    ai_strengths = $3,
		    ai_weaknesses = $4,
		    ai_recommendation = $5,
		    status = $6,
		    updated_at = NOW()
		WHERE id = $7
	`

	recommendation := sql.NullString{String: result.Recommendation, Valid: result.Recommendation != ""}

	res, err := s.db.ExecContext(ctx, query,
		result.Score,
		result.Summary,
		nonNilArray(result.Strengths),
		nonNilArray(result.Weaknesses),
		recommendation,
		domain.CandidateStatusReviewed,
		candidateID,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNoRowsUpdated
	}

	s.logger.Debug("Analysis saved",
		slog.String("candidate_id", candidateID),
		slog.Float64("score", result.Score),
	)

	return nil
}

// GetQuota retrieves a user's AI credit allotment
func (s *Storage) GetQuota(ctx context.Context, userID string) (*domain.Quota, error) {
	query := `
		SELECT user_id, ai_credits, used_credits
		FROM user_quotas
		WHERE user_id = $1
	`

	var quota domain.Quota
	if err := s.db.GetContext(ctx, &quota, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuotaNotFound
		}
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	return &quota, nil
}

// IncrementUsedCredits adds one used credit. The increment happens in SQL;
// it is not coordinated with the admission check.
func (s *Storage) IncrementUsedCredits(ctx context.Context, userID string) error {
	query := `
		UPDATE user_quotas
		SET used_credits = used_credits + 1,
		    updated_at = NOW()
		WHERE user_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to increment used credits: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrQuotaNotFound
	}

	return nil
}

// InsertActivity appends an audit entry
func (s *Storage) InsertActivity(ctx context.Context, entry *domain.ActivityLogEntry) error {
	query := `
		INSERT INTO activity_logs (user_id, action, resource_type, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	metadata := []byte(entry.Metadata)
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}

	return nil
}

func nonNilArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}
