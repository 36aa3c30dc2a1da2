// Package analysis orchestrates AI scoring of candidate resumes, one at a time or in bulk.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/activity"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/ai"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/broadcast"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/resume"
	"github.com/cuongbtq/resume-analyzer/internal/metrics"
)

// CandidateStore reads candidates and jobs and writes analysis results
type CandidateStore interface {
	GetCandidate(ctx context.Context, candidateID string) (*domain.Candidate, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	SaveAnalysis(ctx context.Context, candidateID string, result *domain.AnalysisResult) error
}

// QuotaGuard admits analyses against the user's credits
type QuotaGuard interface {
	Admit(ctx context.Context, userID string) error
	Consume(ctx context.Context, userID string) error
}

// RateLimiter throttles requests per user and action
type RateLimiter interface {
	Allow(ctx context.Context, userID, action string) (bool, error)
}

// ResumeFetcher downloads resume files
type ResumeFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Analyzer scores a resume against a job
type Analyzer interface {
	Analyze(ctx context.Context, resume []byte, mimeType, jobText string) (*domain.AnalysisResult, error)
}

// Broadcaster notifies subscribers of candidate changes
type Broadcaster interface {
	Publish(ctx context.Context, topic string, event domain.ChangeEvent) error
}

// ActivityLogger appends audit records
type ActivityLogger interface {
	Append(ctx context.Context, entry *domain.ActivityLogEntry) error
}

// Dependencies are the collaborators a Service needs. All are required.
type Dependencies struct {
	Store       CandidateStore
	Quota       QuotaGuard
	Limiter     RateLimiter
	Resumes     ResumeFetcher
	Analyzer    Analyzer
	Broadcaster Broadcaster
	Activity    ActivityLogger
}

// Config holds orchestration settings
type Config struct {
	BulkConcurrency   int
	SideEffectTimeout time.Duration
}

const (
	DefaultBulkConcurrency   = 5
	DefaultSideEffectTimeout = 5 * time.Second
)

// Service runs the analysis pipeline
type Service struct {
	deps   Dependencies
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new Service
func NewService(deps Dependencies, config Config, logger *slog.Logger) *Service {
	if config.BulkConcurrency <= 0 {
		config.BulkConcurrency = DefaultBulkConcurrency
	}
	if config.SideEffectTimeout <= 0 {
		config.SideEffectTimeout = DefaultSideEffectTimeout
	}
	return &Service{
		deps:   deps,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SubmitSingleAnalysis analyzes one candidate and renders the outcome
func (s *Service) SubmitSingleAnalysis(ctx context.Context, req SingleRequest) SingleResponse {
	result, err := s.AnalyzeCandidate(ctx, req)
	return NewSingleResponse(result, err)
}

// AnalyzeCandidate runs the full pipeline for one candidate. Failures are *domain.Error.
func (s *Service) AnalyzeCandidate(ctx context.Context, req SingleRequest) (*domain.AnalysisResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeSingle
	}

	start := s.now()
	logger := s.logger.With(
		slog.String("candidate_id", req.CandidateID),
		slog.String("user_id", req.UserID),
		slog.String("mode", mode),
	)

	result, err := s.analyze(ctx, req, logger)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = string(kindOrDefault(err))
		logger.Warn("Candidate analysis failed",
			slog.String("kind", outcome),
			slog.Bool("temporary", domain.IsTemporary(err)),
			slog.Any("error", err),
		)
	} else {
		logger.Info("Candidate analysis completed",
			slog.Float64("score", result.Score),
			slog.String("recommendation", result.Recommendation),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	metrics.ObserveAnalysis(mode, outcome, time.Since(start))

	return result, err
}

func (s *Service) analyze(ctx context.Context, req SingleRequest, logger *slog.Logger) (*domain.AnalysisResult, error) {
	candidateID := strings.TrimSpace(req.CandidateID)
	if candidateID == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "Candidate id is required", nil)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.NewError(domain.KindUnauthorized, "Requesting user is unknown", nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, timeoutError(err)
	}

	candidate, job, err := s.authorize(ctx, candidateID, req.UserID)
	if err != nil {
		return nil, err
	}

	if !candidate.HasResume() {
		return nil, domain.NewError(domain.KindMissingResume, "Candidate has no resume on file", nil)
	}

	allowed, err := s.deps.Limiter.Allow(ctx, req.UserID, domain.RateLimitActionAIAnalysis)
	if err != nil {
		// Limiter outages must not block analysis.
		logger.Warn("Rate limiter unavailable, allowing request", slog.Any("error", err))
		allowed = true
	}
	if !allowed {
		return nil, domain.NewError(domain.KindRateLimited, "Too many analysis requests, please retry later", nil)
	}

	if err := s.deps.Quota.Admit(ctx, req.UserID); err != nil {
		if interrupted(ctx, err) {
			return nil, timeoutError(err)
		}
		return nil, err
	}

	data, err := s.deps.Resumes.Fetch(ctx, candidate.ResumeRef.String)
	if err != nil {
		msg := "Failed to fetch resume"
		if errors.Is(err, domain.ErrObjectNotFound) {
			msg = "Resume file not found"
		}
		return nil, failure(ctx, domain.KindFetchError, msg, err)
	}

	mimeType := resume.MimeTypeFor(candidate.ResumeRef.String)
	logger.Debug("Resume fetched",
		slog.Int("bytes", len(data)),
		slog.String("mime_type", mimeType),
	)

	result, err := s.deps.Analyzer.Analyze(ctx, data, mimeType, ai.JobText(job))
	if err != nil {
		if domain.KindOf(err) == "" {
			return nil, failure(ctx, domain.KindPermanentProviderError, "AI analysis failed", err)
		}
		return nil, err
	}

	if err := s.deps.Store.SaveAnalysis(ctx, candidate.ID, result); err != nil {
		return nil, failure(ctx, domain.KindPersistenceError, "Failed to save analysis result", err)
	}

	s.afterSave(ctx, logger, req, candidate, result)

	return result, nil
}

// interrupted reports whether err comes from a canceled or expired context. Drivers do
// not always wrap the context error, so ctx itself is checked too.
func interrupted(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}

// failure builds a typed error of kind, unless err is a context interruption, which is
// reported as a temporary Timeout so the caller can retry.
func failure(ctx context.Context, kind domain.Kind, message string, err error) *domain.Error {
	if interrupted(ctx, err) {
		return timeoutError(err)
	}
	return domain.NewError(kind, message, err)
}

func timeoutError(err error) *domain.Error {
	return domain.NewError(domain.KindTimeout, "Analysis was interrupted before it completed", err)
}

// authorize loads the candidate and its job and checks that userID owns the job.
func (s *Service) authorize(ctx context.Context, candidateID, userID string) (*domain.Candidate, *domain.Job, error) {
	candidate, err := s.deps.Store.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, domain.ErrCandidateNotFound) {
			return nil, nil, domain.NewError(domain.KindNotFound, "Candidate not found", err)
		}
		return nil, nil, failure(ctx, domain.KindPersistenceError, "Failed to load candidate", err)
	}

	job, err := s.deps.Store.GetJob(ctx, candidate.JobID)
	switch {
	case err == nil:
		if job.UserID != userID {
			return nil, nil, domain.NewError(domain.KindUnauthorized, "You do not have access to this candidate", nil)
		}
	case errors.Is(err, domain.ErrJobNotFound):
		// Without a job, fall back to the candidate's owner so strangers still get Unauthorized.
		if candidate.UserID != userID {
			return nil, nil, domain.NewError(domain.KindUnauthorized, "You do not have access to this candidate", nil)
		}
		return nil, nil, domain.NewError(domain.KindInvalidJobContext, "Job for this candidate no longer exists", err)
	default:
		return nil, nil, failure(ctx, domain.KindPersistenceError, "Failed to load job", err)
	}

	if !job.Description.Valid || strings.TrimSpace(job.Description.String) == "" {
		return nil, nil, domain.NewError(domain.KindInvalidJobContext, "Job has no description to analyze against", nil)
	}

	return candidate, job, nil
}

// afterSave runs the broadcast, credit and audit steps. None of them can change the outcome.
func (s *Service) afterSave(ctx context.Context, logger *slog.Logger, req SingleRequest, candidate *domain.Candidate, result *domain.AnalysisResult) {
	s.bestEffort(ctx, logger, "broadcast", func(ctx context.Context) error {
		return s.deps.Broadcaster.Publish(ctx, broadcast.JobTopic(candidate.JobID), domain.ChangeEvent{
			Action:      domain.ChangeActionUpdate,
			CandidateID: candidate.ID,
			Timestamp:   s.now().UTC(),
		})
	})

	s.bestEffort(ctx, logger, "quota", func(ctx context.Context) error {
		return s.deps.Quota.Consume(ctx, req.UserID)
	})

	s.bestEffort(ctx, logger, "activity", func(ctx context.Context) error {
		entry, err := activity.AnalysisEntry(req.UserID, candidate.ID, candidate.JobID, req.Reanalysis, result)
		if err != nil {
			return err
		}
		return s.deps.Activity.Append(ctx, entry)
	})
}

func (s *Service) bestEffort(ctx context.Context, logger *slog.Logger, step string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.SideEffectTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveSideEffectFailure(step)
			logger.Error("Post-analysis step panicked",
				slog.String("step", step),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		metrics.ObserveSideEffectFailure(step)
		logger.Warn("Post-analysis step failed",
			slog.String("step", step),
			slog.Any("error", err),
		)
	}
}
