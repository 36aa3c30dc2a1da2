package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"golang.org/x/sync/errgroup"
)

// SubmitBulkAnalysis analyzes every id independently. The returned error is only
// set for a malformed request, in which case no collaborator was called.
func (s *Service) SubmitBulkAnalysis(ctx context.Context, req BulkRequest) (*BulkResponse, error) {
	n := len(req.CandidateIDs)
	if n < domain.MinBulkCandidates || n > domain.MaxBulkCandidates {
		return nil, domain.NewError(domain.KindInvalidArgument,
			fmt.Sprintf("Between %d and %d candidate ids are required, got %d",
				domain.MinBulkCandidates, domain.MaxBulkCandidates, n), nil)
	}

	s.logger.Info("Bulk analysis started",
		slog.String("user_id", req.UserID),
		slog.Int("total", n),
	)

	results := make([]ItemResult, n)

	var g errgroup.Group
	g.SetLimit(s.config.BulkConcurrency)
	for i, candidateID := range req.CandidateIDs {
		g.Go(func() error {
			result, err := s.AnalyzeCandidate(ctx, SingleRequest{
				CandidateID: candidateID,
				UserID:      req.UserID,
				Reanalysis:  req.Reanalysis,
				Mode:        ModeBulk,
			})
			results[i] = newItemResult(candidateID, result, err)
			return nil
		})
	}
	_ = g.Wait()

	summary := BulkSummary{Total: n}
	for _, r := range results {
		switch {
		case r.Success:
			summary.Successful++
		case r.IsTemporary:
			summary.Failed++
			summary.Temporary++
		default:
			summary.Failed++
		}
	}

	s.logger.Info("Bulk analysis finished",
		slog.String("user_id", req.UserID),
		slog.Int("successful", summary.Successful),
		slog.Int("failed", summary.Failed),
		slog.Int("temporary", summary.Temporary),
	)

	return &BulkResponse{Summary: summary, Results: results}, nil
}
