package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cuongbtq/resume-analyzer/internal/analysis"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/cuongbtq/resume-analyzer/internal/api/dto"
	"github.com/cuongbtq/resume-analyzer/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the authenticated caller
	UserIDHeader = "X-User-ID"
	// CorrelationIDKey is the gin context key set by the correlation middleware
	CorrelationIDKey = "correlation_id"
)

// AnalyzeCandidate handles POST /api/v1/candidates/:candidate_id/analysis
func (h *AnalysisHandler) AnalyzeCandidate(c *gin.Context) {
	candidateID, userID, req, ok := h.bindSingle(c)
	if !ok {
		return
	}

	resp := h.service.SubmitSingleAnalysis(c.Request.Context(), analysis.SingleRequest{
		CandidateID: candidateID,
		UserID:      userID,
		Reanalysis:  req.Reanalysis,
		Mode:        analysis.ModeSingle,
	})

	status := http.StatusOK
	if !resp.Success {
		status = StatusForKind(domain.Kind(resp.Error))
	}
	c.JSON(status, resp)
}

// AnalyzeCandidateAsync handles POST /api/v1/candidates/:candidate_id/analysis/async
func (h *AnalysisHandler) AnalyzeCandidateAsync(c *gin.Context) {
	candidateID, userID, req, ok := h.bindSingle(c)
	if !ok {
		return
	}

	correlationID := c.GetString(CorrelationIDKey)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	body, err := json.Marshal(analysis.AsyncRequest{
		CandidateID:   candidateID,
		UserID:        userID,
		Reanalysis:    req.Reanalysis,
		CorrelationID: correlationID,
	})
	if err != nil {
		h.logger.Error("Failed to encode analysis message", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "InternalError"})
		return
	}

	err = h.publisher.PublishWithRetry(c.Request.Context(), rabbitmq.Message{
		Body:          body,
		ContentType:   "application/json",
		MessageID:     uuid.NewString(),
		CorrelationID: correlationID,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue analysis",
			slog.String("candidate_id", candidateID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "QueueUnavailable",
			Message: "Analysis could not be queued, please retry later",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.AsyncAcceptedResponse{
		CandidateID:   candidateID,
		CorrelationID: correlationID,
		Status:        "queued",
	})
}

// AnalyzeBulk handles POST /api/v1/candidates/analysis/bulk
func (h *AnalysisHandler) AnalyzeBulk(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req dto.BulkAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid bulk request body", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.KindInvalidArgument),
			Message: "Request body must contain candidate_ids",
		})
		return
	}

	for i, id := range req.CandidateIDs {
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   string(domain.KindInvalidArgument),
				Message: fmt.Sprintf("candidate_ids[%d] must be a valid UUID", i),
			})
			return
		}
	}

	resp, err := h.service.SubmitBulkAnalysis(c.Request.Context(), analysis.BulkRequest{
		CandidateIDs: req.CandidateIDs,
		UserID:       userID,
		Reanalysis:   req.Reanalysis,
	})
	if err != nil {
		c.JSON(StatusForKind(domain.KindOf(err)), dto.ErrorResponse{
			Error:   string(domain.KindOf(err)),
			Message: domain.ErrorMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindSingle extracts the caller, a UUID candidate id and the optional body
func (h *AnalysisHandler) bindSingle(c *gin.Context) (string, string, dto.AnalyzeCandidateRequest, bool) {
	var req dto.AnalyzeCandidateRequest

	userID, ok := h.requireUser(c)
	if !ok {
		return "", "", req, false
	}

	candidateID := c.Param("candidate_id")
	if _, err := uuid.Parse(candidateID); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.KindInvalidArgument),
			Message: "candidate_id must be a valid UUID",
		})
		return "", "", req, false
	}

	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.KindInvalidArgument),
			Message: "Invalid request body",
		})
		return "", "", req, false
	}

	return candidateID, userID, req, true
}

func (h *AnalysisHandler) requireUser(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   string(domain.KindUnauthorized),
			Message: UserIDHeader + " header is required",
		})
		return "", false
	}
	return userID, true
}

// StatusForKind maps a failure kind to its HTTP status
func StatusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindMissingResume, domain.KindInvalidJobContext:
		return http.StatusUnprocessableEntity
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindQuotaExhausted:
		return http.StatusPaymentRequired
	case domain.KindTransientProviderError:
		return http.StatusServiceUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindFetchError, domain.KindPermanentProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
