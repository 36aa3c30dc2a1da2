package analysis

import "github.com/cuongbtq/resume-analyzer/internal/analysis/domain"

// Analysis modes, used as the metrics "mode" label
const (
	ModeSingle = "single"
	ModeBulk   = "bulk"
	ModeAsync  = "async"
)

// SingleRequest asks for one candidate to be analyzed
type SingleRequest struct {
	CandidateID string `json:"candidate_id"`
	UserID      string `json:"user_id"`
	Reanalysis  bool   `json:"reanalysis"`
	Mode        string `json:"-"`
}

// SingleResponse is the caller-facing outcome of one analysis
type SingleResponse struct {
	Success     bool     `json:"success"`
	Score       *float64 `json:"score,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Error       string   `json:"error,omitempty"`
	Message     string   `json:"message,omitempty"`
	IsTemporary bool     `json:"isTemporary,omitempty"`
}

// BulkRequest asks for up to MaxBulkCandidates candidates to be analyzed
type BulkRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
	UserID       string   `json:"user_id"`
	Reanalysis   bool     `json:"reanalysis"`
}

// ItemResult is the outcome for one candidate of a bulk request
type ItemResult struct {
	CandidateID string   `json:"candidateId"`
	Success     bool     `json:"success"`
	Score       *float64 `json:"score,omitempty"`
	Error       string   `json:"error,omitempty"`
	Message     string   `json:"message,omitempty"`
	IsTemporary bool     `json:"isTemporary,omitempty"`
}

// BulkSummary counts bulk outcomes. Temporary failures are also counted in Failed.
type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Temporary  int `json:"temporary"`
}

// BulkResponse holds one result per requested id, in request order
type BulkResponse struct {
	Summary BulkSummary  `json:"summary"`
	Results []ItemResult `json:"results"`
}

// NewSingleResponse renders the outcome of AnalyzeCandidate
func NewSingleResponse(result *domain.AnalysisResult, err error) SingleResponse {
	if err != nil {
		return SingleResponse{
			Success:     false,
			Error:       string(kindOrDefault(err)),
			Message:     domain.ErrorMessage(err),
			IsTemporary: domain.IsTemporary(err),
		}
	}
	score := result.Score
	return SingleResponse{
		Success: true,
		Score:   &score,
		Summary: result.Summary,
	}
}

func newItemResult(candidateID string, result *domain.AnalysisResult, err error) ItemResult {
	r := NewSingleResponse(result, err)
	return ItemResult{
		CandidateID: candidateID,
		Success:     r.Success,
		Score:       r.Score,
		Error:       r.Error,
		Message:     r.Message,
		IsTemporary: r.IsTemporary,
	}
}

// kindOrDefault reports untyped errors as PersistenceError
func kindOrDefault(err error) domain.Kind {
	if kind := domain.KindOf(err); kind != "" {
		return kind
	}
	return domain.KindPersistenceError
}

// AsyncRequest is the queue message for an analysis run by the worker service
type AsyncRequest struct {
	CandidateID   string `json:"candidate_id"`
	UserID        string `json:"user_id"`
	Reanalysis    bool   `json:"reanalysis"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// SingleRequest converts the message into an async-mode pipeline request
func (r AsyncRequest) SingleRequest() SingleRequest {
	return SingleRequest{
		CandidateID: r.CandidateID,
		UserID:      r.UserID,
		Reanalysis:  r.Reanalysis,
		Mode:        ModeAsync,
	}
}
