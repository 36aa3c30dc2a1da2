package dto

// AnalyzeCandidateRequest is the optional body of the single and async endpoints
type AnalyzeCandidateRequest struct {
	Reanalysis bool `json:"reanalysis"`
}

// BulkAnalyzeRequest is the body of the bulk endpoint
type BulkAnalyzeRequest struct {
	CandidateIDs []string `json:"candidate_ids" binding:"required"`
	Reanalysis   bool     `json:"reanalysis"`
}

// AsyncAcceptedResponse is returned once an analysis is queued
type AsyncAcceptedResponse struct {
	CandidateID   string `json:"candidate_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
}

// ErrorResponse is used for requests rejected before reaching the pipeline
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
