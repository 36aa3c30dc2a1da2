package domain

// Candidate status constants
const (
	CandidateStatusPendingReview = "PENDING_REVIEW"
	CandidateStatusReviewed      = "REVIEWED"
	CandidateStatusShortlisted   = "SHORTLISTED"
	CandidateStatusInterviewed   = "INTERVIEWED"
	CandidateStatusRejected      = "REJECTED"
	CandidateStatusHired         = "HIRED"
)

// AI recommendation constants
const (
	RecommendationHire      = "HIRE"
	RecommendationInterview = "INTERVIEW"
	RecommendationReject    = "REJECT"
)

// Activity log actions and resource types
const (
	ActionAIAnalysisCompleted   = "AI_ANALYSIS_COMPLETED"
	ActionAIReanalysisCompleted = "AI_REANALYSIS_COMPLETED"

	ResourceTypeCandidate = "candidate"
)

// Rate limiter action keys
const (
	RateLimitActionAIAnalysis = "ai_analysis"
)

// Bulk request bounds
const (
	MinBulkCandidates = 1
	MaxBulkCandidates = 50
)

// Change event actions
const (
	ChangeActionUpdate = "update"
)

// ValidRecommendation reports whether r is one of the accepted recommendations.
func ValidRecommendation(r string) bool {
	switch r {
	case RecommendationHire, RecommendationInterview, RecommendationReject:
		return true
	default:
		return false
	}
}
