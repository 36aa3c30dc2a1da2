package domain

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Candidate represents an applicant record tied to one job posting
type Candidate struct {
	ID               string          `db:"id"`
	JobID            string          `db:"job_id"`
	UserID           string          `db:"user_id"`
	Status           string          `db:"status"`
	ResumeRef        sql.NullString  `db:"resume_ref"`
	AIScore          sql.NullFloat64 `db:"ai_score"`
	AISummary        sql.NullString  `db:"ai_summary"`
	AIStrengths      pq.StringArray  `db:"ai_strengths"`
	AIWeaknesses     pq.StringArray  `db:"ai_weaknesses"`
	AIRecommendation sql.NullString  `db:"ai_recommendation"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// HasResume reports whether the candidate carries a usable resume reference.
func (c *Candidate) HasResume() bool {
	return c.ResumeRef.Valid && c.ResumeRef.String != ""
}

// Job represents a job posting; its text is the context fed to the AI client
type Job struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	Title        string         `db:"title"`
	Description  sql.NullString `db:"description"`
	Requirements sql.NullString `db:"requirements"`
	Status       string         `db:"status"`
}

// Quota holds a user's AI credit allotment
type Quota struct {
	UserID      string `db:"user_id"`
	AICredits   int    `db:"ai_credits"`
	UsedCredits int    `db:"used_credits"`
}

// Remaining returns the number of credits left, never negative.
func (q *Quota) Remaining() int {
	if q.UsedCredits >= q.AICredits {
		return 0
	}
	return q.AICredits - q.UsedCredits
}

// AnalysisResult is the validated output of one AI analysis
type AnalysisResult struct {
	Score          float64  `json:"score"`
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// ActivityLogEntry is an append-only audit record
type ActivityLogEntry struct {
	UserID       string          `db:"user_id"`
	Action       string          `db:"action"`
	ResourceType string          `db:"resource_type"`
	ResourceID   string          `db:"resource_id"`
	Metadata     json.RawMessage `db:"metadata"`
	CreatedAt    time.Time       `db:"created_at"`
}

// ChangeEvent is broadcast to realtime subscribers after a candidate row changes
type ChangeEvent struct {
	Action      string    `json:"action"`
	CandidateID string    `json:"candidateId"`
	Timestamp   time.Time `json:"timestamp"`
}
