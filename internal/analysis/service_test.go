package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/ai"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID = "user-1"

type fakeStore struct {
	mu         sync.Mutex
	candidates map[string]*domain.Candidate
	jobs       map[string]*domain.Job
	saveErr    error
	readErr    error
	reads      int
	saves      int
}

func (f *fakeStore) GetCandidate(_ context.Context, id string) (*domain.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	c, ok := f.candidates[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	j, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return j, nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, id string, result *domain.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	c := f.candidates[id]
	c.AIScore = sql.NullFloat64{Float64: result.Score, Valid: true}
	c.AISummary = sql.NullString{String: result.Summary, Valid: true}
	c.AIStrengths = result.Strengths
	c.AIWeaknesses = result.Weaknesses
	c.AIRecommendation = sql.NullString{String: result.Recommendation, Valid: result.Recommendation != ""}
	c.Status = domain.CandidateStatusReviewed
	return nil
}

func (f *fakeStore) candidate(id string) domain.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.candidates[id]
}

type fakeQuota struct {
	mu       sync.Mutex
	admitErr error
	admits   int
	consumed int
}

func (f *fakeQuota) Admit(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admits++
	return f.admitErr
}

func (f *fakeQuota) Consume(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed++
	return nil
}

type fakeLimiter struct {
	mu    sync.Mutex
	calls int
	deny  map[int]bool // 1-based call numbers to deny
	err   error
}

func (f *fakeLimiter) Allow(context.Context, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return !f.deny[f.calls], nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7"), nil
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	result *domain.AnalysisResult
	err    error
	calls  int
	mimes  []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte, mimeType, _ string) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mimes = append(f.mimes, mimeType)
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	topics []string
	events []domain.ChangeEvent
	err    error
	panics bool
}

func (f *fakeBroadcaster) Publish(_ context.Context, topic string, event domain.ChangeEvent) error {
	if f.panics {
		panic("broadcaster exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
	return f.err
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []*domain.ActivityLogEntry
	err     error
}

func (f *fakeActivity) Append(_ context.Context, entry *domain.ActivityLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return f.err
}

type harness struct {
	svc         *Service
	store       *fakeStore
	quota       *fakeQuota
	limiter     *fakeLimiter
	fetcher     *fakeFetcher
	analyzer    *fakeAnalyzer
	broadcaster *fakeBroadcaster
	activity    *fakeActivity
}

func (h *harness) collaboratorCalls() int {
	return h.store.reads + h.store.saves + h.quota.admits + h.quota.consumed + h.limiter.calls +
		h.fetcher.calls + h.analyzer.calls + len(h.broadcaster.events) + len(h.activity.entries)
}

func newHarness(t *testing.T, concurrency int) *harness {
	t.Helper()

	h := &harness{
		store: &fakeStore{
			candidates: map[string]*domain.Candidate{},
			jobs: map[string]*domain.Job{
				"job-1": {
					ID:          "job-1",
					UserID:      ownerID,
					Title:       "Backend Engineer",
					Description: sql.NullString{String: "Build Go services", Valid: true},
				},
			},
		},
		quota:       &fakeQuota{},
		limiter:     &fakeLimiter{deny: map[int]bool{}},
		fetcher:     &fakeFetcher{},
		analyzer:    &fakeAnalyzer{result: &domain.AnalysisResult{Score: 85, Summary: "Strong match", Strengths: []string{"Go"}, Weaknesses: []string{}, Recommendation: domain.RecommendationHire}},
		broadcaster: &fakeBroadcaster{},
		activity:    &fakeActivity{},
	}

	h.svc = NewService(Dependencies{
		Store:       h.store,
		Quota:       h.quota,
		Limiter:     h.limiter,
		Resumes:     h.fetcher,
		Analyzer:    h.analyzer,
		Broadcaster: h.broadcaster,
		Activity:    h.activity,
	}, Config{BulkConcurrency: concurrency}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return h
}

func (h *harness) addCandidate(id, resumeRef string) {
	h.store.candidates[id] = &domain.Candidate{
		ID:        id,
		JobID:     "job-1",
		UserID:    ownerID,
		Status:    domain.CandidateStatusPendingReview,
		ResumeRef: sql.NullString{String: resumeRef, Valid: resumeRef != ""},
	}
}

func TestAnalyzeCandidate_Success(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")

	resp := h.svc.SubmitSingleAnalysis(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})

	require.True(t, resp.Success, resp.Message)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 85.0, *resp.Score)
	assert.Equal(t, "Strong match", resp.Summary)

	c := h.store.candidate("cand-1")
	assert.Equal(t, domain.CandidateStatusReviewed, c.Status)
	assert.Equal(t, 85.0, c.AIScore.Float64)
	assert.Equal(t, domain.RecommendationHire, c.AIRecommendation.String)

	require.Len(t, h.broadcaster.events, 1)
	assert.Equal(t, "job:job-1:candidates", h.broadcaster.topics[0])
	assert.Equal(t, domain.ChangeActionUpdate, h.broadcaster.events[0].Action)
	assert.Equal(t, "cand-1", h.broadcaster.events[0].CandidateID)

	require.Len(t, h.activity.entries, 1)
	entry := h.activity.entries[0]
	assert.Equal(t, domain.ActionAIAnalysisCompleted, entry.Action)
	assert.Equal(t, ownerID, entry.UserID)
	assert.Equal(t, "cand-1", entry.ResourceID)
	assert.JSONEq(t, `{"score":85,"recommendation":"HIRE","job_id":"job-1"}`, string(entry.Metadata))

	assert.Equal(t, 1, h.quota.consumed)
	assert.Equal(t, []string{"application/pdf"}, h.analyzer.mimes)
}

func TestAnalyzeCandidate_InvalidOutputLeavesCandidateUntouched(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.docx")
	h.analyzer.err = domain.NewError(domain.KindPermanentProviderError, "Invalid analysis structure", ai.ErrInvalidStructure)

	resp := h.svc.SubmitSingleAnalysis(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})

	assert.False(t, resp.Success)
	assert.Equal(t, "PermanentProviderError", resp.Error)
	assert.Equal(t, "Invalid analysis structure", resp.Message)
	assert.False(t, resp.IsTemporary)
	assert.Nil(t, resp.Score)

	c := h.store.candidate("cand-1")
	assert.Equal(t, domain.CandidateStatusPendingReview, c.Status)
	assert.False(t, c.AIScore.Valid)
	assert.Zero(t, h.store.saves)
	assert.Zero(t, h.quota.consumed)
	assert.Empty(t, h.broadcaster.events)
	assert.Empty(t, h.activity.entries)
	assert.Equal(t, []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, h.analyzer.mimes)
}

func TestAnalyzeCandidate_FailureKinds(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		req       SingleRequest
		wantKind  domain.Kind
		temporary bool
	}{
		{
			name:     "blank candidate id",
			req:      SingleRequest{CandidateID: " ", UserID: ownerID},
			wantKind: domain.KindInvalidArgument,
		},
		{
			name:     "unknown candidate",
			req:      SingleRequest{CandidateID: "nope", UserID: ownerID},
			wantKind: domain.KindNotFound,
		},
		{
			name:     "different owner",
			req:      SingleRequest{CandidateID: "cand-1", UserID: "intruder"},
			wantKind: domain.KindUnauthorized,
		},
		{
			name:     "anonymous",
			req:      SingleRequest{CandidateID: "cand-1"},
			wantKind: domain.KindUnauthorized,
		},
		{
			name: "job without description",
			setup: func(h *harness) {
				h.store.jobs["job-1"].Description = sql.NullString{}
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindInvalidJobContext,
		},
		{
			name: "job deleted",
			setup: func(h *harness) {
				delete(h.store.jobs, "job-1")
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindInvalidJobContext,
		},
		{
			name: "job deleted, stranger",
			setup: func(h *harness) {
				delete(h.store.jobs, "job-1")
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: "intruder"},
			wantKind: domain.KindUnauthorized,
		},
		{
			name: "no resume",
			setup: func(h *harness) {
				h.addCandidate("cand-1", "")
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindMissingResume,
		},
		{
			name: "rate limited",
			setup: func(h *harness) {
				h.limiter.deny[1] = true
			},
			req:       SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind:  domain.KindRateLimited,
			temporary: true,
		},
		{
			name: "quota exhausted",
			setup: func(h *harness) {
				h.quota.admitErr = domain.NewError(domain.KindQuotaExhausted, "AI credit limit reached", nil)
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindQuotaExhausted,
		},
		{
			name: "resume missing in bucket",
			setup: func(h *harness) {
				h.fetcher.err = fmt.Errorf("resume %q: %w", "a.pdf", domain.ErrObjectNotFound)
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindFetchError,
		},
		{
			name: "provider overloaded",
			setup: func(h *harness) {
				h.analyzer.err = domain.NewError(domain.KindTransientProviderError, "busy", nil)
			},
			req:       SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind:  domain.KindTransientProviderError,
			temporary: true,
		},
		{
			name: "untyped analyzer error",
			setup: func(h *harness) {
				h.analyzer.err = errors.New("boom")
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindPermanentProviderError,
		},
		{
			name: "save fails",
			setup: func(h *harness) {
				h.store.saveErr = errors.New("connection reset")
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindPersistenceError,
		},
		{
			name: "save matched no row",
			setup: func(h *harness) {
				h.store.saveErr = domain.ErrNoRowsUpdated
			},
			req:      SingleRequest{CandidateID: "cand-1", UserID: ownerID},
			wantKind: domain.KindPersistenceError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1)
			h.addCandidate("cand-1", "resumes/cand-1.pdf")
			if tt.setup != nil {
				tt.setup(h)
			}

			result, err := h.svc.AnalyzeCandidate(context.Background(), tt.req)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Equal(t, tt.temporary, domain.IsTemporary(err))
			assert.Zero(t, h.quota.consumed)
			assert.Empty(t, h.broadcaster.events)
			assert.Empty(t, h.activity.entries)
		})
	}
}

func TestAnalyzeCandidate_FailedStepsSkipLaterOnes(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")
	h.limiter.deny[1] = true

	_, err := h.svc.AnalyzeCandidate(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})
	require.Error(t, err)

	assert.Zero(t, h.quota.admits)
	assert.Zero(t, h.fetcher.calls)
	assert.Zero(t, h.analyzer.calls)
}

func TestAnalyzeCandidate_LimiterOutageFailsOpen(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")
	h.limiter.err = errors.New("redis: connection refused")

	result, err := h.svc.AnalyzeCandidate(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})
	require.NoError(t, err)
	assert.Equal(t, 85.0, result.Score)
}

func TestAnalyzeCandidate_SideEffectFailuresDoNotChangeOutcome(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")
	h.broadcaster.panics = true
	h.activity.err = errors.New("insert failed")

	result, err := h.svc.AnalyzeCandidate(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})

	require.NoError(t, err)
	assert.Equal(t, 85.0, result.Score)
	assert.Equal(t, 1, h.quota.consumed)
	assert.Len(t, h.activity.entries, 1)
	assert.Equal(t, domain.CandidateStatusReviewed, h.store.candidate("cand-1").Status)
}

func TestAnalyzeCandidate_SideEffectsSurviveCallerCancel(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	var seenErr error
	h.svc.deps.Broadcaster = publishFunc(func(ctx context.Context) error {
		seenErr = ctx.Err()
		return nil
	})
	h.svc.deps.Store = cancelingStore{fakeStore: h.store, cancel: cancel}

	_, err := h.svc.AnalyzeCandidate(ctx, SingleRequest{CandidateID: "cand-1", UserID: ownerID})
	require.NoError(t, err)
	assert.NoError(t, seenErr)
	assert.Equal(t, 1, h.quota.consumed)
}

type publishFunc func(ctx context.Context) error

func (f publishFunc) Publish(ctx context.Context, _ string, _ domain.ChangeEvent) error {
	return f(ctx)
}

// cancelingStore cancels the caller's context right after the result is saved.
type cancelingStore struct {
	*fakeStore
	cancel context.CancelFunc
}

func (s cancelingStore) SaveAnalysis(ctx context.Context, id string, result *domain.AnalysisResult) error {
	err := s.fakeStore.SaveAnalysis(ctx, id, result)
	s.cancel()
	return err
}

// contextStore honors ctx on reads the way a database driver does. If interruptSave is
// set, SaveAnalysis cancels ctx and fails with a driver error that does not wrap it.
type contextStore struct {
	*fakeStore
	interruptSave context.CancelFunc
}

func (s contextStore) GetCandidate(ctx context.Context, id string) (*domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fakeStore.GetCandidate(ctx, id)
}

func (s contextStore) SaveAnalysis(ctx context.Context, id string, result *domain.AnalysisResult) error {
	if s.interruptSave != nil {
		s.interruptSave()
		return errors.New("pq: canceling statement due to user request")
	}
	return s.fakeStore.SaveAnalysis(ctx, id, result)
}

func TestAnalyzeCandidate_InterruptionIsTemporary(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{
			name:  "candidate read deadline",
			setup: func(h *harness) { h.store.readErr = fmt.Errorf("query candidate: %w", context.DeadlineExceeded) },
		},
		{
			name: "quota read deadline",
			setup: func(h *harness) {
				h.quota.admitErr = domain.NewError(domain.KindPersistenceError, "Failed to read quota", context.DeadlineExceeded)
			},
		},
		{
			name:  "resume download canceled",
			setup: func(h *harness) { h.fetcher.err = fmt.Errorf("resume %q: %w", "resumes/cand-1.pdf", context.Canceled) },
		},
		{
			name:  "save deadline",
			setup: func(h *harness) { h.store.saveErr = context.DeadlineExceeded },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1)
			h.addCandidate("cand-1", "resumes/cand-1.pdf")
			tt.setup(h)

			resp := h.svc.SubmitSingleAnalysis(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})

			assert.False(t, resp.Success)
			assert.Equal(t, string(domain.KindTimeout), resp.Error)
			assert.True(t, resp.IsTemporary)
			assert.Zero(t, h.quota.consumed)
			assert.Equal(t, domain.CandidateStatusPendingReview, h.store.candidate("cand-1").Status)
		})
	}
}

func TestAnalyzeCandidate_CanceledDuringSaveIsTemporary(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.svc.deps.Store = contextStore{fakeStore: h.store, interruptSave: cancel}

	_, err := h.svc.AnalyzeCandidate(ctx, SingleRequest{CandidateID: "cand-1", UserID: ownerID})

	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
	assert.True(t, domain.IsTemporary(err))
	assert.Empty(t, h.broadcaster.events)
}

func TestSubmitBulkAnalysis_ExpiredContextIsTemporary(t *testing.T) {
	h := newHarness(t, 2)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")
	h.addCandidate("cand-2", "resumes/cand-2.pdf")
	h.svc.deps.Store = contextStore{fakeStore: h.store}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	resp, err := h.svc.SubmitBulkAnalysis(ctx, BulkRequest{CandidateIDs: []string{"cand-1", "cand-2"}, UserID: ownerID})
	require.NoError(t, err)

	assert.Equal(t, BulkSummary{Total: 2, Successful: 0, Failed: 2, Temporary: 2}, resp.Summary)
	for _, item := range resp.Results {
		assert.Equal(t, string(domain.KindTimeout), item.Error, item.CandidateID)
		assert.True(t, item.IsTemporary, item.CandidateID)
	}
	assert.Zero(t, h.store.saves)
	assert.Zero(t, h.analyzer.calls)
}

func TestSubmitBulkAnalysis_ReanalysisFlag(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")
	h.addCandidate("cand-2", "resumes/cand-2.pdf")

	resp, err := h.svc.SubmitBulkAnalysis(context.Background(), BulkRequest{
		CandidateIDs: []string{"cand-1", "cand-2"},
		UserID:       ownerID,
		Reanalysis:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Summary.Successful)

	require.Len(t, h.activity.entries, 2)
	for _, entry := range h.activity.entries {
		assert.Equal(t, domain.ActionAIReanalysisCompleted, entry.Action)
	}
}

func TestAnalyzeCandidate_ReanalysisIsIdempotent(t *testing.T) {
	h := newHarness(t, 1)
	h.addCandidate("cand-1", "resumes/cand-1.pdf")

	first, err := h.svc.AnalyzeCandidate(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID})
	require.NoError(t, err)
	afterFirst := h.store.candidate("cand-1")

	second, err := h.svc.AnalyzeCandidate(context.Background(), SingleRequest{CandidateID: "cand-1", UserID: ownerID, Reanalysis: true})
	require.NoError(t, err)
	afterSecond := h.store.candidate("cand-1")

	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, afterSecond)
	require.Len(t, h.activity.entries, 2)
	assert.Equal(t, domain.ActionAIAnalysisCompleted, h.activity.entries[0].Action)
	assert.Equal(t, domain.ActionAIReanalysisCompleted, h.activity.entries[1].Action)
}

func TestSubmitBulkAnalysis_RateLimitedItemIsIsolated(t *testing.T) {
	h := newHarness(t, 1)
	ids := []string{"cand-1", "cand-2", "cand-3"}
	for _, id := range ids {
		h.addCandidate(id, "resumes/"+id+".pdf")
	}
	h.limiter.deny[2] = true

	resp, err := h.svc.SubmitBulkAnalysis(context.Background(), BulkRequest{CandidateIDs: ids, UserID: ownerID})
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	for i, id := range ids {
		assert.Equal(t, id, resp.Results[i].CandidateID)
	}
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "RateLimited", resp.Results[1].Error)
	assert.True(t, resp.Results[1].IsTemporary)
	assert.True(t, resp.Results[2].Success)

	assert.Equal(t, BulkSummary{Total: 3, Successful: 2, Failed: 1, Temporary: 1}, resp.Summary)
	assert.Equal(t, 3, h.limiter.calls)
	assert.Equal(t, domain.CandidateStatusPendingReview, h.store.candidate("cand-2").Status)
}

func TestSubmitBulkAnalysis_MissingResumes(t *testing.T) {
	h := newHarness(t, 4)
	ids := []string{"a", "b", "c", "d", "e", "f"}
	missing := map[string]bool{"b": true, "e": true, "f": true}
	for _, id := range ids {
		ref := "resumes/" + id + ".pdf"
		if missing[id] {
			ref = ""
		}
		h.addCandidate(id, ref)
	}

	resp, err := h.svc.SubmitBulkAnalysis(context.Background(), BulkRequest{CandidateIDs: ids, UserID: ownerID})
	require.NoError(t, err)

	missingCount := 0
	for i, r := range resp.Results {
		assert.Equal(t, ids[i], r.CandidateID)
		if r.Error == string(domain.KindMissingResume) {
			missingCount++
			assert.True(t, missing[r.CandidateID])
			assert.False(t, r.IsTemporary)
		}
	}
	assert.Equal(t, len(missing), missingCount)
	assert.Equal(t, BulkSummary{Total: 6, Successful: 3, Failed: 3}, resp.Summary)
}

func TestSubmitBulkAnalysis_InvalidSize(t *testing.T) {
	for _, n := range []int{0, domain.MaxBulkCandidates + 1} {
		t.Run(fmt.Sprintf("%d ids", n), func(t *testing.T) {
			h := newHarness(t, 5)
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("cand-%d", i)
				h.addCandidate(ids[i], "resumes/x.pdf")
			}

			resp, err := h.svc.SubmitBulkAnalysis(context.Background(), BulkRequest{CandidateIDs: ids, UserID: ownerID})

			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
			assert.Zero(t, h.collaboratorCalls())
		})
	}
}

func TestSubmitBulkAnalysis_MaxSizeConcurrent(t *testing.T) {
	h := newHarness(t, 5)
	ids := make([]string, domain.MaxBulkCandidates)
	for i := range ids {
		ids[i] = fmt.Sprintf("cand-%02d", i)
		h.addCandidate(ids[i], "resumes/"+ids[i]+".pdf")
	}
	// Duplicates are processed as separate items.
	ids[49] = ids[0]

	resp, err := h.svc.SubmitBulkAnalysis(context.Background(), BulkRequest{CandidateIDs: ids, UserID: ownerID})
	require.NoError(t, err)

	assert.Equal(t, BulkSummary{Total: 50, Successful: 50}, resp.Summary)
	for i, r := range resp.Results {
		assert.Equal(t, ids[i], r.CandidateID)
		require.NotNil(t, r.Score)
		assert.Equal(t, 85.0, *r.Score)
	}
	assert.Equal(t, 50, h.analyzer.calls)
	assert.Equal(t, 50, h.limiter.calls)
}

func TestSubmitBulkAnalysis_ScoresStayInRange(t *testing.T) {
	for _, score := range []float64{0, 42.5, 100} {
		h := newHarness(t, 2)
		h.addCandidate("cand-1", "resumes/cand-1.pdf")
		h.analyzer.result.Score = score

		resp, err := h.svc.SubmitBulkAnalysis(context.Background(), BulkRequest{CandidateIDs: []string{"cand-1"}, UserID: ownerID})
		require.NoError(t, err)
		require.NotNil(t, resp.Results[0].Score)
		assert.GreaterOrEqual(t, *resp.Results[0].Score, 0.0)
		assert.LessOrEqual(t, *resp.Results[0].Score, 100.0)
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Dependencies{}, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, DefaultBulkConcurrency, svc.config.BulkConcurrency)
	assert.Equal(t, DefaultSideEffectTimeout, svc.config.SideEffectTimeout)
	assert.WithinDuration(t, time.Now(), svc.now(), time.Second)
}
