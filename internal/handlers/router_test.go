package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/queue"
	"github.com/applypilot/applypilot/internal/services"
)

type fakeLLM struct{ resp string }

func (f *fakeLLM) Generate(context.Context, string) (string, error) { return f.resp, nil }
func (f *fakeLLM) ModelName() string                                { return "fake-model" }

type fakeSearcher struct{ postings []jobsearch.Posting }

func (f *fakeSearcher) Search(context.Context, jobsearch.Query) ([]jobsearch.Posting, error) {
	return f.postings, nil
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	llm      *fakeLLM
	searcher *fakeSearcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := zap.NewNop()
	cfg := &config.Config{}
	cfg.Server.CronSecret = "cron-secret"
	cfg.Queue.MaxAttempts = 3

	gen := &fakeLLM{}
	searcher := &fakeSearcher{}

	q := queue.New(db, cfg.Queue, log)
	scheduler := queue.NewScheduler(db, q, log)

	authSvc := services.NewAuthService(db, nil, log)
	profileSvc := services.NewProfileService(db, log)
	jobSvc := services.NewJobService(db, searcher, log)
	matcherSvc := services.NewMatcherService(db, log)
	billingSvc := services.NewBillingService(db, log)
	resumeSvc := services.NewResumeService(db, gen, nil, log)
	applicationSvc := services.NewApplicationService(db, gen, log)
	interviewSvc := services.NewInterviewService(db, gen, log)
	notificationSvc := services.NewNotificationService(db, nil, log)

	router := NewRouter(cfg, log, authSvc, Handlers{
		Auth:          NewAuthHandler(authSvc),
		Profile:       NewProfileHandler(profileSvc),
		Jobs:          NewJobHandler(jobSvc, matcherSvc, profileSvc, q),
		AutoApply:     NewAutoApplyHandler(q, billingSvc),
		Resume:        NewResumeHandler(resumeSvc, billingSvc, q),
		Applications:  NewApplicationHandler(applicationSvc, billingSvc),
		Interview:     NewInterviewHandler(interviewSvc, billingSvc),
		Notifications: NewNotificationHandler(notificationSvc),
		Billing:       NewBillingHandler(billingSvc),
		Cron:          NewCronHandler(scheduler, q),
	})
	return &testServer{router: router, db: db, llm: gen, searcher: searcher}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env),
		"body: %s", rec.Body.String())
	return rec.Code, env
}

func (ts *testServer) registerUser(t *testing.T, email string) string {
	t.Helper()
	status, env := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, status)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	status, env := ts.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestRegisterValidationAndConflict(t *testing.T) {
	ts := newTestServer(t)

	// Bad email and short password are a 400 before any service runs.
	status, env := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "not-an-email", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	ts.registerUser(t, "pat@example.com")
	status, env = ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "pat@example.com", "password": "longenough1",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = ts.do(t, http.MethodGet, "/api/profile", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")

	// No profile yet.
	status, env := ts.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, _ = ts.do(t, http.MethodPut, "/api/profile", token, gin.H{
		"full_name": "Pat Doe", "skills": []string{"Go"}, "remote_only": true,
	})
	assert.Equal(t, http.StatusOK, status)

	status, env = ts.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)
	var profile models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "Pat Doe", profile.FullName)
	assert.True(t, profile.RemoteOnly)
}

func TestScanEnqueueAndDedupe(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")

	status, env := ts.do(t, http.MethodPost, "/api/auto-apply/scan", token, nil)
	assert.Equal(t, http.StatusCreated, status)
	var job models.QueueJob
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, models.JobTypeScan, job.Type)
	assert.Equal(t, models.QueueStatusPending, job.Status)

	// A second request while the first is still queued conflicts.
	status, env = ts.do(t, http.MethodPost, "/api/auto-apply/scan", token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestScanConflictDoesNotConsumeQuota(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")

	status, _ := ts.do(t, http.MethodPost, "/api/auto-apply/scan", token, nil)
	require.Equal(t, http.StatusCreated, status)

	// Hammering the endpoint while the scan is queued only ever conflicts.
	limit := services.QuotaFor(models.PlanFree, models.FeatureScan)
	for i := 0; i < limit; i++ {
		status, env := ts.do(t, http.MethodPost, "/api/auto-apply/scan", token, nil)
		require.Equal(t, http.StatusConflict, status)
		require.Equal(t, "CONFLICT", env.Error.Code)
	}

	// Only the accepted scan counted against the monthly limit.
	status, env := ts.do(t, http.MethodGet, "/api/billing/usage", token, nil)
	require.Equal(t, http.StatusOK, status)
	var usage struct {
		Features []services.FeatureUsage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &usage))
	for _, f := range usage.Features {
		if f.Feature == models.FeatureScan {
			assert.Equal(t, 1, f.Used)
		}
	}
}

func TestQueueStatusAndActions(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")

	_, env := ts.do(t, http.MethodPost, "/api/auto-apply/scan", token, nil)
	var queued models.QueueJob
	require.NoError(t, json.Unmarshal(env.Data, &queued))

	status, env := ts.do(t, http.MethodGet, "/api/jobs/queue/status", token, nil)
	assert.Equal(t, http.StatusOK, status)
	var out struct {
		Counts map[string]int64  `json:"counts"`
		Recent []models.QueueJob `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.EqualValues(t, 1, out.Counts[models.QueueStatusPending])
	require.Len(t, out.Recent, 1)

	// Cancel the pending row through the action endpoint.
	status, env = ts.do(t, http.MethodPost, "/api/jobs/queue/status", token, gin.H{
		"job_id": queued.ID, "action": "cancel",
	})
	assert.Equal(t, http.StatusOK, status)
	var canceled models.QueueJob
	require.NoError(t, json.Unmarshal(env.Data, &canceled))
	assert.Equal(t, models.QueueStatusFailed, canceled.Status)

	// Unknown action fails request binding.
	status, env = ts.do(t, http.MethodPost, "/api/jobs/queue/status", token, gin.H{
		"job_id": queued.ID, "action": "pause",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestJobSearchPersistsResults(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")
	ts.searcher.postings = []jobsearch.Posting{
		{ID: "1", Source: "board", Title: "Backend Engineer", Company: "Acme"},
	}

	status, env := ts.do(t, http.MethodPost, "/api/jobs/search", token, gin.H{
		"keywords": "go backend",
	})
	assert.Equal(t, http.StatusOK, status)
	var jobs []models.Job
	require.NoError(t, json.Unmarshal(env.Data, &jobs))
	require.Len(t, jobs, 1)

	status, env = ts.do(t, http.MethodGet, "/api/jobs", token, nil)
	assert.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &jobs))
	assert.Len(t, jobs, 1)
}

func TestCoverLetterQuotaExhaustion(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")
	ts.llm.resp = "Dear team,"

	// Seed a job and a resume directly; the endpoint under test is the quota.
	job := models.Job{Source: "board", ExternalID: "q1", Title: "Backend Engineer"}
	require.NoError(t, ts.db.Create(&job).Error)
	var user models.User
	require.NoError(t, ts.db.First(&user).Error)
	require.NoError(t, ts.db.Create(&models.StructuredResume{
		UserID: user.ID, Title: "main", Content: []byte(`{"basics": {"name": "Pat"}}`),
	}).Error)

	limit := services.QuotaFor(models.PlanFree, models.FeatureCoverLetter)
	for i := 0; i < limit; i++ {
		status, _ := ts.do(t, http.MethodPost, "/api/ai/generate-cover-letter", token, gin.H{"job_id": job.ID})
		require.Equal(t, http.StatusOK, status)
	}

	status, env := ts.do(t, http.MethodPost, "/api/ai/generate-cover-letter", token, gin.H{"job_id": job.ID})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "QUOTA_EXCEEDED", env.Error.Code)
}

func TestResumeCustomizeEnqueuesJob(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")

	job := models.Job{Source: "board", ExternalID: "c1", Title: "Backend Engineer"}
	require.NoError(t, ts.db.Create(&job).Error)

	status, env := ts.do(t, http.MethodPost, "/api/resume/customize", token, gin.H{"job_id": job.ID})
	assert.Equal(t, http.StatusCreated, status)
	var queued models.QueueJob
	require.NoError(t, json.Unmarshal(env.Data, &queued))
	assert.Equal(t, models.JobTypeCustomizeResume, queued.Type)
	assert.EqualValues(t, job.ID, queued.Payload["job_id"])
}

func TestCronEndpointsRequireSecret(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/api/cron/cleanup", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = ts.do(t, http.MethodPost, "/api/cron/cleanup", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = ts.do(t, http.MethodPost, "/api/cron/cleanup", "cron-secret", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestInterviewFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "pat@example.com")

	ts.llm.resp = `{"questions": ["Q1", "Q2"]}`
	status, env := ts.do(t, http.MethodPost, "/api/interview/start", token, gin.H{"role": "Backend Engineer"})
	require.Equal(t, http.StatusCreated, status)
	var session models.InterviewSession
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.Len(t, session.Questions, 2)

	ts.llm.resp = `{"score": 9, "feedback": "great"}`
	status, env = ts.do(t, http.MethodPost, "/api/interview/submit-answer", token, gin.H{
		"session_id": session.ID, "question_id": session.Questions[0].ID, "answer": "my answer",
	})
	require.Equal(t, http.StatusOK, status)

	status, env = ts.do(t, http.MethodPost,
		"/api/interview/"+strconv.FormatUint(uint64(session.ID), 10)+"/finish", token, nil)
	require.Equal(t, http.StatusOK, status)
	var finished models.InterviewSession
	require.NoError(t, json.Unmarshal(env.Data, &finished))
	assert.Equal(t, models.InterviewStatusCompleted, finished.Status)
}
