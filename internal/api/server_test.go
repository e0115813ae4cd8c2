package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fmuoria/nexushire/internal/agent"
	"github.com/fmuoria/nexushire/internal/auth"
	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/fmuoria/nexushire/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return storage.ErrDuplicateEmail
		}
	}
	f.nextID++
	user.ID = f.nextID
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

type fakeBatches struct {
	batches []models.ScreeningBatch
	results map[int64][]models.CandidateResult
}

func (f *fakeBatches) ListByUser(_ context.Context, userID int64) ([]models.BatchSummary, error) {
	out := []models.BatchSummary{}
	for i := len(f.batches) - 1; i >= 0; i-- {
		b := f.batches[i]
		if b.UserID == userID {
			out = append(out, models.BatchSummary{ScreeningBatch: b, ResultCount: len(f.results[b.ID])})
		}
	}
	return out, nil
}

func (f *fakeBatches) GetForUser(_ context.Context, batchID, userID int64) (*models.ScreeningBatch, error) {
	for _, b := range f.batches {
		if b.ID == batchID && b.UserID == userID {
			b := b
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeBatches) Results(_ context.Context, batchID int64) ([]models.CandidateResult, error) {
	return f.results[batchID], nil
}

type fakeRunner struct {
	mu    sync.Mutex
	store *progress.MemoryStore
	jobs  []agent.Job
}

func (f *fakeRunner) Start(ctx context.Context, job agent.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.RunID = fmt.Sprintf("run-%d", len(f.jobs)+1)
	f.jobs = append(f.jobs, job)
	if err := f.store.Begin(ctx, job.RunID, job.UserID); err != nil {
		return "", err
	}
	return job.RunID, nil
}

func (f *fakeRunner) Progress() progress.Store {
	return f.store
}

type testServer struct {
	server  *Server
	users   *fakeUsers
	batches *fakeBatches
	runner  *fakeRunner
	tokens  *auth.TokenIssuer
}

func newTestServer(t *testing.T, cfg config.ServerConfig) *testServer {
	t.Helper()

	ts := &testServer{
		users:   newFakeUsers(),
		batches: &fakeBatches{results: map[int64][]models.CandidateResult{}},
		runner:  &fakeRunner{store: progress.NewMemoryStore(progress.DefaultMaxRuns)},
		tokens:  auth.NewTokenIssuer("test-secret", time.Hour),
	}
	srv, err := NewServer(cfg, ts.users, ts.batches, ts.runner, ts.tokens, zap.NewNop())
	require.NoError(t, err)
	ts.server = srv
	return ts
}

// user registers an account directly and returns it with a valid token.
func (ts *testServer) user(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	u := &models.User{Email: email, HashedPassword: hash}
	require.NoError(t, ts.users.Create(context.Background(), u))
	token, err := ts.tokens.Issue(u.ID, u.Email)
	require.NoError(t, err)
	return u, token
}

func (ts *testServer) do(t *testing.T, method, target, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code, resp.Error.Message
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"status":  "ok",
		"message": "NexusHire AI Secure API is running",
	}, decode(t, rec))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	creds := []byte(`{"email":"hr@acme.io","password":"s3cret"}`)

	rec := ts.do(t, http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPost, "/register", "", creds)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := errorCode(t, rec)
	assert.Equal(t, "Email already registered", msg)

	rec = ts.do(t, http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok models.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)

	claims, err := ts.tokens.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "hr@acme.io", claims.Subject)
}

func TestLoginWithFormValues(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	ts.user(t, "hr@acme.io")

	form := url.Values{"email": {"hr@acme.io"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login?email=hr@acme.io&password=pw", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	ts.user(t, "hr@acme.io")

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email":"hr@acme.io","password":"nope"}`},
		{"unknown email", `{"email":"who@acme.io","password":"pw"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/login", "", []byte(tt.body))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			_, msg := errorCode(t, rec)
			assert.Equal(t, "Invalid credentials", msg)
		})
	}
}

func TestRegisterRequiresFields(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodPost, "/register", "", []byte(`{"email":"hr@acme.io"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	u, _ := ts.user(t, "hr@acme.io")
	forged, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue(u.ID, u.Email)
	require.NoError(t, err)
	orphan, err := ts.tokens.Issue(99, "ghost@acme.io")
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", forged, orphan} {
		for _, path := range []string{"/logs", "/results", "/history", "/history/1"} {
			rec := ts.do(t, http.MethodGet, path, token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
		}
	}
}

func TestProcessStartsRun(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	u, token := ts.user(t, "hr@acme.io")

	body := []byte(`{"sheet_link":"https://docs.google.com/spreadsheets/d/abc/edit","role_name":"Data Analyst","use_own_smtp":true,"smtp_config":{"host":"smtp.acme.io","port":"587","user":"u","password":"p"}}`)
	rec := ts.do(t, http.MethodPost, "/process", token, body)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "started", resp["status"])
	assert.Equal(t, "run-1", resp["run_id"])

	require.Len(t, ts.runner.jobs, 1)
	job := ts.runner.jobs[0]
	assert.Equal(t, u.ID, job.UserID)
	assert.Equal(t, "Data Analyst", job.Request.RoleName)
	assert.True(t, job.Request.UseOwnSMTP)
	require.NotNil(t, job.Request.SMTPConfig)
	assert.Equal(t, 587, job.Request.SMTPConfig.Port)
}

func TestProcessValidatesBody(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	_, token := ts.user(t, "hr@acme.io")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing sheet link", `{"role_name":"Analyst"}`, "VALIDATION_FAILED"},
		{"empty sheet link", `{"sheet_link":""}`, "VALIDATION_FAILED"},
		{"wrong type", `{"sheet_link":"x","use_own_smtp":"yes"}`, "VALIDATION_FAILED"},
		{"non numeric port", `{"sheet_link":"x","smtp_config":{"port":"abc"}}`, "VALIDATION_FAILED"},
		{"malformed json", `{"sheet_link":`, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/process", token, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			code, _ := errorCode(t, rec)
			assert.Equal(t, tt.code, code)
		})
	}
	assert.Empty(t, ts.runner.jobs)
}

func TestLogsAndResultsAreRunScoped(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	alice, aliceToken := ts.user(t, "alice@acme.io")
	_, bobToken := ts.user(t, "bob@acme.io")
	ctx := context.Background()
	store := ts.runner.store

	require.NoError(t, store.Begin(ctx, "first", alice.ID))
	require.NoError(t, store.Append(ctx, "first", "[09:00:00] old run"))
	require.NoError(t, store.Begin(ctx, "second", alice.ID))
	require.NoError(t, store.Append(ctx, "second", "[09:05:00] new run"))
	require.NoError(t, store.AddResult(ctx, "second", models.ResultEntry{Email: "a@x.io", Status: models.StatusEligible}))

	rec := ts.do(t, http.MethodGet, "/logs", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"run_id": "second",
		"logs":   []interface{}{"[09:05:00] new run"},
	}, decode(t, rec))

	rec = ts.do(t, http.MethodGet, "/logs?run_id=first", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"[09:00:00] old run"}, decode(t, rec)["logs"])

	rec = ts.do(t, http.MethodGet, "/results", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"email": "a@x.io", "status": models.StatusEligible},
	}, decode(t, rec)["results"])

	rec = ts.do(t, http.MethodGet, "/logs?run_id=second", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/results?run_id=unknown", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogsWithoutRuns(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	_, token := ts.user(t, "hr@acme.io")

	rec := ts.do(t, http.MethodGet, "/logs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["logs"])

	rec = ts.do(t, http.MethodGet, "/results", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["results"])
}

func seedHistory(ts *testServer, owner int64) {
	created := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	ts.batches.batches = []models.ScreeningBatch{
		{ID: 1, UserID: owner, CompanyName: "Acme", RoleName: "Analyst", CreatedAt: created},
		{ID: 2, UserID: owner, CompanyName: "Acme", RoleName: "Engineer", CreatedAt: created.Add(time.Hour)},
	}
	ts.batches.results[1] = []models.CandidateResult{
		{ID: 1, BatchID: 1, Email: "a@x.io", Status: models.StatusEligible},
		{ID: 2, BatchID: 1, Email: "b@x.io", Status: models.StatusNotEligible},
	}
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	alice, token := ts.user(t, "alice@acme.io")
	seedHistory(ts, alice.ID)

	rec := ts.do(t, http.MethodGet, "/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		History []models.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, int64(2), resp.History[0].ID)
	assert.Equal(t, models.HistoryEntry{ID: 1, Company: "Acme", Role: "Analyst", Date: "2025-03-04 10:30", Count: 2}, resp.History[1])
}

func TestBatchDetail(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	alice, aliceToken := ts.user(t, "alice@acme.io")
	_, bobToken := ts.user(t, "bob@acme.io")
	seedHistory(ts, alice.ID)

	rec := ts.do(t, http.MethodGet, "/history/1", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.BatchDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, models.BatchDetail{
		Company: "Acme",
		Role:    "Analyst",
		Results: []models.ResultEntry{
			{Email: "a@x.io", Status: models.StatusEligible},
			{Email: "b@x.io", Status: models.StatusNotEligible},
		},
	}, detail)

	rec = ts.do(t, http.MethodGet, "/history/1", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, msg := errorCode(t, rec)
	assert.Equal(t, "Batch not found", msg)

	rec = ts.do(t, http.MethodGet, "/history/abc", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/history/42", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchDetailWithoutResults(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	alice, token := ts.user(t, "alice@acme.io")
	seedHistory(ts, alice.ID)

	rec := ts.do(t, http.MethodGet, "/history/2", token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["results"])
}

func TestExportBatch(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	alice, token := ts.user(t, "alice@acme.io")
	seedHistory(ts, alice.ID)

	rec := ts.do(t, http.MethodGet, "/history/1/export", token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Acme_Analyst.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	email, err := f.GetCellValue("Candidates", "B2")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", email)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/", "", nil).Code)
	rec := ts.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{CORSOrigin: "https://app.acme.io"})

	rec := ts.do(t, http.MethodOptions, "/process", "", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.acme.io", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})

	rec := ts.do(t, http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
