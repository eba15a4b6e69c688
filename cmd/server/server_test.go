package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Kyra/Project-Kyra/internal/auth"
	"github.com/Project-Kyra/Project-Kyra/internal/config"
	"github.com/Project-Kyra/Project-Kyra/internal/database"
	"github.com/Project-Kyra/Project-Kyra/internal/errors"
	"github.com/Project-Kyra/Project-Kyra/internal/evaluation"
	"github.com/Project-Kyra/Project-Kyra/internal/monitoring"
)

const acceptableText = "Our objective is clean coal mining safety with environmental " +
	"sustainability, energy efficiency and automation. The methodology and timeline rely " +
	"on available resources, in-house expertise and an industry partnership. Expected " +
	"impact: efficiency, safety, environment, emissions, clean energy. We have a strong " +
	"track record, a dedicated facility and experience. Compliance: forms, annexures, " +
	"financial details, approval, ethical, regulatory."

const healthyBudgetCSV = "Milestone,Amount\nM1,200000\nM2,400000\nM3,400000\n"

func newTestRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Users = append(cfg.Users, config.UserConfig{
		Username: "company2", Password: "comp456", Role: "company",
	})
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	db, err := database.NewDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := database.NewRepository(db)

	authService, err := auth.NewService(cfg.Users, cfg.Server.JWTSecret, cfg.Server.SessionTTL())
	require.NoError(t, err)

	engine := evaluation.NewEngine(buildRubric(cfg), cfg.Scoring.CacheTTL())

	r := gin.New()
	r.Use(errors.RecoveryHandler())
	r.Use(monitoring.Middleware(monitoring.NewMetrics(), monitoring.NewLogger()))
	r.Use(errors.ErrorHandler())

	srv := newServer(cfg, repo, authService, engine, monitoring.NewMetrics(), monitoring.NewLogger())
	srv.registerRoutes(r)

	return r
}

func doRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(router, req)
	require.Equal(t, http.StatusOK, w.Code, "login should succeed: %s", w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	return resp.Token
}

type submission struct {
	title     string
	abstract  string
	budgetCSV string
	pdf       []byte
	noBudget  bool
}

func submit(t *testing.T, router *gin.Engine, token string, sub submission) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if sub.pdf != nil {
		part, err := mw.CreateFormFile("proposal", "proposal.pdf")
		require.NoError(t, err)
		_, err = part.Write(sub.pdf)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("title", sub.title))
		require.NoError(t, mw.WriteField("abstract", sub.abstract))
	}

	if !sub.noBudget {
		part, err := mw.CreateFormFile("budget", "budget.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(sub.budgetCSV))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/proposals", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	return doRequest(router, req)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "score_cache")
}

func TestLoginInvalidCredentials(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "wrong password", body: `{"username":"admin","password":"wrong"}`},
		{name: "unknown user", body: `{"username":"ghost","password":"admin123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := doRequest(router, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "invalid credentials")
		})
	}
}

func TestLoginMissingFields(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"admin"}`))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	router := newTestRouter(t, nil)

	w := submit(t, router, "bogus-token", submission{title: "x", abstract: "y", budgetCSV: healthyBudgetCSV})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitRequiresCompanyRole(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router, "admin", "admin123")

	w := submit(t, router, token, submission{title: "x", abstract: "y", budgetCSV: healthyBudgetCSV})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitHappyPathAccepted(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router, "company1", "comp123")

	w := submit(t, router, token, submission{
		title:     "Smart ventilation",
		abstract:  acceptableText,
		budgetCSV: healthyBudgetCSV,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p database.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "company1", p.Submitter)
	assert.Equal(t, "evaluator1", p.Evaluator)
	assert.Equal(t, 100.0, p.Scores.Relevance)
	assert.Equal(t, 100.0, p.Scores.Financial)
	assert.GreaterOrEqual(t, p.Scores.Overall, 70.0)
	assert.Equal(t, "Accepted", string(p.Status))
	assert.Empty(t, p.Scores.Reasons)

	// IDs are monotonic within the session.
	w = submit(t, router, token, submission{
		title:     "Second proposal",
		abstract:  acceptableText,
		budgetCSV: healthyBudgetCSV,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, int64(2), p.ID)
}

func TestSubmitFinancialFlagsAreNonBlocking(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router, "company1", "comp123")

	// First milestone is 50% of the total: flagged but still created.
	w := submit(t, router, token, submission{
		title:     "Top-heavy budget",
		abstract:  "coal mining safety methodology",
		budgetCSV: "Amount\n50\n50\n",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p database.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 50.0, p.Scores.Financial)
	assert.Contains(t, p.Scores.Reasons, "First milestone > 40% of total budget")
}

func TestSubmitValidationFailures(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router, "company1", "comp123")

	tests := []struct {
		name    string
		sub     submission
		wantMsg string
	}{
		{
			name:    "missing budget upload",
			sub:     submission{title: "x", abstract: "y", noBudget: true},
			wantMsg: "budget CSV",
		},
		{
			name:    "budget without amount column",
			sub:     submission{title: "x", abstract: "y", budgetCSV: "Milestone,Cost\nM1,100\n"},
			wantMsg: "'Amount' column",
		},
		{
			name:    "budget with unparsable row",
			sub:     submission{title: "x", abstract: "y", budgetCSV: "Amount\nabc\n"},
			wantMsg: "unparsable amount",
		},
		{
			name:    "empty title and abstract",
			sub:     submission{title: "", abstract: "", budgetCSV: healthyBudgetCSV},
			wantMsg: "title and abstract",
		},
		{
			name:    "corrupt proposal pdf",
			sub:     submission{pdf: []byte("not a real pdf"), budgetCSV: healthyBudgetCSV},
			wantMsg: "could not extract text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := submit(t, router, token, tt.sub)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
		})
	}

	// No proposal was created by any failed submission.
	w := doRequest(router, authedRequest(http.MethodGet, "/proposals", token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestSubmitManualReviewMode(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.Config) {
		cfg.Scoring.AutoDecide = false
	})
	token := login(t, router, "company1", "comp123")

	w := submit(t, router, token, submission{
		title:     "Needs manual review",
		abstract:  acceptableText,
		budgetCSV: healthyBudgetCSV,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var p database.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Submitted", string(p.Status),
		"manual mode parks new proposals regardless of the computed score")
	assert.Equal(t, "Accepted", string(p.Scores.Status),
		"the computed decision is still recorded on the score card")
}

func authedRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestListScopedByRole(t *testing.T) {
	router := newTestRouter(t, nil)

	company1 := login(t, router, "company1", "comp123")
	company2 := login(t, router, "company2", "comp456")

	for i := 0; i < 2; i++ {
		w := submit(t, router, company1, submission{title: "c1", abstract: acceptableText, budgetCSV: healthyBudgetCSV})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := submit(t, router, company2, submission{title: "c2", abstract: acceptableText, budgetCSV: healthyBudgetCSV})
	require.Equal(t, http.StatusCreated, w.Code)

	listCount := func(token string) int {
		w := doRequest(router, authedRequest(http.MethodGet, "/proposals", token))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Count
	}

	assert.Equal(t, 2, listCount(company1), "companies see only their own proposals")
	assert.Equal(t, 1, listCount(company2))

	admin := login(t, router, "admin", "admin123")
	assert.Equal(t, 3, listCount(admin), "admins see everything")

	evaluator := login(t, router, "evaluator1", "eval123")
	assert.Equal(t, 3, listCount(evaluator), "the sole evaluator is assigned everything")
}

func TestGetProposalVisibility(t *testing.T) {
	router := newTestRouter(t, nil)

	company1 := login(t, router, "company1", "comp123")
	company2 := login(t, router, "company2", "comp456")

	w := submit(t, router, company1, submission{title: "mine", abstract: acceptableText, budgetCSV: healthyBudgetCSV})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusOK,
		doRequest(router, authedRequest(http.MethodGet, "/proposals/1", company1)).Code)
	assert.Equal(t, http.StatusForbidden,
		doRequest(router, authedRequest(http.MethodGet, "/proposals/1", company2)).Code,
		"other companies cannot read the proposal")
	assert.Equal(t, http.StatusNotFound,
		doRequest(router, authedRequest(http.MethodGet, "/proposals/99", company1)).Code)
	assert.Equal(t, http.StatusBadRequest,
		doRequest(router, authedRequest(http.MethodGet, "/proposals/abc", company1)).Code)
}

func reviewRequest(token string, id int, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/proposals/%d/review", id), bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestReviewLifecycle(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.Config) {
		cfg.Scoring.AutoDecide = false
	})

	company := login(t, router, "company1", "comp123")
	w := submit(t, router, company, submission{title: "p", abstract: acceptableText, budgetCSV: healthyBudgetCSV})
	require.Equal(t, http.StatusCreated, w.Code)

	evaluator := login(t, router, "evaluator1", "eval123")

	// Companies cannot review.
	w = doRequest(router, reviewRequest(company, 1, `{"status":"Accepted","comment":"self-approval"}`))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A conditional decision can be revised again.
	w = doRequest(router, reviewRequest(evaluator, 1,
		`{"status":"Conditional Acceptance (Revision Needed)","comment":"rework the budget"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p database.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Conditional Acceptance (Revision Needed)", string(p.Status))
	assert.Equal(t, "rework the budget", p.EvalComment)

	// Terminal decision.
	w = doRequest(router, reviewRequest(evaluator, 1, `{"status":"Accepted","comment":"budget fixed"}`))
	require.Equal(t, http.StatusOK, w.Code)

	// No transition out of a terminal status.
	w = doRequest(router, reviewRequest(evaluator, 1, `{"status":"Rejected","comment":"changed my mind"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	// The company sees the evaluator's decision and comment.
	w = doRequest(router, authedRequest(http.MethodGet, "/proposals/1", company))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Accepted", string(p.Status))
	assert.Equal(t, "budget fixed", p.EvalComment)
}

func TestReviewValidation(t *testing.T) {
	router := newTestRouter(t, nil)

	company := login(t, router, "company1", "comp123")
	w := submit(t, router, company, submission{title: "p", abstract: "some text", budgetCSV: healthyBudgetCSV})
	require.Equal(t, http.StatusCreated, w.Code)

	evaluator := login(t, router, "evaluator1", "eval123")

	w = doRequest(router, reviewRequest(evaluator, 1, `{"status":"Maybe"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, reviewRequest(evaluator, 1, `{"status":"Submitted"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code, "a review cannot reset the lifecycle")

	w = doRequest(router, reviewRequest(evaluator, 1, `{"comment":"no status"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, reviewRequest(evaluator, 42, `{"status":"Accepted"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router, "company1", "comp123")

	w := doRequest(router, authedRequest(http.MethodPost, "/auth/logout", token))
	assert.Equal(t, http.StatusOK, w.Code)

	// The token no longer authenticates anything.
	w = doRequest(router, authedRequest(http.MethodGet, "/proposals", token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
