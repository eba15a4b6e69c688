package main

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Project-Kyra/Project-Kyra/internal/auth"
	"github.com/Project-Kyra/Project-Kyra/internal/budget"
	"github.com/Project-Kyra/Project-Kyra/internal/config"
	"github.com/Project-Kyra/Project-Kyra/internal/database"
	apperrors "github.com/Project-Kyra/Project-Kyra/internal/errors"
	"github.com/Project-Kyra/Project-Kyra/internal/evaluation"
	"github.com/Project-Kyra/Project-Kyra/internal/extract"
	"github.com/Project-Kyra/Project-Kyra/internal/monitoring"
	"github.com/Project-Kyra/Project-Kyra/internal/rubric"
)

// Uploads beyond this size are rejected outright.
const maxUploadBytes = 16 << 20

type server struct {
	cfg     *config.Config
	repo    *database.Repository
	auth    *auth.Service
	engine  *evaluation.Engine
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

func newServer(cfg *config.Config, repo *database.Repository, authService *auth.Service,
	engine *evaluation.Engine, metrics *monitoring.Metrics, logger *monitoring.Logger) *server {
	return &server{
		cfg:     cfg,
		repo:    repo,
		auth:    authService,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)

	r.POST("/auth/login", s.handleLogin)

	authed := r.Group("/", auth.Middleware(s.auth))
	authed.POST("/auth/logout", s.handleLogout)

	proposals := authed.Group("/proposals")
	proposals.POST("", auth.RequireRole(auth.RoleCompany), s.handleSubmit)
	proposals.GET("", s.handleList)
	proposals.GET("/:id", s.handleGet)
	proposals.POST("/:id/review", auth.RequireRole(auth.RoleEvaluator), s.handleReview)
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (s *server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":     s.metrics.GetStats(),
		"score_cache": s.engine.CacheStats(),
	})
}

func (s *server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("username and password are required"))
		return
	}

	session, token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.metrics.IncrementFailedLogins()
		s.logger.AuthLogger("login", req.Username, false)
		apperrors.Abort(c, apperrors.NewUnauthorizedError("invalid credentials"))
		return
	}

	s.metrics.IncrementLogins()
	s.logger.AuthLogger("login", session.Username, true)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"username":   session.Username,
		"role":       session.Role,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *server) handleLogout(c *gin.Context) {
	session, ok := auth.SessionFrom(c)
	if !ok {
		apperrors.Abort(c, apperrors.NewUnauthorizedError("missing session"))
		return
	}

	if err := s.auth.Logout(session.TokenID); err != nil {
		apperrors.Abort(c, apperrors.NewNotFoundError("session not found"))
		return
	}

	s.logger.AuthLogger("logout", session.Username, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *server) handleSubmit(c *gin.Context) {
	session, _ := auth.SessionFrom(c)

	start := time.Now()

	title, text, appErr := s.proposalText(c)
	if appErr != nil {
		apperrors.Abort(c, appErr)
		return
	}

	budgetFile, err := c.FormFile("budget")
	if err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("a budget CSV upload is required"))
		return
	}
	rows, appErr := parseBudgetFile(budgetFile)
	if appErr != nil {
		apperrors.Abort(c, appErr)
		return
	}

	card := s.engine.Evaluate(text, rows)

	// Financial flags are already folded into the score card as
	// non-blocking reasons; the proposal is created regardless.
	status := card.Status
	if !s.cfg.Scoring.AutoDecide {
		status = rubric.StatusSubmitted
	}

	proposal := &database.Proposal{
		Submitter: session.Username,
		Title:     title,
		Text:      text,
		Budget:    rows,
		Scores:    card,
		Status:    status,
		Evaluator: s.auth.DefaultEvaluator(),
	}

	if err := s.repo.Insert(proposal); err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("failed to store proposal", err))
		return
	}

	s.metrics.IncrementSubmissions()
	s.logger.EvaluationLogger(session.Username, len(text), card.Overall, string(status), time.Since(start))

	c.JSON(http.StatusCreated, proposal)
}

// proposalText resolves the submitted document into plain text: either an
// uploaded PDF or title+abstract form fields.
func (s *server) proposalText(c *gin.Context) (title, text string, appErr *apperrors.AppError) {
	if fileHeader, err := c.FormFile("proposal"); err == nil {
		data, err := readUpload(fileHeader)
		if err != nil {
			return "", "", apperrors.NewValidationError("failed to read proposal upload")
		}
		text = extract.PDFText(data)
		if strings.TrimSpace(text) == "" {
			return "", "", apperrors.NewValidationError("could not extract text from the proposal document")
		}
		return strings.TrimSuffix(fileHeader.Filename, ".pdf"), text, nil
	}

	title = strings.TrimSpace(c.PostForm("title"))
	abstract := strings.TrimSpace(c.PostForm("abstract"))
	text = strings.TrimSpace(title + "\n\n" + abstract)
	if text == "" {
		return "", "", apperrors.NewValidationError("provide a proposal PDF or title and abstract fields")
	}
	return title, text, nil
}

func parseBudgetFile(fileHeader *multipart.FileHeader) ([]budget.Row, *apperrors.AppError) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("failed to read budget upload")
	}
	defer file.Close()

	rows, err := budget.ParseCSV(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return rows, nil
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > maxUploadBytes {
		return nil, errors.New("upload too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, maxUploadBytes))
}

func (s *server) handleList(c *gin.Context) {
	session, ok := auth.SessionFrom(c)
	if !ok {
		apperrors.Abort(c, apperrors.NewUnauthorizedError("missing session"))
		return
	}

	proposals, err := session.Role.Scope()(s.repo, session.Username)
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("failed to list proposals", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"count":     len(proposals),
	})
}

func (s *server) handleGet(c *gin.Context) {
	session, ok := auth.SessionFrom(c)
	if !ok {
		apperrors.Abort(c, apperrors.NewUnauthorizedError("missing session"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("proposal id must be an integer"))
		return
	}

	proposal, err := s.repo.GetByID(id)
	if errors.Is(err, database.ErrProposalNotFound) {
		apperrors.Abort(c, apperrors.NewNotFoundError("proposal not found"))
		return
	}
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("failed to load proposal", err))
		return
	}

	if !session.Role.CanView(proposal, session.Username) {
		apperrors.Abort(c, apperrors.NewForbiddenError("proposal is not visible to this user"))
		return
	}

	c.JSON(http.StatusOK, proposal)
}

func (s *server) handleReview(c *gin.Context) {
	session, _ := auth.SessionFrom(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("proposal id must be an integer"))
		return
	}

	var req struct {
		Status  string `json:"status" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("status is required"))
		return
	}

	status := rubric.Status(req.Status)
	if !status.Valid() || status == rubric.StatusSubmitted {
		apperrors.Abort(c, apperrors.NewValidationError("status must be Accepted, Rejected or Conditional Acceptance (Revision Needed)"))
		return
	}

	proposal, err := s.repo.RecordReview(id, session.Username, status, req.Comment)
	switch {
	case errors.Is(err, database.ErrProposalNotFound):
		apperrors.Abort(c, apperrors.NewNotFoundError("proposal not found"))
		return
	case errors.Is(err, database.ErrNotAssigned):
		apperrors.Abort(c, apperrors.NewForbiddenError("proposal is assigned to another evaluator"))
		return
	case errors.Is(err, database.ErrTerminalStatus):
		apperrors.Abort(c, apperrors.NewConflictError("proposal is already in a terminal status"))
		return
	case err != nil:
		apperrors.Abort(c, apperrors.NewInternalError("failed to record review", err))
		return
	}

	s.metrics.IncrementReviews()

	c.JSON(http.StatusOK, proposal)
}
