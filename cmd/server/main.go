package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Project-Kyra/Project-Kyra/internal/auth"
	"github.com/Project-Kyra/Project-Kyra/internal/config"
	"github.com/Project-Kyra/Project-Kyra/internal/database"
	"github.com/Project-Kyra/Project-Kyra/internal/errors"
	"github.com/Project-Kyra/Project-Kyra/internal/evaluation"
	"github.com/Project-Kyra/Project-Kyra/internal/monitoring"
	"github.com/Project-Kyra/Project-Kyra/internal/ratelimit"
	"github.com/Project-Kyra/Project-Kyra/internal/rubric"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB()
	if err != nil {
		slog.Error("Failed to initialize proposal store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	authService, err := auth.NewService(cfg.Users, cfg.Server.JWTSecret, cfg.Server.SessionTTL())
	if err != nil {
		slog.Error("Failed to initialize identity store", "error", err)
		os.Exit(1)
	}

	engine := evaluation.NewEngine(buildRubric(cfg), cfg.Scoring.CacheTTL())

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()
	limiter := ratelimit.NewLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	r := gin.New()
	r.Use(errors.RecoveryHandler())
	r.Use(monitoring.Middleware(appMetrics, appLogger))
	r.Use(errors.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(limiter.Middleware())

	srv := newServer(cfg, repo, authService, engine, appMetrics, appLogger)
	srv.registerRoutes(r)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "auto_decide", cfg.Scoring.AutoDecide)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// buildRubric maps the scoring configuration onto the rubric
func buildRubric(cfg *config.Config) *rubric.Rubric {
	return &rubric.Rubric{
		Keywords: rubric.KeywordSets{
			Relevance:     cfg.Scoring.RelevanceKeywords,
			Feasibility:   cfg.Scoring.FeasibilityKeywords,
			Impact:        cfg.Scoring.ImpactKeywords,
			Institutional: cfg.Scoring.InstitutionalKeywords,
			Compliance:    cfg.Scoring.ComplianceKeywords,
		},
		Benchmarks: cfg.Scoring.Benchmarks,
		Financial: rubric.FinancialRules{
			BudgetCap:        cfg.Scoring.BudgetCap,
			MilestoneLimit:   cfg.Scoring.MilestoneLimit,
			Penalty:          cfg.Scoring.FinancialPenalty,
			CapMessage:       "Budget exceeds max INR 20 lakhs",
			MilestoneMessage: "First milestone > 40% of total budget",
		},
		Weights: rubric.Weights{
			Relevance:     cfg.Scoring.Weights.Relevance,
			Novelty:       cfg.Scoring.Weights.Novelty,
			Feasibility:   cfg.Scoring.Weights.Feasibility,
			Financial:     cfg.Scoring.Weights.Financial,
			Impact:        cfg.Scoring.Weights.Impact,
			Institutional: cfg.Scoring.Weights.Institutional,
			Compliance:    cfg.Scoring.Weights.Compliance,
		},
		AcceptThreshold:      cfg.Scoring.AcceptThreshold,
		ConditionalThreshold: cfg.Scoring.ConditionalThreshold,
	}
}
