package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Scoring ScoringConfig `toml:"scoring"`
	Users   []UserConfig  `toml:"users"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            string   `toml:"port"`
	JWTSecret       string   `toml:"jwt_secret"`
	SessionTTLHours int      `toml:"session_ttl_hours"`
	RateLimitRPS    float64  `toml:"rate_limit_rps"`
	RateLimitBurst  int      `toml:"rate_limit_burst"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

// SessionTTL returns the session lifetime as a duration
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLHours) * time.Hour
}

// ScoringConfig contains the rubric parameters: keyword sets, the
// benchmark corpus used for novelty, financial rules, weights and
// decision thresholds.
type ScoringConfig struct {
	// AutoDecide controls the initial lifecycle state of a submission:
	// true records the computed status immediately, false parks every
	// new proposal at "Submitted" until an evaluator acts.
	AutoDecide bool `toml:"auto_decide"`

	RelevanceKeywords     []string `toml:"relevance_keywords"`
	FeasibilityKeywords   []string `toml:"feasibility_keywords"`
	ImpactKeywords        []string `toml:"impact_keywords"`
	InstitutionalKeywords []string `toml:"institutional_keywords"`
	ComplianceKeywords    []string `toml:"compliance_keywords"`

	Benchmarks []string `toml:"benchmarks"`

	BudgetCap        float64 `toml:"budget_cap"`
	MilestoneLimit   float64 `toml:"milestone_limit"`
	FinancialPenalty float64 `toml:"financial_penalty"`

	Weights WeightsConfig `toml:"weights"`

	AcceptThreshold      float64 `toml:"accept_threshold"`
	ConditionalThreshold float64 `toml:"conditional_threshold"`

	CacheTTLMinutes int `toml:"cache_ttl_minutes"`
}

// CacheTTL returns the score-cache lifetime as a duration
func (s ScoringConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMinutes) * time.Minute
}

// WeightsConfig contains the per-criterion weights of the overall score
type WeightsConfig struct {
	Relevance     float64 `toml:"relevance"`
	Novelty       float64 `toml:"novelty"`
	Feasibility   float64 `toml:"feasibility"`
	Financial     float64 `toml:"financial"`
	Impact        float64 `toml:"impact"`
	Institutional float64 `toml:"institutional"`
	Compliance    float64 `toml:"compliance"`
}

// Sum returns the total of all criterion weights
func (w WeightsConfig) Sum() float64 {
	return w.Relevance + w.Novelty + w.Feasibility + w.Financial +
		w.Impact + w.Institutional + w.Compliance
}

// UserConfig describes one entry of the static identity table
type UserConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Role     string `toml:"role"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			JWTSecret:       "change-me-in-production",
			SessionTTLHours: 24,
			RateLimitRPS:    5,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"*"},
		},
		Scoring: ScoringConfig{
			AutoDecide: true,
			RelevanceKeywords: []string{
				"coal mining", "safety", "environmental sustainability",
				"energy efficiency", "automation", "clean coal",
			},
			FeasibilityKeywords: []string{
				"objective", "methodology", "timeline",
				"resources", "expertise", "partnership",
			},
			ImpactKeywords: []string{
				"efficiency", "safety", "environment", "emissions", "clean energy",
			},
			InstitutionalKeywords: []string{
				"track record", "expertise", "facility", "experience",
			},
			ComplianceKeywords: []string{
				"forms", "annexures", "financial details",
				"approval", "ethical", "regulatory",
			},
			Benchmarks: []string{
				"Optimized coal mining using IoT sensors.",
				"Advanced rare earth extraction from coal ash.",
				"AI techniques for predictive maintenance in mines.",
			},
			BudgetCap:        2000000,
			MilestoneLimit:   0.4,
			FinancialPenalty: 50,
			Weights: WeightsConfig{
				Relevance:     0.20,
				Novelty:       0.20,
				Feasibility:   0.20,
				Financial:     0.15,
				Impact:        0.15,
				Institutional: 0.05,
				Compliance:    0.05,
			},
			AcceptThreshold:      70,
			ConditionalThreshold: 50,
			CacheTTLMinutes:      15,
		},
		Users: []UserConfig{
			{Username: "admin", Password: "admin123", Role: "admin"},
			{Username: "company1", Password: "comp123", Role: "company"},
			{Username: "evaluator1", Password: "eval123", Role: "evaluator"},
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults untouched; environment variables PORT and JWT_SECRET override
// the file in either case.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the scoring pipeline relies on
func (c *Config) Validate() error {
	if sum := c.Scoring.Weights.Sum(); math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("rubric weights must sum to 1.0, got %v", sum)
	}
	if c.Scoring.AcceptThreshold <= c.Scoring.ConditionalThreshold {
		return fmt.Errorf("accept threshold (%v) must exceed conditional threshold (%v)",
			c.Scoring.AcceptThreshold, c.Scoring.ConditionalThreshold)
	}
	if c.Scoring.MilestoneLimit <= 0 || c.Scoring.MilestoneLimit > 1 {
		return fmt.Errorf("milestone limit must be in (0, 1], got %v", c.Scoring.MilestoneLimit)
	}
	if c.Scoring.BudgetCap <= 0 {
		return fmt.Errorf("budget cap must be positive, got %v", c.Scoring.BudgetCap)
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("at least one user must be configured")
	}
	for _, u := range c.Users {
		switch u.Role {
		case "admin", "company", "evaluator":
		default:
			return fmt.Errorf("unknown role %q for user %q", u.Role, u.Username)
		}
	}
	return nil
}
