package rubric

import "math"

// Status is the decision attached to a proposal.
type Status string

const (
	StatusSubmitted   Status = "Submitted"
	StatusAccepted    Status = "Accepted"
	StatusConditional Status = "Conditional Acceptance (Revision Needed)"
	StatusRejected    Status = "Rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusAccepted, StatusConditional, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether a proposal in this status can no longer be
// revised. Conditional acceptance is deliberately not terminal.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Weights is the fixed linear-combination vector for the seven
// sub-scores. It must sum to 1.0.
type Weights struct {
	Relevance     float64 `json:"relevance"`
	Novelty       float64 `json:"novelty"`
	Feasibility   float64 `json:"feasibility"`
	Financial     float64 `json:"financial"`
	Impact        float64 `json:"impact"`
	Institutional float64 `json:"institutional"`
	Compliance    float64 `json:"compliance"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Relevance + w.Novelty + w.Feasibility + w.Financial +
		w.Impact + w.Institutional + w.Compliance
}

// ScoreCard holds the seven sub-scores, the overall weighted score, the
// derived status and any human-readable reasons. All scores are in
// [0, 100] and rounded to two decimals.
type ScoreCard struct {
	Relevance     float64  `json:"relevance"`
	Novelty       float64  `json:"novelty"`
	Feasibility   float64  `json:"feasibility"`
	Financial     float64  `json:"financial"`
	Impact        float64  `json:"impact"`
	Institutional float64  `json:"institutional"`
	Compliance    float64  `json:"compliance"`
	Overall       float64  `json:"overall"`
	Status        Status   `json:"status"`
	Reasons       []string `json:"reasons"`
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
