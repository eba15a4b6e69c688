// Package rubric implements the proposal-scoring core: seven independent
// sub-scores in [0, 100] combined by a fixed weight vector into one
// overall score, a threshold-derived status and human-readable reasons.
// Every function here is pure; the same text and budget always produce
// bit-identical results.
package rubric

import (
	"github.com/Project-Kyra/Project-Kyra/internal/budget"
)

const (
	reasonRequiresRevision = "Requires revision"
	reasonBelowThreshold   = "Score below threshold"
)

// Rubric bundles the scorers and the decision thresholds.
type Rubric struct {
	Keywords   KeywordSets
	Benchmarks []string
	Financial  FinancialRules
	Weights    Weights

	// AcceptThreshold and ConditionalThreshold are closed lower bounds:
	// overall >= accept is Accepted, overall >= conditional is
	// Conditional Acceptance, anything below is Rejected.
	AcceptThreshold      float64
	ConditionalThreshold float64
}

// Evaluate scores a proposal text against a budget table and derives the
// status and reasons. Financial flags are attached as reasons whenever
// the proposal is not fully accepted; otherwise a generic reason is used.
func (r *Rubric) Evaluate(text string, rows []budget.Row) ScoreCard {
	financial, finIssues := r.Financial.Score(rows)

	card := ScoreCard{
		Relevance:     KeywordScore(text, r.Keywords.Relevance),
		Novelty:       NoveltyScore(text, r.Benchmarks),
		Feasibility:   KeywordScore(text, r.Keywords.Feasibility),
		Financial:     financial,
		Impact:        KeywordScore(text, r.Keywords.Impact),
		Institutional: KeywordScore(text, r.Keywords.Institutional),
		Compliance:    KeywordScore(text, r.Keywords.Compliance),
	}

	card.Overall = round2(
		card.Relevance*r.Weights.Relevance +
			card.Novelty*r.Weights.Novelty +
			card.Feasibility*r.Weights.Feasibility +
			card.Financial*r.Weights.Financial +
			card.Impact*r.Weights.Impact +
			card.Institutional*r.Weights.Institutional +
			card.Compliance*r.Weights.Compliance)

	card.Status, card.Reasons = r.decide(card.Overall, finIssues)

	return card
}

// decide maps an overall score and any outstanding financial flags to a
// status and reasons. Thresholds are closed lower bounds.
func (r *Rubric) decide(overall float64, finIssues []string) (Status, []string) {
	switch {
	case overall >= r.AcceptThreshold:
		return StatusAccepted, []string{}
	case overall >= r.ConditionalThreshold:
		return StatusConditional, reasonsOrDefault(finIssues, reasonRequiresRevision)
	default:
		return StatusRejected, reasonsOrDefault(finIssues, reasonBelowThreshold)
	}
}

func reasonsOrDefault(issues []string, fallback string) []string {
	if len(issues) > 0 {
		return issues
	}
	return []string{fallback}
}
