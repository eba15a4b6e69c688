package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/Project-Kyra/Project-Kyra/internal/budget"
	"github.com/Project-Kyra/Project-Kyra/internal/rubric"
)

// Proposal represents one submitted research proposal. IDs are monotonic
// and 1-based within the running session. Records are append-only: after
// submission only the lifecycle status and evaluator comment ever change.
type Proposal struct {
	ID          int64            `json:"id"`
	Submitter   string           `json:"submitter"`
	Title       string           `json:"title,omitempty"`
	Text        string           `json:"text"`
	Budget      []budget.Row     `json:"budget"`
	Scores      rubric.ScoreCard `json:"scores"`
	Status      rubric.Status    `json:"status"`
	Evaluator   string           `json:"evaluator"`
	EvalComment string           `json:"eval_comment,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Review is the audit record of one evaluator action
type Review struct {
	ID         string        `json:"id"`
	ProposalID int64         `json:"proposal_id"`
	Evaluator  string        `json:"evaluator"`
	Status     rubric.Status `json:"status"`
	Comment    string        `json:"comment"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewReview creates a review record with a generated ID
func NewReview(proposalID int64, evaluator string, status rubric.Status, comment string) *Review {
	return &Review{
		ID:         uuid.New().String(),
		ProposalID: proposalID,
		Evaluator:  evaluator,
		Status:     status,
		Comment:    comment,
		CreatedAt:  time.Now(),
	}
}
