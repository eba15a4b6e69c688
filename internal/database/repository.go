package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Project-Kyra/Project-Kyra/internal/budget"
	"github.com/Project-Kyra/Project-Kyra/internal/rubric"
)

var (
	// ErrProposalNotFound is returned for unknown proposal IDs
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrNotAssigned is returned when an evaluator reviews a proposal
	// assigned to someone else
	ErrNotAssigned = errors.New("proposal is not assigned to this evaluator")
	// ErrTerminalStatus is returned when a review targets a proposal
	// already in a terminal status
	ErrTerminalStatus = errors.New("proposal is already in a terminal status")
)

// Repository provides data access for proposals and reviews
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new proposal and fills in its session-scoped ID and
// timestamps.
func (r *Repository) Insert(p *Proposal) error {
	budgetJSON, err := json.Marshal(p.Budget)
	if err != nil {
		return fmt.Errorf("failed to encode budget: %w", err)
	}
	scoresJSON, err := json.Marshal(p.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}

	stmt, err := r.db.stmt("insert_proposal")
	if err != nil {
		return err
	}

	now := time.Now()
	res, err := stmt.Exec(p.Submitter, p.Title, p.Text, string(budgetJSON),
		string(scoresJSON), string(p.Status), p.Evaluator, p.EvalComment, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read proposal id: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now

	return nil
}

// GetByID fetches one proposal
func (r *Repository) GetByID(id int64) (*Proposal, error) {
	stmt, err := r.db.stmt("get_proposal")
	if err != nil {
		return nil, err
	}

	p, err := scanProposal(stmt.QueryRow(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProposalNotFound
	}
	return p, err
}

// ListAll returns every proposal in submission order
func (r *Repository) ListAll() ([]Proposal, error) {
	return r.list("list_all")
}

// ListBySubmitter returns the proposals a company user submitted
func (r *Repository) ListBySubmitter(submitter string) ([]Proposal, error) {
	return r.list("list_by_submitter", submitter)
}

// ListByEvaluator returns the proposals assigned to an evaluator
func (r *Repository) ListByEvaluator(evaluator string) ([]Proposal, error) {
	return r.list("list_by_evaluator", evaluator)
}

func (r *Repository) list(stmtName string, args ...interface{}) ([]Proposal, error) {
	stmt, err := r.db.stmt(stmtName)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	proposals := []Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}

	return proposals, rows.Err()
}

// RecordReview applies an evaluator decision: status and comment change
// together, nothing else ever does. Terminal proposals cannot be
// reviewed again; conditional ones can.
func (r *Repository) RecordReview(id int64, evaluator string, status rubric.Status, comment string) (*Proposal, error) {
	p, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if p.Evaluator != evaluator {
		return nil, ErrNotAssigned
	}
	if p.Status.Terminal() {
		return nil, ErrTerminalStatus
	}

	now := time.Now()

	updateStmt, err := r.db.stmt("update_review")
	if err != nil {
		return nil, err
	}
	insertStmt, err := r.db.stmt("insert_review")
	if err != nil {
		return nil, err
	}

	// The status update and the audit row land together or not at all.
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Stmt(updateStmt).Exec(string(status), comment, now, id); err != nil {
		return nil, fmt.Errorf("failed to update proposal: %w", err)
	}

	review := NewReview(id, evaluator, status, comment)
	if _, err := tx.Stmt(insertStmt).Exec(review.ID, review.ProposalID, review.Evaluator,
		string(review.Status), review.Comment, review.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to record review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	p.Status = status
	p.EvalComment = comment
	p.UpdatedAt = now

	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner) (*Proposal, error) {
	var (
		p          Proposal
		budgetJSON string
		scoresJSON string
		status     string
	)

	err := row.Scan(&p.ID, &p.Submitter, &p.Title, &p.Text, &budgetJSON,
		&scoresJSON, &status, &p.Evaluator, &p.EvalComment, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(budgetJSON), &p.Budget); err != nil {
		return nil, fmt.Errorf("failed to decode budget: %w", err)
	}
	if err := json.Unmarshal([]byte(scoresJSON), &p.Scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}
	if p.Budget == nil {
		p.Budget = []budget.Row{}
	}
	p.Status = rubric.Status(status)

	return &p, nil
}
