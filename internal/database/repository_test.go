package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Kyra/Project-Kyra/internal/budget"
	"github.com/Project-Kyra/Project-Kyra/internal/rubric"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := NewDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

func sampleProposal(submitter string) *Proposal {
	return &Proposal{
		Submitter: submitter,
		Title:     "IoT sensors for mine ventilation",
		Text:      "coal mining safety with automation",
		Budget:    []budget.Row{{Amount: 200000}, {Amount: 800000}},
		Scores: rubric.ScoreCard{
			Relevance: 50, Novelty: 80, Feasibility: 33.33, Financial: 100,
			Impact: 40, Institutional: 25, Compliance: 16.67,
			Overall: 58.17, Status: rubric.StatusConditional,
			Reasons: []string{"Requires revision"},
		},
		Status:    rubric.StatusConditional,
		Evaluator: "evaluator1",
	}
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	repo := newTestRepo(t)

	for i := int64(1); i <= 3; i++ {
		p := sampleProposal("company1")
		require.NoError(t, repo.Insert(p))
		assert.Equal(t, i, p.ID, "ids are monotonic and 1-based within the session")
		assert.False(t, p.CreatedAt.IsZero())
	}
}

func TestGetByIDRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	p := sampleProposal("company1")
	require.NoError(t, repo.Insert(p))

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)

	assert.Equal(t, p.Submitter, got.Submitter)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Text, got.Text)
	assert.Equal(t, p.Budget, got.Budget)
	assert.Equal(t, p.Scores, got.Scores)
	assert.Equal(t, p.Status, got.Status)
	assert.Equal(t, p.Evaluator, got.Evaluator)
	assert.Empty(t, got.EvalComment)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestListScopes(t *testing.T) {
	repo := newTestRepo(t)

	a := sampleProposal("company1")
	b := sampleProposal("company2")
	c := sampleProposal("company1")
	c.Evaluator = "evaluator2"

	require.NoError(t, repo.Insert(a))
	require.NoError(t, repo.Insert(b))
	require.NoError(t, repo.Insert(c))

	all, err := repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].ID, "listing preserves submission order")

	mine, err := repo.ListBySubmitter("company1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, err := repo.ListByEvaluator("evaluator1")
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	none, err := repo.ListBySubmitter("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordReview(t *testing.T) {
	repo := newTestRepo(t)

	p := sampleProposal("company1")
	require.NoError(t, repo.Insert(p))

	updated, err := repo.RecordReview(p.ID, "evaluator1", rubric.StatusAccepted, "solid methodology")
	require.NoError(t, err)
	assert.Equal(t, rubric.StatusAccepted, updated.Status)
	assert.Equal(t, "solid methodology", updated.EvalComment)

	// Status and comment persist together.
	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, rubric.StatusAccepted, got.Status)
	assert.Equal(t, "solid methodology", got.EvalComment)
}

func TestRecordReviewWrongEvaluator(t *testing.T) {
	repo := newTestRepo(t)

	p := sampleProposal("company1")
	require.NoError(t, repo.Insert(p))

	_, err := repo.RecordReview(p.ID, "evaluator2", rubric.StatusAccepted, "")
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestRecordReviewTerminalGuard(t *testing.T) {
	repo := newTestRepo(t)

	p := sampleProposal("company1")
	require.NoError(t, repo.Insert(p))

	// Conditional proposals may be revised again.
	_, err := repo.RecordReview(p.ID, "evaluator1", rubric.StatusConditional, "needs budget rework")
	require.NoError(t, err)

	_, err = repo.RecordReview(p.ID, "evaluator1", rubric.StatusRejected, "no improvement")
	require.NoError(t, err)

	// Rejected is terminal.
	_, err = repo.RecordReview(p.ID, "evaluator1", rubric.StatusAccepted, "changed my mind")
	assert.ErrorIs(t, err, ErrTerminalStatus)
}

func countReviews(t *testing.T, repo *Repository, proposalID int64) int {
	t.Helper()

	var n int
	err := repo.db.QueryRow(
		"SELECT COUNT(*) FROM reviews WHERE proposal_id = ?", proposalID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestRecordReviewWritesAuditRow(t *testing.T) {
	repo := newTestRepo(t)

	p := sampleProposal("company1")
	require.NoError(t, repo.Insert(p))

	_, err := repo.RecordReview(p.ID, "evaluator1", rubric.StatusAccepted, "approved")
	require.NoError(t, err)
	assert.Equal(t, 1, countReviews(t, repo, p.ID))

	// A rejected transition leaves both the proposal and the audit
	// trail untouched.
	_, err = repo.RecordReview(p.ID, "evaluator1", rubric.StatusRejected, "too late")
	require.ErrorIs(t, err, ErrTerminalStatus)
	assert.Equal(t, 1, countReviews(t, repo, p.ID))

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, rubric.StatusAccepted, got.Status)
	assert.Equal(t, "approved", got.EvalComment)
}

func TestReviewsRequireExistingProposal(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.db.Exec(
		`INSERT INTO reviews (id, proposal_id, evaluator, status, comment, created_at)
		 VALUES ('orphan', 999, 'evaluator1', 'Accepted', '', CURRENT_TIMESTAMP)`)
	assert.Error(t, err, "the foreign key on reviews.proposal_id is enforced")
}

func TestRecordReviewUnknownProposal(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.RecordReview(7, "evaluator1", rubric.StatusAccepted, "")
	assert.ErrorIs(t, err, ErrProposalNotFound)
}
