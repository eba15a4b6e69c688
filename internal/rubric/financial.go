package rubric

import "github.com/Project-Kyra/Project-Kyra/internal/budget"

// FinancialRules is the rule-based financial-viability scorer. Unlike
// the keyword scorers it is binary: a budget either passes every rule
// (100) or takes the fixed penalty score, with the violated rules
// returned as ordered human-readable flags.
type FinancialRules struct {
	// BudgetCap is the maximum allowed total budget.
	BudgetCap float64
	// MilestoneLimit is the maximum allowed fraction of the total
	// budget in the first milestone.
	MilestoneLimit float64
	// Penalty is the score assigned when any rule is violated.
	Penalty float64

	// CapMessage and MilestoneMessage are the flag texts surfaced to
	// submitters and reviewers.
	CapMessage       string
	MilestoneMessage string
}

// Score applies the rules to a budget table. A zero total raises no
// flags regardless of the milestone split.
func (f FinancialRules) Score(rows []budget.Row) (float64, []string) {
	var issues []string

	total := budget.Total(rows)
	first := budget.FirstMilestone(rows)

	if total > f.BudgetCap {
		issues = append(issues, f.CapMessage)
	}
	if total > 0 && first/total > f.MilestoneLimit {
		issues = append(issues, f.MilestoneMessage)
	}

	if len(issues) > 0 {
		return f.Penalty, issues
	}
	return 100, nil
}
