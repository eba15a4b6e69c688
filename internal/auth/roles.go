package auth

import (
	"fmt"

	"github.com/Project-Kyra/Project-Kyra/internal/database"
)

// Role is the closed set of principal variants. Behavior that differs by
// role hangs off methods here rather than string comparisons at call
// sites.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCompany   Role = "company"
	RoleEvaluator Role = "evaluator"
)

// ParseRole validates a role name from configuration or a token claim
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleCompany, RoleEvaluator:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Scope lists the proposals a principal may see: admins read everything,
// companies their own submissions, evaluators their assigned queue.
type Scope func(repo *database.Repository, username string) ([]database.Proposal, error)

// Scope returns the proposal-visibility scope for the role. It is
// selected once at login and carried on the session.
func (r Role) Scope() Scope {
	switch r {
	case RoleAdmin:
		return func(repo *database.Repository, _ string) ([]database.Proposal, error) {
			return repo.ListAll()
		}
	case RoleEvaluator:
		return func(repo *database.Repository, username string) ([]database.Proposal, error) {
			return repo.ListByEvaluator(username)
		}
	default:
		return func(repo *database.Repository, username string) ([]database.Proposal, error) {
			return repo.ListBySubmitter(username)
		}
	}
}

// CanView reports whether the principal may read one specific proposal
func (r Role) CanView(p *database.Proposal, username string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleEvaluator:
		return p.Evaluator == username
	default:
		return p.Submitter == username
	}
}
