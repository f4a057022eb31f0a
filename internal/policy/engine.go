// Package policy evaluates access decisions for role-gated operations.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/ymzhao891/medichat/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.access.decision"),
		rego.Module("access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision ("allow" or "deny") for an operation
// performed by a principal with the given role claim.
func (e *Engine) Evaluate(ctx context.Context, operation string, role domain.ActorRole) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"operation": operation,
		"role":      string(role),
	}))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "deny", nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "deny", nil
}

// Allow reports whether the operation is permitted for the role.
func (e *Engine) Allow(ctx context.Context, operation string, role domain.ActorRole) (bool, error) {
	decision, err := e.Evaluate(ctx, operation, role)
	if err != nil {
		return false, err
	}
	return decision == "allow", nil
}

// DefaultPolicy is the default access policy: operations not listed in the
// restricted table are open to any authenticated principal.
const DefaultPolicy = `
package access

import rego.v1

default decision := "deny"

restricted := {
	"session.purge": "admin",
	"report.validate": "clinician",
	"clinician.availability": "clinician",
}

decision := "allow" if {
	not restricted[input.operation]
}

decision := "allow" if {
	restricted[input.operation] == input.role
}
`
