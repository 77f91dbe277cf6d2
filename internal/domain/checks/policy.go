package checks

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"treasury/internal/core/entity"
	"treasury/internal/core/types"
)

// DefaultDirectClearPolicy allows direct clearing of both received and issued checks.
const DefaultDirectClearPolicy = "true"

// ClearRequest describes a pending -> cleared transition for policy evaluation.
type ClearRequest struct {
	Direction  entity.CheckDirection
	Amount     types.MinorUnits
	HasTarget  bool
	TargetKind entity.AccountKind
	DaysToDue  int64
}

// ClearPolicy decides whether a check may be cleared without a deposit step.
type ClearPolicy interface {
	AllowDirectClear(ctx context.Context, req ClearRequest) (bool, error)
}

// CELClearPolicy evaluates a CEL boolean expression over the variables
// direction, amount, has_target, target_kind and days_to_due.
//
// Example: direction == "received" || has_target
type CELClearPolicy struct {
	expr string
	prg  cel.Program
}

// NewCELClearPolicy compiles expr.
func NewCELClearPolicy(expr string) (*CELClearPolicy, error) {
	if expr == "" {
		expr = DefaultDirectClearPolicy
	}

	env, err := cel.NewEnv(
		cel.Variable("direction", cel.StringType),
		cel.Variable("amount", cel.IntType),
		cel.Variable("has_target", cel.BoolType),
		cel.Variable("target_kind", cel.StringType),
		cel.Variable("days_to_due", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile clear policy %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("clear policy %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build clear policy program: %w", err)
	}

	return &CELClearPolicy{expr: expr, prg: prg}, nil
}

// Expression returns the source expression.
func (p *CELClearPolicy) Expression() string {
	return p.expr
}

// AllowDirectClear implements ClearPolicy.
func (p *CELClearPolicy) AllowDirectClear(ctx context.Context, req ClearRequest) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		"direction":   string(req.Direction),
		"amount":      int64(req.Amount),
		"has_target":  req.HasTarget,
		"target_kind": string(req.TargetKind),
		"days_to_due": req.DaysToDue,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate clear policy: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("clear policy returned %T", out.Value())
	}
	return allowed, nil
}

// AllowAll is a ClearPolicy that never objects.
type AllowAll struct{}

func (AllowAll) AllowDirectClear(context.Context, ClearRequest) (bool, error) { return true, nil }
