// Package typology maps signal combinations and graph neighborhoods to
// named laundering patterns using CEL-guarded rules.
package typology

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/neuroaml/neuroaml/internal/domain"
	"github.com/neuroaml/neuroaml/internal/graph"
)

// highRiskNeighborCutoff is the dynamic-risk level at which a neighbor
// counts as high risk for the mule-network rule.
const highRiskNeighborCutoff = 0.7

// Rule is one laundering pattern with a CEL guard expression. The
// expression is evaluated over {score, neighbor_count,
// high_risk_neighbors} and must return bool. Rules are independent: all
// matching rules are returned, they are not mutually exclusive.
type Rule struct {
	Type          string
	Expression    string
	Justification string
}

// Fallback is the finding returned when no rule matched.
var Fallback = domain.TypologyFinding{
	Type: "No Dominant Typology",
	Justification: "Account shows irregular behavior but does not strongly match " +
		"known AML typologies at this stage.",
}

// BuiltinRules returns the default pattern set.
func BuiltinRules() []Rule {
	return []Rule{
		{
			Type:       "Smurfing",
			Expression: "score >= 0.35 && score < 0.6",
			Justification: "Multiple low-to-medium risk behaviors detected, " +
				"consistent with transaction structuring to avoid thresholds.",
		},
		{
			Type:       "Mule Network",
			Expression: "high_risk_neighbors >= 2",
			Justification: "Account is directly connected to multiple high-risk entities, " +
				"indicating possible use as a money mule.",
		},
		{
			Type:       "Layering",
			Expression: "neighbor_count >= 4",
			Justification: "Dense transaction connectivity detected, " +
				"suggesting attempts to obscure fund origin.",
		},
		{
			Type:          "High-Risk Anomalous Activity",
			Expression:    "score >= 0.7",
			Justification: "Persistent high-risk behavior observed across monitoring cycles.",
		},
	}
}

type compiledRule struct {
	rule    Rule
	program cel.Program
}

// Classifier evaluates typology rules for individual accounts. The
// dynamic per-account risk comes through the injected RiskLookup, an
// external continuously updated estimate distinct from the per-run
// fused assessment.
type Classifier struct {
	env      *cel.Env
	compiled []compiledRule
	lookup   domain.RiskLookup
}

// NewClassifier compiles the given rules. Rules with expressions that
// do not compile to bool are rejected up front.
func NewClassifier(rules []Rule, lookup domain.RiskLookup) (*Classifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("neighbor_count", cel.IntType),
		cel.Variable("high_risk_neighbors", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	c := &Classifier{env: env, lookup: lookup}
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile typology rule %q: %w", r.Type, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("typology rule %q: expression must return bool, got %s", r.Type, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for typology rule %q: %w", r.Type, err)
		}
		c.compiled = append(c.compiled, compiledRule{rule: r, program: program})
	}
	return c, nil
}

// Classify evaluates every rule for one account and returns all
// matches, or the fallback finding when nothing matched.
func (c *Classifier) Classify(ctx context.Context, tenantID, account string, score float64, g *graph.Graph) ([]domain.TypologyFinding, error) {
	neighborCount := 0
	highRiskNeighbors := 0
	if g != nil && g.HasNode(account) {
		neighbors := g.Neighbors(account)
		neighborCount = len(neighbors)
		for _, n := range neighbors {
			risk, err := c.lookup.CurrentRisk(ctx, tenantID, n)
			if err != nil {
				return nil, fmt.Errorf("dynamic risk lookup for %s: %w", n, err)
			}
			if risk >= highRiskNeighborCutoff {
				highRiskNeighbors++
			}
		}
	}

	activation := map[string]any{
		"score":               score,
		"neighbor_count":      neighborCount,
		"high_risk_neighbors": highRiskNeighbors,
	}

	var findings []domain.TypologyFinding
	for _, cr := range c.compiled {
		out, _, err := cr.program.Eval(activation)
		if err != nil {
			return nil, fmt.Errorf("typology rule %q evaluation: %w", cr.rule.Type, err)
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			findings = append(findings, domain.TypologyFinding{
				Type:          cr.rule.Type,
				Justification: cr.rule.Justification,
			})
		}
	}

	if len(findings) == 0 {
		findings = append(findings, Fallback)
	}
	return findings, nil
}
