package matching

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"

	"github.com/mockhost/mockhost/pkg/mock"
)

// ErrInvalidRule is returned when a rule cannot be compiled, for example a
// malformed regular expression.
var ErrInvalidRule = errors.New("invalid rule")

// CompiledRule is a rule with its operand prepared for evaluation.
// It is immutable and safe for concurrent use.
type CompiledRule struct {
	Rule mock.Rule

	bodyPath jp.Expr
	re       *regexp.Regexp
	number   float64
	program  *vm.Program
}

// CompileRule validates the rule operand and prepares it: body field paths
// are parsed, regular expressions compiled (anchored to the whole value
// unless the pattern has its own ^ or $), numeric operands parsed and
// expressions type-checked.
func CompileRule(r mock.Rule) (*CompiledRule, error) {
	c := &CompiledRule{Rule: r}

	switch r.Source {
	case mock.SourceHeader, mock.SourceQuery, mock.SourcePathParam:
		if r.Field == "" {
			return nil, fmt.Errorf("%w: field is required", ErrInvalidRule)
		}
	case mock.SourceBodyField:
		x, err := compileBodyPath(r.Field)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		c.bodyPath = x
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidRule, r.Source)
	}

	switch r.Operator {
	case mock.OpEquals, mock.OpNotEquals, mock.OpContains, mock.OpExists, mock.OpNotExists:
	case mock.OpMatchesRegex:
		re, err := regexp.Compile(anchorPattern(r.Value))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid regular expression %q: %v", ErrInvalidRule, r.Value, err)
		}
		c.re = re
	case mock.OpGreaterThan, mock.OpGreaterThanEqual, mock.OpLessThan, mock.OpLessThanEqual:
		n, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: operator %s needs a numeric value, got %q", ErrInvalidRule, r.Operator, r.Value)
		}
		c.number = n
	case mock.OpExpression:
		program, err := expr.Compile(r.Value, expr.Env(expressionEnv("", false)), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: invalid expression %q: %v", ErrInvalidRule, r.Value, err)
		}
		c.program = program
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidRule, r.Operator)
	}

	return c, nil
}

// Evaluate resolves the rule's field within its source and applies the
// operator. It never fails: an absent field is a value, not an error.
func (c *CompiledRule) Evaluate(ctx *RequestContext) bool {
	value, present := c.Lookup(ctx)
	return c.Test(value, present)
}

// Lookup extracts the rule's field from the request.
func (c *CompiledRule) Lookup(ctx *RequestContext) (string, bool) {
	if ctx == nil {
		return "", false
	}
	switch c.Rule.Source {
	case mock.SourceHeader:
		return lookupHeader(ctx.Headers, c.Rule.Field)
	case mock.SourceQuery:
		return lookupQuery(ctx.Query, c.Rule.Field)
	case mock.SourcePathParam:
		return lookupPathParam(ctx.PathParams, c.Rule.Field)
	case mock.SourceBodyField:
		return lookupBody(ctx.Body, c.bodyPath)
	default:
		return "", false
	}
}

// Test applies the operator to an extracted value. Every operator except
// not-exists and not-equals is false when the field is absent.
func (c *CompiledRule) Test(value string, present bool) bool {
	switch c.Rule.Operator {
	case mock.OpExists:
		return present
	case mock.OpNotExists:
		return !present
	case mock.OpEquals:
		return present && value == c.Rule.Value
	case mock.OpNotEquals:
		return !present || value != c.Rule.Value
	case mock.OpContains:
		return present && strings.Contains(value, c.Rule.Value)
	case mock.OpMatchesRegex:
		return present && c.re != nil && c.re.MatchString(value)
	case mock.OpGreaterThan, mock.OpGreaterThanEqual, mock.OpLessThan, mock.OpLessThanEqual:
		if !present {
			return false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false
		}
		return compareNumbers(c.Rule.Operator, n, c.number)
	case mock.OpExpression:
		return c.runExpression(value, present)
	default:
		return false
	}
}

func (c *CompiledRule) runExpression(value string, present bool) bool {
	if c.program == nil {
		return false
	}
	out, err := expr.Run(c.program, expressionEnv(value, present))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

func expressionEnv(value string, present bool) map[string]any {
	return map[string]any{
		"value":  value,
		"exists": present,
	}
}

func compareNumbers(op mock.RuleOperator, actual, operand float64) bool {
	switch op {
	case mock.OpGreaterThan:
		return actual > operand
	case mock.OpGreaterThanEqual:
		return actual >= operand
	case mock.OpLessThan:
		return actual < operand
	case mock.OpLessThanEqual:
		return actual <= operand
	}
	return false
}

// anchorPattern anchors a pattern to the whole value unless it already
// carries a leading ^ or an unescaped trailing $.
func anchorPattern(pattern string) string {
	if strings.HasPrefix(pattern, "^") || endsWithAnchor(pattern) {
		return pattern
	}
	return "^(?:" + pattern + ")$"
}

// endsWithAnchor reports whether pattern ends in a $ that is not escaped
// by an odd run of backslashes.
func endsWithAnchor(pattern string) bool {
	if !strings.HasSuffix(pattern, "$") {
		return false
	}
	slashes := 0
	for i := len(pattern) - 2; i >= 0 && pattern[i] == '\\'; i-- {
		slashes++
	}
	return slashes%2 == 0
}

// EvaluateRules combines rules under logic. An empty rule list holds under
// either logic.
func EvaluateRules(rules []*CompiledRule, logic mock.RuleLogic, ctx *RequestContext) bool {
	ok, _ := evaluateRules(rules, logic, ctx, false)
	return ok
}

// evaluateRules short-circuits unless trace is requested, in which case
// every rule is evaluated and reported.
func evaluateRules(rules []*CompiledRule, logic mock.RuleLogic, ctx *RequestContext, trace bool) (bool, []RuleTrace) {
	if len(rules) == 0 {
		return true, nil
	}

	var traces []RuleTrace
	if trace {
		traces = make([]RuleTrace, 0, len(rules))
	}

	anyHeld := false
	allHeld := true
	for _, r := range rules {
		value, present := r.Lookup(ctx)
		held := r.Test(value, present)
		if trace {
			traces = append(traces, newRuleTrace(r.Rule, value, present, held))
		}
		if held {
			anyHeld = true
		} else {
			allHeld = false
		}
		if !trace {
			if logic == mock.RuleLogicOr && held {
				return true, nil
			}
			if logic != mock.RuleLogicOr && !held {
				return false, nil
			}
		}
	}

	if logic == mock.RuleLogicOr {
		return anyHeld, traces
	}
	return allHeld, traces
}
