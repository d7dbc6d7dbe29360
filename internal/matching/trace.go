package matching

import "github.com/mockhost/mockhost/pkg/mock"

// RuleTrace describes how a single rule evaluated against the request.
type RuleTrace struct {
	Source   mock.RuleSource   `json:"source"`
	Field    string            `json:"field"`
	Operator mock.RuleOperator `json:"operator"`
	Expected string            `json:"expected,omitempty"`
	Actual   string            `json:"actual,omitempty"`
	Present  bool              `json:"present"`
	Held     bool              `json:"held"`
}

func newRuleTrace(r mock.Rule, actual string, present, held bool) RuleTrace {
	return RuleTrace{
		Source:   r.Source,
		Field:    r.Field,
		Operator: r.Operator,
		Expected: r.Value,
		Actual:   actual,
		Present:  present,
		Held:     held,
	}
}

// VariantTrace records the evaluation of one non-default variant.
type VariantTrace struct {
	Index    int            `json:"index"`
	Name     string         `json:"name,omitempty"`
	Priority int            `json:"priority"`
	Logic    mock.RuleLogic `json:"logic"`
	Matched  bool           `json:"matched"`
	Rules    []RuleTrace    `json:"rules,omitempty"`
}

// Resolution is the outcome of variant resolution.
type Resolution struct {
	Variant     *CompiledVariant
	UsedDefault bool
	Evaluated   []VariantTrace
	Anomalies   []string
}
