// Package mock provides the endpoint configuration types served by mockhost:
// endpoints, their response variants, and the rules that select a variant.
package mock

import (
	"strings"
	"time"
)

// Supported endpoint methods.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Configuration ranges.
const (
	// MaxDelayMs is the largest artificial latency a variant may declare.
	MaxDelayMs = 30000

	// DefaultStatus is used when a variant does not declare a status.
	DefaultStatus = 200
)

// BodyType controls whether placeholders in a variant are substituted.
type BodyType string

const (
	// BodyTypeStatic emits the body and headers verbatim.
	BodyTypeStatic BodyType = "static"
	// BodyTypeTemplate substitutes :param placeholders in body and headers.
	BodyTypeTemplate BodyType = "template"
)

// RuleLogic is the combination operator applied across a variant's rules.
type RuleLogic string

const (
	// RuleLogicAnd requires every rule to hold.
	RuleLogicAnd RuleLogic = "and"
	// RuleLogicOr requires at least one rule to hold.
	RuleLogicOr RuleLogic = "or"
)

// RuleSource names the part of the request a rule inspects.
type RuleSource string

const (
	SourceHeader    RuleSource = "header"
	SourceQuery     RuleSource = "query"
	SourceBodyField RuleSource = "body-field"
	SourcePathParam RuleSource = "path-param"
)

// RuleOperator is the predicate a rule applies to the looked-up value.
type RuleOperator string

const (
	OpEquals       RuleOperator = "equals"
	OpNotEquals    RuleOperator = "not-equals"
	OpContains     RuleOperator = "contains"
	OpExists       RuleOperator = "exists"
	OpNotExists    RuleOperator = "not-exists"
	OpMatchesRegex RuleOperator = "matches-regex"

	// Numeric comparisons. Both sides must parse as numbers.
	OpGreaterThan      RuleOperator = "gt"
	OpGreaterThanEqual RuleOperator = "gte"
	OpLessThan         RuleOperator = "lt"
	OpLessThanEqual    RuleOperator = "lte"

	// OpExpression evaluates Value as a boolean expr-lang program with the
	// variables "value" (string) and "exists" (bool).
	OpExpression RuleOperator = "expression"
)

// IsExistence reports whether the operator ignores Rule.Value.
func (o RuleOperator) IsExistence() bool {
	return o == OpExists || o == OpNotExists
}

// Endpoint is a configured (method, path template) pair and its variants.
type Endpoint struct {
	// ID is a unique identifier for the endpoint (UUID)
	ID string `json:"id" yaml:"id"`

	// Method is one of GET, POST, PUT, PATCH, DELETE
	Method string `json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`

	// Path is the template, e.g. /users/:id
	Path string `json:"path" yaml:"path" validate:"required,startswith=/"`

	// Name is a human-readable label
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description is an optional longer description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Project scopes the endpoint; empty means the default project
	Project string `json:"project,omitempty" yaml:"project,omitempty"`

	// Variants are the possible responses in declaration order
	Variants []Variant `json:"variants" yaml:"variants" validate:"dive"`

	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

// Variant is one possible response of an endpoint.
type Variant struct {
	// Name is a label only
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Priority orders evaluation; lower values are tried first
	Priority int `json:"priority" yaml:"priority"`

	// IsDefault marks the fallback used when no other variant matches
	IsDefault bool `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`

	// Status is the HTTP status code (default 200)
	Status int `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,min=100,max=599"`

	// Headers maps header names to (possibly templated) values
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Body is the response body
	Body Value `json:"body" yaml:"body"`

	// BodyType is static (default) or template
	BodyType BodyType `json:"bodyType,omitempty" yaml:"bodyType,omitempty" validate:"omitempty,oneof=static template"`

	// Delay is artificial latency in milliseconds
	Delay int `json:"delay,omitempty" yaml:"delay,omitempty" validate:"min=0,max=30000"`

	// FailRate is the probability in [0,1] of a simulated failure
	FailRate float64 `json:"failRate,omitempty" yaml:"failRate,omitempty" validate:"min=0,max=1"`

	// Rules select this variant; empty means always eligible
	Rules []Rule `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`

	// RuleLogic combines Rules (default and)
	RuleLogic RuleLogic `json:"ruleLogic,omitempty" yaml:"ruleLogic,omitempty" validate:"omitempty,oneof=and or"`
}

// Rule is a predicate over one value extracted from the request.
type Rule struct {
	Source   RuleSource   `json:"source" yaml:"source" validate:"required,oneof=header query body-field path-param"`
	Field    string       `json:"field" yaml:"field" validate:"required"`
	Operator RuleOperator `json:"operator" yaml:"operator" validate:"required,oneof=equals not-equals contains exists not-exists matches-regex gt gte lt lte expression"`
	Value    string       `json:"value,omitempty" yaml:"value,omitempty"`
}

// ApplyDefaults normalizes the endpoint in place: the method is upper-cased
// and every variant receives its documented defaults.
func (e *Endpoint) ApplyDefaults() {
	e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	for i := range e.Variants {
		e.Variants[i].ApplyDefaults()
	}
}

// ApplyDefaults fills status, body type and rule logic when unset.
func (v *Variant) ApplyDefaults() {
	if v.Status == 0 {
		v.Status = DefaultStatus
	}
	if v.BodyType == "" {
		v.BodyType = BodyTypeStatic
	}
	if v.RuleLogic == "" {
		v.RuleLogic = RuleLogicAnd
	}
	if v.Headers == nil {
		v.Headers = map[string]string{}
	}
}

// EffectiveStatus returns Status or DefaultStatus when unset.
func (v *Variant) EffectiveStatus() int {
	if v.Status == 0 {
		return DefaultStatus
	}
	return v.Status
}

// Clone returns a deep copy so callers can hand out read-only snapshots.
func (e *Endpoint) Clone() *Endpoint {
	if e == nil {
		return nil
	}
	c := *e
	c.Variants = make([]Variant, len(e.Variants))
	for i, v := range e.Variants {
		vc := v
		if v.Headers != nil {
			vc.Headers = make(map[string]string, len(v.Headers))
			for k, h := range v.Headers {
				vc.Headers[k] = h
			}
		}
		vc.Rules = append([]Rule(nil), v.Rules...)
		vc.Body = v.Body.Clone()
		c.Variants[i] = vc
	}
	return &c
}

// String returns "METHOD PATH".
func (e *Endpoint) String() string {
	return e.Method + " " + e.Path
}
