package matching

import (
	"errors"
	"fmt"
)

// ErrNoVariantAvailable is returned when an endpoint cannot produce a
// response: it has no variants, or none matched and no default exists.
var ErrNoVariantAvailable = errors.New("no variant available")

// ResolveVariant selects the response variant for a request. Non-default
// variants are tried in ascending priority (declaration order for ties);
// the first whose rules hold under its rule logic wins. Otherwise the first
// variant marked default is used.
func ResolveVariant(ep *CompiledEndpoint, ctx *RequestContext) (*CompiledVariant, error) {
	res, err := resolve(ep, ctx, false)
	if err != nil {
		return nil, err
	}
	return res.Variant, nil
}

// ResolveVariantTrace is ResolveVariant that also reports how every
// candidate evaluated and any data-integrity anomalies.
func ResolveVariantTrace(ep *CompiledEndpoint, ctx *RequestContext) (*Resolution, error) {
	return resolve(ep, ctx, true)
}

func resolve(ep *CompiledEndpoint, ctx *RequestContext, trace bool) (*Resolution, error) {
	if ep == nil {
		return nil, fmt.Errorf("%w: no endpoint", ErrNoVariantAvailable)
	}
	if len(ep.Variants) == 0 {
		return nil, fmt.Errorf("%w: no variant configured for %s", ErrNoVariantAvailable, ep)
	}

	res := &Resolution{}
	if ep.defaultCount > 1 {
		res.Anomalies = append(res.Anomalies, fmt.Sprintf(
			"%d variants of %s are marked default; using %s (first declared)",
			ep.defaultCount, ep, ep.fallback.Label()))
	}

	for _, v := range ep.candidates {
		held, rules := evaluateRules(v.Rules, v.RuleLogic, ctx, trace)
		if trace {
			res.Evaluated = append(res.Evaluated, VariantTrace{
				Index:    v.Index,
				Name:     v.Name,
				Priority: v.Priority,
				Logic:    v.RuleLogic,
				Matched:  held,
				Rules:    rules,
			})
		}
		if held {
			res.Variant = v
			return res, nil
		}
	}

	if ep.fallback == nil {
		return nil, fmt.Errorf("%w: no variant of %s matched and none is marked default", ErrNoVariantAvailable, ep)
	}

	res.Variant = ep.fallback
	res.UsedDefault = true
	return res, nil
}
