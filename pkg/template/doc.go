// Package template substitutes path parameters into response variants.
//
// A placeholder is a colon followed by a parameter name, for example ":id"
// in "/users/:id/orders" or {"owner": ":id"}. Only names bound by the matched
// path are replaced; any other ":word" is left exactly as written. Rendering
// walks the whole body value and touches string leaves only: numbers,
// booleans, null and object keys pass through unchanged.
//
// Variants with body type "static" are never scanned.
package template
