package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

// ErrSchema is returned when a document does not match the configuration
// schema.
var ErrSchema = errors.New("configuration does not match schema")

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

// Schema returns the embedded JSON Schema document.
func Schema() []byte {
	return []byte(schemaJSON)
}

func loadSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("schema.json")
	})
	return compiledSchema, compiledSchemaErr
}

// SchemaIssue is one schema violation.
type SchemaIssue struct {
	// Location is a JSON pointer into the document, e.g. /endpoints/0/method
	Location string
	Message  string
}

// SchemaError lists every violation found in a document.
type SchemaError struct {
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		loc := is.Location
		if loc == "" {
			loc = "/"
		}
		parts[i] = loc + ": " + is.Message
	}
	return fmt.Sprintf("%s: %s", ErrSchema, strings.Join(parts, "; "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ValidateDocument checks decoded JSON or YAML data against the embedded
// schema.
func ValidateDocument(doc any) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("schema compilation error: %w", err)
	}

	// Round-trip through JSON so YAML maps and numbers take the shapes the
	// validator expects.
	normalized, err := normalize(doc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	var instance any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			se := &SchemaError{}
			collectIssues(verr, se)
			sort.SliceStable(se.Issues, func(i, j int) bool {
				return se.Issues[i].Location < se.Issues[j].Location
			})
			return se
		}
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// collectIssues flattens the leaf causes of a validation error.
func collectIssues(err *jsonschema.ValidationError, out *SchemaError) {
	if len(err.Causes) == 0 {
		out.Issues = append(out.Issues, SchemaIssue{
			Location: err.InstanceLocation,
			Message:  err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectIssues(cause, out)
	}
}

// normalize converts map[any]any produced by YAML into map[string]any.
func normalize(x any) (any, error) {
	switch t := x.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			n, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mapping key %v is not a string", ErrInvalidYAML, k)
			}
			n, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			n, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return x, nil
	}
}
