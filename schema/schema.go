// Package schema wraps github.com/google/jsonschema-go/jsonschema to give
// struktur the two schema operations the spec needs: meta-validating a
// `$schema` fragment against JSON-Schema draft-07 (§4.3/§4.4), and
// compiling a fragment so instance data can be validated against it
// (§4.9), with compiled schemas cached by name (§4.9 "Registration
// caching").
package schema

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/struktur/model"
)

// Draft07 is the JSON-Schema draft-07 meta-schema URI, matching the
// teacher's own `result.Schema = "http://json-schema.org/draft-07/schema#"`
// convention in magicschema/generator.go. Compile and MetaValidate do not
// write it onto the fragments they are given.
const Draft07 = "http://json-schema.org/draft-07/schema#"

// Compiled wraps a resolved schema, ready to validate instance data.
type Compiled struct {
	resolved *jsonschema.Resolved
}

// MetaValidate resolves s with strict options, catching structurally
// inconsistent schemas (bad $ref targets, conflicting keyword usage,
// malformed patterns). A nil schema is rejected with
// model.ErrMissingRequiredField.
func MetaValidate(s *jsonschema.Schema) error {
	if s == nil {
		return fmt.Errorf("%w: $schema", model.ErrMissingRequiredField)
	}

	_, err := s.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSchemaMetaValidation, err)
	}

	return nil
}

// Compile resolves s into a Compiled validator. Call this once per distinct
// schema fragment and reuse the result; see Cache for a name-keyed cache.
func Compile(s *jsonschema.Schema) (*Compiled, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: $schema", model.ErrMissingRequiredField)
	}

	resolved, err := s.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSchemaMetaValidation, err)
	}

	return &Compiled{resolved: resolved}, nil
}

// Validate checks instance (typically a map[string]any decoded from JSON)
// against the compiled schema, returning a model.ErrSchemaViolation-wrapped
// error describing every violation jsonschema-go reports.
func (c *Compiled) Validate(instance any) error {
	if c == nil || c.resolved == nil {
		return fmt.Errorf("%w", model.ErrNoValidatorRegistered)
	}

	err := c.resolved.Validate(instance)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSchemaViolation, err)
	}

	return nil
}

// Cache compiles and caches schemas by an arbitrary string key (e.g.
// "class:server" or "aspect:network"), so lineage/aspect passes over many
// instances only pay compilation cost once per schema (§4.9 "Registration
// caching").
type Cache struct {
	compiled sync.Map // string -> *Compiled
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// GetOrCompile returns the cached Compiled schema for key, compiling and
// storing s under key on first use. Registration is idempotent: concurrent
// callers compiling the same key converge on one cached value.
func (c *Cache) GetOrCompile(key string, s *jsonschema.Schema) (*Compiled, error) {
	if existing, ok := c.compiled.Load(key); ok {
		return existing.(*Compiled), nil //nolint:forcetypeassert // only *Compiled is ever stored.
	}

	compiled, err := Compile(s)
	if err != nil {
		return nil, err
	}

	actual, _ := c.compiled.LoadOrStore(key, compiled)

	return actual.(*Compiled), nil //nolint:forcetypeassert // only *Compiled is ever stored.
}
