// Package resolver computes class lineage (§4.7) and flags impossible
// cross-lineage schema constraints (§4.8). Resolution is memoized, since a
// class referenced as a parent by many leaves would otherwise have its
// lineage recomputed once per leaf.
package resolver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/struktur/merge"
	"go.jacobcolvin.com/struktur/model"
)

// Resolver walks $parent pointers into root->leaf lineages and accumulates
// $fields/$uses_aspects/$aspect_defaults down each lineage. A Resolver is
// safe for concurrent use; a single build resolves classes sequentially,
// but memoization is backed by sync.Map regardless, matching the
// concurrency-safe-by-default style the rest of this codebase uses for
// shared caches.
type Resolver struct {
	classes map[string]*model.ClassDef
	cache   sync.Map // class name -> *model.ResolvedClass
}

// New builds a Resolver over a fixed class table. classes is not mutated.
func New(classes map[string]*model.ClassDef) *Resolver {
	return &Resolver{classes: classes}
}

// Resolve returns the memoized lineage and accumulated fields for name,
// computing it (and memoizing every ancestor visited along the way) on
// first use.
func (r *Resolver) Resolve(name string) (*model.ResolvedClass, error) {
	return r.resolve(name, nil)
}

// resolve computes the lineage of name, detecting cycles via visiting (the
// in-progress call stack, by class name) and failing ErrUnknownParent when
// a $parent has no matching definition.
func (r *Resolver) resolve(name string, visiting []string) (*model.ResolvedClass, error) {
	if cached, ok := r.cache.Load(name); ok {
		return cached.(*model.ResolvedClass), nil
	}

	for _, v := range visiting {
		if v == name {
			return nil, fmt.Errorf("%w: %s -> %s", model.ErrCircularInheritance, strings.Join(visiting, " -> "), name)
		}
	}

	def, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownParent, name)
	}

	visiting = append(visiting, name)

	var parent *model.ResolvedClass

	if def.Parent != "" {
		p, err := r.resolve(def.Parent, visiting)
		if err != nil {
			return nil, err
		}

		parent = p
	}

	resolved := assemble(def, parent)

	r.cache.Store(name, resolved)

	return resolved, nil
}

// ResolveAll resolves every class in the table, returning the first error
// encountered. Useful for an orchestrator phase that wants every lineage
// validated up front rather than lazily on first instance reference.
func (r *Resolver) ResolveAll() (map[string]*model.ResolvedClass, error) {
	out := make(map[string]*model.ResolvedClass, len(r.classes))

	for name := range r.classes {
		resolved, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}

		out[name] = resolved
	}

	return out, nil
}

// assemble builds the ResolvedClass for def given its (already resolved)
// parent, or nil at the root of a lineage.
func assemble(def *model.ClassDef, parent *model.ResolvedClass) *model.ResolvedClass {
	resolved := &model.ResolvedClass{Name: def.Class}

	if parent != nil {
		resolved.Lineage = append(append([]string{}, parent.Lineage...), def.Class)
		resolved.Schemas = append(append([]*jsonschema.Schema{}, parent.Schemas...), def.Schema)
	} else {
		resolved.Lineage = []string{def.Class}
		resolved.Schemas = []*jsonschema.Schema{def.Schema}
	}

	resolved.Fields = mergeFieldsLeafLast(parentFields(parent), def.Fields)
	resolved.UsesAspects = unionAspects(parentUsesAspects(parent), def.UsesAspects)
	resolved.RequiredAspects = unionAspects(parentRequiredAspects(parent), def.RequiredAspects)
	resolved.AspectDefaults = mergeAspectDefaultsLeafLast(parentAspectDefaults(parent), def.AspectDefaults)

	return resolved
}

func parentFields(parent *model.ResolvedClass) map[string]any {
	if parent == nil {
		return nil
	}

	return parent.Fields
}

func parentUsesAspects(parent *model.ResolvedClass) []string {
	if parent == nil {
		return nil
	}

	return parent.UsesAspects
}

func parentRequiredAspects(parent *model.ResolvedClass) []string {
	if parent == nil {
		return nil
	}

	return parent.RequiredAspects
}

func parentAspectDefaults(parent *model.ResolvedClass) map[string]map[string]any {
	if parent == nil {
		return nil
	}

	return parent.AspectDefaults
}

// mergeFieldsLeafLast class-merges ancestor fields under child fields, so
// the child (leaf) wins on conflict.
func mergeFieldsLeafLast(ancestor, child map[string]any) map[string]any {
	if ancestor == nil && child == nil {
		return nil
	}

	merged := mapFromAny(merge.Class(anyFromFieldMap(ancestor), anyFromFieldMap(child)))

	if len(merged) == 0 {
		return nil
	}

	return merged
}

// mergeAspectDefaultsLeafLast class-merges each aspect's default bundle
// independently, leaf-last, so a child class's $aspect_defaults for a given
// aspect win over an ancestor's for the same keys while other aspects'
// defaults accumulate untouched.
func mergeAspectDefaultsLeafLast(
	ancestor, child map[string]map[string]any,
) map[string]map[string]any {
	if ancestor == nil && child == nil {
		return nil
	}

	result := make(map[string]map[string]any, len(ancestor)+len(child))

	for aspect, defaults := range ancestor {
		result[aspect] = defaults
	}

	for aspect, defaults := range child {
		if existing, ok := result[aspect]; ok {
			result[aspect] = mapFromAny(merge.Class(anyFromFieldMap(existing), anyFromFieldMap(defaults)))
		} else {
			result[aspect] = defaults
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

func unionAspects(ancestor, child []string) []string {
	if len(ancestor) == 0 && len(child) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(ancestor)+len(child))

	var out []string

	for _, name := range ancestor {
		if !seen[name] {
			seen[name] = true

			out = append(out, name)
		}
	}

	for _, name := range child {
		if !seen[name] {
			seen[name] = true

			out = append(out, name)
		}
	}

	return out
}

func anyFromFieldMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func mapFromAny(v any) map[string]any {
	m, _ := v.(map[string]any)

	return m
}
