// Package merge implements the two deep-merge policies struktur uses:
// instance-merge (concatenate+dedupe arrays, strict-typed scalars) for
// combining instance fragments that share an $id, and class-merge (replace
// arrays, tolerant scalars) for accumulating class/aspect defaults down a
// lineage (§4.2).
//
// Both operate over values already decoded from JSON: map[string]any,
// []any, and scalars (string, float64, bool, nil). This mirrors the
// teacher's own merge routine in magicschema/merge.go, generalized from
// *jsonschema.Schema trees to arbitrary decoded JSON.
package merge

import (
	"fmt"

	"go.jacobcolvin.com/struktur/model"
)

// Instance deep-merges src into dst using instance-merge semantics:
// objects merge recursively, arrays concatenate then dedupe, and a scalar
// conflict where src wins is fine -- but a *type* mismatch at any path
// fails with model.ErrTypeConflict.
func Instance(dst, src any, path string) (any, error) {
	if dst == nil {
		return src, nil
	}

	if src == nil {
		return dst, nil
	}

	switch d := dst.(type) {
	case map[string]any:
		s, ok := src.(map[string]any)
		if !ok {
			return nil, typeConflict(path, dst, src)
		}

		return mergeInstanceObjects(d, s, path)

	case []any:
		s, ok := src.([]any)
		if !ok {
			return nil, typeConflict(path, dst, src)
		}

		return concatDedupe(d, s), nil

	default:
		if !sameScalarKind(dst, src) {
			return nil, typeConflict(path, dst, src)
		}

		// Scalars: source wins.
		return src, nil
	}
}

func mergeInstanceObjects(dst, src map[string]any, path string) (map[string]any, error) {
	result := make(map[string]any, len(dst)+len(src))

	for k, v := range dst {
		result[k] = v
	}

	for k, v := range src {
		childPath := joinPath(path, k)

		if existing, ok := result[k]; ok {
			merged, err := Instance(existing, v, childPath)
			if err != nil {
				return nil, err
			}

			result[k] = merged
		} else {
			result[k] = v
		}
	}

	return result, nil
}

// concatDedupe concatenates a and b, then removes duplicates. Primitives are
// deduplicated by structural equality; objects (maps) are kept as-is even
// if structurally identical, per §4.2.
func concatDedupe(a, b []any) []any {
	combined := make([]any, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)

	result := make([]any, 0, len(combined))
	seen := make(map[any]bool, len(combined))

	for _, v := range combined {
		if _, isObject := v.(map[string]any); isObject {
			result = append(result, v)

			continue
		}

		if _, isArray := v.([]any); isArray {
			result = append(result, v)

			continue
		}

		if seen[v] {
			continue
		}

		seen[v] = true

		result = append(result, v)
	}

	return result
}

// Class deep-merges src onto dst using class-merge semantics: objects merge
// recursively, arrays and scalars are replaced by src (child wins), and
// type mismatches are tolerated -- src always wins when it disagrees with
// dst's shape.
func Class(dst, src any) any {
	if src == nil {
		return dst
	}

	if dst == nil {
		return src
	}

	dstObj, dstIsObj := dst.(map[string]any)
	srcObj, srcIsObj := src.(map[string]any)

	if dstIsObj && srcIsObj {
		return mergeClassObjects(dstObj, srcObj)
	}

	// Arrays replace; scalars replace; type mismatches replace. Child
	// (src) always wins under class-merge.
	return src
}

func mergeClassObjects(dst, src map[string]any) map[string]any {
	result := make(map[string]any, len(dst)+len(src))

	for k, v := range dst {
		result[k] = v
	}

	for k, v := range src {
		if existing, ok := result[k]; ok {
			result[k] = Class(existing, v)
		} else {
			result[k] = v
		}
	}

	return result
}

func sameScalarKind(a, b any) bool {
	switch a.(type) {
	case string:
		_, ok := b.(string)

		return ok
	case float64:
		_, ok := b.(float64)

		return ok
	case bool:
		_, ok := b.(bool)

		return ok
	default:
		// Unrecognized scalar kinds (shouldn't occur from JSON decode) are
		// tolerated rather than failing spuriously.
		return true
	}
}

func typeConflict(path string, left, right any) error {
	return fmt.Errorf("%w: at %q: %s vs %s", model.ErrTypeConflict, path, kindOf(left), kindOf(right))
}

func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}

	return path + "." + key
}
