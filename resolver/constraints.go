package resolver

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/struktur/model"
)

// CheckConstraints implements the Schema Constraint Checker (§4.8): for
// every property path reachable from any schema in a lineage, it collects
// the constraint hunks contributed by each lineage member and reports
// conflicts where the intersected constraints can never be satisfied. The
// check is purely diagnostic -- callers decide whether to promote any
// returned result to a build failure.
func CheckConstraints(resolved *model.ResolvedClass) []model.ValidationResult {
	hunks := make(map[string][]constraintHunk)

	for _, s := range resolved.Schemas {
		collectHunks(s, "", hunks)
	}

	var results []model.ValidationResult

	for path, hs := range hunks {
		if len(hs) < 2 {
			continue
		}

		results = append(results, checkRange(resolved.Name, path, hs)...)
		results = append(results, checkLength(resolved.Name, path, hs)...)
		results = append(results, checkItems(resolved.Name, path, hs)...)
		results = append(results, checkEnum(resolved.Name, path, hs)...)
		results = append(results, checkTypes(resolved.Name, path, hs)...)
	}

	return results
}

// constraintHunk is the subset of a schema's keywords relevant to conflict
// detection, contributed by one lineage member at one property path.
type constraintHunk struct {
	typ string

	minimum, maximum                   *float64
	exclusiveMinimum, exclusiveMaximum *float64

	minLength, maxLength *int
	minItems, maxItems   *int

	enum   []any
	hasEnum bool
}

func collectHunks(s *jsonschema.Schema, path string, out map[string][]constraintHunk) {
	if s == nil {
		return
	}

	hunk := constraintHunk{
		typ:              s.Type,
		minimum:          s.Minimum,
		maximum:          s.Maximum,
		exclusiveMinimum: s.ExclusiveMinimum,
		exclusiveMaximum: s.ExclusiveMaximum,
		minLength:        s.MinLength,
		maxLength:        s.MaxLength,
		minItems:         s.MinItems,
		maxItems:         s.MaxItems,
	}

	if len(s.Enum) > 0 {
		hunk.enum = s.Enum
		hunk.hasEnum = true
	} else if s.Const != nil {
		hunk.enum = []any{*s.Const}
		hunk.hasEnum = true
	}

	if hasAnyConstraint(hunk) {
		out[path] = append(out[path], hunk)
	}

	for name, child := range s.Properties {
		childPath := name
		if path != "" {
			childPath = path + "." + name
		}

		collectHunks(child, childPath, out)
	}

	if s.Items != nil {
		collectHunks(s.Items, path+"[]", out)
	}
}

func hasAnyConstraint(h constraintHunk) bool {
	return h.typ != "" || h.minimum != nil || h.maximum != nil ||
		h.exclusiveMinimum != nil || h.exclusiveMaximum != nil ||
		h.minLength != nil || h.maxLength != nil ||
		h.minItems != nil || h.maxItems != nil || h.hasEnum
}

// effectiveMin returns the tightest (largest) lower bound among hunks that
// declare one, and whether that bound is exclusive.
func effectiveMin(hunks []constraintHunk) (value float64, exclusive, ok bool) {
	for _, h := range hunks {
		if h.exclusiveMinimum != nil && (!ok || *h.exclusiveMinimum > value) {
			value, exclusive, ok = *h.exclusiveMinimum, true, true
		}

		if h.minimum != nil && (!ok || *h.minimum > value) {
			value, exclusive, ok = *h.minimum, false, true
		}
	}

	return value, exclusive, ok
}

// effectiveMax returns the tightest (smallest) upper bound among hunks that
// declare one, and whether that bound is exclusive.
func effectiveMax(hunks []constraintHunk) (value float64, exclusive, ok bool) {
	for _, h := range hunks {
		if h.exclusiveMaximum != nil && (!ok || *h.exclusiveMaximum < value) {
			value, exclusive, ok = *h.exclusiveMaximum, true, true
		}

		if h.maximum != nil && (!ok || *h.maximum < value) {
			value, exclusive, ok = *h.maximum, false, true
		}
	}

	return value, exclusive, ok
}

func checkRange(className, path string, hunks []constraintHunk) []model.ValidationResult {
	lo, loExcl, haveLo := effectiveMin(hunks)
	hi, hiExcl, haveHi := effectiveMax(hunks)

	if !haveLo || !haveHi {
		return nil
	}

	if lo > hi || (lo == hi && (loExcl || hiExcl)) {
		detail := fmt.Sprintf("minimum %s vs maximum %s", boundString(lo, loExcl), boundString(hi, hiExcl))

		return []model.ValidationResult{rangeResult(className, path, model.ErrRangeConflict, detail)}
	}

	return nil
}

func boundString(v float64, exclusive bool) string {
	if exclusive {
		return fmt.Sprintf("exclusive %g", v)
	}

	return fmt.Sprintf("%g", v)
}

func checkLength(className, path string, hunks []constraintHunk) []model.ValidationResult {
	var minLen, maxLen *int

	for _, h := range hunks {
		if h.minLength != nil && (minLen == nil || *h.minLength > *minLen) {
			minLen = h.minLength
		}

		if h.maxLength != nil && (maxLen == nil || *h.maxLength < *maxLen) {
			maxLen = h.maxLength
		}
	}

	if minLen == nil || maxLen == nil || *minLen <= *maxLen {
		return nil
	}

	detail := fmt.Sprintf("minLength %d > maxLength %d", *minLen, *maxLen)

	return []model.ValidationResult{rangeResult(className, path, model.ErrStringLengthConflict, detail)}
}

func checkItems(className, path string, hunks []constraintHunk) []model.ValidationResult {
	var minItems, maxItems *int

	for _, h := range hunks {
		if h.minItems != nil && (minItems == nil || *h.minItems > *minItems) {
			minItems = h.minItems
		}

		if h.maxItems != nil && (maxItems == nil || *h.maxItems < *maxItems) {
			maxItems = h.maxItems
		}
	}

	if minItems == nil || maxItems == nil || *minItems <= *maxItems {
		return nil
	}

	detail := fmt.Sprintf("minItems %d > maxItems %d", *minItems, *maxItems)

	return []model.ValidationResult{rangeResult(className, path, model.ErrArrayLengthConflict, detail)}
}

// checkEnum intersects every hunk's enum/const set pairwise in source
// order, reporting a conflict each time a source's declared set shares
// nothing with the intersection so far.
func checkEnum(className, path string, hunks []constraintHunk) []model.ValidationResult {
	var (
		results []model.ValidationResult
		running []any
		started bool
	)

	for _, h := range hunks {
		if !h.hasEnum {
			continue
		}

		if !started {
			running = h.enum
			started = true

			continue
		}

		intersection := intersectValues(running, h.enum)
		if len(intersection) == 0 {
			results = append(results, rangeResult(className, path, model.ErrEnumConflict,
				fmt.Sprintf("%v and %v do not intersect", running, h.enum)))
		}

		running = intersection
	}

	return results
}

func intersectValues(a, b []any) []any {
	var out []any

	for _, av := range a {
		for _, bv := range b {
			if av == bv {
				out = append(out, av)

				break
			}
		}
	}

	return out
}

// checkTypes reports a conflict each time a hunk's declared type
// disagrees with every type declared so far across other hunks at the same
// path.
func checkTypes(className, path string, hunks []constraintHunk) []model.ValidationResult {
	var (
		results []model.ValidationResult
		seen    []string
	)

	for _, h := range hunks {
		if h.typ == "" {
			continue
		}

		if len(seen) > 0 && !containsString(seen, h.typ) {
			results = append(results, rangeResult(className, path, model.ErrConstraintType,
				fmt.Sprintf("%v vs %q", seen, h.typ)))
		}

		seen = append(seen, h.typ)
	}

	return results
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}

	return false
}

func rangeResult(className, path string, sentinel error, detail string) model.ValidationResult {
	return model.ValidationResult{
		Level:    model.LevelWarning,
		Code:     "constraint-conflict",
		Layer:    model.LayerLineage,
		Path:     path,
		Message:  fmt.Sprintf("%s: %s", sentinel, detail),
		Instance: className,
	}
}
