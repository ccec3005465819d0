package render

import (
	"cmp"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.jacobcolvin.com/struktur/model"
)

// GenericHelpers returns the pure, struktur-agnostic helper set every
// adapter registers (§6 "Generic" template helpers): comparison, string,
// collection, and utility functions. None of these close over build state,
// so a single map can be reused across every render in a build.
func GenericHelpers() map[string]HelperFunc {
	return map[string]HelperFunc{
		"eq":  func(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) },
		"ne":  func(a, b any) bool { return fmt.Sprint(a) != fmt.Sprint(b) },
		"lt":  func(a, b float64) bool { return a < b },
		"lte": func(a, b float64) bool { return a <= b },
		"gt":  func(a, b float64) bool { return a > b },
		"gte": func(a, b float64) bool { return a >= b },
		"and": func(a, b bool) bool { return a && b },
		"or":  func(a, b bool) bool { return a || b },
		"not": func(a bool) bool { return !a },

		"lowercase":  strings.ToLower,
		"uppercase":  strings.ToUpper,
		"capitalize": capitalize,
		"title_case": titleCase,
		"slugify":    slugify,
		"trim":       strings.TrimSpace,
		"split":      func(s, sep string) []string { return strings.Split(s, sep) },
		"replace":    func(s, old, newS string) string { return strings.ReplaceAll(s, old, newS) },
		"substring":  substring,
		"escape":     escapeHTML,

		"where":          where,
		"where_includes": whereIncludes,
		"sort_by":        sortBy,
		"pluck":          pluck,
		"flatten":        flatten,
		"unique":         unique,
		"group_by":       groupBy,
		"first":          first,
		"last":           last,
		"reverse":        reverseSlice,
		"compact":        compact,
		"length":         length,

		"default_value": func(v, fallback any) any {
			if isEmptyValue(v) {
				return fallback
			}

			return v
		},
		"array":    func(items ...any) []any { return items },
		"identity": func(v any) any { return v },
		"concat":   func(a, b []any) []any { return append(append([]any{}, a...), b...) },
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)

			return string(b), err
		},

		"is_array":   func(v any) bool { _, ok := v.([]any); return ok },
		"is_object":  func(v any) bool { _, ok := v.(map[string]any); return ok },
		"is_string":  func(v any) bool { _, ok := v.(string); return ok },
		"is_number":  func(v any) bool { _, ok := v.(float64); return ok },
		"is_boolean": func(v any) bool { _, ok := v.(bool); return ok },
		"is_nil":     func(v any) bool { return v == nil },
		"type_of":    typeOf,

		"values": mapValues,
		"keys":   mapKeys,
		"lookup": func(m map[string]any, key string) any { return m[key] },
		"exists": func(m map[string]any, key string) bool { _, ok := m[key]; return ok },
		"has":    func(m map[string]any, key string) bool { _, ok := m[key]; return ok },
		"get":    func(m map[string]any, key string) any { return m[key] },

		"add": func(a, b float64) float64 { return a + b },
		"sub": func(a, b float64) float64 { return a - b },
		"abs": func(a float64) float64 {
			if a < 0 {
				return -a
			}

			return a
		},
	}
}

// SchemaHelpers returns the struktur-specific helpers bound to a canonical
// model (§6 "Struktur-specific" helpers): lineage and schema introspection
// that templates use to branch on a class's inheritance chain or schema
// shape without the renderer exposing raw *jsonschema.Schema internals.
func SchemaHelpers(canonical *model.Canonical) map[string]HelperFunc {
	return map[string]HelperFunc{
		"inherits": func(className, ancestor string) bool {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return false
			}

			for _, name := range resolved.Lineage {
				if name == ancestor {
					return true
				}
			}

			return false
		},
		"filter_inherits": func(ancestor string) []*model.CanonicalInstance {
			var out []*model.CanonicalInstance

			for _, inst := range canonical.Instances {
				resolved, ok := canonical.ClassesByID[inst.Class]
				if !ok {
					continue
				}

				for _, name := range resolved.Lineage {
					if name == ancestor {
						out = append(out, inst)

						break
					}
				}
			}

			return out
		},
		"class_lineage": func(className string) []string {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return nil
			}

			return resolved.Lineage
		},
		"schema_required": func(className string) []string {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return nil
			}

			var required []string

			for _, s := range resolved.Schemas {
				if s != nil {
					required = append(required, s.Required...)
				}
			}

			return required
		},
		"schema_has": func(className, field string) bool {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return false
			}

			for _, s := range resolved.Schemas {
				if s == nil {
					continue
				}

				if _, ok := s.Properties[field]; ok {
					return true
				}
			}

			return false
		},
		"schema_props": func(className string) []string {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return nil
			}

			seen := make(map[string]bool)

			var props []string

			for _, s := range resolved.Schemas {
				if s == nil {
					continue
				}

				for name := range s.Properties {
					if !seen[name] {
						seen[name] = true

						props = append(props, name)
					}
				}
			}

			sort.Strings(props)

			return props
		},
		"schema_prop_source": func(className, field string) string {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return ""
			}

			for i, s := range resolved.Schemas {
				if s == nil {
					continue
				}

				if _, ok := s.Properties[field]; ok {
					return resolved.Lineage[i]
				}
			}

			return ""
		},
		"schema_required_by_source": func(className string) map[string][]string {
			resolved, ok := canonical.ClassesByID[className]
			if !ok {
				return nil
			}

			out := make(map[string][]string)

			for i, s := range resolved.Schemas {
				if s == nil || len(s.Required) == 0 {
					continue
				}

				out[resolved.Lineage[i]] = s.Required
			}

			return out
		},
	}
}

// BufferHelpers returns the layout/yield protocol helpers bound to one
// render Context (§4.11, §6 "Buffer/layout"). A fresh map must be built
// per Context -- these closures are not safe to share across renders,
// since each owns the one Context it mutates.
func BufferHelpers(ctx *Context) map[string]HelperFunc {
	return map[string]HelperFunc{
		// buffer is invoked by the adapter around a block of rendered
		// content it already has in hand; the helper's job is only to
		// route that content into ctx via WriteBuffer; it returns "" since
		// the content it files away does not also appear inline.
		"buffer": func(name, content string, args ...string) string {
			mode := BufferReplace
			destination := ""

			if len(args) > 0 && args[0] != "" {
				mode = BufferMode(args[0])
			}

			if len(args) > 1 {
				destination = args[1]
			}

			ctx.WriteBuffer(name, mode, destination, content)

			return ""
		},
		"yield": func(name string, def ...string) string {
			if ctx.HasBuffer(name) {
				return ctx.ReadBuffer(name)
			}

			if len(def) > 0 {
				return def[0]
			}

			return ""
		},
		"buffer_exists": func(name string) bool {
			return ctx.HasBuffer(name)
		},
		"extends": func(layout string) string {
			return layout // adapters read the return value to drive the layout phase.
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(strings.ToLower(w))
	}

	return strings.Join(words, " ")
}

func slugify(s string) string {
	var b strings.Builder

	lastDash := false

	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

func substring(s string, start, end int) string {
	if start < 0 {
		start = 0
	}

	if end > len(s) {
		end = len(s)
	}

	if start >= end {
		return ""
	}

	return s[start:end]
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")

	return replacer.Replace(s)
}

func where(items []any, key string, value any) []any {
	var out []any

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if fmt.Sprint(m[key]) == fmt.Sprint(value) {
			out = append(out, item)
		}
	}

	return out
}

func whereIncludes(items []any, key string, value any) []any {
	var out []any

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		arr, ok := m[key].([]any)
		if !ok {
			continue
		}

		for _, v := range arr {
			if fmt.Sprint(v) == fmt.Sprint(value) {
				out = append(out, item)

				break
			}
		}
	}

	return out
}

func sortBy(items []any, key string) []any {
	out := append([]any{}, items...)

	sort.SliceStable(out, func(i, j int) bool {
		mi, _ := out[i].(map[string]any)
		mj, _ := out[j].(map[string]any)

		return cmp.Less(fmt.Sprint(mi[key]), fmt.Sprint(mj[key]))
	})

	return out
}

func pluck(items []any, key string) []any {
	out := make([]any, 0, len(items))

	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m[key])
		}
	}

	return out
}

func flatten(items []any) []any {
	var out []any

	for _, item := range items {
		if nested, ok := item.([]any); ok {
			out = append(out, flatten(nested)...)
		} else {
			out = append(out, item)
		}
	}

	return out
}

func unique(items []any) []any {
	seen := make(map[string]bool, len(items))

	var out []any

	for _, item := range items {
		key := fmt.Sprint(item)
		if !seen[key] {
			seen[key] = true

			out = append(out, item)
		}
	}

	return out
}

func groupBy(items []any, key string) map[string][]any {
	out := make(map[string][]any)

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		k := fmt.Sprint(m[key])
		out[k] = append(out[k], item)
	}

	return out
}

func first(items []any) any {
	if len(items) == 0 {
		return nil
	}

	return items[0]
}

func last(items []any) any {
	if len(items) == 0 {
		return nil
	}

	return items[len(items)-1]
}

func reverseSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}

	return out
}

func compact(items []any) []any {
	var out []any

	for _, item := range items {
		if !isEmptyValue(item) {
			out = append(out, item)
		}
	}

	return out
}

func length(v any) int {
	switch val := v.(type) {
	case []any:
		return len(val)
	case map[string]any:
		return len(val)
	case string:
		return len(val)
	default:
		return 0
	}
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case bool:
		return !val
	case float64:
		return val == 0
	default:
		return false
	}
}

func typeOf(v any) string {
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
		return strconv.Quote(fmt.Sprintf("%T", v))
	}
}

func mapValues(m map[string]any) []any {
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}

	return out
}

func mapKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
