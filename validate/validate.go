// Package validate implements the Multi-Pass Validator (§4.9): for each
// instance, a fixed sequence of passes runs against the instance's
// resolved class, aggregating structured model.ValidationResult entries
// rather than aborting on the first failure.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/schema"
)

// baseEnvelopeKeys lists the only top-level $-prefixed keys an instance may
// carry; anything else $-prefixed is rejected by the base pass.
var baseEnvelopeKeys = map[string]bool{
	"$id": true, "$class": true, "$aspects": true, "$render": true,
}

// Validator runs the fixed pass sequence over instances, caching compiled
// class/aspect schemas by name so repeated instances of the same class
// only pay compilation cost once (§4.9 "Registration caching").
type Validator struct {
	classes schema.Cache
	aspects schema.Cache

	// LintSignificantArrays names the Data fields the lint pass treats as
	// "significant" -- empty is worth a warning. Configurable per spec.md
	// §4.9's "empty 'significant' arrays (configurable names)".
	LintSignificantArrays []string
}

// New returns a Validator with its schema caches ready to use.
func New() *Validator {
	return &Validator{}
}

// Validate runs every pass for one instance against its resolved class and
// the aspect definitions it references, returning every ValidationResult
// produced (errors and warnings alike). It never returns a Go error for a
// failing instance -- that is exactly what ValidationResult communicates.
func (v *Validator) Validate(
	inst *model.Instance,
	resolved *model.ResolvedClass,
	aspects map[string]*model.AspectDef,
) []model.ValidationResult {
	var results []model.ValidationResult

	results = append(results, v.basePass(inst)...)
	results = append(results, v.lineagePass(inst, resolved)...)
	results = append(results, v.aspectPass(inst, resolved, aspects)...)
	results = append(results, semanticPass(inst)...)
	results = append(results, v.lintPass(inst, resolved)...)

	return results
}

// basePass enforces the built-in envelope: only known $-prefixed keys,
// non-empty $id and $class shape.
func (v *Validator) basePass(inst *model.Instance) []model.ValidationResult {
	var results []model.ValidationResult

	if inst.ID == "" {
		results = append(results, errResult(model.LayerBase, "base.id", "missing or empty $id", inst.ID))
	}

	if inst.Class == "" {
		results = append(results, errResult(model.LayerBase, "base.class", "missing or empty $class", inst.ID))
	}

	for _, key := range sortedDataKeys(inst.Data) {
		if strings.HasPrefix(key, "$") && !baseEnvelopeKeys[key] {
			results = append(results, model.ValidationResult{
				Level:    model.LevelError,
				Code:     "base.envelope",
				Layer:    model.LayerBase,
				Path:     key,
				Message:  fmt.Sprintf("%s: %q", model.ErrUnknownEnvelopeKey, key),
				Instance: inst.ID,
			})
		}
	}

	return results
}

// sortedDataKeys returns m's keys in sorted order, so a rejected instance's
// envelope findings come out in deterministic order regardless of Go's
// randomized map iteration.
func sortedDataKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// lineagePass validates inst.Data against every lineage member's own
// (unmerged) schema fragment, per §4.9 point 2.
func (v *Validator) lineagePass(inst *model.Instance, resolved *model.ResolvedClass) []model.ValidationResult {
	var results []model.ValidationResult

	for i, className := range resolved.Lineage {
		if i >= len(resolved.Schemas) || resolved.Schemas[i] == nil {
			continue
		}

		compiled, err := v.classes.GetOrCompile("class:"+className, resolved.Schemas[i])
		if err != nil {
			results = append(results, errResult(model.LayerLineage,
				"$schemas["+className+"]", err.Error(), inst.ID))

			continue
		}

		if err := compiled.Validate(inst.Data); err != nil {
			results = append(results, model.ValidationResult{
				Level:    model.LevelError,
				Code:     "schema-violation",
				Layer:    model.LayerLineage,
				Path:     className,
				Message:  err.Error(),
				Instance: inst.ID,
			})
		}
	}

	return results
}

// aspectPass enforces §4.9 point 3: every aspect the instance supplies data
// for must be declared by the class's lineage, every aspect the lineage
// marks required must have instance data, and any present aspect data
// validates against that aspect's own schema.
func (v *Validator) aspectPass(
	inst *model.Instance,
	resolved *model.ResolvedClass,
	aspects map[string]*model.AspectDef,
) []model.ValidationResult {
	var results []model.ValidationResult

	declared := toSet(resolved.UsesAspects)
	required := toSet(resolved.RequiredAspects)

	for name := range inst.Aspects {
		if !declared[name] {
			results = append(results, model.ValidationResult{
				Level:    model.LevelError,
				Code:     "undeclared-aspect",
				Layer:    model.LayerAspect,
				Message:  fmt.Sprintf("%s: %q", model.ErrUndeclaredAspect, name),
				Instance: inst.ID,
				Aspect:   name,
			})
		}
	}

	for name := range required {
		if _, ok := inst.Aspects[name]; !ok {
			results = append(results, model.ValidationResult{
				Level:    model.LevelError,
				Code:     "missing-required-aspect",
				Layer:    model.LayerAspect,
				Message:  fmt.Sprintf("%s: %q", model.ErrMissingRequiredAspect, name),
				Instance: inst.ID,
				Aspect:   name,
			})
		}
	}

	for name, data := range inst.Aspects {
		def, ok := aspects[name]
		if !ok || def.Schema == nil {
			continue
		}

		compiled, err := v.aspects.GetOrCompile("aspect:"+name, def.Schema)
		if err != nil {
			results = append(results, model.ValidationResult{
				Level: model.LevelError, Code: "no-validator-registered", Layer: model.LayerAspect,
				Message: err.Error(), Instance: inst.ID, Aspect: name,
			})

			continue
		}

		if err := compiled.Validate(data); err != nil {
			results = append(results, model.ValidationResult{
				Level: model.LevelError, Code: "schema-violation", Layer: model.LayerAspect,
				Message: err.Error(), Instance: inst.ID, Aspect: name,
			})
		}
	}

	return results
}

var placeholderPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|XXX|TBD)\b`)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	ipv4Pattern     = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
)

// semanticPass runs format spot-checks and placeholder detection over
// every string field in the instance's Data, warning-only by default
// (§4.9 point 4). Fields are inspected by name hint where the field name
// suggests a format ("email", "host"/"hostname", "ip",
// "port"), matching the spirit of the teacher's own best-effort,
// never-fatal inference style.
func semanticPass(inst *model.Instance) []model.ValidationResult {
	var results []model.ValidationResult

	walkStrings(inst.Data, "", func(path, s string) {
		if placeholderPattern.MatchString(s) {
			results = append(results, warnResult(model.LayerSemantic, path,
				fmt.Sprintf("looks like placeholder text: %q", s), inst.ID))
		}

		lower := strings.ToLower(path)

		switch {
		case strings.Contains(lower, "email") && !emailPattern.MatchString(s):
			results = append(results, warnResult(model.LayerSemantic, path, "does not look like an email address", inst.ID))
		case (strings.Contains(lower, "hostname") || strings.Contains(lower, "host")) && !hostnamePattern.MatchString(s):
			results = append(results, warnResult(model.LayerSemantic, path, "does not look like a hostname", inst.ID))
		case strings.Contains(lower, "ip") && ipv4Pattern.MatchString(s) && !validIPv4Octets(s):
			results = append(results, warnResult(model.LayerSemantic, path, "has an out-of-range IPv4 octet", inst.ID))
		}
	})

	walkNumbers(inst.Data, "", func(path string, n float64) {
		if strings.Contains(strings.ToLower(path), "port") && (n <= 0 || n > 65535) {
			results = append(results, warnResult(model.LayerSemantic, path, "port out of range 1-65535", inst.ID))
		}
	})

	return results
}

func validIPv4Octets(s string) bool {
	m := ipv4Pattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}

	for _, part := range m[1:] {
		n := 0
		for _, c := range part {
			n = n*10 + int(c-'0')
		}

		if n > 255 {
			return false
		}
	}

	return true
}

var kebabCasePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// lintPass checks naming/documentation conventions and suspicious values
// (§4.9 point 5). All findings are warnings.
func (v *Validator) lintPass(inst *model.Instance, resolved *model.ResolvedClass) []model.ValidationResult {
	var results []model.ValidationResult

	if inst.ID != "" && !kebabCasePattern.MatchString(inst.ID) {
		results = append(results, warnResult(model.LayerLint, "$id", fmt.Sprintf("%q is not kebab-case", inst.ID), inst.ID))
	}

	if _, ok := inst.Data["description"]; !ok {
		results = append(results, warnResult(model.LayerLint, "description", "missing description", inst.ID))
	}

	for _, name := range v.LintSignificantArrays {
		raw, ok := inst.Data[name]
		if !ok {
			continue
		}

		if arr, isArr := raw.([]any); isArr && len(arr) == 0 {
			results = append(results, warnResult(model.LayerLint, name, "significant array is empty", inst.ID))
		}
	}

	if name, ok := inst.Data["name"]; ok {
		if s, isStr := name.(string); isStr && s == "" {
			results = append(results, warnResult(model.LayerLint, "name", "name is empty", inst.ID))
		}
	}

	if port, ok := inst.Data["port"]; ok {
		if n, isNum := port.(float64); isNum && n == 0 {
			results = append(results, warnResult(model.LayerLint, "port", "port is 0", inst.ID))
		}
	}

	_ = resolved // reserved for future lineage-aware lint rules.

	return results
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	return set
}

func walkStrings(v any, path string, fn func(path, s string)) {
	switch val := v.(type) {
	case string:
		fn(path, val)
	case map[string]any:
		for k, child := range val {
			walkStrings(child, joinPath(path, k), fn)
		}
	case []any:
		for i, child := range val {
			walkStrings(child, fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}

func walkNumbers(v any, path string, fn func(path string, n float64)) {
	switch val := v.(type) {
	case float64:
		fn(path, val)
	case map[string]any:
		for k, child := range val {
			walkNumbers(child, joinPath(path, k), fn)
		}
	case []any:
		for i, child := range val {
			walkNumbers(child, fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}

	return path + "." + key
}

func errResult(layer model.ValidationLayer, code, message, instance string) model.ValidationResult {
	return model.ValidationResult{Level: model.LevelError, Code: code, Layer: layer, Message: message, Instance: instance}
}

func warnResult(layer model.ValidationLayer, path, message, instance string) model.ValidationResult {
	return model.ValidationResult{Level: model.LevelWarning, Code: "lint", Layer: layer, Path: path, Message: message, Instance: instance}
}
