package validate

import (
	"fmt"
	"sort"
	"strings"

	"go.jacobcolvin.com/struktur/model"
)

// Summarize aggregates per-instance validation results into the canonical
// model's $validation block (§4.9 "Batch validation iterates and
// aggregates"). An instance counts as invalid if any of its results is
// level=error.
func Summarize(total int, resultsByInstance map[string][]model.ValidationResult) model.ValidationSummary {
	summary := model.ValidationSummary{Total: total}

	invalid := make(map[string]bool)

	for instance, results := range resultsByInstance {
		for _, r := range results {
			summary.Errors = append(summary.Errors, r)

			if r.Level == model.LevelError {
				invalid[instance] = true
			}
		}
	}

	summary.Invalid = len(invalid)
	summary.Valid = total - summary.Invalid

	sort.Slice(summary.Errors, func(i, j int) bool {
		if summary.Errors[i].Instance != summary.Errors[j].Instance {
			return summary.Errors[i].Instance < summary.Errors[j].Instance
		}

		return summary.Errors[i].Code < summary.Errors[j].Code
	})

	return summary
}

// HasErrors reports whether summary contains any level=error result -- the
// orchestrator's abort condition for phase 6 (§4.15).
func HasErrors(summary model.ValidationSummary) bool {
	for _, r := range summary.Errors {
		if r.Level == model.LevelError {
			return true
		}
	}

	return false
}

// FormatSummary renders a user-visible grouping of a validation summary:
// missing-required, type-mismatch, pattern-errors, unexpected-fields, and
// a catch-all "other" bucket, each listing its results with the offending
// instance names (§7 "User-visible formatting groups errors by keyword").
func FormatSummary(summary *model.ValidationSummary) string {
	groups := map[string][]model.ValidationResult{
		"missing required": nil,
		"type mismatches":  nil,
		"pattern errors":   nil,
		"unexpected fields": nil,
		"other":            nil,
	}

	order := []string{"missing required", "type mismatches", "pattern errors", "unexpected fields", "other"}

	for _, r := range summary.Errors {
		groups[bucketFor(r)] = append(groups[bucketFor(r)], r)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%d/%d instances valid (%d invalid)\n", summary.Valid, summary.Total, summary.Invalid)

	for _, name := range order {
		rs := groups[name]
		if len(rs) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n%s:\n", name)

		for _, r := range rs {
			fmt.Fprintf(&b, "  [%s] %s: %s", r.Level, r.Instance, r.Message)

			if r.Path != "" {
				fmt.Fprintf(&b, " (at %s)", r.Path)
			}

			b.WriteByte('\n')
		}
	}

	return b.String()
}

func bucketFor(r model.ValidationResult) string {
	switch r.Code {
	case "missing-required-aspect":
		return "missing required"
	case "schema-violation":
		if strings.Contains(r.Message, "type") {
			return "type mismatches"
		}

		if strings.Contains(r.Message, "pattern") {
			return "pattern errors"
		}

		if strings.Contains(r.Message, "additionalProperties") || strings.Contains(r.Message, "unexpected") {
			return "unexpected fields"
		}

		return "other"
	case "undeclared-aspect":
		return "unexpected fields"
	default:
		return "other"
	}
}
