package model

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Dir names one directory to load definitions from. Explicit directories
// that are missing are fatal; non-explicit (default) directories that are
// missing are silently skipped (§4.3 "Explicit (user-given) directory
// missing = fatal; default directory missing = silent skip").
type Dir struct {
	Path     string `json:"path"`
	Explicit bool   `json:"explicit"`
}

// ClassDef is a parsed `*.class.json` definition, before resolution.
type ClassDef struct {
	Class       string             `json:"$class"`
	Parent      string             `json:"$parent,omitempty"`
	Schema      *jsonschema.Schema `json:"$schema"`
	Fields      map[string]any     `json:"$fields,omitempty"`
	UsesAspects []string           `json:"$uses_aspects,omitempty"`
	// RequiredAspects names the subset of UsesAspects an instance of this
	// class (or a descendant) must supply data for; the remainder are
	// merely declared available. Defaults to empty (nothing required).
	RequiredAspects []string                  `json:"$required_aspects,omitempty"`
	AspectDefaults  map[string]map[string]any `json:"$aspect_defaults,omitempty"`

	// SourcePath is the file this definition was loaded from. Not
	// serialized; used only for diagnostics.
	SourcePath string `json:"-"`
}

// AspectDef is a parsed aspect definition file.
type AspectDef struct {
	Aspect   string             `json:"$aspect"`
	Class    string             `json:"$class"`
	Schema   *jsonschema.Schema `json:"$schema"`
	Defaults map[string]any     `json:"$defaults,omitempty"`

	SourcePath string `json:"-"`
}

// RenderTask names one file to produce. No other keys are permitted on the
// wire; the instance loader rejects any other key in a `$render` entry.
type RenderTask struct {
	Template string `json:"template"`
	Output   string `json:"output"`
}

// Instance is a loaded (not yet merged) data record.
type Instance struct {
	ID      string                    `json:"$id"`
	Class   string                    `json:"$class"`
	Aspects map[string]map[string]any `json:"$aspects,omitempty"`
	Render  []RenderTask              `json:"$render,omitempty"`

	// Data holds every non-$-prefixed (and non-reserved) top-level field,
	// i.e. the instance's own class-schema-governed payload.
	Data map[string]any `json:"-"`

	// SourcePaths records every file that contributed to this record.
	// A freshly loaded (pre-merge) instance has exactly one entry.
	SourcePaths []string `json:"-"`
}

// ResolvedClass is the memoized output of the Class Resolver (§4.7).
type ResolvedClass struct {
	Name    string   `json:"$class"`
	Lineage []string `json:"$lineage"` // root -> leaf, inclusive of Name.
	// Schemas holds each lineage member's own schema fragment, in lineage
	// order. These are never merged with one another.
	Schemas []*jsonschema.Schema `json:"$schemas"`
	// Fields is the class-merged accumulation of every lineage member's
	// $fields, leaf-last (leaf wins on conflict).
	Fields map[string]any `json:"$fields,omitempty"`
	// UsesAspects is the union of every lineage member's $uses_aspects.
	UsesAspects []string `json:"$uses_aspects,omitempty"`
	// RequiredAspects is the union of every lineage member's
	// $required_aspects; always a subset of UsesAspects.
	RequiredAspects []string `json:"$required_aspects,omitempty"`
	// AspectDefaults is the class-merged, leaf-last accumulation of every
	// lineage member's $aspect_defaults, per aspect name.
	AspectDefaults map[string]map[string]any `json:"$aspect_defaults,omitempty"`
}

// CanonicalInstance is an Instance after the three-layer aspect merge and
// class-default application (§4.10).
type CanonicalInstance struct {
	ID          string                    `json:"$id"`
	Class       string                    `json:"$class"`
	UsesAspects []string                  `json:"$uses_aspects"`
	Aspects     map[string]map[string]any `json:"$aspects"`
	Render      []RenderTask              `json:"$render,omitempty"`
	Data        map[string]any            `json:"-"`
}

// MarshalJSON flattens Data alongside the $-prefixed fields, matching the
// wire shape instances themselves use: arbitrary data fields live at the
// top level next to $id/$class/etc.
func (c *CanonicalInstance) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Data)+5)
	for k, v := range c.Data {
		out[k] = v
	}

	out["$id"] = c.ID
	out["$class"] = c.Class
	out["$uses_aspects"] = c.UsesAspects
	out["$aspects"] = c.Aspects

	if len(c.Render) > 0 {
		out["$render"] = c.Render
	}

	return json.Marshal(out)
}

// AspectSummary decorates an aspect for the canonical model's
// $aspects_by_id index.
type AspectSummary struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	PrettyName  string             `json:"pretty_name,omitempty"`
	Schema      *jsonschema.Schema `json:"schema,omitempty"`
	Defaults    map[string]any     `json:"defaults,omitempty"`
}

// Metadata is the canonical model's $metadata block.
type Metadata struct {
	Timestamp        string `json:"timestamp"`
	GeneratorVersion string `json:"generator_version"`
	InstanceCount    int    `json:"instance_count"`
	ClassCount       int    `json:"class_count"`
	AspectCount      int    `json:"aspect_count"`
}

// ValidationSummary is the canonical model's $validation block.
type ValidationSummary struct {
	Total   int                `json:"total"`
	Valid   int                `json:"valid"`
	Invalid int                `json:"invalid"`
	Errors  []ValidationResult `json:"errors"`
}

// ValidationLevel distinguishes hard failures from advisory findings.
type ValidationLevel string

// Validation levels, per §4.9 and §7.
const (
	LevelError   ValidationLevel = "error"
	LevelWarning ValidationLevel = "warning"
)

// ValidationLayer identifies which validator pass produced a result.
type ValidationLayer string

// Validation layers, in the fixed pass order of §4.9.
const (
	LayerBase     ValidationLayer = "base"
	LayerLineage  ValidationLayer = "lineage"
	LayerAspect   ValidationLayer = "aspect"
	LayerSemantic ValidationLayer = "semantic"
	LayerLint     ValidationLayer = "lint"
)

// ValidationResult is one structured finding from the Multi-Pass Validator.
type ValidationResult struct {
	Level    ValidationLevel `json:"level"`
	Code     string          `json:"code"`
	Layer    ValidationLayer `json:"layer"`
	Path     string          `json:"path,omitempty"`
	Message  string          `json:"message"`
	Instance string          `json:"instance"`
	Aspect   string          `json:"aspect,omitempty"`
}

// Canonical is the complete canonical model (§3 "Canonical model (output)").
type Canonical struct {
	Instances       []*CanonicalInstance      `json:"$instances"`
	InstancesByID   map[string]*CanonicalInstance `json:"$instances_by_id"`
	ClassesByID     map[string]*ResolvedClass `json:"$classes_by_id"`
	AspectsByID     map[string]*AspectSummary `json:"$aspects_by_id"`
	Metadata        Metadata                  `json:"$metadata"`
	Validation      ValidationSummary         `json:"$validation"`
}
