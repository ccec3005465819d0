package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/schema"
)

const classFileSuffix = ".class.json"

// LoadClasses walks dirs for `*.class.json` files and registers them into a
// name -> definition table (§4.3). Files are processed in sorted order so a
// duplicate $class always reports the same "first" file across runs.
func LoadClasses(dirs []model.Dir) (map[string]*model.ClassDef, error) {
	files, err := walkAllFiles(dirs, false)
	if err != nil {
		return nil, err
	}

	classes := make(map[string]*model.ClassDef)

	for _, path := range files {
		if !strings.HasSuffix(path, classFileSuffix) {
			continue
		}

		def, err := parseClassFile(path)
		if err != nil {
			return nil, err
		}

		if existing, ok := classes[def.Class]; ok {
			return nil, fmt.Errorf("%w: class %q defined in both %q and %q",
				model.ErrDuplicateName, def.Class, existing.SourcePath, path)
		}

		classes[def.Class] = def
	}

	return classes, nil
}

func parseClassFile(path string) (*model.ClassDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	var probe map[string]json.RawMessage

	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", model.ErrInvalidJSON, path, err)
	}

	if err := rejectLegacyParent(probe); err != nil {
		return nil, fmt.Errorf("%w: %q", err, path)
	}

	if _, ok := probe["$aspects"]; ok {
		return nil, fmt.Errorf("%w: %q: legacy $aspects array; use $uses_aspects", model.ErrLegacyShape, path)
	}

	var def model.ClassDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", model.ErrInvalidJSON, path, err)
	}

	def.SourcePath = path

	if def.Class == "" {
		return nil, fmt.Errorf("%w: %q: $class", model.ErrMissingRequiredField, path)
	}

	if def.Schema == nil {
		return nil, fmt.Errorf("%w: %q: $schema", model.ErrMissingRequiredField, path)
	}

	if err := schema.MetaValidate(def.Schema); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", model.ErrSchemaMetaValidation, path, err)
	}

	return &def, nil
}

// rejectLegacyParent fails if $parent is present but not a JSON string
// (Open Question (b): multi-parent via an array is rejected in strict
// mode).
func rejectLegacyParent(probe map[string]json.RawMessage) error {
	raw, ok := probe["$parent"]
	if !ok {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("%w: $parent must be a single class name, not an array", model.ErrLegacyShape)
	}

	return nil
}
