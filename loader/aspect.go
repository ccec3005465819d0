package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/schema"
)

// LoadAspects walks dirs for `*.class.json` files shaped as aspect
// definitions (§4.4): identical file shape to a class definition, but
// requiring $aspect == $class and carrying $defaults instead of $fields.
func LoadAspects(dirs []model.Dir) (map[string]*model.AspectDef, error) {
	files, err := walkAllFiles(dirs, false)
	if err != nil {
		return nil, err
	}

	aspects := make(map[string]*model.AspectDef)

	for _, path := range files {
		if !strings.HasSuffix(path, classFileSuffix) {
			continue
		}

		def, err := parseAspectFile(path)
		if err != nil {
			return nil, err
		}

		if existing, ok := aspects[def.Aspect]; ok {
			return nil, fmt.Errorf("%w: aspect %q defined in both %q and %q",
				model.ErrDuplicateName, def.Aspect, existing.SourcePath, path)
		}

		aspects[def.Aspect] = def
	}

	return aspects, nil
}

func parseAspectFile(path string) (*model.AspectDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	var def model.AspectDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", model.ErrInvalidJSON, path, err)
	}

	def.SourcePath = path

	if def.Aspect == "" {
		return nil, fmt.Errorf("%w: %q: $aspect", model.ErrMissingRequiredField, path)
	}

	if def.Schema == nil {
		return nil, fmt.Errorf("%w: %q: $schema", model.ErrMissingRequiredField, path)
	}

	if def.Class != "" && def.Class != def.Aspect {
		return nil, fmt.Errorf("%w: %q: $aspect (%q) must equal $class (%q)",
			model.ErrLegacyShape, path, def.Aspect, def.Class)
	}

	def.Class = def.Aspect

	if err := schema.MetaValidate(def.Schema); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", model.ErrSchemaMetaValidation, path, err)
	}

	return &def, nil
}
