// Package buildconfig loads the YAML build configuration a struktur build
// runs from (§6 "Build configuration (logical)").
package buildconfig

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"go.jacobcolvin.com/struktur/model"
)

// Config is the logical build configuration: where every input tree lives,
// which engine renders templates, and the handful of behavioral toggles
// the orchestrator consults.
type Config struct {
	ClassDirs    []model.Dir `yaml:"classDirs"`
	AspectDirs   []model.Dir `yaml:"aspectDirs"`
	InstanceDirs []model.Dir `yaml:"instanceDirs"`
	TemplateDirs []model.Dir `yaml:"templateDirs"`

	BuildDir string `yaml:"buildDir"`
	Engine   string `yaml:"engine"`

	StrictTemplates  bool `yaml:"strictTemplates"`
	Deterministic    bool `yaml:"deterministic"`
	FailOnCollisions bool `yaml:"failOnCollisions"`

	// PromoteConstraintConflicts turns the Schema Constraint Checker's
	// diagnostic-only findings into fatal errors (Open Question (c)).
	PromoteConstraintConflicts bool `yaml:"promoteConstraintConflicts"`

	RenderTasks []model.RenderTask `yaml:"renderTasks"`
}

// dirList unmarshals a YAML sequence whose elements are each either a bare
// string (an explicit path) or a `{path, explicit}` mapping, into
// []model.Dir, matching §6's "each directory entry is either a plain path
// ... or {path, explicit}" union.
type dirList []model.Dir

// UnmarshalYAML implements yaml.InterfaceUnmarshaler-style custom decoding
// by inspecting each element before committing to a shape, generalizing
// the teacher's own tolerant-YAML-shape parsing in
// `magicschema/generator.go` (which accepts both inline and anchor-refed
// node shapes for the same logical field).
func (d *dirList) UnmarshalYAML(unmarshal func(any) error) error {
	var raw []any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	out := make([]model.Dir, 0, len(raw))

	for _, entry := range raw {
		dir, err := decodeDirEntry(entry)
		if err != nil {
			return err
		}

		out = append(out, dir)
	}

	*d = out

	return nil
}

func decodeDirEntry(entry any) (model.Dir, error) {
	switch v := entry.(type) {
	case string:
		return model.Dir{Path: v, Explicit: true}, nil
	case map[string]any:
		dir := model.Dir{Explicit: true}

		if path, ok := v["path"].(string); ok {
			dir.Path = path
		}

		if explicit, ok := v["explicit"].(bool); ok {
			dir.Explicit = explicit
		}

		return dir, nil
	default:
		return model.Dir{}, fmt.Errorf("%w: directory entry must be a string or mapping, got %T", model.ErrInvalidJSON, entry)
	}
}

// rawConfig mirrors Config but with dirList in place of []model.Dir, so
// Load can delegate to goccy/go-yaml's normal struct decoding for every
// other field while dirList's UnmarshalYAML handles the union shape.
type rawConfig struct {
	ClassDirs    dirList `yaml:"classDirs"`
	AspectDirs   dirList `yaml:"aspectDirs"`
	InstanceDirs dirList `yaml:"instanceDirs"`
	TemplateDirs dirList `yaml:"templateDirs"`

	BuildDir string `yaml:"buildDir"`
	Engine   string `yaml:"engine"`

	StrictTemplates            bool `yaml:"strictTemplates"`
	Deterministic              bool `yaml:"deterministic"`
	FailOnCollisions           bool `yaml:"failOnCollisions"`
	PromoteConstraintConflicts bool `yaml:"promoteConstraintConflicts"`

	RenderTasks []model.RenderTask `yaml:"renderTasks"`
}

// Load parses YAML build configuration from data.
func Load(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidJSON, err)
	}

	cfg := &Config{
		ClassDirs:                  []model.Dir(raw.ClassDirs),
		AspectDirs:                 []model.Dir(raw.AspectDirs),
		InstanceDirs:               []model.Dir(raw.InstanceDirs),
		TemplateDirs:               []model.Dir(raw.TemplateDirs),
		BuildDir:                   raw.BuildDir,
		Engine:                     raw.Engine,
		StrictTemplates:            raw.StrictTemplates,
		Deterministic:              raw.Deterministic,
		FailOnCollisions:           raw.FailOnCollisions,
		PromoteConstraintConflicts: raw.PromoteConstraintConflicts,
		RenderTasks:                raw.RenderTasks,
	}

	if cfg.Engine == "" {
		cfg.Engine = "gotemplate"
	}

	return cfg, nil
}

// LoadFile reads and parses YAML build configuration from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build config %q: %w", path, err)
	}

	return Load(data)
}
