package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.jacobcolvin.com/struktur/model"
)

var reservedInstanceKeys = map[string]bool{
	"$id": true, "$class": true, "$aspects": true, "$render": true,
}

var legacyTopLevelKeys = []string{"id", "class", "render", "aspects"}

// InstanceLoadResult is the outcome of LoadInstances: successfully loaded
// records plus a reject list of files lacking $class entirely. Missing
// $class is not immediately fatal at load time -- the orchestrator turns a
// non-empty Rejected list into a fatal error after loading completes, so a
// build reports every classless file in one pass (§4.5).
type InstanceLoadResult struct {
	Instances []*model.Instance
	Rejected  []string // file paths with no $class.
}

// LoadInstances recursively walks dirs (skipping reserved subdirectories),
// parsing every `*.json` file that is not a `*.class.json` or
// `*.schema.json` fragment as an instance record (§4.5).
func LoadInstances(dirs []model.Dir) (*InstanceLoadResult, error) {
	files, err := walkAllFiles(dirs, true)
	if err != nil {
		return nil, err
	}

	result := &InstanceLoadResult{}

	for _, path := range files {
		if !strings.HasSuffix(path, ".json") ||
			strings.HasSuffix(path, classFileSuffix) ||
			strings.HasSuffix(path, ".schema.json") {
			continue
		}

		inst, classless, err := parseInstanceFile(path)
		if err != nil {
			return nil, err
		}

		if classless {
			result.Rejected = append(result.Rejected, path)

			continue
		}

		result.Instances = append(result.Instances, inst)
	}

	return result, nil
}

func parseInstanceFile(path string) (*model.Instance, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading %q: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return nil, false, fmt.Errorf("%w: %q", model.ErrArrayInstanceFile, path)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("%w: %q: %w", model.ErrInvalidJSON, path, err)
	}

	for _, legacy := range legacyTopLevelKeys {
		if _, ok := fields[legacy]; ok {
			return nil, false, fmt.Errorf("%w: %q: unprefixed key %q, expected $%s",
				model.ErrLegacyShape, path, legacy, legacy)
		}
	}

	var id string
	if raw, ok := fields["$id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, false, fmt.Errorf("%w: %q: $id must be a string", model.ErrInvalidJSON, path)
		}
	}

	if id == "" {
		return nil, false, fmt.Errorf("%w: %q", model.ErrMissingID, path)
	}

	var class string
	if raw, ok := fields["$class"]; ok {
		_ = json.Unmarshal(raw, &class)
	}

	if class == "" {
		return nil, true, nil
	}

	var aspects map[string]map[string]any
	if raw, ok := fields["$aspects"]; ok {
		if err := json.Unmarshal(raw, &aspects); err != nil {
			return nil, false, fmt.Errorf("%w: %q: $aspects must be an object", model.ErrInvalidJSON, path)
		}
	}

	renderTasks, err := parseRenderTasks(fields, path)
	if err != nil {
		return nil, false, err
	}

	data := make(map[string]any, len(fields))

	for k, raw := range fields {
		if reservedInstanceKeys[k] {
			continue
		}

		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, false, fmt.Errorf("%w: %q: field %q: %w", model.ErrInvalidJSON, path, k, err)
		}

		data[k] = v
	}

	return &model.Instance{
		ID:          id,
		Class:       class,
		Aspects:     aspects,
		Render:      renderTasks,
		Data:        data,
		SourcePaths: []string{path},
	}, false, nil
}

func parseRenderTasks(fields map[string]json.RawMessage, path string) ([]model.RenderTask, error) {
	raw, ok := fields["$render"]
	if !ok {
		return nil, nil
	}

	var rawTasks []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rawTasks); err != nil {
		return nil, fmt.Errorf("%w: %q: $render must be an array", model.ErrInvalidJSON, path)
	}

	tasks := make([]model.RenderTask, 0, len(rawTasks))

	for i, rt := range rawTasks {
		for key := range rt {
			if key != "template" && key != "output" {
				return nil, fmt.Errorf("%w: %q: $render[%d] has unexpected key %q", model.ErrInvalidJSON, path, i, key)
			}
		}

		var task model.RenderTask

		if v, ok := rt["template"]; ok {
			_ = json.Unmarshal(v, &task.Template)
		}

		if v, ok := rt["output"]; ok {
			_ = json.Unmarshal(v, &task.Output)
		}

		if task.Template == "" || task.Output == "" {
			return nil, fmt.Errorf("%w: %q: $render[%d] requires non-empty template and output",
				model.ErrMissingRequiredField, path, i)
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}
