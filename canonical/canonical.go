// Package canonical assembles the canonical model (§3, §4.10): every
// loaded instance, three-layer aspect merge applied, plus lookup-by-id
// indexes, a class index, an aspect index, build metadata, and the
// validation summary.
package canonical

import (
	"fmt"
	"sort"
	"time"

	"go.jacobcolvin.com/struktur/merge"
	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/version"
)

// Build assembles the canonical model from merged instances, their
// resolved classes, and the registered aspect definitions. timestamp is
// injected by the caller (orchestrator) rather than computed here, since
// canonical must be deterministic for a fixed input and wall-clock time
// never is.
func Build(
	instances []*model.Instance,
	classes map[string]*model.ResolvedClass,
	aspects map[string]*model.AspectDef,
	validation model.ValidationSummary,
	timestamp time.Time,
) (*model.Canonical, error) {
	canonicalInstances := make([]*model.CanonicalInstance, 0, len(instances))
	byID := make(map[string]*model.CanonicalInstance, len(instances))

	for _, inst := range instances {
		resolved, ok := classes[inst.Class]
		if !ok {
			return nil, fmt.Errorf("%w: instance %q references class %q", model.ErrUnresolvedClassInCanonical, inst.ID, inst.Class)
		}

		ci, err := mergeAspects(inst, resolved, aspects)
		if err != nil {
			return nil, err
		}

		canonicalInstances = append(canonicalInstances, ci)
		byID[ci.ID] = ci
	}

	aspectsByID := make(map[string]*model.AspectSummary, len(aspects))

	for name, def := range aspects {
		aspectsByID[name] = &model.AspectSummary{
			Name:        name,
			Description: stringField(def.Defaults, "description"),
			PrettyName:  stringField(def.Defaults, "pretty_name"),
			Schema:      def.Schema,
			Defaults:    def.Defaults,
		}
	}

	return &model.Canonical{
		Instances:     canonicalInstances,
		InstancesByID: byID,
		ClassesByID:   classes,
		AspectsByID:   aspectsByID,
		Metadata: model.Metadata{
			Timestamp:        timestamp.UTC().Format(time.RFC3339),
			GeneratorVersion: generatorVersion(),
			InstanceCount:    len(canonicalInstances),
			ClassCount:       len(classes),
			AspectCount:      len(aspects),
		},
		Validation: validation,
	}, nil
}

// mergeAspects implements the three-layer aspect merge of §4.10: for each
// aspect in the union of (declared $uses_aspects, resolved class's
// $aspect_defaults keys, instance's $aspects keys), merge aspect-definition
// defaults (layer 1), class-level $aspect_defaults (layer 2), and the
// instance's own $aspects data (layer 3), leaf-last via class-merge. The
// merged aspect is materialized even when the instance supplied no data,
// so templates always see an aspect's defaults once it's declared.
func mergeAspects(
	inst *model.Instance,
	resolved *model.ResolvedClass,
	aspects map[string]*model.AspectDef,
) (*model.CanonicalInstance, error) {
	names := unionAspectNames(resolved, inst)

	merged := make(map[string]map[string]any, len(names))

	for _, name := range names {
		var layer any

		if def, ok := aspects[name]; ok && def.Defaults != nil {
			layer = merge.Class(layer, anyMap(def.Defaults))
		}

		if classDefaults, ok := resolved.AspectDefaults[name]; ok {
			layer = merge.Class(layer, anyMap(classDefaults))
		}

		if instData, ok := inst.Aspects[name]; ok {
			layer = merge.Class(layer, anyMap(instData))
		}

		if layer == nil {
			layer = map[string]any{}
		}

		m, ok := layer.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("aspect %q for instance %q did not merge to an object", name, inst.ID)
		}

		merged[name] = m
	}

	data, ok := mergeFields(resolved, inst)
	if !ok {
		return nil, fmt.Errorf("instance %q: class-merged $fields did not merge to an object", inst.ID)
	}

	return &model.CanonicalInstance{
		ID:          inst.ID,
		Class:       inst.Class,
		UsesAspects: names,
		Aspects:     merged,
		Render:      inst.Render,
		Data:        data,
	}, nil
}

// mergeFields implements §4.10 steps 1-2: start from the lineage's
// class-merged $fields defaults, then apply the instance's own top-level
// fields over them, instance wins.
func mergeFields(resolved *model.ResolvedClass, inst *model.Instance) (map[string]any, bool) {
	merged := merge.Class(anyMap(resolved.Fields), anyMap(inst.Data))

	m, ok := merged.(map[string]any)

	return m, ok
}

func unionAspectNames(resolved *model.ResolvedClass, inst *model.Instance) []string {
	seen := make(map[string]bool)

	var out []string

	add := func(name string) {
		if !seen[name] {
			seen[name] = true

			out = append(out, name)
		}
	}

	for _, name := range resolved.UsesAspects {
		add(name)
	}

	var extra []string

	for name := range resolved.AspectDefaults {
		extra = append(extra, name)
	}

	for name := range inst.Aspects {
		extra = append(extra, name)
	}

	sort.Strings(extra)

	for _, name := range extra {
		add(name)
	}

	return out
}

func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}

	s, _ := m[key].(string)

	return s
}

func generatorVersion() string {
	v := version.Version
	if v == "" {
		v = "dev"
	}

	return fmt.Sprintf("struktur/%s (%s)", v, version.Revision)
}
