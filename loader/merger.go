package loader

import (
	"fmt"

	"go.jacobcolvin.com/struktur/merge"
	"go.jacobcolvin.com/struktur/model"
)

// MergeStats summarizes the outcome of MergeInstances, for orchestrator
// diagnostics.
type MergeStats struct {
	FragmentsIn int
	RecordsOut  int
	Merged      int // number of $ids that required merging 2+ fragments.
}

// MergeInstances groups instance fragments by $id and combines fragments
// sharing an $id using instance-merge semantics, in load order (§4.6).
// A $class mismatch between two fragments of the same $id is fatal.
func MergeInstances(instances []*model.Instance) ([]*model.Instance, MergeStats, error) {
	order := make([]string, 0, len(instances))
	byID := make(map[string]*model.Instance, len(instances))

	stats := MergeStats{FragmentsIn: len(instances)}

	for _, inst := range instances {
		existing, ok := byID[inst.ID]
		if !ok {
			clone := *inst
			byID[inst.ID] = &clone
			order = append(order, inst.ID)

			continue
		}

		if existing.Class != inst.Class {
			return nil, stats, fmt.Errorf(
				"%w: $id %q declared as class %q (in %v) and class %q (in %q); use class-level composition instead of merging across classes",
				model.ErrClassMismatch, inst.ID, existing.Class, existing.SourcePaths, inst.Class, inst.SourcePaths)
		}

		merged, err := mergeInstance(existing, inst)
		if err != nil {
			return nil, stats, err
		}

		merged.SourcePaths = append(append([]string{}, existing.SourcePaths...), inst.SourcePaths...)
		byID[inst.ID] = merged
		stats.Merged++
	}

	result := make([]*model.Instance, 0, len(order))
	for _, id := range order {
		result = append(result, byID[id])
	}

	stats.RecordsOut = len(result)

	return result, stats, nil
}

func mergeInstance(dst, src *model.Instance) (*model.Instance, error) {
	data, err := mergeMaps(dst.Data, src.Data, "")
	if err != nil {
		return nil, fmt.Errorf("merging instance %q: %w", dst.ID, err)
	}

	aspects, err := mergeAspectMaps(dst.Aspects, src.Aspects, dst.ID)
	if err != nil {
		return nil, err
	}

	return &model.Instance{
		ID:      dst.ID,
		Class:   dst.Class,
		Aspects: aspects,
		Render:  append(append([]model.RenderTask{}, dst.Render...), src.Render...),
		Data:    data,
	}, nil
}

func mergeMaps(dst, src map[string]any, path string) (map[string]any, error) {
	merged, err := merge.Instance(anyFromMap(dst), anyFromMap(src), path)
	if err != nil {
		return nil, err
	}

	if merged == nil {
		return map[string]any{}, nil
	}

	m, _ := merged.(map[string]any)

	return m, nil
}

func mergeAspectMaps(dst, src map[string]map[string]any, instanceID string) (map[string]map[string]any, error) {
	if dst == nil && src == nil {
		return nil, nil
	}

	result := make(map[string]map[string]any, len(dst)+len(src))

	for name, data := range dst {
		result[name] = data
	}

	for name, data := range src {
		if existing, ok := result[name]; ok {
			merged, err := mergeMaps(existing, data, "$aspects."+name)
			if err != nil {
				return nil, fmt.Errorf("merging instance %q aspect %q: %w", instanceID, name, err)
			}

			result[name] = merged
		} else {
			result[name] = data
		}
	}

	return result, nil
}

func anyFromMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
