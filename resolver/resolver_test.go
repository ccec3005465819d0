package resolver_test

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/resolver"
)

func classTable() map[string]*model.ClassDef {
	return map[string]*model.ClassDef{
		"base": {
			Class:       "base",
			Schema:      &jsonschema.Schema{Type: "object"},
			Fields:      map[string]any{"color": "blue", "size": "small"},
			UsesAspects: []string{"network"},
			AspectDefaults: map[string]map[string]any{
				"network": {"bridge": "vmbr0"},
			},
		},
		"server": {
			Class:       "server",
			Parent:      "base",
			Schema:      &jsonschema.Schema{Type: "object"},
			Fields:      map[string]any{"color": "red"},
			UsesAspects: []string{"compute"},
			AspectDefaults: map[string]map[string]any{
				"network": {"vlan": float64(10)},
			},
		},
		"web_server": {
			Class:  "web_server",
			Parent: "server",
			Schema: &jsonschema.Schema{Type: "object"},
		},
		"cycle_a": {Class: "cycle_a", Parent: "cycle_b", Schema: &jsonschema.Schema{}},
		"cycle_b": {Class: "cycle_b", Parent: "cycle_a", Schema: &jsonschema.Schema{}},
		"orphan":  {Class: "orphan", Parent: "nonexistent", Schema: &jsonschema.Schema{}},
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("root class lineage is itself", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		resolved, err := r.Resolve("base")
		require.NoError(t, err)
		assert.Equal(t, []string{"base"}, resolved.Lineage)
		assert.Len(t, resolved.Schemas, 1)
	})

	t.Run("lineage is root to leaf", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		resolved, err := r.Resolve("web_server")
		require.NoError(t, err)
		assert.Equal(t, []string{"base", "server", "web_server"}, resolved.Lineage)
		assert.Len(t, resolved.Schemas, 3)
	})

	t.Run("fields class-merge leaf wins", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		resolved, err := r.Resolve("server")
		require.NoError(t, err)
		assert.Equal(t, "red", resolved.Fields["color"])
		assert.Equal(t, "small", resolved.Fields["size"])
	})

	t.Run("uses_aspects is a union", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		resolved, err := r.Resolve("server")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"network", "compute"}, resolved.UsesAspects)
	})

	t.Run("aspect_defaults merge per aspect leaf-last", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		resolved, err := r.Resolve("server")
		require.NoError(t, err)
		require.Contains(t, resolved.AspectDefaults, "network")
		assert.Equal(t, "vmbr0", resolved.AspectDefaults["network"]["bridge"])
		assert.Equal(t, float64(10), resolved.AspectDefaults["network"]["vlan"])
	})

	t.Run("detects circular inheritance", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		_, err := r.Resolve("cycle_a")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrCircularInheritance)
	})

	t.Run("detects unknown parent", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		_, err := r.Resolve("orphan")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrUnknownParent)
	})

	t.Run("memoizes across calls", func(t *testing.T) {
		t.Parallel()

		r := resolver.New(classTable())

		a, err := r.Resolve("web_server")
		require.NoError(t, err)

		b, err := r.Resolve("web_server")
		require.NoError(t, err)

		assert.Same(t, a, b)
	})
}

func TestResolveAll(t *testing.T) {
	t.Parallel()

	r := resolver.New(classTable())

	_, err := r.ResolveAll()
	require.Error(t, err) // cycle_a/cycle_b/orphan are in the table.
	assert.Error(t, err)
}
