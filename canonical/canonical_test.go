package canonical_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/struktur/canonical"
	"go.jacobcolvin.com/struktur/model"
)

func TestBuild_ThreeLayerAspectMerge(t *testing.T) {
	t.Parallel()

	inst := &model.Instance{
		ID:    "my_server",
		Class: "server",
		Aspects: map[string]map[string]any{
			"network": {"nameserver": "192.168.68.10", "ip": "192.168.68.100"},
		},
		Data: map[string]any{},
	}

	resolved := map[string]*model.ResolvedClass{
		"server": {
			Name:        "server",
			Lineage:     []string{"server"},
			UsesAspects: []string{"network"},
			AspectDefaults: map[string]map[string]any{
				"network": {"gateway": "192.168.68.1", "mtu": float64(1500)},
			},
		},
	}

	aspects := map[string]*model.AspectDef{
		"network": {
			Aspect:   "network",
			Defaults: map[string]any{"bridge": "vmbr0", "gateway": "192.168.1.1"},
		},
	}

	out, err := canonical.Build([]*model.Instance{inst}, resolved, aspects, model.ValidationSummary{}, time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, out.Instances, 1)

	network := out.Instances[0].Aspects["network"]
	assert.Equal(t, "vmbr0", network["bridge"])
	assert.Equal(t, "192.168.68.1", network["gateway"]) // class layer wins over aspect defaults
	assert.Equal(t, float64(1500), network["mtu"])
	assert.Equal(t, "192.168.68.10", network["nameserver"])
	assert.Equal(t, "192.168.68.100", network["ip"])
}

func TestBuild_MaterializesDeclaredAspectWithNoInstanceData(t *testing.T) {
	t.Parallel()

	inst := &model.Instance{ID: "x", Class: "server", Data: map[string]any{}}

	resolved := map[string]*model.ResolvedClass{
		"server": {Name: "server", Lineage: []string{"server"}, UsesAspects: []string{"network"}},
	}

	aspects := map[string]*model.AspectDef{
		"network": {Aspect: "network", Defaults: map[string]any{"bridge": "vmbr0"}},
	}

	out, err := canonical.Build([]*model.Instance{inst}, resolved, aspects, model.ValidationSummary{}, time.Unix(0, 0))
	require.NoError(t, err)
	require.Contains(t, out.Instances[0].Aspects, "network")
	assert.Equal(t, "vmbr0", out.Instances[0].Aspects["network"]["bridge"])
}

func TestBuild_MergesClassFieldsWithInstanceDataFieldsWin(t *testing.T) {
	t.Parallel()

	inst := &model.Instance{
		ID:    "web",
		Class: "server",
		Data:  map[string]any{"name": "web-1", "port": float64(9000)},
	}

	resolved := map[string]*model.ResolvedClass{
		"server": {
			Name:    "server",
			Lineage: []string{"server"},
			Fields:  map[string]any{"name": "default", "replicas": float64(1)},
		},
	}

	out, err := canonical.Build([]*model.Instance{inst}, resolved, nil, model.ValidationSummary{}, time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, out.Instances, 1)

	data := out.Instances[0].Data
	assert.Equal(t, "web-1", data["name"])       // instance wins over class default
	assert.Equal(t, float64(9000), data["port"]) // instance-only field survives
	assert.Equal(t, float64(1), data["replicas"]) // class default survives when instance is silent
}

func TestBuild_UnresolvedClassFails(t *testing.T) {
	t.Parallel()

	inst := &model.Instance{ID: "x", Class: "ghost", Data: map[string]any{}}

	_, err := canonical.Build([]*model.Instance{inst}, map[string]*model.ResolvedClass{}, nil, model.ValidationSummary{}, time.Unix(0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnresolvedClassInCanonical)
}

func TestBuild_Metadata(t *testing.T) {
	t.Parallel()

	resolved := map[string]*model.ResolvedClass{"server": {Name: "server", Lineage: []string{"server"}}}
	aspects := map[string]*model.AspectDef{"network": {Aspect: "network"}}

	out, err := canonical.Build(nil, resolved, aspects, model.ValidationSummary{Total: 0}, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Metadata.InstanceCount)
	assert.Equal(t, 1, out.Metadata.ClassCount)
	assert.Equal(t, 1, out.Metadata.AspectCount)
	assert.NotEmpty(t, out.Metadata.GeneratorVersion)
	assert.Equal(t, "1970-01-01T00:00:00Z", out.Metadata.Timestamp)
}
