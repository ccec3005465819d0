package validate_test

import (
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/stringtest"
	"go.jacobcolvin.com/struktur/validate"
)

func decodeData(t *testing.T, raw string) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(stringtest.Input(raw)), &m))

	return m
}

func objectSchema(required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Required: required}
}

func TestValidate_BasePass(t *testing.T) {
	t.Parallel()

	v := validate.New()

	inst := &model.Instance{Data: map[string]any{}}
	resolved := &model.ResolvedClass{Name: "x", Lineage: []string{"x"}, Schemas: []*jsonschema.Schema{objectSchema()}}

	results := v.Validate(inst, resolved, nil)

	var codes []string
	for _, r := range results {
		codes = append(codes, r.Code)
	}

	assert.Contains(t, codes, "base.id")
	assert.Contains(t, codes, "base.class")
}

func TestValidate_BasePass_RejectsUnknownEnvelopeKey(t *testing.T) {
	t.Parallel()

	v := validate.New()

	inst := &model.Instance{
		ID: "my-server", Class: "x",
		Data: decodeData(t, `{"$bogus": true}`),
	}
	resolved := &model.ResolvedClass{Name: "x", Lineage: []string{"x"}, Schemas: []*jsonschema.Schema{objectSchema()}}

	results := v.Validate(inst, resolved, nil)

	var found *model.ValidationResult
	for i, r := range results {
		if r.Code == "base.envelope" {
			found = &results[i]
		}
	}

	require.NotNil(t, found)
	assert.Equal(t, model.LevelError, found.Level)
	assert.Equal(t, "$bogus", found.Path)
}

func TestValidate_LineagePass(t *testing.T) {
	t.Parallel()

	v := validate.New()

	inst := &model.Instance{
		ID: "my-server", Class: "server",
		Data: decodeData(t, `{"hostname": "web1"}`),
	}

	resolved := &model.ResolvedClass{
		Name:    "server",
		Lineage: []string{"server"},
		Schemas: []*jsonschema.Schema{objectSchema("ip")},
	}

	results := v.Validate(inst, resolved, nil)

	var found bool

	for _, r := range results {
		if r.Layer == model.LayerLineage && r.Level == model.LevelError {
			found = true
		}
	}

	assert.True(t, found, "expected a lineage-layer schema violation for missing required field ip")
}

func TestValidate_AspectPass(t *testing.T) {
	t.Parallel()

	v := validate.New()

	t.Run("undeclared aspect is an error", func(t *testing.T) {
		t.Parallel()

		inst := &model.Instance{
			ID: "my-server", Class: "server",
			Data:    map[string]any{},
			Aspects: map[string]map[string]any{"network": {}},
		}

		resolved := &model.ResolvedClass{
			Name: "server", Lineage: []string{"server"}, Schemas: []*jsonschema.Schema{objectSchema()},
		}

		results := v.Validate(inst, resolved, nil)

		assertHasCode(t, results, "undeclared-aspect")
	})

	t.Run("missing required aspect is an error", func(t *testing.T) {
		t.Parallel()

		inst := &model.Instance{
			ID: "my-server", Class: "server",
			Data: map[string]any{},
		}

		resolved := &model.ResolvedClass{
			Name: "server", Lineage: []string{"server"}, Schemas: []*jsonschema.Schema{objectSchema()},
			UsesAspects: []string{"network"}, RequiredAspects: []string{"network"},
		}

		results := v.Validate(inst, resolved, nil)

		assertHasCode(t, results, "missing-required-aspect")
	})

	t.Run("declared, non-required aspect with no data is fine", func(t *testing.T) {
		t.Parallel()

		inst := &model.Instance{ID: "my-server", Class: "server", Data: map[string]any{}}

		resolved := &model.ResolvedClass{
			Name: "server", Lineage: []string{"server"}, Schemas: []*jsonschema.Schema{objectSchema()},
			UsesAspects: []string{"network"},
		}

		results := v.Validate(inst, resolved, nil)

		assertNoCode(t, results, "missing-required-aspect")
	})

	t.Run("aspect data validates against aspect schema", func(t *testing.T) {
		t.Parallel()

		inst := &model.Instance{
			ID: "my-server", Class: "server",
			Data:    map[string]any{},
			Aspects: map[string]map[string]any{"network": {}},
		}

		resolved := &model.ResolvedClass{
			Name: "server", Lineage: []string{"server"}, Schemas: []*jsonschema.Schema{objectSchema()},
			UsesAspects: []string{"network"},
		}

		aspects := map[string]*model.AspectDef{
			"network": {Aspect: "network", Schema: objectSchema("bridge")},
		}

		results := v.Validate(inst, resolved, aspects)

		var found bool

		for _, r := range results {
			if r.Layer == model.LayerAspect && r.Code == "schema-violation" {
				found = true
			}
		}

		assert.True(t, found)
	})
}

func TestValidate_SemanticPass(t *testing.T) {
	t.Parallel()

	v := validate.New()

	inst := &model.Instance{
		ID: "my-server", Class: "server",
		Data: decodeData(t, `{
			"description": "TODO write this later",
			"port": 99999
		}`),
	}

	resolved := &model.ResolvedClass{Name: "server", Lineage: []string{"server"}, Schemas: []*jsonschema.Schema{objectSchema()}}

	results := v.Validate(inst, resolved, nil)

	var levels []model.ValidationLevel

	for _, r := range results {
		if r.Layer == model.LayerSemantic {
			levels = append(levels, r.Level)
		}
	}

	require.NotEmpty(t, levels)

	for _, l := range levels {
		assert.Equal(t, model.LevelWarning, l)
	}
}

func TestValidate_LintPass(t *testing.T) {
	t.Parallel()

	v := validate.New()
	v.LintSignificantArrays = []string{"tags"}

	inst := &model.Instance{
		ID:   "MyServer",
		Data: decodeData(t, `{"tags": [], "name": "", "port": 0}`),
	}

	resolved := &model.ResolvedClass{Name: "server", Lineage: []string{"server"}, Schemas: []*jsonschema.Schema{objectSchema()}}

	results := v.Validate(inst, resolved, nil)

	assertHasCode(t, results, "lint")

	var (
		sawID, sawDesc, sawArray, sawName, sawPort bool
	)

	for _, r := range results {
		if r.Layer != model.LayerLint {
			continue
		}

		switch r.Path {
		case "$id":
			sawID = true
		case "description":
			sawDesc = true
		case "tags":
			sawArray = true
		case "name":
			sawName = true
		case "port":
			sawPort = true
		}
	}

	assert.True(t, sawID, "expected non-kebab-case $id warning")
	assert.True(t, sawDesc, "expected missing description warning")
	assert.True(t, sawArray, "expected empty significant array warning")
	assert.True(t, sawName, "expected empty name warning")
	assert.True(t, sawPort, "expected port==0 warning")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := map[string][]model.ValidationResult{
		"a": {{Level: model.LevelError, Code: "schema-violation", Instance: "a"}},
		"b": {{Level: model.LevelWarning, Code: "lint", Instance: "b"}},
	}

	summary := validate.Summarize(2, results)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 1, summary.Valid)
	assert.True(t, validate.HasErrors(summary))
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	summary := validate.Summarize(1, map[string][]model.ValidationResult{
		"a": {{Level: model.LevelError, Code: "missing-required-aspect", Instance: "a", Message: "missing required aspect: \"network\""}},
	})

	out := validate.FormatSummary(&summary)

	assert.Contains(t, out, "missing required")
	assert.Contains(t, out, "a")
}

func assertHasCode(t *testing.T, results []model.ValidationResult, code string) {
	t.Helper()

	for _, r := range results {
		if r.Code == code {
			return
		}
	}

	t.Fatalf("expected a result with code %q, got %+v", code, results)
}

func assertNoCode(t *testing.T, results []model.ValidationResult, code string) {
	t.Helper()

	for _, r := range results {
		if r.Code == code {
			t.Fatalf("did not expect a result with code %q, got %+v", code, r)
		}
	}
}
