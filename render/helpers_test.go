package render

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/struktur/model"
)

func TestGenericHelpers_StringAndCollection(t *testing.T) {
	t.Parallel()

	helpers := GenericHelpers()

	slugify := helpers["slugify"].(func(string) string)
	assert.Equal(t, "hello-world", slugify("Hello, World!"))

	titleCase := helpers["title_case"].(func(string) string)
	assert.Equal(t, "Hello World", titleCase("hello world"))

	items := []any{
		map[string]any{"name": "b", "rank": "2"},
		map[string]any{"name": "a", "rank": "1"},
	}

	sortByFn := helpers["sort_by"].(func([]any, string) []any)
	sorted := sortByFn(items, "name")
	assert.Equal(t, "a", sorted[0].(map[string]any)["name"])

	pluckFn := helpers["pluck"].(func([]any, string) []any)
	assert.Equal(t, []any{"b", "a"}, pluckFn(items, "name"))

	whereFn := helpers["where"].(func([]any, string, any) []any)
	assert.Len(t, whereFn(items, "name", "a"), 1)
}

func TestGenericHelpers_Predicates(t *testing.T) {
	t.Parallel()

	helpers := GenericHelpers()

	isArray := helpers["is_array"].(func(any) bool)
	assert.True(t, isArray([]any{1, 2}))
	assert.False(t, isArray("nope"))

	defaultValue := helpers["default_value"].(func(any, any) any)
	assert.Equal(t, "fallback", defaultValue("", "fallback"))
	assert.Equal(t, "value", defaultValue("value", "fallback"))

	eq := helpers["eq"].(func(any, any) bool)
	assert.True(t, eq(1, "1"))
}

func TestGenericHelpers_JSON(t *testing.T) {
	t.Parallel()

	helpers := GenericHelpers()

	jsonFn := helpers["json"].(func(any) (string, error))

	out, err := jsonFn(map[string]any{"name": "web-1", "port": float64(9000)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"name":"web-1","port":9000}`, out)
}

func TestSchemaHelpers_Lineage(t *testing.T) {
	t.Parallel()

	canonical := &model.Canonical{
		ClassesByID: map[string]*model.ResolvedClass{
			"web_server": {
				Name:    "web_server",
				Lineage: []string{"base", "server", "web_server"},
				Schemas: []*jsonschema.Schema{
					{Required: []string{"id"}},
					{Properties: map[string]*jsonschema.Schema{"port": {Type: "integer"}}},
					{Properties: map[string]*jsonschema.Schema{"vhost": {Type: "string"}}},
				},
			},
		},
	}

	helpers := SchemaHelpers(canonical)

	inherits := helpers["inherits"].(func(string, string) bool)
	assert.True(t, inherits("web_server", "server"))
	assert.False(t, inherits("web_server", "database"))

	lineage := helpers["class_lineage"].(func(string) []string)
	assert.Equal(t, []string{"base", "server", "web_server"}, lineage("web_server"))

	schemaHas := helpers["schema_has"].(func(string, string) bool)
	assert.True(t, schemaHas("web_server", "port"))
	assert.False(t, schemaHas("web_server", "nonexistent"))

	propSource := helpers["schema_prop_source"].(func(string, string) string)
	assert.Equal(t, "server", propSource("web_server", "port"))

	required := helpers["schema_required"].(func(string) []string)
	assert.Equal(t, []string{"id"}, required("web_server"))
}

func TestBufferHelpers_WriteAndYield(t *testing.T) {
	t.Parallel()

	ctx := NewContext(&model.Canonical{}, "/build")
	helpers := BufferHelpers(ctx)

	buffer := helpers["buffer"].(func(string, string, ...string) string)
	yield := helpers["yield"].(func(string, ...string) string)
	bufferExists := helpers["buffer_exists"].(func(string) bool)

	assert.Equal(t, "", buffer("head", "<title>x</title>"))
	assert.True(t, bufferExists("head"))
	assert.Equal(t, "<title>x</title>", yield("head"))
	assert.Equal(t, "fallback", yield("missing", "fallback"))
}

func TestBufferHelpers_ExtendsReturnsLayoutName(t *testing.T) {
	t.Parallel()

	ctx := NewContext(&model.Canonical{}, "/build")
	helpers := BufferHelpers(ctx)

	extends := helpers["extends"].(func(string) string)
	assert.Equal(t, "layout.tmpl", extends("layout.tmpl"))
}
