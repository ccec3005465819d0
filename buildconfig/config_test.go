package buildconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/stringtest"
)

func TestLoad_BarePathsAreExplicit(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(stringtest.Input(`
		classDirs:
		  - classes
		buildDir: build
	`)))
	require.NoError(t, err)
	require.Len(t, cfg.ClassDirs, 1)
	assert.Equal(t, model.Dir{Path: "classes", Explicit: true}, cfg.ClassDirs[0])
}

func TestLoad_MappingEntryRespectsExplicitFalse(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(stringtest.Input(`
		classDirs:
		  - path: classes
		    explicit: false
	`)))
	require.NoError(t, err)
	require.Len(t, cfg.ClassDirs, 1)
	assert.Equal(t, model.Dir{Path: "classes", Explicit: false}, cfg.ClassDirs[0])
}

func TestLoad_MixedBareAndMappingEntries(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(stringtest.Input(`
		templateDirs:
		  - templates/base
		  - path: templates/extra
		    explicit: false
	`)))
	require.NoError(t, err)
	require.Len(t, cfg.TemplateDirs, 2)
	assert.True(t, cfg.TemplateDirs[0].Explicit)
	assert.False(t, cfg.TemplateDirs[1].Explicit)
}

func TestLoad_DefaultsEngineToGotemplate(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(stringtest.Input(`
		buildDir: build
	`)))
	require.NoError(t, err)
	assert.Equal(t, "gotemplate", cfg.Engine)
}

func TestLoad_PreservesExplicitEngine(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(stringtest.Input(`
		engine: handlebars
	`)))
	require.NoError(t, err)
	assert.Equal(t, "handlebars", cfg.Engine)
}

func TestLoad_RenderTasksAndFlags(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]byte(stringtest.Input(`
		strictTemplates: true
		deterministic: true
		failOnCollisions: true
		promoteConstraintConflicts: true
		renderTasks:
		  - template: page.tmpl
		    output: index.html
	`)))
	require.NoError(t, err)
	assert.True(t, cfg.StrictTemplates)
	assert.True(t, cfg.Deterministic)
	assert.True(t, cfg.FailOnCollisions)
	assert.True(t, cfg.PromoteConstraintConflicts)
	require.Len(t, cfg.RenderTasks, 1)
	assert.Equal(t, model.RenderTask{Template: "page.tmpl", Output: "index.html"}, cfg.RenderTasks[0])
}

func TestLoad_RejectsMalformedDirEntry(t *testing.T) {
	t.Parallel()

	_, err := Load([]byte(stringtest.Input(`
		classDirs:
		  - 42
	`)))
	require.Error(t, err)
}

