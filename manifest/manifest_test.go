package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_StableUnderReordering(t *testing.T) {
	t.Parallel()

	a := Inputs{
		ClassDirs:    []string{"classes/b", "classes/a"},
		AspectDirs:   []string{"aspects"},
		InstanceDirs: []string{"instances"},
		TemplateDirs: []string{"templates"},
	}
	b := Inputs{
		ClassDirs:    []string{"classes/a", "classes/b"},
		AspectDirs:   []string{"aspects"},
		InstanceDirs: []string{"instances"},
		TemplateDirs: []string{"templates"},
	}

	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_DiffersOnDifferentInputs(t *testing.T) {
	t.Parallel()

	a := Inputs{ClassDirs: []string{"classes"}}
	b := Inputs{ClassDirs: []string{"other-classes"}}

	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestBuildDirName_IsEightHexChars(t *testing.T) {
	t.Parallel()

	name := BuildDirName(Inputs{ClassDirs: []string{"classes"}})
	assert.Regexp(t, `^build-[0-9a-f]{8}$`, name)
}

func TestCheckCollision_NoManifestIsNotACollision(t *testing.T) {
	t.Parallel()

	collides, previous, err := CheckCollision(t.TempDir(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, collides)
	assert.Nil(t, previous)
}

func TestCheckCollision_DifferentHashCollides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, Write(dir, "1.0.0", "aaaaaaaa", "2026-01-01T00:00:00Z", Inputs{ClassDirs: []string{"classes"}}))

	collides, previous, err := CheckCollision(dir, "bbbbbbbb")
	require.NoError(t, err)
	assert.True(t, collides)
	require.NotNil(t, previous)
	assert.Equal(t, "aaaaaaaa", previous.Hash)
}

func TestCheckCollision_SameHashDoesNotCollide(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, Write(dir, "1.0.0", "aaaaaaaa", "2026-01-01T00:00:00Z", Inputs{}))

	collides, _, err := CheckCollision(dir, "aaaaaaaa")
	require.NoError(t, err)
	assert.False(t, collides)
}

func TestWrite_ProducesNormalizedSortedInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := Inputs{ClassDirs: []string{"b", "a"}, AspectDirs: []string{"./aspects/"}}

	require.NoError(t, Write(dir, "1.2.3", "cafebabe", "2026-01-01T00:00:00Z", in))

	data, err := os.ReadFile(filepath.Join(dir, "build_manifest.json"))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, []string{"a", "b"}, m.Inputs.ClassDirs)
	assert.Equal(t, []string{"aspects"}, m.Inputs.AspectDirs)
	assert.Equal(t, "cafebabe", m.Hash)
	assert.Equal(t, "1.2.3", m.Version)
}

func TestWrite_NoLeftoverTempFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, Write(dir, "1.0.0", "aaaaaaaa", "2026-01-01T00:00:00Z", Inputs{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "build_manifest.json", entries[0].Name())
}
