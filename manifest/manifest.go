// Package manifest content-addresses a build's input directories into a
// deterministic build directory name, and records that addressing at the
// end of a build (§4.14).
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.jacobcolvin.com/struktur/model"
)

// Inputs is the sorted, normalized directory tuple a build hashes.
type Inputs struct {
	ClassDirs    []string
	AspectDirs   []string
	InstanceDirs []string
	TemplateDirs []string
}

// Manifest is the on-disk record written to build_manifest.json.
type Manifest struct {
	Version   string `json:"version"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
	Inputs    struct {
		ClassDirs    []string `json:"classDirs"`
		AspectDirs   []string `json:"aspectDirs"`
		InstanceDirs []string `json:"instanceDirs"`
		TemplateDirs []string `json:"templateDirs"`
	} `json:"inputs"`
}

// Normalize sorts and cleans every directory path in in, so that
// reordering a config's directory lists never changes the resulting hash
// (§8 property 6).
func Normalize(in Inputs) Inputs {
	return Inputs{
		ClassDirs:    normalizeList(in.ClassDirs),
		AspectDirs:   normalizeList(in.AspectDirs),
		InstanceDirs: normalizeList(in.InstanceDirs),
		TemplateDirs: normalizeList(in.TemplateDirs),
	}
}

func normalizeList(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Clean(p)
	}

	sort.Strings(out)

	return out
}

// Hash computes the sha256 over in's normalized, newline-joined tuple,
// returning the full hex digest; callers truncate to 8 characters for the
// build directory name (teacher precedent: version.getRevision folds VCS
// state into one short identifier the same way this folds input state).
func Hash(in Inputs) string {
	normalized := Normalize(in)

	var sb strings.Builder

	for _, group := range [][]string{normalized.ClassDirs, normalized.AspectDirs, normalized.InstanceDirs, normalized.TemplateDirs} {
		sb.WriteString(strings.Join(group, "\n"))
		sb.WriteByte('\x00')
	}

	sum := sha256.Sum256([]byte(sb.String()))

	return hex.EncodeToString(sum[:])
}

// BuildDirName returns "build-<hash8>" for in.
func BuildDirName(in Inputs) string {
	return "build-" + Hash(in)[:8]
}

// CheckCollision inspects root/build_manifest.json, if present, and
// reports whether it names a different hash than want for the same
// explicit build directory. A missing manifest is not a collision.
func CheckCollision(root, want string) (collides bool, previous *Manifest, err error) {
	path := filepath.Join(root, "build_manifest.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}

		return false, nil, fmt.Errorf("reading %q: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return false, nil, fmt.Errorf("%w: %q: %w", model.ErrInvalidJSON, path, err)
	}

	return m.Hash != want, &m, nil
}

// Write builds a Manifest from in/version/timestamp and atomically writes
// it to dir/build_manifest.json (write-to-temp-then-rename, so a reader
// never observes a partially written manifest).
func Write(dir, version, hash, timestamp string, in Inputs) error {
	normalized := Normalize(in)

	m := Manifest{Version: version, Hash: hash, Timestamp: timestamp}
	m.Inputs.ClassDirs = normalized.ClassDirs
	m.Inputs.AspectDirs = normalized.AspectDirs
	m.Inputs.InstanceDirs = normalized.InstanceDirs
	m.Inputs.TemplateDirs = normalized.TemplateDirs

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling build manifest: %w", err)
	}

	return writeAtomic(filepath.Join(dir, "build_manifest.json"), data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp manifest file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("writing temp manifest file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp manifest file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp manifest file into place: %w", err)
	}

	return nil
}
