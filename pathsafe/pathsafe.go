// Package pathsafe resolves output paths inside a build root and tracks
// which task claimed which path, so a build can never write outside its
// own directory or silently clobber one output with another (§4.1).
package pathsafe

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.jacobcolvin.com/struktur/model"
)

// Resolve returns the absolute path for relative joined onto root, iff the
// result stays inside root (or is root itself) after normalization. Absolute or empty
// relative paths are rejected outright.
func Resolve(root, relative string) (string, error) {
	if relative == "" {
		return "", fmt.Errorf("%w: empty output path", model.ErrUnsafePath)
	}

	if filepath.IsAbs(relative) {
		return "", fmt.Errorf("%w: %q is absolute", model.ErrUnsafePath, relative)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: resolving build root: %w", model.ErrUnsafePath, err)
	}

	joined := filepath.Join(absRoot, relative)

	if !withinRoot(absRoot, joined) {
		return "", fmt.Errorf("%w: %q escapes build root %q", model.ErrUnsafePath, relative, root)
	}

	return joined, nil
}

// withinRoot reports whether candidate is root itself or a descendant of
// root, compared component-wise so "build-1" never matches a check against
// "build-12".
func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}

	if rel == "." {
		return true
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Task identifies the render task (or manifest/meta writer) that claimed a
// given output path, for collision diagnostics.
type Task struct {
	Template string
	Output   string
}

// CollisionTracker records which Task registered each absolute output path,
// failing a second registration of the same path. Safe for concurrent use,
// though the renderer drives it from a single cooperative goroutine (§5).
type CollisionTracker struct {
	mu    sync.Mutex
	paths map[string]Task
}

// NewCollisionTracker returns an empty tracker.
func NewCollisionTracker() *CollisionTracker {
	return &CollisionTracker{paths: make(map[string]Task)}
}

// Register claims absPath for task. It fails with model.ErrOutputCollision,
// naming both the new and the original task, if absPath was already
// claimed.
func (t *CollisionTracker) Register(absPath string, task Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.paths[absPath]; ok {
		return fmt.Errorf("%w: %q written by both %+v and %+v", model.ErrOutputCollision, absPath, existing, task)
	}

	t.paths[absPath] = task

	return nil
}
