// Package loader discovers and parses class, aspect, and instance
// definition files from a directory tree, enforcing the duplicate/identity
// rules of §4.3–§4.6. Directory enumeration is always alphabetically
// sorted, so loading order is deterministic (§5).
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.jacobcolvin.com/struktur/model"
)

// ReservedDirNames are subdirectory names never descended into during an
// instance walk (§4.5, §6).
var ReservedDirNames = []string{"mixins", "stacks"}

// isReserved reports whether name is a reserved directory name.
func isReserved(name string) bool {
	return slices.Contains(ReservedDirNames, name)
}

// walkFiles returns every regular file directly or transitively under dir,
// in deterministic (sorted) order, skipping reserved subdirectories when
// skipReserved is true. A missing explicit directory is fatal; a missing
// non-explicit directory yields no files and no error.
func walkFiles(d model.Dir, skipReserved bool) ([]string, error) {
	info, err := os.Stat(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if d.Explicit {
				return nil, fmt.Errorf("%w: %q", model.ErrExplicitDirMissing, d.Path)
			}

			return nil, nil
		}

		return nil, fmt.Errorf("statting %q: %w", d.Path, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", d.Path)
	}

	var files []string

	err = filepath.WalkDir(d.Path, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if path != d.Path && skipReserved && isReserved(entry.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		files = append(files, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", d.Path, err)
	}

	slices.Sort(files)

	return files, nil
}

// walkAllFiles runs walkFiles over every directory in dirs, in the order
// given, concatenating results. Directories are NOT sorted relative to one
// another -- callers control directory precedence by list order -- but
// files within each directory are sorted.
func walkAllFiles(dirs []model.Dir, skipReserved bool) ([]string, error) {
	var all []string

	for _, d := range dirs {
		files, err := walkFiles(d, skipReserved)
		if err != nil {
			return nil, err
		}

		all = append(all, files...)
	}

	return all, nil
}
