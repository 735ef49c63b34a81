// Package security guards the files the command line tools write.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedDirs is returned for paths that resolve outside every
// allowed directory.
var ErrOutsideAllowedDirs = errors.New("path outside allowed directories")

// canonical returns the absolute, symlink-free form of path. When path does
// not exist yet, the deepest existing ancestor is resolved and the missing
// components are joined back on, so a symlinked parent cannot be used to
// escape.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	var missing []string
	dir := abs
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			parts := append([]string{resolved}, missing...)
			return filepath.Join(parts...), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}

// Within returns nil if path resolves inside dir.
func Within(path, dir string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	d, err := canonical(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is not inside %s", ErrOutsideAllowedDirs, path, dir)
	}
	return nil
}

// WithinAny returns nil if path resolves inside one of dirs.
func WithinAny(path string, dirs ...string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("%w: none given", ErrOutsideAllowedDirs)
	}
	for _, dir := range dirs {
		if Within(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be under one of %v", ErrOutsideAllowedDirs, path, dirs)
}

// ValidateOutputPath accepts paths under the working directory or the
// system temporary directory.
func ValidateOutputPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return WithinAny(path, cwd, os.TempDir())
}

// SanitizeFilename maps an identifier to a file name made of ASCII letters,
// digits, '.', '_' and '-'. Runs of other characters become one underscore.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	under := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		ok := r == '.' || r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		switch {
		case ok:
			b.WriteRune(r)
			under = false
		case !under:
			b.WriteByte('_')
			under = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
