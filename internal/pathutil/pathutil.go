// Package pathutil implements the path operations the trust pipeline is
// built from: canonicalisation, the path length limit probe, ancestor
// enumeration, and the containment test. All comparisons elsewhere in the
// helper are performed on paths canonicalised here.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

const (
	// fallbackPathMax is the historical minimum path length limit, used
	// when neither the compile-time nor the runtime limit is finite.
	fallbackPathMax = 256

	// maxPathDepth bounds ancestor traversal.
	maxPathDepth = 128
)

// Canonicalize resolves symlinks and relative components of path and returns
// an absolute path whose every component exists. A missing path or component
// maps to NOINPUT; an empty or overlong result maps to UNAVAILABLE.
func Canonicalize(fsys common.FileSystem, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", sysexits.ErrNoInput)
	}

	resolved, err := fsys.Realpath(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: no such file or directory", sysexits.ErrNoInput, path)
		}
		return "", fmt.Errorf("%w: failed to canonicalise %s: %v", sysexits.ErrOSErr, path, err)
	}

	if resolved == "" {
		return "", fmt.Errorf("%w: %s: resolves to nothing", sysexits.ErrUnavailable, path)
	}
	if len(resolved) >= Max(fsys, resolved) {
		return "", fmt.Errorf("%w: %s: resolves to overly long path", sysexits.ErrUnavailable, path)
	}

	return resolved, nil
}

// Max returns the effective maximum path length for path: the compile-time
// limit if finite, otherwise the fallback. The filesystem's runtime limit is
// not queried. The probe directory (path itself when it is a directory, its
// parent otherwise) is only logged; it does not change the result.
func Max(fsys common.FileSystem, path string) int {
	dir := path
	if info, err := fsys.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}

	limit := unix.PathMax
	if limit <= 0 {
		// Both limits are allowed to be unbounded; Linux exposes no
		// pathconf(3) wrapper, so the compile-time limit covers every
		// filesystem.
		limit = fallbackPathMax
	}

	slog.Debug("Probed path length limit", "dir", dir, "limit", limit)
	return limit
}

// Ancestors returns parent(start), parent(parent(start)), and so on, up to
// but not including stop. With an empty stop the chain terminates at the
// root directory ("/") or a relative root ("."), which is included.
// The returned paths are fresh strings owned by the caller.
func Ancestors(start, stop string) ([]string, error) {
	var dirs []string
	dir := start
	for i := 0; i < maxPathDepth; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			return dirs, nil
		}
		if stop != "" && parent == stop {
			return dirs, nil
		}
		dirs = append(dirs, parent)
		if parent == "/" || parent == "." {
			return dirs, nil
		}
		dir = parent
	}
	return nil, fmt.Errorf("%w: %s: more than %d enclosing directories", sysexits.ErrUnavailable, start, maxPathDepth)
}

// IsWithin reports whether child equals parent or lies below it. Both paths
// must already be canonical; the comparison is a string prefix test that
// treats path components atomically, with no lexical normalisation.
func IsWithin(child, parent string) bool {
	if child == "" || parent == "" {
		return false
	}
	if child == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(child, prefix)
}
