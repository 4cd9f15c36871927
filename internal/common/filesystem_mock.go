//nolint:revive // common is an appropriate name for shared utilities package
package common

import (
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const mockMaxSymlinkDepth = 40

// MockEntry describes one node of a MockFileSystem.
type MockEntry struct {
	Mode   fs.FileMode // includes type bits
	UID    uint32
	GID    uint32
	Target string // symlink target, when Mode has fs.ModeSymlink
}

// MockFileSystem is an in-memory FileSystem for tests. Ownership and mode
// bits are fully controllable, so trust-chain and validator tests can model
// root-owned hierarchies without privileges.
type MockFileSystem struct {
	entries map[string]*MockEntry
}

// NewMockFileSystem creates an empty mock filesystem with a root directory
// owned by root with mode 0755.
func NewMockFileSystem() *MockFileSystem {
	m := &MockFileSystem{entries: make(map[string]*MockEntry)}
	m.AddDir("/", 0o755, 0, 0)
	return m
}

// AddDir registers a directory entry.
func (m *MockFileSystem) AddDir(path string, perm fs.FileMode, uid, gid uint32) {
	m.entries[filepath.Clean(path)] = &MockEntry{Mode: fs.ModeDir | perm, UID: uid, GID: gid}
}

// AddFile registers a regular file entry.
func (m *MockFileSystem) AddFile(path string, perm fs.FileMode, uid, gid uint32) {
	m.entries[filepath.Clean(path)] = &MockEntry{Mode: perm, UID: uid, GID: gid}
}

// AddSymlink registers a symbolic link entry.
func (m *MockFileSystem) AddSymlink(path, target string) {
	m.entries[filepath.Clean(path)] = &MockEntry{Mode: fs.ModeSymlink | 0o777, Target: target}
}

// Chmod replaces the permission bits of an existing entry, keeping type bits.
func (m *MockFileSystem) Chmod(path string, perm fs.FileMode) {
	if e, ok := m.entries[filepath.Clean(path)]; ok {
		e.Mode = e.Mode.Type() | perm
	}
}

// Lstat returns file information without following symlinks
func (m *MockFileSystem) Lstat(path string) (fs.FileInfo, error) {
	e, ok := m.entries[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return newMockFileInfo(filepath.Base(path), e), nil
}

// Stat returns file information, following symlinks
func (m *MockFileSystem) Stat(path string) (fs.FileInfo, error) {
	resolved, err := m.Realpath(path)
	if err != nil {
		return nil, err
	}
	return m.Lstat(resolved)
}

// Realpath resolves path component by component, following registered
// symlinks, and fails with fs.ErrNotExist when any component is absent.
func (m *MockFileSystem) Realpath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsAbs(path) {
		path = "/" + path
	}
	return m.resolve(filepath.Clean(path), 0)
}

func (m *MockFileSystem) resolve(path string, depth int) (string, error) {
	if depth > mockMaxSymlinkDepth {
		return "", &fs.PathError{Op: "realpath", Path: path, Err: syscall.ELOOP}
	}

	resolved := "/"
	components := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, component := range components {
		if component == "" {
			continue
		}
		candidate := filepath.Join(resolved, component)
		e, ok := m.entries[candidate]
		if !ok {
			return "", &fs.PathError{Op: "realpath", Path: candidate, Err: fs.ErrNotExist}
		}
		if e.Mode&fs.ModeSymlink != 0 {
			target := e.Target
			if !filepath.IsAbs(target) {
				target = filepath.Join(resolved, target)
			}
			rest := filepath.Join(append([]string{target}, components[i+1:]...)...)
			return m.resolve(rest, depth+1)
		}
		resolved = candidate
	}
	return resolved, nil
}

// mockFileInfo implements fs.FileInfo backed by a MockEntry.
type mockFileInfo struct {
	name  string
	entry *MockEntry
}

func newMockFileInfo(name string, e *MockEntry) *mockFileInfo {
	return &mockFileInfo{name: name, entry: e}
}

func (i *mockFileInfo) Name() string       { return i.name }
func (i *mockFileInfo) Size() int64        { return 0 }
func (i *mockFileInfo) Mode() fs.FileMode  { return i.entry.Mode }
func (i *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (i *mockFileInfo) IsDir() bool        { return i.entry.Mode.IsDir() }

func (i *mockFileInfo) Sys() any {
	return &syscall.Stat_t{Uid: i.entry.UID, Gid: i.entry.GID}
}
