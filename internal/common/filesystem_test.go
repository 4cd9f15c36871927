package common

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFileSystem_Realpath(t *testing.T) {
	fsys := NewDefaultFileSystem()
	dir := t.TempDir()

	file := filepath.Join(dir, "app.php")
	require.NoError(t, os.WriteFile(file, []byte("<?php\n"), 0o644))
	link := filepath.Join(dir, "link.php")
	require.NoError(t, os.Symlink(file, link))

	resolved, err := fsys.Realpath(link)
	require.NoError(t, err)

	// t.TempDir itself may sit behind a symlink (e.g. /tmp on some
	// systems), so compare against the canonicalised target.
	want, err := fsys.Realpath(file)
	require.NoError(t, err)
	assert.Equal(t, want, resolved)
}

func TestDefaultFileSystem_RealpathMissing(t *testing.T) {
	fsys := NewDefaultFileSystem()

	_, err := fsys.Realpath(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDefaultFileSystem_RealpathEmpty(t *testing.T) {
	fsys := NewDefaultFileSystem()

	_, err := fsys.Realpath("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestOwner(t *testing.T) {
	fsys := NewDefaultFileSystem()
	dir := t.TempDir()

	info, err := fsys.Stat(dir)
	require.NoError(t, err)

	uid, gid, err := Owner(info)
	require.NoError(t, err)
	assert.Equal(t, uint32(os.Getuid()), uid)
	assert.Equal(t, uint32(os.Getgid()), gid)
}

func TestMockFileSystem(t *testing.T) {
	fsys := NewMockFileSystem()
	fsys.AddDir("/srv", 0o755, 0, 0)
	fsys.AddDir("/srv/home", 0o755, 0, 0)
	fsys.AddFile("/srv/home/app.php", 0o755, 1001, 1001)
	fsys.AddSymlink("/srv/www", "/srv/home")

	t.Run("lstat does not follow symlinks", func(t *testing.T) {
		info, err := fsys.Lstat("/srv/www")
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&fs.ModeSymlink)
	})

	t.Run("stat follows symlinks", func(t *testing.T) {
		info, err := fsys.Stat("/srv/www/app.php")
		require.NoError(t, err)
		assert.True(t, info.Mode().IsRegular())

		uid, gid, err := Owner(info)
		require.NoError(t, err)
		assert.Equal(t, uint32(1001), uid)
		assert.Equal(t, uint32(1001), gid)
	})

	t.Run("realpath resolves component symlinks", func(t *testing.T) {
		resolved, err := fsys.Realpath("/srv/www/app.php")
		require.NoError(t, err)
		assert.Equal(t, "/srv/home/app.php", resolved)
	})

	t.Run("missing component", func(t *testing.T) {
		_, err := fsys.Realpath("/srv/nowhere/app.php")
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("symlink loop", func(t *testing.T) {
		fsys.AddSymlink("/srv/loop", "/srv/loop")
		_, err := fsys.Realpath("/srv/loop/x")
		assert.Error(t, err)
	})
}
