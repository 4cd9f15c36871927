package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

func TestIsWithin(t *testing.T) {
	tests := []struct {
		name   string
		child  string
		parent string
		want   bool
	}{
		{"equal paths", "/srv/home", "/srv/home", true},
		{"direct child", "/srv/home/alice", "/srv/home", true},
		{"deep descendant", "/srv/home/alice/app/index.php", "/srv/home", true},
		{"sibling with common prefix", "/srv/homestead", "/srv/home", false},
		{"parent of parent", "/srv", "/srv/home", false},
		{"unrelated", "/tmp/evil.php", "/srv/home", false},
		{"root contains everything", "/srv/home", "/", true},
		{"empty child", "", "/srv", false},
		{"empty parent", "/srv", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithin(tt.child, tt.parent))
		})
	}
}

// Canonically equal paths must agree on containment once both sides are
// canonicalised.
func TestIsWithin_CanonicalEquivalence(t *testing.T) {
	fsys := common.NewMockFileSystem()
	fsys.AddDir("/srv", 0o755, 0, 0)
	fsys.AddDir("/srv/home", 0o755, 0, 0)
	fsys.AddDir("/srv/home/alice", 0o755, 1001, 1001)
	fsys.AddSymlink("/srv/www", "/srv/home")

	a, err := Canonicalize(fsys, "/srv/www/alice")
	require.NoError(t, err)
	b, err := Canonicalize(fsys, "/srv/home/alice")
	require.NoError(t, err)

	require.Equal(t, a, b)
	assert.Equal(t, IsWithin(a, "/srv/home"), IsWithin(b, "/srv/home"))
}

func TestAncestors(t *testing.T) {
	tests := []struct {
		name  string
		start string
		stop  string
		want  []string
	}{
		{
			name:  "up to root",
			start: "/srv/home/alice/app.php",
			stop:  "",
			want:  []string{"/srv/home/alice", "/srv/home", "/srv", "/"},
		},
		{
			name:  "stop excluded",
			start: "/srv/home/alice/app.php",
			stop:  "/srv/home",
			want:  []string{"/srv/home/alice"},
		},
		{
			name:  "parent is stop",
			start: "/srv/home/alice/app.php",
			stop:  "/srv/home/alice",
			want:  nil,
		},
		{
			name:  "file directly under root",
			start: "/vmlinuz",
			stop:  "",
			want:  []string{"/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Ancestors(tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Joining the stop directory with the basenames of the ancestors (reversed)
// and the basename of the start rebuilds the start path.
func TestAncestors_PathAlgebra(t *testing.T) {
	starts := []string{
		"/srv/home/alice/app.php",
		"/srv/home/alice/sub/dir/index.php",
		"/srv/x",
	}
	stop := "/srv"

	for _, start := range starts {
		dirs, err := Ancestors(start, stop)
		require.NoError(t, err)

		rebuilt := stop
		for i := len(dirs) - 1; i >= 0; i-- {
			rebuilt = filepath.Join(rebuilt, filepath.Base(dirs[i]))
		}
		rebuilt = filepath.Join(rebuilt, filepath.Base(start))

		assert.Equal(t, start, rebuilt, "start %s", start)
	}
}

func TestCanonicalize(t *testing.T) {
	fsys := common.NewMockFileSystem()
	fsys.AddDir("/srv", 0o755, 0, 0)
	fsys.AddDir("/srv/home", 0o755, 0, 0)
	fsys.AddFile("/srv/home/app.php", 0o755, 1001, 1001)
	fsys.AddSymlink("/srv/link.php", "/srv/home/app.php")

	t.Run("existing path", func(t *testing.T) {
		got, err := Canonicalize(fsys, "/srv/home/app.php")
		require.NoError(t, err)
		assert.Equal(t, "/srv/home/app.php", got)
	})

	t.Run("symlink resolved", func(t *testing.T) {
		got, err := Canonicalize(fsys, "/srv/link.php")
		require.NoError(t, err)
		assert.Equal(t, "/srv/home/app.php", got)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Canonicalize(fsys, "/srv/home/missing.php")
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoInput)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Canonicalize(fsys, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoInput)
	})
}

func TestMax(t *testing.T) {
	fsys := common.NewMockFileSystem()
	fsys.AddDir("/srv", 0o755, 0, 0)
	fsys.AddFile("/srv/app.php", 0o755, 1001, 1001)

	// PATH_MAX is finite on Linux and above the historical minimum of 256;
	// whether path is a directory or a file does not change the result.
	assert.GreaterOrEqual(t, Max(fsys, "/srv"), 256)
	assert.GreaterOrEqual(t, Max(fsys, "/srv/app.php"), 256)
	assert.Equal(t, Max(fsys, "/srv"), Max(fsys, "/srv/app.php"))
}
