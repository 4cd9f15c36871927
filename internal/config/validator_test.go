package config

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/environment"
	"github.com/isseis/go-cgi-runas/internal/identity"
	"github.com/isseis/go-cgi-runas/internal/identity/identitytest"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

func testConfig() *Config {
	return &Config{
		CGIHandler:    "/usr/lib/cgi-bin/php",
		ScriptBaseDir: "/srv/home",
		ScriptSuffix:  ".php",
		UIDRange:      identity.Range{Min: 1000, Max: 50000},
		GIDRange:      identity.Range{Min: 1000, Max: 50000},
		SecurePath:    "/usr/bin:/bin",
		WWWUser:       "www-data",
		WWWGroup:      "www-data",
		DateFormat:    "2006-01-02 15:04:05",
		AllowPatterns: environment.DefaultAllowPatterns(),
		DenyPatterns:  environment.DefaultDenyPatterns(),
	}
}

func testFS() *common.MockFileSystem {
	fsys := common.NewMockFileSystem()
	fsys.AddDir("/usr", 0o755, 0, 0)
	fsys.AddDir("/usr/lib", 0o755, 0, 0)
	fsys.AddDir("/usr/lib/cgi-bin", 0o755, 0, 0)
	fsys.AddFile("/usr/lib/cgi-bin/php", 0o755, 0, 0)
	fsys.AddDir("/srv", 0o755, 0, 0)
	fsys.AddDir("/srv/home", 0o755, 0, 0)
	fsys.AddDir("/usr/local", 0o755, 0, 0)
	fsys.AddDir("/usr/local/sbin", 0o755, 0, 0)
	fsys.AddFile("/usr/local/sbin/cgi-runas", fs.ModeSetuid|0o750, 0, 0)
	return fsys
}

func testResolver() *identitytest.Resolver {
	return identitytest.New().
		AddUser(identity.User{Name: "www-data", UID: 33, GID: 33, HomeDir: "/var/www"}).
		AddGroup(identity.Group{Name: "www-data", GID: 33})
}

func newValidator(cfg *Config) *Validator {
	return NewValidator(cfg, testFS(), testResolver())
}

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.CGIHandler)
	assert.NotEmpty(t, cfg.ScriptSuffix)
	assert.NotEmpty(t, cfg.AllowPatterns)
	assert.Less(t, cfg.UIDRange.Min, cfg.UIDRange.Max)
	assert.Less(t, cfg.GIDRange.Min, cfg.GIDRange.Max)
}

func TestLoad_BadNumericConstant(t *testing.T) {
	orig := DefaultScriptMinUID
	DefaultScriptMinUID = "lots"
	defer func() { DefaultScriptMinUID = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, sysexits.ErrConfig)
}

func TestValidate(t *testing.T) {
	err := newValidator(testConfig()).Validate()
	assert.NoError(t, err)
}

func TestValidate_EmptyConstant(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty handler", func(c *Config) { c.CGIHandler = "" }},
		{"empty base dir", func(c *Config) { c.ScriptBaseDir = "" }},
		{"empty suffix", func(c *Config) { c.ScriptSuffix = "" }},
		{"empty secure path", func(c *Config) { c.SecurePath = "" }},
		{"empty www user", func(c *Config) { c.WWWUser = "" }},
		{"empty www group", func(c *Config) { c.WWWGroup = "" }},
		{"empty date format", func(c *Config) { c.DateFormat = "" }},
		{"empty allow list", func(c *Config) { c.AllowPatterns = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := newValidator(cfg).Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, sysexits.ErrConfig)
		})
	}
}

func TestValidate_BadRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero minimum UID", func(c *Config) { c.UIDRange.Min = 0 }},
		{"inverted UID range", func(c *Config) { c.UIDRange = identity.Range{Min: 5000, Max: 1000} }},
		{"degenerate GID range", func(c *Config) { c.GIDRange = identity.Range{Min: 1000, Max: 1000} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := newValidator(cfg).Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, sysexits.ErrConfig)
		})
	}
}

func TestValidate_OverlongSecurePath(t *testing.T) {
	cfg := testConfig()
	for len(cfg.SecurePath) <= maxSecurePathLen {
		cfg.SecurePath += ":/usr/bin"
	}

	err := newValidator(cfg).Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, sysexits.ErrConfig)
}

func TestValidate_WWWIdentity(t *testing.T) {
	t.Run("unportable user name", func(t *testing.T) {
		cfg := testConfig()
		cfg.WWWUser = "8www"

		err := newValidator(cfg).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrConfig)
	})

	t.Run("unknown user", func(t *testing.T) {
		cfg := testConfig()
		cfg.WWWUser = "nobody-here"

		err := newValidator(cfg).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoUser)
	})
}

func TestValidate_Handler(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		fsys := testFS()
		cfg := testConfig()
		cfg.CGIHandler = "/usr/lib/cgi-bin/python"

		err := NewValidator(cfg, fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoInput)
	})

	t.Run("not canonical", func(t *testing.T) {
		fsys := testFS()
		fsys.AddSymlink("/usr/lib/cgi-bin/php-link", "/usr/lib/cgi-bin/php")
		cfg := testConfig()
		cfg.CGIHandler = "/usr/lib/cgi-bin/php-link"

		err := NewValidator(cfg, fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrUnavailable)
		assert.Contains(t, err.Error(), "not a canonical path")
	})

	t.Run("not root-owned", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/lib/cgi-bin/php", 0o755, 1001, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
		assert.Contains(t, err.Error(), "UID is not 0")
	})

	t.Run("not world-executable", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/lib/cgi-bin/php", 0o750, 0, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
	})

	t.Run("world-writable", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/lib/cgi-bin/php", 0o757, 0, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
		assert.Contains(t, err.Error(), "world-writable")
	})

	t.Run("setuid", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/lib/cgi-bin/php", 0o755, 0, 0)
		fsys.Chmod("/usr/lib/cgi-bin/php", fs.ModeSetuid|0o755)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
	})

	t.Run("untrusted ancestor", func(t *testing.T) {
		fsys := testFS()
		fsys.AddDir("/usr/lib/cgi-bin", 0o755, 1001, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
	})
}

func TestValidate_BaseDir(t *testing.T) {
	t.Run("not a directory", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/srv/home", 0o755, 0, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrUnavailable)
	})

	t.Run("world-writable", func(t *testing.T) {
		fsys := testFS()
		fsys.Chmod("/srv/home", 0o777)

		err := NewValidator(testConfig(), fsys, testResolver()).Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
	})
}

func TestValidateSelf(t *testing.T) {
	validator := newValidator(testConfig())

	t.Run("secure executable", func(t *testing.T) {
		assert.NoError(t, validator.ValidateSelf("/usr/local/sbin/cgi-runas"))
	})

	t.Run("world-executable", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/local/sbin/cgi-runas", fs.ModeSetuid|0o755, 0, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).ValidateSelf("/usr/local/sbin/cgi-runas")
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
		assert.Contains(t, err.Error(), "world-executable")
	})

	t.Run("not root-owned", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/local/sbin/cgi-runas", fs.ModeSetuid|0o750, 33, 33)

		err := NewValidator(testConfig(), fsys, testResolver()).ValidateSelf("/usr/local/sbin/cgi-runas")
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
	})

	t.Run("group-writable", func(t *testing.T) {
		fsys := testFS()
		fsys.AddFile("/usr/local/sbin/cgi-runas", fs.ModeSetuid|0o770, 0, 0)

		err := NewValidator(testConfig(), fsys, testResolver()).ValidateSelf("/usr/local/sbin/cgi-runas")
		require.Error(t, err)
		assert.ErrorIs(t, err, sysexits.ErrNoPerm)
		assert.Contains(t, err.Error(), "group-writable")
	})
}
