package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/identity"
	"github.com/isseis/go-cgi-runas/internal/pathutil"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
	"github.com/isseis/go-cgi-runas/internal/trust"
)

// Validator checks at runtime that the compile-time configuration is
// complete, in range, and points at filesystem objects nobody but root can
// tamper with. An administrator who installs the helper over an insecure
// setup is forced to fix it.
type Validator struct {
	cfg      *Config
	fsys     common.FileSystem
	resolver identity.Resolver
}

// NewValidator creates a Validator.
func NewValidator(cfg *Config, fsys common.FileSystem, resolver identity.Resolver) *Validator {
	return &Validator{cfg: cfg, fsys: fsys, resolver: resolver}
}

// Validate runs every configuration check. The order is values first (cheap,
// no filesystem), then the web-server user and group, then the interpreter,
// then the script base directory.
func (v *Validator) Validate() error {
	if err := v.validateValues(); err != nil {
		return err
	}
	if err := v.validateWWWIdentity(); err != nil {
		return err
	}
	if err := v.validateHandler(); err != nil {
		return err
	}
	if err := v.validateBaseDir(); err != nil {
		return err
	}
	slog.Debug("Configuration validated",
		"cgi_handler", v.cfg.CGIHandler,
		"script_base_dir", v.cfg.ScriptBaseDir,
		"script_suffix", v.cfg.ScriptSuffix)
	return nil
}

func (v *Validator) validateValues() error {
	required := []struct {
		name  string
		value string
	}{
		{"CGI_HANDLER", v.cfg.CGIHandler},
		{"SCRIPT_BASE_DIR", v.cfg.ScriptBaseDir},
		{"SCRIPT_SUFFIX", v.cfg.ScriptSuffix},
		{"SECURE_PATH", v.cfg.SecurePath},
		{"WWW_USER", v.cfg.WWWUser},
		{"WWW_GROUP", v.cfg.WWWGroup},
		{"DATE_FORMAT", v.cfg.DateFormat},
	}
	for _, c := range required {
		if c.value == "" {
			return fmt.Errorf("%w: %s is empty", sysexits.ErrConfig, c.name)
		}
	}

	if len(v.cfg.SecurePath) > maxSecurePathLen {
		return fmt.Errorf("%w: SECURE_PATH is longer than %d bytes", sysexits.ErrConfig, maxSecurePathLen)
	}
	if len(v.cfg.AllowPatterns) == 0 {
		return fmt.Errorf("%w: environment allow-list is empty", sysexits.ErrConfig)
	}

	if err := validateRange("UID", v.cfg.UIDRange); err != nil {
		return err
	}
	return validateRange("GID", v.cfg.GIDRange)
}

func validateRange(kind string, r identity.Range) error {
	if r.Min < 1 {
		return fmt.Errorf("%w: minimum script %s must be at least 1, got %d", sysexits.ErrConfig, kind, r.Min)
	}
	if r.Min >= r.Max {
		return fmt.Errorf("%w: script %s range [%d, %d] is empty", sysexits.ErrConfig, kind, r.Min, r.Max)
	}
	return nil
}

func (v *Validator) validateWWWIdentity() error {
	if !identity.IsPortableName(v.cfg.WWWUser) {
		return fmt.Errorf("%w: WWW_USER %q is not a portable name", sysexits.ErrConfig, v.cfg.WWWUser)
	}
	if !identity.IsPortableName(v.cfg.WWWGroup) {
		return fmt.Errorf("%w: WWW_GROUP %q is not a portable name", sysexits.ErrConfig, v.cfg.WWWGroup)
	}

	if _, err := v.resolver.LookupUserName(v.cfg.WWWUser); err != nil {
		return classifyLookupErr(err)
	}
	if _, err := v.resolver.LookupGroupName(v.cfg.WWWGroup); err != nil {
		return classifyLookupErr(err)
	}
	return nil
}

// classifyLookupErr maps unknown-account errors to NOUSER and leaves
// already-classified errors (OSERR) untouched.
func classifyLookupErr(err error) error {
	if errors.Is(err, identity.ErrUnknownUser) || errors.Is(err, identity.ErrUnknownGroup) {
		return fmt.Errorf("%w: %v", sysexits.ErrNoUser, err)
	}
	return err
}

// validateHandler checks the interpreter binary: canonical path, regular
// file, owned by root, world-executable but neither writable by anybody but
// root nor setuid/setgid, inside a root-owned directory chain.
func (v *Validator) validateHandler() error {
	canonical, err := pathutil.Canonicalize(v.fsys, v.cfg.CGIHandler)
	if err != nil {
		return err
	}
	if canonical != v.cfg.CGIHandler {
		return fmt.Errorf("%w: %s: not a canonical path", sysexits.ErrUnavailable, v.cfg.CGIHandler)
	}

	info, err := v.fsys.Stat(canonical)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", sysexits.ErrOSErr, canonical, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s: not a regular file", sysexits.ErrUnavailable, canonical)
	}

	if err := requireRootOwned(info, canonical); err != nil {
		return err
	}

	mode := info.Mode()
	if mode&0o001 == 0 {
		return fmt.Errorf("%w: %s: is not world-executable", sysexits.ErrNoPerm, canonical)
	}
	if err := requireUnwritableByOthers(mode, canonical); err != nil {
		return err
	}
	if mode&(fs.ModeSetuid|fs.ModeSetgid) != 0 {
		return fmt.Errorf("%w: %s: has setuid or setgid bits set", sysexits.ErrNoPerm, canonical)
	}

	return trust.Chain(v.fsys, 0, 0, canonical, "")
}

func (v *Validator) validateBaseDir() error {
	canonical, err := pathutil.Canonicalize(v.fsys, v.cfg.ScriptBaseDir)
	if err != nil {
		return err
	}
	if canonical != v.cfg.ScriptBaseDir {
		return fmt.Errorf("%w: %s: not a canonical path", sysexits.ErrUnavailable, v.cfg.ScriptBaseDir)
	}

	info, err := v.fsys.Stat(canonical)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", sysexits.ErrOSErr, canonical, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s: not a directory", sysexits.ErrUnavailable, canonical)
	}

	if err := requireRootOwned(info, canonical); err != nil {
		return err
	}
	if err := requireUnwritableByOthers(info.Mode(), canonical); err != nil {
		return err
	}

	return trust.Chain(v.fsys, 0, 0, canonical, "")
}

// ValidateSelf checks the running executable itself: root-owned, writable
// by nobody but root, not world-executable (clients reach the helper via
// the web server, never directly), inside a root-owned directory chain.
func (v *Validator) ValidateSelf(progPath string) error {
	info, err := v.fsys.Stat(progPath)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", sysexits.ErrOSErr, progPath, err)
	}

	if err := requireRootOwned(info, progPath); err != nil {
		return err
	}
	if err := requireUnwritableByOthers(info.Mode(), progPath); err != nil {
		return err
	}
	if info.Mode()&0o001 != 0 {
		return fmt.Errorf("%w: %s: is world-executable", sysexits.ErrNoPerm, progPath)
	}

	return trust.Chain(v.fsys, 0, 0, progPath, "")
}

func requireRootOwned(info fs.FileInfo, path string) error {
	uid, gid, err := common.Owner(info)
	if err != nil {
		return fmt.Errorf("%w: %v", sysexits.ErrOSErr, err)
	}
	if uid != 0 {
		return fmt.Errorf("%w: %s: UID is not 0", sysexits.ErrNoPerm, path)
	}
	if gid != 0 {
		return fmt.Errorf("%w: %s: GID is not 0", sysexits.ErrNoPerm, path)
	}
	return nil
}

func requireUnwritableByOthers(mode fs.FileMode, path string) error {
	if mode&0o002 != 0 {
		return fmt.Errorf("%w: %s: is world-writable", sysexits.ErrNoPerm, path)
	}
	if mode&0o020 != 0 {
		return fmt.Errorf("%w: %s: is group-writable", sysexits.ErrNoPerm, path)
	}
	return nil
}
