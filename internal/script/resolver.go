// Package script resolves the request's PATH_TRANSLATED to a script the
// helper is willing to run: canonical, regular, inside the configured base
// directory, the document root, and the owner's home, with the required
// suffix and a trustworthy directory chain.
package script

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/config"
	"github.com/isseis/go-cgi-runas/internal/identity"
	"github.com/isseis/go-cgi-runas/internal/pathutil"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
	"github.com/isseis/go-cgi-runas/internal/trust"
)

// Script is the fully resolved and vetted execution target.
type Script struct {
	Path  string
	UID   uint32
	GID   uint32
	Mode  fs.FileMode
	Owner *identity.User
	Group *identity.Group

	// HomeDir is the owner's canonical home directory.
	HomeDir string
}

// Resolver performs script resolution against the sanitised environment.
type Resolver struct {
	cfg      *config.Config
	fsys     common.FileSystem
	resolver identity.Resolver

	lookupEnv func(string) (string, bool)
}

// NewResolver creates a Resolver reading from the process environment.
func NewResolver(cfg *config.Config, fsys common.FileSystem, resolver identity.Resolver) *Resolver {
	return NewResolverWithEnv(cfg, fsys, resolver, os.LookupEnv)
}

// NewResolverWithEnv creates a Resolver with an explicit environment lookup
// function, so tests can supply a fixed variable set.
func NewResolverWithEnv(cfg *config.Config, fsys common.FileSystem, resolver identity.Resolver, lookupEnv func(string) (string, bool)) *Resolver {
	return &Resolver{
		cfg:       cfg,
		fsys:      fsys,
		resolver:  resolver,
		lookupEnv: lookupEnv,
	}
}

// Resolve runs the full resolution pipeline and returns the vetted script.
// Each stage must succeed before the next reads from the descriptor.
func (r *Resolver) Resolve() (*Script, error) {
	path, err := r.translatedPath()
	if err != nil {
		return nil, err
	}

	info, err := r.fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", sysexits.ErrOSErr, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s: not a regular file", sysexits.ErrUnavailable, path)
	}

	if !pathutil.IsWithin(path, r.cfg.ScriptBaseDir) {
		return nil, fmt.Errorf("%w: %s: not in %s", sysexits.ErrUnavailable, path, r.cfg.ScriptBaseDir)
	}
	if err := r.checkSuffix(path); err != nil {
		return nil, err
	}
	if err := r.checkDocumentRoot(path); err != nil {
		return nil, err
	}

	uid, gid, err := common.Owner(info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sysexits.ErrOSErr, err)
	}

	owner, group, err := identity.ResolveOwner(r.resolver, uid, gid, r.cfg.UIDRange, r.cfg.GIDRange)
	if err != nil {
		return nil, err
	}

	home, err := r.ownerHome(path, owner)
	if err != nil {
		return nil, err
	}

	if err := r.checkChains(path, home, uid, gid); err != nil {
		return nil, err
	}

	// Fresh metadata for the mode checks; the trust checks above may have
	// taken a while and the file is user-controlled.
	mode, err := r.checkScriptMode(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Script resolved",
		"path", path,
		"owner", owner.Name,
		"group", group.Name)

	return &Script{
		Path:    path,
		UID:     uid,
		GID:     gid,
		Mode:    mode,
		Owner:   owner,
		Group:   group,
		HomeDir: home,
	}, nil
}

// translatedPath reads PATH_TRANSLATED and requires it to already be the
// canonical path of an existing file.
func (r *Resolver) translatedPath() (string, error) {
	raw, ok := r.lookupEnv("PATH_TRANSLATED")
	if !ok {
		return "", fmt.Errorf("%w: PATH_TRANSLATED is not set", sysexits.ErrNoInput)
	}
	if raw == "" {
		return "", fmt.Errorf("%w: PATH_TRANSLATED is empty", sysexits.ErrNoInput)
	}

	canonical, err := pathutil.Canonicalize(r.fsys, raw)
	if err != nil {
		return "", err
	}
	if canonical != raw {
		return "", fmt.Errorf("%w: %s: not a canonical path", sysexits.ErrUnavailable, raw)
	}
	return canonical, nil
}

// checkSuffix requires the last "."-separated tail of the filename to equal
// the configured suffix, case-sensitively.
func (r *Resolver) checkSuffix(path string) error {
	base := filepath.Base(path)
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return fmt.Errorf("%w: %s: has no filename ending", sysexits.ErrUnavailable, path)
	}
	if base[dot:] != r.cfg.ScriptSuffix {
		return fmt.Errorf("%w: %s: does not end with %q", sysexits.ErrUnavailable, path, r.cfg.ScriptSuffix)
	}
	return nil
}

func (r *Resolver) checkDocumentRoot(path string) error {
	raw, ok := r.lookupEnv("DOCUMENT_ROOT")
	if !ok || raw == "" {
		return fmt.Errorf("%w: DOCUMENT_ROOT is not set", sysexits.ErrNoInput)
	}

	docRoot, err := pathutil.Canonicalize(r.fsys, raw)
	if err != nil {
		return err
	}
	if !pathutil.IsWithin(path, docRoot) {
		return fmt.Errorf("%w: %s: not in document root %s", sysexits.ErrUnavailable, path, docRoot)
	}
	return nil
}

// ownerHome canonicalises the owner's home directory and requires the
// script to live inside it.
func (r *Resolver) ownerHome(path string, owner *identity.User) (string, error) {
	home, err := pathutil.Canonicalize(r.fsys, owner.HomeDir)
	if err != nil {
		return "", err
	}
	if home != owner.HomeDir {
		return "", fmt.Errorf("%w: %s: not a canonical path", sysexits.ErrUnavailable, owner.HomeDir)
	}
	if !pathutil.IsWithin(path, home) {
		return "", fmt.Errorf("%w: %s: not in %s's home directory %s", sysexits.ErrUnavailable, path, owner.Name, home)
	}
	return home, nil
}

// checkChains verifies the two trust segments: the directories from the
// script down to and including the home belong to the owner, and the
// directories above the home belong to root.
func (r *Resolver) checkChains(path, home string, uid, gid uint32) error {
	if err := trust.Chain(r.fsys, uid, gid, path, filepath.Dir(home)); err != nil {
		return err
	}
	return trust.Chain(r.fsys, 0, 0, home, "")
}

func (r *Resolver) checkScriptMode(path string) (fs.FileMode, error) {
	info, err := r.fsys.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", sysexits.ErrOSErr, path, err)
	}

	mode := info.Mode()
	if mode&0o002 != 0 {
		return 0, fmt.Errorf("%w: %s: is world-writable", sysexits.ErrNoPerm, path)
	}
	if mode&(fs.ModeSetuid|fs.ModeSetgid) != 0 {
		return 0, fmt.Errorf("%w: %s: has setuid or setgid bits set", sysexits.ErrNoPerm, path)
	}
	return mode, nil
}
