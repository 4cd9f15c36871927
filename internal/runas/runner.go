// Package runas wires the pre-exec trust pipeline: script resolution,
// privilege drop, caller verification, and the final exec. Control flow is
// strictly linear; the first failure terminates the run.
package runas

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/config"
	"github.com/isseis/go-cgi-runas/internal/identity"
	"github.com/isseis/go-cgi-runas/internal/script"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Dropper is the privilege-drop surface the pipeline consumes. The
// production implementation is privdrop.Dropper.
type Dropper interface {
	Drop(uid, gid uint32) error
	OriginalUID() int
	OriginalGID() int
}

// Runner executes the pipeline for one invocation.
type Runner struct {
	cfg      *config.Config
	resolver identity.Resolver
	scripts  *script.Resolver
	dropper  Dropper

	environ func() []string
	execve  func(argv0 string, argv []string, envv []string) error
}

// New creates a Runner. The exec step is bound to execve(2); tests replace
// it through the package-internal fields.
func New(cfg *config.Config, fsys common.FileSystem, resolver identity.Resolver, dropper Dropper) *Runner {
	return &Runner{
		cfg:      cfg,
		resolver: resolver,
		scripts:  script.NewResolver(cfg, fsys, resolver),
		dropper:  dropper,
		environ:  os.Environ,
		execve:   unix.Exec,
	}
}

// Run resolves the script, becomes its owner, verifies the caller, and
// replaces the process image with the configured handler. On success it
// does not return.
func (r *Runner) Run() error {
	wwwUser, err := r.resolver.LookupUserName(r.cfg.WWWUser)
	if err != nil {
		return classifyLookupErr(err)
	}
	wwwGroup, err := r.resolver.LookupGroupName(r.cfg.WWWGroup)
	if err != nil {
		return classifyLookupErr(err)
	}

	target, err := r.scripts.Resolve()
	if err != nil {
		return err
	}

	if err := r.dropper.Drop(target.UID, target.GID); err != nil {
		return err
	}

	// The drop replaced the live credentials with the script owner's; the
	// identity recorded before the drop must be the web server's.
	if uid := r.dropper.OriginalUID(); uid != int(wwwUser.UID) {
		return fmt.Errorf("%w: must be called by user %s (caller UID is %d)", sysexits.ErrNoPerm, r.cfg.WWWUser, uid)
	}
	if gid := r.dropper.OriginalGID(); gid != int(wwwGroup.GID) {
		return fmt.Errorf("%w: must be called by group %s (caller GID is %d)", sysexits.ErrNoPerm, r.cfg.WWWGroup, gid)
	}

	slog.Debug("Executing handler",
		"handler", r.cfg.CGIHandler,
		"script", target.Path,
		"owner", target.Owner.Name)

	argv := []string{r.cfg.CGIHandler}
	if err := r.execve(r.cfg.CGIHandler, argv, r.environ()); err != nil {
		return fmt.Errorf("%w: failed to execute %s: %v", sysexits.ErrOSErr, r.cfg.CGIHandler, err)
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
