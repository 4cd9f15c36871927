// Package cmdcommon provides common functionality for the helper's entry
// point, chiefly discovery of the running executable's canonical path.
package cmdcommon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/pathutil"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// procSelfExe is the Linux oracle for a process's own executable. There is
// no other reliable way to find it.
const procSelfExe = "/proc/self/exe"

// ProgramIdentity is the canonical path and basename of the running
// executable. Set once during startup; immutable afterwards.
type ProgramIdentity struct {
	Path string
	Name string
}

// ResolveProgramIdentity determines the canonical path of the running
// executable, preferring /proc/self/exe and falling back to argv[0]
// resolved against PATH. Inability to determine the path is fatal.
func ResolveProgramIdentity(fsys common.FileSystem, argv0 string) (ProgramIdentity, error) {
	target, err := os.Readlink(procSelfExe)
	if err != nil {
		return resolveFromArgv0(fsys, argv0, err)
	}
	if target == "" {
		return ProgramIdentity{}, fmt.Errorf("%w: link %s: resolves to nothing", sysexits.ErrOSErr, procSelfExe)
	}

	canonical, err := pathutil.Canonicalize(fsys, target)
	if err != nil {
		return ProgramIdentity{}, err
	}
	return ProgramIdentity{Path: canonical, Name: filepath.Base(canonical)}, nil
}

func resolveFromArgv0(fsys common.FileSystem, argv0 string, readlinkErr error) (ProgramIdentity, error) {
	if argv0 == "" {
		return ProgramIdentity{}, fmt.Errorf("%w: readlink %s: %v", sysexits.ErrOSErr, procSelfExe, readlinkErr)
	}

	resolved := argv0
	if !strings.Contains(argv0, "/") {
		found, err := exec.LookPath(argv0)
		if err != nil {
			return ProgramIdentity{}, fmt.Errorf("%w: cannot locate executable %s: %v", sysexits.ErrOSErr, argv0, err)
		}
		resolved = found
	}

	canonical, err := pathutil.Canonicalize(fsys, resolved)
	if err != nil {
		return ProgramIdentity{}, err
	}
	return ProgramIdentity{Path: canonical, Name: filepath.Base(canonical)}, nil
}
