// Package trust verifies that every directory enclosing a path is owned by
// the expected identity and cannot be modified by anybody else. A script is
// only as trustworthy as the least trustworthy directory above it.
package trust

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/pathutil"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Chain asserts that every ancestor of start up to (and excluding) stop is
// owned by uid:gid and is neither group- nor world-writable. start and stop
// must be canonical. An empty stop walks up to the filesystem root.
func Chain(fsys common.FileSystem, uid, gid uint32, start, stop string) error {
	dirs, err := pathutil.Ancestors(start, stop)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		if err := checkDir(fsys, uid, gid, dir); err != nil {
			return err
		}
	}

	slog.Debug("Trust chain verified",
		"start", start,
		"stop", stop,
		"uid", uid,
		"gid", gid,
		"directories", len(dirs))
	return nil
}

func checkDir(fsys common.FileSystem, uid, gid uint32, dir string) error {
	info, err := fsys.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", sysexits.ErrOSErr, dir, err)
	}

	duid, dgid, err := common.Owner(info)
	if err != nil {
		return fmt.Errorf("%w: %v", sysexits.ErrOSErr, err)
	}

	if duid != uid {
		return fmt.Errorf("%w: %s: not owned by UID %d", sysexits.ErrNoPerm, dir, uid)
	}
	if dgid != gid {
		return fmt.Errorf("%w: %s: not owned by GID %d", sysexits.ErrNoPerm, dir, gid)
	}

	mode := info.Mode()
	if mode&worldWritable != 0 {
		return fmt.Errorf("%w: %s: is world-writable", sysexits.ErrNoPerm, dir)
	}
	if mode&groupWritable != 0 {
		return fmt.Errorf("%w: %s: is group-writable", sysexits.ErrNoPerm, dir)
	}
	return nil
}

// Permission bits checked on every chain element.
const (
	groupWritable fs.FileMode = 0o020
	worldWritable fs.FileMode = 0o002
)
