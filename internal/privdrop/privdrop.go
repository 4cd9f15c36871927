// Package privdrop drops root privileges to the script owner and proves the
// drop is irreversible. Any failure on the way down terminates the run; a
// successful return guarantees the process can no longer become root.
package privdrop

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Dropper performs the ordered privilege drop. It records the real UID and
// GID of the calling process at construction time, before any credential
// changes, so the caller identity can still be checked after the drop.
type Dropper struct {
	originalUID int
	originalGID int

	setgroups func([]int) error
	setgid    func(int) error
	setuid    func(int) error
	getuid    func() int
	getgid    func() int
}

// New creates a Dropper bound to the real syscalls. Construct it first
// thing in main, while the process credentials are still the caller's.
func New() *Dropper {
	return &Dropper{
		originalUID: unix.Getuid(),
		originalGID: unix.Getgid(),
		setgroups:   unix.Setgroups,
		setgid:      unix.Setgid,
		setuid:      unix.Setuid,
		getuid:      unix.Getuid,
		getgid:      unix.Getgid,
	}
}

// OriginalUID returns the real UID the process was started with.
func (d *Dropper) OriginalUID() int { return d.originalUID }

// OriginalGID returns the real GID the process was started with.
func (d *Dropper) OriginalGID() int { return d.originalGID }

// Drop clears the supplementary groups, sets all GIDs, sets all UIDs, and
// then proves the change is permanent by attempting to become root again.
// The drop is all-or-nothing: any failure aborts the run.
func (d *Dropper) Drop(uid, gid uint32) error {
	if err := d.setgroups([]int{}); err != nil {
		// Some platforms refuse an empty supplementary list for a
		// non-root target; the intent is "nothing beyond primary".
		if fallbackErr := d.setgroups([]int{int(gid)}); fallbackErr != nil {
			return fmt.Errorf("%w: failed to drop supplementary groups: %v", sysexits.ErrOSErr, err)
		}
	}

	if err := d.setgid(int(gid)); err != nil {
		return fmt.Errorf("%w: failed to set group ID %d: %v", sysexits.ErrOSErr, gid, err)
	}
	if err := d.setuid(int(uid)); err != nil {
		return fmt.Errorf("%w: failed to set user ID %d: %v", sysexits.ErrOSErr, uid, err)
	}

	// The drop must be permanent. If root is reachable again the process
	// must not continue.
	if err := d.setuid(0); err == nil {
		slog.Error("Privilege drop is reversible",
			"uid", uid,
			"gid", gid,
			"current_uid", d.getuid())
		return fmt.Errorf("%w: could regain privileges, aborting", sysexits.ErrUnavailable)
	}

	if d.getuid() != int(uid) || d.getgid() != int(gid) {
		return fmt.Errorf("%w: process identity is %d:%d after dropping to %d:%d",
			sysexits.ErrUnavailable, d.getuid(), d.getgid(), uid, gid)
	}

	slog.Debug("Privileges dropped", "uid", uid, "gid", gid)
	return nil
}
