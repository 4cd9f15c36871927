// Package sysexits maps fatal error kinds to the BSD sysexits(3) status
// codes the helper terminates with. Every error produced by the pre-exec
// pipeline wraps exactly one of the kind sentinels defined here; Classify
// is exhausted once, in main, to turn the error into an exit status.
package sysexits

import "errors"

// Exit status codes, per sysexits(3).
const (
	// NoInput (EX_NOINPUT) indicates a required file or environment
	// variable is missing or empty.
	NoInput = 66
	// NoUser (EX_NOUSER) indicates a named user or group does not exist.
	NoUser = 67
	// Unavailable (EX_UNAVAILABLE) indicates a violated invariant: a path
	// that is too long or not canonical, a wrong file type, or a suffix
	// mismatch.
	Unavailable = 69
	// Software (EX_SOFTWARE) indicates an internal bug.
	Software = 70
	// OSErr (EX_OSERR) indicates a failed system call.
	OSErr = 71
	// NoPerm (EX_NOPERM) indicates a failed ownership or mode check, or a
	// caller identity mismatch.
	NoPerm = 77
	// Config (EX_CONFIG) indicates invalid compile-time configuration.
	Config = 78
)

// Kind sentinels. Pipeline errors wrap one of these with fmt.Errorf("%w: ...").
var (
	ErrNoInput     = errors.New("missing input")
	ErrNoUser      = errors.New("unknown user or group")
	ErrUnavailable = errors.New("invariant violated")
	ErrSoftware    = errors.New("internal error")
	ErrOSErr       = errors.New("system call failed")
	ErrNoPerm      = errors.New("permission denied")
	ErrConfig      = errors.New("invalid configuration")
)

// Classify returns the exit status for err. An error that wraps none of the
// kind sentinels is an internal bug and classifies as Software.
func Classify(err error) int {
	switch {
	case errors.Is(err, ErrNoInput):
		return NoInput
	case errors.Is(err, ErrNoUser):
		return NoUser
	case errors.Is(err, ErrUnavailable):
		return Unavailable
	case errors.Is(err, ErrOSErr):
		return OSErr
	case errors.Is(err, ErrNoPerm):
		return NoPerm
	case errors.Is(err, ErrConfig):
		return Config
	default:
		return Software
	}
}
