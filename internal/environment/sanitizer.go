// Package environment captures the environment handed over by the web
// server and rebuilds the live process environment from it, admitting only
// allow-listed CGI meta-variables. The interpreter never sees anything the
// sanitiser did not readmit.
package environment

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Snapshot is an ordered copy of the incoming environment, captured once
// before any library call that might read or mutate the environment.
type Snapshot []string

// Capture copies the current process environment. Call it first thing in
// main, before anything else runs.
func Capture() Snapshot {
	return Snapshot(os.Environ())
}

// Sanitizer rebuilds the process environment from a snapshot.
//
// Pattern semantics follow the suExec convention: a pattern ending in "="
// matches the whole variable name (up to and including the "="); any other
// pattern is a prefix match on the full "name=value" entry. Both reduce to
// a prefix test on the entry string.
type Sanitizer struct {
	allow      []string
	deny       []string
	securePath string
}

// NewSanitizer creates a Sanitizer with the given pattern lists and the
// value PATH is forced to afterwards.
func NewSanitizer(allow, deny []string, securePath string) *Sanitizer {
	return &Sanitizer{allow: allow, deny: deny, securePath: securePath}
}

// Sanitize clears the live environment and re-admits snapshot entries that
// match an allow pattern and no deny pattern. Entries without "=", with a
// leading "=", or with an empty value are dropped. The first occurrence of
// a name wins. Finally PATH is set to the secure path, overwriting.
func (s *Sanitizer) Sanitize(snapshot Snapshot) error {
	os.Clearenv()

	kept := 0
	for _, entry := range snapshot {
		if entry == "" {
			continue
		}
		if !matchesAny(entry, s.allow) {
			continue
		}
		if matchesAny(entry, s.deny) {
			slog.Warn("Dropping deny-listed environment entry", "name", entryName(entry))
			continue
		}

		key, value, ok := common.ParseEnvVariable(entry)
		if !ok || value == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("%w: failed to set %s: %v", sysexits.ErrOSErr, key, err)
		}
		kept++
	}

	if err := os.Setenv("PATH", s.securePath); err != nil {
		return fmt.Errorf("%w: failed to set PATH: %v", sysexits.ErrOSErr, err)
	}

	slog.Debug("Environment sanitised",
		"incoming", len(snapshot),
		"kept", kept)
	return nil
}

// matchesAny reports whether entry matches one of patterns. A pattern
// "NAME=" matches exactly the variable NAME; a pattern without a trailing
// "=" matches any entry it prefixes.
func matchesAny(entry string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasPrefix(entry, pattern) {
			return true
		}
	}
	return false
}

// entryName returns the name part of a "name=value" entry for logging.
func entryName(entry string) string {
	name, _, found := strings.Cut(entry, "=")
	if !found {
		return entry
	}
	return name
}
