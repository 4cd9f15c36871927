// Package config holds the helper's compile-time configuration and its
// runtime validator. There is no configuration file: the constants below
// form the entire configuration surface, and changing one requires a
// rebuild and reinstall.
package config

import (
	"fmt"
	"strconv"

	"github.com/isseis/go-cgi-runas/internal/environment"
	"github.com/isseis/go-cgi-runas/internal/identity"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Build-time variables (set via ldflags)
var (
	// DefaultCGIHandler is the absolute path of the interpreter scripts
	// are run with.
	DefaultCGIHandler = "/usr/lib/cgi-bin/php"

	// DefaultScriptBaseDir encloses all permitted scripts; scripts outside
	// of it are rejected.
	DefaultScriptBaseDir = "/home"

	// DefaultScriptSuffix is the required filename suffix, including the
	// leading dot.
	DefaultScriptSuffix = ".php"

	// Script owner UID/GID bounds, inclusive.
	DefaultScriptMinUID = "1000"
	DefaultScriptMaxUID = "60000"
	DefaultScriptMinGID = "1000"
	DefaultScriptMaxGID = "60000"

	// DefaultSecurePath is what PATH is forced to.
	DefaultSecurePath = "/usr/bin:/bin"

	// DefaultWWWUser and DefaultWWWGroup name the identity the web server
	// runs as.
	DefaultWWWUser  = "www-data"
	DefaultWWWGroup = "www-data"

	// DefaultDateFormat is the timestamp layout used when standard error
	// is not a terminal.
	DefaultDateFormat = "2006-01-02 15:04:05"
)

// maxSecurePathLen bounds the compiled-in PATH value.
const maxSecurePathLen = 1024

// Config is the parsed compile-time configuration.
type Config struct {
	CGIHandler    string
	ScriptBaseDir string
	ScriptSuffix  string
	UIDRange      identity.Range
	GIDRange      identity.Range
	SecurePath    string
	WWWUser       string
	WWWGroup      string
	DateFormat    string
	AllowPatterns []string
	DenyPatterns  []string
}

// Load parses the build-time variables into a Config. Non-numeric range
// bounds are a build mistake and map to CONFIG.
func Load() (*Config, error) {
	minUID, err := parseID("SCRIPT_MIN_UID", DefaultScriptMinUID)
	if err != nil {
		return nil, err
	}
	maxUID, err := parseID("SCRIPT_MAX_UID", DefaultScriptMaxUID)
	if err != nil {
		return nil, err
	}
	minGID, err := parseID("SCRIPT_MIN_GID", DefaultScriptMinGID)
	if err != nil {
		return nil, err
	}
	maxGID, err := parseID("SCRIPT_MAX_GID", DefaultScriptMaxGID)
	if err != nil {
		return nil, err
	}

	return &Config{
		CGIHandler:    DefaultCGIHandler,
		ScriptBaseDir: DefaultScriptBaseDir,
		ScriptSuffix:  DefaultScriptSuffix,
		UIDRange:      identity.Range{Min: minUID, Max: maxUID},
		GIDRange:      identity.Range{Min: minGID, Max: maxGID},
		SecurePath:    DefaultSecurePath,
		WWWUser:       DefaultWWWUser,
		WWWGroup:      DefaultWWWGroup,
		DateFormat:    DefaultDateFormat,
		AllowPatterns: environment.DefaultAllowPatterns(),
		DenyPatterns:  environment.DefaultDenyPatterns(),
	}, nil
}

func parseID(name, value string) (uint32, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a numeric ID", sysexits.ErrConfig, name, value)
	}
	return uint32(id), nil
}
