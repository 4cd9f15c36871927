// Package main provides the entry point for the cgi-runas helper. The
// helper takes no command-line arguments; any present are ignored. All
// state is per-invocation and ends either in a successful exec or in one
// diagnostic line and a sysexits status.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/isseis/go-cgi-runas/internal/cmdcommon"
	"github.com/isseis/go-cgi-runas/internal/common"
	"github.com/isseis/go-cgi-runas/internal/config"
	"github.com/isseis/go-cgi-runas/internal/environment"
	"github.com/isseis/go-cgi-runas/internal/identity"
	"github.com/isseis/go-cgi-runas/internal/logging"
	"github.com/isseis/go-cgi-runas/internal/privdrop"
	"github.com/isseis/go-cgi-runas/internal/runas"
	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

func main() {
	// Capture the incoming environment and the caller's credentials
	// before anything else touches the process.
	snapshot := environment.Capture()
	dropper := privdrop.New()

	reporter := logging.NewReporter(filepath.Base(os.Args[0]), config.DefaultDateFormat)

	// Pin the working directory to the root before any path is probed.
	if err := os.Chdir("/"); err != nil {
		reporter.Fatal(fmt.Errorf("%w: chdir /: %v", sysexits.ErrOSErr, err))
	}

	cfg, err := config.Load()
	if err != nil {
		reporter.Fatal(err)
	}

	// Scrub the environment before any call that might consult it:
	// identity lookups, logging, path probing.
	sanitizer := environment.NewSanitizer(cfg.AllowPatterns, cfg.DenyPatterns, cfg.SecurePath)
	if err := sanitizer.Sanitize(snapshot); err != nil {
		reporter.Fatal(err)
	}

	logging.SetupLogger(logging.GenerateRunID(), slog.LevelWarn)

	fsys := common.NewDefaultFileSystem()
	resolver := identity.NewDefaultResolver()

	prog, err := cmdcommon.ResolveProgramIdentity(fsys, os.Args[0])
	if err != nil {
		reporter.Fatal(err)
	}
	reporter.SetProgName(prog.Name)

	validator := config.NewValidator(cfg, fsys, resolver)
	if err := validator.Validate(); err != nil {
		reporter.Fatal(err)
	}
	if err := validator.ValidateSelf(prog.Path); err != nil {
		reporter.Fatal(err)
	}

	runner := runas.New(cfg, fsys, resolver, dropper)
	if err := runner.Run(); err != nil {
		reporter.Fatal(err)
	}
}
