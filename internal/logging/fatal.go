package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/isseis/go-cgi-runas/internal/sysexits"
	"github.com/isseis/go-cgi-runas/internal/terminal"
)

// timestampPlaceholder is substituted when timestamp formatting yields
// nothing; reporting must never block on a bad date format.
const timestampPlaceholder = "-"

// Reporter is the single exit path of the helper. It writes exactly one
// diagnostic line to standard error and terminates the process with the
// sysexits code classified from the error.
//
// On a terminal the line is "<progname>: <message>"; when standard error is
// captured (the normal case, by the web server) a timestamp is prepended.
type Reporter struct {
	progName   string
	dateFormat string
	detector   terminal.Detector
	w          io.Writer
	now        func() time.Time
	exit       func(int)
}

// NewReporter creates a Reporter writing to the process's standard error.
func NewReporter(progName, dateFormat string) *Reporter {
	return &Reporter{
		progName:   progName,
		dateFormat: dateFormat,
		detector:   terminal.NewStderrDetector(),
		w:          os.Stderr,
		now:        time.Now,
		exit:       os.Exit,
	}
}

// SetProgName updates the program name prefix once the canonical executable
// path is known.
func (r *Reporter) SetProgName(name string) {
	if name != "" {
		r.progName = name
	}
}

// Fatal reports err and terminates the process. It never returns.
func (r *Reporter) Fatal(err error) {
	code := sysexits.Classify(err)

	if r.detector.IsTerminal() {
		fmt.Fprintf(r.w, "%s: %v\n", r.progName, err)
	} else {
		timestamp := r.now().Format(r.dateFormat)
		if timestamp == "" {
			timestamp = timestampPlaceholder
		}
		fmt.Fprintf(r.w, "%s: %s: %v\n", timestamp, r.progName, err)
	}

	slog.Debug("Terminating", "exit_code", code, "error", err)

	r.exit(code)
}
