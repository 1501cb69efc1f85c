// Package otlog supplies the two collaborators spec.md §1 names but
// declines to design: "a logger with severity sinks" and "terminal
// colouring". They are kept as distinct concerns, matching how §1
// lists them separately. The teacher itself never reaches for either
// (it calls log.Printf directly); the richer idiom here is grounded on
// DrDaveD-apptainer and jesseduffield-lazydocker, the pack members
// that do carry a severity logger and a colour library.
package otlog

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// New builds the severity-sink logger threaded through buildctx,
// runner, and graph. ERROR-level entries always carry the target name
// in a structured field, per spec.md §7 ("every failure path logs at
// ERROR severity with target name and underlying reason").
func New() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetOutput(os.Stderr)
	return l
}

// ForTarget returns a logger entry pre-populated with the target name
// field, so every call site doesn't repeat WithField("target", name).
func ForTarget(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("target", name)
}

// colorEnabled reports whether stdout is an interactive terminal.
// Computed once, mirroring the teacher's isTerminal idiom in
// internal/batch/batch.go (there backed by unix.IoctlGetTermios; here
// by go-isatty, already a teacher dependency that was otherwise
// unused).
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// Summary returns the CLI's one-line human-facing build summary,
// colourised only when attached to a terminal. This is kept entirely
// separate from the structured logrus sink: colouring is a terminal
// presentation concern, not a log severity concern.
func Summary(built, upToDate, failed int) string {
	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)
	if !colorEnabled {
		ok.DisableColor()
		warn.DisableColor()
		bad.DisableColor()
	}
	if failed > 0 {
		return bad.Sprintf("build failed: %d built, %d up to date, %d failed", built, upToDate, failed)
	}
	if built == 0 {
		return warn.Sprintf("nothing to do: %d up to date", upToDate)
	}
	return ok.Sprintf("built %d target(s), %d up to date", built, upToDate)
}
