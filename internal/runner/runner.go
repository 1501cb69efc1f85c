// Package runner implements the process runner of spec.md §4.4 (C4):
// spawn a child for an already-synthesised argv, wait for it, and
// report its exit status — preceded by a mandatory external linter
// gate. Grounded on the teacher's custom-build-step loop in
// internal/build/build.go (exec.CommandContext, multiwriter logging,
// no retry on failure).
package runner

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/N8-Wright/otter-sub000/internal/otterrors"
	"github.com/sirupsen/logrus"
)

// Runner spawns the linter and the primary build command for a
// target. The zero value is usable; Linter defaults to "clang-tidy".
type Runner struct {
	// Linter is the external static analyser invoked before every
	// build/link command. Defaults to "clang-tidy" when empty.
	Linter string

	// Env is passed to every spawned child verbatim; nil means
	// "inherit the current process environment", the os/exec default.
	// Per spec.md §9, this package never reads os.Environ() itself —
	// the caller (buildctx) is the only place global environ may be
	// read.
	Env []string

	Log *logrus.Logger

	linterCache otterrors.ToolCache
}

func (r *Runner) linter() string {
	if r.Linter != "" {
		return r.Linter
	}
	return "clang-tidy"
}

// lintSources runs `clang-tidy <sources…> -- <include tokens…>` once
// per target, per spec.md §4.4. Availability of the linter itself is
// cached across a single build pass (mirroring the teacher's
// single-evaluation idioms), but a per-target non-zero exit is never
// cached: it must fail exactly the target whose sources triggered it.
func (r *Runner) lintSources(ctx context.Context, target string, sources []string, includeTokens []string) error {
	if err := r.linterCache.Check(func() error {
		if _, err := exec.LookPath(r.linter()); err != nil {
			return &otterrors.ToolMissing{Tool: r.linter()}
		}
		return nil
	}); err != nil {
		return &otterrors.LinterFailure{Target: target, Err: err}
	}

	args := append([]string{}, sources...)
	args = append(args, "--")
	args = append(args, includeTokens...)

	cmd := exec.CommandContext(ctx, r.linter(), args...)
	cmd.Env = r.Env
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if r.Log != nil {
			r.Log.WithField("target", target).WithField("output", out.String()).Error("clang-tidy rejected sources")
		}
		return &otterrors.LinterFailure{Target: target, Err: err}
	}
	return nil
}

// Run executes the linter gate and then argv for target, returning
// the primary command's exit status. A target whose sources are
// empty (nothing to lint, e.g. a re-link with no compile step) skips
// the gate.
func (r *Runner) Run(ctx context.Context, target string, argv []string, sources []string, includeTokens []string) (int, error) {
	if len(sources) > 0 {
		if err := r.lintSources(ctx, target, sources, includeTokens); err != nil {
			return -1, err
		}
	}

	if len(argv) == 0 {
		return -1, &otterrors.InvalidArgument{Reason: "argv is empty"}
	}

	if _, err := exec.LookPath(argv[0]); err != nil {
		return -1, &otterrors.SpawnFailure{Argv: argv, Err: err}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = r.Env
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			status := exitErr.ExitCode()
			if r.Log != nil {
				r.Log.WithField("target", target).WithField("output", out.String()).Error("command failed")
			}
			return status, &otterrors.CommandFailure{Target: target, Argv: argv, ExitCode: status}
		}
		return -1, &otterrors.SpawnFailure{Argv: argv, Err: err}
	}
	return 0, nil
}
