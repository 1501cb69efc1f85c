// Package otterrors implements the error taxonomy of spec.md §7 as
// distinct, xerrors-wrapped types, following the "%w"-chainable style
// the teacher uses throughout internal/build and internal/batch.
package otterrors

import (
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// InvalidArgument reports a null/missing reference, an unresolvable
// dependency name, or a duplicate target name — surfaced from
// buildctx.Create, aborting the build before any target runs.
type InvalidArgument struct {
	Reason string
}

func (e *InvalidArgument) Error() string {
	return xerrors.Errorf("invalid argument: %s", e.Reason).Error()
}

// CycleDetected reports a dependency cycle found by the validator's
// three-colour DFS. Path lists target names from the first-visited
// node in the cycle to the offender that closes it, so log output can
// name every target involved (spec.md §4.7, §8 property 3).
type CycleDetected struct {
	Path []string
}

func (e *CycleDetected) Error() string {
	return xerrors.Errorf("dependency cycle: %s", strings.Join(e.Path, " -> ")).Error()
}

// HashFailure wraps a C1 failure: preprocessor spawn error, non-zero
// preprocessor exit, or a read error on the pipe.
type HashFailure struct {
	Target string
	Source string
	Err    error
}

func (e *HashFailure) Error() string {
	return xerrors.Errorf("hash %s (source %s): %w", e.Target, e.Source, e.Err).Error()
}

func (e *HashFailure) Unwrap() error { return e.Err }

// SpawnFailure reports that C4 could not locate or launch the
// toolchain at all (as distinct from the toolchain running and
// failing — see CommandFailure).
type SpawnFailure struct {
	Argv []string
	Err  error
}

func (e *SpawnFailure) Error() string {
	return xerrors.Errorf("spawn %v: %w", e.Argv, e.Err).Error()
}

func (e *SpawnFailure) Unwrap() error { return e.Err }

// LinterFailure reports that the pre-flight static analyser was
// absent or exited non-zero; the primary build command never ran.
type LinterFailure struct {
	Target string
	Err    error
}

func (e *LinterFailure) Error() string {
	return xerrors.Errorf("linter gate failed for %s: %w", e.Target, e.Err).Error()
}

func (e *LinterFailure) Unwrap() error { return e.Err }

// CommandFailure reports a non-zero exit from the compiler or linker
// itself, after it was successfully spawned.
type CommandFailure struct {
	Target   string
	Argv     []string
	ExitCode int
}

func (e *CommandFailure) Error() string {
	return xerrors.Errorf("command for %s exited %d: %v", e.Target, e.ExitCode, e.Argv).Error()
}

// ToolMissing reports that a required external tool was not found on
// the search path. internal/runner returns it only for the linter,
// whose lookup is cached in a ToolCache per Runner: the first target
// pays the PATH lookup, later checks on the same Runner reuse that
// verdict. A missing compiler is looked up on every run and reported
// as SpawnFailure, not ToolMissing.
type ToolMissing struct {
	Tool string
}

func (e *ToolMissing) Error() string {
	return xerrors.Errorf("tool missing: %s", e.Tool).Error()
}

// ToolCache caches a single tool's availability for the lifetime of a
// build pass, mirroring the teacher's single-evaluation idioms (e.g.
// the package-level isTerminal in internal/batch/batch.go).
type ToolCache struct {
	once      sync.Once
	available bool
	err       error
}

// Check runs lookup at most once and memoizes the result.
func (c *ToolCache) Check(lookup func() error) error {
	c.once.Do(func() {
		c.err = lookup()
		c.available = c.err == nil
	})
	return c.err
}
