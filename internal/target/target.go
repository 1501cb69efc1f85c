// Package target implements the build unit of spec.md §4.3 (C3).
// Construction is the public surface: a Target's argv (via
// internal/synth) and input digest (via internal/hash) are computed
// once, at construction time, and never recomputed in place.
package target

import (
	"fmt"

	"github.com/N8-Wright/otter-sub000/internal/hash"
	"github.com/N8-Wright/otter-sub000/internal/kind"
	"github.com/N8-Wright/otter-sub000/internal/otterrors"
	"github.com/N8-Wright/otter-sub000/internal/synth"
)

// Target is a named build unit producing one output file.
type Target struct {
	Name         string
	Kind         kind.Kind
	Sources      []string
	CCFlags      string
	IncludeFlags string
	ExtraFlags   []string

	// Dependencies holds non-owning references to other targets in
	// the same buildctx.Context; lookup happens by name at
	// construction time and is never repeated.
	Dependencies []*Target

	Argv    []string
	Command string

	// InputDigest is the 20-byte SHA-1 of the preprocessed
	// concatenation of Sources, computed exactly once at construction.
	InputDigest [20]byte

	// Executed is set true by the graph executor once this target's
	// command has exited 0 and its digest has been stored. It never
	// reverts to false.
	Executed bool
}

// DepName, DepKind, DepDependencies implement synth.Dependency so
// Target itself can be walked by the command synthesiser without an
// intermediate conversion at every call site.
func (t *Target) DepName() string { return t.Name }
func (t *Target) DepKind() kind.Kind { return t.Kind }
func (t *Target) DepDependencies() []synth.Dependency {
	deps := make([]synth.Dependency, len(t.Dependencies))
	for i, d := range t.Dependencies {
		deps[i] = d
	}
	return deps
}

// Hasher is the narrow seam internal/hash exposes to target
// construction, kept as an interface so tests can substitute a fake
// preprocessor without spawning a real cc.
type Hasher interface {
	HashSources(sources []string, includeFlags string) ([20]byte, error)
}

func synthesize(name string, k kind.Kind, sources []string, ccFlags, includeFlags string, extraFlags []string, deps []*Target) ([]string, string) {
	synthDeps := make([]synth.Dependency, len(deps))
	for i, d := range deps {
		synthDeps[i] = d
	}
	return synth.Build(synth.Inputs{
		Name:         name,
		Kind:         k,
		Sources:      sources,
		CCFlags:      ccFlags,
		IncludeFlags: includeFlags,
		ExtraFlags:   extraFlags,
		Dependencies: synthDeps,
	})
}

func construct(h Hasher, name string, k kind.Kind, sources []string, ccFlags, includeFlags string, extraFlags []string, deps []*Target) (*Target, error) {
	if name == "" {
		return nil, &otterrors.InvalidArgument{Reason: "target name must not be empty"}
	}
	if k != kind.Object && len(sources) == 0 {
		return nil, &otterrors.InvalidArgument{Reason: fmt.Sprintf("%s target %q requires at least one source", k, name)}
	}
	for _, d := range deps {
		if d == nil {
			return nil, &otterrors.InvalidArgument{Reason: fmt.Sprintf("target %q has a nil dependency reference", name)}
		}
	}

	argv, command := synthesize(name, k, sources, ccFlags, includeFlags, extraFlags, deps)

	t := &Target{
		Name:         name,
		Kind:         k,
		Sources:      sources,
		CCFlags:      ccFlags,
		IncludeFlags: includeFlags,
		ExtraFlags:   extraFlags,
		Dependencies: deps,
		Argv:         argv,
		Command:      command,
	}

	if len(sources) > 0 {
		digest, err := h.HashSources(sources, includeFlags)
		if err != nil {
			return nil, &otterrors.HashFailure{Target: name, Source: sources[0], Err: err}
		}
		t.InputDigest = digest
	}

	return t, nil
}

// CreateObject constructs an Object target: synthesises argv, then
// hashes its preprocessed sources.
func CreateObject(h Hasher, name, ccFlags, includeFlags string, sources ...string) (*Target, error) {
	return construct(h, name, kind.Object, sources, ccFlags, includeFlags, nil, nil)
}

// CreateExecutable constructs an Executable target. deps is the
// already-resolved list of other targets in the same context.
func CreateExecutable(h Hasher, name, ccFlags, includeFlags string, extraFlags []string, sources []string, deps []*Target) (*Target, error) {
	return construct(h, name, kind.Executable, sources, ccFlags, includeFlags, extraFlags, deps)
}

// CreateSharedObject constructs a SharedObject target.
func CreateSharedObject(h Hasher, name, ccFlags, includeFlags string, extraFlags []string, sources []string, deps []*Target) (*Target, error) {
	return construct(h, name, kind.SharedObject, sources, ccFlags, includeFlags, extraFlags, deps)
}

// hasherAdapter adapts internal/hash.Hasher to target.Hasher without
// creating an import cycle (hash has no reason to know about target).
type hasherAdapter struct {
	impl *hash.Hasher
}

func (a hasherAdapter) HashSources(sources []string, includeFlags string) ([20]byte, error) {
	return a.impl.Sum(sources, includeFlags)
}

// NewHasher wraps a concrete *hash.Hasher as a target.Hasher.
func NewHasher(h *hash.Hasher) Hasher {
	return hasherAdapter{impl: h}
}
