// Package synth is the command synthesiser (spec.md §4.2, C2): a pure
// function from a target's declared fields to its argv, with no I/O
// of its own. Grounded on the teacher's buildc.go, which assembles a
// []string command line per build step from a similarly small set of
// declared fields (steps = append(steps, []string{...})).
package synth

import (
	"strings"

	"github.com/N8-Wright/otter-sub000/internal/kind"
)

// Dependency is the minimal view synth needs of a target's
// dependency: enough to walk the link graph without importing
// package target (which itself imports synth to build Argv).
type Dependency interface {
	// DepName is the dependency's own output name, used on the link
	// line when its kind is Object.
	DepName() string
	// DepKind is the dependency's kind.
	DepKind() kind.Kind
	// DepDependencies returns the dependency's own dependency list,
	// recursed into when DepKind is not Object.
	DepDependencies() []Dependency
}

// Inputs bundles everything synth.Build needs for one target.
type Inputs struct {
	Name         string
	Kind         kind.Kind
	Sources      []string
	CCFlags      string
	IncludeFlags string
	ExtraFlags   []string
	Dependencies []Dependency
}

// tokens splits a flag string on whitespace, discarding empty tokens.
// This mirrors the source program's strtok, which collapses runs of
// whitespace and drops empty tokens; strings.Fields already has that
// behaviour, so there is no separate collapsing step to write.
func tokens(s string) []string {
	return strings.Fields(s)
}

// appendToken appends tok to argv unless an identical token is
// already present.
//
// This is the de-duplication policy of spec.md §4.2, and it is
// deliberately O(n) per append (a linear scan of everything appended
// so far): argv is tens of tokens for any real target, so an O(n²)
// total cost across a whole synthesis call is not worth a set. This
// is specified, not accidental (spec.md §9).
func appendToken(argv []string, tok string) []string {
	for _, existing := range argv {
		if existing == tok {
			return argv
		}
	}
	return append(argv, tok)
}

func appendTokens(argv []string, toks ...string) []string {
	for _, t := range toks {
		argv = appendToken(argv, t)
	}
	return argv
}

func appendFlagString(argv []string, flags string) []string {
	return appendTokens(argv, tokens(flags)...)
}

// gatherObjects performs the depth-first, first-seen transitive
// object walk of spec.md §4.2: a dependency whose kind is Object
// contributes its name; otherwise only its own dependencies are
// recursed into. Duplicates are suppressed by the same de-dup rule as
// flag tokens.
func gatherObjects(deps []Dependency) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func([]Dependency)
	walk = func(ds []Dependency) {
		for _, d := range ds {
			if d.DepKind() == kind.Object {
				n := d.DepName()
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
				continue
			}
			walk(d.DepDependencies())
		}
	}
	walk(deps)
	return names
}

// Build synthesises argv and the human-readable command string for
// in. It is a pure function: no filesystem or process access.
func Build(in Inputs) (argv []string, command string) {
	switch in.Kind {
	case kind.Object:
		argv = append(argv, "cc", "-fPIC", "-c")
		argv = append(argv, in.Sources...)
		argv = append(argv, "-o", in.Name)
		argv = appendFlagString(argv, in.IncludeFlags)
		argv = appendFlagString(argv, in.CCFlags)

	case kind.SharedObject:
		argv = append(argv, "cc", "-shared", "-fPIC", "-o", in.Name)
		argv = append(argv, in.Sources...)
		argv = appendTokens(argv, gatherObjects(in.Dependencies)...)
		argv = appendFlagString(argv, in.IncludeFlags)
		argv = appendFlagString(argv, in.CCFlags)
		argv = appendTokens(argv, in.ExtraFlags...)

	case kind.Executable:
		argv = append(argv, "cc", "-o", in.Name)
		argv = append(argv, in.Sources...)
		argv = appendTokens(argv, gatherObjects(in.Dependencies)...)
		argv = appendFlagString(argv, in.IncludeFlags)
		argv = appendFlagString(argv, in.CCFlags)
		argv = appendTokens(argv, in.ExtraFlags...)
	}

	return argv, strings.Join(argv, " ")
}
