// Package defs is the declarative surface of otter: target
// definitions and the build-wide configuration they are materialised
// against (spec.md §4.8, C8).
//
// The source program terminates a definition array with a sentinel
// record carrying a null name; a Go []TargetDefinition already knows
// its own length, so no sentinel is needed here. What survives is the
// convenience-constructor ergonomics of §4.8: omit the source stem
// (defaults to the name), omit the dependency list, omit extra flags.
package defs

import "github.com/N8-Wright/otter-sub000/internal/kind"

// TargetDefinition is a plain record describing one build unit before
// it is resolved against a BuildConfig and materialised into a
// target.Target. Consumers never mutate a definition list after it is
// handed to buildctx.Create.
type TargetDefinition struct {
	Name string
	// Stem is the source-file stem under Paths.SrcDir, e.g. "math" for
	// src_dir/math.c. Empty means "same as Name".
	Stem string
	Kind kind.Kind
	// Deps names other definitions in the same list, by Name.
	Deps []string
	// ExtraFlags, only meaningful for link kinds, is appended after
	// cc_flags/include_flags on the synthesised command line.
	ExtraFlags []string
}

// Obj is the convenience constructor for an Object definition with no
// dependencies and the default source stem.
func Obj(name string) TargetDefinition {
	return TargetDefinition{Name: name, Kind: kind.Object}
}

// Exe is the convenience constructor for an Executable definition.
func Exe(name string, deps ...string) TargetDefinition {
	return TargetDefinition{Name: name, Kind: kind.Executable, Deps: deps}
}

// Shared is the convenience constructor for a SharedObject definition.
func Shared(name string, deps ...string) TargetDefinition {
	return TargetDefinition{Name: name, Kind: kind.SharedObject, Deps: deps}
}

// WithStem overrides the default source stem (same as Name).
func (d TargetDefinition) WithStem(stem string) TargetDefinition {
	d.Stem = stem
	return d
}

// WithExtraFlags attaches link-only extra flags to a definition.
func (d TargetDefinition) WithExtraFlags(flags ...string) TargetDefinition {
	d.ExtraFlags = flags
	return d
}

func (d TargetDefinition) stem() string {
	if d.Stem != "" {
		return d.Stem
	}
	return d.Name
}

// Paths is the `paths` block of a BuildConfig (spec.md §3).
type Paths struct {
	SrcDir string
	OutDir string
	// Suffix is inserted before the extension in every output name.
	Suffix string
}

// Flags is the `flags` block of a BuildConfig.
type Flags struct {
	CCFlags      string
	LLFlags      string // appended only for link commands
	IncludeFlags string
}

// BuildConfig is the recognised set of options from spec.md §3.
type BuildConfig struct {
	Paths Paths
	Flags Flags
}

// SourcePath resolves a definition's single-stem source path against
// src_dir, e.g. src_dir/math.c.
func (c BuildConfig) SourcePath(d TargetDefinition) string {
	return c.Paths.SrcDir + "/" + d.stem() + ".c"
}

// OutputPath resolves a definition's output path: out_dir/<name><suffix><ext>.
func (c BuildConfig) OutputPath(d TargetDefinition) string {
	return c.Paths.OutDir + "/" + d.Name + c.Paths.Suffix + d.Kind.Ext()
}

// CCFlags returns the whitespace-tokenisable compiler flag string for
// a definition's kind: link kinds also get ll_flags appended.
func (c BuildConfig) CCFlags(k kind.Kind) string {
	if k.Linked() {
		return c.Flags.CCFlags + " " + c.Flags.LLFlags
	}
	return c.Flags.CCFlags
}
