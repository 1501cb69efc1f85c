// Package buildctx implements the build context and validator of
// spec.md §4.7 (C7): materialising Target objects from declarative
// definitions, detecting cycles/missing references/duplicate names
// before any target runs, and owning the lifetime of every target for
// the life of a build.
//
// Grounded on the teacher's three-phase parse/resolve/execute flow in
// internal/build/build.go and on internal/batch/batch.go's dependency
// graph construction — though cycle handling diverges deliberately:
// the teacher silently breaks cycles by bootstrapping a
// strongly-connected component, while spec.md §4.7 requires this
// package to fail and name the offending path, so cycle detection here
// is a hand-rolled three-colour DFS rather than
// gonum.org/v1/gonum/graph/topo.Sort (which reports only the
// unorderable component, not an ordered path).
package buildctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/N8-Wright/otter-sub000/internal/defs"
	"github.com/N8-Wright/otter-sub000/internal/graph"
	"github.com/N8-Wright/otter-sub000/internal/kind"
	"github.com/N8-Wright/otter-sub000/internal/otterrors"
	"github.com/N8-Wright/otter-sub000/internal/runner"
	"github.com/N8-Wright/otter-sub000/internal/target"
	"github.com/sirupsen/logrus"
)

// Context owns every Target materialised from one definition list. It
// is never destroyed piecemeal: Targets live exactly as long as the
// Context that created them, and Go's garbage collector retires the
// source program's manual free-on-every-branch discipline (spec.md
// §9) since Context holds no resource beyond memory.
type Context struct {
	Config  defs.BuildConfig
	Targets []*target.Target // definition order

	byName map[string]*target.Target
	runner *runner.Runner
	log    *logrus.Logger
}

const (
	white = iota
	gray
	black
)

// Validate implements spec.md §4.7 phase 1: reject duplicate names,
// reject dependency names absent from the set, reject cycles. On a
// cycle it returns *otterrors.CycleDetected naming the full path from
// the first-visited node to the offender that closes the loop.
func Validate(definitions []defs.TargetDefinition) error {
	byName := make(map[string]defs.TargetDefinition, len(definitions))
	for _, d := range definitions {
		if d.Name == "" {
			return &otterrors.InvalidArgument{Reason: "target definition missing a name"}
		}
		if _, dup := byName[d.Name]; dup {
			return &otterrors.InvalidArgument{Reason: fmt.Sprintf("duplicate target name %q", d.Name)}
		}
		byName[d.Name] = d
	}
	for _, d := range definitions {
		for _, dep := range d.Deps {
			if _, ok := byName[dep]; !ok {
				return &otterrors.InvalidArgument{Reason: fmt.Sprintf("target %q depends on undefined target %q", d.Name, dep)}
			}
		}
	}
	return detectCycle(definitions, byName)
}

func detectCycle(definitions []defs.TargetDefinition, byName map[string]defs.TargetDefinition) error {
	color := make(map[string]int, len(definitions))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		path = append(path, name)
		for _, dep := range byName[name].Deps {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cyclePath := append(append([]string{}, path[start:]...), dep)
				return &otterrors.CycleDetected{Path: cyclePath}
			case black:
				// fully explored elsewhere; no cycle through here
			}
		}
		color[name] = black
		path = path[:len(path)-1]
		return nil
	}

	for _, d := range definitions {
		if color[d.Name] == white {
			if err := visit(d.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Create runs the three ordered phases of spec.md §4.7: validate,
// materialise, and (via BuildAll, called separately by the caller)
// build. hasher and rnr are the C1/C4 collaborators threaded through
// every constructed target.
//
// Materialisation happens in definition order. For Executable and
// SharedObject kinds, dependency references are resolved eagerly
// during construction, so a link target's dependencies must already
// have been constructed earlier in the definition list — the same
// ordering spec.md §8's S4 scenario assumes (util before main). Object
// kinds defer dependency resolution to a second pass run after every
// target exists, since an Object's own argv and digest never depend
// on its Dependencies list (spec.md §4.2's invariant that Object
// dependencies are not transitively flattened); this lets an Object
// reference a target declared anywhere in the list, forward or back.
func Create(definitions []defs.TargetDefinition, config defs.BuildConfig, hasher target.Hasher, rnr *runner.Runner, log *logrus.Logger) (*Context, error) {
	if err := Validate(definitions); err != nil {
		return nil, err
	}

	c := &Context{
		Config: config,
		byName: make(map[string]*target.Target, len(definitions)),
		runner: rnr,
		log:    log,
	}

	for _, d := range definitions {
		src := config.SourcePath(d)
		out := config.OutputPath(d)
		ccFlags := config.CCFlags(d.Kind)
		includeFlags := config.Flags.IncludeFlags

		var t *target.Target
		var err error
		switch d.Kind {
		case kind.Object:
			t, err = target.CreateObject(hasher, out, ccFlags, includeFlags, src)

		case kind.Executable, kind.SharedObject:
			deps, derr := c.resolveEager(d)
			if derr != nil {
				return nil, derr
			}
			if d.Kind == kind.Executable {
				t, err = target.CreateExecutable(hasher, out, ccFlags, includeFlags, d.ExtraFlags, []string{src}, deps)
			} else {
				t, err = target.CreateSharedObject(hasher, out, ccFlags, includeFlags, d.ExtraFlags, []string{src}, deps)
			}
		}
		if err != nil {
			return nil, err
		}

		c.byName[d.Name] = t
		c.Targets = append(c.Targets, t)
	}

	// Second pass: wire Object dependencies now that every target
	// exists, regardless of declaration order.
	for _, d := range definitions {
		if d.Kind != kind.Object || len(d.Deps) == 0 {
			continue
		}
		t := c.byName[d.Name]
		for _, depName := range d.Deps {
			t.Dependencies = append(t.Dependencies, c.byName[depName])
		}
	}

	return c, nil
}

func (c *Context) resolveEager(d defs.TargetDefinition) ([]*target.Target, error) {
	deps := make([]*target.Target, 0, len(d.Deps))
	for _, depName := range d.Deps {
		dt, ok := c.byName[depName]
		if !ok {
			return nil, &otterrors.InvalidArgument{
				Reason: fmt.Sprintf("target %q depends on %q, which must be declared earlier in the definition list for eager link-dependency resolution", d.Name, depName),
			}
		}
		deps = append(deps, dt)
	}
	return deps, nil
}

// node adapts a *target.Target plus this Context's runner into
// graph.Node, so package graph never needs to know about target or
// runner directly.
type node struct {
	t      *target.Target
	runner *runner.Runner
	ctx    context.Context
}

func (n *node) OutputName() string { return n.t.Name }
func (n *node) Digest() [20]byte   { return n.t.InputDigest }
func (n *node) IsObject() bool     { return n.t.Kind == kind.Object }
func (n *node) Name() string       { return n.t.Name }
func (n *node) MarkExecuted()      { n.t.Executed = true }

func (n *node) AnyDependencyExecuted() bool {
	for _, d := range n.t.Dependencies {
		if d.Executed {
			return true
		}
	}
	return false
}

func (n *node) Deps() []graph.Node {
	out := make([]graph.Node, len(n.t.Dependencies))
	for i, d := range n.t.Dependencies {
		out[i] = &node{t: d, runner: n.runner, ctx: n.ctx}
	}
	return out
}

func (n *node) Run() (int, error) {
	includeTokens := strings.Fields(n.t.IncludeFlags)
	return n.runner.Run(n.ctx, n.t.Name, n.t.Argv, n.t.Sources, includeTokens)
}

// BuildAll implements spec.md §4.7 phase 3: walk targets in
// definition order, executing each via the graph executor; the first
// non-zero status aborts the remaining traversal.
func (c *Context) BuildAll(ctx context.Context) int {
	exec := &graph.Executor{Log: c.log}
	for _, t := range c.Targets {
		n := &node{t: t, runner: c.runner, ctx: ctx}
		if status := exec.Execute(n); status != 0 {
			return status
		}
	}
	return 0
}

// ByName looks up a materialised target by output name, for tests.
func (c *Context) ByName(name string) (*target.Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
