// Package graph implements the graph executor of spec.md §4.6 (C6): a
// post-order, declaration-ordered, fail-fast traversal of a target's
// dependency DAG. Concurrency across targets is out of scope (§5); the
// teacher's own DAG walker, internal/batch/batch.go's scheduler, fans
// work out across goroutines, which is exactly the model §5 forbids
// here — see DESIGN.md for why errgroup is not wired into this
// package.
package graph

import (
	"github.com/N8-Wright/otter-sub000/internal/cache"
	"github.com/sirupsen/logrus"
)

// Node is the minimal view the executor needs of a target.
type Node interface {
	cache.Target
	Name() string
	Deps() []Node
	// Run performs the linter gate and the primary build command and
	// reports its exit status (0 on success).
	Run() (int, error)
	MarkExecuted()
}

// Oracle is the C5 seam the executor asks before and after spawning a
// command. Kept as an interface (spec.md §9's "parametric over these
// traits for testability") so package-level tests can exercise
// post-order traversal, fail-fast, and spawn de-duplication without
// touching real extended attributes; production code wires
// defaultOracle, a thin adapter over package cache.
type Oracle interface {
	NeedsExecute(n Node) bool
	Store(n Node) error
}

type defaultOracle struct{}

func (defaultOracle) NeedsExecute(n Node) bool { return cache.NeedsExecute(n) }
func (defaultOracle) Store(n Node) error        { return cache.Store(n) }

// Executor runs targets, logging at the severity spec.md §7 demands.
type Executor struct {
	Log *logrus.Logger
	// Oracle defaults to the real extended-attribute-backed cache
	// oracle when nil.
	Oracle Oracle
}

func (e *Executor) oracle() Oracle {
	if e.Oracle != nil {
		return e.Oracle
	}
	return defaultOracle{}
}

// Execute implements spec.md §4.6's execute(target): recurse into
// every dependency in declared order first, short-circuiting on the
// first non-zero return; ask the cache oracle whether this node needs
// to run; if so, run it and store the new digest on success.
//
// A node reachable via multiple dependency paths may have
// NeedsExecute asked more than once in a single pass, but its command
// runs at most once: by the second visit, Executed is already true
// (or the freshly stored digest already matches), so NeedsExecute
// returns false.
func (e *Executor) Execute(n Node) int {
	if n == nil {
		e.Log.Error("graph executor invoked with a nil target reference")
		return -1
	}

	for _, dep := range n.Deps() {
		if status := e.Execute(dep); status != 0 {
			return status
		}
	}

	oracle := e.oracle()
	if !oracle.NeedsExecute(n) {
		e.Log.WithField("target", n.Name()).Info("up to date")
		return 0
	}

	status, err := n.Run()
	if err != nil {
		e.Log.WithField("target", n.Name()).WithError(err).Error("target failed")
		if status == 0 {
			status = -1
		}
		return status
	}
	if status != 0 {
		e.Log.WithField("target", n.Name()).WithField("status", status).Error("command exited non-zero")
		return status
	}

	if err := oracle.Store(n); err != nil {
		e.Log.WithField("target", n.Name()).WithError(err).Error("failed to store cache digest")
		return -1
	}
	n.MarkExecuted()
	return 0
}
