// Command otter builds C sources into objects, executables, and
// shared objects with content-addressed rebuild avoidance, per
// spec.md. Grounded on the teacher's cmd/distri/distri.go: a verb map
// dispatching to per-subcommand functions, flag.ExitOnError-free
// parsing so exit codes match spec.md §6 exactly, and an interrupt
// context that lets a running build unwind cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/N8-Wright/otter-sub000/internal/oninterrupt"
)

// parseArgs parses fset against args, exiting per spec.md §6:
// -h/--help prints usage and exits 0; any other parse error prints
// usage and exits 1. It never returns a non-nil error — a caller only
// continues past this call with a successfully parsed flag set.
func parseArgs(fset *flag.FlagSet, args []string) {
	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func interruptibleContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	oninterrupt.Register(cancel)
	return ctx, cancel
}

func funcmain() error {
	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"build": {cmdbuild},
		"graph": {cmdgraph},
		"cache": {cmdcache},
	}

	args := os.Args[1:]
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "-h" || verb == "--help" || verb == "help" {
		fmt.Fprintln(os.Stderr, "otter [command] [-flags] [args]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "\tbuild  - build targets from a manifest (default)")
		fmt.Fprintln(os.Stderr, "\tgraph  - print the dependency DAG as Graphviz DOT")
		fmt.Fprintln(os.Stderr, "\tcache  - export/import the build cache as a portable archive")
		os.Exit(0)
	}

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintln(os.Stderr, "syntax: otter <command> [options]")
		os.Exit(1)
	}

	ctx, cancel := interruptibleContext()
	defer cancel()
	return v.fn(ctx, args)
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
