package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/N8-Wright/otter-sub000/internal/buildctx"
	"github.com/N8-Wright/otter-sub000/internal/defs"
	"github.com/N8-Wright/otter-sub000/internal/hash"
	"github.com/N8-Wright/otter-sub000/internal/otlog"
	"github.com/N8-Wright/otter-sub000/internal/runner"
	"github.com/N8-Wright/otter-sub000/internal/target"
)

// cmdgraph is the [NEW] debugging aid of SPEC_FULL.md §6: print the
// dependency DAG as Graphviz DOT without running any target.
func cmdgraph(_ context.Context, args []string) error {
	fset := flag.NewFlagSet("graph", flag.ContinueOnError)
	manifestPath := fset.String("manifest", "otter.json", "path to the build manifest")
	fset.Usage = usage(fset, "otter graph [-manifest path]")
	parseArgs(fset, args)

	config, definitions, err := defs.LoadManifest(*manifestPath)
	if err != nil {
		return err
	}

	log := otlog.New()
	h := target.NewHasher(&hash.Hasher{})
	c, err := buildctx.Create(definitions, config, h, &runner.Runner{Log: log}, log)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	return c.PrintDOT(os.Stdout)
}
