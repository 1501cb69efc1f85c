package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/N8-Wright/otter-sub000/internal/cachebundle"
	"github.com/N8-Wright/otter-sub000/internal/defs"
)

// cmdcache is the [NEW] cache export/import surface of SPEC_FULL.md
// §6, driving internal/cachebundle against the out_dir named in the
// manifest.
func cmdcache(_ context.Context, args []string) error {
	fset := flag.NewFlagSet("cache", flag.ContinueOnError)
	manifestPath := fset.String("manifest", "otter.json", "path to the build manifest")
	fset.Usage = usage(fset, "otter cache <export|import> <archive> [-manifest path]")
	parseArgs(fset, args)

	rest := fset.Args()
	if len(rest) != 2 {
		fset.Usage()
		return fmt.Errorf("cache: expected <export|import> <archive>")
	}
	sub, archive := rest[0], rest[1]

	config, _, err := defs.LoadManifest(*manifestPath)
	if err != nil {
		return err
	}

	switch sub {
	case "export":
		return cachebundle.Export(config.Paths.OutDir, archive)
	case "import":
		return cachebundle.Import(archive, config.Paths.OutDir)
	default:
		fset.Usage()
		return fmt.Errorf("cache: unknown subcommand %q", sub)
	}
}
