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

// debugFlags and releaseFlags are the two named flag sets of spec.md
// §6: debug builds add sanitizer/coverage instrumentation, release
// builds add optimisation and LTO. Both are appended to whatever
// cc_flags/ll_flags the manifest already carries.
var (
	debugFlags   = defs.Flags{CCFlags: "-g -O0 -fsanitize=address,undefined --coverage"}
	releaseFlags = defs.Flags{CCFlags: "-O2 -flto", LLFlags: "-flto"}
)

func cmdbuild(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("build", flag.ContinueOnError)
	manifestPath := fset.String("manifest", "otter.json", "path to the build manifest")
	fset.Bool("debug", true, "build with debug, sanitizer, and coverage flags (the default; -release takes precedence)")
	release := fset.Bool("release", false, "build with optimisation and link-time-optimisation flags instead of debug flags")
	linter := fset.String("linter", "clang-tidy", "static analyser invoked before every compile/link command")
	fset.Usage = usage(fset, "otter build [-manifest path] [-debug | -release]")
	parseArgs(fset, args)

	config, definitions, err := defs.LoadManifest(*manifestPath)
	if err != nil {
		return err
	}

	if *release {
		config.Flags.CCFlags = config.Flags.CCFlags + " " + releaseFlags.CCFlags
		config.Flags.LLFlags = config.Flags.LLFlags + " " + releaseFlags.LLFlags
	} else {
		config.Flags.CCFlags = config.Flags.CCFlags + " " + debugFlags.CCFlags
	}

	log := otlog.New()
	h := target.NewHasher(&hash.Hasher{})
	rnr := &runner.Runner{Linter: *linter, Log: log}

	c, err := buildctx.Create(definitions, config, h, rnr, log)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	status := c.BuildAll(ctx)

	built := 0
	for _, t := range c.Targets {
		if t.Executed {
			built++
		}
	}
	failed := 0
	if status != 0 {
		failed = 1
	}
	upToDate := len(c.Targets) - built

	fmt.Fprintln(os.Stderr, otlog.Summary(built, upToDate, failed))

	if status != 0 {
		return fmt.Errorf("build: target command exited %d", status)
	}
	return nil
}
