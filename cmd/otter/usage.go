package main

import (
	"flag"
	"fmt"
	"os"
)

// usage mirrors the teacher's cmd/distri/usage.go helper: a FlagSet's
// Usage func prints a caller-supplied description followed by the
// flag set's own defaults.
func usage(fset *flag.FlagSet, helpText string) func() {
	return func() {
		fmt.Fprintln(os.Stderr, helpText)
		fmt.Fprintf(os.Stderr, "Flags for otter %s:\n", fset.Name())
		fset.PrintDefaults()
	}
}
