// Package hash implements the content hasher of spec.md §4.1 (C1):
// preprocess each source with the C compiler (-E -P) and stream the
// result into a running SHA-1 digest. Grounded on the teacher's
// (*Ctx).Hash in internal/build/build.go, which streams a file
// through io.Copy into a digest; here the stream is a subprocess's
// stdout pipe instead of a file.
package hash

import (
	"crypto/sha1"
	"io"
	"os/exec"
	"strings"
)

// Hasher owns the configuration needed to preprocess sources: the C
// compiler to invoke and nothing else. It holds no state between
// calls, so the zero value is usable.
type Hasher struct {
	// CC is the compiler driver to invoke, e.g. "cc". Defaults to "cc"
	// when empty.
	CC string
}

func (h *Hasher) cc() string {
	if h.CC != "" {
		return h.CC
	}
	return "cc"
}

// Sum computes the 20-byte SHA-1 over the preprocessed concatenation
// of sources, in declaration order, per spec.md §4.1. includeFlags is
// whitespace-split and passed to the preprocessor verbatim.
func (h *Hasher) Sum(sources []string, includeFlags string) ([20]byte, error) {
	var digest [20]byte
	sum := sha1.New()
	for _, src := range sources {
		if err := h.preprocessInto(sum, src, includeFlags); err != nil {
			return digest, err
		}
	}
	copy(digest[:], sum.Sum(nil))
	return digest, nil
}

// preprocessInto spawns `cc -E -P <include flags> src`, streaming its
// standard output in the pipe's natural chunk size into w. The child
// is reaped and its exit status checked before returning.
func (h *Hasher) preprocessInto(w io.Writer, src, includeFlags string) error {
	args := []string{"-E", "-P"}
	args = append(args, strings.Fields(includeFlags)...)
	args = append(args, src)

	cmd := exec.Command(h.cc(), args...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	_, copyErr := io.Copy(w, pipe)

	waitErr := cmd.Wait()
	if copyErr != nil {
		return copyErr
	}
	return waitErr
}
