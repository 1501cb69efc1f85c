// Package cache implements the cache oracle of spec.md §4.5 (C5): a
// pure decision procedure over a target and the filesystem, backed by
// the extended attribute user.otter-sha1 on the target's output file.
//
// Grounded directly on go.podman.io/storage/pkg/system's
// Lgetxattr/Lsetxattr (vendored in jesseduffield-lazydocker), which
// implements the identical retry-on-ERANGE dance over
// golang.org/x/sys/unix that this package retargets from container
// storage metadata to build-cache digests.
package cache

import (
	"os"

	"golang.org/x/sys/unix"
)

// AttrKey is the extended attribute key a stored digest lives at.
const AttrKey = "user.otter-sha1"

// DigestSize is the fixed length of a stored digest: a SHA-1 sum.
const DigestSize = 20

// Target is the narrow view the cache oracle needs of a build unit,
// kept as an interface so tests don't need a full target.Target.
type Target interface {
	OutputName() string
	Digest() [DigestSize]byte
	IsObject() bool
	AnyDependencyExecuted() bool
}

// getxattr retrieves attr on path, growing the buffer on ERANGE, the
// same loop go.podman.io/storage/pkg/system uses. A missing attribute
// (ENODATA) or any other error is reported to the caller as "no
// value"; spec.md §9 resolves the source's signed/unsigned stored_hash
// ambiguity by treating every negative/error outcome from the
// attribute read as "no cache" explicitly — with a typed Go error
// there is no sign to coerce in the first place.
func getxattr(path, attr string) ([]byte, bool) {
	dest := make([]byte, DigestSize)
	sz, err := unix.Getxattr(path, attr, dest)
	if err == unix.ERANGE {
		sz, err = unix.Getxattr(path, attr, nil)
		if err != nil {
			return nil, false
		}
		dest = make([]byte, sz)
		sz, err = unix.Getxattr(path, attr, dest)
	}
	if err != nil {
		return nil, false
	}
	return dest[:sz], true
}

// NeedsExecute implements spec.md §4.5's needs_execute predicate.
func NeedsExecute(t Target) bool {
	// (a) a dependency was executed this pass and t is not an Object:
	// linking artefacts must rebuild when any input object changed.
	// Objects, by contrast, rebuild only on their own source digest —
	// spec.md §9 preserves this asymmetry as written, not as a bug.
	if !t.IsObject() && t.AnyDependencyExecuted() {
		return true
	}

	stored, ok := getxattr(t.OutputName(), AttrKey)
	if !ok {
		return true // (b) no cache entry
	}
	if len(stored) != DigestSize {
		return true // (c) stored length mismatch: stale
	}
	digest := t.Digest()
	for i := range digest {
		if stored[i] != digest[i] { // (d) stored bytes differ
			return true
		}
	}
	return false
}

// Store writes t's input digest to the output file's extended
// attribute. Callers must only invoke Store after the primary build
// command exited with status 0 (spec.md §4.5, §7: "the stored digest
// is written only on status == 0").
func Store(t Target) error {
	digest := t.Digest()
	if err := unix.Setxattr(t.OutputName(), AttrKey, digest[:], 0); err != nil {
		return &os.PathError{Op: "setxattr", Path: t.OutputName(), Err: err}
	}
	return nil
}

// Stored reads back the raw stored digest bytes for a path, without
// any target context.
func Stored(outputPath string) ([]byte, bool) {
	return getxattr(outputPath, AttrKey)
}
