package buildctx

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/N8-Wright/otter-sub000/internal/defs"
	"github.com/N8-Wright/otter-sub000/internal/hash"
	"github.com/N8-Wright/otter-sub000/internal/kind"
	"github.com/N8-Wright/otter-sub000/internal/otterrors"
	"github.com/N8-Wright/otter-sub000/internal/runner"
	"github.com/N8-Wright/otter-sub000/internal/target"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// fakeToolchain installs a cc that handles both preprocessing (-E -P,
// used by the hasher) and compiling/linking (writes a placeholder to
// the -o argument), plus a clang-tidy that exits 0 unless
// lintRejectsSource is non-empty, in which case any invocation with
// an argument containing that string fails.
func fakeToolchain(t *testing.T, lintRejectsSource string) string {
	t.Helper()
	dir := t.TempDir()

	cc := `#!/bin/sh
last=""
pre=0
for a in "$@"; do
  last="$a"
  if [ "$a" = "-E" ]; then pre=1; fi
done
if [ "$pre" = "1" ]; then
  cat "$last"
  exit 0
fi
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
if [ -n "$out" ]; then
  echo built > "$out"
fi
exit 0
`
	if err := os.WriteFile(filepath.Join(dir, "cc"), []byte(cc), 0o755); err != nil {
		t.Fatal(err)
	}

	tidy := "#!/bin/sh\n"
	if lintRejectsSource != "" {
		tidy += `for a in "$@"; do case "$a" in *` + lintRejectsSource + `*) exit 1;; esac; done` + "\n"
	}
	tidy += "exit 0\n"
	if err := os.WriteFile(filepath.Join(dir, "clang-tidy"), []byte(tidy), 0o755); err != nil {
		t.Fatal(err)
	}

	return dir
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func requireXattrSupport(t *testing.T, dir string) {
	t.Helper()
	probe := filepath.Join(dir, ".xattr-probe")
	if err := os.WriteFile(probe, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := unix.Setxattr(probe, "user.otter-sha1-probe", []byte{0}, 0); err != nil {
		t.Skipf("filesystem does not support user xattrs here: %v", err)
	}
}

func setup(t *testing.T, lintRejectsSource string) (srcDir, outDir string) {
	t.Helper()
	toolDir := fakeToolchain(t, lintRejectsSource)
	t.Setenv("PATH", toolDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	srcDir = t.TempDir()
	outDir = t.TempDir()
	requireXattrSupport(t, outDir)
	return srcDir, outDir
}

func config(srcDir, outDir string) defs.BuildConfig {
	return defs.BuildConfig{
		Paths: defs.Paths{SrcDir: srcDir, OutDir: outDir},
		Flags: defs.Flags{CCFlags: "-Wall"},
	}
}

// S1: single object target compiles once.
func TestS1SingleObject(t *testing.T) {
	srcDir, outDir := setup(t, "")
	if err := os.WriteFile(filepath.Join(srcDir, "math.c"), []byte("int add(int a,int b){return a+b;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	definitions := []defs.TargetDefinition{defs.Obj("math")}
	c, err := Create(definitions, config(srcDir, outDir), target.NewHasher(&hash.Hasher{}), &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if status := c.BuildAll(context.Background()); status != 0 {
		t.Fatalf("BuildAll = %d, want 0", status)
	}

	outPath := filepath.Join(outDir, "math.o")
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("expected output file: %v", err)
	}
	mt, _ := c.ByName(outPath)
	if mt == nil {
		t.Fatal("target not found by output name")
	}
	if !mt.Executed {
		t.Error("target should be marked executed on first build")
	}
}

// S2: re-running the same build spawns zero compiles.
func TestS2RerunIsNoop(t *testing.T) {
	srcDir, outDir := setup(t, "")
	if err := os.WriteFile(filepath.Join(srcDir, "math.c"), []byte("int add(int a,int b){return a+b;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	definitions := []defs.TargetDefinition{defs.Obj("math")}
	cfg := config(srcDir, outDir)
	h := target.NewHasher(&hash.Hasher{})

	c1, err := Create(definitions, cfg, h, &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if status := c1.BuildAll(context.Background()); status != 0 {
		t.Fatalf("first BuildAll = %d, want 0", status)
	}

	before, _ := os.Stat(filepath.Join(outDir, "math.o"))

	c2, err := Create(definitions, cfg, h, &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if status := c2.BuildAll(context.Background()); status != 0 {
		t.Fatalf("second BuildAll = %d, want 0", status)
	}

	after, _ := os.Stat(filepath.Join(outDir, "math.o"))
	if before.ModTime() != after.ModTime() {
		t.Error("output file was rewritten on an unchanged re-run")
	}
}

// S3: editing the source re-triggers the compile and changes the digest.
func TestS3EditInvalidates(t *testing.T) {
	srcDir, outDir := setup(t, "")
	srcPath := filepath.Join(srcDir, "math.c")
	if err := os.WriteFile(srcPath, []byte("int add(int a,int b){return a+b;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	definitions := []defs.TargetDefinition{defs.Obj("math")}
	cfg := config(srcDir, outDir)
	h := target.NewHasher(&hash.Hasher{})

	c1, err := Create(definitions, cfg, h, &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if status := c1.BuildAll(context.Background()); status != 0 {
		t.Fatal(status)
	}
	outPath := filepath.Join(outDir, "math.o")
	before, _ := unixGetxattrForTest(outPath)

	if err := os.WriteFile(srcPath, []byte("int add(int a,int b){return a-b;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c2, err := Create(definitions, cfg, h, &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if status := c2.BuildAll(context.Background()); status != 0 {
		t.Fatal(status)
	}
	after, _ := unixGetxattrForTest(outPath)
	if string(before) == string(after) {
		t.Error("stored digest unchanged after editing source body")
	}
}

func unixGetxattrForTest(path string) ([]byte, bool) {
	dest := make([]byte, 20)
	sz, err := unix.Getxattr(path, "user.otter-sha1", dest)
	if err != nil {
		return nil, false
	}
	return dest[:sz], true
}

// S4: executable with an object dependency; util built before main,
// with util.o on the link line.
func TestS4ExecutableWithDependency(t *testing.T) {
	srcDir, outDir := setup(t, "")
	if err := os.WriteFile(filepath.Join(srcDir, "util.c"), []byte("int f(void){return 42;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "main.c"), []byte("int f(void);int main(void){return f();}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	definitions := []defs.TargetDefinition{
		defs.Obj("util"),
		defs.Exe("main", "util"),
	}
	c, err := Create(definitions, config(srcDir, outDir), target.NewHasher(&hash.Hasher{}), &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mainT, _ := c.ByName(filepath.Join(outDir, "main"))
	utilOut := filepath.Join(outDir, "util.o")
	found := false
	for _, a := range mainT.Argv {
		if a == utilOut {
			found = true
		}
	}
	if !found {
		t.Errorf("main argv %v does not contain %s", mainT.Argv, utilOut)
	}

	if status := c.BuildAll(context.Background()); status != 0 {
		t.Fatalf("BuildAll = %d, want 0", status)
	}
	if _, err := os.Stat(filepath.Join(outDir, "main")); err != nil {
		t.Errorf("expected linked executable: %v", err)
	}
}

// S5: a cycle between two object targets is rejected before any
// target runs.
func TestS5CycleRejected(t *testing.T) {
	srcDir, outDir := setup(t, "")

	definitions := []defs.TargetDefinition{
		{Name: "a", Kind: kind.Object, Deps: []string{"b"}},
		{Name: "b", Kind: kind.Object, Deps: []string{"a"}},
	}
	_, err := Create(definitions, config(srcDir, outDir), target.NewHasher(&hash.Hasher{}), &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err == nil {
		t.Fatal("Create succeeded on a cyclic definition set")
	}
	var cyc *otterrors.CycleDetected
	if !asCycle(err, &cyc) {
		t.Fatalf("error is not a CycleDetected: %v", err)
	}
	if len(cyc.Path) < 2 {
		t.Errorf("cycle path %v should name both a and b", cyc.Path)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("cycle rejection produced output files: %v", entries)
	}
}

func asCycle(err error, out **otterrors.CycleDetected) bool {
	c, ok := err.(*otterrors.CycleDetected)
	if ok {
		*out = c
	}
	return ok
}

// S6: a source the linter rejects fails the build before the compile
// command runs, and no output file is produced.
func TestS6LinterGateBlocksBuild(t *testing.T) {
	srcDir, outDir := setup(t, "badfile")
	if err := os.WriteFile(filepath.Join(srcDir, "badfile.c"), []byte("int x;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	definitions := []defs.TargetDefinition{defs.Obj("badfile")}
	c, err := Create(definitions, config(srcDir, outDir), target.NewHasher(&hash.Hasher{}), &runner.Runner{Log: newTestLogger()}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if status := c.BuildAll(context.Background()); status == 0 {
		t.Fatal("BuildAll = 0, want failure when the linter rejects sources")
	}
	if _, err := os.Stat(filepath.Join(outDir, "badfile.o")); err == nil {
		t.Error("linter gate did not prevent the output file from being produced")
	}
}
