package target

import (
	"testing"
)

// fakeHasher returns a fixed digest derived from the joined sources,
// so tests can assert digest changes without spawning a real cc.
type fakeHasher struct {
	calls int
}

func (f *fakeHasher) HashSources(sources []string, includeFlags string) ([20]byte, error) {
	f.calls++
	var d [20]byte
	var acc byte
	for _, s := range sources {
		for _, c := range s {
			acc += byte(c)
		}
	}
	for _, c := range includeFlags {
		acc += byte(c)
	}
	d[0] = acc
	return d, nil
}

func TestCreateObjectSynthesisesArgvAndDigest(t *testing.T) {
	h := &fakeHasher{}
	tg, err := CreateObject(h, "out/math.o", "-Wall", "-Iinclude", "src/math.c")
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if tg.Name != "out/math.o" {
		t.Errorf("Name = %q, want out/math.o", tg.Name)
	}
	if len(tg.Argv) == 0 {
		t.Error("Argv was not synthesised")
	}
	if h.calls != 1 {
		t.Errorf("hasher called %d times, want 1", h.calls)
	}
	var zero [20]byte
	if tg.InputDigest == zero {
		t.Error("InputDigest left zeroed")
	}
}

func TestCreateObjectRejectsEmptyName(t *testing.T) {
	h := &fakeHasher{}
	if _, err := CreateObject(h, "", "", "", "src/math.c"); err == nil {
		t.Fatal("CreateObject accepted an empty name")
	}
}

func TestCreateExecutableRejectsNoSources(t *testing.T) {
	h := &fakeHasher{}
	if _, err := CreateExecutable(h, "out/main", "", "", nil, nil, nil); err == nil {
		t.Fatal("CreateExecutable accepted zero sources")
	}
}

func TestCreateExecutableRejectsNilDependency(t *testing.T) {
	h := &fakeHasher{}
	if _, err := CreateExecutable(h, "out/main", "", "", nil, []string{"src/main.c"}, []*Target{nil}); err == nil {
		t.Fatal("CreateExecutable accepted a nil dependency")
	}
}

func TestCreateExecutableLinksAgainstObjectDependency(t *testing.T) {
	h := &fakeHasher{}
	util, err := CreateObject(h, "out/util.o", "", "", "src/util.c")
	if err != nil {
		t.Fatalf("CreateObject(util): %v", err)
	}
	main, err := CreateExecutable(h, "out/main", "", "", nil, []string{"src/main.c"}, []*Target{util})
	if err != nil {
		t.Fatalf("CreateExecutable(main): %v", err)
	}
	found := false
	for _, a := range main.Argv {
		if a == "out/util.o" {
			found = true
		}
	}
	if !found {
		t.Errorf("main.Argv = %v does not link against out/util.o", main.Argv)
	}
}

func TestDepDependenciesExposesTransitiveGraph(t *testing.T) {
	h := &fakeHasher{}
	util, _ := CreateObject(h, "out/util.o", "", "", "src/util.c")
	shared, _ := CreateSharedObject(h, "out/libfoo.so", "", "", nil, []string{"src/foo.c"}, []*Target{util})

	deps := shared.DepDependencies()
	if len(deps) != 1 || deps[0].DepName() != "out/util.o" {
		t.Errorf("DepDependencies() = %v, want a single entry naming out/util.o", deps)
	}
}
