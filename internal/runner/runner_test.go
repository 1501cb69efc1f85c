package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func writeScript(t *testing.T, dir, name string, exitCode int) {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func testRunner(t *testing.T, lintExit, ccExit int) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	writeScript(t, dir, "clang-tidy", lintExit)
	writeScript(t, dir, "cc", ccExit)
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Runner{Log: l}, dir
}

func TestRunSucceedsWhenLinterAndCommandPass(t *testing.T) {
	r, _ := testRunner(t, 0, 0)
	status, err := r.Run(context.Background(), "math", []string{"cc", "-c", "math.c"}, []string{"math.c"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
}

func TestRunFailsBeforeCommandWhenLinterRejects(t *testing.T) {
	r, _ := testRunner(t, 1, 0)
	_, err := r.Run(context.Background(), "math", []string{"cc", "-c", "math.c"}, []string{"math.c"}, nil)
	if err == nil {
		t.Fatal("Run succeeded despite a non-zero linter exit")
	}
}

func TestRunPropagatesNonZeroCommandExit(t *testing.T) {
	r, _ := testRunner(t, 0, 5)
	status, err := r.Run(context.Background(), "math", []string{"cc", "-c", "math.c"}, []string{"math.c"}, nil)
	if err == nil {
		t.Fatal("Run succeeded despite a non-zero command exit")
	}
	if status != 5 {
		t.Errorf("status = %d, want 5", status)
	}
}

func TestRunSkipsLinterWhenNoSources(t *testing.T) {
	r, dir := testRunner(t, 1, 0) // linter would reject if invoked
	status, err := r.Run(context.Background(), "main", []string{"cc", "-o", "main"}, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
	_ = dir
}
