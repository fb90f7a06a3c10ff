//go:build linux

package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codejudge/internal/judge/sandbox/spec"
)

func newRunSpec(t *testing.T, script string, wallMs int64) spec.RunSpec {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(input, []byte("2 2\n"), 0o644); err != nil {
		t.Fatalf("write input failed: %v", err)
	}
	return spec.RunSpec{
		SubmissionID: "1",
		TestID:       "1",
		WorkDir:      dir,
		Cmd:          []string{"/bin/sh", "-c", script},
		StdinPath:    input,
		StdoutPath:   filepath.Join(dir, "output.txt"),
		StderrPath:   filepath.Join(dir, "error.txt"),
		Limits:       spec.ResourceLimit{WallTimeMs: wallMs},
	}
}

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	eng, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	return eng
}

func TestRunCapturesOutputAndStdin(t *testing.T) {
	res, err := newTestEngine(t).Run(context.Background(), newRunSpec(t, "read a b; echo $((a+b)); echo warn >&2", 5000))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.ExitCode != 0 || res.TimedOut {
		t.Fatalf("unexpected result: %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "4" || strings.TrimSpace(res.Stderr) != "warn" {
		t.Fatalf("unexpected streams: stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	res, err := newTestEngine(t).Run(context.Background(), newRunSpec(t, "echo boom >&2; exit 3", 5000))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.ExitCode != 3 || res.TimedOut {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunKillsOnWallTimeout(t *testing.T) {
	start := time.Now()
	res, err := newTestEngine(t).Run(context.Background(), newRunSpec(t, "sleep 5 & wait", 200))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.TimedOut || res.ExitCode == 0 {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("process group was not killed promptly: %v", elapsed)
	}
}

func TestRunReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := newTestEngine(t).Run(ctx, newRunSpec(t, "sleep 5", 10000))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRunStartFailure(t *testing.T) {
	rs := newRunSpec(t, "", 1000)
	rs.Cmd = []string{filepath.Join(rs.WorkDir, "missing-binary")}
	if _, err := newTestEngine(t).Run(context.Background(), rs); err == nil {
		t.Fatalf("expected start error")
	}
}

func TestNewEngineRejectsSeccompWithoutHelper(t *testing.T) {
	if _, err := NewEngine(Config{EnableSeccomp: true}); err == nil {
		t.Fatalf("expected config error")
	}
}
