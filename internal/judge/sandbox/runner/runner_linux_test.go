//go:build linux

package runner

import (
	"context"
	"os/exec"
	"testing"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
)

// countingEngine wraps the real engine and records every command it starts.
type countingEngine struct {
	engine.Engine
	tests []string
}

func (c *countingEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	c.tests = append(c.tests, runSpec.TestID)
	return c.Engine.Run(ctx, runSpec)
}

const sumProgram = `#include <stdio.h>
int main(void) {
	long a, b;
	if (scanf("%ld %ld", &a, &b) != 2) return 2;
	printf("%ld\n", a + b);
	return 0;
}
`

func TestCompileOnceRunManyWithGCC(t *testing.T) {
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not available")
	}
	eng, err := engine.NewEngine(engine.Config{})
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	counting := &countingEngine{Engine: eng}
	ctx := context.Background()

	art, compiled, err := NewCompiler(counting, newRegistry(t), t.TempDir(), nil).Compile(ctx, "c", sumProgram)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !compiled.OK {
		t.Fatalf("expected build to succeed, diagnostic: %s", compiled.Diagnostic)
	}
	defer func() { _ = art.Release() }()

	problem := &model.Problem{ID: 1, TimeLimitMs: 2000, MemoryLimitMB: 64, Points: 100}
	cases := []struct {
		tc     model.TestCase
		status model.Status
	}{
		{tc: model.TestCase{ID: 1, Input: "2 2\n", ExpectedOutput: "4"}, status: model.StatusAccepted},
		{tc: model.TestCase{ID: 2, Input: "10 -3\n", ExpectedOutput: "7\n"}, status: model.StatusAccepted},
		{tc: model.TestCase{ID: 3, Input: "1 1\n", ExpectedOutput: "3"}, status: model.StatusWrongAnswer},
		{tc: model.TestCase{ID: 4, Input: "", ExpectedOutput: "0"}, status: model.StatusRuntimeError},
	}
	r := NewRunner(counting, nil, Config{})
	for _, c := range cases {
		got, err := r.Run(ctx, art, problem, c.tc)
		if err != nil {
			t.Fatalf("case %d: run failed: %v", c.tc.ID, err)
		}
		if got.Status != c.status {
			t.Fatalf("case %d: expected %s, got %+v", c.tc.ID, c.status, got)
		}
	}

	compiles := 0
	for _, id := range counting.tests {
		if id == "compile" {
			compiles++
		}
	}
	if compiles != 1 || len(counting.tests) != 1+len(cases) {
		t.Fatalf("expected one build and %d runs, got %v", len(cases), counting.tests)
	}
}
