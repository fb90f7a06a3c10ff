// Package runner builds submissions once and runs them against test cases.
package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/compare"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
	"codejudge/internal/judge/sandbox/workspace"
)

// Config tunes test case execution.
type Config struct {
	// MeasureMemory reports peak memory and turns an overrun of the problem's
	// memory limit into memory_limit. When false memory is reported as 0.
	MeasureMemory bool `yaml:"measureMemory"`
	// Limits enforced only through the sandbox helper.
	StackMB  int64 `yaml:"stackMB"`
	OutputMB int64 `yaml:"outputMB"`
	PIDs     int64 `yaml:"pids"`
}

// Runner executes a built artifact against one test case.
type Runner struct {
	engine   engine.Engine
	recorder observer.MetricsRecorder
	cfg      Config
}

// NewRunner creates a runner. A nil recorder disables metrics.
func NewRunner(eng engine.Engine, recorder observer.MetricsRecorder, cfg Config) *Runner {
	if recorder == nil {
		recorder = observer.Nop{}
	}
	return &Runner{engine: eng, recorder: recorder, cfg: cfg}
}

// Run executes one test case. The returned error is reserved for faults of the
// judge itself and for cancellation; everything the program does is a TestResult.
func (r *Runner) Run(ctx context.Context, art *workspace.Artifact, problem *model.Problem, tc model.TestCase) (result.TestResult, error) {
	if art == nil || problem == nil {
		return result.TestResult{}, errors.New("artifact and problem are required")
	}
	testID := strconv.FormatInt(tc.ID, 10)
	files, cleanup, err := art.NewRun("case-"+testID, tc.Input)
	if err != nil {
		return result.TestResult{}, err
	}
	defer cleanup()

	limits := spec.ResourceLimit{
		CPUTimeMs:  problem.TimeLimitMs,
		WallTimeMs: problem.TimeLimitMs,
		StackMB:    r.cfg.StackMB,
		OutputMB:   r.cfg.OutputMB,
		PIDs:       r.cfg.PIDs,
	}
	if r.cfg.MeasureMemory {
		limits.MemoryMB = problem.MemoryLimitMB
	}
	runSpec := spec.RunSpec{
		SubmissionID: filepath.Base(art.Dir),
		TestID:       testID,
		WorkDir:      art.Dir,
		Cmd:          art.RunCommand(),
		StdinPath:    files.Stdin,
		StdoutPath:   files.Stdout,
		StderrPath:   files.Stderr,
		Limits:       limits,
	}

	raw, err := r.engine.Run(ctx, runSpec)
	if err != nil {
		if ctx.Err() != nil {
			return result.TestResult{}, ctx.Err()
		}
		res := result.TestResult{Status: model.StatusRuntimeError, Message: err.Error()}
		r.recorder.ObserveRun(ctx, art.Language.ID, string(res.Status), 0, 0)
		return res, nil
	}

	res := classify(raw, problem, tc, r.cfg.MeasureMemory)
	r.recorder.ObserveRun(ctx, art.Language.ID, string(res.Status), res.TimeMs, res.MemoryKB)
	return res, nil
}

func classify(raw result.RunResult, problem *model.Problem, tc model.TestCase, measureMemory bool) result.TestResult {
	// A process killed for CPU time (multi-threaded programs can exhaust it before
	// the wall timer) is a time limit too. The limit is reported instead of the
	// elapsed time.
	if raw.TimedOut || cpuExhausted(raw, problem) {
		return result.TestResult{Status: model.StatusTimeLimit, TimeMs: problem.TimeLimitMs}
	}
	var memoryKB int64
	if measureMemory {
		memoryKB = raw.MemoryKB
		if raw.OomKilled || (problem.MemoryLimitMB > 0 && memoryKB > problem.MemoryLimitMB*1024) {
			return result.TestResult{Status: model.StatusMemoryLimit, TimeMs: raw.WallTimeMs, MemoryKB: memoryKB}
		}
	}
	if raw.ExitCode != 0 {
		return result.TestResult{Status: model.StatusRuntimeError, TimeMs: raw.WallTimeMs, MemoryKB: memoryKB, Message: raw.Stderr}
	}
	if compare.Compare(raw.Stdout, tc.ExpectedOutput) == compare.Accepted {
		return result.TestResult{Status: model.StatusAccepted, TimeMs: raw.WallTimeMs, MemoryKB: memoryKB}
	}
	return result.TestResult{
		Status:   model.StatusWrongAnswer,
		TimeMs:   raw.WallTimeMs,
		MemoryKB: memoryKB,
		Message:  compare.MismatchMessage(raw.Stdout, tc.ExpectedOutput),
	}
}

func cpuExhausted(raw result.RunResult, problem *model.Problem) bool {
	return raw.ExitCode != 0 && problem.TimeLimitMs > 0 && raw.TimeMs >= problem.TimeLimitMs
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
