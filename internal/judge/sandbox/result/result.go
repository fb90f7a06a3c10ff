// Package result defines sandbox execution results.
package result

import "codejudge/internal/judge/model"

// RunResult captures raw execution data of one process.
type RunResult struct {
	ExitCode   int
	TimeMs     int64
	WallTimeMs int64
	MemoryKB   int64
	OutputKB   int64
	Stdout     string
	Stderr     string
	TimedOut   bool
	OomKilled  bool
}

// CompileResult contains compilation outcomes.
type CompileResult struct {
	OK         bool
	ExitCode   int
	TimeMs     int64
	Diagnostic string
}

// TestResult is the classified outcome of one test case.
type TestResult struct {
	Status   model.Status
	TimeMs   int64
	MemoryKB int64
	Message  string
}
