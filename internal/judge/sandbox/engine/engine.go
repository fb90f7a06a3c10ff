// Package engine starts one process under a wall-clock limit and reports how it ended.
package engine

import (
	"context"

	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
)

// Engine executes a RunSpec.
// A non-nil error means the process could not be started or ctx was canceled;
// every outcome of a started process, timeouts included, is reported in RunResult.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error)
}
