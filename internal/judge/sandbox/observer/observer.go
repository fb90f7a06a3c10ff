// Package observer defines metrics hooks for compile, run and judging.
package observer

import (
	"context"
	"time"
)

// MetricsRecorder records sandbox and judge metrics.
type MetricsRecorder interface {
	ObserveCompile(ctx context.Context, languageID string, ok bool, timeMs int64)
	ObserveRun(ctx context.Context, languageID string, status string, timeMs int64, memoryKB int64)
	ObserveJudge(ctx context.Context, languageID string, status string, elapsed time.Duration)
	SetQueueDepth(depth int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveCompile(context.Context, string, bool, int64)         {}
func (Nop) ObserveRun(context.Context, string, string, int64, int64)    {}
func (Nop) ObserveJudge(context.Context, string, string, time.Duration) {}
func (Nop) SetQueueDepth(int)                                           {}
