// Package spec defines the execution specification and resource limits.
package spec

// ResourceLimit describes limits applied to one process.
// Only WallTimeMs is enforced without the init helper; the rest are rlimits set by it.
type ResourceLimit struct {
	CPUTimeMs  int64
	WallTimeMs int64
	MemoryMB   int64
	StackMB    int64
	OutputMB   int64
	PIDs       int64
}

// RunSpec is the unified execution specification for one process.
type RunSpec struct {
	SubmissionID string
	TestID       string
	WorkDir      string
	Cmd          []string
	Env          []string
	StdinPath    string
	StdoutPath   string
	StderrPath   string
	Limits       ResourceLimit
}
