package model

// Report is the archived per-test breakdown of one judging run.
type Report struct {
	SubmissionID int64        `json:"submission_id"`
	ProblemID    int64        `json:"problem_id"`
	Language     string       `json:"language"`
	Result       JudgeResult  `json:"result"`
	Compile      *StageReport `json:"compile,omitempty"`
	Tests        []TestReport `json:"tests"`
}

// StageReport describes the compile step.
type StageReport struct {
	OK         bool   `json:"ok"`
	TimeMs     int64  `json:"time_ms"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// TestReport describes one executed test case.
type TestReport struct {
	TestCaseID int64  `json:"test_case_id"`
	Status     Status `json:"status"`
	TimeMs     int64  `json:"time_ms"`
	MemoryKB   int64  `json:"memory_kb"`
	Points     int    `json:"points"`
	Message    string `json:"message,omitempty"`
}
