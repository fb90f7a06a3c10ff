package model

// Problem defaults used when a row leaves a limit unset.
const (
	DefaultTimeLimitMs   int64 = 1000
	DefaultMemoryLimitMB int64 = 256
)

// Problem is the read-only judging input for a problem.
type Problem struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	TimeLimitMs   int64  `json:"time_limit"`
	MemoryLimitMB int64  `json:"memory_limit"`
	Points        int    `json:"points"`
}

// Normalize fills unset limits with defaults.
func (p *Problem) Normalize() {
	if p.TimeLimitMs <= 0 {
		p.TimeLimitMs = DefaultTimeLimitMs
	}
	if p.MemoryLimitMB <= 0 {
		p.MemoryLimitMB = DefaultMemoryLimitMB
	}
}

// TestCase is one input/expected-output pair.
type TestCase struct {
	ID             int64  `json:"id"`
	ProblemID      int64  `json:"problem_id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Points         int    `json:"points"`
	IsSample       bool   `json:"is_sample"`
}

// TotalPoints sums the points of all test cases.
func TotalPoints(cases []TestCase) int {
	total := 0
	for _, tc := range cases {
		total += tc.Points
	}
	return total
}
