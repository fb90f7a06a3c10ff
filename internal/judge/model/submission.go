package model

import "time"

// Submission is one user's program for one problem.
type Submission struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ProblemID     int64      `json:"problem_id"`
	Language      string     `json:"language"`
	Code          string     `json:"code"`
	Status        Status     `json:"status"`
	Score         int        `json:"score"`
	ExecutionTime int64      `json:"execution_time"`
	MemoryUsed    int64      `json:"memory_used"`
	JudgeMessage  string     `json:"judge_message,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	JudgedAt      *time.Time `json:"judged_at,omitempty"`
}

// JudgeResult holds the fields written back when judging finishes.
type JudgeResult struct {
	Status        Status    `json:"status"`
	Score         int       `json:"score"`
	ExecutionTime int64     `json:"execution_time"`
	MemoryUsed    int64     `json:"memory_used"`
	JudgeMessage  string    `json:"judge_message,omitempty"`
	JudgedAt      time.Time `json:"judged_at"`
}

// Apply copies a final result into the submission.
func (s *Submission) Apply(res JudgeResult) {
	judgedAt := res.JudgedAt
	s.Status = res.Status
	s.Score = res.Score
	s.ExecutionTime = res.ExecutionTime
	s.MemoryUsed = res.MemoryUsed
	s.JudgeMessage = res.JudgeMessage
	s.JudgedAt = &judgedAt
}
