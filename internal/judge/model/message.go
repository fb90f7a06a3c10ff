package model

// JudgeMessage is the Kafka payload that triggers judging.
type JudgeMessage struct {
	SubmissionID int64  `json:"submission_id"`
	Reason       string `json:"reason,omitempty"`
}

// Trigger reasons.
const (
	ReasonSubmit  = "submit"
	ReasonRejudge = "rejudge"
)

// StatusSnapshot is what pollers read while and after a submission is judged.
type StatusSnapshot struct {
	SubmissionID  int64  `json:"submission_id"`
	UserID        int64  `json:"user_id"`
	Status        Status `json:"status"`
	Score         int    `json:"score"`
	ExecutionTime int64  `json:"execution_time"`
	MemoryUsed    int64  `json:"memory_used"`
	JudgeMessage  string `json:"judge_message,omitempty"`
	JudgedAt      int64  `json:"judged_at,omitempty"`
}

// SnapshotOf builds the poller view of a submission.
func SnapshotOf(sub *Submission) StatusSnapshot {
	snap := StatusSnapshot{
		SubmissionID:  sub.ID,
		UserID:        sub.UserID,
		Status:        sub.Status,
		Score:         sub.Score,
		ExecutionTime: sub.ExecutionTime,
		MemoryUsed:    sub.MemoryUsed,
		JudgeMessage:  sub.JudgeMessage,
	}
	if sub.JudgedAt != nil {
		snap.JudgedAt = sub.JudgedAt.Unix()
	}
	return snap
}

// StatusEventType identifies status event types.
type StatusEventType string

const StatusEventFinal StatusEventType = "final"

// StatusEvent is published once a terminal status is persisted.
type StatusEvent struct {
	Type      StatusEventType `json:"type"`
	Status    StatusSnapshot  `json:"status"`
	CreatedAt int64           `json:"created_at"`
}
