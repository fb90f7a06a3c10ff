package service

import (
	"time"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/result"
)

// aggregate folds per-case results into the submission verdict.
type aggregate struct {
	total     int
	score     int
	status    model.Status
	message   string
	maxTimeMs int64
	maxMemKB  int64
	halted    bool
}

func newAggregate(cases []model.TestCase) *aggregate {
	return &aggregate{total: model.TotalPoints(cases)}
}

// add records one executed case and reports whether judging must stop.
func (a *aggregate) add(points int, tr result.TestResult) bool {
	a.maxTimeMs = max(a.maxTimeMs, tr.TimeMs)
	a.maxMemKB = max(a.maxMemKB, tr.MemoryKB)

	switch {
	case tr.Status.IsCritical():
		a.status = tr.Status
		a.message = tr.Message
		a.halted = true
		return true
	case tr.Status == model.StatusAccepted:
		a.score += points
	default:
		// First mismatch keeps its diff as the message.
		if a.status != model.StatusWrongAnswer {
			a.status = model.StatusWrongAnswer
			a.message = tr.Message
		}
	}
	return false
}

// result applies the final verdict. A flagged mismatch stays wrong_answer;
// otherwise full marks are accepted and anything less is wrong_answer.
func (a *aggregate) result(judgedAt time.Time) model.JudgeResult {
	res := model.JudgeResult{
		Status:        a.status,
		Score:         a.score,
		ExecutionTime: a.maxTimeMs,
		MemoryUsed:    a.maxMemKB,
		JudgeMessage:  a.message,
		JudgedAt:      judgedAt,
	}
	if a.halted || a.status != "" {
		return res
	}
	if a.score == a.total {
		res.Status = model.StatusAccepted
	} else {
		res.Status = model.StatusWrongAnswer
	}
	return res
}
