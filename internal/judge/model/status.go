package model

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending      Status = "pending"
	StatusJudging      Status = "judging"
	StatusAccepted     Status = "accepted"
	StatusWrongAnswer  Status = "wrong_answer"
	StatusTimeLimit    Status = "time_limit"
	StatusMemoryLimit  Status = "memory_limit"
	StatusRuntimeError Status = "runtime_error"
	StatusCompileError Status = "compile_error"
)

// InternalErrorMessage is stored when judging fails for reasons unrelated to the program.
const InternalErrorMessage = "Internal judging error"

// IsTerminal reports whether the submission has been judged.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusWrongAnswer, StatusTimeLimit, StatusMemoryLimit, StatusRuntimeError, StatusCompileError:
		return true
	}
	return false
}

// IsCritical reports whether a per-test outcome stops evaluation of later tests.
func (s Status) IsCritical() bool {
	switch s {
	case StatusTimeLimit, StatusMemoryLimit, StatusRuntimeError:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusJudging || s.IsTerminal()
}
