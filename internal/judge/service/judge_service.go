package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/workspace"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// SubmissionCompiler builds a submission once per judging unit.
type SubmissionCompiler interface {
	Compile(ctx context.Context, languageID, source string) (*workspace.Artifact, result.CompileResult, error)
}

// TestRunner runs a built artifact against one test case.
type TestRunner interface {
	Run(ctx context.Context, art *workspace.Artifact, problem *model.Problem, tc model.TestCase) (result.TestResult, error)
}

// StatusStore keeps poller snapshots and per-submission judge locks.
type StatusStore interface {
	Get(ctx context.Context, submissionID int64) (model.StatusSnapshot, error)
	Save(ctx context.Context, snap model.StatusSnapshot) error
	Delete(ctx context.Context, submissionID int64) error
	TryLock(ctx context.Context, submissionID int64, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, submissionID int64, owner string) error
}

// Service judges submissions.
type Service struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	status      StatusStore
	compiler    SubmissionCompiler
	runner      TestRunner
	publisher   repository.StatusEventPublisher
	archiver    repository.ReportArchiver
	recorder    observer.MetricsRecorder

	statusTimeout time.Duration
	skipJudged    bool
	lockTTL       time.Duration
	now           func() time.Time
	newOwner      func() string
}

// Config holds service dependencies and settings.
type Config struct {
	Submissions repository.SubmissionRepository
	Problems    repository.ProblemRepository
	Compiler    SubmissionCompiler
	Runner      TestRunner

	// Optional collaborators.
	Status    StatusStore
	Publisher repository.StatusEventPublisher
	Archiver  repository.ReportArchiver
	Recorder  observer.MetricsRecorder

	// StatusTimeout bounds each snapshot, event and archive write.
	StatusTimeout time.Duration
	// SkipJudged turns judging of an already terminal submission into a no-op.
	SkipJudged bool
	// LockTTL enables a per-submission cache lock when positive. Requires Status.
	LockTTL time.Duration

	Now      func() time.Time
	NewOwner func() string
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Submissions == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Compiler == nil {
		return nil, fmt.Errorf("compiler is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.LockTTL > 0 && cfg.Status == nil {
		return nil, fmt.Errorf("status store is required when judge lock is enabled")
	}
	s := &Service{
		submissions:   cfg.Submissions,
		problems:      cfg.Problems,
		status:        cfg.Status,
		compiler:      cfg.Compiler,
		runner:        cfg.Runner,
		publisher:     cfg.Publisher,
		archiver:      cfg.Archiver,
		recorder:      cfg.Recorder,
		statusTimeout: cfg.StatusTimeout,
		skipJudged:    cfg.SkipJudged,
		lockTTL:       cfg.LockTTL,
		now:           cfg.Now,
		newOwner:      cfg.NewOwner,
	}
	if s.recorder == nil {
		s.recorder = observer.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newOwner == nil {
		s.newOwner = newLockOwner
	}
	return s, nil
}

// Judge runs one judging unit for a submission. A missing submission is a no-op.
// Once the submission is marked judging exactly one terminal result is written,
// and faults inside judging become runtime_error instead of being returned.
// Returned errors are limited to failures before judging starts and to a failed
// final write.
func (s *Service) Judge(ctx context.Context, submissionID int64) error {
	if submissionID <= 0 {
		return appErr.ValidationError("submission_id", "required")
	}
	ctx = context.WithValue(ctx, contextkey.SubmissionID, submissionID)
	start := time.Now()

	sub, err := s.submissions.GetByID(ctx, nil, submissionID)
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		logger.Warn(ctx, "submission not found, skip judging")
		return nil
	}
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "load submission failed")
	}
	if s.skipJudged && sub.Status.IsTerminal() {
		logger.Info(ctx, "submission already judged, skip", zap.String("status", string(sub.Status)))
		return nil
	}
	if s.lockTTL > 0 {
		release, err := s.acquireLock(ctx, submissionID)
		if err != nil {
			return err
		}
		defer release()
	}

	if err := s.submissions.MarkJudging(ctx, nil, submissionID); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "mark judging failed")
	}
	sub.Status = model.StatusJudging
	sub.JudgedAt = nil
	s.saveStatus(ctx, model.SnapshotOf(sub))

	res, report := s.evaluate(ctx, sub)
	if err := s.finish(ctx, sub, res, report); err != nil {
		return err
	}
	s.recorder.ObserveJudge(ctx, sub.Language, string(res.Status), time.Since(start))
	return nil
}

// evaluate produces the final result. It never fails: errors and panics are
// reported as the internal judging error.
func (s *Service) evaluate(ctx context.Context, sub *model.Submission) (res model.JudgeResult, report model.Report) {
	report = model.Report{SubmissionID: sub.ID, ProblemID: sub.ProblemID, Language: sub.Language}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "judging panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = s.internalError()
		}
		report.Result = res
	}()

	res, err := s.judge(ctx, sub, &report)
	if err != nil {
		logger.Error(ctx, "judging failed", zap.Error(err))
		res = s.internalError()
	}
	return res, report
}

func (s *Service) judge(ctx context.Context, sub *model.Submission, report *model.Report) (model.JudgeResult, error) {
	problem, err := s.problems.GetByID(ctx, sub.ProblemID)
	if err != nil {
		return model.JudgeResult{}, appErr.Wrapf(err, appErr.JudgeSystemError, "load problem %d failed", sub.ProblemID)
	}
	problem.Normalize()
	cases, err := s.problems.ListTestCases(ctx, problem.ID)
	if err != nil {
		return model.JudgeResult{}, appErr.Wrapf(err, appErr.JudgeSystemError, "load test cases failed")
	}
	if len(cases) == 0 {
		return model.JudgeResult{Status: model.StatusAccepted, Score: problem.Points, JudgedAt: s.now()}, nil
	}

	art, compiled, err := s.compiler.Compile(ctx, sub.Language, sub.Code)
	if err != nil {
		return model.JudgeResult{}, err
	}
	report.Compile = &model.StageReport{OK: compiled.OK, TimeMs: compiled.TimeMs, Diagnostic: compiled.Diagnostic}
	if !compiled.OK {
		return model.JudgeResult{
			Status:       model.StatusCompileError,
			JudgeMessage: compiled.Diagnostic,
			JudgedAt:     s.now(),
		}, nil
	}
	defer func() {
		if err := art.Release(); err != nil {
			logger.Warn(ctx, "release workspace failed", zap.Error(err))
		}
	}()

	agg := newAggregate(cases)
	for _, tc := range cases {
		tr, err := s.runner.Run(ctx, art, problem, tc)
		if err != nil {
			return model.JudgeResult{}, err
		}
		report.Tests = append(report.Tests, model.TestReport{
			TestCaseID: tc.ID,
			Status:     tr.Status,
			TimeMs:     tr.TimeMs,
			MemoryKB:   tr.MemoryKB,
			Points:     tc.Points,
			Message:    tr.Message,
		})
		if agg.add(tc.Points, tr) {
			break
		}
	}
	return agg.result(s.now()), nil
}

func (s *Service) internalError() model.JudgeResult {
	return model.JudgeResult{
		Status:       model.StatusRuntimeError,
		JudgeMessage: model.InternalErrorMessage,
		JudgedAt:     s.now(),
	}
}

// finish writes the final fields in one update, then refreshes the snapshot and
// emits the status event and report. Only the first write is required to succeed.
func (s *Service) finish(ctx context.Context, sub *model.Submission, res model.JudgeResult, report model.Report) error {
	// A cancelled unit still records its terminal state.
	ctx = context.WithoutCancel(ctx)
	if err := s.submissions.SaveResult(ctx, nil, sub.ID, res); err != nil {
		logger.Error(ctx, "save judge result failed", zap.String("status", string(res.Status)), zap.Error(err))
		return appErr.Wrapf(err, appErr.JudgeSystemError, "save judge result failed")
	}
	sub.Apply(res)
	snap := model.SnapshotOf(sub)
	if err := s.saveStatus(ctx, snap); err != nil {
		s.dropStatus(ctx, sub.ID)
	}
	s.publishFinal(ctx, snap)
	s.archiveReport(ctx, report)

	logger.Info(ctx, "judging finished",
		zap.String("status", string(res.Status)),
		zap.Int("score", res.Score),
		zap.Int64("execution_time_ms", res.ExecutionTime),
		zap.Int64("memory_kb", res.MemoryUsed),
	)
	return nil
}
