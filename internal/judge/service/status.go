package service

import (
	"context"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) withStatusTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.statusTimeout > 0 {
		return context.WithTimeout(ctx, s.statusTimeout)
	}
	return ctx, func() {}
}

// saveStatus refreshes the poller snapshot. MySQL stays the source of truth,
// so a failed write is only logged.
func (s *Service) saveStatus(ctx context.Context, snap model.StatusSnapshot) error {
	if s.status == nil {
		return nil
	}
	ctxStatus, cancel := s.withStatusTimeout(ctx)
	defer cancel()
	if err := s.status.Save(ctxStatus, snap); err != nil {
		logger.Warn(ctx, "update status snapshot failed", zap.String("status", string(snap.Status)), zap.Error(err))
		return err
	}
	return nil
}

// dropStatus removes a snapshot that could not be refreshed so readers go to
// the submission row instead of a stale in-flight status.
func (s *Service) dropStatus(ctx context.Context, submissionID int64) {
	ctxStatus, cancel := s.withStatusTimeout(ctx)
	defer cancel()
	if err := s.status.Delete(ctxStatus, submissionID); err != nil {
		logger.Warn(ctx, "drop stale status snapshot failed", zap.Error(err))
	}
}

func (s *Service) publishFinal(ctx context.Context, snap model.StatusSnapshot) {
	if s.publisher == nil {
		return
	}
	ctxPub, cancel := s.withStatusTimeout(ctx)
	defer cancel()
	if err := s.publisher.PublishFinalStatus(ctxPub, snap); err != nil {
		logger.Warn(ctx, "publish final status failed", zap.Error(err))
	}
}

func (s *Service) archiveReport(ctx context.Context, report model.Report) {
	if s.archiver == nil {
		return
	}
	ctxArchive, cancel := s.withStatusTimeout(ctx)
	defer cancel()
	key, err := s.archiver.Archive(ctxArchive, report)
	if err != nil {
		logger.Warn(ctx, "archive judge report failed", zap.Error(err))
		return
	}
	logger.Debug(ctx, "judge report archived", zap.String("key", key))
}

func (s *Service) acquireLock(ctx context.Context, submissionID int64) (func(), error) {
	owner := s.newOwner()
	ok, err := s.status.TryLock(ctx, submissionID, owner, s.lockTTL)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "acquire judge lock failed")
	}
	if !ok {
		return nil, appErr.New(appErr.JudgeInProgress)
	}
	return func() {
		if err := s.status.Unlock(context.WithoutCancel(ctx), submissionID, owner); err != nil {
			logger.Warn(ctx, "release judge lock failed", zap.Error(err))
		}
	}, nil
}

func newLockOwner() string {
	return uuid.NewString()
}

// GetStatus returns the cached snapshot when it is terminal. In-flight or
// missing snapshots fall back to the submission row, which is authoritative.
func (s *Service) GetStatus(ctx context.Context, submissionID int64) (model.StatusSnapshot, error) {
	if submissionID <= 0 {
		return model.StatusSnapshot{}, appErr.ValidationError("submission_id", "required")
	}
	if s.status != nil {
		snap, err := s.status.Get(ctx, submissionID)
		if err == nil && snap.Status.IsTerminal() {
			return snap, nil
		}
		if err != nil && !appErr.Is(err, appErr.NotFound) {
			logger.Warn(ctx, "read status snapshot failed", zap.Error(err))
		}
	}
	sub, err := s.submissions.GetByID(ctx, nil, submissionID)
	if err != nil {
		return model.StatusSnapshot{}, mapSubmissionError(err)
	}
	return model.SnapshotOf(sub), nil
}

// GetReport loads the archived per-test report of a judged submission.
func (s *Service) GetReport(ctx context.Context, submissionID int64) (model.Report, error) {
	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return model.Report{}, err
	}
	if s.archiver == nil {
		return model.Report{}, appErr.New(appErr.ServiceUnavailable).WithMessage("report archive is not configured")
	}
	if !sub.Status.IsTerminal() {
		return model.Report{}, appErr.New(appErr.JudgeInProgress)
	}
	return s.archiver.Load(ctx, submissionID)
}
