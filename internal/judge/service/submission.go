package service

import (
	"context"
	"errors"
	"strings"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox/profile"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// MaxCodeBytes caps the size of submitted source.
const MaxCodeBytes = 64 << 10

// LanguageLookup resolves a language id.
type LanguageLookup interface {
	Lookup(id string) (profile.LanguageSpec, error)
}

// SubmitRequest is a new submission from an authenticated user.
type SubmitRequest struct {
	UserID    int64
	ProblemID int64
	Language  string
	Code      string
}

// CreateSubmission validates and stores a pending submission.
func (s *Service) CreateSubmission(ctx context.Context, languages LanguageLookup, req SubmitRequest) (*model.Submission, error) {
	if req.UserID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	if req.ProblemID <= 0 {
		return nil, appErr.ValidationError("problem_id", "required")
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, appErr.ValidationError("code", "required")
	}
	if len(req.Code) > MaxCodeBytes {
		return nil, appErr.New(appErr.CodeTooLarge).WithDetail("max_bytes", MaxCodeBytes)
	}
	if languages != nil {
		if _, err := languages.Lookup(req.Language); err != nil {
			return nil, err
		}
	}
	if _, err := s.problems.GetByID(ctx, req.ProblemID); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}

	sub := &model.Submission{
		UserID:      req.UserID,
		ProblemID:   req.ProblemID,
		Language:    req.Language,
		Code:        req.Code,
		Status:      model.StatusPending,
		SubmittedAt: s.now(),
	}
	id, err := s.submissions.Create(ctx, nil, sub)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}
	sub.ID = id
	s.saveStatus(ctx, model.SnapshotOf(sub))
	logger.Info(ctx, "submission created", zap.Int64("submission_id", id), zap.Int64("problem_id", req.ProblemID), zap.String("language", req.Language))
	return sub, nil
}

// GetSubmission loads a submission or returns SubmissionNotFound.
func (s *Service) GetSubmission(ctx context.Context, submissionID int64) (*model.Submission, error) {
	if submissionID <= 0 {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	sub, err := s.submissions.GetByID(ctx, nil, submissionID)
	if err != nil {
		return nil, mapSubmissionError(err)
	}
	return sub, nil
}

func mapSubmissionError(err error) error {
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		return appErr.New(appErr.SubmissionNotFound)
	}
	return appErr.Wrapf(err, appErr.DatabaseError, "load submission failed")
}
