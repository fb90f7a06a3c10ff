package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

const (
	statusKeyPrefix = "judge:status:"
	lockKeyPrefix   = "judge:lock:"
)

// StatusRepository keeps the latest status snapshot of each submission in the cache
// so pollers do not hit MySQL while a submission is being judged.
type StatusRepository struct {
	cache cache.Cache
	TTL   time.Duration
}

// NewStatusRepository creates a new repository.
func NewStatusRepository(cacheClient cache.Cache, ttl time.Duration) *StatusRepository {
	return &StatusRepository{cache: cacheClient, TTL: ttl}
}

// Get returns the snapshot for a submission, or a NotFound error when none is cached.
func (r *StatusRepository) Get(ctx context.Context, submissionID int64) (model.StatusSnapshot, error) {
	if submissionID <= 0 {
		return model.StatusSnapshot{}, appErr.ValidationError("submission_id", "required")
	}
	if r.cache == nil {
		return model.StatusSnapshot{}, appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	val, err := r.cache.Get(ctx, statusKey(submissionID))
	if err != nil {
		return model.StatusSnapshot{}, appErr.Wrapf(err, appErr.CacheError, "read status failed")
	}
	if val == "" {
		return model.StatusSnapshot{}, appErr.New(appErr.NotFound).WithMessage("submission status not found")
	}
	var snap model.StatusSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return model.StatusSnapshot{}, appErr.Wrapf(err, appErr.CacheError, "decode status failed")
	}
	return snap, nil
}

// Save stores a snapshot.
func (r *StatusRepository) Save(ctx context.Context, snap model.StatusSnapshot) error {
	if snap.SubmissionID <= 0 {
		return appErr.ValidationError("submission_id", "required")
	}
	if r.cache == nil {
		return appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal status failed: %w", err)
	}
	if err := r.cache.Set(ctx, statusKey(snap.SubmissionID), string(data), r.TTL); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "store status failed")
	}
	return nil
}

// Delete removes the snapshot of a submission.
func (r *StatusRepository) Delete(ctx context.Context, submissionID int64) error {
	if r.cache == nil {
		return appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	if err := r.cache.Del(ctx, statusKey(submissionID)); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "delete status failed")
	}
	return nil
}

// TryLock claims the judging lock of a submission for owner.
func (r *StatusRepository) TryLock(ctx context.Context, submissionID int64, owner string, ttl time.Duration) (bool, error) {
	if r.cache == nil {
		return false, appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	ok, err := r.cache.TryLock(ctx, lockKey(submissionID), owner, ttl)
	if err != nil {
		return false, appErr.Wrapf(err, appErr.CacheError, "acquire judge lock failed")
	}
	return ok, nil
}

// Unlock releases the judging lock when owner still holds it.
func (r *StatusRepository) Unlock(ctx context.Context, submissionID int64, owner string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Unlock(ctx, lockKey(submissionID), owner)
}

func statusKey(submissionID int64) string {
	return statusKeyPrefix + strconv.FormatInt(submissionID, 10)
}

func lockKey(submissionID int64) string {
	return lockKeyPrefix + strconv.FormatInt(submissionID, 10)
}
