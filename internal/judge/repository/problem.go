package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
)

const (
	defaultProblemCacheTTL      = 10 * time.Minute
	defaultProblemCacheEmptyTTL = time.Minute
	problemCacheKeyPrefix       = "problem:"
	testCaseCacheKeyPrefix      = "problem:testcases:"
)

var (
	ErrProblemNotFound = errors.New("problem not found")
)

// ProblemRepository loads read-only judging inputs.
type ProblemRepository interface {
	GetByID(ctx context.Context, problemID int64) (*model.Problem, error)
	// ListTestCases returns test cases in creation order.
	ListTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error)
}

// MySQLProblemRepository implements ProblemRepository with MySQL and an optional cache.
type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewProblemRepository creates a problem repository with default TTLs.
func NewProblemRepository(database db.Database, cacheClient cache.Cache) ProblemRepository {
	return NewProblemRepositoryWithTTL(database, cacheClient, defaultProblemCacheTTL, defaultProblemCacheEmptyTTL)
}

// NewProblemRepositoryWithTTL creates a problem repository with custom TTL.
func NewProblemRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) ProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemCacheEmptyTTL
	}
	return &MySQLProblemRepository{db: database, cache: cacheClient, ttl: ttl, emptyTTL: emptyTTL}
}

func (r *MySQLProblemRepository) GetByID(ctx context.Context, problemID int64) (*model.Problem, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if r.cache == nil {
		return r.getByIDFromDB(ctx, problemID)
	}
	problem, err := cache.GetWithCached[*model.Problem](
		ctx,
		r.cache,
		problemCacheKey(problemID),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(p *model.Problem) bool { return p == nil },
		marshalJSON[*model.Problem],
		unmarshalJSON[model.Problem],
		func(ctx context.Context) (*model.Problem, error) {
			p, err := r.getByIDFromDB(ctx, problemID)
			if errors.Is(err, ErrProblemNotFound) {
				return nil, nil
			}
			return p, err
		},
	)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, ErrProblemNotFound
	}
	return problem, nil
}

func (r *MySQLProblemRepository) getByIDFromDB(ctx context.Context, problemID int64) (*model.Problem, error) {
	query := "SELECT id, title, time_limit, memory_limit, points FROM problems WHERE id = ? LIMIT 1"
	problem := &model.Problem{}
	if err := r.db.QueryRow(ctx, query, problemID).Scan(
		&problem.ID,
		&problem.Title,
		&problem.TimeLimitMs,
		&problem.MemoryLimitMB,
		&problem.Points,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	problem.Normalize()
	return problem, nil
}

func (r *MySQLProblemRepository) ListTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if r.cache == nil {
		return r.listTestCasesFromDB(ctx, problemID)
	}
	// An empty list is a valid answer and is cached under the short TTL.
	return cache.GetWithCached[[]model.TestCase](
		ctx,
		r.cache,
		testCaseCacheKey(problemID),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(cases []model.TestCase) bool { return len(cases) == 0 },
		marshalJSON[[]model.TestCase],
		func(data string) ([]model.TestCase, error) {
			var cases []model.TestCase
			if err := json.Unmarshal([]byte(data), &cases); err != nil {
				return nil, err
			}
			return cases, nil
		},
		func(ctx context.Context) ([]model.TestCase, error) {
			return r.listTestCasesFromDB(ctx, problemID)
		},
	)
}

func (r *MySQLProblemRepository) listTestCasesFromDB(ctx context.Context, problemID int64) ([]model.TestCase, error) {
	query := "SELECT id, problem_id, input_data, expected_output, points, is_sample FROM test_cases WHERE problem_id = ? ORDER BY id ASC"
	rows, err := r.db.Query(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.Points, &tc.IsSample); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func problemCacheKey(problemID int64) string {
	return problemCacheKeyPrefix + strconv.FormatInt(problemID, 10)
}

func testCaseCacheKey(problemID int64) string {
	return testCaseCacheKeyPrefix + strconv.FormatInt(problemID, 10)
}

func marshalJSON[T any](v T) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalJSON[T any](data string) (*T, error) {
	if data == "" || data == cache.NullCacheValue {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return &v, nil
}
