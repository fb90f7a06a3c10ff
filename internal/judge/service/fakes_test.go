package service

import (
	"context"
	"sync"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/workspace"
	appErr "codejudge/pkg/errors"
)

type fakeSubmissions struct {
	mu          sync.Mutex
	rows        map[int64]*model.Submission
	marks       int
	saves       []model.JudgeResult
	nextID      int64
	saveErr     error
	loadErr     error
	saveCtxErrs []error
}

func newFakeSubmissions(subs ...*model.Submission) *fakeSubmissions {
	f := &fakeSubmissions{rows: make(map[int64]*model.Submission), nextID: 100}
	for _, s := range subs {
		f.rows[s.ID] = s
	}
	return f
}

func (f *fakeSubmissions) Create(ctx context.Context, tx db.Transaction, sub *model.Submission) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *sub
	cp.ID = f.nextID
	f.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeSubmissions) GetByID(ctx context.Context, tx db.Transaction, id int64) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	sub, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubmissions) MarkJudging(ctx context.Context, tx db.Transaction, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks++
	f.rows[id].Status = model.StatusJudging
	f.rows[id].JudgedAt = nil
	return nil
}

func (f *fakeSubmissions) SaveResult(ctx context.Context, tx db.Transaction, id int64, res model.JudgeResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCtxErrs = append(f.saveCtxErrs, ctx.Err())
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, res)
	f.rows[id].Apply(res)
	return nil
}

func (f *fakeSubmissions) row(id int64) model.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

type fakeProblems struct {
	problems map[int64]*model.Problem
	cases    map[int64][]model.TestCase
}

func (f *fakeProblems) GetByID(ctx context.Context, id int64) (*model.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return nil, repository.ErrProblemNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProblems) ListTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error) {
	return f.cases[problemID], nil
}

type fakeCompiler struct {
	result result.CompileResult
	err    error
	calls  int
	dir    string
	art    *workspace.Artifact
}

func (f *fakeCompiler) Compile(ctx context.Context, languageID, source string) (*workspace.Artifact, result.CompileResult, error) {
	f.calls++
	if f.err != nil {
		return nil, result.CompileResult{}, f.err
	}
	if !f.result.OK {
		return nil, f.result, nil
	}
	art, err := workspace.Create(f.dir, profile.LanguageSpec{ID: "python3", SourceFile: "solution.py"}, source)
	if err != nil {
		return nil, result.CompileResult{}, err
	}
	f.art = art
	return art, f.result, nil
}

// fakeRunner answers by test case id.
type fakeRunner struct {
	results map[int64]result.TestResult
	ran     []int64
	run     func(ctx context.Context, tc model.TestCase) (result.TestResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, art *workspace.Artifact, problem *model.Problem, tc model.TestCase) (result.TestResult, error) {
	f.ran = append(f.ran, tc.ID)
	if f.run != nil {
		return f.run(ctx, tc)
	}
	return f.results[tc.ID], nil
}

type fakeStatus struct {
	mu     sync.Mutex
	snaps  []model.StatusSnapshot
	locked map[int64]string
	// saveErr fails saves whose status matches.
	saveErr func(model.StatusSnapshot) error
	deleted []int64
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{locked: make(map[int64]string)}
}

func (f *fakeStatus) Get(ctx context.Context, id int64) (model.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.snaps) - 1; i >= 0; i-- {
		if f.snaps[i].SubmissionID == id {
			return f.snaps[i], nil
		}
	}
	return model.StatusSnapshot{}, appErr.New(appErr.NotFound)
}

func (f *fakeStatus) Save(ctx context.Context, snap model.StatusSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		if err := f.saveErr(snap); err != nil {
			return err
		}
	}
	f.snaps = append(f.snaps, snap)
	return nil
}

func (f *fakeStatus) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	kept := f.snaps[:0]
	for _, snap := range f.snaps {
		if snap.SubmissionID != id {
			kept = append(kept, snap)
		}
	}
	f.snaps = kept
	return nil
}

func (f *fakeStatus) TryLock(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.locked[id]; ok {
		return false, nil
	}
	f.locked[id] = owner
	return true, nil
}

func (f *fakeStatus) Unlock(ctx context.Context, id int64, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked[id] == owner {
		delete(f.locked, id)
	}
	return nil
}

type fakePublisher struct {
	events []model.StatusSnapshot
}

func (f *fakePublisher) PublishFinalStatus(ctx context.Context, snap model.StatusSnapshot) error {
	f.events = append(f.events, snap)
	return nil
}

type fakeArchiver struct {
	reports []model.Report
}

func (f *fakeArchiver) Archive(ctx context.Context, report model.Report) (string, error) {
	f.reports = append(f.reports, report)
	return "reports/1.json.zst", nil
}

func (f *fakeArchiver) Load(ctx context.Context, id int64) (model.Report, error) {
	for _, r := range f.reports {
		if r.SubmissionID == id {
			return r, nil
		}
	}
	return model.Report{}, appErr.New(appErr.NotFound)
}

type fakeProducer struct {
	mu        sync.Mutex
	published map[string][]*mq.Message
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, msg *mq.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = make(map[string][]*mq.Message)
	}
	f.published[topic] = append(f.published[topic], msg)
	return nil
}
