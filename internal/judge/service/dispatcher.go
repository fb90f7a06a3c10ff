package service

import (
	"context"
	"sync"
	"time"

	"codejudge/internal/judge/sandbox/observer"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Judger runs one judging unit.
type Judger interface {
	Judge(ctx context.Context, submissionID int64) error
}

// DispatcherConfig sizes the worker pool and its queue.
type DispatcherConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queueSize"`
}

// Dispatcher runs judging units on a fixed number of workers fed by a bounded
// queue. A full queue rejects new work instead of growing.
type Dispatcher struct {
	judger   Judger
	recorder observer.MetricsRecorder
	workers  int

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	workCh    chan int64
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewDispatcher creates a dispatcher. Call Start to launch the workers.
func NewDispatcher(judger Judger, recorder observer.MetricsRecorder, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers
	}
	if recorder == nil {
		recorder = observer.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		judger:   judger,
		recorder: recorder,
		workers:  cfg.Workers,
		workCh:   make(chan int64, cfg.QueueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.wg.Add(d.workers)
		for i := 0; i < d.workers; i++ {
			go d.loop()
		}
	})
}

// Submit enqueues a submission without blocking.
func (d *Dispatcher) Submit(submissionID int64) error {
	select {
	case <-d.done:
		return appErr.New(appErr.JudgeShutdown)
	default:
	}
	select {
	case d.workCh <- submissionID:
		d.recorder.SetQueueDepth(len(d.workCh))
		return nil
	default:
		return appErr.New(appErr.JudgeQueueFull).WithMessage("judge queue is full")
	}
}

// SubmitWait enqueues a submission, waiting up to wait for a free slot.
func (d *Dispatcher) SubmitWait(ctx context.Context, submissionID int64, wait time.Duration) error {
	if wait <= 0 {
		return d.Submit(submissionID)
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-d.done:
		return appErr.New(appErr.JudgeShutdown)
	case d.workCh <- submissionID:
		d.recorder.SetQueueDepth(len(d.workCh))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return appErr.New(appErr.JudgeQueueFull).WithMessage("judge queue is full")
	}
}

// QueueDepth returns the number of submissions waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return len(d.workCh)
}

// Shutdown stops intake, cancels in-flight units and waits for the workers.
// Submissions still queued are left pending.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.done)
		d.cancel()
	})
	waitCh := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		if left := len(d.workCh); left > 0 {
			logger.Warn(ctx, "dispatcher stopped with queued submissions", zap.Int("queued", left))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case id := <-d.workCh:
			if d.ctx.Err() != nil {
				return
			}
			d.recorder.SetQueueDepth(len(d.workCh))
			d.run(id)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) run(submissionID int64) {
	ctx := context.WithValue(d.ctx, contextkey.SubmissionID, submissionID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "judge worker panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if err := d.judger.Judge(ctx, submissionID); err != nil {
		logger.Error(ctx, "judge submission failed", zap.Error(err))
	}
}
