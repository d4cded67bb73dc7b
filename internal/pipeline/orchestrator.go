package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BuildFunc performs one build.
type BuildFunc func(ctx context.Context) (*Result, error)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("build runner stopped")

// Orchestrator runs submitted builds one at a time in the background. Two
// builds never touch the artifact or the manifest concurrently.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	build BuildFunc
	log   *slog.Logger

	mu      sync.Mutex
	last    *Result
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(build BuildFunc, ttl time.Duration, queueSize int, log *slog.Logger) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 8
	}
	return &Orchestrator{
		jobs:  NewJobStore(ttl),
		queue: make(chan *Job, queueSize),
		build: build,
		log:   log,
	}
}

// Start launches the worker goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				o.process(workerCtx, job)
			}
		}
	}()
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With("job_id", job.ID)
	job.SetStatus(StatusRunning, "building")
	log.Info("build started")

	res, err := o.build(ctx)
	job.Finish(res, err)
	o.jobs.Put(job)

	if err != nil {
		log.Warn("build finished without artifact", "error", err)
		return
	}
	o.mu.Lock()
	o.last = res
	o.mu.Unlock()
	log.Info("build finished", "pages", res.TotalPages, "diagnostics", len(res.Diagnostics))
}

// Stop cancels the running build and waits for the worker to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new build.
func (o *Orchestrator) Submit() (*Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, ErrStopped
	}
	job := NewJob()
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return job, nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return job, fmt.Errorf("build queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// LastResult returns the most recent build that produced an artifact.
func (o *Orchestrator) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
